// Vitrine - Landing Page Lead Capture and Visitor Analytics
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrineapp/vitrine

package notify

import "strings"

// Field is one labeled value in a notification message. Fields with empty
// values are dropped at render time so messages only carry what is known.
type Field struct {
	Name  string
	Value string
}

// Message is a structured notification: a header line, key/value fields,
// and optional free-text alert lines appended by the heuristic rules.
type Message struct {
	Header string
	Fields []Field
	Alerts []string
}

// Render flattens the message into the text block posted to the webhook.
// The format is Slack/Discord-compatible plain text.
func (m Message) Render() string {
	var b strings.Builder
	b.WriteString(m.Header)

	for _, f := range m.Fields {
		if f.Value == "" {
			continue
		}
		b.WriteString("\n")
		b.WriteString(f.Name)
		b.WriteString(": ")
		b.WriteString(f.Value)
	}

	for _, alert := range m.Alerts {
		if alert == "" {
			continue
		}
		b.WriteString("\n⚠ ")
		b.WriteString(alert)
	}

	return b.String()
}
