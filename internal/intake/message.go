package intake

import (
	"bytes"
	"io"
	"net/mail"
	"strings"
)

// Message is one report pulled from the spool directory.
type Message struct {
	From    string
	Subject string
	Body    string
}

// ParseMessage splits a spool file into sender, subject and body. Files
// shaped like mail (From/Subject headers before the first blank line)
// are split on the header boundary; anything else is a bare body with no
// sender or subject.
func ParseMessage(data []byte) Message {
	if m, err := mail.ReadMessage(bytes.NewReader(data)); err == nil {
		from := m.Header.Get("From")
		subject := m.Header.Get("Subject")
		// A bare report whose first line contains a colon also parses
		// as a header block. Only trust the split when a mail header
		// is actually present.
		if from != "" || subject != "" {
			body, _ := io.ReadAll(m.Body)
			return Message{
				From:    senderAddress(from),
				Subject: strings.TrimSpace(subject),
				Body:    strings.TrimSpace(string(body)),
			}
		}
	}
	return Message{Body: strings.TrimSpace(string(data))}
}

// senderAddress reduces a From header to the bare address when it
// parses, e.g. "Ops Desk <ops@harbor.example>" to ops@harbor.example.
func senderAddress(from string) string {
	if addr, err := mail.ParseAddress(from); err == nil {
		return addr.Address
	}
	return strings.TrimSpace(from)
}
