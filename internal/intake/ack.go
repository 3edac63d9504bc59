package intake

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/portops/triage-cli/internal/config"
	"github.com/portops/triage-cli/internal/model"
)

// ackSuffix names sibling acknowledgement files. The watcher skips them
// during sweeps.
const ackSuffix = ".ack"

// Acknowledgement carries what an acknowledger needs to confirm receipt
// of an accepted report.
type Acknowledgement struct {
	Incident model.Incident
	// To is the reporter address from the message, may be empty.
	To string
	// Subject is the original message subject.
	Subject string
	// Path is where the processed file landed.
	Path string
}

// Acknowledger confirms receipt back to the sender.
type Acknowledger interface {
	Ack(ctx context.Context, ack Acknowledgement) error
}

// FileAcker writes the confirmation as a sibling .ack file next to the
// processed message. It is the default when no SMTP relay is configured.
type FileAcker struct{}

func (FileAcker) Ack(_ context.Context, ack Acknowledgement) error {
	path := ack.Path + ackSuffix
	if err := os.WriteFile(path, []byte(ackBody(ack.Incident)), 0o644); err != nil {
		return eris.Wrapf(err, "intake: write acknowledgement %s", path)
	}
	return nil
}

// SMTPAcker mails the confirmation through the configured relay.
type SMTPAcker struct {
	cfg config.SMTPConfig
}

// NewSMTPAcker creates an SMTP acknowledger.
func NewSMTPAcker(cfg config.SMTPConfig) *SMTPAcker {
	return &SMTPAcker{cfg: cfg}
}

func (a *SMTPAcker) Ack(_ context.Context, ack Acknowledgement) error {
	if ack.To == "" {
		return eris.New("intake: message has no reporter address")
	}

	from := a.cfg.From
	if from == "" {
		from = a.cfg.Username
	}

	var auth smtp.Auth
	if a.cfg.Username != "" {
		auth = smtp.PlainAuth("", a.cfg.Username, a.cfg.Password, a.cfg.Host)
	}

	addr := net.JoinHostPort(a.cfg.Host, strconv.Itoa(a.cfg.Port))
	msg := buildMail(from, ack.To, "Incident received: "+ack.Incident.Reference, ackBody(ack.Incident))
	if err := smtp.SendMail(addr, auth, from, []string{ack.To}, msg); err != nil {
		return eris.Wrapf(err, "intake: send acknowledgement to %s", ack.To)
	}
	return nil
}

// ackBody renders the confirmation text shared by both acknowledgers.
func ackBody(incident model.Incident) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Your incident report has been processed and assigned reference %s.\n\n", incident.Reference)
	fmt.Fprintf(&b, "Type: %s\n", incident.Analysis.IncidentType)
	fmt.Fprintf(&b, "Urgency: %s\n", incident.Analysis.Urgency)
	fmt.Fprintf(&b, "Status: %s\n", incident.Status)
	if incident.TicketKey != "" {
		fmt.Fprintf(&b, "Ticket: %s\n", incident.TicketKey)
	}
	b.WriteString("\nThe incident has been logged and will be reviewed by the duty officer team.\n")

	return b.String()
}

func buildMail(from, to, subject, body string) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))

	return []byte(b.String())
}
