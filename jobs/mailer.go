package jobs

import (
	"fmt"
	"net/smtp"
	"strings"
)

// Mailer delivers a rendered email.
type Mailer interface {
	Send(to, subject, htmlBody string) error
}

// SMTPMailer sends mail through a plain SMTP relay, e.g. Mailpit in
// development.
type SMTPMailer struct {
	Addr string
	From string
	Auth smtp.Auth
}

// NewSMTPMailer constructs an SMTPMailer. username may be empty for
// unauthenticated relays.
func NewSMTPMailer(host string, port int, from, username, password string) *SMTPMailer {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPMailer{
		Addr: fmt.Sprintf("%s:%d", host, port),
		From: from,
		Auth: auth,
	}
}

// Send delivers one HTML email.
func (m *SMTPMailer) Send(to, subject, htmlBody string) error {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)
	return smtp.SendMail(m.Addr, m.Auth, m.From, []string{to}, []byte(msg.String()))
}
