package mail

import (
	"context"
	"errors"
	"strings"

	"gopkg.in/gomail.v2"
)

var ErrNotConfigured = errors.New("mailer not configured")

type Message struct {
	To       string
	Subject  string
	HTMLBody string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
	fromName string
	useTLS   bool
}

func NewSMTPSender(host string, port int, username, password, from, fromName string, useTLS bool) *SMTPSender {
	return &SMTPSender{
		host:     strings.TrimSpace(host),
		port:     port,
		username: username,
		password: password,
		from:     strings.TrimSpace(from),
		fromName: strings.TrimSpace(fromName),
		useTLS:   useTLS,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if s == nil || s.host == "" || s.port == 0 || s.from == "" {
		return ErrNotConfigured
	}
	if strings.TrimSpace(msg.To) == "" {
		return errors.New("mail: empty recipient")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.from, s.fromName)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTMLBody)

	d := gomail.NewDialer(s.host, s.port, s.username, s.password)
	d.SSL = s.useTLS
	return d.DialAndSend(m)
}

// DisabledSender rejects every message. It stands in when SMTP is not
// configured so that dispatch failures stay observable.
type DisabledSender struct{}

func (DisabledSender) Send(context.Context, Message) error {
	return ErrNotConfigured
}
