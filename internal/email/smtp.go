package email

import (
	"context"
	"io"
	"log/slog"

	"github.com/go-gomail/gomail"
)

type SMTPSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

func NewSMTPSender(host string, port int, user, password, from string) *SMTPSender {
	return &SMTPSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		From:     from,
	}
}

// Send delivers msg synchronously. Attachments are decoded into memory and
// never touch the filesystem.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	m, err := s.build(msg)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	slog.Info("Sending email via SMTP", "to", msg.To, "host", s.Host, "attachments", len(msg.Attachments))
	d := gomail.NewDialer(s.Host, s.Port, s.User, s.Password)
	if err := d.DialAndSend(m); err != nil {
		slog.Error("Failed to send email", "error", err, "to", msg.To)
		return err
	}
	slog.Info("Email sent successfully", "to", msg.To)
	return nil
}

func (s *SMTPSender) build(msg Message) (*gomail.Message, error) {
	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", msg.To...)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)

	for _, a := range msg.Attachments {
		data, err := a.Decode()
		if err != nil {
			return nil, err
		}
		settings := []gomail.FileSetting{
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			}),
		}
		if a.ContentType != "" {
			settings = append(settings, gomail.SetHeader(map[string][]string{"Content-Type": {a.ContentType}}))
		}
		m.Attach(a.Filename, settings...)
	}
	return m, nil
}
