package email

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"log/slog"

	"qms-exporter/internal/config"
	"qms-exporter/internal/security"
)

var ErrNoRecipient = errors.New("message has no recipient")

// Attachment carries its content base64 encoded, the form send-email
// functions expect.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Base64      string `json:"content"`
}

func NewAttachment(filename, contentType string, data []byte) Attachment {
	return Attachment{Filename: filename, ContentType: contentType, Base64: base64.StdEncoding.EncodeToString(data)}
}

// Decode returns the raw attachment bytes.
func (a Attachment) Decode() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(a.Base64)
	if err != nil {
		return nil, fmt.Errorf("attachment %s: %w", a.Filename, err)
	}
	return data, nil
}

type Message struct {
	To          []string     `json:"to"`
	Subject     string       `json:"subject"`
	HTML        string       `json:"html"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Validate rejects messages that cannot be sent safely.
func (m Message) Validate() error {
	if len(m.To) == 0 {
		return ErrNoRecipient
	}
	for _, to := range m.To {
		if err := security.ValidateEmail(to); err != nil {
			return fmt.Errorf("recipient %q: %w", to, err)
		}
	}
	return nil
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// New picks the sender configured by EMAIL_MODE.
func New(cfg *config.Config) (Sender, error) {
	switch cfg.EmailMode {
	case "", "log":
		return NewLogSender(), nil
	case "smtp":
		if cfg.SMTPHost == "" {
			return nil, errors.New("SMTP_HOST is required for smtp mode")
		}
		return NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom), nil
	case "function":
		if cfg.EmailFunctionURL == "" {
			return nil, errors.New("EMAIL_FUNCTION_URL is required for function mode")
		}
		return NewFunctionSender(cfg.EmailFunctionURL, cfg.EmailFunctionKey), nil
	}
	return nil, fmt.Errorf("unknown email mode %q", cfg.EmailMode)
}

type LogSender struct{}

func NewLogSender() *LogSender {
	return &LogSender{}
}

// Send only logs the message. Used in development and tests.
func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	names := make([]string, len(msg.Attachments))
	for i, a := range msg.Attachments {
		names[i] = a.Filename
	}
	slog.Info("EMAIL SENT",
		"to", msg.To,
		"subject", msg.Subject,
		"attachments", names,
	)
	return nil
}

var readyTemplate = template.Must(template.New("ready").Parse(`<p>Bonjour,</p>
<p>Le document <strong>{{.Title}}</strong>{{if .Reference}} ({{.Reference}}){{end}} est disponible.</p>
{{if .Link}}<p><a href="{{.Link}}">Télécharger le document</a></p>{{else}}<p>Vous le trouverez en pièce jointe.</p>{{end}}
{{if .Pages}}<p>{{.Pages}} page(s).</p>{{end}}
<p>Système qualité de l'officine</p>`))

// ReadyNotice is the content of a document-ready email.
type ReadyNotice struct {
	Title     string
	Reference string
	Link      string
	Pages     int
}

// HTML renders the notice body.
func (n ReadyNotice) HTML() (string, error) {
	var buf bytes.Buffer
	if err := readyTemplate.Execute(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}
