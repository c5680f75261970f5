package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// FunctionSender posts messages to an HTTP send-email function, the way
// serverless mailers are usually exposed. Attachments travel base64 encoded.
type FunctionSender struct {
	URL    string
	Key    string
	Client *http.Client
}

func NewFunctionSender(url, key string) *FunctionSender {
	return &FunctionSender{
		URL:    url,
		Key:    key,
		Client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *FunctionSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.Key != "" {
		req.Header.Set("Authorization", "Bearer "+s.Key)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		slog.Error("Send-email function unreachable", "error", err, "url", s.URL)
		return fmt.Errorf("send-email function: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("send-email function returned %s: %s", resp.Status, bytes.TrimSpace(snippet))
	}
	slog.Info("Email handed to send-email function", "to", msg.To, "status", resp.StatusCode)
	return nil
}
