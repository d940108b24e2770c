package events

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/finvelo/ledger-backend/internal/domain"
	"github.com/finvelo/ledger-backend/internal/platform/logger"
)

// Sink delivers a domain event to its consumer. Implementations must be
// safe to call again with the same event: the outbox dispatcher retries.
type Sink interface {
	Send(ctx context.Context, ev domain.Event) error
}

// LogSink writes events to the structured log. It is the default sink
// when no webhook endpoint is configured.
type LogSink struct {
	log *logger.Logger
}

func NewLogSink(baseLog *logger.Logger) *LogSink {
	return &LogSink{log: baseLog.With("sink", "LogSink")}
}

func (s *LogSink) Send(_ context.Context, ev domain.Event) error {
	s.log.Info("event delivered",
		"event_id", ev.EventID,
		"event_type", ev.Type,
		"occurred_at", ev.OccurredAt.Format(time.RFC3339Nano),
	)
	return nil
}

const signatureHeader = "X-Ledger-Signature"

// WebhookSink POSTs events as JSON to a consumer endpoint, signing each
// body with HMAC-SHA256 so the consumer can verify origin.
type WebhookSink struct {
	url    string
	secret []byte
	client *http.Client
	log    *logger.Logger
}

func NewWebhookSink(url, secret string, timeout time.Duration, baseLog *logger.Logger) *WebhookSink {
	return &WebhookSink{
		url:    url,
		secret: []byte(secret),
		client: &http.Client{Timeout: timeout},
		log:    baseLog.With("sink", "WebhookSink"),
	}
}

func (s *WebhookSink) Send(ctx context.Context, ev domain.Event) error {
	body, err := domain.EncodeEvent(ev)
	if err != nil {
		return domain.NewError(domain.CodeInternal, "WebhookSink.Send", "encoding event", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return domain.NewError(domain.CodeInternal, "WebhookSink.Send", "building request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(signatureHeader, s.sign(body))

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting event %s: %w", ev.EventID, err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("posting event %s: consumer responded %d", ev.EventID, resp.StatusCode)
	}
	return nil
}

func (s *WebhookSink) sign(body []byte) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
