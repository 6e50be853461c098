package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// WebhookSender posts JSON payloads to callback URLs. Delivery is
// best-effort: failures are logged and dropped, never returned.
//
// When a secret is configured each request carries an HMAC-SHA256
// signature header: X-Webhook-Signature: sha256=<hex>.
type WebhookSender struct {
	client *http.Client
	secret string
	logger *slog.Logger
}

// NewWebhookSender creates a sender with a bounded request timeout.
// secret may be empty to disable signing.
func NewWebhookSender(secret string, timeout time.Duration, logger *slog.Logger) *WebhookSender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookSender{
		client: &http.Client{Timeout: timeout},
		secret: secret,
		logger: logger,
	}
}

// Send posts payload to url as JSON. Errors are swallowed.
func (s *WebhookSender) Send(ctx context.Context, url string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("webhook marshal", slog.String("url", url), slog.Any("err", err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		s.logger.Warn("webhook request", slog.String("url", url), slog.Any("err", err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if s.secret != "" {
		req.Header.Set("X-Webhook-Signature", "sha256="+s.sign(body))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("webhook delivery", slog.String("url", url), slog.Any("err", err))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		s.logger.Warn("webhook rejected",
			slog.String("url", url),
			slog.Int("status", resp.StatusCode),
		)
	}
}

func (s *WebhookSender) sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(s.secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks an X-Webhook-Signature header value ("sha256=<hex>")
// against a payload, for receivers that want to authenticate callbacks.
func VerifySignature(secret string, payload []byte, signature string) bool {
	if secret == "" {
		return signature == ""
	}
	const prefix = "sha256="
	if len(signature) <= len(prefix) || signature[:len(prefix)] != prefix {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature[len(prefix):]), []byte(expected))
}
