package notify

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWebhookSender_PostsSignedJSON(t *testing.T) {
	var gotBody []byte
	var gotSig, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSig = r.Header.Get("X-Webhook-Signature")
		gotType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewWebhookSender("topsecret", 5*time.Second, discardLogger())
	s.Send(context.Background(), srv.URL, map[string]string{"event": "task_completed"})

	if gotType != "application/json" {
		t.Errorf("Content-Type = %q", gotType)
	}
	if string(gotBody) != `{"event":"task_completed"}` {
		t.Errorf("body = %s", gotBody)
	}
	if !VerifySignature("topsecret", gotBody, gotSig) {
		t.Errorf("signature %q does not verify", gotSig)
	}
	if VerifySignature("wrong", gotBody, gotSig) {
		t.Error("signature verified with wrong secret")
	}
}

func TestWebhookSender_NoSecretNoSignature(t *testing.T) {
	var gotSig string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-Webhook-Signature")
	}))
	defer srv.Close()

	s := NewWebhookSender("", 5*time.Second, discardLogger())
	s.Send(context.Background(), srv.URL, map[string]string{"a": "b"})

	if gotSig != "" {
		t.Errorf("unexpected signature header %q", gotSig)
	}
}

func TestWebhookSender_FailureDoesNotPanic(t *testing.T) {
	s := NewWebhookSender("", time.Second, discardLogger())
	// Unreachable URL: delivery must be swallowed.
	s.Send(context.Background(), "http://127.0.0.1:1/nope", map[string]string{"a": "b"})
}
