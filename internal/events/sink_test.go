package events

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finvelo/ledger-backend/internal/domain"
	"github.com/finvelo/ledger-backend/internal/platform/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("production")
	if err != nil {
		t.Fatalf("creating logger: %v", err)
	}
	return log
}

func sampleEvent(t *testing.T) domain.Event {
	t.Helper()
	acc, err := domain.NewAccount(uuid.New(), "0001-7", decimal.Zero)
	if err != nil {
		t.Fatalf("NewAccount: %v", err)
	}
	return acc.PendingEvents()[0]
}

func TestWebhookSinkSignsAndPosts(t *testing.T) {
	t.Parallel()
	const secret = "test-secret"

	var gotBody []byte
	var gotSig string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("reading body: %v", err)
		}
		gotBody = body
		gotSig = r.Header.Get("X-Ledger-Signature")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewWebhookSink(srv.URL, secret, time.Second, testLogger(t))
	ev := sampleEvent(t)
	if err := sink.Send(context.Background(), ev); err != nil {
		t.Fatalf("Send: %v", err)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(gotBody)
	want := hex.EncodeToString(mac.Sum(nil))
	if gotSig != want {
		t.Fatalf("signature mismatch: got=%s want=%s", gotSig, want)
	}

	decoded, err := domain.DecodeEvent(string(ev.Type), gotBody)
	if err != nil {
		t.Fatalf("posted body is not a valid event: %v", err)
	}
	if decoded.EventID != ev.EventID {
		t.Fatalf("event id mismatch: got=%s want=%s", decoded.EventID, ev.EventID)
	}
}

func TestWebhookSinkNonSuccessStatusIsError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sink := NewWebhookSink(srv.URL, "s", time.Second, testLogger(t))
	if err := sink.Send(context.Background(), sampleEvent(t)); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestWebhookSinkUnreachableConsumer(t *testing.T) {
	t.Parallel()
	sink := NewWebhookSink("http://127.0.0.1:1", "s", 200*time.Millisecond, testLogger(t))
	if err := sink.Send(context.Background(), sampleEvent(t)); err == nil {
		t.Fatal("expected error for unreachable consumer")
	}
}

func TestLogSinkAlwaysSucceeds(t *testing.T) {
	t.Parallel()
	sink := NewLogSink(testLogger(t))
	if err := sink.Send(context.Background(), sampleEvent(t)); err != nil {
		t.Fatalf("Send: %v", err)
	}
}
