package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestEventRoundTrip(t *testing.T) {
	t.Parallel()
	original := newEvent(EventBalanceChanged, newBalanceChanged(
		uuid.New(), dec("10.00"), dec("25.00"), dec("0"), dec("5.00"),
	))

	payload, err := EncodeEvent(original)
	if err != nil {
		t.Fatalf("EncodeEvent: %v", err)
	}
	decoded, err := DecodeEvent(string(original.Type), payload)
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}

	if decoded.EventID != original.EventID {
		t.Fatalf("event id mismatch: got=%s want=%s", decoded.EventID, original.EventID)
	}
	change, ok := decoded.Data.(BalanceChanged)
	if !ok {
		t.Fatalf("unexpected payload type %T", decoded.Data)
	}
	want := original.Data.(BalanceChanged)
	if !change.Delta.Equal(want.Delta) || !change.CurrentAvailable.Equal(want.CurrentAvailable) {
		t.Fatalf("payload mismatch: got=%+v want=%+v", change, want)
	}
}

func TestDecodeEventUnknownTag(t *testing.T) {
	t.Parallel()
	ev := newEvent(EventAccountCreated, AccountCreated{AccountID: uuid.New()})
	payload, err := EncodeEvent(ev)
	if err != nil {
		t.Fatalf("EncodeEvent: %v", err)
	}

	_, err = DecodeEvent("account.renamed", payload)
	if !errors.Is(err, ErrUnknownEventType) {
		t.Fatalf("expected ErrUnknownEventType, got %v", err)
	}
}

func TestDecodeEventGarbagePayload(t *testing.T) {
	t.Parallel()
	if _, err := DecodeEvent(string(EventAccountCreated), []byte("not json")); err == nil {
		t.Fatal("expected decode failure")
	}
}

func TestBalanceChangedDeltaCoversBothBuckets(t *testing.T) {
	t.Parallel()
	change := newBalanceChanged(uuid.New(), dec("100.00"), dec("70.00"), dec("0"), dec("30.00"))
	if !change.Delta.IsZero() {
		t.Fatalf("moving between buckets should net to zero: got=%s", change.Delta)
	}
}
