package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventAccountCreated      EventType = "account.created"
	EventAccountBlocked      EventType = "account.blocked"
	EventAccountUnblocked    EventType = "account.unblocked"
	EventTransactionCreated  EventType = "transaction.created"
	EventBalanceChanged      EventType = "balance.changed"
	EventCustomerCreated     EventType = "customer.created"
	EventCustomerDeactivated EventType = "customer.deactivated"
)

// ErrUnknownEventType marks an outbox payload whose type tag is not part of
// the closed event union. Messages carrying it are permanently failed rather
// than retried.
var ErrUnknownEventType = errors.New("unknown event type")

// Event is the envelope every domain fact travels in. Data holds exactly one
// of the payload structs below, selected by Type.
type Event struct {
	EventID    uuid.UUID `json:"event_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Type       EventType `json:"event_type"`
	Data       any       `json:"data"`
}

func newEvent(t EventType, data any) Event {
	return Event{
		EventID:    uuid.New(),
		OccurredAt: time.Now().UTC(),
		Type:       t,
		Data:       data,
	}
}

type AccountCreated struct {
	AccountID   uuid.UUID       `json:"account_id"`
	CustomerID  uuid.UUID       `json:"customer_id"`
	Number      string          `json:"number"`
	CreditLimit decimal.Decimal `json:"credit_limit"`
}

type AccountBlocked struct {
	AccountID      uuid.UUID     `json:"account_id"`
	Number         string        `json:"number"`
	Reason         string        `json:"reason"`
	PreviousStatus AccountStatus `json:"previous_status"`
}

type AccountUnblocked struct {
	AccountID uuid.UUID `json:"account_id"`
	Number    string    `json:"number"`
}

type TransactionCreated struct {
	TransactionID       uuid.UUID       `json:"transaction_id"`
	AccountID           uuid.UUID       `json:"account_id"`
	Kind                TransactionKind `json:"kind"`
	Amount              decimal.Decimal `json:"amount"`
	Description         string          `json:"description"`
	IdempotencyKey      uuid.UUID       `json:"idempotency_key"`
	OriginTransactionID *uuid.UUID      `json:"origin_transaction_id,omitempty"`
}

type BalanceChanged struct {
	AccountID         uuid.UUID       `json:"account_id"`
	PreviousAvailable decimal.Decimal `json:"previous_available"`
	CurrentAvailable  decimal.Decimal `json:"current_available"`
	PreviousReserved  decimal.Decimal `json:"previous_reserved"`
	CurrentReserved   decimal.Decimal `json:"current_reserved"`
	Delta             decimal.Decimal `json:"delta"`
}

type CustomerCreated struct {
	CustomerID uuid.UUID `json:"customer_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Document   string    `json:"document"`
}

type CustomerDeactivated struct {
	CustomerID uuid.UUID `json:"customer_id"`
	Reason     string    `json:"reason"`
}

func newBalanceChanged(accountID uuid.UUID, prevAvailable, currAvailable, prevReserved, currReserved decimal.Decimal) BalanceChanged {
	return BalanceChanged{
		AccountID:         accountID,
		PreviousAvailable: prevAvailable,
		CurrentAvailable:  currAvailable,
		PreviousReserved:  prevReserved,
		CurrentReserved:   currReserved,
		Delta:             currAvailable.Add(currReserved).Sub(prevAvailable.Add(prevReserved)),
	}
}

// EventCarrier is implemented by aggregates that buffer domain events until
// the unit of work drains them into the outbox.
type EventCarrier interface {
	PendingEvents() []Event
	ClearEvents()
}

// EncodeEvent serializes the full envelope for outbox storage.
func EncodeEvent(ev Event) ([]byte, error) {
	return json.Marshal(ev)
}

// DecodeEvent reconstructs an Event from an outbox row. The type tag is
// switched over the closed union; anything else fails with
// ErrUnknownEventType so the dispatcher can poison the message instead of
// guessing.
func DecodeEvent(eventType string, payload []byte) (Event, error) {
	var raw struct {
		EventID    uuid.UUID       `json:"event_id"`
		OccurredAt time.Time       `json:"occurred_at"`
		Type       EventType       `json:"event_type"`
		Data       json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Event{}, fmt.Errorf("decode event envelope: %w", err)
	}

	ev := Event{
		EventID:    raw.EventID,
		OccurredAt: raw.OccurredAt,
		Type:       EventType(eventType),
	}

	switch EventType(eventType) {
	case EventAccountCreated:
		var d AccountCreated
		if err := json.Unmarshal(raw.Data, &d); err != nil {
			return Event{}, fmt.Errorf("decode %s payload: %w", eventType, err)
		}
		ev.Data = d
	case EventAccountBlocked:
		var d AccountBlocked
		if err := json.Unmarshal(raw.Data, &d); err != nil {
			return Event{}, fmt.Errorf("decode %s payload: %w", eventType, err)
		}
		ev.Data = d
	case EventAccountUnblocked:
		var d AccountUnblocked
		if err := json.Unmarshal(raw.Data, &d); err != nil {
			return Event{}, fmt.Errorf("decode %s payload: %w", eventType, err)
		}
		ev.Data = d
	case EventTransactionCreated:
		var d TransactionCreated
		if err := json.Unmarshal(raw.Data, &d); err != nil {
			return Event{}, fmt.Errorf("decode %s payload: %w", eventType, err)
		}
		ev.Data = d
	case EventBalanceChanged:
		var d BalanceChanged
		if err := json.Unmarshal(raw.Data, &d); err != nil {
			return Event{}, fmt.Errorf("decode %s payload: %w", eventType, err)
		}
		ev.Data = d
	case EventCustomerCreated:
		var d CustomerCreated
		if err := json.Unmarshal(raw.Data, &d); err != nil {
			return Event{}, fmt.Errorf("decode %s payload: %w", eventType, err)
		}
		ev.Data = d
	case EventCustomerDeactivated:
		var d CustomerDeactivated
		if err := json.Unmarshal(raw.Data, &d); err != nil {
			return Event{}, fmt.Errorf("decode %s payload: %w", eventType, err)
		}
		ev.Data = d
	default:
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownEventType, eventType)
	}

	return ev, nil
}
