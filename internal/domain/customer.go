package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type DocumentKind string

const (
	DocumentCPF  DocumentKind = "cpf"
	DocumentCNPJ DocumentKind = "cnpj"
)

// NormalizeDocument strips non-digits and classifies the document by length.
// 11 digits is a CPF, 14 a CNPJ; anything else (or a same-digit run) is
// rejected.
func NormalizeDocument(raw string) (string, DocumentKind, error) {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	doc := digits.String()

	switch len(doc) {
	case 11:
		if sameDigits(doc) {
			return "", "", NewError(CodeInvalidOperation, "customer.document", "invalid document", nil)
		}
		return doc, DocumentCPF, nil
	case 14:
		if sameDigits(doc) {
			return "", "", NewError(CodeInvalidOperation, "customer.document", "invalid document", nil)
		}
		return doc, DocumentCNPJ, nil
	default:
		return "", "", NewError(CodeInvalidOperation, "customer.document", "invalid document", nil)
	}
}

func sameDigits(s string) bool {
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}

// Customer owns accounts. A deactivated customer keeps existing accounts but
// cannot open new ones.
type Customer struct {
	ID           uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string       `gorm:"not null" json:"name"`
	Document     string       `gorm:"not null;uniqueIndex" json:"document"`
	DocumentKind DocumentKind `gorm:"not null" json:"document_kind"`
	Email        string       `gorm:"not null" json:"email"`
	Active       bool         `gorm:"not null" json:"active"`
	Accounts     []Account    `gorm:"foreignKey:CustomerID" json:"accounts,omitempty"`
	CreatedAt    time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null" json:"updated_at"`

	events []Event `gorm:"-" json:"-"`
}

func (Customer) TableName() string {
	return "customers"
}

func NewCustomer(name, document, email string) (*Customer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewError(CodeInvalidOperation, "customer.new", "name is required", nil)
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, NewError(CodeInvalidOperation, "customer.new", "email is required", nil)
	}
	doc, kind, err := NormalizeDocument(document)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	c := &Customer{
		ID:           uuid.New(),
		Name:         name,
		Document:     doc,
		DocumentKind: kind,
		Email:        email,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	c.record(newEvent(EventCustomerCreated, CustomerCreated{
		CustomerID: c.ID,
		Name:       name,
		Email:      email,
		Document:   doc,
	}))
	return c, nil
}

func (c *Customer) Deactivate(reason string) {
	c.Active = false
	c.UpdatedAt = time.Now().UTC()

	c.record(newEvent(EventCustomerDeactivated, CustomerDeactivated{
		CustomerID: c.ID,
		Reason:     reason,
	}))
}

func (c *Customer) Activate() {
	c.Active = true
	c.UpdatedAt = time.Now().UTC()
}

func (c *Customer) record(ev Event) {
	c.events = append(c.events, ev)
}

func (c *Customer) PendingEvents() []Event {
	return c.events
}

func (c *Customer) ClearEvents() {
	c.events = nil
}
