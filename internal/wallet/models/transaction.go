package models

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionNFC    TransactionType = "nfc"
	TransactionQR     TransactionType = "qr"
	TransactionManual TransactionType = "manual"
)

type TransactionStatus string

const (
	StatusCompleted TransactionStatus = "completed"
	StatusPending   TransactionStatus = "pending"
	StatusFailed    TransactionStatus = "failed"
)

// DefaultCurrency is applied when a transaction is recorded without one.
const DefaultCurrency = "USD"

// NewTransaction holds the caller-supplied fields for a simulated payment.
type NewTransaction struct {
	CardID   string
	Amount   decimal.Decimal
	Currency string
	Merchant string
	Type     TransactionType
	Status   TransactionStatus
}

// Transaction is a stored payment entry for a card.
type Transaction struct {
	ID        string
	CardID    string
	Amount    decimal.Decimal
	Currency  string
	Merchant  string
	Type      TransactionType
	Status    TransactionStatus
	CreatedAt time.Time
}

var currencyRe = regexp.MustCompile(`^[A-Z]{3}$`)

// Normalize fills defaults for currency and status.
func (t NewTransaction) Normalize() NewTransaction {
	t.Currency = strings.TrimSpace(t.Currency)
	if t.Currency == "" {
		t.Currency = DefaultCurrency
	}
	if t.Status == "" {
		t.Status = StatusCompleted
	}
	t.Merchant = strings.TrimSpace(t.Merchant)
	return t
}

// Validate checks a normalized transaction.
func (t NewTransaction) Validate() error {
	e := &ValidationError{}
	if t.CardID == "" {
		e.add("cardId", "must not be empty")
	}
	if !t.Amount.IsPositive() {
		e.add("amount", "must be positive")
	}
	if !currencyRe.MatchString(t.Currency) {
		e.add("currency", "must be three upper-case letters")
	}
	switch t.Type {
	case TransactionNFC, TransactionQR, TransactionManual:
	default:
		e.add("type", "must be one of nfc, qr, manual")
	}
	switch t.Status {
	case StatusCompleted, StatusPending, StatusFailed:
	default:
		e.add("status", "must be one of completed, pending, failed")
	}
	return e.errOrNil()
}
