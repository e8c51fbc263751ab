// Package models defines the card vault's records, their stored form, and
// input validation.
package models

import "time"

// CardType classifies a card.
type CardType string

const (
	CardTypeCredit     CardType = "credit"
	CardTypeDebit      CardType = "debit"
	CardTypeLoyalty    CardType = "loyalty"
	CardTypeMembership CardType = "membership"
)

// DefaultColor is used when a card is created without a color.
const DefaultColor = "#007AFF"

// Valid reports whether t is one of the known card types.
func (t CardType) Valid() bool {
	switch t {
	case CardTypeCredit, CardTypeDebit, CardTypeLoyalty, CardTypeMembership:
		return true
	}
	return false
}

// NewCard holds the caller-supplied fields for Create. ID, LastFour and
// timestamps are assigned by the store.
type NewCard struct {
	Name        string
	Number      string
	ExpiryMonth string
	ExpiryYear  string
	CVV         string
	Type        CardType
	Category    string
	Color       string
}

// Card is a decrypted card record. Number and CVV are plaintext and must not
// be logged; render MaskedNumber instead.
type Card struct {
	ID          string
	Name        string
	Number      string
	ExpiryMonth string
	ExpiryYear  string
	// CVV is empty when the vault is configured to discard it.
	CVV       string
	Type      CardType
	Category  string
	Color     string
	LastFour  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MaskedNumber is the display form of the number.
func (c Card) MaskedNumber() string {
	return "**** **** **** " + c.LastFour
}

// Expiry returns the expiry as MM/YY.
func (c Card) Expiry() string {
	return c.ExpiryMonth + "/" + c.ExpiryYear
}

// String never includes sensitive fields, so a Card accidentally passed to a
// formatter or logger does not leak them.
func (c Card) String() string {
	return c.ID + " " + c.Name + " " + c.MaskedNumber()
}

// GoString keeps %#v from printing the Number and CVV fields.
func (c Card) GoString() string {
	return "models.Card{ID:" + c.ID + "}"
}

// CardRow is the stored form of a card. Number and CVV hold AEAD
// ciphertexts; CVV is nil when not retained.
type CardRow struct {
	Seq         int64
	ID          string
	Name        string
	Number      []byte
	ExpiryMonth string
	ExpiryYear  string
	CVV         []byte
	Type        CardType
	Category    string
	Color       string
	LastFour    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
