package models

import (
	"regexp"
	"strings"

	"github.com/dmitrijs2005/cardvault/internal/common"
)

// FieldError describes why one field was rejected. Message never contains
// the rejected value.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists every failing field so a caller can show all of
// them at once. It matches common.ErrValidation with errors.Is.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return common.ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == common.ErrValidation
}

// Has reports whether field is among the failures.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

func (e *ValidationError) add(field, msg string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: msg})
}

// errOrNil returns e as an error only when it carries failures.
func (e *ValidationError) errOrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Field names used in FieldError.
const (
	FieldName        = "name"
	FieldNumber      = "number"
	FieldExpiryMonth = "expiryMonth"
	FieldExpiryYear  = "expiryYear"
	FieldCVV         = "cvv"
	FieldType        = "type"
	FieldColor       = "color"
	FieldLastFour    = "lastFour"
)

const (
	minNumberLen = 12
	maxNumberLen = 19
)

var (
	monthRe = regexp.MustCompile(`^(0[1-9]|1[0-2])$`)
	yearRe  = regexp.MustCompile(`^[0-9]{2}$`)
	cvvRe   = regexp.MustCompile(`^[0-9]{3,4}$`)
	colorRe = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
)

// Validator checks card input. RequireLuhn adds a Luhn checksum test to the
// number rules; loyalty and membership numbers often fail it, so it is off
// unless configured.
type Validator struct {
	RequireLuhn bool
}

// NewCard validates input for Create and returns a *ValidationError listing
// every failing field, or nil.
func (v Validator) NewCard(c NewCard) error {
	e := &ValidationError{}
	v.common(e, c.Name, c.Number, c.ExpiryMonth, c.ExpiryYear, c.Type, c.Color)
	if !cvvRe.MatchString(c.CVV) {
		e.add(FieldCVV, "must be 3 or 4 digits")
	}
	return e.errOrNil()
}

// RestoredCard validates a decrypted record coming from a backup. The CVV
// is optional there, and LastFour must agree with the number.
func (v Validator) RestoredCard(c Card) error {
	e := &ValidationError{}
	v.common(e, c.Name, c.Number, c.ExpiryMonth, c.ExpiryYear, c.Type, c.Color)
	if c.CVV != "" && !cvvRe.MatchString(c.CVV) {
		e.add(FieldCVV, "must be 3 or 4 digits")
	}
	if !e.Has(FieldNumber) && c.LastFour != LastFour(c.Number) {
		e.add(FieldLastFour, "does not match number")
	}
	return e.errOrNil()
}

func (v Validator) common(e *ValidationError, name, number, month, year string, t CardType, color string) {
	if strings.TrimSpace(name) == "" {
		e.add(FieldName, "must not be empty")
	}

	switch {
	case !isDigits(number):
		e.add(FieldNumber, "must contain digits only")
	case len(number) < minNumberLen || len(number) > maxNumberLen:
		e.add(FieldNumber, "must be 12 to 19 digits long")
	case v.RequireLuhn && !Luhn(number):
		e.add(FieldNumber, "fails checksum")
	}

	if !monthRe.MatchString(month) {
		e.add(FieldExpiryMonth, "must be a two-digit month 01-12")
	}
	if !yearRe.MatchString(year) {
		e.add(FieldExpiryYear, "must be a two-digit year")
	}
	if !t.Valid() {
		e.add(FieldType, "must be one of credit, debit, loyalty, membership")
	}
	if color != "" && !colorRe.MatchString(color) {
		e.add(FieldColor, "must be #RRGGBB")
	}
}

// LastFour returns the last four characters of number, or number itself
// when it is shorter.
func LastFour(number string) string {
	if len(number) <= 4 {
		return number
	}
	return number[len(number)-4:]
}

// Luhn reports whether a digit string passes the Luhn (mod 10) checksum.
func Luhn(number string) bool {
	if number == "" || !isDigits(number) {
		return false
	}
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		d := int(number[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
