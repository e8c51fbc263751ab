package services

import (
	"fmt"

	"github.com/dmitrijs2005/cardvault/internal/common"
	"github.com/dmitrijs2005/cardvault/internal/cryptox"
	"github.com/dmitrijs2005/cardvault/internal/wallet/models"
)

// fieldAAD binds a ciphertext to its record and column.
func fieldAAD(id, field string) []byte {
	return []byte(id + "|" + field)
}

// sealCard builds the stored row for c. The CVV is sealed only when
// retainCVV is set and c carries one.
func sealCard(key []byte, c *models.Card, retainCVV bool) (*models.CardRow, error) {
	number, err := cryptox.Seal(key, []byte(c.Number), fieldAAD(c.ID, models.FieldNumber))
	if err != nil {
		return nil, fmt.Errorf("seal card %s: %w", c.ID, err)
	}

	var cvv []byte
	if retainCVV && c.CVV != "" {
		cvv, err = cryptox.Seal(key, []byte(c.CVV), fieldAAD(c.ID, models.FieldCVV))
		if err != nil {
			return nil, fmt.Errorf("seal card %s: %w", c.ID, err)
		}
	}

	return &models.CardRow{
		ID:          c.ID,
		Name:        c.Name,
		Number:      number,
		ExpiryMonth: c.ExpiryMonth,
		ExpiryYear:  c.ExpiryYear,
		CVV:         cvv,
		Type:        c.Type,
		Category:    c.Category,
		Color:       c.Color,
		LastFour:    c.LastFour,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}, nil
}

// openCard decrypts a stored row. Any authentication failure is reported as
// common.ErrIntegrity naming only the record id.
func openCard(key []byte, row *models.CardRow) (*models.Card, error) {
	number, err := cryptox.Open(key, row.Number, fieldAAD(row.ID, models.FieldNumber))
	if err != nil {
		return nil, fmt.Errorf("card %s: number: %w", row.ID, common.ErrIntegrity)
	}

	var cvv []byte
	if len(row.CVV) > 0 {
		cvv, err = cryptox.Open(key, row.CVV, fieldAAD(row.ID, models.FieldCVV))
		if err != nil {
			return nil, fmt.Errorf("card %s: cvv: %w", row.ID, common.ErrIntegrity)
		}
	}

	return &models.Card{
		ID:          row.ID,
		Name:        row.Name,
		Number:      string(number),
		ExpiryMonth: row.ExpiryMonth,
		ExpiryYear:  row.ExpiryYear,
		CVV:         string(cvv),
		Type:        row.Type,
		Category:    row.Category,
		Color:       row.Color,
		LastFour:    row.LastFour,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}, nil
}
