// README: Quote request/result types and the pipeline's error kinds.
package quote

import (
	"errors"
	"strings"

	"parcel/internal/maps"
	"parcel/internal/types"
)

var (
	ErrInvalidRequest = errors.New("missing parcel data")

	ErrLocationNotFound    = maps.ErrLocationNotFound
	ErrRouteNotFound       = maps.ErrRouteNotFound
	ErrProviderUnavailable = maps.ErrProviderUnavailable
)

// Request is the completed intake record as the pipeline needs it.
type Request struct {
	Source      string
	Destination string
	WeightKg    float64
}

func (r Request) validate() error {
	if strings.TrimSpace(r.Source) == "" || strings.TrimSpace(r.Destination) == "" {
		return ErrInvalidRequest
	}
	if !(r.WeightKg > 0) {
		return ErrInvalidRequest
	}
	return nil
}

// OrderResult is the priced quote sent back to the client and kept as
// context for follow-up questions.
type OrderResult struct {
	Source      string           `json:"source"`
	Destination string           `json:"destination"`
	Distance    types.Kilometers `json:"distance"`
	Weight      float64          `json:"weight"`
	Amount      int64            `json:"amount"`
	Currency    string           `json:"currency"`
}

func (o OrderResult) Price() types.Money {
	return types.Money{Amount: o.Amount, Currency: o.Currency}
}
