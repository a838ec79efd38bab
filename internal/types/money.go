// README: Common money value object used across modules.
package types

import "strconv"

type Money struct {
	Amount   int64
	Currency string
}

var currencySymbols = map[string]string{
	"INR": "₹",
	"USD": "$",
	"EUR": "€",
	"TWD": "NT$",
}

// String renders the amount the way the chat shows it, e.g. "₹120".
func (m Money) String() string {
	amount := strconv.FormatInt(m.Amount, 10)
	if sym, ok := currencySymbols[m.Currency]; ok {
		return sym + amount
	}
	if m.Currency == "" {
		return amount
	}
	return amount + " " + m.Currency
}
