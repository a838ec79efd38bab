// README: Parcel rate card.
package pricing

// Rate is a flat rate card in whole currency units. All fields are non-negative.
type Rate struct {
	BaseFare int64
	PerKm    int64
	PerKg    int64
	Currency string
}
