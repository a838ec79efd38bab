// README: Geographic value objects shared by the maps adapters and the quote pipeline.
package types

import (
	"math"
	"strconv"
)

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// String formats the point as "lat,lng", the form Google's APIs accept.
func (p Point) String() string {
	return strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lng, 'f', -1, 64)
}

// Kilometers is a distance kept at two-decimal precision on the wire.
type Kilometers float64

// RoundKm rounds a raw distance to two decimal places.
func RoundKm(km float64) Kilometers {
	return Kilometers(math.Round(km*100) / 100)
}

func (k Kilometers) String() string {
	return strconv.FormatFloat(float64(k), 'f', 2, 64)
}

// MarshalJSON keeps trailing zeros so "12.30" survives a round trip to the client.
func (k Kilometers) MarshalJSON() ([]byte, error) {
	return []byte(k.String()), nil
}
