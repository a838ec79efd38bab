package maps

import (
	"context"
	"fmt"
	"strings"

	"googlemaps.github.io/maps"

	"parcel/internal/types"
)

// GoogleService geocodes places and measures road distance with the Google Maps APIs.
type GoogleService struct {
	client *maps.Client
}

// NewGoogleService creates a GoogleService with the given API Key. Extra
// client options (e.g. maps.WithBaseURL) are passed through.
func NewGoogleService(apiKey string, opts ...maps.ClientOption) (*GoogleService, error) {
	client, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &GoogleService{client: client}, nil
}

// Geocode returns the coordinates of the first match for place.
func (s *GoogleService) Geocode(ctx context.Context, place string) (types.Point, error) {
	results, err := s.client.Geocode(ctx, &maps.GeocodingRequest{
		Address: place,
	})
	if err != nil {
		if isZeroResults(err) {
			return types.Point{}, fmt.Errorf("%w: %q", ErrLocationNotFound, place)
		}
		return types.Point{}, fmt.Errorf("%w: geocoding api error: %v", ErrProviderUnavailable, err)
	}
	if len(results) == 0 {
		return types.Point{}, fmt.Errorf("%w: %q", ErrLocationNotFound, place)
	}

	loc := results[0].Geometry.Location
	return types.Point{Lat: loc.Lat, Lng: loc.Lng}, nil
}

// RoadDistanceKm returns the driving distance of the first route between two points.
func (s *GoogleService) RoadDistanceKm(ctx context.Context, from, to types.Point) (float64, error) {
	r := &maps.DirectionsRequest{
		Origin:      from.String(),
		Destination: to.String(),
		Mode:        maps.TravelModeDriving,
	}

	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		if isZeroResults(err) {
			return 0, ErrRouteNotFound
		}
		return 0, fmt.Errorf("%w: directions api error: %v", ErrProviderUnavailable, err)
	}

	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return 0, ErrRouteNotFound
	}

	meters := 0
	for _, leg := range routes[0].Legs {
		meters += leg.Distance.Meters
	}
	return float64(meters) / 1000, nil
}

// The client library reports ZERO_RESULTS / NOT_FOUND statuses as plain errors.
func isZeroResults(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "ZERO_RESULTS") || strings.Contains(msg, "NOT_FOUND")
}
