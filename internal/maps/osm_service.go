package maps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"parcel/internal/types"
)

// OSMService geocodes with Nominatim and routes with OSRM.
type OSMService struct {
	httpClient   *http.Client
	nominatimURL string
	osrmURL      string
	userAgent    string
}

// NewOSMService creates an OSMService. Nominatim's usage policy requires a
// descriptive User-Agent.
func NewOSMService(nominatimURL, osrmURL, userAgent string) *OSMService {
	return &OSMService{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		nominatimURL: strings.TrimRight(nominatimURL, "/"),
		osrmURL:      strings.TrimRight(osrmURL, "/"),
		userAgent:    userAgent,
	}
}

type nominatimPlace struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64 `json:"distance"`
	} `json:"routes"`
}

// Geocode returns the coordinates of the first Nominatim match for place.
func (s *OSMService) Geocode(ctx context.Context, place string) (types.Point, error) {
	q := url.Values{}
	q.Set("q", place)
	q.Set("format", "json")
	q.Set("limit", "1")

	body, status, err := s.get(ctx, s.nominatimURL+"/search?"+q.Encode())
	if err != nil {
		return types.Point{}, fmt.Errorf("%w: nominatim: %v", ErrProviderUnavailable, err)
	}
	if status != http.StatusOK {
		return types.Point{}, fmt.Errorf("%w: nominatim: status %d", ErrProviderUnavailable, status)
	}

	var places []nominatimPlace
	if err := json.Unmarshal(body, &places); err != nil {
		return types.Point{}, fmt.Errorf("%w: nominatim: decode response: %v", ErrProviderUnavailable, err)
	}
	if len(places) == 0 {
		return types.Point{}, fmt.Errorf("%w: %q", ErrLocationNotFound, place)
	}

	lat, latErr := strconv.ParseFloat(places[0].Lat, 64)
	lng, lngErr := strconv.ParseFloat(places[0].Lon, 64)
	if latErr != nil || lngErr != nil {
		return types.Point{}, fmt.Errorf("%w: nominatim: bad coordinates %q,%q", ErrProviderUnavailable, places[0].Lat, places[0].Lon)
	}
	return types.Point{Lat: lat, Lng: lng}, nil
}

// RoadDistanceKm returns the OSRM driving distance of the first route.
func (s *OSMService) RoadDistanceKm(ctx context.Context, from, to types.Point) (float64, error) {
	endpoint := fmt.Sprintf("%s/route/v1/driving/%s,%s;%s,%s?overview=false",
		s.osrmURL,
		formatCoord(from.Lng), formatCoord(from.Lat),
		formatCoord(to.Lng), formatCoord(to.Lat),
	)

	body, status, err := s.get(ctx, endpoint)
	if err != nil {
		return 0, fmt.Errorf("%w: osrm: %v", ErrProviderUnavailable, err)
	}

	var resp osrmResponse
	decodeErr := json.Unmarshal(body, &resp)
	// OSRM answers unroutable pairs with a 400 and a NoRoute/NoSegment code.
	if decodeErr == nil && (resp.Code == "NoRoute" || resp.Code == "NoSegment") {
		return 0, ErrRouteNotFound
	}
	if status != http.StatusOK {
		return 0, fmt.Errorf("%w: osrm: status %d", ErrProviderUnavailable, status)
	}
	if decodeErr != nil {
		return 0, fmt.Errorf("%w: osrm: decode response: %v", ErrProviderUnavailable, decodeErr)
	}
	if len(resp.Routes) == 0 {
		return 0, ErrRouteNotFound
	}
	return resp.Routes[0].Distance / 1000, nil
}

func (s *OSMService) get(ctx context.Context, endpoint string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
