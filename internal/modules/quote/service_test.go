package quote

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"parcel/internal/config"
	"parcel/internal/modules/pricing"
	"parcel/internal/types"
)

type fakeGeocoder struct {
	points map[string]types.Point
	err    error
	calls  atomic.Int32
}

func (f *fakeGeocoder) Geocode(ctx context.Context, place string) (types.Point, error) {
	f.calls.Add(1)
	if f.err != nil {
		return types.Point{}, f.err
	}
	p, ok := f.points[place]
	if !ok {
		return types.Point{}, fmt.Errorf("%w: %q", ErrLocationNotFound, place)
	}
	return p, nil
}

type fakeRouter struct {
	km    float64
	err   error
	calls atomic.Int32
}

func (f *fakeRouter) RoadDistanceKm(ctx context.Context, from, to types.Point) (float64, error) {
	f.calls.Add(1)
	return f.km, f.err
}

var (
	delhi  = types.Point{Lat: 28.6139, Lng: 77.209}
	mumbai = types.Point{Lat: 19.076, Lng: 72.8777}
)

func newTestService(geo Geocoder, router Router, opts Options) (*Service, *MemoryStore) {
	store := NewMemoryStore(time.Hour)
	pricer := pricing.NewService(config.PricingConfig{BaseFare: 50, PerKm: 8, PerKg: 15, Currency: "INR"})
	return NewService(geo, router, pricer, store, opts, nil, nil), store
}

func knownPlaces() *fakeGeocoder {
	return &fakeGeocoder{points: map[string]types.Point{"Delhi": delhi, "Mumbai": mumbai}}
}

func TestResolveSuccess(t *testing.T) {
	svc, store := newTestService(knownPlaces(), &fakeRouter{km: 1415.2346}, Options{})

	got, err := svc.Resolve(context.Background(), "s1", Request{Source: " Delhi ", Destination: "Mumbai", WeightKg: 2})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Distance != 1415.23 {
		t.Errorf("expected distance 1415.23, got %v", got.Distance)
	}
	// 50 + ceil(8*1415.2346 + 15*2) = 50 + ceil(11351.8768) = 11402
	if got.Amount != 11402 || got.Currency != "INR" {
		t.Errorf("unexpected price %+v", got.Price())
	}
	if got.Source != "Delhi" || got.Destination != "Mumbai" || got.Weight != 2 {
		t.Errorf("unexpected echo fields %+v", got)
	}

	last, ok, err := store.Last(context.Background(), "s1")
	if err != nil || !ok {
		t.Fatalf("expected stored last order, ok=%v err=%v", ok, err)
	}
	if last != got {
		t.Errorf("stored %+v, returned %+v", last, got)
	}
}

func TestResolveInvalidRequest(t *testing.T) {
	cases := []Request{
		{Source: "", Destination: "Mumbai", WeightKg: 1},
		{Source: "Delhi", Destination: "   ", WeightKg: 1},
		{Source: "Delhi", Destination: "Mumbai", WeightKg: 0},
		{Source: "Delhi", Destination: "Mumbai", WeightKg: -3},
	}
	for _, req := range cases {
		geo := knownPlaces()
		router := &fakeRouter{km: 10}
		svc, store := newTestService(geo, router, Options{})

		_, err := svc.Resolve(context.Background(), "s1", req)
		if !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("%+v: expected ErrInvalidRequest, got %v", req, err)
		}
		if geo.calls.Load() != 0 || router.calls.Load() != 0 {
			t.Fatalf("%+v: providers must not be called", req)
		}
		if _, ok, _ := store.Last(context.Background(), "s1"); ok {
			t.Fatalf("%+v: slot must stay empty", req)
		}
	}
}

func TestResolveFailureKeepsPreviousOrder(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		router  *fakeRouter
		wantErr error
	}{
		{
			name:    "unknown source",
			req:     Request{Source: "Atlantis", Destination: "Mumbai", WeightKg: 1},
			router:  &fakeRouter{km: 10},
			wantErr: ErrLocationNotFound,
		},
		{
			name:    "no route",
			req:     Request{Source: "Delhi", Destination: "Mumbai", WeightKg: 1},
			router:  &fakeRouter{err: fmt.Errorf("%w: osrm NoRoute", ErrRouteNotFound)},
			wantErr: ErrRouteNotFound,
		},
		{
			name:    "router transport failure",
			req:     Request{Source: "Delhi", Destination: "Mumbai", WeightKg: 1},
			router:  &fakeRouter{err: errors.New("dial tcp: connection refused")},
			wantErr: ErrProviderUnavailable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTestService(knownPlaces(), tt.router, Options{})
			previous := OrderResult{Source: "A", Destination: "B", Distance: 1, Weight: 1, Amount: 73, Currency: "INR"}
			_ = store.Save(context.Background(), "s1", previous)

			got, err := svc.Resolve(context.Background(), "s1", tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if got != (OrderResult{}) {
				t.Fatalf("expected no partial result, got %+v", got)
			}
			last, _, _ := store.Last(context.Background(), "s1")
			if last != previous {
				t.Fatalf("slot changed on failure: %+v", last)
			}
		})
	}
}

func TestResolveSessionsAreIsolated(t *testing.T) {
	svc, store := newTestService(knownPlaces(), &fakeRouter{km: 5}, Options{})
	if _, err := svc.Resolve(context.Background(), "alice", Request{Source: "Delhi", Destination: "Mumbai", WeightKg: 1}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if _, ok, _ := store.Last(context.Background(), "bob"); ok {
		t.Fatal("bob must not see alice's order")
	}
}

type barrierGeocoder struct {
	wg sync.WaitGroup
}

func (b *barrierGeocoder) Geocode(ctx context.Context, place string) (types.Point, error) {
	b.wg.Done()
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return types.Point{Lat: 1, Lng: 1}, nil
	case <-ctx.Done():
		return types.Point{}, ctx.Err()
	}
}

func TestResolveGeocodesConcurrently(t *testing.T) {
	geo := &barrierGeocoder{}
	geo.wg.Add(2)
	svc, _ := newTestService(geo, &fakeRouter{km: 1}, Options{GeocodeTimeout: time.Second})

	if _, err := svc.Resolve(context.Background(), "s1", Request{Source: "Delhi", Destination: "Mumbai", WeightKg: 1}); err != nil {
		t.Fatalf("both lookups should be in flight together: %v", err)
	}
}

type slowGeocoder struct{}

func (slowGeocoder) Geocode(ctx context.Context, place string) (types.Point, error) {
	<-ctx.Done()
	return types.Point{}, ctx.Err()
}

func TestResolveGeocodeTimeout(t *testing.T) {
	svc, _ := newTestService(slowGeocoder{}, &fakeRouter{km: 1}, Options{GeocodeTimeout: 20 * time.Millisecond})

	_, err := svc.Resolve(context.Background(), "s1", Request{Source: "Delhi", Destination: "Mumbai", WeightKg: 1})
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable on timeout, got %v", err)
	}
}

func TestResolveBreakerOpensOnProviderFailures(t *testing.T) {
	router := &fakeRouter{err: errors.New("503")}
	svc, _ := newTestService(knownPlaces(), router, Options{})
	req := Request{Source: "Delhi", Destination: "Mumbai", WeightKg: 1}

	for i := 0; i < 5; i++ {
		_, _ = svc.Resolve(context.Background(), "s1", req)
	}
	calls := router.calls.Load()

	_, err := svc.Resolve(context.Background(), "s1", req)
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
	if router.calls.Load() != calls {
		t.Fatal("open breaker must not reach the router")
	}
}

func TestResolveNotFoundDoesNotTripBreaker(t *testing.T) {
	geo := knownPlaces()
	svc, _ := newTestService(geo, &fakeRouter{km: 3}, Options{})

	for i := 0; i < 10; i++ {
		_, err := svc.Resolve(context.Background(), "s1", Request{Source: "Atlantis", Destination: "Mumbai", WeightKg: 1})
		if !errors.Is(err, ErrLocationNotFound) && !errors.Is(err, ErrProviderUnavailable) {
			t.Fatalf("unexpected error %v", err)
		}
	}
	if _, err := svc.Resolve(context.Background(), "s1", Request{Source: "Delhi", Destination: "Mumbai", WeightKg: 1}); err != nil {
		t.Fatalf("geocoder breaker should still be closed: %v", err)
	}
}

// hangingGeocoder resolves known places and blocks on "Slow" until its
// context is cancelled.
type hangingGeocoder struct {
	*fakeGeocoder
}

func (h hangingGeocoder) Geocode(ctx context.Context, place string) (types.Point, error) {
	if place == "Slow" {
		<-ctx.Done()
		return types.Point{}, fmt.Errorf("nominatim: %w", ctx.Err())
	}
	return h.fakeGeocoder.Geocode(ctx, place)
}

func TestResolveCancellationDoesNotTripBreakers(t *testing.T) {
	geo := knownPlaces()
	router := &fakeRouter{km: 12}
	svc, _ := newTestService(hangingGeocoder{geo}, router, Options{GeocodeTimeout: 5 * time.Second})
	req := Request{Source: "Delhi", Destination: "Mumbai", WeightKg: 1}

	gone, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 5; i++ {
		if _, err := svc.Resolve(gone, "closed-tab", req); err == nil {
			t.Fatal("expected an error for a cancelled caller")
		}
	}

	// A not-found source cancels the in-flight lookup of its sibling.
	for i := 0; i < 5; i++ {
		_, err := svc.Resolve(context.Background(), "s1", Request{Source: "Atlantis", Destination: "Slow", WeightKg: 1})
		if !errors.Is(err, ErrLocationNotFound) {
			t.Fatalf("expected ErrLocationNotFound, got %v", err)
		}
	}

	got, err := svc.Resolve(context.Background(), "s2", req)
	if err != nil {
		t.Fatalf("healthy session should not see an open breaker: %v", err)
	}
	if got.Distance != 12 {
		t.Fatalf("unexpected result %+v", got)
	}
}
