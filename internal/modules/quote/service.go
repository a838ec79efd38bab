// README: Quote pipeline: geocode both ends, measure the road, price it, remember it per session.
package quote

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"parcel/internal/infra"
	"parcel/internal/types"
)

type Geocoder interface {
	Geocode(ctx context.Context, place string) (types.Point, error)
}

type Router interface {
	RoadDistanceKm(ctx context.Context, from, to types.Point) (float64, error)
}

type Pricer interface {
	Estimate(distanceKm, weightKg float64) types.Money
}

// Store keeps the last successful quote of each session.
type Store interface {
	Save(ctx context.Context, sessionID string, result OrderResult) error
	Last(ctx context.Context, sessionID string) (OrderResult, bool, error)
}

type Options struct {
	GeocodeTimeout time.Duration
	RouteTimeout   time.Duration
}

type Service struct {
	geocoder Geocoder
	router   Router
	pricer   Pricer
	store    Store
	opts     Options

	geocodeBreaker *gobreaker.CircuitBreaker
	routeBreaker   *gobreaker.CircuitBreaker

	logger  *zap.Logger
	metrics *infra.Metrics
}

func NewService(geocoder Geocoder, router Router, pricer Pricer, store Store, opts Options, logger *zap.Logger, metrics *infra.Metrics) *Service {
	if opts.GeocodeTimeout <= 0 {
		opts.GeocodeTimeout = 5 * time.Second
	}
	if opts.RouteTimeout <= 0 {
		opts.RouteTimeout = 8 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		geocoder:       geocoder,
		router:         router,
		pricer:         pricer,
		store:          store,
		opts:           opts,
		geocodeBreaker: infra.NewCircuitBreaker("geocoder", answered),
		routeBreaker:   infra.NewCircuitBreaker("router", answered),
		logger:         logger,
		metrics:        metrics,
	}
}

// answered treats "nothing there" replies as healthy provider responses.
func answered(err error) bool {
	return err == nil || errors.Is(err, ErrLocationNotFound) || errors.Is(err, ErrRouteNotFound)
}

// Resolve runs geocode → route → price for one completed intake record.
// On success the result becomes the session's last order; on failure the
// previous last order is left as it was.
func (s *Service) Resolve(ctx context.Context, sessionID string, req Request) (OrderResult, error) {
	start := time.Now()
	result, err := s.resolve(ctx, req)
	s.metrics.ObservePipeline(outcome(err), time.Since(start))
	if err != nil {
		s.logger.Info("quote failed",
			zap.String("session", sessionID),
			zap.String("source", req.Source),
			zap.String("destination", req.Destination),
			zap.Error(err),
		)
		return OrderResult{}, err
	}

	if err := s.store.Save(ctx, sessionID, result); err != nil {
		s.logger.Error("save last order", zap.String("session", sessionID), zap.Error(err))
	}
	s.logger.Info("quote resolved",
		zap.String("session", sessionID),
		zap.String("distance_km", result.Distance.String()),
		zap.Int64("amount", result.Amount),
		zap.Duration("took", time.Since(start)),
	)
	return result, nil
}

// Last returns the session's most recent successful quote.
func (s *Service) Last(ctx context.Context, sessionID string) (OrderResult, bool, error) {
	return s.store.Last(ctx, sessionID)
}

func (s *Service) resolve(ctx context.Context, req Request) (OrderResult, error) {
	if err := req.validate(); err != nil {
		return OrderResult{}, err
	}
	source := strings.TrimSpace(req.Source)
	destination := strings.TrimSpace(req.Destination)

	var from, to types.Point
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		from, err = s.geocode(gctx, source)
		return err
	})
	g.Go(func() (err error) {
		to, err = s.geocode(gctx, destination)
		return err
	})
	if err := g.Wait(); err != nil {
		return OrderResult{}, err
	}

	km, err := s.route(ctx, from, to)
	if err != nil {
		return OrderResult{}, err
	}

	price := s.pricer.Estimate(km, req.WeightKg)
	return OrderResult{
		Source:      source,
		Destination: destination,
		Distance:    types.RoundKm(km),
		Weight:      req.WeightKg,
		Amount:      price.Amount,
		Currency:    price.Currency,
	}, nil
}

func (s *Service) geocode(ctx context.Context, place string) (types.Point, error) {
	if err := ctx.Err(); err != nil {
		return types.Point{}, providerError("geocode", err)
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.GeocodeTimeout)
	defer cancel()

	v, err := s.geocodeBreaker.Execute(func() (interface{}, error) {
		return s.geocoder.Geocode(ctx, place)
	})
	if err != nil {
		return types.Point{}, providerError("geocode", err)
	}
	return v.(types.Point), nil
}

func (s *Service) route(ctx context.Context, from, to types.Point) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, providerError("route", err)
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.RouteTimeout)
	defer cancel()

	v, err := s.routeBreaker.Execute(func() (interface{}, error) {
		return s.router.RoadDistanceKm(ctx, from, to)
	})
	if err != nil {
		return 0, providerError("route", err)
	}
	return v.(float64), nil
}

// providerError keeps the adapter's error kind and folds everything else
// (open breaker, deadline, unexpected errors) into ErrProviderUnavailable.
func providerError(call string, err error) error {
	switch {
	case errors.Is(err, ErrLocationNotFound),
		errors.Is(err, ErrRouteNotFound),
		errors.Is(err, ErrProviderUnavailable):
		return err
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return fmt.Errorf("%w: %s circuit open", ErrProviderUnavailable, call)
	default:
		return fmt.Errorf("%w: %s: %v", ErrProviderUnavailable, call, err)
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrLocationNotFound):
		return "location_not_found"
	case errors.Is(err, ErrRouteNotFound):
		return "route_not_found"
	default:
		return "provider_unavailable"
	}
}
