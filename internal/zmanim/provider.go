package zmanim

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Provider resolves the zmanim of a date through a fixed-priority list of
// backends and memoizes results per calendar date.
type Provider struct {
	loc      Location
	backends []Backend
	cache    *Cache[Result]
	log      *slog.Logger
}

// NewProvider probes every backend once, in order, and keeps the available
// ones. The backend list is never re-probed afterwards.
func NewProvider(ctx context.Context, loc Location, backends []Backend, cache *Cache[Result], logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	if cache == nil {
		cache = NewCache[Result](MinCacheSize)
	}
	log := logger.With("component", "zmanim_provider")

	var available []Backend
	for _, b := range backends {
		if err := b.Available(ctx); err != nil {
			log.WarnContext(ctx, "Zmanim backend unavailable", "backend", b.Name(), "error", err)
			continue
		}
		available = append(available, b)
	}
	if len(available) == 0 {
		log.ErrorContext(ctx, "No zmanim backend available")
	} else {
		log.InfoContext(ctx, "Zmanim backend selected", "backend", available[0].Name(), "fallbacks", len(available)-1)
	}

	return &Provider{loc: loc, backends: available, cache: cache, log: log}
}

// Location returns the location the provider computes for.
func (p *Provider) Location() Location { return p.loc }

// Backends returns the names of the available backends in priority order.
func (p *Provider) Backends() []string {
	names := make([]string, len(p.backends))
	for i, b := range p.backends {
		names[i] = b.Name()
	}
	return names
}

// Compute returns the zmanim of day's calendar date in the provider location.
// A polar day fails with ErrSunNeverRisesOrSets from the first backend that
// reports it. Other backend failures fall through to the next backend; when
// none succeeds the error wraps ErrUnavailable.
func (p *Provider) Compute(ctx context.Context, day time.Time) (Result, error) {
	day = p.loc.Day(day)
	key := day.Format(time.DateOnly)

	if r, ok := p.cache.Get(key); ok {
		return r, nil
	}

	var errs []error
	for _, b := range p.backends {
		r, err := b.Compute(ctx, p.loc, day)
		if err == nil {
			p.cache.Add(key, r)
			return r, nil
		}
		if errors.Is(err, ErrSunNeverRisesOrSets) {
			return Result{}, err
		}
		p.log.WarnContext(ctx, "Zmanim backend failed, trying next", "backend", b.Name(), "date", key, "error", err)
		errs = append(errs, err)
	}

	return Result{}, errors.Join(append([]error{ErrUnavailable}, errs...)...)
}

// BuildBackends builds the configured backend list by name. Unknown names are
// reported as an error.
func BuildBackends(names []string, hebcalAPI HebcalAPI, loc Location) ([]Backend, error) {
	out := make([]Backend, 0, len(names))
	for _, name := range names {
		switch name {
		case BackendHebcal:
			out = append(out, HebcalBackend{API: hebcalAPI, Loc: loc})
		case BackendSunrise:
			out = append(out, SunriseBackend{})
		case BackendNOAA:
			out = append(out, NOAABackend{})
		default:
			return nil, errors.New("unknown zmanim backend: " + name)
		}
	}
	return out, nil
}
