package zmanim

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/nathan-osman/go-sunrise"
)

// Backend computes the zmanim of one date. Implementations are probed once at
// startup through Available; Compute is only called on available backends.
type Backend interface {
	Name() string
	Available(ctx context.Context) error
	Compute(ctx context.Context, loc Location, day time.Time) (Result, error)
}

// Backend names accepted in configuration.
const (
	BackendHebcal  = "hebcal"
	BackendSunrise = "sunrise"
	BackendNOAA    = "noaa"
)

// probeDay is the fixed date astronomy backends are self-checked against.
var probeDay = time.Date(2024, time.March, 20, 0, 0, 0, 0, time.UTC)

// NOAABackend derives zmanim from the built-in solar position calculator.
type NOAABackend struct{}

// Name implements Backend.
func (NOAABackend) Name() string { return BackendNOAA }

// Available implements Backend. The calculator has no external dependency.
func (NOAABackend) Available(context.Context) error { return nil }

// Compute implements Backend.
func (NOAABackend) Compute(_ context.Context, loc Location, day time.Time) (Result, error) {
	rise, err := SolarEvent(day, loc.Latitude, loc.Longitude, loc.TZ, true)
	if err != nil {
		return Result{}, fmt.Errorf("sunrise: %w", err)
	}
	set, err := SolarEvent(day, loc.Latitude, loc.Longitude, loc.TZ, false)
	if err != nil {
		return Result{}, fmt.Errorf("sunset: %w", err)
	}
	return Derive(day, rise, set), nil
}

// SunriseBackend derives zmanim from github.com/nathan-osman/go-sunrise.
type SunriseBackend struct{}

// Name implements Backend.
func (SunriseBackend) Name() string { return BackendSunrise }

// Available implements Backend by checking the library yields a sane day at
// the equator.
func (SunriseBackend) Available(context.Context) error {
	rise, set := sunrise.SunriseSunset(0, 0, probeDay.Year(), probeDay.Month(), probeDay.Day())
	if rise.IsZero() || set.IsZero() || !set.After(rise) {
		return fmt.Errorf("sunrise library self-check failed: rise=%v set=%v", rise, set)
	}
	return nil
}

// Compute implements Backend.
func (SunriseBackend) Compute(_ context.Context, loc Location, day time.Time) (Result, error) {
	day = loc.Day(day)
	rise, ok := sunriseEvent(loc, day, true)
	if !ok {
		return Result{}, ErrSunNeverRisesOrSets
	}
	set, ok := sunriseEvent(loc, day, false)
	if !ok {
		return Result{}, ErrSunNeverRisesOrSets
	}
	return Derive(day, rise, set), nil
}

// sunriseEvent returns the sunrise or sunset falling on day's local date.
// The library works on the solar day at the longitude, which is off by one
// calendar day in zones far from longitude/15, so the query date is shifted
// once when the event lands on a neighbouring day.
func sunriseEvent(loc Location, day time.Time, rising bool) (time.Time, bool) {
	event := func(d time.Time) time.Time {
		rise, set := sunrise.SunriseSunset(loc.Latitude, loc.Longitude, d.Year(), d.Month(), d.Day())
		if rising {
			return rise
		}
		return set
	}

	t := event(day)
	if t.IsZero() {
		return time.Time{}, false
	}
	t = t.In(loc.TZ)
	if shift := daysBetween(day, loc.Day(t)); shift != 0 {
		t = event(day.AddDate(0, 0, -shift))
		if t.IsZero() {
			return time.Time{}, false
		}
		t = t.In(loc.TZ)
	}
	return t, true
}

// daysBetween counts calendar days from a to b, both local midnights.
func daysBetween(a, b time.Time) int {
	return int(math.Round(b.Sub(a).Hours() / 24))
}
