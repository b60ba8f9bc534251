package zmanim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/edgard/zmanimbot/internal/hebcal"
)

// HebcalAPI is the part of the Hebcal client used by HebcalBackend.
type HebcalAPI interface {
	Zmanim(ctx context.Context, latitude, longitude float64, tzid string, date time.Time) (*hebcal.ZmanimResponse, error)
}

// HebcalBackend reads zmanim directly from the Hebcal calendar service.
type HebcalBackend struct {
	API HebcalAPI
	Loc Location
}

// Name implements Backend.
func (HebcalBackend) Name() string { return BackendHebcal }

// Available implements Backend with a round trip for today's date.
func (b HebcalBackend) Available(ctx context.Context) error {
	if b.API == nil {
		return errors.New("hebcal client not configured")
	}
	resp, err := b.API.Zmanim(ctx, b.Loc.Latitude, b.Loc.Longitude, b.Loc.TZ.String(), b.Loc.Day(time.Now()))
	if err != nil {
		return err
	}
	if _, err := resp.Time("sunrise"); err != nil {
		return fmt.Errorf("hebcal probe: %w", err)
	}
	return nil
}

// hebcalKeys maps result identifiers to the Hebcal response keys.
var hebcalKeys = map[ID]string{
	AlotHashachar:    "alotHaShachar",
	NetzHachama:      "sunrise",
	SofZmanShemaMA:   "sofZmanShmaMGA",
	SofZmanShemaGRA:  "sofZmanShma",
	SofZmanTefilaMA:  "sofZmanTfillaMGA",
	SofZmanTefilaGRA: "sofZmanTfilla",
	Chatzot:          "chatzot",
	MinchaGedola:     "minchaGedola",
	PlagHamincha:     "plagHaMincha",
	ShkiatHachama:    "sunset",
	TzetHakochavimRT: "tzeit72min",
}

// Compute implements Backend. Hebcal has no sunset+18 minutes entry, so
// that point is derived from the reported sunset.
func (b HebcalBackend) Compute(ctx context.Context, loc Location, day time.Time) (Result, error) {
	day = loc.Day(day)
	resp, err := b.API.Zmanim(ctx, loc.Latitude, loc.Longitude, loc.TZ.String(), day)
	if err != nil {
		return Result{}, err
	}

	rise, riseErr := resp.Time("sunrise")
	set, setErr := resp.Time("sunset")
	if errors.Is(riseErr, hebcal.ErrNotFound) || errors.Is(setErr, hebcal.ErrNotFound) {
		return Result{}, ErrSunNeverRisesOrSets
	}
	if err := errors.Join(riseErr, setErr); err != nil {
		return Result{}, err
	}

	points := make(map[ID]time.Time, numIDs)
	for id, key := range hebcalKeys {
		t, err := resp.Time(key)
		if err != nil {
			return Result{}, err
		}
		points[id] = t.In(loc.TZ)
	}
	points[NetzHachama] = rise.In(loc.TZ)
	points[ShkiatHachama] = set.In(loc.TZ)
	points[TzetHakochavim18] = set.Add(18 * time.Minute).In(loc.TZ)
	return NewResult(day, points), nil
}
