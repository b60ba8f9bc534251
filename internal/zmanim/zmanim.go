// Package zmanim computes the daily halachic time points for a configured
// location and renders them as chat messages.
package zmanim

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrSunNeverRisesOrSets is returned when the sun stays above or below
	// the horizon for the whole day at the configured latitude.
	ErrSunNeverRisesOrSets = errors.New("sun never rises or sets on this date")

	// ErrUnavailable is returned when no calculation backend could be resolved.
	ErrUnavailable = errors.New("zmanim unavailable")
)

// Location is the process-wide place for which zmanim are computed.
type Location struct {
	Name      string
	Latitude  float64
	Longitude float64
	TZ        *time.Location
}

// NewLocation loads the IANA timezone and returns a Location.
func NewLocation(name string, latitude, longitude float64, timezone string) (Location, error) {
	tz, err := time.LoadLocation(timezone)
	if err != nil {
		return Location{}, fmt.Errorf("failed to load timezone %q: %w", timezone, err)
	}
	return Location{Name: name, Latitude: latitude, Longitude: longitude, TZ: tz}, nil
}

// Day returns midnight of t's calendar date in the location's timezone.
func (l Location) Day(t time.Time) time.Time {
	t = t.In(l.TZ)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, l.TZ)
}

// ID identifies one point in a Result.
type ID string

// Canonical zman identifiers, in chronological order.
const (
	AlotHashachar    ID = "alot_hashachar"
	NetzHachama      ID = "netz_hachama"
	SofZmanShemaMA   ID = "sof_zman_shema_ma"
	SofZmanShemaGRA  ID = "sof_zman_shema_gra"
	SofZmanTefilaMA  ID = "sof_zman_tefila_ma"
	SofZmanTefilaGRA ID = "sof_zman_tefila_gra"
	Chatzot          ID = "chatzot"
	MinchaGedola     ID = "mincha_gedola"
	PlagHamincha     ID = "plag_hamincha"
	ShkiatHachama    ID = "shkiat_hachama"
	TzetHakochavim18 ID = "tzet_hakochavim_18"
	TzetHakochavimRT ID = "tzet_hakochavim_rt"
)

const numIDs = 12

// IDs lists every zman identifier in canonical order.
var IDs = [numIDs]ID{
	AlotHashachar,
	NetzHachama,
	SofZmanShemaMA,
	SofZmanShemaGRA,
	SofZmanTefilaMA,
	SofZmanTefilaGRA,
	Chatzot,
	MinchaGedola,
	PlagHamincha,
	ShkiatHachama,
	TzetHakochavim18,
	TzetHakochavimRT,
}

func indexOf(id ID) int {
	for i, v := range IDs {
		if v == id {
			return i
		}
	}
	return -1
}

// Result holds the zmanim of one calendar date. It is a value type: copies
// never share state, so cached results cannot be mutated by callers.
type Result struct {
	date  time.Time
	times [numIDs]time.Time
	set   [numIDs]bool
}

// NewResult builds a Result for date from the given points. Unknown
// identifiers are ignored.
func NewResult(date time.Time, points map[ID]time.Time) Result {
	r := Result{date: date}
	for id, t := range points {
		if i := indexOf(id); i >= 0 {
			r.times[i] = t
			r.set[i] = true
		}
	}
	return r
}

// Date returns the calendar date the result was computed for.
func (r Result) Date() time.Time { return r.date }

// Get returns the instant for id and whether it is present.
func (r Result) Get(id ID) (time.Time, bool) {
	i := indexOf(id)
	if i < 0 || !r.set[i] {
		return time.Time{}, false
	}
	return r.times[i], true
}

// Len reports how many points are present.
func (r Result) Len() int {
	n := 0
	for _, ok := range r.set {
		if ok {
			n++
		}
	}
	return n
}

// Derive computes the full Result from the two solar anchors using fixed
// proportional-hour arithmetic.
func Derive(date, sunrise, sunset time.Time) Result {
	dawn := sunrise.Add(-72 * time.Minute)
	nightfall := sunset.Add(18 * time.Minute)

	hourMGA := nightfall.Sub(dawn) / 12
	hourGRA := sunset.Sub(sunrise) / 12

	hours := func(base time.Time, hour time.Duration, n float64) time.Time {
		return base.Add(time.Duration(float64(hour) * n))
	}

	return NewResult(date, map[ID]time.Time{
		AlotHashachar:    dawn,
		NetzHachama:      sunrise,
		SofZmanShemaMA:   hours(dawn, hourMGA, 3),
		SofZmanShemaGRA:  hours(sunrise, hourGRA, 3),
		SofZmanTefilaMA:  hours(dawn, hourMGA, 4),
		SofZmanTefilaGRA: hours(sunrise, hourGRA, 4),
		Chatzot:          hours(sunrise, hourGRA, 6),
		MinchaGedola:     hours(sunrise, hourGRA, 6.5),
		PlagHamincha:     hours(sunrise, hourGRA, 10.75),
		ShkiatHachama:    sunset,
		TzetHakochavim18: nightfall,
		TzetHakochavimRT: sunset.Add(72 * time.Minute),
	})
}
