package zmanim

import (
	"time"
)

// QueryType tells what a zmanim request asks for.
type QueryType string

const (
	QueryAll      QueryType = "all"
	QuerySpecific QueryType = "specific"
	QueryNone     QueryType = "none"
)

// Target is the day a query refers to.
type Target string

const (
	Today    Target = "today"
	Tomorrow Target = "tomorrow"
)

// Zman names a single requested time. Most names are result identifiers;
// the three generic names below resolve to one fixed variant.
type Zman string

const (
	ZmanAlot          Zman = Zman(AlotHashachar)
	ZmanNetz          Zman = Zman(NetzHachama)
	ZmanSofZmanShema  Zman = "sof_zman_shema"
	ZmanSofZmanTefila Zman = "sof_zman_tefila"
	ZmanChatzot       Zman = Zman(Chatzot)
	ZmanMinchaGedola  Zman = Zman(MinchaGedola)
	ZmanPlag          Zman = Zman(PlagHamincha)
	ZmanShkia         Zman = Zman(ShkiatHachama)
	ZmanTzet          Zman = "tzet_hakochavim"
)

// Zmanim lists the requestable names.
var Zmanim = []Zman{
	ZmanAlot,
	ZmanNetz,
	ZmanSofZmanShema,
	ZmanSofZmanTefila,
	ZmanChatzot,
	ZmanMinchaGedola,
	ZmanPlag,
	ZmanShkia,
	ZmanTzet,
}

// ResultID returns the result identifier read for z.
func (z Zman) ResultID() ID {
	switch z {
	case ZmanSofZmanShema:
		return SofZmanShemaGRA
	case ZmanSofZmanTefila:
		return SofZmanTefilaGRA
	case ZmanTzet:
		return TzetHakochavim18
	default:
		return ID(z)
	}
}

// Valid reports whether z is one of the requestable names.
func (z Zman) Valid() bool {
	for _, v := range Zmanim {
		if v == z {
			return true
		}
	}
	return false
}

// Query is a classified zmanim request.
type Query struct {
	Type   QueryType
	Zman   Zman
	Target Target
}

// Day returns the calendar date the query targets, relative to now.
func (q Query) Day(loc Location, now time.Time) time.Time {
	day := loc.Day(now)
	if q.Target == Tomorrow {
		day = day.AddDate(0, 0, 1)
	}
	return day
}
