package zmanim

import (
	"math"
	"time"
)

// Official zenith for sunrise and sunset: 90° plus refraction and the
// radius of the solar disk.
const officialZenith = 90.833

const deg = math.Pi / 180

// SolarEvent computes sunrise (rising=true) or sunset for the calendar date
// of day at the given coordinates, using the NOAA approximate solar position
// algorithm. The result is expressed in tz and falls on day's calendar date.
func SolarEvent(day time.Time, latitude, longitude float64, tz *time.Location, rising bool) (time.Time, error) {
	if tz == nil {
		tz = time.UTC
	}
	day = day.In(tz)
	year, month, date := day.Date()

	n := float64(time.Date(year, month, date, 0, 0, 0, 0, time.UTC).YearDay())
	lngHour := longitude / 15

	var t float64
	if rising {
		t = n + (6-lngHour)/24
	} else {
		t = n + (18-lngHour)/24
	}

	meanAnomaly := 0.9856*t - 3.289

	trueLongitude := normalizeDegrees(meanAnomaly +
		1.916*math.Sin(meanAnomaly*deg) +
		0.020*math.Sin(2*meanAnomaly*deg) +
		282.634)

	rightAscension := normalizeDegrees(math.Atan(0.91764*math.Tan(trueLongitude*deg)) / deg)
	lQuadrant := math.Floor(trueLongitude/90) * 90
	raQuadrant := math.Floor(rightAscension/90) * 90
	rightAscension = (rightAscension + lQuadrant - raQuadrant) / 15

	sinDec := 0.39782 * math.Sin(trueLongitude*deg)
	cosDec := math.Cos(math.Asin(sinDec))

	cosH := (math.Cos(officialZenith*deg) - sinDec*math.Sin(latitude*deg)) / (cosDec * math.Cos(latitude*deg))
	if cosH > 1 || cosH < -1 || math.IsNaN(cosH) {
		return time.Time{}, ErrSunNeverRisesOrSets
	}

	var hourAngle float64
	if rising {
		hourAngle = 360 - math.Acos(cosH)/deg
	} else {
		hourAngle = math.Acos(cosH) / deg
	}
	hourAngle /= 15

	localMean := hourAngle + rightAscension - 0.06571*t - 6.622
	ut := math.Mod(localMean-lngHour, 24)
	if ut < 0 {
		ut += 24
	}

	utcMidnight := time.Date(year, month, date, 0, 0, 0, 0, time.UTC)
	instant := utcMidnight.Add(time.Duration(ut * float64(time.Hour))).Round(time.Second).In(tz)

	// UT is reduced modulo 24h on the UTC date; pull the instant back onto
	// the requested local date when the timezone offset pushes it across.
	if y, m, d := instant.Date(); y != year || m != month || d != date {
		local := time.Date(y, m, d, 0, 0, 0, 0, tz)
		target := time.Date(year, month, date, 0, 0, 0, 0, tz)
		if local.After(target) {
			instant = instant.Add(-24 * time.Hour)
		} else {
			instant = instant.Add(24 * time.Hour)
		}
	}
	return instant, nil
}

func normalizeDegrees(v float64) float64 {
	v = math.Mod(v, 360)
	if v < 0 {
		v += 360
	}
	return v
}
