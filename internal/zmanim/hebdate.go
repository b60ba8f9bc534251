package zmanim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/edgard/zmanimbot/internal/hebcal"
)

// ErrDegradedHebrewDate marks a date label built without a Hebrew calendar.
var ErrDegradedHebrewDate = errors.New("hebrew calendar unavailable")

// HebrewCalendar converts Gregorian dates to Hebrew calendar dates.
type HebrewCalendar interface {
	Convert(ctx context.Context, date time.Time) (*hebcal.HebrewDate, error)
}

// weekdays are the Hebrew day names, week starting Sunday.
var weekdays = [7]string{"ראשון", "שני", "שלישי", "רביעי", "חמישי", "שישי", "שבת"}

// DateLabel is the rendered calendar identity of one day.
type DateLabel struct {
	Weekday  string
	Hebrew   string
	Degraded bool
}

// HebrewDateFormatter renders day headers. The calendar is probed once at
// construction; a later per-call failure degrades only that call.
type HebrewDateFormatter struct {
	cal   HebrewCalendar
	cache *Cache[string]
	log   *slog.Logger
}

// NewHebrewDateFormatter returns a formatter. A nil or unreachable calendar
// yields a formatter that always degrades.
func NewHebrewDateFormatter(ctx context.Context, cal HebrewCalendar, cacheSize int, logger *slog.Logger) *HebrewDateFormatter {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "hebrew_date")

	if cal != nil {
		if _, err := cal.Convert(ctx, probeDay); err != nil {
			log.WarnContext(ctx, "Hebrew calendar unavailable, dates will be degraded", "error", err)
			cal = nil
		}
	}
	return &HebrewDateFormatter{cal: cal, cache: NewCache[string](cacheSize), log: log}
}

// Format returns the weekday and Hebrew date labels of date.
func (f *HebrewDateFormatter) Format(ctx context.Context, date time.Time) DateLabel {
	weekday := weekdays[date.Weekday()]
	key := date.Format(time.DateOnly)

	if hebrew, ok := f.cache.Get(key); ok {
		return DateLabel{Weekday: weekday, Hebrew: hebrew}
	}

	if f.cal != nil {
		hd, err := f.cal.Convert(ctx, date)
		if err == nil {
			f.cache.Add(key, hd.Hebrew)
			return DateLabel{Weekday: weekday, Hebrew: hd.Hebrew}
		}
		f.log.WarnContext(ctx, "Hebrew date conversion failed", "date", key, "error", fmt.Errorf("%w: %w", ErrDegradedHebrewDate, err))
	}

	return DateLabel{Weekday: weekday, Hebrew: date.Format("02/01/2006"), Degraded: true}
}

// Header returns the first line of a zmanim message for date.
func (f *HebrewDateFormatter) Header(ctx context.Context, date time.Time) string {
	return HeaderLine(f.Format(ctx, date), date)
}

// HeaderLine builds the header from a label. Degraded labels say so.
func HeaderLine(label DateLabel, date time.Time) string {
	greg := date.Format("02 January 2006")
	if label.Degraded {
		return fmt.Sprintf("📅 יום %s, %s (%s)\n⚠️ מצטער, אינני יכול להציג תאריך עברי כעת.", label.Weekday, label.Hebrew, greg)
	}
	return fmt.Sprintf("📅 יום %s, %s (%s)", label.Weekday, label.Hebrew, greg)
}
