// Package period resolves user-local calendar periods (days and ISO weeks)
// from a stored UTC offset. Resolution is pure: the caller supplies "now".
package period

import (
	"fmt"
	"time"

	"yourbody/internal/core"
)

// DateLayout is the wire format for local calendar dates.
const DateLayout = "2006-01-02"

// InvalidPeriodError reports a malformed or future reference date. It is the
// one error the summary pipeline surfaces to callers unmodified, since it
// indicates caller misuse rather than a computation failure.
type InvalidPeriodError struct {
	Reason string
}

func (e *InvalidPeriodError) Error() string {
	return fmt.Sprintf("invalid period: %s", e.Reason)
}

// Resolve maps (period type, reference date, timezone offset) to a PeriodKey.
// refDate is a local calendar date in DateLayout; empty means "today" in the
// user's local time. now anchors the future-date check and the empty default.
func Resolve(ptype core.PeriodType, refDate string, tzOffsetMinutes int, now time.Time) (core.PeriodKey, error) {
	loc := time.FixedZone("", tzOffsetMinutes*60)
	localNow := now.In(loc)
	today := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), 0, 0, 0, 0, loc)

	ref := today
	if refDate != "" {
		parsed, err := time.ParseInLocation(DateLayout, refDate, loc)
		if err != nil {
			return core.PeriodKey{}, &InvalidPeriodError{Reason: fmt.Sprintf("malformed date %q", refDate)}
		}
		ref = parsed
	}

	if ref.After(today) {
		return core.PeriodKey{}, &InvalidPeriodError{Reason: fmt.Sprintf("date %s is in the future", ref.Format(DateLayout))}
	}

	var start time.Time
	switch ptype {
	case core.PeriodDay:
		start = ref
	case core.PeriodWeek:
		start = mondayOnOrBefore(ref)
	default:
		return core.PeriodKey{}, &InvalidPeriodError{Reason: fmt.Sprintf("unknown period type %q", ptype)}
	}

	return core.PeriodKey{
		UserID:          0, // callers attach identity via ResolveFor
		Type:            ptype,
		Start:           start.Format(DateLayout),
		TZOffsetMinutes: tzOffsetMinutes,
	}, nil
}

// ResolveFor is Resolve with the user identity attached.
func ResolveFor(userID int64, ptype core.PeriodType, refDate string, tzOffsetMinutes int, now time.Time) (core.PeriodKey, error) {
	key, err := Resolve(ptype, refDate, tzOffsetMinutes, now)
	if err != nil {
		return core.PeriodKey{}, err
	}
	key.UserID = userID
	return key, nil
}

// Bounds returns the half-open local-time interval [start, end) the key spans.
func Bounds(key core.PeriodKey) (time.Time, time.Time, error) {
	loc := key.Location()
	start, err := time.ParseInLocation(DateLayout, key.Start, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("corrupt period start %q: %w", key.Start, err)
	}
	days := 1
	if key.Type == core.PeriodWeek {
		days = 7
	}
	return start, start.AddDate(0, 0, days), nil
}

// Days lists the local calendar dates the key covers, in order.
func Days(key core.PeriodKey) ([]string, error) {
	start, end, err := Bounds(key)
	if err != nil {
		return nil, err
	}
	var days []string
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format(DateLayout))
	}
	return days, nil
}

// IsCurrentDay reports whether the key is the in-progress local day.
func IsCurrentDay(key core.PeriodKey, now time.Time) bool {
	if key.Type != core.PeriodDay {
		return false
	}
	return now.In(key.Location()).Format(DateLayout) == key.Start
}

// mondayOnOrBefore rewinds to the Monday that starts the ISO week of d.
func mondayOnOrBefore(d time.Time) time.Time {
	offset := (int(d.Weekday()) + 6) % 7 // Monday=0 ... Sunday=6
	return d.AddDate(0, 0, -offset)
}
