package reminder

import (
	"regexp"
	"strconv"
	"time"

	"github.com/tphakala/eyedrop-checker/internal/errors"
	"github.com/tphakala/eyedrop-checker/internal/suncalc"
)

var (
	clockExpr = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)
	sunExpr   = regexp.MustCompile(`^(sunrise|sunset|dawn|dusk)([+-]\d+[hms](?:\d+[ms])?)?$`)
)

// TimeResolver turns a slot time expression into an instant on a given day.
// Expressions are "HH:MM" or a sun event with an optional offset, e.g. "sunset-30m".
type TimeResolver struct {
	loc *time.Location
	sun *suncalc.SunCalc
}

// NewTimeResolver creates a resolver for loc. sun may be nil, in which case
// sun-relative expressions fail to resolve.
func NewTimeResolver(loc *time.Location, sun *suncalc.SunCalc) *TimeResolver {
	if loc == nil {
		loc = time.Local
	}
	return &TimeResolver{loc: loc, sun: sun}
}

// Location returns the location date keys and clock times are computed in.
func (r *TimeResolver) Location() *time.Location { return r.loc }

// Resolve returns the target time of expr on the local calendar day of day,
// truncated to the minute.
func (r *TimeResolver) Resolve(expr string, day time.Time) (time.Time, error) {
	day = day.In(r.loc)

	if m := clockExpr.FindStringSubmatch(expr); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, r.loc), nil
	}

	m := sunExpr.FindStringSubmatch(expr)
	if m == nil {
		return time.Time{}, errors.Newf("invalid slot time %q", expr).
			Component("reminder").
			Category(errors.CategoryValidation).
			Build()
	}
	if r.sun == nil {
		return time.Time{}, errors.Newf("slot time %q needs a configured location", expr).
			Component("reminder").
			Category(errors.CategoryConfiguration).
			Build()
	}

	base, err := r.sun.EventTime(suncalc.Event(m[1]), day)
	if err != nil {
		return time.Time{}, errors.New(err).
			Component("reminder").
			Category(errors.CategorySchedule).
			Context("expression", expr).
			Build()
	}
	if m[2] != "" {
		offset, err := time.ParseDuration(m[2])
		if err != nil {
			return time.Time{}, errors.New(err).
				Component("reminder").
				Category(errors.CategoryValidation).
				Context("expression", expr).
				Build()
		}
		base = base.Add(offset)
	}
	return base.In(r.loc).Truncate(time.Minute), nil
}
