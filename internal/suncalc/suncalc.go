// Package suncalc computes sun event times for sun-relative reminder slots.
package suncalc

import (
	"fmt"
	"time"

	"github.com/maypok86/otter/v2"
	"github.com/sj14/astral/pkg/astral"
)

// Event names a sun event that a slot time can be anchored to.
type Event string

const (
	Dawn    Event = "dawn"
	Sunrise Event = "sunrise"
	Sunset  Event = "sunset"
	Dusk    Event = "dusk"
)

// cacheSize bounds the number of cached days
const cacheSize = 64

// SunEventTimes holds the calculated sun event times in the calculator's location
type SunEventTimes struct {
	CivilDawn time.Time
	Sunrise   time.Time
	Sunset    time.Time
	CivilDusk time.Time
}

// SunCalc handles caching and calculation of sun event times
type SunCalc struct {
	observer astral.Observer
	location *time.Location
	cache    *otter.Cache[string, SunEventTimes]
}

// NewSunCalc creates a calculator for the given coordinates. Results are
// returned in loc; a nil loc means time.Local.
func NewSunCalc(latitude, longitude float64, loc *time.Location) *SunCalc {
	if loc == nil {
		loc = time.Local
	}
	return &SunCalc{
		observer: astral.Observer{Latitude: latitude, Longitude: longitude},
		location: loc,
		cache: otter.Must(&otter.Options[string, SunEventTimes]{
			MaximumSize:     cacheSize,
			InitialCapacity: 8,
		}),
	}
}

// GetSunEventTimes returns the sun event times for the calendar day of date in
// the calculator's location, using the cache if available
func (sc *SunCalc) GetSunEventTimes(date time.Time) (SunEventTimes, error) {
	local := date.In(sc.location)
	dateKey := local.Format("2006-01-02")

	if times, ok := sc.cache.GetIfPresent(dateKey); ok {
		return times, nil
	}

	times, err := sc.calculateSunEventTimes(local)
	if err != nil {
		return SunEventTimes{}, err
	}
	sc.cache.Set(dateKey, times)
	return times, nil
}

func (sc *SunCalc) calculateSunEventTimes(local time.Time) (SunEventTimes, error) {
	// astral works on the calendar date; noon avoids edge effects around midnight.
	day := time.Date(local.Year(), local.Month(), local.Day(), 12, 0, 0, 0, sc.location)

	civilDawn, err := astral.Dawn(sc.observer, day, astral.DepressionCivil)
	if err != nil {
		return SunEventTimes{}, fmt.Errorf("failed to calculate civil dawn: %w", err)
	}
	sunrise, err := astral.Sunrise(sc.observer, day)
	if err != nil {
		return SunEventTimes{}, fmt.Errorf("failed to calculate sunrise: %w", err)
	}
	sunset, err := astral.Sunset(sc.observer, day)
	if err != nil {
		return SunEventTimes{}, fmt.Errorf("failed to calculate sunset: %w", err)
	}
	civilDusk, err := astral.Dusk(sc.observer, day, astral.DepressionCivil)
	if err != nil {
		return SunEventTimes{}, fmt.Errorf("failed to calculate civil dusk: %w", err)
	}

	return SunEventTimes{
		CivilDawn: civilDawn.In(sc.location),
		Sunrise:   sunrise.In(sc.location),
		Sunset:    sunset.In(sc.location),
		CivilDusk: civilDusk.In(sc.location),
	}, nil
}

// EventTime returns the time of event on the day of date.
func (sc *SunCalc) EventTime(event Event, date time.Time) (time.Time, error) {
	times, err := sc.GetSunEventTimes(date)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get sun event times: %w", err)
	}
	switch event {
	case Dawn:
		return times.CivilDawn, nil
	case Sunrise:
		return times.Sunrise, nil
	case Sunset:
		return times.Sunset, nil
	case Dusk:
		return times.CivilDusk, nil
	}
	return time.Time{}, fmt.Errorf("unknown sun event %q", event)
}

// Location returns the location results are expressed in.
func (sc *SunCalc) Location() *time.Location {
	return sc.location
}
