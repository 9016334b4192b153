package suncalc

import "time"

// Helsinki coordinates for testing
const (
	testLatitude  = 60.1699
	testLongitude = 24.9384
)

func helsinki() *time.Location {
	loc, err := time.LoadLocation("Europe/Helsinki")
	if err != nil {
		return time.FixedZone("EEST", 3*3600)
	}
	return loc
}

// newTestSunCalc creates a SunCalc instance with Helsinki coordinates.
func newTestSunCalc() *SunCalc {
	return NewSunCalc(testLatitude, testLongitude, helsinki())
}

// equinoxDate returns March 20, 2024 in Helsinki, a date with all four events well apart.
func equinoxDate() time.Time {
	return time.Date(2024, 3, 20, 9, 0, 0, 0, helsinki())
}
