// Copyright 2026 Ewout Prangsma
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Author Ewout Prangsma
//

package automation

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// TimeOfDay is the time since midnight.
type TimeOfDay time.Duration

const (
	day = TimeOfDay(time.Hour * 24)
)

// NewTimeOfDay creates a time of day from hours and minutes.
func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

// ParseTimeOfDay parses a time of day in "HH:MM" or "HH:MM:SS" format.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, errors.Wrapf(InvalidArgumentError, "time of day '%s' must be HH:MM", s)
	}
	limits := []int{24, 60, 60}
	units := []time.Duration{time.Hour, time.Minute, time.Second}
	var result time.Duration
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 || v >= limits[i] {
			return 0, errors.Wrapf(InvalidArgumentError, "time of day '%s' is invalid", s)
		}
		result += time.Duration(v) * units[i]
	}
	return TimeOfDay(result), nil
}

// TimeOfDayOf returns the time of day of the given time (in its own location).
func TimeOfDayOf(t time.Time) TimeOfDay {
	h, m, s := t.Clock()
	return TimeOfDay(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second)
}

// On returns the given time of day on the date of t.
func (t TimeOfDay) On(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, date.Location()).Add(time.Duration(t))
}

func (t TimeOfDay) String() string {
	d := time.Duration(t)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	if s := (d % time.Minute) / time.Second; s != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}

// Daylight holds the sunrise and sunset of a day.
type Daylight struct {
	Sunrise TimeOfDay
	Sunset  TimeOfDay
}

// IsNight returns true when the given time of day is outside [sunrise, sunset].
func (d Daylight) IsNight(t TimeOfDay) bool {
	return t < d.Sunrise || t > d.Sunset
}

// DaylightOracle provides the sunrise and sunset of the day of a given time.
type DaylightOracle interface {
	Daylight(now time.Time) (Daylight, error)
}

// StaticDaylight uses fixed sunrise and sunset times.
type StaticDaylight Daylight

// NewStaticDaylight creates a static oracle, sunrise must be before sunset.
func NewStaticDaylight(sunrise, sunset TimeOfDay) (StaticDaylight, error) {
	if sunrise >= sunset || sunrise < 0 || sunset >= day {
		return StaticDaylight{}, errors.Wrapf(InvalidArgumentError, "sunrise %s must be before sunset %s", sunrise, sunset)
	}
	return StaticDaylight{Sunrise: sunrise, Sunset: sunset}, nil
}

// Daylight returns the configured times.
func (s StaticDaylight) Daylight(now time.Time) (Daylight, error) {
	return Daylight(s), nil
}

const (
	degToRad = math.Pi / 180
	radToDeg = 180 / math.Pi
	// Zenith of the sun at official sunrise/sunset
	zenithOfficial = 90 + 50.0/60
)

// AstronomicalDaylight computes sunrise and sunset from a position on earth.
type AstronomicalDaylight struct {
	Latitude  float64
	Longitude float64
	// Location of the local time, defaults to time.Local
	Location *time.Location
}

// Daylight returns the local sunrise and sunset on the day of now.
// Fails for days without sunrise or sunset (polar regions).
func (a AstronomicalDaylight) Daylight(now time.Time) (Daylight, error) {
	loc := a.Location
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)
	sunrise, err := a.calculate(now, true)
	if err != nil {
		return Daylight{}, err
	}
	sunset, err := a.calculate(now, false)
	if err != nil {
		return Daylight{}, err
	}
	return Daylight{
		Sunrise: TimeOfDayOf(sunrise.In(loc)),
		Sunset:  TimeOfDayOf(sunset.In(loc)),
	}, nil
}

// calculate the sunrise or sunset (UTC) on the day of the given time.
func (a AstronomicalDaylight) calculate(now time.Time, sunrise bool) (time.Time, error) {
	// convert the longitude to hour value and calculate an approximate time
	lnHour := a.Longitude / 15
	t := float64(now.YearDay())
	if sunrise {
		t += (6 - lnHour) / 24
	} else {
		t += (18 - lnHour) / 24
	}

	// the sun's mean anomaly and true longitude
	M := (0.9856 * t) - 3.289
	L := normalizeDegrees(M + (1.916 * math.Sin(M*degToRad)) + (0.020 * math.Sin(2*M*degToRad)) + 282.634)

	// right ascension, in the same quadrant as L, in hours
	RA := normalizeDegrees(radToDeg * math.Atan(0.91764*math.Tan(L*degToRad)))
	RA += math.Floor(L/90)*90 - math.Floor(RA/90)*90
	RA /= 15

	// declination and local hour angle
	sinDec := 0.39782 * math.Sin(L*degToRad)
	cosDec := math.Cos(math.Asin(sinDec))
	cosH := (math.Cos(zenithOfficial*degToRad) - (sinDec * math.Sin(a.Latitude*degToRad))) / (cosDec * math.Cos(a.Latitude*degToRad))
	if cosH > 1 || cosH < -1 {
		return time.Time{}, errors.Wrapf(NoSunriseError, "on %s at %.2f,%.2f", now.Format("2006-01-02"), a.Latitude, a.Longitude)
	}
	H := radToDeg * math.Acos(cosH)
	if sunrise {
		H = 360 - H
	}
	H /= 15

	// local mean time of rising/setting, back to UTC
	T := H + RA - (0.06571 * t) - 6.622
	UT := math.Mod(T-lnHour+48, 24)

	y, m, d := now.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return midnight.Add(time.Duration(UT * float64(time.Hour))).Truncate(time.Second), nil
}

func normalizeDegrees(v float64) float64 {
	if v > 360 {
		return v - 360
	} else if v < 0 {
		return v + 360
	}
	return v
}
