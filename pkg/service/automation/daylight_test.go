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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("23:05")
	require.NoError(t, err)
	assert.Equal(t, NewTimeOfDay(23, 5), tod)
	assert.Equal(t, "23:05", tod.String())

	tod, err = ParseTimeOfDay("04:00:30")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay(4*time.Hour+30*time.Second), tod)
	assert.Equal(t, "04:00:30", tod.String())

	for _, s := range []string{"", "24:00", "12", "12:60", "aa:bb", "1:2:3:4"} {
		_, err := ParseTimeOfDay(s)
		assert.True(t, IsInvalidArgument(err), s)
	}
}

func TestTimeOfDayOn(t *testing.T) {
	date := time.Date(2026, 2, 3, 17, 45, 10, 0, time.UTC)
	assert.Equal(t, NewTimeOfDay(17, 45)+TimeOfDay(10*time.Second), TimeOfDayOf(date))
	assert.Equal(t, time.Date(2026, 2, 3, 7, 30, 0, 0, time.UTC), NewTimeOfDay(7, 30).On(date))
}

func TestTimeRange(t *testing.T) {
	night := TimeRange{From: NewTimeOfDay(23, 0), To: NewTimeOfDay(4, 0)}
	assert.True(t, night.Contains(NewTimeOfDay(23, 0)))
	assert.True(t, night.Contains(NewTimeOfDay(1, 0)))
	assert.False(t, night.Contains(NewTimeOfDay(4, 0)))
	assert.False(t, night.Contains(NewTimeOfDay(12, 0)))

	office := TimeRange{From: NewTimeOfDay(9, 0), To: NewTimeOfDay(17, 0)}
	assert.True(t, office.Contains(NewTimeOfDay(9, 0)))
	assert.False(t, office.Contains(NewTimeOfDay(17, 0)))
	assert.False(t, office.Contains(NewTimeOfDay(8, 59)))
}

func TestStaticDaylight(t *testing.T) {
	_, err := NewStaticDaylight(NewTimeOfDay(19, 0), NewTimeOfDay(7, 0))
	assert.True(t, IsInvalidArgument(err))

	oracle, err := NewStaticDaylight(NewTimeOfDay(7, 0), NewTimeOfDay(19, 0))
	require.NoError(t, err)
	at := func(h, m int) time.Time { return time.Date(2026, 1, 1, h, m, 0, 0, time.UTC) }

	isNight := func(now time.Time) bool {
		ok, err := Night(oracle).Evaluate(now)
		require.NoError(t, err)
		return ok
	}
	assert.True(t, isNight(at(6, 59)))
	assert.False(t, isNight(at(7, 0)))
	assert.False(t, isNight(at(19, 0)))
	assert.True(t, isNight(at(19, 1)))

	day, err := Day(oracle).Evaluate(at(12, 0))
	require.NoError(t, err)
	assert.True(t, day)
	notDay, err := Not(Day(oracle)).Evaluate(at(12, 0))
	require.NoError(t, err)
	assert.False(t, notDay)
	assert.Equal(t, "not day", Not(Day(oracle)).String())
}

func TestAstronomicalDaylight(t *testing.T) {
	london := AstronomicalDaylight{Latitude: 51.5072, Longitude: -0.1275, Location: time.UTC}
	tolerance := float64(time.Minute)

	dl, err := london.Daylight(time.Date(2014, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, err)
	assert.InDelta(t, float64(NewTimeOfDay(8, 6)+TimeOfDay(15*time.Second)), float64(dl.Sunrise), tolerance)
	assert.InDelta(t, float64(NewTimeOfDay(16, 3)+TimeOfDay(8*time.Second)), float64(dl.Sunset), tolerance)

	dl, err = london.Daylight(time.Date(2014, 6, 28, 3, 4, 5, 0, time.UTC))
	require.NoError(t, err)
	assert.InDelta(t, float64(NewTimeOfDay(20, 21)+TimeOfDay(40*time.Second)), float64(dl.Sunset), tolerance)

	// Local time
	amsterdam, err := time.LoadLocation("Europe/Amsterdam")
	if err == nil {
		local := london
		local.Location = amsterdam
		dl, err := local.Daylight(time.Date(2014, 1, 2, 12, 0, 0, 0, amsterdam))
		require.NoError(t, err)
		assert.InDelta(t, float64(NewTimeOfDay(9, 6)+TimeOfDay(15*time.Second)), float64(dl.Sunrise), tolerance)
	}

	svalbard := AstronomicalDaylight{Latitude: 78.2, Longitude: 15.6, Location: time.UTC}
	_, err = svalbard.Daylight(time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC))
	assert.True(t, IsNoSunrise(err))
	ok, err := Night(svalbard).Evaluate(time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC))
	assert.Error(t, err)
	assert.False(t, ok)
}
