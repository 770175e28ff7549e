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
	"time"
)

// Condition gates a rule. It is evaluated when the rule is triggered.
type Condition interface {
	// Evaluate the condition at the given time.
	Evaluate(now time.Time) (bool, error)
	fmt.Stringer
}

// Night is true between sunset and sunrise.
func Night(oracle DaylightOracle) Condition {
	return daylightCondition{oracle: oracle, night: true}
}

// Day is true between sunrise and sunset.
func Day(oracle DaylightOracle) Condition {
	return daylightCondition{oracle: oracle}
}

type daylightCondition struct {
	oracle DaylightOracle
	night  bool
}

func (c daylightCondition) Evaluate(now time.Time) (bool, error) {
	dl, err := c.oracle.Daylight(now)
	if err != nil {
		return false, err
	}
	return dl.IsNight(TimeOfDayOf(now)) == c.night, nil
}

func (c daylightCondition) String() string {
	if c.night {
		return "night"
	}
	return "day"
}

// TimeRange is a range of the day. When From is after To, the range
// wraps around midnight.
type TimeRange struct {
	From TimeOfDay
	To   TimeOfDay
}

// Contains returns true when the given time of day is in [From, To).
func (r TimeRange) Contains(t TimeOfDay) bool {
	if r.From <= r.To {
		return t >= r.From && t < r.To
	}
	return t >= r.From || t < r.To
}

// Evaluate implements Condition.
func (r TimeRange) Evaluate(now time.Time) (bool, error) {
	return r.Contains(TimeOfDayOf(now)), nil
}

func (r TimeRange) String() string {
	return fmt.Sprintf("between %s and %s", r.From, r.To)
}

// Not inverts a condition.
func Not(c Condition) Condition {
	return notCondition{c}
}

type notCondition struct {
	c Condition
}

func (n notCondition) Evaluate(now time.Time) (bool, error) {
	result, err := n.c.Evaluate(now)
	if err != nil {
		return false, err
	}
	return !result, nil
}

func (n notCondition) String() string {
	return "not " + n.c.String()
}
