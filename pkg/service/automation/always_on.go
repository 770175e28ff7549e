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
	"context"

	"github.com/rs/zerolog"

	"github.com/homeworker/HomeWorker/pkg/service/objects"
	"github.com/homeworker/HomeWorker/pkg/service/scheduler"
)

var (
	_ Automation = &AlwaysOn{}
)

// AlwaysOnConfig describes an AlwaysOn automation.
type AlwaysOnConfig struct {
	ID     string
	Target objects.BinaryActuator
	// When set, the target is only on at night
	Night DaylightOracle
	// When set, the target is off during this range
	OffBetween *TimeRange
}

// AlwaysOn keeps an actuator on, optionally only at night and not
// during a given range of the day.
type AlwaysOn struct {
	AlwaysOnConfig
	sched *scheduler.Scheduler
	log   zerolog.Logger
}

// NewAlwaysOn creates a new AlwaysOn automation.
func NewAlwaysOn(conf AlwaysOnConfig, deps Dependencies) (*AlwaysOn, error) {
	if conf.ID == "" {
		return nil, InvalidArgument("always-on automation without ID")
	}
	if conf.Target == nil {
		return nil, InvalidArgument("always-on automation '%s' has no target", conf.ID)
	}
	return &AlwaysOn{
		AlwaysOnConfig: conf,
		sched:          deps.Scheduler,
		log:            deps.Log.With().Str("automation-id", conf.ID).Logger(),
	}, nil
}

// ID returns the unique identifier of the automation.
func (a *AlwaysOn) ID() string { return a.AlwaysOnConfig.ID }

// Evaluate switches the target to the state it should have now.
func (a *AlwaysOn) Evaluate(ctx context.Context) error {
	now := a.sched.Now()
	on := true
	if a.Night != nil {
		night, err := Night(a.Night).Evaluate(now)
		if err != nil {
			a.log.Warn().Err(err).Msg("Failed to evaluate night condition")
		}
		on = night
	}
	if on && a.OffBetween != nil && a.OffBetween.Contains(TimeOfDayOf(now)) {
		on = false
	}
	if a.Target.State() == on {
		return nil
	}
	a.log.Debug().Bool("on", on).Msg("Switching target")
	return a.Target.SetState(ctx, on, objects.Animation{})
}
