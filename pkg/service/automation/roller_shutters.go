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

	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/homeworker/HomeWorker/pkg/service/objects"
	"github.com/homeworker/HomeWorker/pkg/service/scheduler"
)

var (
	_ Automation = &AutomaticRollerShutters{}
)

// AutomaticRollerShuttersConfig describes an AutomaticRollerShutters automation.
type AutomaticRollerShuttersConfig struct {
	ID       string
	Shutters []*objects.RollerShutter
	Oracle   DaylightOracle
	// When set, shutters do not open before this time of day
	DoNotOpenBefore *TimeOfDay
}

// AutomaticRollerShutters opens shutters at sunrise and closes them at sunset.
// Each transition is applied once, so manual changes in between are kept.
type AutomaticRollerShutters struct {
	AutomaticRollerShuttersConfig
	sched *scheduler.Scheduler
	log   zerolog.Logger

	sunriseApplied bool
	sunsetApplied  bool
}

// NewAutomaticRollerShutters creates a new AutomaticRollerShutters automation.
func NewAutomaticRollerShutters(conf AutomaticRollerShuttersConfig, deps Dependencies) (*AutomaticRollerShutters, error) {
	if conf.ID == "" {
		return nil, InvalidArgument("automatic roller shutters without ID")
	}
	if len(conf.Shutters) == 0 {
		return nil, InvalidArgument("automatic roller shutters '%s' has no shutters", conf.ID)
	}
	if conf.Oracle == nil {
		return nil, InvalidArgument("automatic roller shutters '%s' has no daylight oracle", conf.ID)
	}
	return &AutomaticRollerShutters{
		AutomaticRollerShuttersConfig: conf,
		sched:                         deps.Scheduler,
		log:                           deps.Log.With().Str("automation-id", conf.ID).Logger(),
	}, nil
}

// ID returns the unique identifier of the automation.
func (a *AutomaticRollerShutters) ID() string { return a.AutomaticRollerShuttersConfig.ID }

// Evaluate opens or closes the shutters when daylight changed since
// the last evaluation.
// Runs on the scheduler only.
func (a *AutomaticRollerShutters) Evaluate(ctx context.Context) error {
	now := a.sched.Now()
	dl, err := a.Oracle.Daylight(now)
	if err != nil {
		a.log.Warn().Err(err).Msg("Failed to get daylight")
		return nil
	}
	tod := TimeOfDayOf(now)
	if !dl.IsNight(tod) {
		if a.sunriseApplied {
			return nil
		}
		if a.DoNotOpenBefore != nil && tod < *a.DoNotOpenBefore {
			return nil
		}
		a.sunriseApplied, a.sunsetApplied = true, false
		a.log.Info().Msg("Opening roller shutters")
		return a.forEach(ctx, (*objects.RollerShutter).Open)
	}
	if a.sunsetApplied {
		return nil
	}
	a.sunriseApplied, a.sunsetApplied = false, true
	a.log.Info().Msg("Closing roller shutters")
	return a.forEach(ctx, (*objects.RollerShutter).Close)
}

func (a *AutomaticRollerShutters) forEach(ctx context.Context, action func(*objects.RollerShutter, context.Context) error) error {
	var ae aerr.AggregateError
	for _, rs := range a.Shutters {
		if err := action(rs, ctx); err != nil {
			ae.Add(errors.Wrapf(err, "roller shutter '%s'", rs.ID()))
		}
	}
	return ae.AsError()
}
