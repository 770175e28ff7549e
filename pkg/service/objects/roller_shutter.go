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

package objects

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/homeworker/HomeWorker/pkg/service/scheduler"
)

const (
	// DefaultMaxMovingDuration is the full traversal time of a shutter.
	DefaultMaxMovingDuration = time.Second * 25
	// PositionTolerance is the difference (in percent) under which
	// SetPosition does not move the shutter.
	PositionTolerance = 2.0
)

// ShutterState is the state of the roller shutter state machine.
type ShutterState int

const (
	ShutterIdle ShutterState = iota
	ShutterMovingUp
	ShutterMovingDown
)

func (s ShutterState) String() string {
	switch s {
	case ShutterMovingUp:
		return "moving-up"
	case ShutterMovingDown:
		return "moving-down"
	default:
		return "idle"
	}
}

// RollerShutterConfig describes a roller shutter.
type RollerShutterConfig struct {
	ID string
	// Time needed to go from fully closed to fully open
	MaxMovingDuration time.Duration
	// When set, an opened shutter closes again after this duration
	AutoCloseAfter time.Duration
	// Initial position (percent open), nil when unknown
	InitialPosition *float64
}

// RollerShutter is a shutter driven by an up and a down relay.
// The position (percent open) is estimated from the time the relays
// are energized.
type RollerShutter struct {
	RollerShutterConfig
	deps     Dependencies
	log      zerolog.Logger
	up, down BinaryActuator

	mutex         sync.Mutex
	state         ShutterState
	position      float64
	positionKnown bool
	changedAt     time.Time
	safetyStop    *scheduler.Job
	positionStop  *scheduler.Job
	autoClose     *scheduler.Job
}

// NewRollerShutter creates a new roller shutter.
func NewRollerShutter(conf RollerShutterConfig, up, down BinaryActuator, deps Dependencies) (*RollerShutter, error) {
	if conf.ID == "" {
		return nil, InvalidArgument("roller shutter without ID")
	}
	if up == nil || down == nil {
		return nil, InvalidArgument("roller shutter '%s' needs an up and a down relay", conf.ID)
	}
	if up == down {
		return nil, InvalidArgument("roller shutter '%s' uses the same relay for up and down", conf.ID)
	}
	if conf.MaxMovingDuration <= 0 {
		conf.MaxMovingDuration = DefaultMaxMovingDuration
	}
	if conf.AutoCloseAfter < 0 {
		return nil, InvalidArgument("roller shutter '%s' has a negative auto close delay", conf.ID)
	}
	o := &RollerShutter{
		RollerShutterConfig: conf,
		deps:                deps,
		log:                 deps.objectLogger(conf.ID, TypeRollerShutter),
		up:                  up,
		down:                down,
		changedAt:           deps.Scheduler.Now(),
	}
	if p := conf.InitialPosition; p != nil {
		if *p < 0 || *p > 100 {
			return nil, InvalidArgument("roller shutter '%s' has an initial position out of range [0..100]", conf.ID)
		}
		o.position = *p
		o.positionKnown = true
	}
	return o, nil
}

// ID returns the unique identifier of this object.
func (o *RollerShutter) ID() string { return o.RollerShutterConfig.ID }

// Type returns the type of this object.
func (o *RollerShutter) Type() ObjectType { return TypeRollerShutter }

// Configure makes sure both relays are off.
func (o *RollerShutter) Configure(ctx context.Context) error {
	if err := o.up.SetState(ctx, false, Animation{}); err != nil {
		return err
	}
	return o.down.SetState(ctx, false, Animation{})
}

// Run the object until the given context is cancelled.
// The relays are switched off when the shutter is still moving.
func (o *RollerShutter) Run(ctx context.Context) error {
	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return o.Stop(stopCtx)
}

// Open starts moving the shutter up.
func (o *RollerShutter) Open(ctx context.Context) error {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	started, err := o.moveLocked(ctx, ShutterMovingUp)
	if err != nil {
		return err
	}
	if o.AutoCloseAfter > 0 && (started || o.autoClose == nil) {
		o.autoClose.Cancel()
		o.autoClose = o.deps.Scheduler.In(o.AutoCloseAfter).Named(o.ID()+"-auto-close").Do(o.Close)
	}
	return nil
}

// Close starts moving the shutter down.
func (o *RollerShutter) Close(ctx context.Context) error {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.autoClose.Cancel()
	o.autoClose = nil
	_, err := o.moveLocked(ctx, ShutterMovingDown)
	return err
}

// Stop de-energizes both relays and updates the position estimate.
// Stopping an idle shutter is a no-op.
func (o *RollerShutter) Stop(ctx context.Context) error {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	return o.stopLocked(ctx)
}

// SetPosition moves the shutter to the given position (percent open).
// Fully open and fully closed are always reachable, intermediate
// positions need a known position.
func (o *RollerShutter) SetPosition(ctx context.Context, target float64) error {
	if target < 0 || target > 100 || math.IsNaN(target) {
		return InvalidArgument("position %v of roller shutter '%s' out of range [0..100]", target, o.ID())
	}
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if o.state != ShutterIdle {
		if err := o.stopLocked(ctx); err != nil {
			return err
		}
	}
	if !o.positionKnown {
		switch target {
		case 100:
			_, err := o.moveLocked(ctx, ShutterMovingUp)
			return err
		case 0:
			_, err := o.moveLocked(ctx, ShutterMovingDown)
			return err
		default:
			return errors.Wrapf(PositionUnknownError, "roller shutter '%s'", o.ID())
		}
	}
	delta := target - o.position
	if math.Abs(delta) <= PositionTolerance {
		return nil
	}
	direction := ShutterMovingUp
	if delta < 0 {
		direction = ShutterMovingDown
	}
	if _, err := o.moveLocked(ctx, direction); err != nil {
		return err
	}
	if target == 0 || target == 100 {
		// Let the safety stop complete the traversal
		return nil
	}
	duration := time.Duration(math.Abs(delta) / 100 * float64(o.MaxMovingDuration))
	o.positionStop = o.deps.Scheduler.In(duration).Named(o.ID()+"-position-stop").Do(o.Stop)
	return nil
}

// State returns the state of the shutter.
func (o *RollerShutter) State() ShutterState {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	return o.state
}

// Position returns the estimated position (percent open) and
// whether it is known.
func (o *RollerShutter) Position() (float64, bool) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	return o.position, o.positionKnown
}

// Status returns a snapshot of the current state.
func (o *RollerShutter) Status() Status {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	return o.statusLocked()
}

func (o *RollerShutter) statusLocked() Status {
	s := Status{
		ID:    o.ID(),
		Type:  TypeRollerShutter,
		State: o.state.String(),
		Since: o.changedAt,
	}
	if o.positionKnown {
		p := int(math.Round(o.position))
		s.Position = &p
	}
	return s
}

// moveLocked starts moving in the given direction.
// Returns true when a new move was started.
// Requires the mutex.
func (o *RollerShutter) moveLocked(ctx context.Context, direction ShutterState) (bool, error) {
	if o.state == direction {
		// Already moving that way, continue until the end stop
		o.positionStop.Cancel()
		o.positionStop = nil
		return false, nil
	}
	if err := o.stopLocked(ctx); err != nil {
		return false, err
	}
	relay := o.up
	if direction == ShutterMovingDown {
		relay = o.down
	}
	if err := relay.SetState(ctx, true, Animation{}); err != nil {
		// Make sure nothing keeps running
		relay.SetState(ctx, false, Animation{})
		return false, err
	}
	o.log.Debug().Str("direction", direction.String()).Msg("Start moving")
	o.state = direction
	o.changedAt = o.deps.Scheduler.Now()
	o.safetyStop = o.deps.Scheduler.In(o.MaxMovingDuration).Named(o.ID()+"-safety-stop").Do(o.Stop)
	rollerShutterMovesTotal.WithLabelValues(o.ID(), direction.String()).Inc()
	o.deps.publish(o.statusLocked())
	return true, nil
}

// stopLocked de-energizes both relays and updates the position.
// Requires the mutex.
func (o *RollerShutter) stopLocked(ctx context.Context) error {
	if o.state == ShutterIdle {
		return nil
	}
	o.safetyStop.Cancel()
	o.positionStop.Cancel()
	o.safetyStop, o.positionStop = nil, nil

	upErr := o.up.SetState(ctx, false, Animation{})
	downErr := o.down.SetState(ctx, false, Animation{})

	now := o.deps.Scheduler.Now()
	elapsed := now.Sub(o.changedAt)
	sign := 1.0
	if o.state == ShutterMovingDown {
		sign = -1.0
	}
	if elapsed >= o.MaxMovingDuration {
		// Full traversal, position is now known
		o.position = 50 + sign*50
		o.positionKnown = true
	} else if o.positionKnown {
		delta := float64(elapsed) / float64(o.MaxMovingDuration) * 100
		o.position = math.Max(0, math.Min(100, o.position+sign*delta))
	}
	o.log.Debug().
		Dur("elapsed", elapsed).
		Float64("position", o.position).
		Bool("position-known", o.positionKnown).
		Msg("Stopped moving")
	o.state = ShutterIdle
	o.changedAt = now
	if o.positionKnown {
		rollerShutterPositionGauge.WithLabelValues(o.ID()).Set(o.position)
	}
	o.deps.publish(o.statusLocked())

	if upErr != nil {
		return upErr
	}
	return downErr
}
