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
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/homeworker/HomeWorker/pkg/service/devices"
	"github.com/homeworker/HomeWorker/pkg/service/util"
)

var (
	_ BinaryActuator = &BinaryOutput{}
)

// BinaryOutputConfig describes a logical binary output.
type BinaryOutputConfig struct {
	ID string
	// Pins driven by this output, in animation order
	Pins []devices.PinRef
	// Invert the pin level (on = low)
	Invert bool
	// Delay between 2 pins when animated
	StepDelay time.Duration
}

// BinaryOutput drives one or more pins as a single on/off signal.
type BinaryOutput struct {
	BinaryOutputConfig
	deps   Dependencies
	log    zerolog.Logger
	writer PinWriter

	mutex sync.Mutex
	on    bool
	since time.Time
}

// NewBinaryOutput creates a new binary output.
// All pins must be output pins.
func NewBinaryOutput(conf BinaryOutputConfig, writer PinWriter, deps Dependencies) (*BinaryOutput, error) {
	if conf.ID == "" {
		return nil, InvalidArgument("binary output without ID")
	}
	if len(conf.Pins) == 0 {
		return nil, InvalidArgument("binary output '%s' has no pins", conf.ID)
	}
	for _, ref := range conf.Pins {
		if err := writer.ValidateOutput(ref); err != nil {
			return nil, InvalidArgument("pin %s of binary output '%s': %s", ref, conf.ID, err)
		}
	}
	return &BinaryOutput{
		BinaryOutputConfig: conf,
		deps:               deps,
		log:                deps.objectLogger(conf.ID, TypeBinaryOutput),
		writer:             writer,
		since:              deps.Scheduler.Now(),
	}, nil
}

// ID returns the unique identifier of this object.
func (o *BinaryOutput) ID() string { return o.BinaryOutputConfig.ID }

// Type returns the type of this object.
func (o *BinaryOutput) Type() ObjectType { return TypeBinaryOutput }

// Configure switches the output off.
func (o *BinaryOutput) Configure(ctx context.Context) error {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	return o.writer.SetPins(ctx, o.Pins, o.pinValue(false))
}

// Run the object until the given context is cancelled.
func (o *BinaryOutput) Run(ctx context.Context) error {
	// Nothing to do here
	<-ctx.Done()
	return nil
}

// SetState switches the output on or off.
// Without animation all pins are written at once, otherwise they are
// written one at a time with StepDelay in between.
func (o *BinaryOutput) SetState(ctx context.Context, on bool, animation Animation) error {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	log := o.log.With().Bool("on", on).Bool("animated", animation.Enabled).Logger()
	log.Debug().Msg("Set state")
	binaryOutputRequestsTotal.WithLabelValues(o.ID()).Inc()
	if o.on != on {
		o.on = on
		o.since = o.deps.Scheduler.Now()
	}
	binaryOutputStateGauge.WithLabelValues(o.ID()).Set(boolToFloat(on))
	defer func() { o.deps.publish(o.statusLocked()) }()

	value := o.pinValue(on)
	if !animation.Enabled || len(o.Pins) == 1 {
		if err := o.writer.SetPins(ctx, o.Pins, value); err != nil {
			log.Warn().Err(err).Msg("Failed to set pins")
			return err
		}
		return nil
	}
	for i, ref := range animationOrder(o.Pins, animation.Reversed) {
		if i > 0 && !util.Sleep(ctx, o.StepDelay) {
			return ctx.Err()
		}
		if err := o.writer.SetPins(ctx, []devices.PinRef{ref}, value); err != nil {
			log.Warn().Err(err).Str("pin", ref.String()).Msg("Failed to set pin")
			return err
		}
	}
	return nil
}

// State returns the last commanded state.
func (o *BinaryOutput) State() bool {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	return o.on
}

// Status returns a snapshot of the current state.
func (o *BinaryOutput) Status() Status {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	return o.statusLocked()
}

func (o *BinaryOutput) statusLocked() Status {
	return Status{
		ID:    o.ID(),
		Type:  TypeBinaryOutput,
		State: onOff(o.on),
		Since: o.since,
	}
}

func (o *BinaryOutput) pinValue(on bool) bool {
	if o.Invert {
		return !on
	}
	return on
}

// animationOrder returns the pins in the order to switch them.
func animationOrder(pins []devices.PinRef, reversed bool) []devices.PinRef {
	if !reversed {
		return pins
	}
	return lo.Reverse(append([]devices.PinRef(nil), pins...))
}

func boolToFloat(value bool) float64 {
	if value {
		return 1
	}
	return 0
}
