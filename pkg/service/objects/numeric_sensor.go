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
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// NumericSensorConfig describes a sensor that reports a numeric reading,
// such as a temperature or a humidity.
type NumericSensorConfig struct {
	ID string
	// Unit of the reading, e.g. "°C" or "%"
	Unit string
	// Readings that differ no more than this from the last reading are ignored
	MinDelta float64
}

// NumericSensor holds the last reading of a sensor that is read by
// an external driver. The driver reports readings through SetValue.
type NumericSensor struct {
	NumericSensorConfig
	deps Dependencies
	log  zerolog.Logger

	mutex sync.Mutex
	value float64
	known bool
	since time.Time
}

// NewNumericSensor creates a new numeric sensor without a reading.
func NewNumericSensor(conf NumericSensorConfig, deps Dependencies) (*NumericSensor, error) {
	if conf.ID == "" {
		return nil, InvalidArgument("numeric sensor without ID")
	}
	if conf.MinDelta < 0 || math.IsNaN(conf.MinDelta) {
		return nil, InvalidArgument("numeric sensor '%s' has an invalid minimum delta", conf.ID)
	}
	return &NumericSensor{
		NumericSensorConfig: conf,
		deps:                deps,
		log:                 deps.objectLogger(conf.ID, TypeNumericSensor),
		since:               deps.Scheduler.Now(),
	}, nil
}

// ID returns the unique identifier of this object.
func (o *NumericSensor) ID() string { return o.NumericSensorConfig.ID }

// Type returns the type of this object.
func (o *NumericSensor) Type() ObjectType { return TypeNumericSensor }

// Configure is a no-op.
func (o *NumericSensor) Configure(ctx context.Context) error {
	return nil
}

// Run the object until the given context is cancelled.
func (o *NumericSensor) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

// SetValue records a new reading.
func (o *NumericSensor) SetValue(value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return InvalidArgument("reading %v of numeric sensor '%s' is not a number", value, o.ID())
	}
	o.mutex.Lock()
	defer o.mutex.Unlock()
	if o.known && math.Abs(value-o.value) <= o.MinDelta {
		return nil
	}
	o.log.Debug().Float64("value", value).Msg("Reading changed")
	o.value = value
	o.known = true
	o.since = o.deps.Scheduler.Now()
	numericSensorValueGauge.WithLabelValues(o.ID()).Set(value)
	o.deps.publish(o.statusLocked())
	return nil
}

// Value returns the last reading and whether there is one.
func (o *NumericSensor) Value() (float64, bool) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	return o.value, o.known
}

// Status returns a snapshot of the current state.
func (o *NumericSensor) Status() Status {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	return o.statusLocked()
}

func (o *NumericSensor) statusLocked() Status {
	s := Status{
		ID:    o.ID(),
		Type:  TypeNumericSensor,
		State: "unknown",
		Unit:  o.Unit,
		Since: o.since,
	}
	if o.known {
		v := o.value
		s.State = strconv.FormatFloat(v, 'f', -1, 64)
		s.Value = &v
	}
	return s
}
