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

	"github.com/homeworker/HomeWorker/pkg/service/devices"
)

// SensorConfig describes an input backed sensor.
type SensorConfig struct {
	ID  string
	Pin devices.PinRef
	// Invert the input level (asserted = low)
	Invert bool
}

// inputSensor is the common part of all sensors that follow a single
// input pin. Changes of the pin are received through a registry subscription.
type inputSensor struct {
	SensorConfig
	eventHub
	objType  ObjectType
	deps     Dependencies
	log      zerolog.Logger
	sub      *devices.Subscription
	onChange func(asserted bool, now time.Time, since time.Time)

	mutex    sync.Mutex
	asserted bool
	since    time.Time
}

// newInputSensor subscribes to the pin of the sensor.
func newInputSensor(conf SensorConfig, objType ObjectType, subscriber PinSubscriber, deps Dependencies) (*inputSensor, error) {
	if conf.ID == "" {
		return nil, InvalidArgument("%s without ID", objType)
	}
	sub, err := subscriber.Subscribe(conf.Pin)
	if err != nil {
		return nil, InvalidArgument("pin %s of %s '%s': %s", conf.Pin, objType, conf.ID, err)
	}
	return &inputSensor{
		SensorConfig: conf,
		objType:      objType,
		deps:         deps,
		log:          deps.objectLogger(conf.ID, objType),
		sub:          sub,
		since:        deps.Scheduler.Now(),
	}, nil
}

// ID returns the unique identifier of this object.
func (o *inputSensor) ID() string { return o.SensorConfig.ID }

// Type returns the type of this object.
func (o *inputSensor) Type() ObjectType { return o.objType }

// Configure is a no-op, the board registry configures the pin.
func (o *inputSensor) Configure(ctx context.Context) error {
	return nil
}

// Run processes changes of the input until the given context is cancelled.
func (o *inputSensor) Run(ctx context.Context) error {
	defer o.sub.Close()
	for {
		select {
		case c := <-o.sub.Changes():
			if c.Initial {
				o.seed(c.Value)
			} else {
				o.process(c.Value)
			}
		case <-o.sub.Done():
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

// seed takes over the level of the input at startup.
// No events are emitted, the time of the level is unknown.
func (o *inputSensor) seed(value bool) {
	asserted := value != o.Invert
	o.mutex.Lock()
	if asserted == o.asserted {
		o.mutex.Unlock()
		return
	}
	o.asserted = asserted
	status := o.statusLocked()
	o.mutex.Unlock()

	o.log.Debug().Bool("asserted", asserted).Msg("Initial input level")
	sensorStateGauge.WithLabelValues(o.ID()).Set(boolToFloat(asserted))
	o.deps.publish(status)
}

// process a new input level.
func (o *inputSensor) process(value bool) {
	asserted := value != o.Invert
	o.mutex.Lock()
	if asserted == o.asserted {
		o.mutex.Unlock()
		return
	}
	now := o.deps.Scheduler.Now()
	prevSince := o.since
	o.asserted = asserted
	o.since = now
	status := o.statusLocked()
	o.mutex.Unlock()

	o.log.Debug().Bool("asserted", asserted).Msg("Input changed")
	sensorStateGauge.WithLabelValues(o.ID()).Set(boolToFloat(asserted))
	o.deps.publish(status)
	if o.onChange != nil {
		o.onChange(asserted, now, prevSince)
	}
}

// Asserted returns true when the input is asserted.
func (o *inputSensor) Asserted() bool {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	return o.asserted
}

// Status returns a snapshot of the current state.
func (o *inputSensor) Status() Status {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	return o.statusLocked()
}

func (o *inputSensor) statusLocked() Status {
	state := "inactive"
	if o.asserted {
		state = "active"
	}
	return Status{
		ID:    o.ID(),
		Type:  o.objType,
		State: state,
		Since: o.since,
	}
}
