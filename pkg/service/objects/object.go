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
	"time"

	"github.com/rs/zerolog"

	"github.com/homeworker/HomeWorker/pkg/service/devices"
	"github.com/homeworker/HomeWorker/pkg/service/scheduler"
)

// ObjectType identifies the kind of an object.
type ObjectType string

const (
	TypeBinaryOutput   ObjectType = "binary-output"
	TypeRollerShutter  ObjectType = "roller-shutter"
	TypeCombined       ObjectType = "combined"
	TypeButton         ObjectType = "button"
	TypeMotionDetector ObjectType = "motion-detector"
	TypeRemoteSocket   ObjectType = "remote-socket"
	TypeNumericSensor  ObjectType = "numeric-sensor"
)

// Object contains the API supported by all types of objects.
type Object interface {
	// ID returns the unique identifier of this object.
	ID() string
	// Type returns the type of this object.
	Type() ObjectType
	// Configure is called once to put the object in the desired state.
	Configure(ctx context.Context) error
	// Run the object until the given context is cancelled.
	Run(ctx context.Context) error
	// Status returns a snapshot of the current state.
	Status() Status
}

// Status is a plain snapshot of the state of an object.
type Status struct {
	ID       string     `json:"id"`
	Type     ObjectType `json:"type"`
	State    string     `json:"state"`
	Position *int       `json:"position,omitempty"`
	Value    *float64   `json:"value,omitempty"`
	Unit     string     `json:"unit,omitempty"`
	Since    time.Time  `json:"since"`
}

// Animation controls how a multi-pin output is switched.
type Animation struct {
	// Enabled switches pins one at a time instead of all at once.
	Enabled bool
	// Reversed switches the pins in reverse declaration order.
	Reversed bool
}

// BinaryActuator is an object that can be switched on and off.
type BinaryActuator interface {
	Object
	// SetState switches the actuator on or off.
	SetState(ctx context.Context, on bool, animation Animation) error
	// State returns the last commanded state.
	State() bool
}

// StatusService receives the status of objects whenever it changes.
type StatusService interface {
	PublishStatus(Status)
}

// PinWriter is the part of the board registry used by outputs.
type PinWriter interface {
	ValidateOutput(ref devices.PinRef) error
	SetPins(ctx context.Context, refs []devices.PinRef, value bool) error
}

// PinSubscriber is the part of the board registry used by sensors.
type PinSubscriber interface {
	Subscribe(ref devices.PinRef) (*devices.Subscription, error)
}

// Dependencies shared by all objects.
type Dependencies struct {
	Log       zerolog.Logger
	Scheduler *scheduler.Scheduler
	Statuses  StatusService
}

// publish the given status (if there is a status service).
func (d Dependencies) publish(status Status) {
	if d.Statuses != nil {
		d.Statuses.PublishStatus(status)
	}
}

// objectLogger returns a logger for the object with given ID & type.
func (d Dependencies) objectLogger(id string, t ObjectType) zerolog.Logger {
	return d.Log.With().Str("object-id", id).Str("type", string(t)).Logger()
}

// onOff returns the status text of a binary state.
func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
