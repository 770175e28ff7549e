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
	"time"
)

const (
	// DefaultLongPressThreshold separates short from long presses.
	DefaultLongPressThreshold = time.Second
)

var (
	_ EventSource = &Button{}
)

// Button classifies presses of a push button into short and long presses.
// The event is emitted when the button is released.
type Button struct {
	*inputSensor
	longPressThreshold time.Duration
}

// NewButton creates a new button.
func NewButton(conf SensorConfig, longPressThreshold time.Duration, subscriber PinSubscriber, deps Dependencies) (*Button, error) {
	if longPressThreshold <= 0 {
		longPressThreshold = DefaultLongPressThreshold
	}
	sensor, err := newInputSensor(conf, TypeButton, subscriber, deps)
	if err != nil {
		return nil, err
	}
	o := &Button{
		inputSensor:        sensor,
		longPressThreshold: longPressThreshold,
	}
	o.onChange = o.changed
	return o, nil
}

// EventKinds returns the kinds of events this source emits.
func (o *Button) EventKinds() []EventKind {
	return []EventKind{PressedShort, PressedLong}
}

func (o *Button) changed(pressed bool, now, pressedAt time.Time) {
	if pressed {
		return
	}
	duration := now.Sub(pressedAt)
	kind := PressedShort
	if duration >= o.longPressThreshold {
		kind = PressedLong
	}
	o.log.Debug().Str("kind", string(kind)).Dur("duration", duration).Msg("Button pressed")
	o.emit(Event{Source: o.ID(), Kind: kind, Time: now, Duration: duration})
}
