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

var (
	_ EventSource = &MotionDetector{}
)

// MotionDetector reports the start and end of a detected motion.
type MotionDetector struct {
	*inputSensor
}

// NewMotionDetector creates a new motion detector.
func NewMotionDetector(conf SensorConfig, subscriber PinSubscriber, deps Dependencies) (*MotionDetector, error) {
	sensor, err := newInputSensor(conf, TypeMotionDetector, subscriber, deps)
	if err != nil {
		return nil, err
	}
	o := &MotionDetector{inputSensor: sensor}
	o.onChange = o.changed
	return o, nil
}

// EventKinds returns the kinds of events this source emits.
func (o *MotionDetector) EventKinds() []EventKind {
	return []EventKind{MotionDetected, DetectionCompleted}
}

func (o *MotionDetector) changed(detected bool, now, since time.Time) {
	if detected {
		o.emit(Event{Source: o.ID(), Kind: MotionDetected, Time: now})
	} else {
		o.emit(Event{Source: o.ID(), Kind: DetectionCompleted, Time: now, Duration: now.Sub(since)})
	}
}
