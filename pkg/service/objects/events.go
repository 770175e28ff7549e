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
	"sync"
	"time"
)

// EventKind identifies the kind of event emitted by a sensor.
type EventKind string

const (
	PressedShort       EventKind = "pressed-short"
	PressedLong        EventKind = "pressed-long"
	MotionDetected     EventKind = "motion-detected"
	DetectionCompleted EventKind = "detection-completed"
)

// Event is emitted by sensors.
type Event struct {
	Source string
	Kind   EventKind
	Time   time.Time
	// How long the input was asserted (release events only)
	Duration time.Duration
}

// EventHandler is called for every event of the kind it subscribed to.
// Handlers are called from the goroutine of the sensor, in event order.
type EventHandler func(Event)

// EventSource is an object that emits events.
type EventSource interface {
	Object
	// Subscribe to events of the given kind.
	Subscribe(kind EventKind, handler EventHandler)
	// EventKinds returns the kinds of events this source emits.
	EventKinds() []EventKind
}

// eventHub keeps the handlers of an event source.
type eventHub struct {
	mutex    sync.RWMutex
	handlers map[EventKind][]EventHandler
}

// Subscribe to events of the given kind.
func (h *eventHub) Subscribe(kind EventKind, handler EventHandler) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.handlers == nil {
		h.handlers = make(map[EventKind][]EventHandler)
	}
	h.handlers[kind] = append(h.handlers[kind], handler)
}

// emit the given event to all handlers of its kind.
func (h *eventHub) emit(e Event) {
	h.mutex.RLock()
	handlers := h.handlers[e.Kind]
	h.mutex.RUnlock()
	eventsTotal.WithLabelValues(e.Source, string(e.Kind)).Inc()
	for _, handler := range handlers {
		handler(e)
	}
}
