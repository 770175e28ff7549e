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
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/homeworker/HomeWorker/pkg/service/objects"
	"github.com/homeworker/HomeWorker/pkg/service/scheduler"
)

var noon = time.Date(2026, 4, 15, 12, 0, 0, 0, time.UTC)

// fakeSource is an event source that fires on request.
type fakeSource struct {
	id    string
	kinds []objects.EventKind

	mutex    sync.Mutex
	handlers map[objects.EventKind][]objects.EventHandler
}

func newButton(id string) *fakeSource {
	return &fakeSource{id: id, kinds: []objects.EventKind{objects.PressedShort, objects.PressedLong}}
}

func newMotionDetector(id string) *fakeSource {
	return &fakeSource{id: id, kinds: []objects.EventKind{objects.MotionDetected, objects.DetectionCompleted}}
}

func (s *fakeSource) ID() string                          { return s.id }
func (s *fakeSource) Type() objects.ObjectType            { return objects.TypeButton }
func (s *fakeSource) Configure(ctx context.Context) error { return nil }
func (s *fakeSource) Run(ctx context.Context) error       { <-ctx.Done(); return nil }
func (s *fakeSource) Status() objects.Status              { return objects.Status{ID: s.id} }
func (s *fakeSource) EventKinds() []objects.EventKind     { return s.kinds }

func (s *fakeSource) Subscribe(kind objects.EventKind, handler objects.EventHandler) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.handlers == nil {
		s.handlers = make(map[objects.EventKind][]objects.EventHandler)
	}
	s.handlers[kind] = append(s.handlers[kind], handler)
}

func (s *fakeSource) fire(kind objects.EventKind) {
	s.mutex.Lock()
	handlers := s.handlers[kind]
	s.mutex.Unlock()
	for _, h := range handlers {
		h(objects.Event{Source: s.id, Kind: kind})
	}
}

type setStateCall struct {
	On        bool
	Animation objects.Animation
}

// fakeActuator records all SetState calls.
type fakeActuator struct {
	id    string
	mutex sync.Mutex
	on    bool
	calls []setStateCall
}

func (a *fakeActuator) ID() string                          { return a.id }
func (a *fakeActuator) Type() objects.ObjectType            { return objects.TypeBinaryOutput }
func (a *fakeActuator) Configure(ctx context.Context) error { return nil }
func (a *fakeActuator) Run(ctx context.Context) error       { <-ctx.Done(); return nil }
func (a *fakeActuator) Status() objects.Status              { return objects.Status{ID: a.id} }

func (a *fakeActuator) SetState(ctx context.Context, on bool, animation objects.Animation) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.on = on
	a.calls = append(a.calls, setStateCall{On: on, Animation: animation})
	return nil
}

func (a *fakeActuator) State() bool {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.on
}

func (a *fakeActuator) Calls() []setStateCall {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return append([]setStateCall(nil), a.calls...)
}

type failingOracle struct{}

func (failingOracle) Daylight(now time.Time) (Daylight, error) {
	return Daylight{}, errors.New("weather station offline")
}

// countingAutomation counts its evaluations.
type countingAutomation struct {
	id    string
	count int
}

func (a *countingAutomation) ID() string { return a.id }
func (a *countingAutomation) Evaluate(ctx context.Context) error {
	a.count++
	return nil
}

func newTestEngine(t *testing.T, start time.Time) (*Engine, *scheduler.Scheduler, *scheduler.ManualClock) {
	clock := scheduler.NewManualClock(start)
	sched := scheduler.New(scheduler.Config{Clock: clock}, scheduler.Dependencies{Log: zerolog.Nop()})
	e := NewEngine(Config{}, Dependencies{Log: zerolog.Nop(), Scheduler: sched})
	t.Cleanup(e.Stop)
	return e, sched, clock
}

func mustTimeOfDay(t *testing.T, s string) TimeOfDay {
	tod, err := ParseTimeOfDay(s)
	require.NoError(t, err)
	return tod
}
