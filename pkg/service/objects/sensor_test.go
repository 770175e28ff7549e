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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homeworker/HomeWorker/pkg/service/devices"
)

// eventRecorder collects events of a source.
type eventRecorder struct {
	mutex  sync.Mutex
	events []Event
}

func (r *eventRecorder) handle(e Event) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) Events() []Event {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return append([]Event(nil), r.events...)
}

func record(src EventSource) *eventRecorder {
	r := &eventRecorder{}
	for _, kind := range src.EventKinds() {
		src.Subscribe(kind, r.handle)
	}
	return r
}

func runObject(t *testing.T, obj Object) {
	ctx, cancel := context.WithCancel(context.Background())
	go obj.Run(ctx)
	t.Cleanup(cancel)
}

func TestButtonPresses(t *testing.T) {
	dev, reg := newTestRegistry(t)
	deps, _, clock := newTestDeps()
	btn, err := NewButton(SensorConfig{ID: "hall", Pin: pin("in", 0), Invert: true}, time.Second, reg, deps)
	require.NoError(t, err)
	events := record(btn)
	runObject(t, btn)
	ctx := context.Background()

	press := func(d time.Duration) {
		dev.SetInputs(0xfffe)
		_, err := reg.PollInputs(ctx)
		require.NoError(t, err)
		require.Eventually(t, btn.Asserted, time.Second, time.Millisecond)
		assert.Equal(t, "active", btn.Status().State)
		clock.Add(d)
		dev.SetInputs(0xffff)
		_, err = reg.PollInputs(ctx)
		require.NoError(t, err)
		require.Eventually(t, func() bool { return !btn.Asserted() }, time.Second, time.Millisecond)
	}

	press(time.Millisecond * 300)
	press(time.Millisecond * 1500)

	require.Eventually(t, func() bool { return len(events.Events()) == 2 }, time.Second, time.Millisecond)
	list := events.Events()
	assert.Equal(t, PressedShort, list[0].Kind)
	assert.Equal(t, time.Millisecond*300, list[0].Duration)
	assert.Equal(t, "hall", list[0].Source)
	assert.Equal(t, PressedLong, list[1].Kind)
	assert.Equal(t, time.Millisecond*1500, list[1].Duration)
}

func TestButtonIgnoresOtherPins(t *testing.T) {
	dev, reg := newTestRegistry(t)
	deps, _, _ := newTestDeps()
	btn, err := NewButton(SensorConfig{ID: "hall", Pin: pin("in", 0), Invert: true}, 0, reg, deps)
	require.NoError(t, err)
	events := record(btn)
	runObject(t, btn)
	ctx := context.Background()

	dev.SetInputs(0xfffd)
	_, err = reg.PollInputs(ctx)
	require.NoError(t, err)
	dev.SetInputs(0xffff)
	_, err = reg.PollInputs(ctx)
	require.NoError(t, err)
	time.Sleep(time.Millisecond * 20)
	assert.False(t, btn.Asserted())
	assert.Empty(t, events.Events())
}

func TestMotionDetector(t *testing.T) {
	dev, reg := newTestRegistry(t)
	ctx := context.Background()
	dev.SetInputs(0xfff7)
	require.NoError(t, reg.Configure(ctx))
	deps, _, clock := newTestDeps()
	md, err := NewMotionDetector(SensorConfig{ID: "stairs", Pin: pin("in", 3)}, reg, deps)
	require.NoError(t, err)
	events := record(md)
	runObject(t, md)
	assert.Equal(t, "inactive", md.Status().State)

	dev.SetInputs(0xffff)
	_, err = reg.PollInputs(ctx)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(events.Events()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, MotionDetected, events.Events()[0].Kind)

	clock.Add(time.Second * 40)
	dev.SetInputs(0xfff7)
	_, err = reg.PollInputs(ctx)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(events.Events()) == 2 }, time.Second, time.Millisecond)
	e := events.Events()[1]
	assert.Equal(t, DetectionCompleted, e.Kind)
	assert.Equal(t, time.Second*40, e.Duration)
	assert.Equal(t, epoch.Add(time.Second*40), e.Time)
}

func TestMotionDetectorActiveAtStartup(t *testing.T) {
	// All inputs of the test board are high, so motion is detected from the start
	dev, reg := newTestRegistry(t)
	deps, _, clock := newTestDeps()
	md, err := NewMotionDetector(SensorConfig{ID: "stairs", Pin: pin("in", 1)}, reg, deps)
	require.NoError(t, err)
	events := record(md)
	runObject(t, md)
	ctx := context.Background()

	require.Eventually(t, md.Asserted, time.Second, time.Millisecond)
	assert.Equal(t, "active", md.Status().State)
	assert.Empty(t, events.Events())

	clock.Add(time.Second * 10)
	dev.SetInputs(0xfffd)
	_, err = reg.PollInputs(ctx)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(events.Events()) == 1 }, time.Second, time.Millisecond)
	e := events.Events()[0]
	assert.Equal(t, DetectionCompleted, e.Kind)
	assert.Equal(t, time.Second*10, e.Duration)
	assert.Equal(t, "inactive", md.Status().State)
}

func TestButtonHeldAtStartup(t *testing.T) {
	dev, reg := newTestRegistry(t)
	ctx := context.Background()
	dev.SetInputs(0xfffe)
	require.NoError(t, reg.Configure(ctx))
	deps, _, clock := newTestDeps()
	btn, err := NewButton(SensorConfig{ID: "hall", Pin: pin("in", 0), Invert: true}, time.Second, reg, deps)
	require.NoError(t, err)
	events := record(btn)
	runObject(t, btn)

	require.Eventually(t, btn.Asserted, time.Second, time.Millisecond)
	assert.Empty(t, events.Events())

	clock.Add(time.Millisecond * 1500)
	dev.SetInputs(0xffff)
	_, err = reg.PollInputs(ctx)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(events.Events()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, PressedLong, events.Events()[0].Kind)
	assert.Equal(t, time.Millisecond*1500, events.Events()[0].Duration)
}

func TestSensorRequiresInputPin(t *testing.T) {
	_, reg := newTestRegistry(t)
	deps, _, _ := newTestDeps()
	_, err := NewButton(SensorConfig{ID: "x", Pin: pin("missing", 0)}, 0, reg, deps)
	assert.True(t, IsInvalidArgument(err))
	_, err = NewMotionDetector(SensorConfig{ID: "x", Pin: devices.PinRef{Board: "in", Index: 8}}, reg, deps)
	assert.True(t, IsInvalidArgument(err))
	_, err = NewMotionDetector(SensorConfig{Pin: pin("in", 1)}, reg, deps)
	assert.True(t, IsInvalidArgument(err))
}
