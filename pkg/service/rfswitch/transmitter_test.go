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

package rfswitch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homeworker/HomeWorker/pkg/service/bridge"
	"github.com/homeworker/HomeWorker/pkg/service/objects"
	"github.com/homeworker/HomeWorker/pkg/service/scheduler"
)

// waitRecorder records all waits instead of waiting.
type waitRecorder struct {
	mutex sync.Mutex
	waits []time.Duration
	after func(n int)
}

func (r *waitRecorder) Wait(d time.Duration) {
	r.mutex.Lock()
	r.waits = append(r.waits, d)
	n := len(r.waits)
	r.mutex.Unlock()
	if r.after != nil {
		r.after(n)
	}
}

func (r *waitRecorder) Total() time.Duration {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	var total time.Duration
	for _, d := range r.waits {
		total += d
	}
	return total
}

type failingPin struct{}

func (failingPin) Write(bool) error { return errors.New("gpio gone") }

func newTestTransmitter(repeat int) (*Transmitter, *bridge.VirtualPin, *waitRecorder) {
	pin := bridge.NewVirtualPin()
	rec := &waitRecorder{}
	tx := NewTransmitter(Config{Repeat: repeat}, Dependencies{Log: zerolog.Nop(), Pin: pin, Wait: rec.Wait})
	return tx, pin, rec
}

func testCodes(t *testing.T) (Code, Code) {
	on, err := Brennenstuhl(AllOn, UnitA, TurnOn)
	require.NoError(t, err)
	off, err := Brennenstuhl(AllOn, UnitA, TurnOff)
	require.NoError(t, err)
	return on, off
}

func TestSendUnknownSwitch(t *testing.T) {
	tx, pin, rec := newTestTransmitter(0)
	err := tx.Send(context.Background(), "garden", TurnOn)
	assert.True(t, IsUnknownSwitch(err))
	assert.Empty(t, pin.Writes())
	assert.Zero(t, rec.Total())
}

func TestSendRepeatsCode(t *testing.T) {
	tx, pin, rec := newTestTransmitter(0)
	on, off := testCodes(t)
	require.NoError(t, tx.Register("garden", on, off))

	require.NoError(t, tx.Send(context.Background(), "garden", TurnOn))
	writes := pin.Writes()
	require.Len(t, writes, DefaultRepeat*len(on)*2+1)
	assert.True(t, writes[0])
	assert.False(t, writes[1])
	assert.False(t, writes[len(writes)-1])
	assert.Equal(t, DefaultRepeat*on.Duration(), rec.Total())
}

func TestSendCustomRepeat(t *testing.T) {
	tx, pin, rec := newTestTransmitter(5)
	on, off := testCodes(t)
	require.NoError(t, tx.Register("garden", on, off))
	require.NoError(t, tx.Send(context.Background(), "garden", TurnOff))
	assert.Len(t, pin.Writes(), 5*len(off)*2+1)
	assert.Equal(t, 5*off.Duration(), rec.Total())
}

func TestSendStopsOnCancel(t *testing.T) {
	tx, pin, rec := newTestTransmitter(0)
	on, off := testCodes(t)
	require.NoError(t, tx.Register("garden", on, off))

	ctx, cancel := context.WithCancel(context.Background())
	rec.after = func(n int) {
		if n == 10 {
			cancel()
		}
	}
	err := tx.Send(ctx, "garden", TurnOn)
	assert.Error(t, err)
	writes := pin.Writes()
	assert.Len(t, writes, 11)
	assert.False(t, writes[len(writes)-1])
}

func TestSendPinFailure(t *testing.T) {
	tx := NewTransmitter(Config{}, Dependencies{Log: zerolog.Nop(), Pin: failingPin{}, Wait: func(time.Duration) {}})
	on, off := testCodes(t)
	require.NoError(t, tx.Register("garden", on, off))
	assert.Error(t, tx.Send(context.Background(), "garden", TurnOn))
}

func TestRegister(t *testing.T) {
	tx, _, rec := newTestTransmitter(1)
	on, off := testCodes(t)
	require.NoError(t, tx.Register("b", on, off))
	require.NoError(t, tx.Register("a", on, off))
	assert.True(t, IsDuplicateSwitch(tx.Register("a", on, off)))
	assert.True(t, IsInvalidArgument(tx.Register("", on, off)))
	assert.True(t, IsInvalidArgument(tx.Register("c", on, nil)))
	assert.Equal(t, []string{"a", "b"}, tx.Switches())

	// Registered codes are immutable
	expected := on.Duration()
	on[0] = Pulse{High: time.Second, Low: time.Second}
	require.NoError(t, tx.Send(context.Background(), "a", TurnOn))
	assert.Equal(t, expected, rec.Total())
}

func TestSocket(t *testing.T) {
	tx, pin, _ := newTestTransmitter(1)
	on, off := testCodes(t)
	require.NoError(t, tx.Register("lamp", on, off))
	clock := scheduler.NewManualClock(time.Date(2026, 6, 1, 20, 0, 0, 0, time.UTC))
	sched := scheduler.New(scheduler.Config{Clock: clock}, scheduler.Dependencies{Log: zerolog.Nop()})
	s, err := NewSocket("lamp", tx, objects.Dependencies{Log: zerolog.Nop(), Scheduler: sched})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Configure(ctx))
	assert.False(t, s.State())
	clock.Add(time.Minute)
	require.NoError(t, s.SetState(ctx, true, objects.Animation{}))
	assert.True(t, s.State())
	assert.Equal(t, "on", s.Status().State)
	assert.Equal(t, clock.Now(), s.Status().Since)
	assert.Len(t, pin.Writes(), 2*(len(off)*2+1))

	// Unknown switch
	other, err := NewSocket("other", tx, objects.Dependencies{Log: zerolog.Nop(), Scheduler: sched})
	require.NoError(t, err)
	assert.True(t, IsUnknownSwitch(other.SetState(ctx, true, objects.Animation{})))
}
