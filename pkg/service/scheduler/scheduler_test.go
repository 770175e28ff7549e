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

package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func newManual() (*Scheduler, *ManualClock) {
	clock := NewManualClock(epoch)
	return New(Config{Clock: clock}, Dependencies{Log: zerolog.Nop()}), clock
}

type recorder struct {
	mutex sync.Mutex
	calls []string
}

func (r *recorder) add(name string) Func {
	return func(ctx context.Context) error {
		r.mutex.Lock()
		defer r.mutex.Unlock()
		r.calls = append(r.calls, name)
		return nil
	}
}

func (r *recorder) get() []string {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return append([]string(nil), r.calls...)
}

func TestOneShotOrdering(t *testing.T) {
	s, _ := newManual()
	ctx := context.Background()
	var r recorder
	s.In(time.Second * 2).Do(r.add("b"))
	s.In(time.Second).Do(r.add("a"))
	s.In(time.Second * 2).Do(r.add("c")) // Same deadline as b, registered later

	require.NoError(t, s.Advance(ctx, time.Millisecond*999))
	assert.Empty(t, r.get())
	require.NoError(t, s.Advance(ctx, time.Millisecond))
	assert.Equal(t, []string{"a"}, r.get())
	require.NoError(t, s.Advance(ctx, time.Second*5))
	assert.Equal(t, []string{"a", "b", "c"}, r.get())
}

func TestPeriodic(t *testing.T) {
	s, clock := newManual()
	ctx := context.Background()
	var times []time.Time
	j := s.Every(time.Minute).Do(func(ctx context.Context) error {
		times = append(times, s.Now())
		return nil
	})
	require.NoError(t, s.Advance(ctx, time.Minute*3+time.Second))
	assert.Equal(t, []time.Time{
		epoch.Add(time.Minute),
		epoch.Add(time.Minute * 2),
		epoch.Add(time.Minute * 3),
	}, times)
	assert.Equal(t, epoch.Add(time.Minute*3+time.Second), clock.Now())

	assert.True(t, j.Cancel())
	require.NoError(t, s.Advance(ctx, time.Minute*5))
	assert.Len(t, times, 3)
}

func TestCancel(t *testing.T) {
	s, _ := newManual()
	ctx := context.Background()
	var r recorder
	j := s.In(time.Second).Do(r.add("x"))
	assert.True(t, j.Pending())
	assert.True(t, j.Cancel())
	assert.False(t, j.Pending())
	assert.False(t, j.Cancel())
	require.NoError(t, s.Advance(ctx, time.Minute))
	assert.Empty(t, r.get())

	// Canceling after firing is a no-op
	j = s.In(time.Second).Do(r.add("y"))
	require.NoError(t, s.Advance(ctx, time.Second))
	assert.False(t, j.Cancel())
	assert.Equal(t, []string{"y"}, r.get())

	var nilJob *Job
	assert.False(t, nilJob.Cancel())
}

func TestFailuresAreIsolated(t *testing.T) {
	s, _ := newManual()
	ctx := context.Background()
	var r recorder
	s.In(time.Second).Named("panics").Do(func(ctx context.Context) error {
		panic("boom")
	})
	s.In(time.Second).Named("fails").Do(func(ctx context.Context) error {
		return errors.New("failure")
	})
	s.In(time.Second).Do(r.add("ok"))
	ticks := 0
	s.Every(time.Second).Do(func(ctx context.Context) error {
		ticks++
		return errors.New("always fails")
	})
	require.NoError(t, s.Advance(ctx, time.Second*3))
	assert.Equal(t, []string{"ok"}, r.get())
	assert.Equal(t, 3, ticks)
}

func TestJobsScheduledFromCallback(t *testing.T) {
	s, _ := newManual()
	ctx := context.Background()
	var r recorder
	s.In(time.Second).Do(func(ctx context.Context) error {
		s.Post("posted", r.add("posted"))
		s.In(time.Second).Do(r.add("later"))
		return nil
	})
	require.NoError(t, s.Advance(ctx, time.Second))
	assert.Equal(t, []string{"posted"}, r.get())
	require.NoError(t, s.Advance(ctx, time.Second))
	assert.Equal(t, []string{"posted", "later"}, r.get())
}

func TestAdvanceRequiresManualClock(t *testing.T) {
	s := New(Config{}, Dependencies{Log: zerolog.Nop()})
	assert.Equal(t, NotManualClockError, s.Advance(context.Background(), time.Second))
}

func TestRunSerializesCallbacks(t *testing.T) {
	s := New(Config{}, Dependencies{Log: zerolog.Nop()})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	var mutex sync.Mutex
	active, maxActive, count := 0, 0, 0
	finished := make(chan struct{})
	cb := func(ctx context.Context) error {
		mutex.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		mutex.Unlock()
		time.Sleep(time.Millisecond)
		mutex.Lock()
		active--
		count++
		if count == 20 {
			close(finished)
		}
		mutex.Unlock()
		return nil
	}
	for i := 0; i < 20; i++ {
		if i%2 == 0 {
			s.Post("post", cb)
		} else {
			s.In(time.Millisecond * time.Duration(i)).Do(cb)
		}
	}
	select {
	case <-finished:
	case <-time.After(time.Second * 5):
		t.Fatal("jobs did not run")
	}
	mutex.Lock()
	assert.Equal(t, 1, maxActive)
	mutex.Unlock()

	cancel()
	assert.NoError(t, <-done)
}
