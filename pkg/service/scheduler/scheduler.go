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
	"container/heap"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

var (
	// NotManualClockError is returned by Advance when the scheduler runs on another clock.
	NotManualClockError = errors.New("scheduler does not use a manual clock")
)

// Func is the callback of a job.
type Func func(ctx context.Context) error

// Config of the scheduler.
type Config struct {
	// Clock used for deadlines. Defaults to the system clock.
	Clock Clock
}

// Dependencies of the scheduler.
type Dependencies struct {
	Log zerolog.Logger
}

// Scheduler runs periodic and one-shot jobs.
// All callbacks run serialized, one at a time, in deadline order
// (ties in registration order).
type Scheduler struct {
	log   zerolog.Logger
	clock Clock

	mutex sync.Mutex
	queue jobQueue
	seq   uint64
	wake  chan struct{}

	runMutex sync.Mutex // Held while executing callbacks
}

// New creates a new scheduler.
func New(conf Config, deps Dependencies) *Scheduler {
	if conf.Clock == nil {
		conf.Clock = SystemClock{}
	}
	return &Scheduler{
		log:   deps.Log.With().Str("component", "scheduler").Logger(),
		clock: conf.Clock,
		wake:  make(chan struct{}, 1),
	}
}

// Now returns the current time of the scheduler clock.
func (s *Scheduler) Now() time.Time {
	return s.clock.Now()
}

// Every prepares a periodic job with the given interval.
func (s *Scheduler) Every(interval time.Duration) Schedule {
	return Schedule{s: s, delay: interval, interval: interval}
}

// In prepares a one-shot job that fires after the given delay.
func (s *Scheduler) In(delay time.Duration) Schedule {
	return Schedule{s: s, delay: delay}
}

// Post runs the given callback as soon as possible on the scheduler.
func (s *Scheduler) Post(name string, cb Func) *Job {
	return s.In(0).Named(name).Do(cb)
}

// Schedule describes when a job must run.
type Schedule struct {
	s        *Scheduler
	name     string
	delay    time.Duration
	interval time.Duration
}

// Named sets the name of the job, used in logs and metrics.
func (sc Schedule) Named(name string) Schedule {
	sc.name = name
	return sc
}

// Do registers the given callback.
func (sc Schedule) Do(cb Func) *Job {
	s := sc.s
	if sc.delay < 0 {
		sc.delay = 0
	}
	s.mutex.Lock()
	s.seq++
	j := &Job{
		s:        s,
		name:     sc.name,
		seq:      s.seq,
		interval: sc.interval,
		deadline: s.clock.Now().Add(sc.delay),
		cb:       cb,
		index:    -1,
	}
	if j.name == "" {
		j.name = fmt.Sprintf("job-%d", j.seq)
	}
	heap.Push(&s.queue, j)
	first := s.queue[0] == j
	jobsPending.Set(float64(len(s.queue)))
	s.mutex.Unlock()

	if first {
		s.signal()
	}
	return j
}

// Job is a registered callback.
type Job struct {
	s        *Scheduler
	name     string
	seq      uint64
	interval time.Duration // Zero for one-shot jobs
	deadline time.Time
	cb       Func
	index    int // Index in the queue, -1 when not queued
}

// Name of the job
func (j *Job) Name() string { return j.name }

// Deadline returns the time at which the job will (next) fire.
func (j *Job) Deadline() time.Time {
	j.s.mutex.Lock()
	defer j.s.mutex.Unlock()
	return j.deadline
}

// Pending returns true when the job will still fire.
func (j *Job) Pending() bool {
	j.s.mutex.Lock()
	defer j.s.mutex.Unlock()
	return j.index >= 0
}

// Cancel removes the job from the scheduler.
// Returns true when the job was pending. Canceling a job that has
// already fired is a no-op.
// A periodic job canceled from its own callback is not rescheduled.
func (j *Job) Cancel() bool {
	if j == nil {
		return false
	}
	s := j.s
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if j.index < 0 {
		return false
	}
	heap.Remove(&s.queue, j.index)
	jobsPending.Set(float64(len(s.queue)))
	return true
}

// Run executes jobs until the given context is canceled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Debug().Msg("Started scheduler")
	defer s.log.Debug().Msg("Stopped scheduler")

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	for {
		s.RunDue(ctx)

		wait := time.Hour
		s.mutex.Lock()
		if len(s.queue) > 0 {
			wait = s.queue[0].deadline.Sub(s.clock.Now())
		}
		s.mutex.Unlock()
		if wait < 0 {
			wait = 0
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			return nil
		case <-s.wake:
		case <-timer.C:
		}
	}
}

// RunDue executes all jobs whose deadline has passed.
// Returns the number of executed jobs.
func (s *Scheduler) RunDue(ctx context.Context) int {
	s.runMutex.Lock()
	defer s.runMutex.Unlock()

	count := 0
	for ctx.Err() == nil {
		j := s.popDue()
		if j == nil {
			return count
		}
		s.execute(ctx, j)
		count++
	}
	return count
}

// Advance moves a manual clock forward by d, executing every job
// that becomes due with the clock set to its deadline.
func (s *Scheduler) Advance(ctx context.Context, d time.Duration) error {
	clock, ok := s.clock.(*ManualClock)
	if !ok {
		return NotManualClockError
	}
	target := clock.Now().Add(d)
	for ctx.Err() == nil {
		s.mutex.Lock()
		var next time.Time
		found := len(s.queue) > 0
		if found {
			next = s.queue[0].deadline
		}
		s.mutex.Unlock()
		if !found || next.After(target) {
			break
		}
		if next.After(clock.Now()) {
			clock.Set(next)
		}
		s.RunDue(ctx)
	}
	clock.Set(target)
	s.RunDue(ctx)
	return nil
}

// popDue removes the first job from the queue when it is due.
// Periodic jobs are put back with their next deadline.
func (s *Scheduler) popDue() *Job {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if len(s.queue) == 0 {
		return nil
	}
	now := s.clock.Now()
	j := s.queue[0]
	if j.deadline.After(now) {
		return nil
	}
	kind := "once"
	if j.interval > 0 {
		kind = "periodic"
	}
	jobLateness.WithLabelValues(kind).Observe(now.Sub(j.deadline).Seconds())
	heap.Pop(&s.queue)
	if j.interval > 0 {
		j.deadline = j.deadline.Add(j.interval)
		if !j.deadline.After(now) {
			// Skip missed ticks
			j.deadline = now.Add(j.interval)
		}
		heap.Push(&s.queue, j)
	}
	jobsPending.Set(float64(len(s.queue)))
	return j
}

// execute a single job, isolating failures.
func (s *Scheduler) execute(ctx context.Context, j *Job) {
	defer func() {
		if r := recover(); r != nil {
			jobPanicsTotal.WithLabelValues(j.name).Inc()
			s.log.Error().Str("job", j.name).Interface("panic", r).Msg("Job panicked")
		}
	}()
	jobsExecutedTotal.Inc()
	if err := j.cb(ctx); err != nil {
		jobErrorsTotal.WithLabelValues(j.name).Inc()
		s.log.Warn().Err(err).Str("job", j.name).Msg("Job failed")
	}
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// jobQueue implements heap.Interface ordered by deadline, then registration.
type jobQueue []*Job

func (q jobQueue) Len() int { return len(q) }

func (q jobQueue) Less(i, j int) bool {
	if q[i].deadline.Equal(q[j].deadline) {
		return q[i].seq < q[j].seq
	}
	return q[i].deadline.Before(q[j].deadline)
}

func (q jobQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *jobQueue) Push(x interface{}) {
	j := x.(*Job)
	j.index = len(*q)
	*q = append(*q, j)
}

func (q *jobQueue) Pop() interface{} {
	old := *q
	n := len(old)
	j := old[n-1]
	old[n-1] = nil
	j.index = -1
	*q = old[:n-1]
	return j
}
