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

	"github.com/rs/zerolog"

	"github.com/homeworker/HomeWorker/pkg/service/objects"
	"github.com/homeworker/HomeWorker/pkg/service/scheduler"
)

// ruleInstance is the runtime state of a rule.
// State changes happen on the scheduler only.
type ruleInstance struct {
	rule  Rule
	sched *scheduler.Scheduler
	log   zerolog.Logger

	mutex        sync.Mutex
	active       bool
	offTimer     *scheduler.Job
	offAnimation objects.Animation
}

// trigger is called by the event source of a trigger.
// Conditions are evaluated now, the action runs on the scheduler.
func (r *ruleInstance) trigger(t Trigger, ev objects.Event) {
	id := r.rule.id
	triggersTotal.WithLabelValues(id).Inc()
	log := r.log.With().Str("source", ev.Source).Str("kind", string(ev.Kind)).Logger()
	now := r.sched.Now()
	for _, c := range r.rule.conditions {
		ok, err := c.Evaluate(now)
		if err != nil {
			conditionErrorsTotal.WithLabelValues(id).Inc()
			log.Warn().Err(err).Str("condition", c.String()).Msg("Failed to evaluate condition")
		}
		if !ok {
			triggersSkippedTotal.WithLabelValues(id).Inc()
			log.Debug().Str("condition", c.String()).Msg("Condition does not hold, skipping trigger")
			return
		}
	}
	r.sched.Post(id+"-trigger", func(ctx context.Context) error {
		return r.apply(ctx, t)
	})
}

// hold restarts the off timer of an active rule.
func (r *ruleInstance) hold(ev objects.Event) {
	r.sched.Post(r.rule.id+"-hold", func(ctx context.Context) error {
		r.mutex.Lock()
		defer r.mutex.Unlock()
		if r.active && r.offTimer != nil {
			r.restartTimerLocked()
		}
		return nil
	})
}

// apply the action of a trigger that passed all conditions.
func (r *ruleInstance) apply(ctx context.Context, t Trigger) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	rule := r.rule
	on := rule.target.State()
	switch {
	case rule.animateReversedOnRepeat && t.toggles():
		if on {
			return r.turnOffLocked(ctx, objects.Animation{Enabled: true, Reversed: true})
		}
		return r.turnOnLocked(ctx, objects.Animation{Enabled: true})
	case rule.turnOffIfAlreadyOn && t.toggles() && on:
		return r.turnOffLocked(ctx, t.Animation)
	case on && r.active:
		// Latest trigger wins
		r.restartTimerLocked()
		actionsTotal.WithLabelValues(rule.id, "extend").Inc()
		return nil
	default:
		return r.turnOnLocked(ctx, t.Animation)
	}
}

func (r *ruleInstance) turnOnLocked(ctx context.Context, animation objects.Animation) error {
	r.log.Debug().Bool("animated", animation.Enabled).Msg("Turning target on")
	actionsTotal.WithLabelValues(r.rule.id, "on").Inc()
	r.cancelTimerLocked()
	if err := r.rule.target.SetState(ctx, true, animation); err != nil {
		return err
	}
	if r.rule.onDuration > 0 {
		r.active = true
		r.offAnimation = animation
		if animation.Enabled {
			r.offAnimation.Reversed = !animation.Reversed
		}
		r.restartTimerLocked()
	} else {
		r.active = false
	}
	return nil
}

func (r *ruleInstance) turnOffLocked(ctx context.Context, animation objects.Animation) error {
	r.log.Debug().Bool("animated", animation.Enabled).Msg("Turning target off")
	actionsTotal.WithLabelValues(r.rule.id, "off").Inc()
	r.cancelTimerLocked()
	r.active = false
	return r.rule.target.SetState(ctx, false, animation)
}

// restartTimerLocked (re)schedules the off timer.
func (r *ruleInstance) restartTimerLocked() {
	r.offTimer.Cancel()
	r.offTimer = r.sched.In(r.rule.onDuration).Named(r.rule.id+"-off").Do(r.expire)
}

// expire is called by the off timer.
func (r *ruleInstance) expire(ctx context.Context) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.offTimer = nil
	if !r.active {
		return nil
	}
	return r.turnOffLocked(ctx, r.offAnimation)
}

func (r *ruleInstance) cancelTimer() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.cancelTimerLocked()
}

func (r *ruleInstance) cancelTimerLocked() {
	r.offTimer.Cancel()
	r.offTimer = nil
}

func (r *ruleInstance) isActive() bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.active
}
