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
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/homeworker/HomeWorker/pkg/service/objects"
	"github.com/homeworker/HomeWorker/pkg/service/scheduler"
)

const (
	// DefaultEvaluationInterval is the interval at which automations
	// are re-evaluated.
	DefaultEvaluationInterval = time.Minute
)

// Automation is re-evaluated periodically on the scheduler.
type Automation interface {
	ID() string
	Evaluate(ctx context.Context) error
}

// Config of the engine.
type Config struct {
	// Interval between 2 evaluations of automations
	EvaluationInterval time.Duration
}

// Dependencies of the engine.
type Dependencies struct {
	Log       zerolog.Logger
	Scheduler *scheduler.Scheduler
}

// Engine runs rules and automations.
// Rules are triggered from the goroutine of the event source, their
// conditions are evaluated there and their actions are posted to the
// scheduler. All actions and automations run on the scheduler.
type Engine struct {
	Config
	Dependencies
	log zerolog.Logger

	mutex       sync.RWMutex
	rules       map[string]*ruleInstance
	automations map[string]Automation
	jobs        []*scheduler.Job
}

// NewEngine creates a new engine.
func NewEngine(conf Config, deps Dependencies) *Engine {
	if conf.EvaluationInterval <= 0 {
		conf.EvaluationInterval = DefaultEvaluationInterval
	}
	return &Engine{
		Config:       conf,
		Dependencies: deps,
		log:          deps.Log.With().Str("component", "automation").Logger(),
		rules:        make(map[string]*ruleInstance),
		automations:  make(map[string]Automation),
	}
}

// Add a rule and subscribe to its triggers.
func (e *Engine) Add(rule Rule) error {
	if rule.id == "" || rule.target == nil {
		return errors.Wrap(InvalidArgumentError, "rule is not built")
	}
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if _, found := e.rules[rule.id]; found {
		return errors.Wrapf(DuplicateIDError, "rule '%s'", rule.id)
	}
	inst := &ruleInstance{
		rule:  rule,
		sched: e.Scheduler,
		log:   e.log.With().Str("rule-id", rule.id).Logger(),
	}
	e.rules[rule.id] = inst
	for _, t := range rule.triggers {
		t := t
		t.Source.Subscribe(t.Kind, func(ev objects.Event) { inst.trigger(t, ev) })
		if t.Kind == objects.MotionDetected {
			// Keep the target on while motion lasts
			t.Source.Subscribe(objects.DetectionCompleted, func(ev objects.Event) { inst.hold(ev) })
		}
	}
	rulesTotal.Set(float64(len(e.rules)))
	inst.log.Debug().
		Int("triggers", len(rule.triggers)).
		Str("target", rule.target.ID()).
		Msg("Added rule")
	return nil
}

// AddAutomation adds an automation that is evaluated periodically
// once the engine runs.
func (e *Engine) AddAutomation(a Automation) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if _, found := e.automations[a.ID()]; found {
		return errors.Wrapf(DuplicateIDError, "automation '%s'", a.ID())
	}
	e.automations[a.ID()] = a
	return nil
}

// Rules returns all rules, sorted by ID.
func (e *Engine) Rules() []Rule {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	ids := lo.Keys(e.rules)
	sort.Strings(ids)
	return lo.Map(ids, func(id string, _ int) Rule { return e.rules[id].rule })
}

// IsActive returns true when the rule with given ID turned its target
// on and is waiting for its off timer.
func (e *Engine) IsActive(id string) bool {
	e.mutex.RLock()
	inst, found := e.rules[id]
	e.mutex.RUnlock()
	return found && inst.isActive()
}

// Start schedules the evaluation of all automations: once now and
// then every EvaluationInterval.
func (e *Engine) Start() {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	ids := lo.Keys(e.automations)
	sort.Strings(ids)
	for _, id := range ids {
		a := e.automations[id]
		evaluate := func(ctx context.Context) error {
			evaluationsTotal.WithLabelValues(a.ID()).Inc()
			return a.Evaluate(ctx)
		}
		e.jobs = append(e.jobs,
			e.Scheduler.Post(id+"-initial", evaluate),
			e.Scheduler.Every(e.EvaluationInterval).Named(id).Do(evaluate))
	}
	e.log.Info().
		Int("rules", len(e.rules)).
		Int("automations", len(e.automations)).
		Msg("Started automation")
}

// Stop cancels all pending jobs of the engine.
func (e *Engine) Stop() {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	for _, j := range e.jobs {
		j.Cancel()
	}
	e.jobs = nil
	for _, inst := range e.rules {
		inst.cancelTimer()
	}
}

// Run starts the engine and stops it when the given context is canceled.
func (e *Engine) Run(ctx context.Context) error {
	e.Start()
	<-ctx.Done()
	e.Stop()
	return nil
}
