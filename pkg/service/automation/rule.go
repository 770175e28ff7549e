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
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"

	"github.com/homeworker/HomeWorker/pkg/service/objects"
)

// Trigger is an event of a source that activates a rule.
type Trigger struct {
	Source objects.EventSource
	Kind   objects.EventKind
	// Animation used when this trigger turns the target on
	Animation objects.Animation
}

// toggles returns true for triggers that are pressed on purpose,
// as opposed to motion.
func (t Trigger) toggles() bool {
	return t.Kind == objects.PressedShort || t.Kind == objects.PressedLong
}

// Rule is an immutable automation rule: when one of its triggers
// fires and all conditions hold, its target is turned on.
type Rule struct {
	id                      string
	triggers                []Trigger
	conditions              []Condition
	target                  objects.BinaryActuator
	onDuration              time.Duration
	turnOffIfAlreadyOn      bool
	animateReversedOnRepeat bool
}

// ID returns the unique identifier of the rule.
func (r Rule) ID() string { return r.id }

// Triggers returns a copy of the triggers of the rule.
func (r Rule) Triggers() []Trigger { return append([]Trigger(nil), r.triggers...) }

// Conditions returns a copy of the conditions of the rule.
func (r Rule) Conditions() []Condition { return append([]Condition(nil), r.conditions...) }

// Target returns the actuator controlled by the rule.
func (r Rule) Target() objects.BinaryActuator { return r.target }

// OnDuration returns how long the target stays on (0 means until turned off).
func (r Rule) OnDuration() time.Duration { return r.onDuration }

// TurnOffIfAlreadyOn returns true when a button press turns an active target off.
func (r Rule) TurnOffIfAlreadyOn() bool { return r.turnOffIfAlreadyOn }

// AnimateReversedOnRepeat returns true when button presses toggle the
// target with a forward animation on and a reversed animation off.
func (r Rule) AnimateReversedOnRepeat() bool { return r.animateReversedOnRepeat }

// RuleBuilder collects the options of a rule.
type RuleBuilder struct {
	rule Rule
}

// NewRule starts building a rule with given ID.
func NewRule(id string) *RuleBuilder {
	return &RuleBuilder{rule: Rule{id: id}}
}

// WithTrigger adds a trigger.
func (b *RuleBuilder) WithTrigger(source objects.EventSource, kind objects.EventKind) *RuleBuilder {
	return b.WithAnimatedTrigger(source, kind, objects.Animation{})
}

// WithAnimatedTrigger adds a trigger that turns the target on with given animation.
func (b *RuleBuilder) WithAnimatedTrigger(source objects.EventSource, kind objects.EventKind, animation objects.Animation) *RuleBuilder {
	b.rule.triggers = append(b.rule.triggers, Trigger{Source: source, Kind: kind, Animation: animation})
	return b
}

// WithCondition adds a condition.
func (b *RuleBuilder) WithCondition(c Condition) *RuleBuilder {
	b.rule.conditions = append(b.rule.conditions, c)
	return b
}

// EnabledAtNight only enables the rule between sunset and sunrise.
func (b *RuleBuilder) EnabledAtNight(oracle DaylightOracle) *RuleBuilder {
	return b.WithCondition(Night(oracle))
}

// WithTarget sets the actuator controlled by the rule.
func (b *RuleBuilder) WithTarget(target objects.BinaryActuator) *RuleBuilder {
	b.rule.target = target
	return b
}

// WithOnDuration turns the target off again after the given duration.
func (b *RuleBuilder) WithOnDuration(d time.Duration) *RuleBuilder {
	b.rule.onDuration = d
	return b
}

// WithTurnOffIfAlreadyOn makes a button press turn an active target off.
func (b *RuleBuilder) WithTurnOffIfAlreadyOn() *RuleBuilder {
	b.rule.turnOffIfAlreadyOn = true
	return b
}

// WithAnimateReversedOnRepeat makes button presses toggle the target,
// animated forward when turning on and reversed when turning off.
func (b *RuleBuilder) WithAnimateReversedOnRepeat() *RuleBuilder {
	b.rule.animateReversedOnRepeat = true
	return b
}

// Build validates the options and returns the rule.
func (b *RuleBuilder) Build() (Rule, error) {
	r := b.rule
	var err error
	if r.id == "" {
		err = multierr.Append(err, errors.Wrap(InvalidArgumentError, "rule without ID"))
	}
	if len(r.triggers) == 0 {
		err = multierr.Append(err, errors.Wrapf(InvalidArgumentError, "rule '%s' has no triggers", r.id))
	}
	for _, t := range r.triggers {
		if t.Source == nil {
			err = multierr.Append(err, errors.Wrapf(InvalidArgumentError, "rule '%s' has a trigger without source", r.id))
		} else if !lo.Contains(t.Source.EventKinds(), t.Kind) {
			err = multierr.Append(err, errors.Wrapf(InvalidArgumentError, "rule '%s': %s '%s' does not emit '%s'", r.id, t.Source.Type(), t.Source.ID(), t.Kind))
		}
	}
	for _, c := range r.conditions {
		if c == nil {
			err = multierr.Append(err, errors.Wrapf(InvalidArgumentError, "rule '%s' has a nil condition", r.id))
		}
	}
	if r.target == nil {
		err = multierr.Append(err, errors.Wrapf(InvalidArgumentError, "rule '%s' has no target", r.id))
	}
	if r.onDuration < 0 {
		err = multierr.Append(err, errors.Wrapf(InvalidArgumentError, "rule '%s' has a negative on duration", r.id))
	}
	if r.turnOffIfAlreadyOn && r.animateReversedOnRepeat {
		err = multierr.Append(err, errors.Wrapf(ConflictError, "rule '%s' cannot both turn off if already on and animate reversed on repeat", r.id))
	}
	if err != nil {
		return Rule{}, err
	}
	r.triggers = r.Triggers()
	r.conditions = r.Conditions()
	return r, nil
}
