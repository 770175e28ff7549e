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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homeworker/HomeWorker/pkg/service/objects"
)

func TestBuildRejectsInvalidRules(t *testing.T) {
	btn := newButton("btn")
	lamp := &fakeActuator{id: "lamp"}

	_, err := NewRule("r").WithTarget(lamp).Build()
	assert.True(t, IsInvalidArgument(err))
	_, err = NewRule("r").WithTrigger(btn, objects.PressedShort).Build()
	assert.True(t, IsInvalidArgument(err))
	_, err = NewRule("r").WithTrigger(btn, objects.MotionDetected).WithTarget(lamp).Build()
	assert.True(t, IsInvalidArgument(err))
	_, err = NewRule("r").WithTrigger(btn, objects.PressedShort).WithTarget(lamp).WithOnDuration(-time.Second).Build()
	assert.True(t, IsInvalidArgument(err))

	_, err = NewRule("r").
		WithTrigger(btn, objects.PressedShort).
		WithTarget(lamp).
		WithTurnOffIfAlreadyOn().
		WithAnimateReversedOnRepeat().
		Build()
	assert.True(t, IsConflict(err))

	// All problems are reported
	_, err = NewRule("").WithTurnOffIfAlreadyOn().WithAnimateReversedOnRepeat().Build()
	assert.True(t, IsConflict(err))
	assert.True(t, IsInvalidArgument(err))
}

func TestRuleIsImmutable(t *testing.T) {
	btn := newButton("btn")
	b := NewRule("r").WithTrigger(btn, objects.PressedShort).WithTarget(&fakeActuator{id: "lamp"})
	rule, err := b.Build()
	require.NoError(t, err)
	b.WithTrigger(btn, objects.PressedLong).WithOnDuration(time.Minute)
	assert.Len(t, rule.Triggers(), 1)
	assert.Zero(t, rule.OnDuration())

	triggers := rule.Triggers()
	triggers[0].Kind = objects.PressedLong
	assert.Equal(t, objects.PressedShort, rule.Triggers()[0].Kind)
}

func TestToggleTurnsOffImmediately(t *testing.T) {
	e, sched, _ := newTestEngine(t, noon)
	btn := newButton("btn")
	lamp := &fakeActuator{id: "lamp"}
	rule, err := NewRule("hall").
		WithTrigger(btn, objects.PressedShort).
		WithTarget(lamp).
		WithOnDuration(time.Second * 20).
		WithTurnOffIfAlreadyOn().
		Build()
	require.NoError(t, err)
	require.NoError(t, e.Add(rule))
	assert.True(t, IsDuplicateID(e.Add(rule)))
	ctx := context.Background()

	btn.fire(objects.PressedShort)
	sched.RunDue(ctx)
	assert.True(t, lamp.State())
	assert.True(t, e.IsActive("hall"))

	require.NoError(t, sched.Advance(ctx, time.Second*5))
	btn.fire(objects.PressedShort)
	sched.RunDue(ctx)
	assert.False(t, lamp.State())
	assert.False(t, e.IsActive("hall"))

	// The off timer is gone
	require.NoError(t, sched.Advance(ctx, time.Second*30))
	assert.Equal(t, []setStateCall{{On: true}, {On: false}}, lamp.Calls())
}

func TestRetriggerExtendsOnWindow(t *testing.T) {
	e, sched, _ := newTestEngine(t, noon)
	md := newMotionDetector("md")
	lamp := &fakeActuator{id: "lamp"}
	rule, err := NewRule("stairs").
		WithTrigger(md, objects.MotionDetected).
		WithTarget(lamp).
		WithOnDuration(time.Second * 20).
		WithTurnOffIfAlreadyOn().
		Build()
	require.NoError(t, err)
	require.NoError(t, e.Add(rule))
	ctx := context.Background()

	md.fire(objects.MotionDetected)
	sched.RunDue(ctx)
	assert.True(t, lamp.State())

	// Motion does not toggle, it restarts the timer
	require.NoError(t, sched.Advance(ctx, time.Second*15))
	md.fire(objects.MotionDetected)
	sched.RunDue(ctx)
	require.NoError(t, sched.Advance(ctx, time.Second*15))
	assert.True(t, lamp.State())
	require.NoError(t, sched.Advance(ctx, time.Second*5))
	assert.False(t, lamp.State())
	assert.False(t, e.IsActive("stairs"))
	assert.Len(t, lamp.Calls(), 2)
}

func TestDetectionCompletedHoldsTarget(t *testing.T) {
	e, sched, _ := newTestEngine(t, noon)
	md := newMotionDetector("md")
	lamp := &fakeActuator{id: "lamp"}
	rule, err := NewRule("stairs").
		WithTrigger(md, objects.MotionDetected).
		WithTarget(lamp).
		WithOnDuration(time.Second * 10).
		Build()
	require.NoError(t, err)
	require.NoError(t, e.Add(rule))
	ctx := context.Background()

	md.fire(objects.MotionDetected)
	sched.RunDue(ctx)
	require.NoError(t, sched.Advance(ctx, time.Second*8))
	md.fire(objects.DetectionCompleted)
	sched.RunDue(ctx)
	require.NoError(t, sched.Advance(ctx, time.Second*8))
	assert.True(t, lamp.State())
	require.NoError(t, sched.Advance(ctx, time.Second*2))
	assert.False(t, lamp.State())

	// Without an active rule, nothing happens
	md.fire(objects.DetectionCompleted)
	sched.RunDue(ctx)
	assert.False(t, lamp.State())
}

func TestNightOnlyRule(t *testing.T) {
	e, sched, clock := newTestEngine(t, noon)
	oracle, err := NewStaticDaylight(NewTimeOfDay(7, 0), NewTimeOfDay(19, 30))
	require.NoError(t, err)
	md := newMotionDetector("md")
	lamp := &fakeActuator{id: "lamp"}
	rule, err := NewRule("garden").
		WithTrigger(md, objects.MotionDetected).
		WithTarget(lamp).
		EnabledAtNight(oracle).
		WithOnDuration(time.Minute).
		Build()
	require.NoError(t, err)
	require.NoError(t, e.Add(rule))
	ctx := context.Background()

	md.fire(objects.MotionDetected)
	sched.RunDue(ctx)
	assert.Empty(t, lamp.Calls())

	clock.Set(noon.Add(time.Hour * 10))
	md.fire(objects.MotionDetected)
	sched.RunDue(ctx)
	assert.Equal(t, []setStateCall{{On: true}}, lamp.Calls())
}

func TestConditionErrorSkipsRule(t *testing.T) {
	e, sched, _ := newTestEngine(t, noon)
	btn := newButton("btn")
	lamp := &fakeActuator{id: "lamp"}
	rule, err := NewRule("r").
		WithTrigger(btn, objects.PressedLong).
		WithTarget(lamp).
		EnabledAtNight(failingOracle{}).
		Build()
	require.NoError(t, err)
	require.NoError(t, e.Add(rule))

	btn.fire(objects.PressedLong)
	sched.RunDue(context.Background())
	assert.Empty(t, lamp.Calls())
}

func TestAnimateReversedOnRepeat(t *testing.T) {
	e, sched, _ := newTestEngine(t, noon)
	btn := newButton("btn")
	lamp := &fakeActuator{id: "lamp"}
	rule, err := NewRule("stairs").
		WithTrigger(btn, objects.PressedShort).
		WithTarget(lamp).
		WithAnimateReversedOnRepeat().
		Build()
	require.NoError(t, err)
	require.NoError(t, e.Add(rule))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		btn.fire(objects.PressedShort)
		sched.RunDue(ctx)
	}
	assert.Equal(t, []setStateCall{
		{On: true, Animation: objects.Animation{Enabled: true}},
		{On: false, Animation: objects.Animation{Enabled: true, Reversed: true}},
		{On: true, Animation: objects.Animation{Enabled: true}},
	}, lamp.Calls())
}

func TestAnimatedTriggerTurnsOffReversed(t *testing.T) {
	e, sched, _ := newTestEngine(t, noon)
	md := newMotionDetector("md")
	lamp := &fakeActuator{id: "lamp"}
	rule, err := NewRule("stairs").
		WithAnimatedTrigger(md, objects.MotionDetected, objects.Animation{Enabled: true}).
		WithTarget(lamp).
		WithOnDuration(time.Second * 10).
		Build()
	require.NoError(t, err)
	require.NoError(t, e.Add(rule))
	ctx := context.Background()

	md.fire(objects.MotionDetected)
	sched.RunDue(ctx)
	require.NoError(t, sched.Advance(ctx, time.Second*10))
	assert.Equal(t, []setStateCall{
		{On: true, Animation: objects.Animation{Enabled: true}},
		{On: false, Animation: objects.Animation{Enabled: true, Reversed: true}},
	}, lamp.Calls())
}

func TestEngineEvaluatesAutomations(t *testing.T) {
	e, sched, _ := newTestEngine(t, noon)
	a := &countingAutomation{id: "a"}
	require.NoError(t, e.AddAutomation(a))
	assert.True(t, IsDuplicateID(e.AddAutomation(a)))
	ctx := context.Background()

	e.Start()
	sched.RunDue(ctx)
	assert.Equal(t, 1, a.count)
	require.NoError(t, sched.Advance(ctx, DefaultEvaluationInterval*3))
	assert.Equal(t, 4, a.count)

	e.Stop()
	require.NoError(t, sched.Advance(ctx, DefaultEvaluationInterval*3))
	assert.Equal(t, 4, a.count)
}
