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

package worker

import (
	"github.com/pkg/errors"

	"github.com/homeworker/HomeWorker/model"
	"github.com/homeworker/HomeWorker/pkg/service/automation"
	"github.com/homeworker/HomeWorker/pkg/service/devices"
	"github.com/homeworker/HomeWorker/pkg/service/objects"
	"github.com/homeworker/HomeWorker/pkg/service/rfswitch"
	"github.com/homeworker/HomeWorker/pkg/service/scheduler"
)

// build creates the registry, all objects and all automations
// described by the configuration.
func (s *service) build() error {
	log := s.Log
	bus, err := s.Bridge.I2CBus()
	if err != nil {
		return errors.Wrap(err, "failed to open I2C bus")
	}
	s.sched = scheduler.New(scheduler.Config{Clock: s.Clock}, scheduler.Dependencies{Log: log})
	s.devService = devices.NewService(devices.Config{
		OnActive: s.activity.Flash,
	}, devices.Dependencies{
		Log: log,
		Bus: bus,
	})
	objService := objects.NewService(log)
	s.objService = objService
	for _, sink := range s.StatusSinks {
		objService.AddStatusSink(sink)
	}
	s.engine = automation.NewEngine(automation.Config{
		EvaluationInterval: s.EvaluationInterval,
	}, automation.Dependencies{
		Log:       log,
		Scheduler: s.sched,
	})

	if err := s.buildBoards(); err != nil {
		return err
	}
	objDeps := objects.Dependencies{
		Log:       log,
		Scheduler: s.sched,
		Statuses:  objService,
	}
	if err := s.buildObjects(objDeps); err != nil {
		return err
	}
	if err := s.buildRemoteSwitches(objDeps); err != nil {
		return err
	}
	if err := s.buildCombined(objDeps); err != nil {
		return err
	}
	return s.buildAutomations()
}

// buildBoards registers all boards.
func (s *service) buildBoards() error {
	// Boards is shadowed by the accessor of the service
	for _, b := range s.Config.Boards {
		chipType, err := b.ChipType()
		if err != nil {
			return errors.Wrapf(err, "board '%s'", b.ID)
		}
		if _, err := s.devService.RegisterBoard(b.ID, chipType, b.Address, b.Direction, b.InputPins...); err != nil {
			return errors.Wrapf(err, "board '%s'", b.ID)
		}
	}
	return nil
}

// buildObjects creates outputs, shutters & sensors.
func (s *service) buildObjects(deps objects.Dependencies) error {
	for _, o := range s.Outputs {
		obj, err := objects.NewBinaryOutput(objects.BinaryOutputConfig{
			ID:        o.ID,
			Pins:      pinRefs(o.Pins...),
			Invert:    o.Invert,
			StepDelay: o.StepDelay,
		}, s.devService, deps)
		if err != nil {
			return errors.Wrapf(err, "output '%s'", o.ID)
		}
		if err := s.objService.Add(obj); err != nil {
			return err
		}
	}
	for _, x := range s.Shutters {
		// Relays are internal to the shutter and do not report a status
		relayDeps := deps
		relayDeps.Statuses = nil
		relay := func(suffix string, pin model.Pin) (*objects.BinaryOutput, error) {
			return objects.NewBinaryOutput(objects.BinaryOutputConfig{
				ID:     x.ID + "-" + suffix,
				Pins:   pinRefs(pin),
				Invert: x.Invert,
			}, s.devService, relayDeps)
		}
		up, err := relay("up", x.Up)
		if err != nil {
			return errors.Wrapf(err, "shutter '%s'", x.ID)
		}
		down, err := relay("down", x.Down)
		if err != nil {
			return errors.Wrapf(err, "shutter '%s'", x.ID)
		}
		obj, err := objects.NewRollerShutter(objects.RollerShutterConfig{
			ID:                x.ID,
			MaxMovingDuration: x.MaxMovingDuration,
			AutoCloseAfter:    x.AutoCloseAfter,
			InitialPosition:   x.InitialPosition,
		}, up, down, deps)
		if err != nil {
			return errors.Wrapf(err, "shutter '%s'", x.ID)
		}
		if err := s.objService.Add(obj); err != nil {
			return err
		}
	}
	for _, x := range s.Buttons {
		threshold := x.LongPressThreshold
		if threshold == 0 {
			threshold = objects.DefaultLongPressThreshold
		}
		obj, err := objects.NewButton(sensorConfig(x), threshold, s.devService, deps)
		if err != nil {
			return errors.Wrapf(err, "button '%s'", x.ID)
		}
		if err := s.objService.Add(obj); err != nil {
			return err
		}
	}
	for _, x := range s.MotionDetectors {
		obj, err := objects.NewMotionDetector(sensorConfig(x), s.devService, deps)
		if err != nil {
			return errors.Wrapf(err, "motion detector '%s'", x.ID)
		}
		if err := s.objService.Add(obj); err != nil {
			return err
		}
	}
	for _, x := range s.NumericSensors {
		obj, err := objects.NewNumericSensor(objects.NumericSensorConfig{
			ID:       x.ID,
			Unit:     x.Unit,
			MinDelta: x.MinDelta,
		}, deps)
		if err != nil {
			return errors.Wrapf(err, "numeric sensor '%s'", x.ID)
		}
		if err := s.objService.Add(obj); err != nil {
			return err
		}
	}
	return nil
}

// buildRemoteSwitches creates the RF transmitter and its sockets.
// The RF pin is only opened when there are remote switches.
func (s *service) buildRemoteSwitches(deps objects.Dependencies) error {
	if len(s.RemoteSwitches) == 0 {
		return nil
	}
	if s.RFPin < 0 {
		return errors.Wrap(model.ValidationError, "remote switches need an RF pin")
	}
	pin, err := s.Bridge.RFOutput(s.RFPin)
	if err != nil {
		return errors.Wrapf(err, "failed to open RF pin %d", s.RFPin)
	}
	tx := rfswitch.NewTransmitter(rfswitch.Config{
		Repeat: s.RF.Repeat,
	}, rfswitch.Dependencies{
		Log: s.Log,
		Pin: pin,
	})
	for _, x := range s.RemoteSwitches {
		on, off, err := x.Codes()
		if err != nil {
			return err
		}
		if err := tx.Register(x.ID, on, off); err != nil {
			return errors.Wrapf(err, "remote switch '%s'", x.ID)
		}
		obj, err := rfswitch.NewSocket(x.ID, tx, deps)
		if err != nil {
			return errors.Wrapf(err, "remote switch '%s'", x.ID)
		}
		if err := s.objService.Add(obj); err != nil {
			return err
		}
	}
	return nil
}

// buildCombined creates combined actuators, members first.
func (s *service) buildCombined(deps objects.Dependencies) error {
	pending := append([]model.Combined(nil), s.Combined...)
	for len(pending) > 0 {
		var next []model.Combined
		for _, x := range pending {
			members, ready := s.actuators(x.Members)
			if !ready {
				next = append(next, x)
				continue
			}
			obj, err := objects.NewCombinedActuator(x.ID, members, deps)
			if err != nil {
				return errors.Wrapf(err, "combined actuator '%s'", x.ID)
			}
			if err := s.objService.Add(obj); err != nil {
				return err
			}
		}
		if len(next) == len(pending) {
			return errors.Wrapf(model.ValidationError, "combined actuator '%s' has unresolved members", next[0].ID)
		}
		pending = next
	}
	return nil
}

// actuators returns the binary actuators with given IDs.
// Returns false if one of them does not exist (yet).
func (s *service) actuators(ids []string) ([]objects.BinaryActuator, bool) {
	result := make([]objects.BinaryActuator, 0, len(ids))
	for _, id := range ids {
		a, err := s.objService.BinaryActuator(id)
		if err != nil {
			return nil, false
		}
		result = append(result, a)
	}
	return result, true
}

// buildAutomations creates all rules & automations.
func (s *service) buildAutomations() error {
	var oracle automation.DaylightOracle
	if s.Daylight != nil {
		var err error
		if oracle, err = s.Daylight.Oracle(); err != nil {
			return err
		}
	}
	autoDeps := automation.Dependencies{
		Log:       s.Log,
		Scheduler: s.sched,
	}
	for _, r := range s.Rules {
		target, err := s.objService.BinaryActuator(r.Target)
		if err != nil {
			return errors.Wrapf(err, "rule '%s'", r.ID)
		}
		b := automation.NewRule(r.ID).WithTarget(target).WithOnDuration(r.OnDuration)
		for _, t := range r.Triggers {
			src, err := s.objService.EventSource(t.Source)
			if err != nil {
				return errors.Wrapf(err, "rule '%s'", r.ID)
			}
			b = b.WithAnimatedTrigger(src, t.Kind, t.Animation())
		}
		if r.AtNight {
			b = b.EnabledAtNight(oracle)
		}
		if r.Between != nil {
			between, err := r.Between.Parse()
			if err != nil {
				return err
			}
			b = b.WithCondition(between)
		}
		if r.TurnOffIfAlreadyOn {
			b = b.WithTurnOffIfAlreadyOn()
		}
		if r.AnimateReversedOnRepeat {
			b = b.WithAnimateReversedOnRepeat()
		}
		rule, err := b.Build()
		if err != nil {
			return errors.Wrapf(err, "rule '%s'", r.ID)
		}
		if err := s.engine.Add(rule); err != nil {
			return err
		}
	}
	for _, a := range s.AlwaysOn {
		target, err := s.objService.BinaryActuator(a.Target)
		if err != nil {
			return errors.Wrapf(err, "always-on '%s'", a.ID)
		}
		conf := automation.AlwaysOnConfig{
			ID:     a.ID,
			Target: target,
		}
		if a.AtNight {
			conf.Night = oracle
		}
		if a.OffBetween != nil {
			r, err := a.OffBetween.Parse()
			if err != nil {
				return err
			}
			conf.OffBetween = &r
		}
		x, err := automation.NewAlwaysOn(conf, autoDeps)
		if err != nil {
			return errors.Wrapf(err, "always-on '%s'", a.ID)
		}
		if err := s.engine.AddAutomation(x); err != nil {
			return err
		}
	}
	for _, a := range s.AutomaticShutters {
		conf := automation.AutomaticRollerShuttersConfig{
			ID:     a.ID,
			Oracle: oracle,
		}
		for _, id := range a.Shutters {
			shutter, err := s.objService.RollerShutter(id)
			if err != nil {
				return errors.Wrapf(err, "automatic shutters '%s'", a.ID)
			}
			conf.Shutters = append(conf.Shutters, shutter)
		}
		openNotBefore, err := a.OpenNotBefore()
		if err != nil {
			return err
		}
		conf.DoNotOpenBefore = openNotBefore
		x, err := automation.NewAutomaticRollerShutters(conf, autoDeps)
		if err != nil {
			return errors.Wrapf(err, "automatic shutters '%s'", a.ID)
		}
		if err := s.engine.AddAutomation(x); err != nil {
			return err
		}
	}
	return nil
}

func pinRefs(pins ...model.Pin) []devices.PinRef {
	result := make([]devices.PinRef, 0, len(pins))
	for _, p := range pins {
		result = append(result, devices.PinRef{Board: p.Board, Index: p.Index})
	}
	return result
}

func sensorConfig(x model.Sensor) objects.SensorConfig {
	return objects.SensorConfig{
		ID:     x.ID,
		Pin:    pinRefs(x.Pin)[0],
		Invert: x.Invert,
	}
}
