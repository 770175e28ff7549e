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
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/homeworker/HomeWorker/pkg/service/objects"
	"github.com/homeworker/HomeWorker/pkg/service/scheduler"
)

// ShutterAction is a manual command for a roller shutter.
type ShutterAction string

const (
	ShutterOpen     ShutterAction = "open"
	ShutterClose    ShutterAction = "close"
	ShutterStop     ShutterAction = "stop"
	ShutterPosition ShutterAction = "position"
)

// SetActuator switches the binary actuator with given ID.
func (s *service) SetActuator(ctx context.Context, id string, on bool) error {
	target, err := s.objService.BinaryActuator(id)
	if err != nil {
		return err
	}
	return s.post(ctx, fmt.Sprintf("set-%s", id), func(ctx context.Context) error {
		return target.SetState(ctx, on, objects.Animation{})
	})
}

// MoveShutter executes a manual command on the roller shutter with given ID.
// Position is only used by ShutterPosition.
func (s *service) MoveShutter(ctx context.Context, id string, action ShutterAction, position float64) error {
	shutter, err := s.objService.RollerShutter(id)
	if err != nil {
		return err
	}
	var cb scheduler.Func
	switch action {
	case ShutterOpen:
		cb = shutter.Open
	case ShutterClose:
		cb = shutter.Close
	case ShutterStop:
		cb = shutter.Stop
	case ShutterPosition:
		cb = func(ctx context.Context) error { return shutter.SetPosition(ctx, position) }
	default:
		return objects.InvalidArgument("unknown shutter action '%s'", action)
	}
	return s.post(ctx, fmt.Sprintf("%s-%s", action, id), cb)
}

// SetReading records a reading of the numeric sensor with given ID.
func (s *service) SetReading(ctx context.Context, id string, value float64) error {
	sensor, err := s.objService.NumericSensor(id)
	if err != nil {
		return err
	}
	return sensor.SetValue(value)
}

// post runs the given callback on the scheduler and waits for its result.
func (s *service) post(ctx context.Context, name string, cb scheduler.Func) error {
	result := make(chan error, 1)
	job := s.sched.Post(name, func(ctx context.Context) error {
		err := cb(ctx)
		result <- err
		return err
	})
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		job.Cancel()
		return errors.Wrapf(ctx.Err(), "command '%s' not executed", name)
	}
}
