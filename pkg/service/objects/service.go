// Copyright 2020 Ewout Prangsma
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
	"sort"
	"sync"
	"sync/atomic"
	"time"

	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// Service contains the API that is exposed by the object service.
type Service interface {
	StatusService
	// Add an object to the service.
	Add(obj Object) error
	// Object returns the object with given ID.
	Object(id string) (Object, error)
	// BinaryActuator returns the binary actuator with given ID.
	BinaryActuator(id string) (BinaryActuator, error)
	// RollerShutter returns the roller shutter with given ID.
	RollerShutter(id string) (*RollerShutter, error)
	// NumericSensor returns the numeric sensor with given ID.
	NumericSensor(id string) (*NumericSensor, error)
	// EventSource returns the event source with given ID.
	EventSource(id string) (EventSource, error)
	// Objects returns all objects, sorted by ID.
	Objects() []Object
	// Statuses returns the status of all objects, sorted by ID.
	Statuses() []Status
	// AddStatusSink adds a sink that receives every status change.
	AddStatusSink(sink StatusSink)
	// Configure is called once to put all objects in the desired state.
	Configure(ctx context.Context) error
	// Run all objects until the given context is cancelled.
	Run(ctx context.Context) error
}

type service struct {
	log      zerolog.Logger
	statuses *statusService

	mutex   sync.RWMutex
	objects map[string]Object
}

// NewService instantiates a new object service.
func NewService(log zerolog.Logger) Service {
	log = log.With().Str("component", "object-service").Logger()
	return &service{
		log:      log,
		statuses: newStatusService(log),
		objects:  make(map[string]Object),
	}
}

// Add an object to the service.
func (s *service) Add(obj Object) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	id := obj.ID()
	if _, found := s.objects[id]; found {
		return errors.Wrapf(DuplicateIDError, "object '%s'", id)
	}
	s.objects[id] = obj
	objectsCreatedTotal.Set(float64(len(s.objects)))
	s.log.Debug().Str("object-id", id).Str("type", string(obj.Type())).Msg("Added object")
	return nil
}

// Object returns the object with given ID.
func (s *service) Object(id string) (Object, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if obj, found := s.objects[id]; found {
		return obj, nil
	}
	return nil, errors.Wrapf(NotFoundError, "object '%s'", id)
}

// BinaryActuator returns the binary actuator with given ID.
func (s *service) BinaryActuator(id string) (BinaryActuator, error) {
	obj, err := s.Object(id)
	if err != nil {
		return nil, err
	}
	if a, ok := obj.(BinaryActuator); ok {
		return a, nil
	}
	return nil, InvalidArgument("object '%s' is a %s, not a binary actuator", id, obj.Type())
}

// RollerShutter returns the roller shutter with given ID.
func (s *service) RollerShutter(id string) (*RollerShutter, error) {
	obj, err := s.Object(id)
	if err != nil {
		return nil, err
	}
	if rs, ok := obj.(*RollerShutter); ok {
		return rs, nil
	}
	return nil, InvalidArgument("object '%s' is a %s, not a roller shutter", id, obj.Type())
}

// NumericSensor returns the numeric sensor with given ID.
func (s *service) NumericSensor(id string) (*NumericSensor, error) {
	obj, err := s.Object(id)
	if err != nil {
		return nil, err
	}
	if ns, ok := obj.(*NumericSensor); ok {
		return ns, nil
	}
	return nil, InvalidArgument("object '%s' is a %s, not a numeric sensor", id, obj.Type())
}

// EventSource returns the event source with given ID.
func (s *service) EventSource(id string) (EventSource, error) {
	obj, err := s.Object(id)
	if err != nil {
		return nil, err
	}
	if es, ok := obj.(EventSource); ok {
		return es, nil
	}
	return nil, InvalidArgument("object '%s' is a %s, not an event source", id, obj.Type())
}

// Objects returns all objects, sorted by ID.
func (s *service) Objects() []Object {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	ids := lo.Keys(s.objects)
	sort.Strings(ids)
	return lo.Map(ids, func(id string, _ int) Object { return s.objects[id] })
}

// Statuses returns the status of all objects, sorted by ID.
func (s *service) Statuses() []Status {
	return lo.Map(s.Objects(), func(obj Object, _ int) Status { return obj.Status() })
}

// PublishStatus queues a status update for all sinks.
func (s *service) PublishStatus(status Status) {
	s.statuses.PublishStatus(status)
}

// AddStatusSink adds a sink that receives every status change.
func (s *service) AddStatusSink(sink StatusSink) {
	s.statuses.AddSink(sink)
}

// Configure is called once to put all objects in the desired state.
func (s *service) Configure(ctx context.Context) error {
	var ae aerr.AggregateError
	configured := 0
	for _, obj := range s.Objects() {
		log := s.log.With().Str("object-id", obj.ID()).Logger()
		if err := obj.Configure(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to configure object")
			ae.Add(errors.Wrapf(err, "object '%s'", obj.ID()))
		} else {
			configured++
			log.Debug().Msg("Configured object")
		}
	}
	objectsConfiguredTotal.Set(float64(configured))
	return ae.AsError()
}

// Run all objects until the given context is cancelled.
func (s *service) Run(ctx context.Context) error {
	defer func() {
		s.log.Debug().Msg("Run Objects ended")
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.statuses.Run(gctx) })

	var runningObjects int32
	for _, obj := range s.Objects() {
		obj := obj
		g.Go(func() error {
			atomic.AddInt32(&runningObjects, 1)
			log := s.log.With().
				Str("object-id", obj.ID()).
				Str("type", string(obj.Type())).
				Logger()
			defer func() {
				atomic.AddInt32(&runningObjects, -1)
				log.Debug().Msg("Stopped running object")
			}()
			log.Debug().Msg("Running object")
			return obj.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		for {
			objs := atomic.LoadInt32(&runningObjects)
			if objs == 0 {
				s.log.Debug().Msg("No more running objects")
				return nil
			}
			s.log.Debug().Int32("running_objects", objs).Msg("Still running objects")
			time.Sleep(time.Second * 2)
		}
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		s.log.Warn().Err(err).Msg("Run Objects failed")
		return err
	}
	return nil
}
