// Copyright 2017-2026 Ewout Prangsma
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

package service

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/homeworker/HomeWorker/pkg/service/bridge"
	"github.com/homeworker/HomeWorker/pkg/service/devices"
	"github.com/homeworker/HomeWorker/pkg/service/objects"
	"github.com/homeworker/HomeWorker/pkg/service/worker"
)

const (
	// Time between 2 attempts to run a worker
	retryDelay = time.Second
)

// Service is the controller of a single home.
type Service interface {
	// Run the controller until the given context is cancelled.
	Run(ctx context.Context) error
	// IsHealthy returns true when a worker is running.
	IsHealthy() bool
	// Statuses returns the status of all objects, sorted by ID.
	Statuses() ([]objects.Status, error)
	// Boards returns all boards, sorted by ID.
	Boards() ([]*devices.Board, error)
	// SetActuator switches the binary actuator with given ID.
	SetActuator(ctx context.Context, id string, on bool) error
	// MoveShutter executes a manual command on the roller shutter with given ID.
	MoveShutter(ctx context.Context, id string, action worker.ShutterAction, position float64) error
	// SetReading records a reading of the numeric sensor with given ID.
	SetReading(ctx context.Context, id string, value float64) error
}

type Config struct {
	Worker worker.Config
}

type Dependencies struct {
	Logger      zerolog.Logger
	Bridge      bridge.API
	StatusSinks []objects.StatusSink
}

type service struct {
	Config
	Dependencies

	mutex   sync.Mutex
	next    worker.Service
	current worker.Service
}

// NewService creates a Service instance and returns it.
// The configuration is checked by building a first worker,
// so configuration errors are returned here.
func NewService(conf Config, deps Dependencies) (Service, error) {
	deps.Logger = deps.Logger.With().Str("component", "service").Logger()
	s := &service{
		Config:       conf,
		Dependencies: deps,
	}
	w, err := s.newWorker()
	if err != nil {
		return nil, errors.Wrap(err, "Invalid configuration")
	}
	s.next = w
	return s, nil
}

// Run keeps running a worker until the given context is cancelled.
func (s *service) Run(ctx context.Context) error {
	log := s.Logger
	defer s.Bridge.Close()

	for {
		s.Bridge.BlinkGreenLED(time.Millisecond * 250)
		s.Bridge.SetRedLED(false)

		s.runWorker(ctx)

		select {
		case <-ctx.Done():
			// Context canceled
			s.Bridge.SetGreenLED(false)
			return nil
		case <-time.After(retryDelay):
			// Retry
			log.Debug().Msg("Retrying worker")
		}
	}
}

// runWorker runs a single worker until it ends.
func (s *service) runWorker(ctx context.Context) {
	log := s.Logger
	defer func() {
		if err := recover(); err != nil {
			workerPanicsTotal.Inc()
			log.Error().Interface("err", err).Msg("Recovered from panic")
		}
		s.setCurrent(nil)
	}()

	s.mutex.Lock()
	w := s.next
	s.next = nil
	s.mutex.Unlock()
	if w == nil {
		var err error
		log.Debug().Msg("Creating new worker service")
		if w, err = s.newWorker(); err != nil {
			log.Error().Err(err).Msg("Failed to create worker")
			s.Bridge.BlinkRedLED(time.Millisecond * 250)
			return
		}
	}

	workersStartedTotal.Inc()
	s.setCurrent(w)
	s.Bridge.SetGreenLED(true)
	log.Debug().Msg("start to run worker...")
	if err := w.Run(ctx); ctx.Err() != nil {
		log.Info().Msg("Worker ended with context cancellation")
	} else if err != nil {
		workerFailuresTotal.Inc()
		log.Error().Err(err).Msg("Worker ended with unknown error")
		s.Bridge.BlinkRedLED(time.Millisecond * 250)
	} else {
		log.Info().Msg("Worker ended without context cancellation")
	}
}

func (s *service) newWorker() (worker.Service, error) {
	return worker.NewService(s.Worker, worker.Dependencies{
		Log:         s.Logger,
		Bridge:      s.Bridge,
		StatusSinks: s.StatusSinks,
	})
}

func (s *service) setCurrent(w worker.Service) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.current = w
}

// getCurrent returns the running worker or a NotRunningError.
func (s *service) getCurrent() (worker.Service, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.current == nil {
		return nil, errors.Wrap(NotRunningError, "no worker is running")
	}
	return s.current, nil
}

// IsHealthy returns true when a worker is running.
func (s *service) IsHealthy() bool {
	_, err := s.getCurrent()
	return err == nil
}

// Statuses returns the status of all objects, sorted by ID.
func (s *service) Statuses() ([]objects.Status, error) {
	w, err := s.getCurrent()
	if err != nil {
		return nil, err
	}
	return w.Statuses(), nil
}

// Boards returns all boards, sorted by ID.
func (s *service) Boards() ([]*devices.Board, error) {
	w, err := s.getCurrent()
	if err != nil {
		return nil, err
	}
	return w.Boards(), nil
}
