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

package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/homeworker/HomeWorker/model"
	"github.com/homeworker/HomeWorker/pkg/service/automation"
	"github.com/homeworker/HomeWorker/pkg/service/bridge"
	"github.com/homeworker/HomeWorker/pkg/service/devices"
	"github.com/homeworker/HomeWorker/pkg/service/objects"
	"github.com/homeworker/HomeWorker/pkg/service/scheduler"
)

const (
	closeTimeout = time.Second * 5
)

// Service contains the API exposed by the worker service
type Service interface {
	// Run the worker service until the given context is cancelled.
	// A worker can only be run once.
	Run(ctx context.Context) error
	// Statuses returns the status of all objects, sorted by ID.
	Statuses() []objects.Status
	// Boards returns all boards, sorted by ID.
	Boards() []*devices.Board
	// SetActuator switches the binary actuator with given ID.
	SetActuator(ctx context.Context, id string, on bool) error
	// MoveShutter executes a manual command on the roller shutter with given ID.
	MoveShutter(ctx context.Context, id string, action ShutterAction, position float64) error
	// SetReading records a reading of the numeric sensor with given ID.
	SetReading(ctx context.Context, id string, value float64) error
}

// Config of the worker.
type Config struct {
	model.Config
	// GPIO pin of the interrupt line of the input boards (<0 disables)
	InterruptPin int
	// Interrupt line is asserted when low
	InterruptActiveLow bool
	// GPIO pin of the RF transmitter (<0 disables)
	RFPin int
	// Clock of the scheduler (optional)
	Clock scheduler.Clock
}

// Dependencies of the worker.
type Dependencies struct {
	Log    zerolog.Logger
	Bridge bridge.API
	// Sinks that receive every status change (optional)
	StatusSinks []objects.StatusSink
}

type service struct {
	Config
	Dependencies

	sched      *scheduler.Scheduler
	devService devices.Service
	objService objects.Service
	engine     *automation.Engine
	activity   *activityIndicator
}

// NewService builds a worker from the given configuration.
// All errors returned here are configuration errors.
func NewService(conf Config, deps Dependencies) (Service, error) {
	if deps.Bridge == nil {
		return nil, errors.Wrap(model.ValidationError, "bridge is missing")
	}
	s := &service{
		Config:       conf,
		Dependencies: deps,
		activity:     newActivityIndicator(deps.Bridge),
	}
	if err := s.build(); err != nil {
		return nil, err
	}
	return s, nil
}

// Statuses returns the status of all objects, sorted by ID.
func (s *service) Statuses() []objects.Status {
	return s.objService.Statuses()
}

// Boards returns all boards, sorted by ID.
func (s *service) Boards() []*devices.Board {
	return s.devService.Boards()
}

// Run the worker service until the given context is cancelled.
func (s *service) Run(ctx context.Context) error {
	log := s.Log
	devService := s.devService
	objService := s.objService

	defer func() {
		log.Debug().Msg("closing devices service")
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := devService.Close(closeCtx); err != nil {
			log.Warn().Err(err).Msg("Not all boards are closed")
		}
		s.activity.Close()
	}()

	// Configure devices
	log.Debug().Msg("configure devices")
	if err := devService.Configure(ctx); err != nil {
		// Boards that fail are retried on first use
		log.Error().Err(err).Msg("Not all boards are configured")
	}
	// Stop fast if context canceled
	if ctx.Err() != nil {
		return nil
	}

	// Configure objects
	log.Debug().Msg("configure objects")
	if err := objService.Configure(ctx); err != nil {
		log.Error().Err(err).Msg("Not all objects are configured")
	}
	if ctx.Err() != nil {
		return nil
	}

	// Open interrupt line
	var watcher *devices.InterruptWatcher
	if s.InterruptPin >= 0 && s.hasInputs() {
		pin, err := s.Bridge.InterruptInput(s.InterruptPin, s.InterruptActiveLow)
		if err != nil {
			return errors.Wrapf(err, "failed to open interrupt pin %d", s.InterruptPin)
		}
		defer pin.Close()
		watcher = devices.NewInterruptWatcher(log, pin, devService, 0)
	}

	// Run everything
	g, lctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Debug().Msg("run scheduler")
		return s.sched.Run(lctx)
	})
	g.Go(func() error {
		log.Debug().Msg("run objects")
		if err := objService.Run(lctx); err != nil {
			log.Error().Err(err).Msg("Run objects failed")
			return fmt.Errorf("failed to run objects: %w", err)
		}
		log.Debug().Msg("run objects ended")
		return nil
	})
	g.Go(func() error {
		log.Debug().Msg("run automation")
		return s.engine.Run(lctx)
	})
	if watcher != nil {
		g.Go(func() error { return watcher.Run(lctx) })
	}
	if interval := s.GetPollInterval(); interval > 0 && s.hasInputs() {
		g.Go(func() error { return s.runFallbackPoll(lctx, interval) })
	}
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "Wait failed")
	}
	return nil
}

// runFallbackPoll polls all inputs at a fixed interval, so a missed
// interrupt never leaves inputs stale.
func (s *service) runFallbackPoll(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			fallbackPollsTotal.Inc()
			// Errors are logged by the registry
			s.devService.PollInputs(ctx)
		case <-ctx.Done():
			return nil
		}
	}
}

// hasInputs returns true when at least one board has input pins.
func (s *service) hasInputs() bool {
	for _, b := range s.devService.Boards() {
		if b.HasInputs() {
			return true
		}
	}
	return false
}
