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

	"github.com/homeworker/HomeWorker/pkg/service/worker"
)

// SetActuator switches the binary actuator with given ID.
func (s *service) SetActuator(ctx context.Context, id string, on bool) error {
	setActuatorRequestTotal.WithLabelValues(id).Inc()
	log := s.Logger.With().Str("object-id", id).Bool("on", on).Logger()
	w, err := s.getCurrent()
	if err != nil {
		log.Warn().Err(err).Msg("SetActuator while not running")
		return err
	}
	if err := w.SetActuator(ctx, id, on); err != nil {
		log.Debug().Err(err).Msg("SetActuator failed")
		return err
	}
	return nil
}

// SetReading records a reading of the numeric sensor with given ID.
func (s *service) SetReading(ctx context.Context, id string, value float64) error {
	setReadingRequestTotal.WithLabelValues(id).Inc()
	log := s.Logger.With().Str("object-id", id).Float64("value", value).Logger()
	w, err := s.getCurrent()
	if err != nil {
		log.Warn().Err(err).Msg("SetReading while not running")
		return err
	}
	if err := w.SetReading(ctx, id, value); err != nil {
		log.Debug().Err(err).Msg("SetReading failed")
		return err
	}
	return nil
}

// MoveShutter executes a manual command on the roller shutter with given ID.
func (s *service) MoveShutter(ctx context.Context, id string, action worker.ShutterAction, position float64) error {
	moveShutterRequestTotal.WithLabelValues(id).Inc()
	log := s.Logger.With().Str("object-id", id).Str("action", string(action)).Logger()
	w, err := s.getCurrent()
	if err != nil {
		log.Warn().Err(err).Msg("MoveShutter while not running")
		return err
	}
	if err := w.MoveShutter(ctx, id, action, position); err != nil {
		log.Debug().Err(err).Msg("MoveShutter failed")
		return err
	}
	return nil
}
