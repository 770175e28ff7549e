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
	"sync"
	"time"

	"github.com/rs/zerolog"

	utils "github.com/homeworker/HomeWorker/pkg/service/util"
)

// StatusSink publishes statuses to the outside world.
type StatusSink interface {
	PublishStatus(ctx context.Context, status Status) error
}

// statusService queues status updates of objects and forwards them
// to all sinks.
type statusService struct {
	log      zerolog.Logger
	statuses chan Status

	mutex sync.RWMutex
	sinks []StatusSink
}

const (
	statusQueueSize      = 64
	publishStatusTimeout = time.Second * 5
)

// newStatusService creates a new statusService.
func newStatusService(log zerolog.Logger) *statusService {
	return &statusService{
		log:      log,
		statuses: make(chan Status, statusQueueSize),
	}
}

// AddSink adds a sink that receives all status updates.
func (s *statusService) AddSink(sink StatusSink) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.sinks = append(s.sinks, sink)
}

// PublishStatus queues a status update.
// It never blocks, updates are dropped when the queue is full.
func (s *statusService) PublishStatus(status Status) {
	select {
	case s.statuses <- status:
		// Done
	default:
		statusesDroppedTotal.Inc()
		s.log.Warn().
			Str("object-id", status.ID).
			Str("state", status.State).
			Msg("Status queue full, dropping status")
	}
}

// Run the service until the given context is canceled
func (s *statusService) Run(ctx context.Context) error {
	log := s.log
	once := func() error {
		for {
			select {
			case status := <-s.statuses:
				s.mutex.RLock()
				sinks := s.sinks
				s.mutex.RUnlock()
				for _, sink := range sinks {
					lctx, cancel := context.WithTimeout(ctx, publishStatusTimeout)
					err := sink.PublishStatus(lctx, status)
					cancel()
					if err != nil {
						// Other sinks still get the status
						statusSinkErrorsTotal.Inc()
						log.Warn().Err(err).Str("object-id", status.ID).Msg("PublishStatus failed")
					}
				}
			case <-ctx.Done():
				return nil
			}
		}
	}
	return utils.UntilCanceled(ctx, log, "publishStatuses", once)
}
