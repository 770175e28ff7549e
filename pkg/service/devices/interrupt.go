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

package devices

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/homeworker/HomeWorker/pkg/service/bridge"
	"github.com/homeworker/HomeWorker/pkg/service/util"
)

const (
	// DefaultLevelCheckInterval is the interval at which the level of an
	// interrupt line without edge support is checked.
	DefaultLevelCheckInterval = time.Millisecond * 20
	// Minimum time between 2 polls while the line stays asserted
	assertedRepollDelay = time.Millisecond * 5
)

// Poller is implemented by the board registry.
type Poller interface {
	PollInputs(ctx context.Context) ([]Change, error)
}

// InterruptWatcher waits for the interrupt line of the input boards
// and polls all inputs when it is asserted.
type InterruptWatcher struct {
	log           zerolog.Logger
	pin           bridge.InputPin
	poller        Poller
	checkInterval time.Duration
}

// NewInterruptWatcher creates a watcher for the given line.
// The pin must return true when the line is asserted.
func NewInterruptWatcher(log zerolog.Logger, pin bridge.InputPin, poller Poller, checkInterval time.Duration) *InterruptWatcher {
	if checkInterval <= 0 {
		checkInterval = DefaultLevelCheckInterval
	}
	return &InterruptWatcher{
		log:           log.With().Str("component", "interrupt-watcher").Logger(),
		pin:           pin,
		poller:        poller,
		checkInterval: checkInterval,
	}
}

// Run the watcher until the given context is canceled.
func (w *InterruptWatcher) Run(ctx context.Context) error {
	w.log.Debug().Msg("Started interrupt watcher")
	defer w.log.Debug().Msg("Stopped interrupt watcher")

	var readBackoff, pollBackoff util.Backoff
	edgePin, hasEdges := w.pin.(bridge.EdgeInputPin)
	for {
		if ctx.Err() != nil {
			return nil
		}
		asserted, err := w.pin.Read()
		if err != nil {
			interruptErrorsTotal.Inc()
			delay := readBackoff.Next()
			w.log.Warn().Err(err).Dur("retry-in", delay).Msg("Failed to read interrupt line")
			if !util.Sleep(ctx, delay) {
				return nil
			}
			continue
		}
		readBackoff.Reset()
		if asserted {
			interruptsTotal.Inc()
			// A level triggered line stays asserted while changes are pending
			delay := assertedRepollDelay
			// Poll errors are logged (and counted) by the poller
			if _, err := w.poller.PollInputs(ctx); err != nil {
				delay = pollBackoff.Next()
			} else {
				pollBackoff.Reset()
			}
			if !util.Sleep(ctx, delay) {
				return nil
			}
			continue
		}
		if hasEdges {
			// Wake up regularly to catch an edge lost between Read and Wait
			waitCtx, cancel := context.WithTimeout(ctx, time.Second)
			edgePin.WaitForEdge(waitCtx)
			cancel()
		} else if !util.Sleep(ctx, w.checkInterval) {
			return nil
		}
	}
}
