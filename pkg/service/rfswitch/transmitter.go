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

package rfswitch

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/homeworker/HomeWorker/pkg/service/bridge"
)

const (
	// DefaultRepeat is the number of times a code is transmitted.
	// There is no acknowledgement, so repeating is the only way to
	// overcome lost packets.
	DefaultRepeat = 3
)

// Config of the transmitter.
type Config struct {
	// Number of times each code is transmitted
	Repeat int
}

// Dependencies of the transmitter.
type Dependencies struct {
	Log zerolog.Logger
	// Pin that drives the 433MHz sender
	Pin bridge.OutputPin
	// Wait for the given duration (optional, defaults to a busy wait).
	Wait func(time.Duration)
}

type switchCodes struct {
	on, off Code
}

// Transmitter sends the codes of registered remote switches by
// bit-banging an output pin.
type Transmitter struct {
	Config
	Dependencies
	log zerolog.Logger

	mutex    sync.RWMutex
	switches map[string]switchCodes

	sendMutex sync.Mutex
}

// NewTransmitter creates a new transmitter.
func NewTransmitter(conf Config, deps Dependencies) *Transmitter {
	if conf.Repeat <= 0 {
		conf.Repeat = DefaultRepeat
	}
	if deps.Wait == nil {
		deps.Wait = busyWait
	}
	return &Transmitter{
		Config:       conf,
		Dependencies: deps,
		log:          deps.Log.With().Str("component", "rf-transmitter").Logger(),
		switches:     make(map[string]switchCodes),
	}
}

// Register the on and off codes of a remote switch.
func (t *Transmitter) Register(id string, on, off Code) error {
	if id == "" {
		return errors.Wrap(InvalidArgumentError, "switch ID must not be empty")
	}
	if len(on) == 0 || len(off) == 0 {
		return errors.Wrapf(InvalidArgumentError, "switch '%s' needs an on and an off code", id)
	}
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if _, found := t.switches[id]; found {
		return errors.Wrapf(DuplicateSwitchError, "switch '%s'", id)
	}
	t.switches[id] = switchCodes{on: on.clone(), off: off.clone()}
	switchesRegisteredTotal.Set(float64(len(t.switches)))
	t.log.Debug().Str("switch-id", id).Msg("Registered remote switch")
	return nil
}

// Switches returns the IDs of all registered switches, sorted.
func (t *Transmitter) Switches() []string {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	ids := lo.Keys(t.switches)
	sort.Strings(ids)
	return ids
}

// Send transmits the code of the given command to the switch with
// given ID. Only one code is transmitted at a time.
// Transmission stops when the context is canceled.
func (t *Transmitter) Send(ctx context.Context, id string, cmd Command) error {
	t.mutex.RLock()
	codes, found := t.switches[id]
	t.mutex.RUnlock()
	if !found {
		return errors.Wrapf(UnknownSwitchError, "switch '%s'", id)
	}
	code := codes.off
	if cmd == TurnOn {
		code = codes.on
	}
	log := t.log.With().Str("switch-id", id).Str("command", cmd.String()).Logger()

	t.sendMutex.Lock()
	defer t.sendMutex.Unlock()

	start := time.Now()
	sendsTotal.WithLabelValues(id, cmd.String()).Inc()
	if err := t.transmit(ctx, code); err != nil {
		sendErrorsTotal.WithLabelValues(id).Inc()
		log.Warn().Err(err).Msg("Failed to transmit code")
		return err
	}
	sendDuration.WithLabelValues(id).Observe(time.Since(start).Seconds())
	log.Debug().Int("repeat", t.Repeat).Msg("Transmitted code")
	return nil
}

// transmit the code Repeat times.
func (t *Transmitter) transmit(ctx context.Context, code Code) error {
	// Keep the timing of the pulses as stable as possible
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer t.Pin.Write(false)

	for i := 0; i < t.Repeat; i++ {
		for _, p := range code {
			if err := ctx.Err(); err != nil {
				return maskAny(err)
			}
			if err := t.Pin.Write(true); err != nil {
				return errors.Wrap(err, "write high failed")
			}
			t.Wait(p.High)
			if err := t.Pin.Write(false); err != nil {
				return errors.Wrap(err, "write low failed")
			}
			t.Wait(p.Low)
		}
	}
	return nil
}

// busyWait spins for the given duration.
// Sleeping is far too coarse for pulses of a few hundred microseconds.
func busyWait(d time.Duration) {
	for start := time.Now(); time.Since(start) < d; {
	}
}
