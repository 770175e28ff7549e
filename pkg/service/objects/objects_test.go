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

package objects

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/homeworker/HomeWorker/pkg/service/bridge"
	"github.com/homeworker/HomeWorker/pkg/service/devices"
	"github.com/homeworker/HomeWorker/pkg/service/scheduler"
)

var epoch = time.Date(2026, 3, 21, 8, 0, 0, 0, time.UTC)

type pinWrite struct {
	Ref   devices.PinRef
	Value bool
}

// fakeWriter records pin writes and checks that both relays of a
// shutter are never energized at the same time.
type fakeWriter struct {
	mutex     sync.Mutex
	writes    []pinWrite
	levels    map[devices.PinRef]bool
	exclusive [][2]devices.PinRef
	violation bool
	fail      error
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{levels: make(map[devices.PinRef]bool)}
}

func (w *fakeWriter) ValidateOutput(ref devices.PinRef) error {
	if ref.Board == "inputs" {
		return errors.Wrapf(devices.InvalidDirectionError, "pin %s", ref)
	}
	return nil
}

func (w *fakeWriter) SetPins(ctx context.Context, refs []devices.PinRef, value bool) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.fail != nil {
		return w.fail
	}
	for _, ref := range refs {
		w.writes = append(w.writes, pinWrite{ref, value})
		w.levels[ref] = value
	}
	for _, pair := range w.exclusive {
		if w.levels[pair[0]] && w.levels[pair[1]] {
			w.violation = true
		}
	}
	return nil
}

func (w *fakeWriter) Writes() []pinWrite {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return append([]pinWrite(nil), w.writes...)
}

func (w *fakeWriter) Level(ref devices.PinRef) bool {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.levels[ref]
}

func (w *fakeWriter) Reset() {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.writes = nil
}

func pin(board string, index int) devices.PinRef {
	return devices.PinRef{Board: board, Index: index}
}

func newTestDeps() (Dependencies, *scheduler.Scheduler, *scheduler.ManualClock) {
	clock := scheduler.NewManualClock(epoch)
	s := scheduler.New(scheduler.Config{Clock: clock}, scheduler.Dependencies{Log: zerolog.Nop()})
	return Dependencies{Log: zerolog.Nop(), Scheduler: s}, s, clock
}

// newTestRegistry creates a board registry with an 8 pin input
// board "in" (active low inputs).
func newTestRegistry(t *testing.T) (*bridge.VirtualDevice, devices.Service) {
	vb := bridge.NewVirtualBridge(false)
	dev := vb.AddDevice(0x20)
	bus, err := vb.I2CBus()
	require.NoError(t, err)
	t.Cleanup(func() { vb.Close() })
	reg := devices.NewService(devices.Config{}, devices.Dependencies{Log: zerolog.Nop(), Bus: bus})
	_, err = reg.RegisterBoard("in", devices.ChipTypePCF8574, 0x20, devices.DirectionInput)
	require.NoError(t, err)
	require.NoError(t, reg.Configure(context.Background()))
	return dev, reg
}
