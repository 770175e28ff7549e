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
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homeworker/HomeWorker/pkg/service/bridge"
)

func newTestRegistry(t *testing.T, addresses ...uint8) (*bridge.VirtualBridge, Service) {
	vb := bridge.NewVirtualBridge(false)
	for _, addr := range addresses {
		vb.AddDevice(addr)
	}
	bus, err := vb.I2CBus()
	require.NoError(t, err)
	t.Cleanup(func() { vb.Close() })
	return vb, NewService(Config{}, Dependencies{Log: zerolog.Nop(), Bus: bus})
}

func TestRegisterBoard(t *testing.T) {
	_, s := newTestRegistry(t)

	b, err := s.RegisterBoard("in1", ChipTypePCF8574, 0x20, DirectionInput)
	require.NoError(t, err)
	assert.Equal(t, 8, b.PinCount())
	assert.True(t, b.IsInput(7))
	assert.False(t, b.IsOutput(7))

	_, err = s.RegisterBoard("in2", ChipTypePCF8574, 0x20, DirectionInput)
	assert.True(t, IsDuplicateAddress(err))
	_, err = s.RegisterBoard("in1", ChipTypePCF8574, 0x21, DirectionInput)
	assert.True(t, IsDuplicateBoard(err))
	_, err = s.RegisterBoard("x", ChipType("pca9685"), 0x22, DirectionOutput)
	assert.True(t, IsUnknownChipType(err))
	_, err = s.RegisterBoard("", ChipTypePCF8574, 0x23, DirectionOutput)
	assert.True(t, IsInvalidArgument(err))
	assert.False(t, IsNotFound(err))
	_, err = s.RegisterBoard("y", ChipTypeMCP23017, 0x23, Direction("sideways"))
	assert.True(t, IsInvalidDirection(err))
	_, err = s.RegisterBoard("z", ChipTypeMCP23008, 0x24, DirectionMixed, 8)
	assert.True(t, IsInvalidPin(err))

	mixed, err := s.RegisterBoard("mixed", ChipTypeMCP23017, 0x25, DirectionMixed, 0, 15)
	require.NoError(t, err)
	assert.True(t, mixed.IsInput(15))
	assert.True(t, mixed.IsOutput(1))

	got, err := s.GetBoard("in1")
	require.NoError(t, err)
	assert.Equal(t, b, got)
	_, err = s.GetBoard("unknown")
	assert.True(t, IsNotFound(err))

	ids := []string{}
	for _, b := range s.Boards() {
		ids = append(ids, b.ID())
	}
	assert.Equal(t, []string{"in1", "mixed"}, ids)
}

func TestParseChipType(t *testing.T) {
	ct, err := ParseChipType("HSREL5")
	require.NoError(t, err)
	assert.Equal(t, ChipTypePCF8574, ct)
	ct, err = ParseChipType("hspe16")
	require.NoError(t, err)
	assert.Equal(t, ChipTypeMAX7311, ct)
	_, err = ParseChipType("ads1115")
	assert.True(t, IsUnknownChipType(err))
}

func TestPollInputsEmitsOnlyChanges(t *testing.T) {
	vb, s := newTestRegistry(t, 0x20)
	ctx := context.Background()
	_, err := s.RegisterBoard("in", ChipTypePCF8574, 0x20, DirectionInput)
	require.NoError(t, err)
	require.NoError(t, s.Configure(ctx))

	changes, err := s.PollInputs(ctx)
	require.NoError(t, err)
	assert.Empty(t, changes)

	d, _ := vb.Device(0x20)
	d.SetInputs(0xfffa) // Pins 0 and 2 low
	changes, err = s.PollInputs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Change{
		{Board: "in", Index: 0, Value: false},
		{Board: "in", Index: 2, Value: false},
	}, changes)

	changes, err = s.PollInputs(ctx)
	require.NoError(t, err)
	assert.Empty(t, changes)

	d.SetInputs(0xfffe)
	changes, err = s.PollInputs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Change{{Board: "in", Index: 2, Value: true}}, changes)
}

func TestPollInputsSkipsFailingBoard(t *testing.T) {
	vb, s := newTestRegistry(t, 0x20, 0x21)
	ctx := context.Background()
	_, err := s.RegisterBoard("a", ChipTypePCF8574, 0x20, DirectionInput)
	require.NoError(t, err)
	_, err = s.RegisterBoard("b", ChipTypePCF8574, 0x21, DirectionInput)
	require.NoError(t, err)
	require.NoError(t, s.Configure(ctx))

	da, _ := vb.Device(0x20)
	db, _ := vb.Device(0x21)
	da.FailNext(2)
	db.SetInputs(0xfff7)
	changes, err := s.PollInputs(ctx)
	require.Error(t, err)
	assert.True(t, bridge.IsBusError(err))
	assert.Equal(t, []Change{{Board: "b", Index: 3, Value: false}}, changes)

	// Board a recovers on the next poll
	da.SetInputs(0xfffe)
	changes, err = s.PollInputs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Change{{Board: "a", Index: 0, Value: false}}, changes)
}

func TestWriteOutputTouchesOnlyChangedPorts(t *testing.T) {
	vb, s := newTestRegistry(t, 0x40)
	ctx := context.Background()
	b, err := s.RegisterBoard("relays", ChipTypeMAX7311, 0x40, DirectionOutput)
	require.NoError(t, err)
	require.NoError(t, s.Configure(ctx))
	d, _ := vb.Device(0x40)
	assert.Equal(t, uint8(0x00), d.Register(max7311RegConfig))
	assert.Equal(t, uint8(0x00), d.Register(max7311RegConfig+1))

	ops := d.Operations()
	require.NoError(t, s.WriteOutput(ctx, "relays", 0x0001))
	assert.Equal(t, ops+1, d.Operations())
	assert.Equal(t, uint8(0x01), d.Register(max7311RegOutput))

	// Unchanged state: no bus traffic
	require.NoError(t, s.WriteOutput(ctx, "relays", 0x0001))
	assert.Equal(t, ops+1, d.Operations())

	require.NoError(t, s.SetPin(ctx, PinRef{Board: "relays", Index: 9}, true))
	assert.Equal(t, ops+2, d.Operations())
	assert.Equal(t, uint8(0x02), d.Register(max7311RegOutput+1))
	assert.Equal(t, State(0x0201), b.Output())

	require.NoError(t, s.Close(ctx))
	assert.Equal(t, uint8(0x00), d.Register(max7311RegOutput))
	assert.Equal(t, uint8(0x00), d.Register(max7311RegOutput+1))
}

func TestPCF8574KeepsInputsHigh(t *testing.T) {
	vb, s := newTestRegistry(t, 0x38)
	ctx := context.Background()
	_, err := s.RegisterBoard("mixed", ChipTypePCF8574, 0x38, DirectionMixed, 4, 5, 6, 7)
	require.NoError(t, err)
	require.NoError(t, s.Configure(ctx))
	d, _ := vb.Device(0x38)
	assert.Equal(t, uint16(0xf0), d.Port()&0xff)

	require.NoError(t, s.SetPin(ctx, PinRef{Board: "mixed", Index: 1}, true))
	assert.Equal(t, uint16(0xf2), d.Port()&0xff)

	// Writing an input pin is refused
	err = s.SetPin(ctx, PinRef{Board: "mixed", Index: 5}, false)
	assert.True(t, IsInvalidDirection(err))
	err = s.SetPin(ctx, PinRef{Board: "mixed", Index: 8}, false)
	assert.True(t, IsInvalidPin(err))
}

func TestMCP23017Configure(t *testing.T) {
	vb, s := newTestRegistry(t, 0x27)
	ctx := context.Background()
	_, err := s.RegisterBoard("io", ChipTypeMCP23017, 0x27, DirectionMixed, 8, 9)
	require.NoError(t, err)
	require.NoError(t, s.Configure(ctx))
	d, _ := vb.Device(0x27)
	assert.Equal(t, uint8(0x00), d.Register(mcp23017Regs.iodir))
	assert.Equal(t, uint8(0x03), d.Register(mcp23017Regs.iodir+1))
	assert.Equal(t, uint8(0x03), d.Register(mcp23017Regs.gppu+1))

	// Initial snapshot has both inputs low
	d.SetRegister(mcp23017Regs.gpio+1, 0x02)
	changes, err := s.PollInputs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Change{{Board: "io", Index: 9, Value: true}}, changes)

	require.NoError(t, s.SetPin(ctx, PinRef{Board: "io", Index: 3}, true))
	assert.Equal(t, uint8(0x08), d.Register(mcp23017Regs.olat))
}

func TestConcurrentWritesNeverOverlap(t *testing.T) {
	addresses := []uint8{0x20, 0x21, 0x22}
	vb, s := newTestRegistry(t, addresses...)
	ctx := context.Background()
	var active, maxActive int32
	hook := func() {
		n := atomic.AddInt32(&active, 1)
		for {
			m := atomic.LoadInt32(&maxActive)
			if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
				break
			}
		}
		time.Sleep(time.Microsecond * 100)
		atomic.AddInt32(&active, -1)
	}
	ids := []string{"r0", "r1", "r2"}
	for i, addr := range addresses {
		_, err := s.RegisterBoard(ids[i], ChipTypePCF8574, addr, DirectionOutput)
		require.NoError(t, err)
		d, _ := vb.Device(addr)
		d.SetHook(hook)
	}
	require.NoError(t, s.Configure(ctx))

	var wg sync.WaitGroup
	for i := 0; i < 48; i++ {
		ref := PinRef{Board: ids[i%3], Index: i % 8}
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.SetPin(ctx, ref, true))
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxActive))
	for i, addr := range addresses {
		d, _ := vb.Device(addr)
		assert.Equal(t, uint16(0xff), d.Port()&0xff, ids[i])
	}
}

func TestSubscribeDeliversInOrder(t *testing.T) {
	vb, s := newTestRegistry(t, 0x20)
	ctx := context.Background()
	_, err := s.RegisterBoard("in", ChipTypePCF8574, 0x20, DirectionInput)
	require.NoError(t, err)
	require.NoError(t, s.Configure(ctx))

	sub, err := s.Subscribe(PinRef{Board: "in", Index: 1})
	require.NoError(t, err)
	other, err := s.Subscribe(PinRef{Board: "in", Index: 2})
	require.NoError(t, err)

	// Both start with the level read by Configure
	assert.Equal(t, Change{Board: "in", Index: 1, Value: true, Initial: true}, <-sub.Changes())
	assert.Equal(t, Change{Board: "in", Index: 2, Value: true, Initial: true}, <-other.Changes())

	d, _ := vb.Device(0x20)
	for _, inputs := range []uint16{0xfffd, 0xffff, 0xfffd} {
		d.SetInputs(inputs)
		_, err := s.PollInputs(ctx)
		require.NoError(t, err)
	}
	for _, expected := range []bool{false, true, false} {
		select {
		case c := <-sub.Changes():
			assert.Equal(t, expected, c.Value)
			assert.Equal(t, 1, c.Index)
		default:
			t.Fatal("expected a change")
		}
	}
	assert.Len(t, other.Changes(), 0)

	sub.Close()
	<-sub.Done()
	d.SetInputs(0xffff)
	_, err = s.PollInputs(ctx)
	require.NoError(t, err)
	assert.Len(t, sub.Changes(), 0)

	_, err = s.Subscribe(PinRef{Board: "unknown", Index: 1})
	assert.True(t, IsNotFound(err))
}

func TestSubscribeInitialLevel(t *testing.T) {
	vb, s := newTestRegistry(t, 0x20)
	ctx := context.Background()
	_, err := s.RegisterBoard("in", ChipTypePCF8574, 0x20, DirectionInput)
	require.NoError(t, err)
	d, _ := vb.Device(0x20)
	d.SetInputs(0xfffb)

	// Nothing is known before the board is read
	early, err := s.Subscribe(PinRef{Board: "in", Index: 2})
	require.NoError(t, err)
	assert.Len(t, early.Changes(), 0)

	require.NoError(t, s.Configure(ctx))
	require.Len(t, early.Changes(), 1)
	assert.Equal(t, Change{Board: "in", Index: 2, Value: false, Initial: true}, <-early.Changes())

	late, err := s.Subscribe(PinRef{Board: "in", Index: 0})
	require.NoError(t, err)
	require.Len(t, late.Changes(), 1)
	assert.Equal(t, Change{Board: "in", Index: 0, Value: true, Initial: true}, <-late.Changes())

	// Transitions follow the initial level
	d.SetInputs(0xffff)
	changes, err := s.PollInputs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Change{{Board: "in", Index: 2, Value: true}}, changes)
	assert.Equal(t, Change{Board: "in", Index: 2, Value: true}, <-early.Changes())
	assert.Len(t, late.Changes(), 0)
}

func TestSubscribeRequiresInput(t *testing.T) {
	_, s := newTestRegistry(t, 0x20)
	_, err := s.RegisterBoard("out", ChipTypePCF8574, 0x20, DirectionOutput)
	require.NoError(t, err)
	_, err = s.Subscribe(PinRef{Board: "out", Index: 0})
	assert.True(t, IsInvalidDirection(err))
}

func TestSetPinsWritesEachBoardOnce(t *testing.T) {
	vb, s := newTestRegistry(t, 0x20, 0x21)
	ctx := context.Background()
	_, err := s.RegisterBoard("a", ChipTypePCF8574, 0x20, DirectionOutput)
	require.NoError(t, err)
	_, err = s.RegisterBoard("b", ChipTypePCF8574, 0x21, DirectionOutput)
	require.NoError(t, err)
	require.NoError(t, s.Configure(ctx))
	da, _ := vb.Device(0x20)
	db, _ := vb.Device(0x21)
	opsA, opsB := da.Operations(), db.Operations()

	refs := []PinRef{{Board: "a", Index: 0}, {Board: "b", Index: 7}, {Board: "a", Index: 5}}
	require.NoError(t, s.SetPins(ctx, refs, true))
	assert.Equal(t, opsA+1, da.Operations())
	assert.Equal(t, opsB+1, db.Operations())
	assert.Equal(t, uint16(0x21), da.Port()&0xff)
	assert.Equal(t, uint16(0x80), db.Port()&0xff)

	require.NoError(t, s.SetPins(ctx, refs[:1], false))
	assert.Equal(t, uint16(0x20), da.Port()&0xff)

	// Nothing is written when one of the pins is invalid
	err = s.SetPins(ctx, []PinRef{{Board: "a", Index: 1}, {Board: "c", Index: 0}}, true)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, uint16(0x20), da.Port()&0xff)
}
