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
	"fmt"
	"sync"

	"github.com/pkg/errors"
)

// Direction of the pins of a board.
type Direction string

const (
	DirectionInput  Direction = "input"
	DirectionOutput Direction = "output"
	DirectionMixed  Direction = "mixed"
)

// PinRef identifies a single pin of a board.
type PinRef struct {
	Board string `json:"board" yaml:"board"`
	Index int    `json:"index" yaml:"index"`
}

func (r PinRef) String() string {
	return fmt.Sprintf("%s/%d", r.Board, r.Index)
}

// Change is emitted for every input pin whose value changed.
type Change struct {
	Board string
	Index int
	Value bool
	// Set when Value is the level of the pin at the start of a
	// subscription, rather than a transition.
	Initial bool
}

// Pin returns the reference of the changed pin.
func (c Change) Pin() PinRef {
	return PinRef{Board: c.Board, Index: c.Index}
}

// Board is a single I/O expander on the bus.
// All cached state is guarded by the board mutex; bus access for a
// board happens with that mutex held, so writes of one board never
// reorder.
type Board struct {
	id        string
	chipType  ChipType
	address   uint8
	direction Direction
	inputs    State // Bit set for every input pin
	chip      chip

	mutex         sync.Mutex
	configured    bool
	output        State // Last written output
	snapshot      State // Last read input levels
	snapshotValid bool
}

// newBoard creates a board.
func newBoard(id string, chipType ChipType, address uint8, direction Direction, inputPins []int, c chip) (*Board, error) {
	pinCount := c.PinCount()
	var inputs State
	switch direction {
	case DirectionInput:
		inputs = State(allPins(pinCount))
	case DirectionOutput:
		inputs = 0
	case DirectionMixed:
		for _, index := range inputPins {
			if index < 0 || index >= pinCount {
				return nil, errors.Wrapf(InvalidPinError, "input pin %d of board '%s' out of range [0..%d)", index, id, pinCount)
			}
			inputs = inputs.With(index, true)
		}
	default:
		return nil, errors.Wrapf(InvalidDirectionError, "'%s' for board '%s'", direction, id)
	}
	return &Board{
		id:        id,
		chipType:  chipType,
		address:   address,
		direction: direction,
		inputs:    inputs,
		chip:      c,
	}, nil
}

// ID of the board
func (b *Board) ID() string { return b.id }

// ChipType of the board
func (b *Board) ChipType() ChipType { return b.chipType }

// Address of the board on the bus
func (b *Board) Address() uint8 { return b.address }

// Direction of the board
func (b *Board) Direction() Direction { return b.direction }

// PinCount returns the number of pins of the board.
func (b *Board) PinCount() int { return b.chip.PinCount() }

// IsInput returns true if the pin at given index is an input.
func (b *Board) IsInput(index int) bool {
	return index >= 0 && index < b.PinCount() && b.inputs.Get(index)
}

// IsOutput returns true if the pin at given index is an output.
func (b *Board) IsOutput(index int) bool {
	return index >= 0 && index < b.PinCount() && !b.inputs.Get(index)
}

// HasInputs returns true if the board has at least one input pin.
func (b *Board) HasInputs() bool {
	return b.inputs != 0
}

// Output returns the cached output state.
func (b *Board) Output() State {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.output
}

// Snapshot returns the last known input state and whether it is valid.
func (b *Board) Snapshot() (State, bool) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.snapshot, b.snapshotValid
}

// withSnapshot calls fn with the input snapshot while holding the board mutex,
// so no poll can update the snapshot while fn runs.
func (b *Board) withSnapshot(fn func(snapshot State, valid bool)) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	fn(b.snapshot, b.snapshotValid)
}

// configureLocked puts the chip in its desired state. Requires the mutex.
func (b *Board) configureLocked(ctx context.Context) error {
	if err := b.chip.Configure(ctx, b.inputs, b.output); err != nil {
		return err
	}
	b.configured = true
	return nil
}

// ensureConfiguredLocked configures the chip when that did not succeed before.
func (b *Board) ensureConfiguredLocked(ctx context.Context) error {
	if b.configured {
		return nil
	}
	return b.configureLocked(ctx)
}

// poll reads the inputs and returns the changed pins.
// The first successful read only establishes the snapshot.
func (b *Board) poll(ctx context.Context) ([]Change, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if err := b.ensureConfiguredLocked(ctx); err != nil {
		return nil, err
	}
	current, err := b.chip.ReadInputs(ctx)
	if err != nil {
		return nil, err
	}
	current &= b.inputs
	if !b.snapshotValid {
		b.snapshot = current
		b.snapshotValid = true
		return nil, nil
	}
	var changes []Change
	for _, index := range current.Diff(b.snapshot, b.PinCount()) {
		changes = append(changes, Change{
			Board: b.id,
			Index: index,
			Value: current.Get(index),
		})
	}
	b.snapshot = current
	return changes, nil
}

// write the given output state, touching the bus only for changed bits.
// Returns true when the bus was written.
func (b *Board) write(ctx context.Context, next State) (bool, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.writeLocked(ctx, next)
}

func (b *Board) writeLocked(ctx context.Context, next State) (bool, error) {
	next &= State(allPins(b.PinCount())) &^ b.inputs
	if err := b.ensureConfiguredLocked(ctx); err != nil {
		return false, err
	}
	if next == b.output {
		return false, nil
	}
	if err := b.chip.WriteOutputs(ctx, b.inputs, b.output, next); err != nil {
		return false, err
	}
	b.output = next
	return true, nil
}

// setPins updates the output pins set in mask to the given value.
func (b *Board) setPins(ctx context.Context, mask State, value bool) (bool, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	next := b.output &^ mask
	if value {
		next |= mask
	}
	return b.writeLocked(ctx, next)
}
