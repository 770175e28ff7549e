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

package devices

import (
	"context"
	"sort"
	"sync"

	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/homeworker/HomeWorker/pkg/service/bridge"
)

const (
	// Number of changes buffered per subscription
	subscriptionQueueSize = 64
)

// Service contains the API that is exposed by the board registry.
// The registry is the single owner of all cached board state.
type Service interface {
	// RegisterBoard adds a board to the registry.
	// For mixed boards, inputPins lists the pins that are inputs.
	RegisterBoard(id string, chipType ChipType, address uint8, direction Direction, inputPins ...int) (*Board, error)
	// GetBoard returns the board with given ID.
	GetBoard(id string) (*Board, error)
	// Boards returns all boards, sorted by ID.
	Boards() []*Board
	// ValidateOutput checks that the given pin is an output pin.
	ValidateOutput(ref PinRef) error
	// ValidateInput checks that the given pin is an input pin.
	ValidateInput(ref PinRef) error
	// Configure is called once to put all boards in the desired state.
	Configure(ctx context.Context) error
	// PollInputs reads all input boards and publishes every changed pin.
	PollInputs(ctx context.Context) ([]Change, error)
	// WriteOutput writes the output state of a board, touching only changed bits.
	WriteOutput(ctx context.Context, id string, state State) error
	// SetPin sets a single output pin.
	SetPin(ctx context.Context, ref PinRef, value bool) error
	// SetPins sets a group of output pins to the same value, writing each board once.
	SetPins(ctx context.Context, refs []PinRef, value bool) error
	// Subscribe to changes of a single input pin.
	Subscribe(ref PinRef) (*Subscription, error)
	// Close brings all boards back to a safe state.
	Close(ctx context.Context) error
}

// Config of the registry.
type Config struct {
	// OnActive is called when there is I/O activity (optional).
	OnActive func()
}

// Dependencies of the registry.
type Dependencies struct {
	Log zerolog.Logger
	Bus bridge.I2CBus
}

type service struct {
	Config
	Dependencies
	log zerolog.Logger

	mutex     sync.RWMutex
	boards    map[string]*Board
	addresses map[uint8]string

	pollMutex sync.Mutex

	subMutex sync.RWMutex
	subs     map[string][]*Subscription // Board ID -> subscriptions
}

// NewService instantiates a new board registry.
func NewService(conf Config, deps Dependencies) Service {
	return &service{
		Config:       conf,
		Dependencies: deps,
		log:          deps.Log.With().Str("component", "board-registry").Logger(),
		boards:       make(map[string]*Board),
		addresses:    make(map[uint8]string),
		subs:         make(map[string][]*Subscription),
	}
}

// RegisterBoard adds a board to the registry.
func (s *service) RegisterBoard(id string, chipType ChipType, address uint8, direction Direction, inputPins ...int) (*Board, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if id == "" {
		return nil, errors.Wrap(InvalidArgumentError, "board ID must not be empty")
	}
	if _, found := s.boards[id]; found {
		return nil, errors.Wrapf(DuplicateBoardError, "board '%s'", id)
	}
	if other, found := s.addresses[address]; found {
		return nil, errors.Wrapf(DuplicateAddressError, "address 0x%02x of board '%s' is already used by board '%s'", address, id, other)
	}
	c, err := newChip(chipType, s.Bus, address)
	if err != nil {
		return nil, err
	}
	b, err := newBoard(id, chipType, address, direction, inputPins, c)
	if err != nil {
		return nil, err
	}
	s.boards[id] = b
	s.addresses[address] = id
	boardsRegisteredTotal.Set(float64(len(s.boards)))
	s.log.Debug().
		Str("board-id", id).
		Str("chip", string(chipType)).
		Uint8("address", address).
		Str("direction", string(direction)).
		Msg("Registered board")
	return b, nil
}

// GetBoard returns the board with given ID.
func (s *service) GetBoard(id string) (*Board, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if b, found := s.boards[id]; found {
		return b, nil
	}
	return nil, errors.Wrapf(NotFoundError, "board '%s'", id)
}

// Boards returns all boards, sorted by ID.
func (s *service) Boards() []*Board {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	ids := lo.Keys(s.boards)
	sort.Strings(ids)
	return lo.Map(ids, func(id string, _ int) *Board { return s.boards[id] })
}

// ValidateOutput checks that the given pin is an output pin.
func (s *service) ValidateOutput(ref PinRef) error {
	b, err := s.GetBoard(ref.Board)
	if err != nil {
		return err
	}
	if ref.Index < 0 || ref.Index >= b.PinCount() {
		return errors.Wrapf(InvalidPinError, "pin %s out of range [0..%d)", ref, b.PinCount())
	}
	if !b.IsOutput(ref.Index) {
		return errors.Wrapf(InvalidDirectionError, "pin %s is not an output", ref)
	}
	return nil
}

// ValidateInput checks that the given pin is an input pin.
func (s *service) ValidateInput(ref PinRef) error {
	b, err := s.GetBoard(ref.Board)
	if err != nil {
		return err
	}
	if ref.Index < 0 || ref.Index >= b.PinCount() {
		return errors.Wrapf(InvalidPinError, "pin %s out of range [0..%d)", ref, b.PinCount())
	}
	if !b.IsInput(ref.Index) {
		return errors.Wrapf(InvalidDirectionError, "pin %s is not an input", ref)
	}
	return nil
}

// Configure is called once to put all boards in the desired state
// and read the initial input snapshot.
// A board that fails is retried on first use.
func (s *service) Configure(ctx context.Context) error {
	var ae aerr.AggregateError
	configured := 0
	for _, b := range s.Boards() {
		log := s.log.With().Str("board-id", b.ID()).Logger()
		b.mutex.Lock()
		err := b.configureLocked(ctx)
		b.mutex.Unlock()
		if err != nil {
			log.Error().Err(err).Msg("Failed to configure board")
			ae.Add(errors.Wrapf(err, "board '%s'", b.ID()))
			continue
		}
		configured++
		if b.HasInputs() {
			if _, err := b.poll(ctx); err != nil {
				log.Warn().Err(err).Msg("Failed to read initial inputs")
			} else {
				s.offerLevels(b, s.subscriptions(b.ID())...)
			}
		}
		log.Debug().Msg("Configured board")
	}
	boardsConfiguredTotal.Set(float64(configured))
	s.log.Info().Int("count", configured).Msg("Configured boards")
	return ae.AsError()
}

// PollInputs reads all input boards and publishes every changed pin.
// Boards that fail to read are skipped, they are retried on the next poll.
func (s *service) PollInputs(ctx context.Context) ([]Change, error) {
	s.pollMutex.Lock()
	defer s.pollMutex.Unlock()

	pollsTotal.Inc()
	var ae aerr.AggregateError
	var result []Change
	for _, b := range s.Boards() {
		if !b.HasInputs() {
			continue
		}
		changes, err := b.poll(ctx)
		if err != nil {
			pollErrorsTotal.WithLabelValues(b.ID()).Inc()
			s.log.Warn().Err(err).Str("board-id", b.ID()).Msg("Failed to poll board")
			ae.Add(errors.Wrapf(err, "board '%s'", b.ID()))
			continue
		}
		if len(changes) == 0 {
			continue
		}
		changesTotal.WithLabelValues(b.ID()).Add(float64(len(changes)))
		s.onActive()
		for _, c := range changes {
			s.log.Debug().
				Str("board-id", c.Board).
				Int("index", c.Index).
				Bool("value", c.Value).
				Msg("Input changed")
			s.publish(ctx, c)
		}
		result = append(result, changes...)
	}
	return result, ae.AsError()
}

// WriteOutput writes the output state of a board, touching only changed bits.
func (s *service) WriteOutput(ctx context.Context, id string, state State) error {
	b, err := s.GetBoard(id)
	if err != nil {
		return err
	}
	written, err := b.write(ctx, state)
	return s.afterWrite(b, written, err)
}

// SetPin sets a single output pin.
func (s *service) SetPin(ctx context.Context, ref PinRef, value bool) error {
	return s.SetPins(ctx, []PinRef{ref}, value)
}

// SetPins sets a group of output pins to the same value.
// Boards are written in order of their first appearance in refs.
func (s *service) SetPins(ctx context.Context, refs []PinRef, value bool) error {
	masks := make(map[string]State)
	for _, ref := range refs {
		if err := s.ValidateOutput(ref); err != nil {
			return err
		}
		masks[ref.Board] = masks[ref.Board].With(ref.Index, true)
	}
	ids := lo.Uniq(lo.Map(refs, func(ref PinRef, _ int) string { return ref.Board }))
	for _, id := range ids {
		b, err := s.GetBoard(id)
		if err != nil {
			return err
		}
		written, err := b.setPins(ctx, masks[id], value)
		if err := s.afterWrite(b, written, err); err != nil {
			return err
		}
	}
	return nil
}

// afterWrite updates metrics after a write attempt.
func (s *service) afterWrite(b *Board, written bool, err error) error {
	if err != nil {
		writeErrorsTotal.WithLabelValues(b.ID()).Inc()
		s.log.Error().Err(err).Str("board-id", b.ID()).Msg("Failed to write outputs")
		return err
	}
	if written {
		writesTotal.WithLabelValues(b.ID()).Inc()
		s.onActive()
	} else {
		writesSkippedTotal.WithLabelValues(b.ID()).Inc()
	}
	return nil
}

// Close brings all boards back to a safe state (all outputs off).
func (s *service) Close(ctx context.Context) error {
	var ae aerr.AggregateError
	for _, b := range s.Boards() {
		if b.Direction() == DirectionInput {
			continue
		}
		if _, err := b.write(ctx, 0); err != nil {
			ae.Add(errors.Wrapf(err, "board '%s'", b.ID()))
		}
	}
	s.subMutex.Lock()
	for _, list := range s.subs {
		for _, sub := range list {
			sub.close()
		}
	}
	s.subs = make(map[string][]*Subscription)
	s.subMutex.Unlock()
	return ae.AsError()
}

func (s *service) onActive() {
	if s.OnActive != nil {
		s.OnActive()
	}
}
