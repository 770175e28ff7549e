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
)

// Subscription delivers the changes of a single input pin, in the
// order in which they were observed.
type Subscription struct {
	ref       PinRef
	changes   chan Change
	done      chan struct{}
	closeOnce sync.Once
	remove    func(*Subscription)
}

// Pin returns the pin this subscription is listening to.
func (s *Subscription) Pin() PinRef { return s.ref }

// Changes returns the channel on which changes are delivered.
// Once the board has been read, the first change carries the initial
// level of the pin.
// The channel is never closed, use Done to detect the end of the subscription.
func (s *Subscription) Changes() <-chan Change { return s.changes }

// Done is closed when the subscription ends.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Close ends the subscription.
func (s *Subscription) Close() {
	if s.remove != nil {
		s.remove(s)
	}
	s.close()
}

func (s *Subscription) close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// deliver a change, blocking while the queue is full.
func (s *Subscription) deliver(ctx context.Context, c Change) bool {
	select {
	case s.changes <- c:
		return true
	default:
	}
	subscriptionStallsTotal.Inc()
	select {
	case s.changes <- c:
		return true
	case <-s.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// Subscribe to changes of a single input pin.
func (s *service) Subscribe(ref PinRef) (*Subscription, error) {
	if err := s.ValidateInput(ref); err != nil {
		return nil, err
	}
	sub := &Subscription{
		ref:     ref,
		changes: make(chan Change, subscriptionQueueSize),
		done:    make(chan struct{}),
		remove:  s.unsubscribe,
	}
	s.subMutex.Lock()
	s.subs[ref.Board] = append(s.subs[ref.Board], sub)
	s.subMutex.Unlock()
	if b, err := s.GetBoard(ref.Board); err == nil {
		s.offerLevels(b, sub)
	}
	return sub, nil
}

// subscriptions returns the subscriptions of the board with given ID.
func (s *service) subscriptions(boardID string) []*Subscription {
	s.subMutex.RLock()
	defer s.subMutex.RUnlock()
	return append([]*Subscription(nil), s.subs[boardID]...)
}

// offerLevels queues the current level of the pin of every given subscription
// as an initial change. Nothing is queued while the board has not been read.
// The snapshot is held while queueing, so a change found by a later poll is
// always queued after the initial level.
func (s *service) offerLevels(b *Board, subs ...*Subscription) {
	b.withSnapshot(func(snapshot State, valid bool) {
		if !valid {
			return
		}
		for _, sub := range subs {
			c := Change{
				Board:   b.ID(),
				Index:   sub.ref.Index,
				Value:   snapshot.Get(sub.ref.Index),
				Initial: true,
			}
			select {
			case sub.changes <- c:
			default:
				subscriptionDropsTotal.Inc()
			}
		}
	})
}

func (s *service) unsubscribe(sub *Subscription) {
	s.subMutex.Lock()
	defer s.subMutex.Unlock()

	list := s.subs[sub.ref.Board]
	for i, x := range list {
		if x == sub {
			s.subs[sub.ref.Board] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// publish a change to all subscribers of the changed pin.
func (s *service) publish(ctx context.Context, c Change) {
	list := s.subscriptions(c.Board)
	for _, sub := range list {
		if sub.ref.Index != c.Index {
			continue
		}
		if !sub.deliver(ctx, c) {
			subscriptionDropsTotal.Inc()
		}
	}
}
