// Copyright 2023 Ewout Prangsma
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

package ui

import (
	"context"
	"sync"

	"github.com/mattn/go-pubsub"

	"github.com/homeworker/HomeWorker/pkg/service/objects"
)

const (
	// Number of status changes buffered per subscriber
	feedQueueSize = 32
)

var _ objects.StatusSink = &Feed{}

// Feed distributes status changes to all connected consoles.
// Publishing never blocks the publisher.
type Feed struct {
	changes *pubsub.PubSub

	mutex  sync.Mutex
	lastID int
	subs   map[int]chan objects.Status
}

// NewFeed creates a new feed.
func NewFeed() *Feed {
	f := &Feed{
		changes: pubsub.New(),
		subs:    make(map[int]chan objects.Status),
	}
	f.changes.Sub(f.deliver)
	return f
}

// PublishStatus sends the given status to all subscribers.
func (f *Feed) PublishStatus(ctx context.Context, status objects.Status) error {
	f.changes.Pub(status)
	return nil
}

// deliver passes a status to every subscriber that has room for it.
func (f *Feed) deliver(status objects.Status) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	for _, ch := range f.subs {
		select {
		case ch <- status:
		default:
			// Subscriber does not keep up
		}
	}
}

// Subscribe returns a channel that receives status changes.
// Call the returned function to unsubscribe, which closes the channel.
func (f *Feed) Subscribe() (<-chan objects.Status, context.CancelFunc) {
	ch := make(chan objects.Status, feedQueueSize)
	f.mutex.Lock()
	f.lastID++
	id := f.lastID
	f.subs[id] = ch
	f.mutex.Unlock()
	return ch, func() {
		f.mutex.Lock()
		defer f.mutex.Unlock()
		if _, found := f.subs[id]; found {
			delete(f.subs, id)
			close(ch)
		}
	}
}

// Subscribers returns the number of active subscribers.
func (f *Feed) Subscribers() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return len(f.subs)
}

// Close stops delivering changes.
func (f *Feed) Close() {
	f.changes.Leave(f.deliver)
}
