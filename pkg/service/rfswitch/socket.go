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
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/homeworker/HomeWorker/pkg/service/objects"
)

const (
	// Upper limit of a single send when the caller gave no deadline
	sendTimeout = time.Second * 2
)

var (
	_ objects.BinaryActuator = &Socket{}
)

// Sender is the part of the transmitter used by sockets.
type Sender interface {
	Send(ctx context.Context, id string, cmd Command) error
}

// Socket is a remote controlled power socket.
// Its state is the last commanded state, there is no feedback.
type Socket struct {
	id     string
	sender Sender
	deps   objects.Dependencies
	log    zerolog.Logger

	mutex sync.Mutex
	on    bool
	since time.Time
}

// NewSocket creates a socket for a switch registered at the given sender.
func NewSocket(id string, sender Sender, deps objects.Dependencies) (*Socket, error) {
	if id == "" {
		return nil, objects.InvalidArgument("remote socket without ID")
	}
	return &Socket{
		id:     id,
		sender: sender,
		deps:   deps,
		log:    deps.Log.With().Str("object-id", id).Str("type", string(objects.TypeRemoteSocket)).Logger(),
		since:  deps.Scheduler.Now(),
	}, nil
}

// ID returns the unique identifier of this object.
func (o *Socket) ID() string { return o.id }

// Type returns the type of this object.
func (o *Socket) Type() objects.ObjectType { return objects.TypeRemoteSocket }

// Configure switches the socket off.
func (o *Socket) Configure(ctx context.Context) error {
	return o.SetState(ctx, false, objects.Animation{})
}

// Run the object until the given context is cancelled.
func (o *Socket) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

// SetState sends the on or off code. Animation is not supported.
func (o *Socket) SetState(ctx context.Context, on bool, animation objects.Animation) error {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	o.log.Debug().Bool("on", on).Msg("Set state")
	if o.on != on {
		o.on = on
		o.since = o.deps.Scheduler.Now()
	}
	if o.deps.Statuses != nil {
		defer func() { o.deps.Statuses.PublishStatus(o.statusLocked()) }()
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, sendTimeout)
		defer cancel()
	}
	return o.sender.Send(ctx, o.id, CommandFor(on))
}

// State returns the last commanded state.
func (o *Socket) State() bool {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	return o.on
}

// Status returns a snapshot of the current state.
func (o *Socket) Status() objects.Status {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	return o.statusLocked()
}

func (o *Socket) statusLocked() objects.Status {
	state := "off"
	if o.on {
		state = "on"
	}
	return objects.Status{
		ID:    o.id,
		Type:  objects.TypeRemoteSocket,
		State: state,
		Since: o.since,
	}
}
