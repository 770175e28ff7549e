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
	"time"

	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

var (
	_ BinaryActuator = &CombinedActuator{}
)

// CombinedActuator drives a list of binary actuators as one.
// It has no hardware state of its own.
type CombinedActuator struct {
	id      string
	deps    Dependencies
	members []BinaryActuator
}

// NewCombinedActuator creates a combined actuator of the given members.
func NewCombinedActuator(id string, members []BinaryActuator, deps Dependencies) (*CombinedActuator, error) {
	if id == "" {
		return nil, InvalidArgument("combined actuator without ID")
	}
	if len(members) == 0 {
		return nil, InvalidArgument("combined actuator '%s' has no members", id)
	}
	for _, m := range members {
		if m == nil {
			return nil, InvalidArgument("combined actuator '%s' has a nil member", id)
		}
		if m.ID() == id {
			return nil, InvalidArgument("combined actuator '%s' contains itself", id)
		}
	}
	return &CombinedActuator{
		id:      id,
		deps:    deps,
		members: members,
	}, nil
}

// ID returns the unique identifier of this object.
func (o *CombinedActuator) ID() string { return o.id }

// Type returns the type of this object.
func (o *CombinedActuator) Type() ObjectType { return TypeCombined }

// Members returns the members of this actuator.
func (o *CombinedActuator) Members() []BinaryActuator {
	return append([]BinaryActuator(nil), o.members...)
}

// Configure is a no-op, members are configured by themselves.
func (o *CombinedActuator) Configure(ctx context.Context) error {
	return nil
}

// Run the object until the given context is cancelled.
func (o *CombinedActuator) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

// SetState sets the state of all members in declaration order.
// A failing member does not stop the others.
func (o *CombinedActuator) SetState(ctx context.Context, on bool, animation Animation) error {
	var ae aerr.AggregateError
	for _, m := range o.members {
		if err := m.SetState(ctx, on, animation); err != nil {
			ae.Add(errors.Wrapf(err, "member '%s'", m.ID()))
		}
	}
	o.deps.publish(o.Status())
	return ae.AsError()
}

// State returns true when all members are on.
func (o *CombinedActuator) State() bool {
	return lo.EveryBy(o.members, func(m BinaryActuator) bool { return m.State() })
}

// Status returns a snapshot of the current state.
// Since is the latest change of any member.
func (o *CombinedActuator) Status() Status {
	var since time.Time
	for _, m := range o.members {
		if s := m.Status().Since; s.After(since) {
			since = s
		}
	}
	return Status{
		ID:    o.id,
		Type:  TypeCombined,
		State: onOff(o.State()),
		Since: since,
	}
}
