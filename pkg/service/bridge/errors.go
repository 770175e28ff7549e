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

package bridge

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

var (
	// BusClosedError is returned for operations on a closed bus.
	BusClosedError = errors.New("bus closed")
	// NoAcknowledgeError is returned when the addressed chip does not respond.
	NoAcknowledgeError = errors.New("no acknowledge")
)

// BusError is returned for every failed transaction on the I2C bus.
type BusError struct {
	Address uint8
	Op      string
	Timeout bool
	Err     error
}

// Error implements the error interface.
func (e *BusError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("i2c %s at 0x%02x timed out: %v", e.Op, e.Address, e.Err)
	}
	return fmt.Sprintf("i2c %s at 0x%02x failed: %v", e.Op, e.Address, e.Err)
}

// Unwrap returns the underlying error.
func (e *BusError) Unwrap() error {
	return e.Err
}

// newBusError wraps the given error in a BusError.
func newBusError(address uint8, op string, err error) *BusError {
	if be, ok := asBusError(err); ok {
		return be
	}
	timeout := errors.Is(err, context.DeadlineExceeded)
	if errors.Is(err, unix.EREMOTEIO) || errors.Is(err, unix.ENXIO) {
		err = errors.Wrap(NoAcknowledgeError, err.Error())
	}
	return &BusError{
		Address: address,
		Op:      op,
		Timeout: timeout,
		Err:     err,
	}
}

func asBusError(err error) (*BusError, bool) {
	var be *BusError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}

// IsBusError returns true when the given error is (or wraps) a BusError.
func IsBusError(err error) bool {
	_, ok := asBusError(err)
	return ok
}

// IsTimeout returns true when the given error is a timed out bus transaction.
func IsTimeout(err error) bool {
	be, ok := asBusError(err)
	return ok && be.Timeout
}

// IsNoAcknowledge returns true when the addressed chip did not respond.
func IsNoAcknowledge(err error) bool {
	return errors.Cause(err) == NoAcknowledgeError || errors.Is(err, NoAcknowledgeError)
}
