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

package bridge

import (
	"context"
	"runtime"
	"strconv"
	"sync"
	"time"

	aerr "github.com/ewoutp/go-aggregate-error"
)

const (
	// DefaultTransactionTimeout is applied to bus calls whose context
	// has no deadline.
	DefaultTransactionTimeout = time.Millisecond * 500
)

// I2CBus serializes all transactions on a single physical I2C bus.
type I2CBus interface {
	// Transact writes the given bytes to the device at given address,
	// then reads readLen bytes from it.
	Transact(ctx context.Context, address uint8, write []byte, readLen int) ([]byte, error)
	// Execute an operation on the bus.
	Execute(ctx context.Context, address uint8, op func(ctx context.Context, dev I2CDevice) error) error
	// DetectSlaveAddresses probes the bus to detect available addresses.
	DetectSlaveAddresses(ctx context.Context) []byte
	// Close the bus and all devices on it
	Close() error
}

// I2CDevice communicates with a device on the I2C Bus that has a specific address.
type I2CDevice interface {
	// Read a byte from given register
	ReadByteReg(reg uint8) (uint8, error)
	// Write a byte to given register
	WriteByteReg(reg uint8, val uint8) (err error)
	// Read a byte from device
	ReadByte() (byte, error)
	// Write a byte to device
	WriteByte(val byte) (err error)
	// Read a block of data directly from the device
	ReadDevice(data []byte) (err error)
	// Write a block of data directly to the device
	WriteDevice(data []byte) (err error)
}

// deviceHandle is an opened device on the bus.
type deviceHandle interface {
	I2CDevice
	// Probe the device for presence.
	Detect() error
	// Release the handle.
	Close() error
}

// deviceOpener opens a handle for the device at the given address.
type deviceOpener func(address uint8) (deviceHandle, error)

type busRequest struct {
	ctx     context.Context
	address uint8
	op      func(context.Context, I2CDevice) error
	result  chan error
}

type i2cBus struct {
	open      deviceOpener
	devices   map[uint8]deviceHandle // Only accessed by queue processor
	queue     chan busRequest
	closed    chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
	closeErr  error
	timeout   time.Duration
}

// NewI2CBus returns accessors the the I2C bus at the given location.
func NewI2CBus(location string) (I2CBus, error) {
	return newI2CBus(func(address uint8) (deviceHandle, error) {
		return newI2CDevice(location, address)
	}, DefaultTransactionTimeout), nil
}

// newI2CBus creates a bus using the given device opener and starts its
// queue processor.
func newI2CBus(open deviceOpener, timeout time.Duration) *i2cBus {
	b := &i2cBus{
		open:    open,
		devices: make(map[uint8]deviceHandle),
		queue:   make(chan busRequest),
		closed:  make(chan struct{}),
		stopped: make(chan struct{}),
		timeout: timeout,
	}
	go b.queueProcessor()
	return b
}

// Transact writes the given bytes to the device at given address,
// then reads readLen bytes from it.
func (b *i2cBus) Transact(ctx context.Context, address uint8, write []byte, readLen int) ([]byte, error) {
	var result []byte
	if err := b.Execute(ctx, address, func(ctx context.Context, dev I2CDevice) error {
		if len(write) > 0 {
			if err := dev.WriteDevice(write); err != nil {
				return err
			}
		}
		if readLen > 0 {
			buf := make([]byte, readLen)
			if err := dev.ReadDevice(buf); err != nil {
				return err
			}
			result = buf
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return result, nil
}

// Execute an operation on the bus.
// The operation runs on the queue processor, so no two operations
// ever overlap on the bus.
func (b *i2cBus) Execute(ctx context.Context, address uint8, op func(context.Context, I2CDevice) error) error {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}
	addrLabel := strconv.Itoa(int(address))
	start := time.Now()
	defer func() {
		i2cExecuteDuration.WithLabelValues(addrLabel).Observe(time.Since(start).Seconds())
	}()

	// Put request in queue
	req := busRequest{
		ctx:     ctx,
		address: address,
		op:      op,
		result:  make(chan error, 1),
	}
	select {
	case b.queue <- req:
		// Request is on the queue
	case <-b.closed:
		return newBusError(address, "execute", BusClosedError)
	case <-ctx.Done():
		i2cTimeoutCounters.WithLabelValues(addrLabel).Inc()
		return newBusError(address, "execute", ctx.Err())
	}

	// Wait until result is available
	select {
	case err := <-req.result:
		return err
	case <-ctx.Done():
		i2cTimeoutCounters.WithLabelValues(addrLabel).Inc()
		return newBusError(address, "execute", ctx.Err())
	}
}

// Process bus requests from the queue until the bus is closed.
func (b *i2cBus) queueProcessor() {
	// Ensure we're always using the same OS thread
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for {
		select {
		case req := <-b.queue:
			if err := req.ctx.Err(); err != nil {
				req.result <- newBusError(req.address, "execute", err)
				continue
			}
			req.result <- b.execute(req.ctx, req.address, req.op)
		case <-b.closed:
			b.closeErr = b.closeDevices()
			close(b.stopped)
			return
		}
	}
}

// Execute an operation on the bus.
// Called on the queue processor only.
func (b *i2cBus) execute(ctx context.Context, address uint8, op func(context.Context, I2CDevice) error) error {
	addrLabel := strconv.Itoa(int(address))
	i2cExecuteCounters.WithLabelValues(addrLabel).Inc()

	var err error
	for attempt := 0; attempt < 2; attempt++ {
		var dev deviceHandle
		dev, err = b.openDevice(address)
		if err != nil {
			break
		}

		// Execute operation
		err = op(ctx, dev)
		if err == nil {
			return nil
		}

		// Device call failed, start over with fresh handles
		b.closeDevices()
		if ctx.Err() != nil {
			break
		}
	}
	i2cExecuteErrorCounters.WithLabelValues(addrLabel).Inc()
	return newBusError(address, "execute", err)
}

// Open a connection to a device at the given address.
func (b *i2cBus) openDevice(address uint8) (deviceHandle, error) {
	if d, found := b.devices[address]; found {
		return d, nil
	}
	d, err := b.open(address)
	if err != nil {
		return nil, err
	}
	b.devices[address] = d
	return d, nil
}

// closeDevices closes all open device handles.
func (b *i2cBus) closeDevices() error {
	var ae aerr.AggregateError
	for addr, d := range b.devices {
		if err := d.Close(); err != nil {
			ae.Add(err)
		}
		delete(b.devices, addr)
	}
	return ae.AsError()
}

// DetectSlaveAddresses probes the bus to detect available addresses.
func (b *i2cBus) DetectSlaveAddresses(ctx context.Context) []byte {
	var result []byte
	for addr := uint8(1); addr < 128; addr++ {
		found := false
		b.Execute(ctx, addr, func(ctx context.Context, dev I2CDevice) error {
			if h, ok := dev.(deviceHandle); ok && h.Detect() == nil {
				found = true
			}
			return nil
		})
		if found {
			result = append(result, addr)
		}
	}
	return result
}

// Close the bus and all devices on it
func (b *i2cBus) Close() error {
	b.closeOnce.Do(func() {
		close(b.closed)
	})
	<-b.stopped
	return b.closeErr
}
