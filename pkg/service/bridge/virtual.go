//    Copyright 2017 Ewout Prangsma
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.

package bridge

import (
	"context"
	"sync"
	"time"
)

// VirtualBridge is a bridge without hardware.
// All chips live in memory, which makes it usable on development
// machines and in tests.
type VirtualBridge struct {
	mutex     sync.Mutex
	devices   map[uint8]*VirtualDevice
	bus       *i2cBus
	autoAdd   bool
	interrupt *VirtualPin
	rf        *VirtualPin
}

// NewVirtualBridge implements the bridge for a virtual worker.
// When autoAdd is set, a device is created for every address that
// is accessed.
func NewVirtualBridge(autoAdd bool) *VirtualBridge {
	return &VirtualBridge{
		devices: make(map[uint8]*VirtualDevice),
		autoAdd: autoAdd,
	}
}

// AddDevice adds a simulated chip at the given address.
func (p *VirtualBridge) AddDevice(address uint8) *VirtualDevice {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.addDevice(address)
}

func (p *VirtualBridge) addDevice(address uint8) *VirtualDevice {
	if d, found := p.devices[address]; found {
		return d
	}
	d := &VirtualDevice{
		address: address,
		port:    0xffff,
		inputs:  0xffff,
	}
	p.devices[address] = d
	return d
}

// Device returns the simulated chip at the given address (if any).
func (p *VirtualBridge) Device(address uint8) (*VirtualDevice, bool) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	d, found := p.devices[address]
	return d, found
}

// Turn Green status led on/off
func (p *VirtualBridge) SetGreenLED(on bool) error {
	return nil
}

// Turn Red status led on/off
func (p *VirtualBridge) SetRedLED(on bool) error {
	return nil
}

// Blink Green status led with given duration between on/off
func (p *VirtualBridge) BlinkGreenLED(delay time.Duration) error {
	return nil
}

// Blink Red status led with given duration between on/off
func (p *VirtualBridge) BlinkRedLED(delay time.Duration) error {
	return nil
}

// Open the I2C bus
func (p *VirtualBridge) I2CBus() (I2CBus, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.bus == nil {
		p.bus = newI2CBus(p.openDevice, DefaultTransactionTimeout)
	}
	return p.bus, nil
}

// InterruptInput returns the simulated interrupt line.
func (p *VirtualBridge) InterruptInput(pinNumber int, activeLow bool) (InputPin, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.interrupt == nil {
		p.interrupt = NewVirtualPin()
	}
	return p.interrupt, nil
}

// RFOutput returns the simulated RF transmitter pin.
func (p *VirtualBridge) RFOutput(pinNumber int) (OutputPin, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.rf == nil {
		p.rf = NewVirtualPin()
	}
	return p.rf, nil
}

func (p *VirtualBridge) Close() error {
	p.mutex.Lock()
	bus := p.bus
	p.bus = nil
	p.mutex.Unlock()

	if bus != nil {
		return bus.Close()
	}
	return nil
}

// openDevice is the device opener of the virtual bus.
func (p *VirtualBridge) openDevice(address uint8) (deviceHandle, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	d, found := p.devices[address]
	if !found {
		if !p.autoAdd {
			return nil, NoAcknowledgeError
		}
		d = p.addDevice(address)
	}
	return d, nil
}

// VirtualDevice is an in-memory I2C chip.
// Register access goes to a register file, byte and block access
// goes to a quasi bidirectional port (like a PCF857x), where a pin
// reads low when it is written low or the simulated input pulls it low.
type VirtualDevice struct {
	mutex    sync.Mutex
	address  uint8
	regs     [256]uint8
	port     uint16
	inputs   uint16
	failNext int
	ops      int
	hook     func()
}

// SetInputs sets the levels that external signals put on the port.
func (d *VirtualDevice) SetInputs(value uint16) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.inputs = value
}

// Port returns the last value written to the port.
func (d *VirtualDevice) Port() uint16 {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.port
}

// SetRegister sets the content of a register.
func (d *VirtualDevice) SetRegister(reg, value uint8) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.regs[reg] = value
}

// Register returns the content of a register.
func (d *VirtualDevice) Register(reg uint8) uint8 {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.regs[reg]
}

// FailNext makes the next count operations fail with NoAcknowledgeError.
func (d *VirtualDevice) FailNext(count int) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.failNext = count
}

// Operations returns the number of operations performed on the device.
func (d *VirtualDevice) Operations() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.ops
}

// SetHook installs a callback that is invoked (outside the device lock)
// at the start of every operation.
func (d *VirtualDevice) SetHook(hook func()) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.hook = hook
}

// begin is called at the start of every operation.
func (d *VirtualDevice) begin() error {
	d.mutex.Lock()
	hook := d.hook
	d.ops++
	fail := d.failNext > 0
	if fail {
		d.failNext--
	}
	d.mutex.Unlock()
	if hook != nil {
		hook()
	}
	if fail {
		return NoAcknowledgeError
	}
	return nil
}

// ReadByteReg reads a byte from given register.
func (d *VirtualDevice) ReadByteReg(reg uint8) (uint8, error) {
	if err := d.begin(); err != nil {
		return 0, err
	}
	return d.Register(reg), nil
}

// WriteByteReg writes a byte to given register.
func (d *VirtualDevice) WriteByteReg(reg uint8, val uint8) error {
	if err := d.begin(); err != nil {
		return err
	}
	d.SetRegister(reg, val)
	return nil
}

// ReadByte reads the low byte of the port.
func (d *VirtualDevice) ReadByte() (byte, error) {
	if err := d.begin(); err != nil {
		return 0, err
	}
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return uint8(d.port & d.inputs), nil
}

// WriteByte writes the low byte of the port.
func (d *VirtualDevice) WriteByte(val byte) error {
	if err := d.begin(); err != nil {
		return err
	}
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.port = (d.port & 0xff00) | uint16(val)
	return nil
}

// ReadDevice reads up to 2 bytes of the port (low byte first).
func (d *VirtualDevice) ReadDevice(data []byte) error {
	if err := d.begin(); err != nil {
		return err
	}
	d.mutex.Lock()
	defer d.mutex.Unlock()
	value := d.port & d.inputs
	for i := range data {
		data[i] = uint8(value >> (8 * uint(i%2)))
	}
	return nil
}

// WriteDevice writes up to 2 bytes of the port (low byte first).
func (d *VirtualDevice) WriteDevice(data []byte) error {
	if err := d.begin(); err != nil {
		return err
	}
	d.mutex.Lock()
	defer d.mutex.Unlock()
	for i, b := range data {
		shift := 8 * uint(i%2)
		d.port = (d.port &^ (0xff << shift)) | (uint16(b) << shift)
	}
	return nil
}

// Detect always succeeds for a simulated device.
func (d *VirtualDevice) Detect() error {
	return d.begin()
}

// Close is a no-op for a simulated device.
func (d *VirtualDevice) Close() error {
	return nil
}

// VirtualPin is an in-memory GPIO pin.
type VirtualPin struct {
	mutex  sync.Mutex
	value  bool
	writes []bool
	edges  chan struct{}
	err    error
}

// NewVirtualPin creates a new virtual pin with a low level.
func NewVirtualPin() *VirtualPin {
	return &VirtualPin{
		edges: make(chan struct{}, 1),
	}
}

// Set the level of the pin, signaling an edge when it changes.
func (p *VirtualPin) Set(value bool) {
	p.mutex.Lock()
	changed := p.value != value
	p.value = value
	p.mutex.Unlock()
	if changed {
		select {
		case p.edges <- struct{}{}:
		default:
		}
	}
}

// SetError makes Read fail with given error (nil to clear).
func (p *VirtualPin) SetError(err error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.err = err
}

// Read the logical value of the pin.
func (p *VirtualPin) Read() (bool, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.value, p.err
}

// WaitForEdge blocks until the pin changes level or the context is canceled.
func (p *VirtualPin) WaitForEdge(ctx context.Context) error {
	select {
	case <-p.edges:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Write the value of the pin.
func (p *VirtualPin) Write(value bool) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.value = value
	p.writes = append(p.writes, value)
	return nil
}

// Writes returns all values written to the pin.
func (p *VirtualPin) Writes() []bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return append([]bool(nil), p.writes...)
}

func (p *VirtualPin) Close() error {
	return nil
}
