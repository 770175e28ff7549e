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

	"github.com/homeworker/HomeWorker/pkg/service/bridge"
)

// Register addresses with IOCON.BANK=0.
// The mcp23008 has a single port at the A registers with a different layout.
type mcp230xxRegs struct {
	iodir, gppu, gpio, olat, iocon uint8
	stride                         uint8 // Distance between port A and B registers
}

var (
	mcp23008Regs = mcp230xxRegs{iodir: 0x00, iocon: 0x05, gppu: 0x06, gpio: 0x09, olat: 0x0a}
	mcp23017Regs = mcp230xxRegs{iodir: 0x00, iocon: 0x0a, gppu: 0x0c, gpio: 0x12, olat: 0x14, stride: 1}
)

// mcp230xx drives the mcp23008 (1 port) and mcp23017 (2 ports) expanders.
type mcp230xx struct {
	bus     bridge.I2CBus
	address uint8
	ports   int
	regs    mcp230xxRegs
}

// newMCP230xx creates a driver for a mcp230xx chip at given address.
func newMCP230xx(bus bridge.I2CBus, address uint8, ports int) chip {
	regs := mcp23008Regs
	if ports > 1 {
		regs = mcp23017Regs
	}
	return &mcp230xx{
		bus:     bus,
		address: address,
		ports:   ports,
		regs:    regs,
	}
}

// PinCount returns the number of pins of the device
func (d *mcp230xx) PinCount() int {
	return 8 * d.ports
}

func (d *mcp230xx) reg(base uint8, port int) uint8 {
	return base + uint8(port)*d.regs.stride
}

// Configure sets pull-ups for inputs, output latches and directions.
func (d *mcp230xx) Configure(ctx context.Context, inputs, outputs State) error {
	return d.bus.Execute(ctx, d.address, func(ctx context.Context, dev bridge.I2CDevice) error {
		// Sequential operation disabled
		if err := dev.WriteByteReg(d.regs.iocon, 0x20); err != nil {
			return err
		}
		for p := 0; p < d.ports; p++ {
			if err := dev.WriteByteReg(d.reg(d.regs.gppu, p), inputs.Byte(p)); err != nil {
				return err
			}
			if err := dev.WriteByteReg(d.reg(d.regs.olat, p), outputs.Byte(p)); err != nil {
				return err
			}
			if err := dev.WriteByteReg(d.reg(d.regs.iodir, p), inputs.Byte(p)); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReadInputs reads the GPIO port(s).
func (d *mcp230xx) ReadInputs(ctx context.Context) (State, error) {
	data := make([]uint8, d.ports)
	if err := d.bus.Execute(ctx, d.address, func(ctx context.Context, dev bridge.I2CDevice) error {
		for p := range data {
			v, err := dev.ReadByteReg(d.reg(d.regs.gpio, p))
			if err != nil {
				return err
			}
			data[p] = v
		}
		return nil
	}); err != nil {
		return 0, err
	}
	return stateFromBytes(data...), nil
}

// WriteOutputs writes only the output latches that changed.
func (d *mcp230xx) WriteOutputs(ctx context.Context, inputs, prev, next State) error {
	ports := changedPorts(prev, next, d.ports)
	if len(ports) == 0 {
		return nil
	}
	return d.bus.Execute(ctx, d.address, func(ctx context.Context, dev bridge.I2CDevice) error {
		for _, p := range ports {
			if err := dev.WriteByteReg(d.reg(d.regs.olat, p), next.Byte(p)); err != nil {
				return err
			}
		}
		return nil
	})
}
