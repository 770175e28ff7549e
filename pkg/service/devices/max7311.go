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

	"github.com/homeworker/HomeWorker/pkg/service/bridge"
)

const (
	max7311RegInput    = 0x00 // 0x00-0x01
	max7311RegOutput   = 0x02 // 0x02-0x03
	max7311RegPolarity = 0x04 // 0x04-0x05
	max7311RegConfig   = 0x06 // 0x06-0x07, 1 = input
	max7311Ports       = 2
)

// max7311 drives a 16 pin register based expander.
type max7311 struct {
	bus     bridge.I2CBus
	address uint8
}

// newMAX7311 creates a driver for a max7311 chip at given address.
func newMAX7311(bus bridge.I2CBus, address uint8) chip {
	return &max7311{
		bus:     bus,
		address: address,
	}
}

// PinCount returns the number of pins of the device
func (d *max7311) PinCount() int {
	return 16
}

// Configure sets polarity, outputs and direction of all pins.
func (d *max7311) Configure(ctx context.Context, inputs, outputs State) error {
	return d.bus.Execute(ctx, d.address, func(ctx context.Context, dev bridge.I2CDevice) error {
		for p := 0; p < max7311Ports; p++ {
			if err := dev.WriteByteReg(uint8(max7311RegPolarity+p), 0); err != nil {
				return err
			}
			// Outputs first, so pins never glitch when switching direction
			if err := dev.WriteByteReg(uint8(max7311RegOutput+p), outputs.Byte(p)); err != nil {
				return err
			}
			if err := dev.WriteByteReg(uint8(max7311RegConfig+p), inputs.Byte(p)); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReadInputs reads both input ports.
func (d *max7311) ReadInputs(ctx context.Context) (State, error) {
	var data [max7311Ports]uint8
	if err := d.bus.Execute(ctx, d.address, func(ctx context.Context, dev bridge.I2CDevice) error {
		for p := range data {
			v, err := dev.ReadByteReg(uint8(max7311RegInput + p))
			if err != nil {
				return err
			}
			data[p] = v
		}
		return nil
	}); err != nil {
		return 0, err
	}
	return stateFromBytes(data[:]...), nil
}

// WriteOutputs writes only the output ports that changed.
func (d *max7311) WriteOutputs(ctx context.Context, inputs, prev, next State) error {
	ports := changedPorts(prev, next, max7311Ports)
	if len(ports) == 0 {
		return nil
	}
	return d.bus.Execute(ctx, d.address, func(ctx context.Context, dev bridge.I2CDevice) error {
		for _, p := range ports {
			if err := dev.WriteByteReg(uint8(max7311RegOutput+p), next.Byte(p)); err != nil {
				return err
			}
		}
		return nil
	})
}
