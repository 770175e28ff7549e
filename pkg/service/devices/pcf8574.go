// Copyright 2021 Ewout Prangsma
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

// pcf8574 drives a quasi bidirectional 8 pin expander.
// The chip has no registers: a written 1 makes a pin a weak-high input,
// a written 0 pulls the pin low.
type pcf8574 struct {
	bus     bridge.I2CBus
	address uint8
}

// newPCF8574 creates a driver for a pcf8574 chip at given address.
func newPCF8574(bus bridge.I2CBus, address uint8) chip {
	return &pcf8574{
		bus:     bus,
		address: address,
	}
}

// PinCount returns the number of pins of the device
func (d *pcf8574) PinCount() int {
	return 8
}

// Configure writes inputs high and outputs to their value.
func (d *pcf8574) Configure(ctx context.Context, inputs, outputs State) error {
	return d.write(ctx, inputs, outputs)
}

// ReadInputs reads the level of all pins.
func (d *pcf8574) ReadInputs(ctx context.Context) (State, error) {
	data, err := d.bus.Transact(ctx, d.address, nil, 1)
	if err != nil {
		return 0, err
	}
	return stateFromBytes(data...), nil
}

// WriteOutputs writes the port when any output changed.
func (d *pcf8574) WriteOutputs(ctx context.Context, inputs, prev, next State) error {
	if len(changedPorts(prev, next, 1)) == 0 {
		return nil
	}
	return d.write(ctx, inputs, next)
}

// write merges direction & output into the single port byte.
// Per bit: input -> 1, output -> output bit.
func (d *pcf8574) write(ctx context.Context, inputs, outputs State) error {
	value := (inputs | outputs).Byte(0)
	_, err := d.bus.Transact(ctx, d.address, []byte{value}, 0)
	return err
}
