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
	"strings"

	"github.com/pkg/errors"

	"github.com/homeworker/HomeWorker/pkg/service/bridge"
)

// ChipType identifies the I/O expander used on a board.
type ChipType string

const (
	// ChipTypePCF8574 is an 8 pin quasi bidirectional expander (CCTools HSREL5, HSPE8).
	ChipTypePCF8574 ChipType = "pcf8574"
	// ChipTypeMAX7311 is a 16 pin register based expander (CCTools HSPE16).
	ChipTypeMAX7311 ChipType = "max7311"
	// ChipTypeMCP23008 is an 8 pin register based expander.
	ChipTypeMCP23008 ChipType = "mcp23008"
	// ChipTypeMCP23017 is a 16 pin register based expander.
	ChipTypeMCP23017 ChipType = "mcp23017"
)

var chipTypeAliases = map[string]ChipType{
	"pcf8574":  ChipTypePCF8574,
	"hsrel5":   ChipTypePCF8574,
	"hspe8":    ChipTypePCF8574,
	"max7311":  ChipTypeMAX7311,
	"hspe16":   ChipTypeMAX7311,
	"mcp23008": ChipTypeMCP23008,
	"mcp23017": ChipTypeMCP23017,
}

// ParseChipType resolves a (case insensitive) chip type or board name.
func ParseChipType(s string) (ChipType, error) {
	if ct, found := chipTypeAliases[strings.ToLower(strings.TrimSpace(s))]; found {
		return ct, nil
	}
	return "", errors.Wrapf(UnknownChipTypeError, "'%s'", s)
}

// chip contains the API that is supported by all I/O expander drivers.
// Drivers keep no state of their own, the board owns the cached state.
type chip interface {
	// PinCount returns the number of pins of the chip.
	PinCount() int
	// Configure puts the chip in the desired state.
	// Pins set in inputs are inputs, all other pins are outputs
	// with the value given in outputs.
	Configure(ctx context.Context, inputs, outputs State) error
	// ReadInputs reads the level of all pins.
	ReadInputs(ctx context.Context) (State, error)
	// WriteOutputs writes the outputs that differ between prev and next.
	WriteOutputs(ctx context.Context, inputs, prev, next State) error
}

// newChip creates the driver for the given chip type.
func newChip(chipType ChipType, bus bridge.I2CBus, address uint8) (chip, error) {
	switch chipType {
	case ChipTypePCF8574:
		return newPCF8574(bus, address), nil
	case ChipTypeMAX7311:
		return newMAX7311(bus, address), nil
	case ChipTypeMCP23008:
		return newMCP230xx(bus, address, 1), nil
	case ChipTypeMCP23017:
		return newMCP230xx(bus, address, 2), nil
	default:
		return nil, errors.Wrapf(UnknownChipTypeError, "'%s'", chipType)
	}
}

// changedPorts returns the indexes of the 8 bit ports whose content
// differs between prev and next.
func changedPorts(prev, next State, ports int) []int {
	var result []int
	for p := 0; p < ports; p++ {
		if prev.Byte(p) != next.Byte(p) {
			result = append(result, p)
		}
	}
	return result
}
