package model

import (
	"github.com/homeworker/HomeWorker/pkg/service/devices"
	"github.com/homeworker/HomeWorker/pkg/service/rfswitch"
)

// Board holds configuration data for a single I/O board on the I2C bus.
type Board struct {
	// Unique identifier of the board
	ID string `yaml:"id"`
	// Chip type or board name (pcf8574, hsrel5, hspe8, max7311, hspe16, mcp23008, mcp23017)
	Chip string `yaml:"chip"`
	// Address on the I2C bus
	Address uint8 `yaml:"address"`
	// Direction of the pins (input, output, mixed)
	Direction devices.Direction `yaml:"direction"`
	// Input pins of a mixed board
	InputPins []int `yaml:"input-pins,omitempty"`
}

// ChipType returns the parsed chip type of the board.
func (b Board) ChipType() (devices.ChipType, error) {
	return devices.ParseChipType(b.Chip)
}

// IsInput returns true if the pin with given index is an input.
func (b Board) IsInput(index int) bool {
	switch b.Direction {
	case devices.DirectionInput:
		return true
	case devices.DirectionMixed:
		for _, x := range b.InputPins {
			if x == index {
				return true
			}
		}
	}
	return false
}

// Validate the given configuration, returning nil on ok,
// or an error upon validation issues.
func (b Board) Validate() error {
	if b.ID == "" {
		return invalid("board ID is empty")
	}
	if _, err := b.ChipType(); err != nil {
		return invalid("chip of board '%s': %s", b.ID, err)
	}
	switch b.Direction {
	case devices.DirectionInput, devices.DirectionOutput:
		if len(b.InputPins) > 0 {
			return invalid("board '%s' has input-pins but is not mixed", b.ID)
		}
	case devices.DirectionMixed:
		if len(b.InputPins) == 0 {
			return invalid("mixed board '%s' has no input-pins", b.ID)
		}
	default:
		return invalid("board '%s' has invalid direction '%s'", b.ID, b.Direction)
	}
	return nil
}

// RF holds the configuration of the 433MHz transmitter.
type RF struct {
	// Number of times every code is sent (0 means default)
	Repeat int `yaml:"repeat,omitempty"`
}

// RemoteSwitch holds the configuration of a socket switched over RF.
type RemoteSwitch struct {
	// Unique identifier of the socket
	ID string `yaml:"id"`
	// Settings of a Brennenstuhl RCS 1000 N socket
	Brennenstuhl *BrennenstuhlCode `yaml:"brennenstuhl"`
}

// BrennenstuhlCode holds the DIP switch settings of a Brennenstuhl socket.
type BrennenstuhlCode struct {
	// Position of the 5 system code DIP switches, e.g. "10100"
	System string `yaml:"system"`
	// Unit letter A-E
	Unit string `yaml:"unit"`
}

// Codes returns the on & off codes of the socket.
func (r RemoteSwitch) Codes() (on, off rfswitch.Code, err error) {
	if r.Brennenstuhl == nil {
		return nil, nil, invalid("remote switch '%s' has no code", r.ID)
	}
	system, err := rfswitch.ParseSystemCode(r.Brennenstuhl.System)
	if err != nil {
		return nil, nil, invalid("remote switch '%s': %s", r.ID, err)
	}
	unit, err := rfswitch.ParseUnitCode(r.Brennenstuhl.Unit)
	if err != nil {
		return nil, nil, invalid("remote switch '%s': %s", r.ID, err)
	}
	if on, err = rfswitch.Brennenstuhl(system, unit, rfswitch.TurnOn); err != nil {
		return nil, nil, maskAny(err)
	}
	if off, err = rfswitch.Brennenstuhl(system, unit, rfswitch.TurnOff); err != nil {
		return nil, nil, maskAny(err)
	}
	return on, off, nil
}

// Validate the given configuration, returning nil on ok,
// or an error upon validation issues.
func (r RemoteSwitch) Validate() error {
	if r.ID == "" {
		return invalid("remote switch ID is empty")
	}
	_, _, err := r.Codes()
	return err
}
