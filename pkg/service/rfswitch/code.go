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
	"time"

	"github.com/pkg/errors"
)

// Pulse is a single high period followed by a low period.
type Pulse struct {
	High time.Duration
	Low  time.Duration
}

// Code is the pulse train of a single command of a remote switch.
type Code []Pulse

// Duration returns the time needed to transmit the code once.
func (c Code) Duration() time.Duration {
	var total time.Duration
	for _, p := range c {
		total += p.High + p.Low
	}
	return total
}

// clone returns a copy of the code.
func (c Code) clone() Code {
	return append(Code(nil), c...)
}

// Command is a command sent to a remote switch.
type Command int

const (
	TurnOff Command = iota
	TurnOn
)

func (c Command) String() string {
	if c == TurnOn {
		return "on"
	}
	return "off"
}

// CommandFor returns the command that results in the given state.
func CommandFor(on bool) Command {
	if on {
		return TurnOn
	}
	return TurnOff
}

// Timing of protocol 1 (as used by most 433MHz sockets).
// All durations are multiples of the base pulse length.
type protocol struct {
	base      time.Duration
	zero, one [2]int // high, low
	sync      [2]int // high, low
}

var protocol1 = protocol{
	base: time.Microsecond * 350,
	zero: [2]int{1, 3},
	one:  [2]int{3, 1},
	sync: [2]int{1, 31},
}

// encode a bit string ('0' / '1') followed by a sync pulse.
func (p protocol) encode(bits string) (Code, error) {
	code := make(Code, 0, len(bits)+1)
	for _, b := range bits {
		var t [2]int
		switch b {
		case '0':
			t = p.zero
		case '1':
			t = p.one
		default:
			return nil, errors.Wrapf(InvalidArgumentError, "invalid bit '%c'", b)
		}
		code = append(code, p.pulse(t))
	}
	return append(code, p.pulse(p.sync)), nil
}

func (p protocol) pulse(t [2]int) Pulse {
	return Pulse{High: p.base * time.Duration(t[0]), Low: p.base * time.Duration(t[1])}
}

// triStateBits converts a tri-state word ('0', '1', 'F') into bits.
func triStateBits(word string) (string, error) {
	bits := make([]byte, 0, len(word)*2)
	for _, c := range word {
		switch c {
		case '0':
			bits = append(bits, '0', '0')
		case '1':
			bits = append(bits, '1', '1')
		case 'F':
			bits = append(bits, '0', '1')
		default:
			return "", errors.Wrapf(InvalidArgumentError, "invalid tri-state '%c'", c)
		}
	}
	return string(bits), nil
}
