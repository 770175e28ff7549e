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
	"strings"

	"github.com/pkg/errors"
)

// SystemCode is the setting of the 5 system code DIP switches of a
// Brennenstuhl socket. Bit 0 is DIP switch 1.
type SystemCode uint8

const (
	// AllOff is the system code with all DIP switches off.
	AllOff SystemCode = 0
	// AllOn is the system code with all DIP switches on.
	AllOn SystemCode = 0x1f
)

// UnitCode selects a socket within a system (A-E).
type UnitCode int

const (
	UnitA UnitCode = iota
	UnitB
	UnitC
	UnitD
	UnitE
)

const (
	systemCodeBits = 5
	unitCount      = 5
)

// ParseUnitCode parses a unit letter (A-E, case-insensitive).
func ParseUnitCode(s string) (UnitCode, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) != 1 || s[0] < 'A' || s[0] >= 'A'+unitCount {
		return 0, errors.Wrapf(InvalidArgumentError, "unit code '%s' must be one of A-E", s)
	}
	return UnitCode(s[0] - 'A'), nil
}

// ParseSystemCode parses a system code written as the position of
// the 5 DIP switches, e.g. "10100" for switch 1 and 3 on.
func ParseSystemCode(s string) (SystemCode, error) {
	s = strings.TrimSpace(s)
	if len(s) != systemCodeBits {
		return 0, errors.Wrapf(InvalidArgumentError, "system code '%s' must have %d DIP switches", s, systemCodeBits)
	}
	var result SystemCode
	for i, c := range s {
		switch c {
		case '1':
			result |= 1 << uint(i)
		case '0':
		default:
			return 0, errors.Wrapf(InvalidArgumentError, "system code '%s' contains invalid DIP switch '%c'", s, c)
		}
	}
	return result, nil
}

// Brennenstuhl returns the code of the given command for a
// Brennenstuhl RCS 1000 N socket.
func Brennenstuhl(system SystemCode, unit UnitCode, cmd Command) (Code, error) {
	if system > AllOn {
		return nil, errors.Wrapf(InvalidArgumentError, "system code 0x%02x out of range", uint8(system))
	}
	if unit < UnitA || unit > UnitE {
		return nil, errors.Wrapf(InvalidArgumentError, "unit code %d out of range", unit)
	}
	word := brennenstuhlWord(system, unit, cmd)
	bits, err := triStateBits(word)
	if err != nil {
		return nil, maskAny(err)
	}
	code, err := protocol1.encode(bits)
	if err != nil {
		return nil, maskAny(err)
	}
	return code, nil
}

// brennenstuhlWord builds the 12 tri-state code word.
// A DIP switch that is on (or the selected unit) is sent as '0',
// everything else as 'F'.
func brennenstuhlWord(system SystemCode, unit UnitCode, cmd Command) string {
	var sb strings.Builder
	for i := uint(0); i < systemCodeBits; i++ {
		if system&(1<<i) != 0 {
			sb.WriteByte('0')
		} else {
			sb.WriteByte('F')
		}
	}
	for u := UnitA; u <= UnitE; u++ {
		if u == unit {
			sb.WriteByte('0')
		} else {
			sb.WriteByte('F')
		}
	}
	if cmd == TurnOn {
		sb.WriteString("0F")
	} else {
		sb.WriteString("F0")
	}
	return sb.String()
}
