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

import "fmt"

// State holds one bit per pin of a board. Bit 0 is pin 0.
type State uint32

// Get returns the value of the pin at given index.
func (s State) Get(index int) bool {
	return s&(1<<uint(index)) != 0
}

// With returns a copy of the state with the pin at given index set to value.
func (s State) With(index int, value bool) State {
	if value {
		return s | (1 << uint(index))
	}
	return s &^ (1 << uint(index))
}

// Diff returns the indexes (ascending) of the first pinCount pins
// that differ between s and other.
func (s State) Diff(other State, pinCount int) []int {
	changed := s ^ other
	if changed == 0 {
		return nil
	}
	var result []int
	for i := 0; i < pinCount; i++ {
		if changed.Get(i) {
			result = append(result, i)
		}
	}
	return result
}

// Byte returns the 8 pins of the given port.
func (s State) Byte(port int) uint8 {
	return uint8(s >> (8 * uint(port)))
}

// Format the state as a bit string of given width, pin 0 rightmost.
func (s State) Format(pinCount int) string {
	return fmt.Sprintf("%0*b", pinCount, uint32(s)&allPins(pinCount))
}

// stateFromBytes builds a state from port bytes, lowest port first.
func stateFromBytes(data ...uint8) State {
	var s State
	for i, b := range data {
		s |= State(b) << (8 * uint(i))
	}
	return s
}

// allPins returns a mask with the lowest pinCount bits set.
func allPins(pinCount int) uint32 {
	return uint32(1)<<uint(pinCount) - 1
}
