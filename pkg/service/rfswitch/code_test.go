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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const T = time.Microsecond * 350

var (
	bit0      = Pulse{High: T, Low: 3 * T}
	bit1      = Pulse{High: 3 * T, Low: T}
	syncPulse = Pulse{High: T, Low: 31 * T}
)

func TestBrennenstuhlWord(t *testing.T) {
	assert.Equal(t, "000000FFFF0F", brennenstuhlWord(AllOn, UnitA, TurnOn))
	assert.Equal(t, "000000FFFFF0", brennenstuhlWord(AllOn, UnitA, TurnOff))
	assert.Equal(t, "FFFFFFF0FFF0", brennenstuhlWord(AllOff, UnitC, TurnOff))
	assert.Equal(t, "0F0FFFFFF00F", brennenstuhlWord(SystemCode(0x05), UnitE, TurnOn))
}

func TestBrennenstuhlCode(t *testing.T) {
	code, err := Brennenstuhl(AllOn, UnitB, TurnOn)
	require.NoError(t, err)
	require.Len(t, code, 25)

	// System code: 5 times '0'
	for i := 0; i < 10; i++ {
		assert.Equal(t, bit0, code[i], "pulse %d", i)
	}
	// Unit A: 'F'
	assert.Equal(t, bit0, code[10])
	assert.Equal(t, bit1, code[11])
	// Unit B: '0'
	assert.Equal(t, bit0, code[12])
	assert.Equal(t, bit0, code[13])
	// Command on: "0F"
	assert.Equal(t, []Pulse{bit0, bit0, bit0, bit1}, []Pulse(code[20:24]))
	assert.Equal(t, syncPulse, code[24])
	assert.Equal(t, 128*T, code.Duration())
}

func TestBrennenstuhlInvalid(t *testing.T) {
	_, err := Brennenstuhl(SystemCode(0x20), UnitA, TurnOn)
	assert.True(t, IsInvalidArgument(err))
	_, err = Brennenstuhl(AllOn, UnitCode(5), TurnOn)
	assert.True(t, IsInvalidArgument(err))
}

func TestParseCodes(t *testing.T) {
	sc, err := ParseSystemCode("10100")
	require.NoError(t, err)
	assert.Equal(t, SystemCode(0x05), sc)
	sc, err = ParseSystemCode("11111")
	require.NoError(t, err)
	assert.Equal(t, AllOn, sc)
	_, err = ParseSystemCode("1010")
	assert.True(t, IsInvalidArgument(err))
	_, err = ParseSystemCode("1010x")
	assert.True(t, IsInvalidArgument(err))

	u, err := ParseUnitCode("d")
	require.NoError(t, err)
	assert.Equal(t, UnitD, u)
	_, err = ParseUnitCode("F")
	assert.True(t, IsInvalidArgument(err))
	_, err = ParseUnitCode("")
	assert.True(t, IsInvalidArgument(err))
}

func TestTriStateBits(t *testing.T) {
	bits, err := triStateBits("0F1")
	require.NoError(t, err)
	assert.Equal(t, "000111", bits)
	_, err = triStateBits("0X")
	assert.True(t, IsInvalidArgument(err))
}

func TestEncodeInvalidBit(t *testing.T) {
	code, err := protocol1.encode("01")
	require.NoError(t, err)
	assert.Equal(t, Code{bit0, bit1, syncPulse}, code)
	_, err = protocol1.encode("012")
	assert.True(t, IsInvalidArgument(err))
}
