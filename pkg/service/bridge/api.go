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
	"time"
)

// API of the bridge, the hardware that connects the host to the I2C bus
// with the I/O boards, the interrupt line of those boards and the
// 433MHz RF transmitter.
type API interface {
	// Turn Green status led on/off
	SetGreenLED(on bool) error
	// Turn Red status led on/off
	SetRedLED(on bool) error
	// Blink Green status led with given duration between on/off
	BlinkGreenLED(delay time.Duration) error
	// Blink Red status led with given duration between on/off
	BlinkRedLED(delay time.Duration) error

	// Open the I2C bus
	I2CBus() (I2CBus, error)

	// InterruptInput opens the GPIO line that the input boards assert
	// when they have pending changes.
	InterruptInput(pinNumber int, activeLow bool) (InputPin, error)
	// RFOutput opens the GPIO pin that drives the RF transmitter.
	RFOutput(pinNumber int) (OutputPin, error)

	Close() error
}

// InputPin is the interface satisfied by GPIO input pins.
type InputPin interface {
	// Read the logical value of the pin.
	Read() (bool, error)
	Close() error
}

// EdgeInputPin is implemented by input pins that can block until
// their level changes instead of being polled.
type EdgeInputPin interface {
	InputPin
	// WaitForEdge blocks until the pin changes level or the context is canceled.
	WaitForEdge(ctx context.Context) error
}

// OutputPin is the interface satisfied by GPIO output pins.
type OutputPin interface {
	Write(bool) error
}
