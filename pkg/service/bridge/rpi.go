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
	"sync"
	"time"

	"github.com/ecc1/gpio"
	"github.com/pkg/errors"
	rpio "github.com/stianeikeland/go-rpio"
	"github.com/warthog618/go-gpiocdev"
)

const (
	greenLedPin = 22
	redLedPin   = 23
	gpioChip    = "gpiochip0"
)

// RaspberryPiConfig holds the hardware locations of a Raspberry Pi bridge.
type RaspberryPiConfig struct {
	// Location of the I2C bus device file
	I2CBus string
	// Timeout applied to bus transactions without deadline
	TransactionTimeout time.Duration
}

type statusLed struct {
	sync.Mutex
	pin         gpio.OutputPin
	cancelBlink func()
}

// Turn led on/off, cancel blink
func (l *statusLed) Set(on bool) error {
	l.Mutex.Lock()
	defer l.Mutex.Unlock()

	l.stopBlink()
	if err := l.pin.Write(on); err != nil {
		return errors.Wrap(err, "Write failed")
	}
	return nil
}

// Blink led on/off
func (l *statusLed) Blink(delay time.Duration) error {
	l.Mutex.Lock()
	defer l.Mutex.Unlock()

	l.stopBlink()
	ctx, cancel := context.WithCancel(context.Background())
	l.cancelBlink = cancel
	go func() {
		ticker := time.NewTicker(delay)
		defer ticker.Stop()
		value := true
		for {
			l.Mutex.Lock()
			if ctx.Err() == nil {
				l.pin.Write(value)
				value = !value
			}
			l.Mutex.Unlock()
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// stopBlink cancels a running blink. Requires the mutex.
func (l *statusLed) stopBlink() {
	if cancel := l.cancelBlink; cancel != nil {
		l.cancelBlink = nil
		cancel()
	}
}

type piBridge struct {
	RaspberryPiConfig
	mutex    sync.Mutex
	greenLed statusLed
	redLed   statusLed
	bus      I2CBus
	lines    []*gpiocdev.Line
	rpioOpen bool
}

// NewRaspberryPiBridge implements the bridge for Raspberry PI's
func NewRaspberryPiBridge(conf RaspberryPiConfig) (API, error) {
	if conf.I2CBus == "" {
		conf.I2CBus = "/dev/i2c-1"
	}
	if conf.TransactionTimeout <= 0 {
		conf.TransactionTimeout = DefaultTransactionTimeout
	}
	activeLow := false
	initialValue := false
	greenLed, err := gpio.Output(greenLedPin, activeLow, initialValue)
	if err != nil {
		return nil, errors.Wrap(err, "Output[greenLed] failed")
	}
	redLed, err := gpio.Output(redLedPin, activeLow, initialValue)
	if err != nil {
		return nil, errors.Wrap(err, "Output[redLed] failed")
	}
	return &piBridge{
		RaspberryPiConfig: conf,
		greenLed:          statusLed{pin: greenLed},
		redLed:            statusLed{pin: redLed},
	}, nil
}

// Turn Green status led on/off
func (p *piBridge) SetGreenLED(on bool) error {
	if err := p.greenLed.Set(on); err != nil {
		return errors.Wrap(err, "Set[greenLed] failed")
	}
	return nil
}

// Turn Red status led on/off
func (p *piBridge) SetRedLED(on bool) error {
	if err := p.redLed.Set(on); err != nil {
		return errors.Wrap(err, "Set[redLed] failed")
	}
	return nil
}

// Blink Green status led with given duration between on/off
func (p *piBridge) BlinkGreenLED(delay time.Duration) error {
	if err := p.greenLed.Blink(delay); err != nil {
		return errors.Wrap(err, "Blink[greenLed] failed")
	}
	return nil
}

// Blink Red status led with given duration between on/off
func (p *piBridge) BlinkRedLED(delay time.Duration) error {
	if err := p.redLed.Blink(delay); err != nil {
		return errors.Wrap(err, "Blink[redLed] failed")
	}
	return nil
}

// Open the I2C bus
func (p *piBridge) I2CBus() (I2CBus, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.bus == nil {
		location := p.RaspberryPiConfig.I2CBus
		p.bus = newI2CBus(func(address uint8) (deviceHandle, error) {
			return newI2CDevice(location, address)
		}, p.TransactionTimeout)
	}
	return p.bus, nil
}

// InterruptInput opens the interrupt line of the input boards.
// Edges are delivered by the kernel, so the returned pin supports WaitForEdge.
func (p *piBridge) InterruptInput(pinNumber int, activeLow bool) (InputPin, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	pin := &edgeInputPin{
		edges: make(chan struct{}, 1),
	}
	opts := []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(pin.onEvent),
	}
	if activeLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}
	line, err := gpiocdev.RequestLine(gpioChip, pinNumber, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "RequestLine(%d) failed", pinNumber)
	}
	pin.line = line
	p.lines = append(p.lines, line)
	return pin, nil
}

// RFOutput opens the pin driving the RF transmitter.
// Uses direct register access, since pulses are only a few hundred
// microseconds long.
func (p *piBridge) RFOutput(pinNumber int) (OutputPin, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if !p.rpioOpen {
		if err := rpio.Open(); err != nil {
			return nil, errors.Wrap(err, "rpio.Open failed")
		}
		p.rpioOpen = true
	}
	pin := rpio.Pin(pinNumber)
	pin.Output()
	pin.Low()
	return rpioOutputPin{pin: pin}, nil
}

func (p *piBridge) Close() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.greenLed.Set(false)
	p.redLed.Set(false)
	for _, l := range p.lines {
		l.Close()
	}
	p.lines = nil
	if p.rpioOpen {
		rpio.Close()
		p.rpioOpen = false
	}
	if p.bus != nil {
		bus := p.bus
		p.bus = nil
		if err := bus.Close(); err != nil {
			return errors.Wrap(err, "Close failed")
		}
	}
	return nil
}

// edgeInputPin is an input line that signals level changes.
type edgeInputPin struct {
	line  *gpiocdev.Line
	edges chan struct{}
}

func (p *edgeInputPin) onEvent(gpiocdev.LineEvent) {
	select {
	case p.edges <- struct{}{}:
	default:
		// Already signaled
	}
}

// Read the logical value of the pin.
func (p *edgeInputPin) Read() (bool, error) {
	v, err := p.line.Value()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// WaitForEdge blocks until the pin changes level or the context is canceled.
func (p *edgeInputPin) WaitForEdge(ctx context.Context) error {
	select {
	case <-p.edges:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *edgeInputPin) Close() error {
	return p.line.Close()
}

type rpioOutputPin struct {
	pin rpio.Pin
}

func (p rpioOutputPin) Write(value bool) error {
	if value {
		rfPulsesTotal.Inc()
		p.pin.High()
	} else {
		p.pin.Low()
	}
	return nil
}
