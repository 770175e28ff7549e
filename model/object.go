package model

import (
	"time"
)

// Output holds the configuration of a logical binary output.
type Output struct {
	// Unique ID of the output
	ID string `yaml:"id"`
	// Pins driven by this output, in animation order
	Pins []Pin `yaml:"pins"`
	// Invert the pin level (on = low)
	Invert bool `yaml:"invert,omitempty"`
	// Delay between 2 pins when animated
	StepDelay time.Duration `yaml:"step-delay,omitempty"`
}

// Validate the given configuration, returning nil on ok,
// or an error upon validation issues.
func (o Output) Validate() error {
	if o.ID == "" {
		return invalid("output ID is empty")
	}
	if len(o.Pins) == 0 {
		return invalid("output '%s' has no pins", o.ID)
	}
	if o.StepDelay < 0 {
		return invalid("output '%s' has a negative step-delay", o.ID)
	}
	return nil
}

// Shutter holds the configuration of a roller shutter.
type Shutter struct {
	// Unique ID of the shutter
	ID string `yaml:"id"`
	// Relay pin that moves the shutter up
	Up Pin `yaml:"up"`
	// Relay pin that moves the shutter down
	Down Pin `yaml:"down"`
	// Invert the relay level (on = low)
	Invert bool `yaml:"invert,omitempty"`
	// Time needed for a full traversal (0 means default)
	MaxMovingDuration time.Duration `yaml:"max-moving-duration,omitempty"`
	// Close again after being opened for this long (0 disables)
	AutoCloseAfter time.Duration `yaml:"auto-close-after,omitempty"`
	// Position (percent open) at startup, unknown when omitted
	InitialPosition *float64 `yaml:"initial-position,omitempty"`
}

// Validate the given configuration, returning nil on ok,
// or an error upon validation issues.
func (s Shutter) Validate() error {
	if s.ID == "" {
		return invalid("shutter ID is empty")
	}
	if s.Up == s.Down {
		return invalid("shutter '%s' uses pin %s for up and down", s.ID, s.Up)
	}
	if s.MaxMovingDuration < 0 || s.AutoCloseAfter < 0 {
		return invalid("shutter '%s' has a negative duration", s.ID)
	}
	if p := s.InitialPosition; p != nil && (*p < 0 || *p > 100) {
		return invalid("shutter '%s' has initial-position out of range [0..100]", s.ID)
	}
	return nil
}

// Combined holds the configuration of a combined actuator.
type Combined struct {
	// Unique ID of the actuator
	ID string `yaml:"id"`
	// IDs of the member actuators, in switching order
	Members []string `yaml:"members"`
}

// Validate the given configuration, returning nil on ok,
// or an error upon validation issues.
func (c Combined) Validate() error {
	if c.ID == "" {
		return invalid("combined actuator ID is empty")
	}
	if len(c.Members) == 0 {
		return invalid("combined actuator '%s' has no members", c.ID)
	}
	return nil
}

// Sensor holds the configuration of a button or motion detector.
type Sensor struct {
	// Unique ID of the sensor
	ID string `yaml:"id"`
	// Input pin of the sensor
	Pin Pin `yaml:"pin"`
	// Invert the input level (asserted = low)
	Invert bool `yaml:"invert,omitempty"`
	// Minimum duration of a long press (buttons only, 0 means default)
	LongPressThreshold time.Duration `yaml:"long-press-threshold,omitempty"`
}

// NumericSensor holds the configuration of a sensor with a numeric reading.
type NumericSensor struct {
	// Unique ID of the sensor
	ID string `yaml:"id"`
	// Unit of the reading, e.g. "°C"
	Unit string `yaml:"unit,omitempty"`
	// Readings that differ no more than this from the last reading are ignored
	MinDelta float64 `yaml:"min-delta,omitempty"`
}

// Validate the given configuration, returning nil on ok,
// or an error upon validation issues.
func (s NumericSensor) Validate() error {
	if s.ID == "" {
		return invalid("numeric sensor ID is empty")
	}
	if s.MinDelta < 0 {
		return invalid("numeric sensor '%s' has a negative min-delta", s.ID)
	}
	return nil
}

// Validate the given configuration, returning nil on ok,
// or an error upon validation issues.
func (s Sensor) Validate() error {
	if s.ID == "" {
		return invalid("sensor ID is empty")
	}
	if s.LongPressThreshold < 0 {
		return invalid("sensor '%s' has a negative long-press-threshold", s.ID)
	}
	return nil
}
