package model

import (
	"io/ioutil"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v2"

	"github.com/homeworker/HomeWorker/pkg/service/objects"
)

const (
	// DefaultPollInterval is the interval of the fallback poll of all inputs.
	DefaultPollInterval = time.Second * 5
)

// Config holds the wiring of a single controller.
type Config struct {
	// Interval of the fallback poll of all inputs (0 disables, default 5s)
	PollInterval *time.Duration `yaml:"poll-interval,omitempty"`
	// Interval at which automations are re-evaluated (0 means default)
	EvaluationInterval time.Duration `yaml:"evaluation-interval,omitempty"`
	// I/O boards on the I2C bus
	Boards []Board `yaml:"boards"`
	// Logical binary outputs (lamps, relays)
	Outputs []Output `yaml:"outputs,omitempty"`
	// Roller shutters
	Shutters []Shutter `yaml:"shutters,omitempty"`
	// Combined actuators
	Combined []Combined `yaml:"combined,omitempty"`
	// Buttons
	Buttons []Sensor `yaml:"buttons,omitempty"`
	// Motion detectors
	MotionDetectors []Sensor `yaml:"motion-detectors,omitempty"`
	// Sensors with a numeric reading reported by an external driver
	NumericSensors []NumericSensor `yaml:"numeric-sensors,omitempty"`
	// RF transmitter settings
	RF RF `yaml:"rf,omitempty"`
	// Sockets switched over RF
	RemoteSwitches []RemoteSwitch `yaml:"remote-switches,omitempty"`
	// Source of sunrise & sunset
	Daylight *Daylight `yaml:"daylight,omitempty"`
	// Event triggered rules
	Rules []Rule `yaml:"rules,omitempty"`
	// Actuators that are kept on
	AlwaysOn []AlwaysOn `yaml:"always-on,omitempty"`
	// Shutters that follow sunrise & sunset
	AutomaticShutters []AutomaticShutters `yaml:"automatic-shutters,omitempty"`
}

// LoadConfig reads and validates the configuration file at the given path.
func LoadConfig(path string) (Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "failed to read '%s'", path)
	}
	return ParseConfig(data)
}

// ParseConfig parses and validates the given YAML configuration.
func ParseConfig(data []byte) (Config, error) {
	var c Config
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return Config{}, errors.Wrap(ValidationError, err.Error())
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// GetPollInterval returns the interval of the fallback poll.
func (c Config) GetPollInterval() time.Duration {
	if c.PollInterval == nil {
		return DefaultPollInterval
	}
	return *c.PollInterval
}

// BoardByID returns the board with given ID.
// Return false if not found.
func (c Config) BoardByID(id string) (Board, bool) {
	for _, b := range c.Boards {
		if b.ID == id {
			return b, true
		}
	}
	return Board{}, false
}

// ObjectType returns the type of the object with given ID.
// Return false if not found.
func (c Config) ObjectType(id string) (objects.ObjectType, bool) {
	t, found := c.objectTypes()[id]
	return t, found
}

// objectTypes returns the type of every object by ID.
// The first object wins when IDs are used more than once.
func (c Config) objectTypes() map[string]objects.ObjectType {
	result := make(map[string]objects.ObjectType)
	add := func(id string, t objects.ObjectType) {
		if _, found := result[id]; !found {
			result[id] = t
		}
	}
	for _, x := range c.Outputs {
		add(x.ID, objects.TypeBinaryOutput)
	}
	for _, x := range c.Shutters {
		add(x.ID, objects.TypeRollerShutter)
	}
	for _, x := range c.Combined {
		add(x.ID, objects.TypeCombined)
	}
	for _, x := range c.Buttons {
		add(x.ID, objects.TypeButton)
	}
	for _, x := range c.MotionDetectors {
		add(x.ID, objects.TypeMotionDetector)
	}
	for _, x := range c.RemoteSwitches {
		add(x.ID, objects.TypeRemoteSocket)
	}
	for _, x := range c.NumericSensors {
		add(x.ID, objects.TypeNumericSensor)
	}
	return result
}

// Validate the given configuration, returning nil on ok,
// or an error upon validation issues.
// All problems are reported, combined into a single error.
func (c Config) Validate() error {
	var result error
	add := func(err error) { result = multierr.Append(result, err) }

	if c.PollInterval != nil && *c.PollInterval < 0 {
		add(invalid("poll-interval must not be negative"))
	}
	if c.EvaluationInterval < 0 {
		add(invalid("evaluation-interval must not be negative"))
	}
	if c.RF.Repeat < 0 {
		add(invalid("rf repeat must not be negative"))
	}

	// Boards
	boardIDs := make(map[string]struct{})
	addresses := make(map[uint8]string)
	for _, b := range c.Boards {
		if err := b.Validate(); err != nil {
			add(err)
			continue
		}
		if _, found := boardIDs[b.ID]; found {
			add(invalid("board '%s' is defined more than once", b.ID))
		}
		boardIDs[b.ID] = struct{}{}
		if other, found := addresses[b.Address]; found {
			add(invalid("board '%s' uses address 0x%02x of board '%s'", b.ID, b.Address, other))
		}
		addresses[b.Address] = b.ID
	}
	checkPin := func(owner string, p Pin, input bool) {
		b, found := c.BoardByID(p.Board)
		if !found {
			add(invalid("board '%s' of pin %s in '%s' not found", p.Board, p, owner))
			return
		}
		if b.IsInput(p.Index) != input {
			if input {
				add(invalid("pin %s of '%s' is not an input", p, owner))
			} else {
				add(invalid("pin %s of '%s' is not an output", p, owner))
			}
		}
	}

	// Objects
	seen := make(map[string]struct{})
	checkID := func(id string) {
		if id == "" {
			return
		}
		if _, found := seen[id]; found {
			add(invalid("object '%s' is defined more than once", id))
		}
		seen[id] = struct{}{}
	}
	usedOutputs := make(map[Pin]string)
	claimOutput := func(owner string, p Pin) {
		checkPin(owner, p, false)
		if other, found := usedOutputs[p]; found {
			add(invalid("pin %s of '%s' is already used by '%s'", p, owner, other))
		}
		usedOutputs[p] = owner
	}
	for _, o := range c.Outputs {
		checkID(o.ID)
		if err := o.Validate(); err != nil {
			add(err)
			continue
		}
		for _, p := range o.Pins {
			claimOutput(o.ID, p)
		}
	}
	for _, s := range c.Shutters {
		checkID(s.ID)
		if err := s.Validate(); err != nil {
			add(err)
			continue
		}
		claimOutput(s.ID, s.Up)
		claimOutput(s.ID, s.Down)
	}
	for _, list := range [][]Sensor{c.Buttons, c.MotionDetectors} {
		for _, s := range list {
			checkID(s.ID)
			if err := s.Validate(); err != nil {
				add(err)
				continue
			}
			checkPin(s.ID, s.Pin, true)
		}
	}
	for _, r := range c.RemoteSwitches {
		checkID(r.ID)
		if err := r.Validate(); err != nil {
			add(err)
		}
	}
	for _, n := range c.NumericSensors {
		checkID(n.ID)
		if err := n.Validate(); err != nil {
			add(err)
		}
	}
	types := c.objectTypes()
	isActuator := func(id string) bool {
		switch types[id] {
		case objects.TypeBinaryOutput, objects.TypeCombined, objects.TypeRemoteSocket:
			return true
		}
		return false
	}
	for _, x := range c.Combined {
		checkID(x.ID)
		if err := x.Validate(); err != nil {
			add(err)
			continue
		}
		members := make(map[string]struct{})
		for _, m := range x.Members {
			if m == x.ID || !isActuator(m) {
				add(invalid("member '%s' of combined actuator '%s' is not a binary actuator", m, x.ID))
			}
			if _, found := members[m]; found {
				add(invalid("member '%s' of combined actuator '%s' is listed more than once", m, x.ID))
			}
			members[m] = struct{}{}
		}
	}
	if err := c.checkCombinedCycles(); err != nil {
		add(err)
	}

	// Automation
	if c.Daylight != nil {
		if _, err := c.Daylight.Oracle(); err != nil {
			add(err)
		}
	}
	needsDaylight := func(owner string) {
		if c.Daylight == nil {
			add(invalid("'%s' needs a daylight configuration", owner))
		}
	}
	ruleIDs := make(map[string]struct{})
	for _, r := range c.Rules {
		if err := r.Validate(); err != nil {
			add(err)
			continue
		}
		if _, found := ruleIDs[r.ID]; found {
			add(invalid("rule '%s' is defined more than once", r.ID))
		}
		ruleIDs[r.ID] = struct{}{}
		if !isActuator(r.Target) {
			add(invalid("target '%s' of rule '%s' is not a binary actuator", r.Target, r.ID))
		}
		for _, t := range r.Triggers {
			if !emits(types[t.Source], t.Kind) {
				add(invalid("source '%s' of rule '%s' does not emit '%s'", t.Source, r.ID, t.Kind))
			}
		}
		if r.AtNight {
			needsDaylight(r.ID)
		}
	}
	for _, a := range c.AlwaysOn {
		if err := a.Validate(); err != nil {
			add(err)
			continue
		}
		if _, found := ruleIDs[a.ID]; found {
			add(invalid("automation '%s' is defined more than once", a.ID))
		}
		ruleIDs[a.ID] = struct{}{}
		if !isActuator(a.Target) {
			add(invalid("target '%s' of always-on '%s' is not a binary actuator", a.Target, a.ID))
		}
		if a.AtNight {
			needsDaylight(a.ID)
		}
	}
	for _, a := range c.AutomaticShutters {
		if err := a.Validate(); err != nil {
			add(err)
			continue
		}
		if _, found := ruleIDs[a.ID]; found {
			add(invalid("automation '%s' is defined more than once", a.ID))
		}
		ruleIDs[a.ID] = struct{}{}
		for _, id := range a.Shutters {
			if types[id] != objects.TypeRollerShutter {
				add(invalid("'%s' of automatic shutters '%s' is not a shutter", id, a.ID))
			}
		}
		needsDaylight(a.ID)
	}
	return result
}

// checkCombinedCycles detects combined actuators that (indirectly) contain themselves.
func (c Config) checkCombinedCycles() error {
	members := make(map[string][]string)
	for _, x := range c.Combined {
		members[x.ID] = x.Members
	}
	const (
		visiting = 1
		done     = 2
	)
	state := make(map[string]int)
	var visit func(id string) bool
	visit = func(id string) bool {
		switch state[id] {
		case visiting:
			return false
		case done:
			return true
		}
		state[id] = visiting
		for _, m := range members[id] {
			if !visit(m) {
				return false
			}
		}
		state[id] = done
		return true
	}
	for _, x := range c.Combined {
		if !visit(x.ID) {
			return invalid("combined actuator '%s' contains itself", x.ID)
		}
	}
	return nil
}

// emits returns true when objects of the given type emit events of the given kind.
func emits(t objects.ObjectType, kind objects.EventKind) bool {
	switch t {
	case objects.TypeButton:
		return kind == objects.PressedShort || kind == objects.PressedLong
	case objects.TypeMotionDetector:
		return kind == objects.MotionDetected || kind == objects.DetectionCompleted
	}
	return false
}
