package model

import (
	"time"

	"github.com/homeworker/HomeWorker/pkg/service/automation"
	"github.com/homeworker/HomeWorker/pkg/service/objects"
)

// Daylight configures the source of sunrise & sunset times.
// Either both Sunrise & Sunset or both Latitude & Longitude are set.
type Daylight struct {
	// Fixed sunrise time of day (HH:MM)
	Sunrise string `yaml:"sunrise,omitempty"`
	// Fixed sunset time of day (HH:MM)
	Sunset string `yaml:"sunset,omitempty"`
	// Location used to compute sunrise & sunset
	Latitude  *float64 `yaml:"latitude,omitempty"`
	Longitude *float64 `yaml:"longitude,omitempty"`
	// IANA time zone of the location (defaults to local time)
	TimeZone string `yaml:"timezone,omitempty"`
}

// Oracle builds the daylight oracle described by this configuration.
func (d Daylight) Oracle() (automation.DaylightOracle, error) {
	static := d.Sunrise != "" || d.Sunset != ""
	astronomical := d.Latitude != nil || d.Longitude != nil
	switch {
	case static && astronomical:
		return nil, invalid("daylight has both fixed times and a location")
	case static:
		sunrise, err := automation.ParseTimeOfDay(d.Sunrise)
		if err != nil {
			return nil, invalid("daylight sunrise: %s", err)
		}
		sunset, err := automation.ParseTimeOfDay(d.Sunset)
		if err != nil {
			return nil, invalid("daylight sunset: %s", err)
		}
		result, err := automation.NewStaticDaylight(sunrise, sunset)
		if err != nil {
			return nil, invalid("daylight: %s", err)
		}
		return result, nil
	case astronomical:
		if d.Latitude == nil || d.Longitude == nil {
			return nil, invalid("daylight needs both latitude and longitude")
		}
		if *d.Latitude < -90 || *d.Latitude > 90 || *d.Longitude < -180 || *d.Longitude > 180 {
			return nil, invalid("daylight location out of range")
		}
		loc := time.Local
		if d.TimeZone != "" {
			var err error
			if loc, err = time.LoadLocation(d.TimeZone); err != nil {
				return nil, invalid("daylight timezone '%s': %s", d.TimeZone, err)
			}
		}
		return automation.AstronomicalDaylight{
			Latitude:  *d.Latitude,
			Longitude: *d.Longitude,
			Location:  loc,
		}, nil
	default:
		return nil, invalid("daylight needs sunrise & sunset or latitude & longitude")
	}
}

// TimeRange is a range of the day, written as HH:MM.
type TimeRange struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Parse the range.
func (r TimeRange) Parse() (automation.TimeRange, error) {
	from, err := automation.ParseTimeOfDay(r.From)
	if err != nil {
		return automation.TimeRange{}, invalid("range from: %s", err)
	}
	to, err := automation.ParseTimeOfDay(r.To)
	if err != nil {
		return automation.TimeRange{}, invalid("range to: %s", err)
	}
	return automation.TimeRange{From: from, To: to}, nil
}

// Trigger activates a rule.
type Trigger struct {
	// ID of the button or motion detector
	Source string `yaml:"source"`
	// Kind of event (pressed-short, pressed-long, motion-detected)
	Kind objects.EventKind `yaml:"kind"`
	// Switch the pins of the target one at a time
	Animate bool `yaml:"animate,omitempty"`
	// Animate in reverse pin order
	Reversed bool `yaml:"reversed,omitempty"`
}

// Animation returns the animation of the trigger.
func (t Trigger) Animation() objects.Animation {
	return objects.Animation{Enabled: t.Animate, Reversed: t.Animate && t.Reversed}
}

// Rule holds the configuration of an automation rule.
type Rule struct {
	// Unique ID of the rule
	ID string `yaml:"id"`
	// Events that activate the rule
	Triggers []Trigger `yaml:"triggers"`
	// ID of the binary actuator that is switched
	Target string `yaml:"target"`
	// Time the target stays on (0 means until switched off)
	OnDuration time.Duration `yaml:"on-duration,omitempty"`
	// Only activate at night
	AtNight bool `yaml:"at-night,omitempty"`
	// Only activate during this range of the day
	Between *TimeRange `yaml:"between,omitempty"`
	// A trigger while the target is on turns it off
	TurnOffIfAlreadyOn bool `yaml:"turn-off-if-already-on,omitempty"`
	// A trigger while the target is on turns it off, animated in reverse
	AnimateReversedOnRepeat bool `yaml:"animate-reversed-on-repeat,omitempty"`
}

// Validate the given configuration, returning nil on ok,
// or an error upon validation issues.
func (r Rule) Validate() error {
	if r.ID == "" {
		return invalid("rule ID is empty")
	}
	if len(r.Triggers) == 0 {
		return invalid("rule '%s' has no triggers", r.ID)
	}
	if r.Target == "" {
		return invalid("rule '%s' has no target", r.ID)
	}
	if r.OnDuration < 0 {
		return invalid("rule '%s' has a negative on-duration", r.ID)
	}
	if r.TurnOffIfAlreadyOn && r.AnimateReversedOnRepeat {
		return invalid("rule '%s' cannot combine turn-off-if-already-on and animate-reversed-on-repeat", r.ID)
	}
	if r.Between != nil {
		if _, err := r.Between.Parse(); err != nil {
			return invalid("rule '%s': %s", r.ID, err)
		}
	}
	return nil
}

// AlwaysOn holds the configuration of an actuator that is kept on.
type AlwaysOn struct {
	// Unique ID of the automation
	ID string `yaml:"id"`
	// ID of the binary actuator
	Target string `yaml:"target"`
	// Only on at night
	AtNight bool `yaml:"at-night,omitempty"`
	// Off during this range of the day
	OffBetween *TimeRange `yaml:"off-between,omitempty"`
}

// Validate the given configuration, returning nil on ok,
// or an error upon validation issues.
func (a AlwaysOn) Validate() error {
	if a.ID == "" {
		return invalid("always-on ID is empty")
	}
	if a.Target == "" {
		return invalid("always-on '%s' has no target", a.ID)
	}
	if a.OffBetween != nil {
		if _, err := a.OffBetween.Parse(); err != nil {
			return invalid("always-on '%s': %s", a.ID, err)
		}
	}
	return nil
}

// AutomaticShutters holds the configuration of shutters that follow
// sunrise & sunset.
type AutomaticShutters struct {
	// Unique ID of the automation
	ID string `yaml:"id"`
	// IDs of the shutters
	Shutters []string `yaml:"shutters"`
	// Do not open before this time of day (HH:MM)
	DoNotOpenBefore string `yaml:"do-not-open-before,omitempty"`
}

// OpenNotBefore returns the parsed DoNotOpenBefore (nil when not set).
func (a AutomaticShutters) OpenNotBefore() (*automation.TimeOfDay, error) {
	if a.DoNotOpenBefore == "" {
		return nil, nil
	}
	t, err := automation.ParseTimeOfDay(a.DoNotOpenBefore)
	if err != nil {
		return nil, invalid("automatic shutters '%s': %s", a.ID, err)
	}
	return &t, nil
}

// Validate the given configuration, returning nil on ok,
// or an error upon validation issues.
func (a AutomaticShutters) Validate() error {
	if a.ID == "" {
		return invalid("automatic shutters ID is empty")
	}
	if len(a.Shutters) == 0 {
		return invalid("automatic shutters '%s' has no shutters", a.ID)
	}
	_, err := a.OpenNotBefore()
	return err
}
