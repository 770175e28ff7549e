package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Pin identifies a connection pin of a board.
// In the configuration file it is written as "<board>/<index>".
type Pin struct {
	// Unique identifier of the board that contains this pin.
	Board string `yaml:"board"`
	// Pin number (0...)
	Index int `yaml:"index"`
}

// ParsePin parses a pin written as "<board>/<index>".
func ParsePin(s string) (Pin, error) {
	idx := strings.LastIndex(s, "/")
	if idx <= 0 || idx == len(s)-1 {
		return Pin{}, invalid("pin '%s' must be written as <board>/<index>", s)
	}
	index, err := strconv.Atoi(s[idx+1:])
	if err != nil || index < 0 {
		return Pin{}, invalid("pin '%s' has an invalid index", s)
	}
	return Pin{Board: s[:idx], Index: index}, nil
}

// String returns the pin as "<board>/<index>".
func (p Pin) String() string {
	return fmt.Sprintf("%s/%d", p.Board, p.Index)
}

// UnmarshalYAML accepts both the short string form and a mapping.
func (p *Pin) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err == nil {
		result, err := ParsePin(s)
		if err != nil {
			return err
		}
		*p = result
		return nil
	}
	type plain Pin
	var result plain
	if err := unmarshal(&result); err != nil {
		return err
	}
	*p = Pin(result)
	return nil
}
