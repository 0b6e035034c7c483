package button

import (
	"fmt"
	"strings"
)

// State is the primary lamp state of a button. Exactly one holds at a time.
type State uint8

const (
	StateOff State = iota
	StateOn
	StateFlash1
	StateFlash2
)

var stateNames = map[State]string{
	StateOff:    "Off",
	StateOn:     "On",
	StateFlash1: "Flash1",
	StateFlash2: "Flash2",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", s)
}

// Valid reports whether s is one of the four defined states.
func (s State) Valid() bool {
	_, ok := stateNames[s]
	return ok
}

// ParseState accepts the state names case-insensitively.
func ParseState(name string) (State, error) {
	for s, n := range stateNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return s, nil
		}
	}
	return StateOff, fmt.Errorf("button: unknown state %q", name)
}

// MarshalText implements encoding.TextMarshaler so states read naturally in
// YAML and TOML panel files.
func (s State) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("button: invalid state %d", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	parsed, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
