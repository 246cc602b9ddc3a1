package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Status is a validation outcome. Lower values rank first.
type Status int

const (
	StatusOK Status = iota + 1
	StatusNotCompleted
	StatusMissingControls
	StatusDidNotFinish
	StatusDisqualified
	StatusDidNotStart
)

var statusNames = map[Status]string{
	StatusOK:              "OK",
	StatusNotCompleted:    "NOT_COMPLETED",
	StatusMissingControls: "MISSING_CONTROLS",
	StatusDidNotFinish:    "DID_NOT_FINISH",
	StatusDisqualified:    "DISQUALIFIED",
	StatusDidNotStart:     "DID_NOT_START",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Valid reports whether s is one of the defined outcomes.
func (s Status) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// ParseStatus accepts the upper-case name or the numeric value.
func ParseStatus(v string) (Status, error) {
	v = strings.ToUpper(strings.TrimSpace(v))
	for s, n := range statusNames {
		if n == v || fmt.Sprint(int(s)) == v {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown status %q", v)
}

// MarshalJSON encodes the status by name.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts a name or a number.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseStatus(fmt.Sprint(raw))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
