// Package models defines domain models for Salescope.
package models

import (
	"encoding/json"
	"fmt"
)

// Severity represents anomaly severity level.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// ParseSeverity converts a string to Severity.
// Unknown values default to warning.
func ParseSeverity(s string) Severity {
	switch s {
	case "critical":
		return SeverityCritical
	default:
		return SeverityWarning
	}
}

// Valid reports whether the severity is a known level.
func (s Severity) Valid() bool {
	return s == SeverityWarning || s == SeverityCritical
}

// Rank returns the ordinal position of the severity, higher is more severe.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 2
	case SeverityWarning:
		return 1
	default:
		return 0
	}
}

// SeveritySet is a typed set of severity levels, used by notification
// preferences to express which severities may trigger a send.
type SeveritySet map[Severity]struct{}

// NewSeveritySet builds a set from the given levels.
func NewSeveritySet(levels ...Severity) SeveritySet {
	set := make(SeveritySet, len(levels))
	for _, l := range levels {
		set[l] = struct{}{}
	}
	return set
}

// Contains reports whether the set includes the given severity.
func (set SeveritySet) Contains(s Severity) bool {
	_, ok := set[s]
	return ok
}

// Levels returns the members of the set in severity order.
func (set SeveritySet) Levels() []Severity {
	var levels []Severity
	for _, s := range []Severity{SeverityWarning, SeverityCritical} {
		if set.Contains(s) {
			levels = append(levels, s)
		}
	}
	return levels
}

// MarshalJSON encodes the set as a JSON array of level names.
func (set SeveritySet) MarshalJSON() ([]byte, error) {
	return json.Marshal(set.Levels())
}

// UnmarshalJSON decodes a JSON array of level names, rejecting unknown levels.
// This is the single place the external representation is coerced; business
// logic only ever sees the typed set.
func (set *SeveritySet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return fmt.Errorf("decode severity set: %w", err)
	}
	out := make(SeveritySet, len(names))
	for _, name := range names {
		s := Severity(name)
		if !s.Valid() {
			return fmt.Errorf("unknown severity %q", name)
		}
		out[s] = struct{}{}
	}
	*set = out
	return nil
}
