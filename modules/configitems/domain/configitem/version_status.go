package configitem

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// VersionStatus values match the numeric codes stored in version_status columns.
type VersionStatus int

const (
	StatusUnknown VersionStatus = 0
	StatusDraft   VersionStatus = 1
	StatusReady   VersionStatus = 2
	StatusLive    VersionStatus = 3
	StatusRetired VersionStatus = 4
)

var statusNames = map[VersionStatus]string{
	StatusDraft:   "Draft",
	StatusReady:   "Ready",
	StatusLive:    "Live",
	StatusRetired: "Retired",
}

func (s VersionStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("VersionStatus(%d)", int(s))
}

func (s VersionStatus) IsValid() bool {
	_, ok := statusNames[s]
	return ok
}

// IsUnpublished reports whether the version may still be edited or cancelled.
func (s VersionStatus) IsUnpublished() bool {
	return s == StatusDraft || s == StatusReady
}

// CanTransitionTo follows Draft -> Ready -> Live -> Retired. Retired is terminal.
func (s VersionStatus) CanTransitionTo(next VersionStatus) bool {
	switch s {
	case StatusDraft:
		return next == StatusReady
	case StatusReady:
		return next == StatusLive
	case StatusLive:
		return next == StatusRetired
	default:
		return false
	}
}

// ParseVersionStatus accepts a status name (case-insensitive) or its numeric code.
func ParseVersionStatus(raw string) (VersionStatus, error) {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil {
		s := VersionStatus(n)
		if !s.IsValid() {
			return StatusUnknown, fmt.Errorf("unknown version status %d", n)
		}
		return s, nil
	}
	for s, name := range statusNames {
		if strings.EqualFold(name, raw) {
			return s, nil
		}
	}
	return StatusUnknown, fmt.Errorf("unknown version status %q", raw)
}

func (s VersionStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(int(s))
}

func (s *VersionStatus) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = StatusUnknown
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		parsed := VersionStatus(n)
		if n != 0 && !parsed.IsValid() {
			return fmt.Errorf("unknown version status %d", n)
		}
		*s = parsed
		return nil
	}
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("version status must be a number or a string: %w", err)
	}
	parsed, err := ParseVersionStatus(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// MarshalText writes the status name; TOML payloads use it.
func (s VersionStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *VersionStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseVersionStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s VersionStatus) MarshalYAML() (any, error) {
	return s.String(), nil
}

func (s *VersionStatus) UnmarshalYAML(value *yaml.Node) error {
	if value.Tag == "!!null" {
		*s = StatusUnknown
		return nil
	}
	parsed, err := ParseVersionStatus(value.Value)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
