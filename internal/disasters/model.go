package disasters

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// StatusActive is the status assumed for records that arrive without one.
const StatusActive = "Active"

var (
	// ErrInvalidInput indicates a create or update payload failed required-field checks.
	ErrInvalidInput = errors.New("disasters: invalid input")
)

// Disaster is the client-side copy of a tracked incident. The backend is the system of record.
type Disaster struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	LocationName string    `json:"location_name"`
	Description  string    `json:"description"`
	Tags         []string  `json:"tags"`
	Severity     Severity  `json:"severity"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// UnmarshalJSON decodes a backend record, accepting numeric ids and loosely formatted
// creation times. An unparseable created_at leaves CreatedAt zero.
func (d *Disaster) UnmarshalJSON(data []byte) error {
	type plain Disaster
	var wire struct {
		plain
		ID        looseString `json:"id"`
		CreatedAt looseTime   `json:"created_at"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*d = Disaster(wire.plain)
	d.ID = string(wire.ID)
	d.CreatedAt = time.Time(wire.CreatedAt)
	return nil
}

type looseString string

func (l *looseString) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*l = looseString(text)
		return nil
	}
	var number json.Number
	if err := json.Unmarshal(data, &number); err == nil {
		*l = looseString(number.String())
		return nil
	}
	*l = ""
	return nil
}

var createdAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

type looseTime time.Time

func (l *looseTime) UnmarshalJSON(data []byte) error {
	*l = looseTime{}
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return nil
	}
	text = strings.TrimSpace(text)
	for _, layout := range createdAtLayouts {
		if parsed, err := time.Parse(layout, text); err == nil {
			*l = looseTime(parsed)
			return nil
		}
	}
	return nil
}

// EffectiveStatus returns the status label, defaulting to Active.
func (d Disaster) EffectiveStatus() string {
	if strings.TrimSpace(d.Status) == "" {
		return StatusActive
	}
	return d.Status
}

// Clone returns a copy that shares no slices with d.
func (d Disaster) Clone() Disaster {
	clone := d
	if d.Tags != nil {
		clone.Tags = append([]string(nil), d.Tags...)
	}
	return clone
}

// Input is the partial record sent to the backend on create and update.
type Input struct {
	Title        string   `json:"title"`
	LocationName string   `json:"location_name"`
	Description  string   `json:"description"`
	Tags         []string `json:"tags"`
	Severity     Severity `json:"severity"`
}

// InputFrom seeds an editor form from an existing record.
func InputFrom(d Disaster) Input {
	tags := append([]string{}, d.Tags...)
	severity := d.Severity
	if !severity.Valid() {
		severity = SeverityMinor
	}
	return Input{
		Title:        d.Title,
		LocationName: d.LocationName,
		Description:  d.Description,
		Tags:         tags,
		Severity:     severity,
	}
}

// Validate checks the fields the editor marks as required.
func (in Input) Validate() error {
	var missing []string
	if strings.TrimSpace(in.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(in.LocationName) == "" {
		missing = append(missing, "location_name")
	}
	if strings.TrimSpace(in.Description) == "" {
		missing = append(missing, "description")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidInput, strings.Join(missing, ", "))
	}
	if !in.Severity.Valid() {
		return fmt.Errorf("%w: severity %d out of range", ErrInvalidInput, in.Severity)
	}
	return nil
}

// Severity is the 1-5 impact level of a disaster.
type Severity int

const (
	SeverityMinor        Severity = 1
	SeverityModerate     Severity = 2
	SeveritySignificant  Severity = 3
	SeverityMajor        Severity = 4
	SeverityCatastrophic Severity = 5
)

// Valid reports whether s is inside the 1-5 range.
func (s Severity) Valid() bool {
	return s >= SeverityMinor && s <= SeverityCatastrophic
}

// UnmarshalJSON accepts numbers, numeric strings and level labels.
// Anything else decodes to 0, which renders as Minor and fails Input validation.
func (s *Severity) UnmarshalJSON(data []byte) error {
	*s = 0
	var number float64
	if err := json.Unmarshal(data, &number); err == nil {
		*s = Severity(int(number))
		return nil
	}
	var label string
	if err := json.Unmarshal(data, &label); err != nil {
		return nil
	}
	if parsed, err := ParseSeverity(label); err == nil {
		*s = parsed
	}
	return nil
}

// ParseSeverity resolves a numeric string or a label such as "Major" or "High".
func ParseSeverity(value string) (Severity, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if number, err := strconv.Atoi(normalized); err == nil {
		return Severity(number), nil
	}
	for _, level := range SeverityLevels() {
		if strings.ToLower(level.Label) == normalized {
			return level.Value, nil
		}
	}
	switch normalized {
	case "low":
		return SeverityMinor, nil
	case "medium":
		return SeveritySignificant, nil
	case "high":
		return SeverityMajor, nil
	case "critical":
		return SeverityCatastrophic, nil
	}
	return 0, fmt.Errorf("severity: unknown label %q", value)
}
