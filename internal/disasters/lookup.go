package disasters

import "time"

// SeverityLevel describes how a severity renders on a disaster card.
type SeverityLevel struct {
	Value Severity `json:"value"`
	Label string   `json:"label"`
	Color string   `json:"color"`
}

var severityLevels = []SeverityLevel{
	{Value: SeverityMinor, Label: "Minor", Color: "#28a745"},
	{Value: SeverityModerate, Label: "Moderate", Color: "#ffc107"},
	{Value: SeveritySignificant, Label: "Significant", Color: "#fd7e14"},
	{Value: SeverityMajor, Label: "Major", Color: "#dc3545"},
	{Value: SeverityCatastrophic, Label: "Catastrophic", Color: "#6f42c1"},
}

var disasterTypes = []string{
	"flood",
	"earthquake",
	"fire",
	"hurricane",
	"tornado",
	"storm",
	"tsunami",
	"landslide",
	"drought",
	"heatwave",
	"other",
}

// SeverityLevels returns the severity table ordered from Minor to Catastrophic.
func SeverityLevels() []SeverityLevel {
	return append([]SeverityLevel(nil), severityLevels...)
}

// LevelFor returns the display level for s; unknown severities render as Minor.
func LevelFor(s Severity) SeverityLevel {
	for _, level := range severityLevels {
		if level.Value == s {
			return level
		}
	}
	return severityLevels[0]
}

// Types returns the tag vocabulary offered by the editor.
func Types() []string {
	return append([]string(nil), disasterTypes...)
}

// Fallback returns the demo records shown when the backend cannot be reached.
func Fallback(now time.Time) []Disaster {
	createdAt := now.UTC()
	return []Disaster{
		{
			ID:           "disaster-1",
			Title:        "Flood Emergency",
			LocationName: "Downtown Area",
			Description:  "Heavy flooding in downtown area",
			Tags:         []string{},
			Severity:     SeverityMajor,
			Status:       StatusActive,
			CreatedAt:    createdAt,
		},
		{
			ID:           "disaster-2",
			Title:        "Earthquake Response",
			LocationName: "Suburban District",
			Description:  "Earthquake damage assessment ongoing",
			Tags:         []string{},
			Severity:     SeveritySignificant,
			Status:       StatusActive,
			CreatedAt:    createdAt,
		},
	}
}
