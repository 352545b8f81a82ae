package dashboard

import "github.com/MarcoPoloResearchLab/relief/internal/disasters"

// Counters the backend does not provide yet. They are shown as-is on the overview.
const (
	placeholderReportCount   = 27
	placeholderResourceCount = 156
	recentLimit              = 5
)

// Stats are the overview counters.
type Stats struct {
	TotalDisasters  int `json:"total_disasters"`
	ActiveDisasters int `json:"active_disasters"`
	Reports         int `json:"reports"`
	Resources       int `json:"resources"`
}

// DisasterCard is a disaster decorated for display.
type DisasterCard struct {
	disasters.Disaster
	Status        string `json:"status"`
	SeverityLabel string `json:"severity_label"`
	SeverityColor string `json:"severity_color"`
}

// Resource is a static entry on the resources tab.
type Resource struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Distance string `json:"distance"`
	Detail   string `json:"detail"`
	Status   string `json:"status"`
}

// Editor describes the create/update form.
type Editor struct {
	Mode   string                    `json:"mode"`
	Target string                    `json:"target_id,omitempty"`
	Form   disasters.Input           `json:"form"`
	Types  []string                  `json:"types"`
	Levels []disasters.SeverityLevel `json:"severity_levels"`
}

// View is the render-ready projection of State.
type View struct {
	ActiveTab    Tab            `json:"active_tab"`
	Tabs         []Tab          `json:"tabs"`
	Loading      bool           `json:"loading"`
	Stats        Stats          `json:"stats"`
	Disasters    []DisasterCard `json:"disasters"`
	Recent       []DisasterCard `json:"recent"`
	Editor       Editor         `json:"editor"`
	Notification *Notification  `json:"notification,omitempty"`
	ShowUpdates  bool           `json:"show_updates"`
	Social       SocialFeed     `json:"social"`
	Resources    []Resource     `json:"resources"`
}

// Tabs lists every view in navigation order.
func Tabs() []Tab {
	return append([]Tab(nil), knownTabs...)
}

// ComputeStats derives the overview counters from the cached collection.
func ComputeStats(records []disasters.Disaster) Stats {
	stats := Stats{
		TotalDisasters: len(records),
		Reports:        placeholderReportCount,
		Resources:      placeholderResourceCount,
	}
	for _, record := range records {
		if record.EffectiveStatus() == disasters.StatusActive {
			stats.ActiveDisasters++
		}
	}
	return stats
}

// Card decorates record with its display labels.
func Card(record disasters.Disaster) DisasterCard {
	level := disasters.LevelFor(record.Severity)
	return DisasterCard{
		Disaster:      record.Clone(),
		Status:        record.EffectiveStatus(),
		SeverityLabel: level.Label,
		SeverityColor: level.Color,
	}
}

// SampleResources is the static resource list.
func SampleResources() []Resource {
	return []Resource{
		{Name: "Downtown Emergency Shelter", Kind: "shelter", Distance: "0.5 miles", Detail: "Capacity: 200 people", Status: "Available"},
		{Name: "Red Cross Food Distribution", Kind: "food", Distance: "1.2 miles", Detail: "Hours: 8 AM - 6 PM", Status: "Open"},
		{Name: "Mobile Medical Unit", Kind: "medical", Distance: "2.1 miles", Detail: "Services: First aid, medications", Status: "Limited"},
	}
}

// BuildView projects state into its render-ready form.
func BuildView(state State) View {
	cards := make([]DisasterCard, 0, len(state.Disasters))
	for _, record := range state.Disasters {
		cards = append(cards, Card(record))
	}
	recent := cards
	if len(recent) > recentLimit {
		recent = recent[:recentLimit]
	}

	editor := Editor{
		Mode:   "create",
		Form:   disasters.Input{Severity: disasters.SeverityMinor},
		Types:  disasters.Types(),
		Levels: disasters.SeverityLevels(),
	}
	if state.Editing != nil {
		editor.Mode = "update"
		editor.Target = state.Editing.ID
		editor.Form = disasters.InputFrom(*state.Editing)
	}

	return View{
		ActiveTab:    state.ActiveTab,
		Tabs:         Tabs(),
		Loading:      state.Loading,
		Stats:        ComputeStats(state.Disasters),
		Disasters:    cards,
		Recent:       append([]DisasterCard(nil), recent...),
		Editor:       editor,
		Notification: state.Notification,
		ShowUpdates:  state.ShowUpdates,
		Social:       state.Social,
		Resources:    SampleResources(),
	}
}
