package dashboard

import (
	"fmt"
	"time"

	"github.com/MarcoPoloResearchLab/relief/internal/disasters"
	"github.com/MarcoPoloResearchLab/relief/internal/social"
)

// Tab identifies the active dashboard view.
type Tab string

const (
	TabDashboard Tab = "dashboard"
	TabDisasters Tab = "disasters"
	TabEditor    Tab = "create-disaster"
	TabReports   Tab = "reports"
	TabSocial    Tab = "social"
	TabResources Tab = "resources"
)

var knownTabs = []Tab{TabDashboard, TabDisasters, TabEditor, TabReports, TabSocial, TabResources}

// ParseTab validates a tab name.
func ParseTab(value string) (Tab, error) {
	for _, tab := range knownTabs {
		if string(tab) == value {
			return tab, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTab, value)
}

// NotificationKind is the severity tag of a notification banner.
type NotificationKind string

const (
	NotificationSuccess NotificationKind = "success"
	NotificationError   NotificationKind = "error"
	NotificationInfo    NotificationKind = "info"
)

// Notification is a transient banner message.
type Notification struct {
	ID        string           `json:"id"`
	Message   string           `json:"message"`
	Kind      NotificationKind `json:"type"`
	CreatedAt time.Time        `json:"created_at"`
}

// SocialFeed is the social-media monitoring selection and its results.
type SocialFeed struct {
	DisasterID string        `json:"disaster_id"`
	Keywords   []string      `json:"keywords"`
	Posts      []social.Post `json:"posts"`
	Loading    bool          `json:"loading"`
}

// State is the single in-memory view state of the dashboard.
type State struct {
	ActiveTab    Tab                  `json:"active_tab"`
	Disasters    []disasters.Disaster `json:"disasters"`
	Loading      bool                 `json:"loading"`
	Editing      *disasters.Disaster  `json:"editing,omitempty"`
	Notification *Notification        `json:"notification,omitempty"`
	ShowUpdates  bool                 `json:"show_updates"`
	Social       SocialFeed           `json:"social"`
}

// InitialState is the state of a freshly opened dashboard.
func InitialState() State {
	return State{
		ActiveTab:   TabDashboard,
		Disasters:   []disasters.Disaster{},
		ShowUpdates: true,
	}
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	clone := s
	clone.Disasters = make([]disasters.Disaster, len(s.Disasters))
	for index, record := range s.Disasters {
		clone.Disasters[index] = record.Clone()
	}
	if s.Editing != nil {
		editing := s.Editing.Clone()
		clone.Editing = &editing
	}
	if s.Notification != nil {
		notification := *s.Notification
		clone.Notification = &notification
	}
	if s.Social.Keywords != nil {
		clone.Social.Keywords = append([]string(nil), s.Social.Keywords...)
	}
	if s.Social.Posts != nil {
		clone.Social.Posts = make([]social.Post, len(s.Social.Posts))
		for index, post := range s.Social.Posts {
			post.Analysis.Keywords = append([]string(nil), post.Analysis.Keywords...)
			clone.Social.Posts[index] = post
		}
	}
	return clone
}

// FindDisaster returns the cached record with id.
func (s State) FindDisaster(id string) (disasters.Disaster, bool) {
	for _, record := range s.Disasters {
		if record.ID == id {
			return record.Clone(), true
		}
	}
	return disasters.Disaster{}, false
}
