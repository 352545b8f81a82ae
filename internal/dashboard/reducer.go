package dashboard

import (
	"github.com/MarcoPoloResearchLab/relief/internal/disasters"
	"github.com/MarcoPoloResearchLab/relief/internal/social"
)

// Action is a state transition. Each action type owns a pure reducer.
type Action interface {
	reduce(state State) State
}

// Reduce applies action to a copy of state; the input is never modified.
func Reduce(state State, action Action) State {
	if action == nil {
		return state.Clone()
	}
	return action.reduce(state.Clone())
}

// SetTab switches the active view.
type SetTab struct {
	Tab Tab
}

func (a SetTab) reduce(state State) State {
	state.ActiveTab = a.Tab
	return state
}

// LoadStarted marks the collection as loading.
type LoadStarted struct{}

func (LoadStarted) reduce(state State) State {
	state.Loading = true
	return state
}

// LoadSettled ends a load whose response was discarded.
type LoadSettled struct{}

func (LoadSettled) reduce(state State) State {
	state.Loading = false
	return state
}

// DisastersLoaded replaces the cached collection wholesale.
type DisastersLoaded struct {
	Disasters []disasters.Disaster
}

func (a DisastersLoaded) reduce(state State) State {
	state.Loading = false
	state.Disasters = uniqueByID(a.Disasters)
	return state
}

// DisasterSaved merges a created or updated record into the collection.
// EditID is the edit target the save was issued for ("" for a create). The edit target is
// cleared, and the view returns to the disaster list, only when the store still points at it.
type DisasterSaved struct {
	Disaster disasters.Disaster
	EditID   string
}

func (a DisasterSaved) reduce(state State) State {
	record := a.Disaster.Clone()
	if a.EditID != "" {
		record.ID = a.EditID
	}
	state.Disasters = upsert(state.Disasters, record)

	stillTarget := (a.EditID == "" && state.Editing == nil) ||
		(a.EditID != "" && state.Editing != nil && state.Editing.ID == a.EditID)
	if stillTarget {
		state.Editing = nil
		state.ActiveTab = TabDisasters
	}
	return state
}

// DisasterRemoved drops exactly the record with ID.
type DisasterRemoved struct {
	ID string
}

func (a DisasterRemoved) reduce(state State) State {
	next := make([]disasters.Disaster, 0, len(state.Disasters))
	for _, record := range state.Disasters {
		if record.ID != a.ID {
			next = append(next, record)
		}
	}
	state.Disasters = next
	if state.Editing != nil && state.Editing.ID == a.ID {
		state.Editing = nil
		if state.ActiveTab == TabEditor {
			state.ActiveTab = TabDisasters
		}
	}
	return state
}

// EditStarted opens the editor on a record.
type EditStarted struct {
	Disaster disasters.Disaster
}

func (a EditStarted) reduce(state State) State {
	record := a.Disaster.Clone()
	state.Editing = &record
	state.ActiveTab = TabEditor
	return state
}

// EditCleared closes the editor and returns to the disaster list.
type EditCleared struct{}

func (EditCleared) reduce(state State) State {
	state.Editing = nil
	state.ActiveTab = TabDisasters
	return state
}

// NotificationShown replaces whatever notification is visible.
type NotificationShown struct {
	Notification Notification
}

func (a NotificationShown) reduce(state State) State {
	notification := a.Notification
	state.Notification = &notification
	return state
}

// NotificationCleared removes the notification with ID if it is still the visible one.
type NotificationCleared struct {
	ID string
}

func (a NotificationCleared) reduce(state State) State {
	if state.Notification != nil && state.Notification.ID == a.ID {
		state.Notification = nil
	}
	return state
}

// UpdatesPanelToggled shows or hides the live updates panel.
type UpdatesPanelToggled struct {
	Visible bool
}

func (a UpdatesPanelToggled) reduce(state State) State {
	state.ShowUpdates = a.Visible
	return state
}

// SocialSelected changes the monitored disaster. An empty DisasterID clears the feed.
type SocialSelected struct {
	DisasterID string
	Keywords   []string
}

func (a SocialSelected) reduce(state State) State {
	state.Social = SocialFeed{
		DisasterID: a.DisasterID,
		Keywords:   append([]string(nil), a.Keywords...),
		Loading:    a.DisasterID != "",
	}
	return state
}

// SocialLoaded stores posts for a selection, ignored when the selection has since changed.
type SocialLoaded struct {
	DisasterID string
	Posts      []social.Post
}

func (a SocialLoaded) reduce(state State) State {
	if state.Social.DisasterID != a.DisasterID {
		return state
	}
	state.Social.Loading = false
	state.Social.Posts = append([]social.Post{}, a.Posts...)
	return state
}

func upsert(records []disasters.Disaster, record disasters.Disaster) []disasters.Disaster {
	next := make([]disasters.Disaster, 0, len(records)+1)
	replaced := false
	for _, existing := range records {
		if existing.ID == record.ID {
			if !replaced {
				next = append(next, record)
				replaced = true
			}
			continue
		}
		next = append(next, existing)
	}
	if !replaced {
		next = append(next, record)
	}
	return next
}

func uniqueByID(records []disasters.Disaster) []disasters.Disaster {
	next := make([]disasters.Disaster, 0, len(records))
	seen := make(map[string]int, len(records))
	for _, record := range records {
		if index, ok := seen[record.ID]; ok {
			next[index] = record.Clone()
			continue
		}
		seen[record.ID] = len(next)
		next = append(next, record.Clone())
	}
	return next
}
