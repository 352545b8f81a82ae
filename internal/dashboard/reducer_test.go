package dashboard

import (
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/relief/internal/disasters"
	"github.com/MarcoPoloResearchLab/relief/internal/social"
)

func record(id, title string) disasters.Disaster {
	return disasters.Disaster{
		ID:           id,
		Title:        title,
		LocationName: "Riverton",
		Description:  "details",
		Tags:         []string{"flood"},
		Severity:     disasters.SeverityModerate,
		Status:       disasters.StatusActive,
	}
}

func stateWith(records ...disasters.Disaster) State {
	state := InitialState()
	state.Disasters = records
	return state
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	original := stateWith(record("d-1", "Flood"), record("d-2", "Fire"))
	snapshot := original.Clone()

	actions := []Action{
		SetTab{Tab: TabReports},
		LoadStarted{},
		DisastersLoaded{Disasters: []disasters.Disaster{record("d-9", "Storm")}},
		DisasterSaved{Disaster: record("d-1", "Flood (updated)"), EditID: "d-1"},
		DisasterRemoved{ID: "d-2"},
		EditStarted{Disaster: record("d-1", "Flood")},
		EditCleared{},
		NotificationShown{Notification: Notification{ID: "n-1", Message: "hi"}},
		UpdatesPanelToggled{Visible: false},
		SocialSelected{DisasterID: "d-1", Keywords: []string{"flood"}},
	}
	for _, action := range actions {
		next := Reduce(original, action)
		if len(next.Disasters) > 0 {
			next.Disasters[0].Tags[0] = "mutated"
		}
		if !reflect.DeepEqual(original, snapshot) {
			t.Fatalf("%T mutated its input state", action)
		}
	}
}

func TestDisasterSavedCreateAppendsAndLeavesEditor(t *testing.T) {
	state := stateWith(record("d-1", "Flood"))
	state.ActiveTab = TabEditor

	next := Reduce(state, DisasterSaved{Disaster: record("d-2", "Fire")})
	if len(next.Disasters) != 2 || next.Disasters[1].ID != "d-2" {
		t.Fatalf("expected created record appended, got %+v", next.Disasters)
	}
	if next.ActiveTab != TabDisasters {
		t.Fatalf("expected disaster list tab, got %s", next.ActiveTab)
	}
}

func TestDisasterSavedUpdateReplacesInPlaceAndPreservesID(t *testing.T) {
	state := stateWith(record("d-1", "Flood"), record("d-2", "Fire"), record("d-3", "Storm"))
	editing := record("d-2", "Fire")
	state.Editing = &editing
	state.ActiveTab = TabEditor

	returned := record("", "Fire (contained)")
	next := Reduce(state, DisasterSaved{Disaster: returned, EditID: "d-2"})

	if len(next.Disasters) != 3 {
		t.Fatalf("expected 3 records, got %d", len(next.Disasters))
	}
	if next.Disasters[1].ID != "d-2" || next.Disasters[1].Title != "Fire (contained)" {
		t.Fatalf("expected record replaced in place with original id, got %+v", next.Disasters[1])
	}
	if next.Editing != nil || next.ActiveTab != TabDisasters {
		t.Fatalf("expected editor cleared, got editing=%v tab=%s", next.Editing, next.ActiveTab)
	}
}

func TestDisasterSavedKeepsNewerEditTarget(t *testing.T) {
	state := stateWith(record("d-1", "Flood"), record("d-2", "Fire"))
	editing := record("d-2", "Fire")
	state.Editing = &editing
	state.ActiveTab = TabEditor

	next := Reduce(state, DisasterSaved{Disaster: record("d-1", "Flood (updated)"), EditID: "d-1"})
	if next.Editing == nil || next.Editing.ID != "d-2" {
		t.Fatalf("expected unrelated edit target kept, got %+v", next.Editing)
	}
	if next.ActiveTab != TabEditor {
		t.Fatalf("expected editor tab kept, got %s", next.ActiveTab)
	}
}

func TestDisasterRemovedDropsOnlyMatchingID(t *testing.T) {
	state := stateWith(record("d-1", "Flood"), record("d-2", "Fire"), record("d-3", "Storm"))
	editing := record("d-2", "Fire")
	state.Editing = &editing
	state.ActiveTab = TabEditor

	next := Reduce(state, DisasterRemoved{ID: "d-2"})
	if len(next.Disasters) != 2 || next.Disasters[0].ID != "d-1" || next.Disasters[1].ID != "d-3" {
		t.Fatalf("unexpected records after removal: %+v", next.Disasters)
	}
	if next.Editing != nil || next.ActiveTab != TabDisasters {
		t.Fatalf("expected removed edit target cleared")
	}
}

func TestDisastersLoadedDeduplicatesByID(t *testing.T) {
	state := InitialState()
	state.Loading = true

	next := Reduce(state, DisastersLoaded{Disasters: []disasters.Disaster{
		record("d-1", "Flood"),
		record("d-2", "Fire"),
		record("d-1", "Flood (newer)"),
	}})
	if next.Loading {
		t.Fatalf("expected loading cleared")
	}
	if len(next.Disasters) != 2 || next.Disasters[0].Title != "Flood (newer)" {
		t.Fatalf("expected duplicate id collapsed, got %+v", next.Disasters)
	}
}

func TestNotificationClearedIgnoresSupersededID(t *testing.T) {
	state := Reduce(InitialState(), NotificationShown{Notification: Notification{ID: "first", Message: "one"}})
	state = Reduce(state, NotificationShown{Notification: Notification{ID: "second", Message: "two"}})

	state = Reduce(state, NotificationCleared{ID: "first"})
	if state.Notification == nil || state.Notification.ID != "second" {
		t.Fatalf("expected superseded clear to be a no-op, got %+v", state.Notification)
	}

	state = Reduce(state, NotificationCleared{ID: "second"})
	if state.Notification != nil {
		t.Fatalf("expected notification cleared")
	}
}

func TestSocialLoadedIgnoresOtherSelection(t *testing.T) {
	state := Reduce(InitialState(), SocialSelected{DisasterID: "d-2", Keywords: []string{"fire"}})
	if !state.Social.Loading {
		t.Fatalf("expected loading after selection")
	}

	posts := social.Fallback("d-1", time.Now())
	state = Reduce(state, SocialLoaded{DisasterID: "d-1", Posts: posts})
	if len(state.Social.Posts) != 0 || !state.Social.Loading {
		t.Fatalf("expected posts for a previous selection to be dropped")
	}

	state = Reduce(state, SocialLoaded{DisasterID: "d-2", Posts: posts[:1]})
	if len(state.Social.Posts) != 1 || state.Social.Loading {
		t.Fatalf("expected posts applied, got %+v", state.Social)
	}

	cleared := Reduce(state, SocialSelected{})
	if cleared.Social.DisasterID != "" || cleared.Social.Loading || cleared.Social.Posts != nil {
		t.Fatalf("expected feed cleared, got %+v", cleared.Social)
	}
}

func TestParseTab(t *testing.T) {
	for _, tab := range Tabs() {
		parsed, err := ParseTab(string(tab))
		if err != nil || parsed != tab {
			t.Fatalf("ParseTab(%q) = %q, %v", tab, parsed, err)
		}
	}
	if _, err := ParseTab("settings"); err == nil {
		t.Fatalf("expected unknown tab error")
	}
}

func TestStoreNotifiesSubscribers(t *testing.T) {
	store := NewStore(InitialState())
	var seen []Tab
	unsubscribe := store.Subscribe(func(state State) {
		seen = append(seen, state.ActiveTab)
	})

	store.Dispatch(SetTab{Tab: TabSocial})
	unsubscribe()
	unsubscribe()
	store.Dispatch(SetTab{Tab: TabResources})

	if len(seen) != 1 || seen[0] != TabSocial {
		t.Fatalf("unexpected notifications: %v", seen)
	}
	if store.State().ActiveTab != TabResources {
		t.Fatalf("expected state to advance after unsubscribe")
	}
}

func TestStoreDeliversStatesInDispatchOrder(t *testing.T) {
	store := NewStore(InitialState())
	entered := make(chan struct{})
	release := make(chan struct{})

	var mu sync.Mutex
	var delivered []Tab
	store.Subscribe(func(state State) {
		if state.ActiveTab == TabReports {
			close(entered)
			<-release
		}
		mu.Lock()
		delivered = append(delivered, state.ActiveTab)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		store.Dispatch(SetTab{Tab: TabReports})
	}()
	<-entered
	go func() {
		defer wg.Done()
		store.Dispatch(SetTab{Tab: TabSocial})
	}()

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	early := len(delivered)
	mu.Unlock()
	if early != 0 {
		t.Fatalf("expected later dispatch to wait for earlier delivery, got %v", delivered)
	}
	close(release)
	wg.Wait()

	if !reflect.DeepEqual(delivered, []Tab{TabReports, TabSocial}) {
		t.Fatalf("expected delivery in dispatch order, got %v", delivered)
	}
	if store.State().ActiveTab != TabSocial {
		t.Fatalf("expected store to hold the last dispatched tab, got %s", store.State().ActiveTab)
	}
}
