package dashboard

import (
	"fmt"
	"sync"
	"time"
)

// DefaultNotificationTTL is how long a notification stays visible.
const DefaultNotificationTTL = 6 * time.Second

// notifier shows notifications and clears each one after ttl.
// A newer notification cancels the pending clear of the one it replaces.
type notifier struct {
	store *Store
	ttl   time.Duration
	ids   IDProvider
	clock func() time.Time

	mu      sync.Mutex
	timer   *time.Timer
	pending string
	seq     uint64
}

func newNotifier(store *Store, ttl time.Duration, ids IDProvider, clock func() time.Time) *notifier {
	if ttl <= 0 {
		ttl = DefaultNotificationTTL
	}
	return &notifier{store: store, ttl: ttl, ids: ids, clock: clock}
}

func (n *notifier) show(message string, kind NotificationKind) Notification {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.seq++
	id, err := n.ids.NewID()
	if err != nil || id == "" {
		id = fmt.Sprintf("notification-%d", n.seq)
	}
	notification := Notification{ID: id, Message: message, Kind: kind, CreatedAt: n.clock().UTC()}

	if n.timer != nil {
		n.timer.Stop()
	}
	n.store.Dispatch(NotificationShown{Notification: notification})
	n.pending = id
	n.timer = time.AfterFunc(n.ttl, func() { n.expire(id) })
	return notification
}

func (n *notifier) expire(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.pending == id {
		n.pending = ""
		n.timer = nil
	}
	n.store.Dispatch(NotificationCleared{ID: id})
}

// dismiss clears the visible notification immediately.
func (n *notifier) dismiss() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	if n.pending != "" {
		n.store.Dispatch(NotificationCleared{ID: n.pending})
		n.pending = ""
	}
}

// stop cancels the pending clear without touching state.
func (n *notifier) stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}
