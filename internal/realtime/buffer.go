package realtime

// Buffer keeps the most recent updates, newest first, evicting the oldest beyond capacity.
// It is not safe for concurrent use; Channel guards it.
type Buffer struct {
	capacity int
	items    []Update
}

// NewBuffer returns a buffer holding at most capacity updates. Capacities below one become one.
func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{capacity: capacity, items: make([]Update, 0, capacity)}
}

// Push prepends update and drops whatever falls past capacity.
func (b *Buffer) Push(update Update) {
	keep := len(b.items)
	if keep >= b.capacity {
		keep = b.capacity - 1
	}
	next := make([]Update, 0, b.capacity)
	next = append(next, update)
	next = append(next, b.items[:keep]...)
	b.items = next
}

// Items returns a copy of the buffered updates, newest first.
func (b *Buffer) Items() []Update {
	return append([]Update{}, b.items...)
}

// Len reports how many updates are buffered.
func (b *Buffer) Len() int {
	return len(b.items)
}

// Capacity reports the configured bound.
func (b *Buffer) Capacity() int {
	return b.capacity
}
