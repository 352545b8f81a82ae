package dashboard

import "sync"

// Store holds the dashboard state. All mutations go through Dispatch.
type Store struct {
	deliverMu sync.Mutex

	mu        sync.RWMutex
	state     State
	nextID    int
	listeners map[int]func(State)
}

// NewStore creates a store seeded with initial.
func NewStore(initial State) *Store {
	return &Store{
		state:     initial.Clone(),
		listeners: make(map[int]func(State)),
	}
}

// Dispatch reduces action into the current state and notifies subscribers with the result.
// Dispatches are serialised, so subscribers see states in the order they were produced.
func (s *Store) Dispatch(action Action) State {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	s.state = Reduce(s.state, action)
	next := s.state.Clone()
	listeners := make([]func(State), 0, len(s.listeners))
	for _, listener := range s.listeners {
		listeners = append(listeners, listener)
	}
	s.mu.Unlock()

	for _, listener := range listeners {
		listener(next.Clone())
	}
	return next
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Subscribe registers listener for state changes and returns a function that removes it.
// Listeners run synchronously inside Dispatch. They may read State but must not dispatch or
// call back into a Controller, which dispatches while holding its own locks.
func (s *Store) Subscribe(listener func(State)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = listener
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}
