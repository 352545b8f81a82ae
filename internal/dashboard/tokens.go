package dashboard

import "sync"

// requestTokens tags in-flight requests per key so that only the newest response is applied.
type requestTokens struct {
	mu      sync.Mutex
	next    uint64
	current map[string]uint64
}

func newRequestTokens() *requestTokens {
	return &requestTokens{current: make(map[string]uint64)}
}

// begin issues a token for key, superseding every earlier one.
func (r *requestTokens) begin(key string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.current[key] = r.next
	return r.next
}

// commit runs apply only if token is still the newest for key. The check and apply are atomic
// with respect to begin.
func (r *requestTokens) commit(key string, token uint64, apply func()) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current[key] != token {
		return false
	}
	delete(r.current, key)
	apply()
	return true
}

// invalidate makes every outstanding token for key stale.
func (r *requestTokens) invalidate(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.current, key)
}

// settle runs apply only if no token for key is outstanding.
func (r *requestTokens) settle(key string, apply func()) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, outstanding := r.current[key]; outstanding {
		return false
	}
	apply()
	return true
}
