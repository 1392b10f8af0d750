package round

import "time"

// rateLimiter remembers each participant's last accepted action. Entries
// live for the whole process, across rounds. Callers hold the engine lock.
type rateLimiter struct {
	window time.Duration
	last   map[string]time.Time
}

func newRateLimiter(window time.Duration) *rateLimiter {
	return &rateLimiter{
		window: max(0, window),
		last:   make(map[string]time.Time),
	}
}

// allow records now for the participant unless the previous action was
// inside the window, in which case nothing is recorded.
func (r *rateLimiter) allow(participantID string, now time.Time) bool {
	if prev, ok := r.last[participantID]; ok && now.Sub(prev) < r.window {
		return false
	}
	r.last[participantID] = now
	return true
}

func (r *rateLimiter) size() int {
	return len(r.last)
}
