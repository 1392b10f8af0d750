package history

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const DefaultMaxSize = 20

// Backend persists the crash log. Load returns at most limit entries,
// oldest first. Append and Trim keep the persisted log within limit.
type Backend interface {
	Load(ctx context.Context, limit int) ([]float64, error)
	Append(ctx context.Context, multiplier float64, limit int) error
	Trim(ctx context.Context, limit int) error
}

// Store is a bounded FIFO of realized crash multipliers.
type Store struct {
	mu      sync.Mutex
	entries []float64
	maxSize int
	backend Backend // nil keeps history in memory only
	timeout time.Duration
	log     *zap.Logger
}

// NewStore loads any persisted history through backend. A load failure is
// logged and the store starts empty.
func NewStore(backend Backend, maxSize int, log *zap.Logger) *Store {
	s := &Store{
		maxSize: max(1, maxSize),
		backend: backend,
		timeout: 5 * time.Second,
		log:     log,
	}
	if backend == nil {
		return s
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	entries, err := backend.Load(ctx, s.maxSize)
	if err != nil {
		log.Warn("loading crash history", zap.Error(err))
		return s
	}
	s.entries = entries
	s.trimLocked()
	return s
}

// Record appends a crash result, evicting the oldest entries over capacity,
// then persists. Persistence errors are logged, never returned.
func (s *Store) Record(multiplier float64) {
	s.mu.Lock()
	s.entries = append(s.entries, multiplier)
	s.trimLocked()
	limit := s.maxSize
	s.mu.Unlock()

	if s.backend == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.backend.Append(ctx, multiplier, limit); err != nil {
		s.log.Warn("saving crash history", zap.Float64("multiplier", multiplier), zap.Error(err))
	}
}

// Recent returns up to n of the newest entries, oldest first.
func (s *Store) Recent(n int) []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 {
		return []float64{}
	}
	take := min(n, len(s.entries))
	out := make([]float64, take)
	copy(out, s.entries[len(s.entries)-take:])
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) MaxSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxSize
}

// SetMaxSize changes capacity (minimum 1) and trims immediately.
func (s *Store) SetMaxSize(n int) {
	s.mu.Lock()
	s.maxSize = max(1, n)
	s.trimLocked()
	limit := s.maxSize
	s.mu.Unlock()

	if s.backend == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.backend.Trim(ctx, limit); err != nil {
		s.log.Warn("trimming crash history", zap.Int("limit", limit), zap.Error(err))
	}
}

func (s *Store) trimLocked() {
	if over := len(s.entries) - s.maxSize; over > 0 {
		s.entries = append([]float64(nil), s.entries[over:]...)
	}
}

// Band groups a multiplier for last-games colouring.
type Band string

const (
	BandRed    = Band("red")
	BandYellow = Band("yellow")
	BandGreen  = Band("green")
	BandAqua   = Band("aqua")
)

func BandFor(m float64) Band {
	switch {
	case m < 1.25:
		return BandRed
	case m < 2.0:
		return BandYellow
	case m <= 5.0:
		return BandGreen
	}
	return BandAqua
}
