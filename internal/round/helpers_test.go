package round

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"crashround/internal/economy"
	"crashround/internal/history"
	"crashround/internal/stats"

	"go.uber.org/zap"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fakeEconomy struct {
	mu       sync.Mutex
	enabled  bool
	balances map[string]float64
	deposits map[string][]float64
	fail     error
}

func newFakeEconomy() *fakeEconomy {
	return &fakeEconomy{
		enabled:  true,
		balances: make(map[string]float64),
		deposits: make(map[string][]float64),
	}
}

func (f *fakeEconomy) Enabled() bool { return f.enabled }

func (f *fakeEconomy) Withdraw(id string, amount float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	if f.balances[id] < amount {
		return economy.ErrInsufficientFunds
	}
	f.balances[id] -= amount
	return nil
}

func (f *fakeEconomy) Deposit(id string, amount float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[id] += amount
	f.deposits[id] = append(f.deposits[id], amount)
}

func (f *fakeEconomy) balance(id string) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[id]
}

func (f *fakeEconomy) depositsFor(id string) []float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]float64(nil), f.deposits[id]...)
}

type recordingSink struct {
	mu      sync.Mutex
	frames  []Snapshot
	markers []string
	spans   []time.Duration
	clears  int
}

func (s *recordingSink) Render(snap Snapshot) {
	s.mu.Lock()
	s.frames = append(s.frames, snap)
	s.mu.Unlock()
}

func (s *recordingSink) SpawnMarker(text string, lifespan time.Duration) {
	s.mu.Lock()
	s.markers = append(s.markers, text)
	s.spans = append(s.spans, lifespan)
	s.mu.Unlock()
}

func (s *recordingSink) ClearMarkers() {
	s.mu.Lock()
	s.clears++
	s.mu.Unlock()
}

func (s *recordingSink) frameCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices map[string][]Notice
}

func (n *recordingNotifier) Notify(id string, notice Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.notices == nil {
		n.notices = make(map[string][]Notice)
	}
	n.notices[id] = append(n.notices[id], notice)
}

func (n *recordingNotifier) received(id string) []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.notices[id]
}

type testEnv struct {
	clock   *fakeClock
	econ    *fakeEconomy
	stats   *stats.Ledger
	history *history.Store
	sink    *recordingSink
	notes   *recordingNotifier
}

// newTestEngine builds an engine on a fake clock with bet limits 10..1000 and
// the rate limiter off unless mutate turns it back on.
func newTestEngine(t *testing.T, mutate func(*Config)) (*Engine, *testEnv) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.MinBet = 10
	cfg.MaxBet = 1000
	cfg.ActionRateLimit = 0
	if mutate != nil {
		mutate(&cfg)
	}

	env := &testEnv{
		clock:   newFakeClock(),
		econ:    newFakeEconomy(),
		stats:   stats.NewLedger(nil, zap.NewNop()),
		history: history.NewStore(nil, 20, zap.NewNop()),
		sink:    &recordingSink{},
		notes:   &recordingNotifier{},
	}
	e := New(cfg, Deps{
		Economy:  env.econ,
		History:  env.history,
		Stats:    env.stats,
		Sink:     env.sink,
		Notifier: env.notes,
		Log:      zap.NewNop(),
		Clock:    env.clock.Now,
		Rand:     rand.New(rand.NewSource(42)),
	})
	return e, env
}

// startRound moves a waiting engine into the running phase.
func startRound(t *testing.T, e *Engine, env *testEnv) {
	t.Helper()
	if e.Phase() != PhaseWaiting {
		t.Fatalf("startRound from %q, want waiting", e.Phase())
	}
	env.clock.Advance(e.Snapshot().NextStartAt.Sub(env.clock.Now()))
	e.Tick()
	if e.Phase() != PhaseRunning {
		t.Fatalf("phase after start tick = %q, want running", e.Phase())
	}
}

// tickUntil advances the clock in tick-sized steps until the engine reaches
// phase, failing after limit steps.
func tickUntil(t *testing.T, e *Engine, env *testEnv, phase Phase, limit int) {
	t.Helper()
	for i := 0; i < limit; i++ {
		if e.Phase() == phase {
			return
		}
		env.clock.Advance(e.Config.TickInterval)
		e.Tick()
	}
	if e.Phase() != phase {
		t.Fatalf("phase = %q after %d ticks, want %q", e.Phase(), limit, phase)
	}
}
