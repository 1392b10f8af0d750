package round

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"crashround/internal/events"
	"crashround/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Phase string

const (
	PhaseWaiting = Phase("waiting")
	PhaseRunning = Phase("running")
	PhaseCrashed = Phase("crashed")
)

type Config struct {
	Interval        time.Duration
	StartDelay      time.Duration // first-round delay and post-crash cooldown
	TickInterval    time.Duration
	StartMultiplier float64
	GrowthPerSecond float64
	CrashVariance   float64
	MinCrash        float64
	MaxCrash        float64
	MinBet          float64
	MaxBet          float64
	AllowLateJoin   bool
	ActionRateLimit time.Duration
	DisplayRefresh  time.Duration
	MarkerText      string
	MarkerLifespan  time.Duration
	TrailWidth      int
}

func DefaultConfig() Config {
	return Config{
		Interval:        30 * time.Second,
		StartDelay:      5 * time.Second,
		TickInterval:    100 * time.Millisecond,
		StartMultiplier: 1.0,
		GrowthPerSecond: 0.08,
		CrashVariance:   1.6,
		MinCrash:        1.01,
		MaxCrash:        1000,
		MinBet:          10,
		MaxBet:          20_000_000,
		ActionRateLimit: 200 * time.Millisecond,
		DisplayRefresh:  150 * time.Millisecond,
		MarkerText:      "BOOM at {multiplier}x",
		MarkerLifespan:  8 * time.Second,
		TrailWidth:      30,
	}
}

// sanitized replaces values the tick loop cannot run with by their
// defaults. Zero growth is kept: the round then crashes only when the start
// multiplier already meets the crash point.
func (c Config) sanitized() Config {
	def := DefaultConfig()
	if c.TickInterval <= 0 {
		c.TickInterval = def.TickInterval
	}
	c.StartDelay = max(0, c.StartDelay)
	c.Interval = max(0, c.Interval)
	if !(c.StartMultiplier > 0) {
		c.StartMultiplier = def.StartMultiplier
	}
	if !(c.GrowthPerSecond >= 0) {
		c.GrowthPerSecond = def.GrowthPerSecond
	}
	if !(c.CrashVariance > 0) {
		c.CrashVariance = def.CrashVariance
	}
	if !(c.MinCrash >= 1) || !(c.MaxCrash >= c.MinCrash) {
		c.MinCrash, c.MaxCrash = def.MinCrash, def.MaxCrash
	}
	if c.TrailWidth < 4 {
		c.TrailWidth = 4
	}
	return c
}

// Deps are the engine's collaborators. Nil fields fall back to no-ops, the
// clock to time.Now and the random source to a time-seeded one.
type Deps struct {
	Economy  Economy
	History  History
	Stats    Stats
	Sink     Sink
	Notifier Notifier
	Events   *events.Bus
	Log      *zap.Logger
	Clock    func() time.Time
	Rand     *rand.Rand
}

// Engine owns the single round state. Every read and write of that state,
// whether from the tick loop or a participant call, holds mu.
type Engine struct {
	Config Config
	Events *events.Bus

	economy  Economy
	history  History
	stats    Stats
	sink     Sink
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time

	mu                sync.Mutex
	rng               *rand.Rand
	phase             Phase
	roundID           string
	nextStartAt       time.Time
	roundStartedAt    time.Time
	crashedAt         time.Time
	crashMultiplier   float64
	currentMultiplier float64
	rigged            float64
	hasRig            bool
	bets              map[string]*Bet
	limiter           *rateLimiter
	trail             []float64
	lastRender        time.Time
	stopped           bool

	loopMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(cfg Config, deps Deps) *Engine {
	cfg = cfg.sanitized()
	e := &Engine{
		Config:   cfg,
		Events:   deps.Events,
		economy:  deps.Economy,
		history:  deps.History,
		stats:    deps.Stats,
		sink:     deps.Sink,
		notifier: deps.Notifier,
		log:      deps.Log,
		now:      deps.Clock,
		rng:      deps.Rand,
		phase:    PhaseWaiting,
		bets:     make(map[string]*Bet),
		limiter:  newRateLimiter(cfg.ActionRateLimit),
	}
	if e.Events == nil {
		e.Events = events.NewBus()
	}
	if e.economy == nil {
		e.economy = disabledEconomy{}
	}
	if e.history == nil {
		e.history = nopHistory{}
	}
	if e.stats == nil {
		e.stats = nopStats{}
	}
	if e.sink == nil {
		e.sink = nopSink{}
	}
	if e.notifier == nil {
		e.notifier = nopNotifier{}
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	e.currentMultiplier = cfg.StartMultiplier
	e.nextStartAt = e.now().Add(cfg.StartDelay)
	return e
}

// Start launches the tick loop and pushes a first display frame. Calling
// Start on a running engine does nothing.
func (e *Engine) Start(ctx context.Context) {
	e.loopMu.Lock()
	defer e.loopMu.Unlock()
	if e.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})
	e.mu.Lock()
	e.stopped = false
	e.mu.Unlock()
	go e.run(ctx, e.done)

	e.RefreshDisplay()
	e.log.Info("round engine started",
		zap.Duration("tick", e.Config.TickInterval),
		zap.Duration("interval", e.Config.Interval))
}

func (e *Engine) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(e.Config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Tick()
		}
	}
}

// Stop halts the tick loop, drops all live bets without refunds and clears
// any crash markers. Until the next Start every bet, cancel and cashout is
// refused.
func (e *Engine) Stop() {
	e.loopMu.Lock()
	cancel, done := e.cancel, e.done
	e.cancel, e.done = nil, nil
	e.loopMu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	e.mu.Lock()
	e.stopped = true
	dropped := len(e.bets)
	e.bets = make(map[string]*Bet)
	e.trail = nil
	e.mu.Unlock()

	metrics.ActiveBets.Set(0)
	e.sink.ClearMarkers()
	e.log.Info("round engine stopped", zap.Int("dropped_bets", dropped))
}

// Tick evaluates the current phase once against the clock.
func (e *Engine) Tick() {
	now := e.now()
	var fx effects

	e.mu.Lock()
	switch e.phase {
	case PhaseWaiting:
		if !now.Before(e.nextStartAt) {
			e.beginRoundLocked(now, &fx)
		}
	case PhaseRunning:
		e.advanceLocked(now, &fx)
	case PhaseCrashed:
		if !now.Before(e.crashedAt.Add(e.Config.StartDelay)) {
			e.resetLocked(now, &fx)
		}
	}
	e.sampleTrailLocked()
	if e.lastRender.IsZero() || now.Sub(e.lastRender) >= e.Config.DisplayRefresh {
		frame := e.snapshotLocked(now)
		fx.frame = &frame
		e.lastRender = now
	}
	fx.activeBets = e.activeCountLocked()
	e.mu.Unlock()

	e.apply(fx)
}

func (e *Engine) beginRoundLocked(now time.Time, fx *effects) {
	e.phase = PhaseRunning
	e.roundID = uuid.NewString()
	e.roundStartedAt = now
	if e.hasRig {
		e.crashMultiplier = e.rigged
	} else {
		e.crashMultiplier = SampleCrash(e.rng.Float64(), e.Config.MinCrash, e.Config.MaxCrash, e.Config.CrashVariance)
	}
	e.rigged, e.hasRig = 0, false
	e.currentMultiplier = e.Config.StartMultiplier
	e.nextStartAt = now.Add(e.Config.Interval)

	fx.phase = &events.PhaseChangeEvent{Phase: string(PhaseRunning), RoundID: e.roundID}
	e.log.Info("round started", zap.String("round", e.roundID), zap.Int("bets", len(e.bets)))
	e.log.Debug("crash point", zap.String("round", e.roundID), zap.Float64("multiplier", e.crashMultiplier))
}

// advanceLocked recomputes the multiplier from elapsed wall time rather than
// accumulating per tick, so tick jitter never drifts the curve.
func (e *Engine) advanceLocked(now time.Time, fx *effects) {
	elapsed := now.Sub(e.roundStartedAt).Seconds()
	e.currentMultiplier = Multiplier(e.Config.StartMultiplier, e.Config.GrowthPerSecond, elapsed)
	if e.currentMultiplier >= e.crashMultiplier {
		e.crashLocked(now, fx)
	}
}

func (e *Engine) crashLocked(now time.Time, fx *effects) {
	e.phase = PhaseCrashed
	e.crashedAt = now
	e.currentMultiplier = e.crashMultiplier

	for _, b := range e.bets {
		if b.markLost() {
			fx.losses = append(fx.losses, *b)
			fx.notices = append(fx.notices, addressedNotice{
				participantID: b.ParticipantID,
				notice: Notice{
					Kind:       NoticeLoss,
					RoundID:    e.roundID,
					Amount:     b.Amount,
					Multiplier: e.crashMultiplier,
				},
			})
		}
	}
	fx.crash = &events.CrashEvent{RoundID: e.roundID, Multiplier: e.crashMultiplier}
	fx.phase = &events.PhaseChangeEvent{Phase: string(PhaseCrashed), RoundID: e.roundID}
	e.log.Info("round crashed",
		zap.String("round", e.roundID),
		zap.Float64("multiplier", e.crashMultiplier),
		zap.Int("lost", len(fx.losses)))
}

func (e *Engine) resetLocked(now time.Time, fx *effects) {
	e.phase = PhaseWaiting
	e.bets = make(map[string]*Bet)
	e.trail = e.trail[:0]
	e.lastRender = time.Time{}
	if e.nextStartAt.Before(now.Add(time.Second)) {
		e.nextStartAt = now.Add(e.Config.Interval)
	}
	fx.clearMarkers = true
	fx.phase = &events.PhaseChangeEvent{Phase: string(PhaseWaiting), RoundID: e.roundID}
}

func (e *Engine) sampleTrailLocked() {
	sample := e.Config.StartMultiplier
	switch e.phase {
	case PhaseRunning:
		sample = e.currentMultiplier
	case PhaseCrashed:
		sample = e.crashMultiplier
	}
	if len(e.trail) >= e.Config.TrailWidth {
		e.trail = append(e.trail[:0], e.trail[1:]...)
	}
	e.trail = append(e.trail, sample)
}

func (e *Engine) activeCountLocked() int {
	n := 0
	for _, b := range e.bets {
		if b.Active() {
			n++
		}
	}
	return n
}

// RefreshDisplay pushes a frame immediately, outside the throttle.
func (e *Engine) RefreshDisplay() {
	now := e.now()
	e.mu.Lock()
	frame := e.snapshotLocked(now)
	e.lastRender = now
	e.mu.Unlock()
	e.sink.Render(frame)
}

// BetLimits returns the minimum opening bet and the maximum total bet.
func (e *Engine) BetLimits() (float64, float64) {
	return e.Config.MinBet, e.Config.MaxBet
}

func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// Bet returns a copy of the participant's bet in the current round.
func (e *Engine) Bet(participantID string) (Bet, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.bets[participantID]
	if !ok {
		return Bet{}, false
	}
	return *b, true
}

type addressedNotice struct {
	participantID string
	notice        Notice
}

// effects are side effects gathered under the lock and applied after it is
// released, in settlement order.
type effects struct {
	losses       []Bet
	notices      []addressedNotice
	crash        *events.CrashEvent
	phase        *events.PhaseChangeEvent
	clearMarkers bool
	frame        *Snapshot
	activeBets   int
}

func (e *Engine) apply(fx effects) {
	for _, b := range fx.losses {
		e.stats.RecordLoss(b.ParticipantID, b.Amount)
		metrics.Wagered.Add(b.Amount)
	}
	if fx.crash != nil {
		e.history.Record(fx.crash.Multiplier)
		e.sink.SpawnMarker(markerText(e.Config.MarkerText, fx.crash.Multiplier), e.Config.MarkerLifespan)
		e.Events.PublishCrash(*fx.crash)
		metrics.RoundsTotal.Inc()
		metrics.CrashMultiplier.Observe(fx.crash.Multiplier)
	}
	for _, n := range fx.notices {
		e.notifier.Notify(n.participantID, n.notice)
	}
	if fx.clearMarkers {
		e.sink.ClearMarkers()
	}
	if fx.phase != nil {
		e.Events.PublishPhase(*fx.phase)
	}
	if fx.frame != nil {
		e.sink.Render(*fx.frame)
	}
	metrics.ActiveBets.Set(float64(fx.activeBets))
}

type disabledEconomy struct{}

func (disabledEconomy) Enabled() bool                  { return false }
func (disabledEconomy) Withdraw(string, float64) error { return nil }
func (disabledEconomy) Deposit(string, float64)        {}
