package stats

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Record holds win/loss counters for one participant or for the server.
type Record struct {
	Wins       int64   `yaml:"wins" json:"wins"`
	Losses     int64   `yaml:"losses" json:"losses"`
	TotalGames int64   `yaml:"totalGames" json:"totalGames"`
	Net        float64 `yaml:"net" json:"net"`
	Profit     float64 `yaml:"profit" json:"profit"`
	Loss       float64 `yaml:"loss" json:"loss"`
	TotalBet   float64 `yaml:"totalBet" json:"totalBet"`
	TotalWon   float64 `yaml:"totalWon" json:"totalWon"`
}

// RecordCashout counts a win. A payout below the wager lowers Net but adds
// nothing to Profit or Loss.
func (r *Record) RecordCashout(bet, payout float64) {
	r.Wins++
	r.TotalGames++
	r.TotalBet += bet
	r.TotalWon += payout
	delta := payout - bet
	r.Net += delta
	if delta >= 0 {
		r.Profit += delta
	}
}

func (r *Record) RecordLoss(bet float64) {
	r.Losses++
	r.TotalGames++
	r.TotalBet += bet
	r.Loss += bet
	r.Net -= bet
}

// WinRate is wins over total games, 0 when no games were played.
func (r Record) WinRate() float64 {
	if r.TotalGames == 0 {
		return 0
	}
	return float64(r.Wins) / float64(r.TotalGames)
}

// Snapshot is the full persisted state.
type Snapshot struct {
	Players map[string]Record `yaml:"players"`
	Server  Record            `yaml:"server"`
}

// Backend persists ledger state. Save is called after every mutation with
// the changed participant and the updated server totals.
type Backend interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, participantID string, player, server Record) error
}

type Entry struct {
	ParticipantID string `json:"participantId"`
	Record
}

// Ledger tracks per-participant and server-wide settlement counters.
type Ledger struct {
	mu      sync.Mutex
	players map[string]*Record
	server  Record
	backend Backend
	timeout time.Duration
	log     *zap.Logger
}

// NewLedger loads persisted counters through backend (nil keeps everything
// in memory). Load failures are logged and the ledger starts empty.
func NewLedger(backend Backend, log *zap.Logger) *Ledger {
	l := &Ledger{
		players: make(map[string]*Record),
		backend: backend,
		timeout: 5 * time.Second,
		log:     log,
	}
	if backend == nil {
		return l
	}

	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()
	snap, err := backend.Load(ctx)
	if err != nil {
		log.Warn("loading stats", zap.Error(err))
		return l
	}
	for id, rec := range snap.Players {
		r := rec
		l.players[id] = &r
	}
	l.server = snap.Server
	log.Info("stats loaded", zap.Int("players", len(l.players)))
	return l
}

// Get returns a copy of the participant's record; unknown participants get
// a zero record.
func (l *Ledger) Get(participantID string) Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	if r, ok := l.players[participantID]; ok {
		return *r
	}
	return Record{}
}

func (l *Ledger) Totals() Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.server
}

func (l *Ledger) RecordCashout(participantID string, bet, payout float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r := l.recordLocked(participantID)
	r.RecordCashout(bet, payout)
	l.server.RecordCashout(bet, payout)
	l.saveLocked(participantID, *r)
}

func (l *Ledger) RecordLoss(participantID string, bet float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r := l.recordLocked(participantID)
	r.RecordLoss(bet)
	l.server.RecordLoss(bet)
	l.saveLocked(participantID, *r)
}

// Top returns up to n participants ordered by net result, best first.
func (l *Ledger) Top(n int) []Entry {
	l.mu.Lock()
	entries := make([]Entry, 0, len(l.players))
	for id, r := range l.players {
		entries = append(entries, Entry{ParticipantID: id, Record: *r})
	}
	l.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Net != entries[j].Net {
			return entries[i].Net > entries[j].Net
		}
		return entries[i].ParticipantID < entries[j].ParticipantID
	})
	if n >= 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

func (l *Ledger) recordLocked(participantID string) *Record {
	r, ok := l.players[participantID]
	if !ok {
		r = &Record{}
		l.players[participantID] = r
	}
	return r
}

// saveLocked persists while the ledger lock is held so writes for the same
// participant land in mutation order.
func (l *Ledger) saveLocked(participantID string, player Record) {
	if l.backend == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()
	if err := l.backend.Save(ctx, participantID, player, l.server); err != nil {
		l.log.Warn("saving stats", zap.String("participant", participantID), zap.Error(err))
	}
}
