package round

import (
	"sort"
	"strings"
	"time"

	"crashround/internal/amount"
)

// Snapshot is a point-in-time public view of the round. The crash point is
// only included once the round has crashed.
type Snapshot struct {
	RoundID         string    `json:"roundId,omitempty"`
	Phase           Phase     `json:"phase"`
	At              time.Time `json:"at"`
	NextStartAt     time.Time `json:"nextStartAt"`
	RoundStartedAt  time.Time `json:"roundStartedAt"`
	Multiplier      float64   `json:"multiplier"`
	CrashMultiplier float64   `json:"crashMultiplier,omitempty"`
	Pot             float64   `json:"pot"`
	ActivePlayers   int       `json:"activePlayers"`
	Bets            []Bet     `json:"bets"`
	Trail           []float64 `json:"trail,omitempty"`
}

// SecondsToStart is the whole seconds left until the next scheduled start.
func (s Snapshot) SecondsToStart() int64 {
	d := s.NextStartAt.Sub(s.At)
	if d < 0 {
		return 0
	}
	return int64(d / time.Second)
}

// Summary is the operator view: the public snapshot plus the live crash
// point and any pending rig.
type Summary struct {
	Snapshot
	CrashPoint          float64  `json:"crashPoint"`
	Rigged              *float64 `json:"rigged,omitempty"`
	TrackedParticipants int      `json:"trackedParticipants"`
}

func (e *Engine) Snapshot() Snapshot {
	now := e.now()
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked(now)
}

func (e *Engine) Summary() Summary {
	now := e.now()
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Summary{
		Snapshot:            e.snapshotLocked(now),
		TrackedParticipants: e.limiter.size(),
	}
	if e.phase != PhaseWaiting {
		s.CrashPoint = e.crashMultiplier
	}
	if e.hasRig {
		r := e.rigged
		s.Rigged = &r
	}
	return s
}

func (e *Engine) snapshotLocked(now time.Time) Snapshot {
	s := Snapshot{
		RoundID:        e.roundID,
		Phase:          e.phase,
		At:             now,
		NextStartAt:    e.nextStartAt,
		RoundStartedAt: e.roundStartedAt,
		Multiplier:     e.currentMultiplier,
		Bets:           make([]Bet, 0, len(e.bets)),
		Trail:          append([]float64(nil), e.trail...),
	}
	if e.phase == PhaseCrashed {
		s.CrashMultiplier = e.crashMultiplier
	}
	for _, b := range e.bets {
		s.Bets = append(s.Bets, *b)
		if b.Active() {
			s.Pot += b.Amount
			s.ActivePlayers++
		}
	}
	sort.Slice(s.Bets, func(i, j int) bool {
		ri, rj := s.Bets[i].rank(), s.Bets[j].rank()
		if ri != rj {
			return ri < rj
		}
		if s.Bets[i].Amount != s.Bets[j].Amount {
			return s.Bets[i].Amount > s.Bets[j].Amount
		}
		return s.Bets[i].ParticipantID < s.Bets[j].ParticipantID
	})
	return s
}

func markerText(tmpl string, multiplier float64) string {
	return strings.ReplaceAll(tmpl, "{multiplier}", amount.Multiplier(multiplier))
}
