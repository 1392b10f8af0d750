package display

import (
	"sync"
	"testing"
	"time"

	"crashround/internal/round"

	"go.uber.org/zap"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) BroadcastJSON(event string, _ any) {
	p.mu.Lock()
	p.events = append(p.events, event)
	p.mu.Unlock()
}

func (p *recordingPublisher) count(event string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e == event {
			n++
		}
	}
	return n
}

var defaultTemplates = []string{
	"CRASH - {state}",
	"{timer}",
	"Multiplier: {multiplier}x",
	"Pot: {pot} ({players_total} players)",
	"{players}",
}

func TestLines_Waiting(t *testing.T) {
	at := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	snap := round.Snapshot{
		Phase:       round.PhaseWaiting,
		At:          at,
		NextStartAt: at.Add(12*time.Second + 400*time.Millisecond),
		Multiplier:  1,
	}

	got := Lines(defaultTemplates, snap)
	want := []string{
		"CRASH - Waiting",
		"12",
		"Multiplier: 1.00x",
		"Pot: $0 (0 players)",
		"None",
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestLines_Running(t *testing.T) {
	at := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	snap := round.Snapshot{
		Phase:         round.PhaseRunning,
		At:            at,
		NextStartAt:   at.Add(20 * time.Second),
		Multiplier:    1.837,
		Pot:           1500,
		ActivePlayers: 2,
		Bets: []round.Bet{
			{ParticipantID: "a", DisplayName: "Alice", Amount: 1000, Status: round.BetActive},
			{ParticipantID: "b", DisplayName: "Bob", Amount: 500, Status: round.BetActive},
			{ParticipantID: "c", DisplayName: "Cara", Amount: 75, Status: round.BetCashedOut, CashoutMultiplier: 1.5},
			{ParticipantID: "d", DisplayName: "Dan", Amount: 10, Status: round.BetCashedOut, CashoutMultiplier: 1.2},
		},
	}

	got := Lines(defaultTemplates, snap)
	want := []string{
		"CRASH - Live",
		"",
		"Multiplier: 1.84x",
		"Pot: $1.5k (2 players)",
		"Alice($1k), Bob($500), Cara @ 1.50x",
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestPlayers_SkipsLostAndFallsBackToID(t *testing.T) {
	bets := []round.Bet{
		{ParticipantID: "p1", Amount: 20, Status: round.BetActive},
		{ParticipantID: "p2", DisplayName: "Lost", Amount: 20, Status: round.BetLost},
	}
	if got := Players(bets); got != "p1($20)" {
		t.Errorf("Players() = %q, want %q", got, "p1($20)")
	}
	if got := Players(bets[1:]); got != "None" {
		t.Errorf("Players(lost only) = %q, want None", got)
	}
}

func TestStateText(t *testing.T) {
	tests := map[round.Phase]string{
		round.PhaseWaiting: "Waiting",
		round.PhaseRunning: "Live",
		round.PhaseCrashed: "Crashed",
	}
	for phase, want := range tests {
		if got := StateText(phase); got != want {
			t.Errorf("StateText(%q) = %q, want %q", phase, got, want)
		}
	}
}

func TestRenderer_RenderPublishesFrame(t *testing.T) {
	pub := &recordingPublisher{}
	r := NewRenderer(defaultTemplates, pub, zap.NewNop())

	r.Render(round.Snapshot{Phase: round.PhaseCrashed, Multiplier: 2.5, RoundID: "r1"})

	if pub.count("frame") != 1 {
		t.Errorf("frame events = %d, want 1", pub.count("frame"))
	}
	f := r.Latest()
	if f.Phase != "crashed" || f.RoundID != "r1" || f.Lines[0] != "CRASH - Crashed" {
		t.Errorf("Latest() = %+v", f)
	}
}

func TestRenderer_MarkerExpires(t *testing.T) {
	pub := &recordingPublisher{}
	r := NewRenderer(defaultTemplates, pub, zap.NewNop())

	r.SpawnMarker("BOOM at 2.00x", 20*time.Millisecond)
	if got := r.Markers(); len(got) != 1 || got[0].Text != "BOOM at 2.00x" {
		t.Fatalf("Markers() = %+v, want one marker", got)
	}

	deadline := time.After(time.Second)
	for len(r.Markers()) != 0 {
		select {
		case <-deadline:
			t.Fatal("marker did not expire")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if pub.count("markerExpired") != 1 {
		t.Errorf("markerExpired events = %d, want 1", pub.count("markerExpired"))
	}
}

func TestRenderer_ClearMarkersCancelsExpiry(t *testing.T) {
	pub := &recordingPublisher{}
	r := NewRenderer(defaultTemplates, pub, zap.NewNop())

	r.SpawnMarker("one", 30*time.Millisecond)
	r.SpawnMarker("two", time.Hour)
	r.ClearMarkers()

	if got := r.Markers(); len(got) != 0 {
		t.Errorf("Markers() after clear = %+v, want none", got)
	}
	time.Sleep(60 * time.Millisecond)
	if pub.count("markerExpired") != 0 {
		t.Errorf("markerExpired events = %d after clear, want 0", pub.count("markerExpired"))
	}
	if pub.count("markersCleared") != 1 {
		t.Errorf("markersCleared events = %d, want 1", pub.count("markersCleared"))
	}
}

func TestRenderer_NilPublisher(t *testing.T) {
	r := NewRenderer(defaultTemplates, nil, zap.NewNop())
	r.Render(round.Snapshot{Phase: round.PhaseWaiting})
	r.SpawnMarker("x", time.Hour)
	r.ClearMarkers()
}
