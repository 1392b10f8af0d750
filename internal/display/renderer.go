package display

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"crashround/internal/amount"
	"crashround/internal/round"

	"go.uber.org/zap"
)

const maxListedPlayers = 3

// Publisher delivers rendered frames and marker updates to viewers.
type Publisher interface {
	BroadcastJSON(event string, v any)
}

type Frame struct {
	RoundID    string    `json:"roundId,omitempty"`
	Phase      string    `json:"phase"`
	Multiplier float64   `json:"multiplier"`
	Lines      []string  `json:"lines"`
	Trail      []float64 `json:"trail,omitempty"`
}

type Marker struct {
	ID       uint64 `json:"id"`
	Text     string `json:"text"`
	Lifespan int64  `json:"lifespanSeconds"`
}

type pendingMarker struct {
	Marker
	timer *time.Timer
}

// Renderer turns round snapshots into display lines and keeps the set of
// live crash markers. Each marker expires on its own timer.
type Renderer struct {
	templates []string
	pub       Publisher
	log       *zap.Logger

	mu      sync.Mutex
	last    Frame
	markers map[uint64]*pendingMarker
	nextID  uint64
}

func NewRenderer(templates []string, pub Publisher, log *zap.Logger) *Renderer {
	return &Renderer{
		templates: append([]string(nil), templates...),
		pub:       pub,
		log:       log,
		markers:   make(map[uint64]*pendingMarker),
	}
}

func (r *Renderer) Render(snap round.Snapshot) {
	frame := Frame{
		RoundID:    snap.RoundID,
		Phase:      string(snap.Phase),
		Multiplier: snap.Multiplier,
		Lines:      Lines(r.templates, snap),
		Trail:      snap.Trail,
	}
	r.mu.Lock()
	r.last = frame
	r.mu.Unlock()
	r.publish("frame", frame)
}

// Latest is the most recently rendered frame.
func (r *Renderer) Latest() Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func (r *Renderer) SpawnMarker(text string, lifespan time.Duration) {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	m := &pendingMarker{Marker: Marker{ID: id, Text: text, Lifespan: int64(lifespan / time.Second)}}
	m.timer = time.AfterFunc(lifespan, func() { r.expire(id) })
	r.markers[id] = m
	r.mu.Unlock()

	r.log.Debug("crash marker spawned", zap.String("text", text), zap.Duration("lifespan", lifespan))
	r.publish("marker", m.Marker)
}

func (r *Renderer) expire(id uint64) {
	r.mu.Lock()
	_, ok := r.markers[id]
	delete(r.markers, id)
	r.mu.Unlock()
	if ok {
		r.publish("markerExpired", map[string]uint64{"id": id})
	}
}

// ClearMarkers removes every live marker and cancels its pending expiry.
func (r *Renderer) ClearMarkers() {
	r.mu.Lock()
	n := len(r.markers)
	for id, m := range r.markers {
		m.timer.Stop()
		delete(r.markers, id)
	}
	r.mu.Unlock()
	if n > 0 {
		r.publish("markersCleared", map[string]int{"count": n})
	}
}

// Markers lists live markers, oldest first.
func (r *Renderer) Markers() []Marker {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Marker, 0, len(r.markers))
	for _, m := range r.markers {
		out = append(out, m.Marker)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *Renderer) publish(event string, v any) {
	if r.pub != nil {
		r.pub.BroadcastJSON(event, v)
	}
}

// Lines fills each template's placeholders from snap.
func Lines(templates []string, snap round.Snapshot) []string {
	timer := ""
	if snap.Phase != round.PhaseRunning {
		timer = strconv.FormatInt(snap.SecondsToStart(), 10)
	}
	repl := strings.NewReplacer(
		"{state}", StateText(snap.Phase),
		"{timer}", timer,
		"{multiplier}", amount.Multiplier(snap.Multiplier),
		"{pot}", amount.Short(snap.Pot),
		"{players_total}", strconv.Itoa(snap.ActivePlayers),
		"{players}", Players(snap.Bets),
	)
	out := make([]string, len(templates))
	for i, t := range templates {
		out[i] = repl.Replace(t)
	}
	return out
}

func StateText(p round.Phase) string {
	switch p {
	case round.PhaseRunning:
		return "Live"
	case round.PhaseCrashed:
		return "Crashed"
	}
	return "Waiting"
}

// Players lists up to three active or cashed-out bets in snapshot order, or
// "None".
func Players(bets []round.Bet) string {
	var parts []string
	for _, b := range bets {
		if len(parts) == maxListedPlayers {
			break
		}
		name := b.DisplayName
		if name == "" {
			name = b.ParticipantID
		}
		switch b.Status {
		case round.BetActive:
			parts = append(parts, name+"("+amount.Short(b.Amount)+")")
		case round.BetCashedOut:
			parts = append(parts, name+" @ "+amount.Multiplier(b.CashoutMultiplier)+"x")
		}
	}
	if len(parts) == 0 {
		return "None"
	}
	return strings.Join(parts, ", ")
}
