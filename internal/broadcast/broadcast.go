package broadcast

import (
	"encoding/json"
	"sync"

	"crashround/internal/events"
)

// Message is one server-sent event: a name and its data line.
type Message struct {
	Event string
	Data  string
}

type Broadcaster struct {
	Mu      sync.Mutex
	Clients map[chan Message]bool
}

// NewBroadcaster fans round phase changes and crashes from bus out to every
// subscriber as "phase" and "crash" events.
func NewBroadcaster(bus *events.Bus) *Broadcaster {
	b := &Broadcaster{
		Clients: make(map[chan Message]bool),
	}
	go func() {
		for {
			select {
			case ev := <-bus.PhaseChanges:
				b.BroadcastJSON("phase", map[string]string{"phase": ev.Phase, "roundId": ev.RoundID})
			case ev := <-bus.Crashes:
				b.BroadcastJSON("crash", map[string]any{"roundId": ev.RoundID, "multiplier": ev.Multiplier})
			}
		}
	}()
	return b
}

func (b *Broadcaster) Subscribe() chan Message {
	ch := make(chan Message, 10)
	b.Mu.Lock()
	b.Clients[ch] = true
	b.Mu.Unlock()
	return ch
}

func (b *Broadcaster) Unsubscribe(ch chan Message) {
	b.Mu.Lock()
	delete(b.Clients, ch)
	b.Mu.Unlock()
	close(ch)
}

func (b *Broadcaster) Broadcast(event string, data string) {
	b.Mu.Lock()
	defer b.Mu.Unlock()
	for ch := range b.Clients {
		select {
		case ch <- Message{Event: event, Data: data}:
		default:
			// skip clients with full data channels
		}
	}
}

// BroadcastJSON sends v encoded as a single JSON line. Values that fail to
// encode are dropped.
func (b *Broadcaster) BroadcastJSON(event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	b.Broadcast(event, string(data))
}
