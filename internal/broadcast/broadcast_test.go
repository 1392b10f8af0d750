package broadcast

import (
	"encoding/json"
	"testing"
	"time"

	"crashround/internal/events"
)

func TestNewBroadcaster(t *testing.T) {
	bus := events.NewBus()
	b := NewBroadcaster(bus)
	if b == nil {
		t.Fatal("NewBroadcaster() returned nil")
	}
}

func TestBroadcaster_SubscribeUnsubscribe(t *testing.T) {
	b := NewBroadcaster(events.NewBus())

	ch := b.Subscribe()
	if ch == nil {
		t.Fatal("Subscribe() returned nil")
	}

	b.Mu.Lock()
	if len(b.Clients) != 1 {
		t.Errorf("clients count = %d, want 1", len(b.Clients))
	}
	b.Mu.Unlock()

	b.Unsubscribe(ch)

	b.Mu.Lock()
	if len(b.Clients) != 0 {
		t.Errorf("clients count after unsubscribe = %d, want 0", len(b.Clients))
	}
	b.Mu.Unlock()
}

func TestBroadcaster_Broadcast(t *testing.T) {
	b := NewBroadcaster(events.NewBus())

	ch1 := b.Subscribe()
	ch2 := b.Subscribe()

	b.Broadcast("frame", "hello")

	for i, ch := range []chan Message{ch1, ch2} {
		select {
		case msg := <-ch:
			if msg.Event != "frame" || msg.Data != "hello" {
				t.Errorf("ch%d got %+v, want event=frame, data=hello", i+1, msg)
			}
		case <-time.After(1 * time.Second):
			t.Fatalf("ch%d timed out", i+1)
		}
	}

	b.Unsubscribe(ch1)
	b.Unsubscribe(ch2)
}

func TestBroadcaster_SkipsFullChannels(t *testing.T) {
	b := NewBroadcaster(events.NewBus())
	ch := b.Subscribe()

	// Fill the channel buffer (capacity 10)
	for i := 0; i < 10; i++ {
		b.Broadcast("fill", "data")
	}

	done := make(chan bool)
	go func() {
		b.Broadcast("overflow", "data")
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("Broadcast blocked on full channel")
	}

	b.Unsubscribe(ch)
}

func TestBroadcaster_PhaseForwarding(t *testing.T) {
	bus := events.NewBus()
	b := NewBroadcaster(bus)
	ch := b.Subscribe()

	bus.PublishPhase(events.PhaseChangeEvent{Phase: "running", RoundID: "r1"})

	select {
	case msg := <-ch:
		if msg.Event != "phase" {
			t.Fatalf("event = %q, want phase", msg.Event)
		}
		var got map[string]string
		if err := json.Unmarshal([]byte(msg.Data), &got); err != nil {
			t.Fatalf("decoding %q: %v", msg.Data, err)
		}
		if got["phase"] != "running" || got["roundId"] != "r1" {
			t.Errorf("data = %v, want running/r1", got)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for phase broadcast")
	}

	b.Unsubscribe(ch)
}

func TestBroadcaster_CrashForwarding(t *testing.T) {
	bus := events.NewBus()
	b := NewBroadcaster(bus)
	ch := b.Subscribe()

	bus.PublishCrash(events.CrashEvent{RoundID: "r2", Multiplier: 2.5})

	select {
	case msg := <-ch:
		if msg.Event != "crash" {
			t.Fatalf("event = %q, want crash", msg.Event)
		}
		var got struct {
			RoundID    string  `json:"roundId"`
			Multiplier float64 `json:"multiplier"`
		}
		if err := json.Unmarshal([]byte(msg.Data), &got); err != nil {
			t.Fatalf("decoding %q: %v", msg.Data, err)
		}
		if got.RoundID != "r2" || got.Multiplier != 2.5 {
			t.Errorf("data = %+v, want r2 at 2.5", got)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for crash broadcast")
	}

	b.Unsubscribe(ch)
}
