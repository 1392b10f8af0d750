package events

type PhaseChangeEvent struct {
	Phase   string
	RoundID string
}

type CrashEvent struct {
	RoundID    string
	Multiplier float64
}

type Bus struct {
	PhaseChanges chan PhaseChangeEvent
	Crashes      chan CrashEvent
}

func NewBus() *Bus {
	return &Bus{
		PhaseChanges: make(chan PhaseChangeEvent, 10),
		Crashes:      make(chan CrashEvent, 10),
	}
}

// PublishPhase never blocks the round loop; it reports false when the
// event was dropped because no consumer kept up.
func (b *Bus) PublishPhase(ev PhaseChangeEvent) bool {
	select {
	case b.PhaseChanges <- ev:
		return true
	default:
		return false
	}
}

func (b *Bus) PublishCrash(ev CrashEvent) bool {
	select {
	case b.Crashes <- ev:
		return true
	default:
		return false
	}
}
