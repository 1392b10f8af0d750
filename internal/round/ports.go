package round

import "time"

// Economy moves wagers in and out of participant balances. Withdraw returns
// an error wrapping economy.ErrInsufficientFunds or economy.ErrUnavailable.
type Economy interface {
	Enabled() bool
	Withdraw(participantID string, amount float64) error
	Deposit(participantID string, amount float64)
}

type History interface {
	Record(multiplier float64)
}

type Stats interface {
	RecordCashout(participantID string, bet, payout float64)
	RecordLoss(participantID string, bet float64)
}

// Sink receives throttled display frames and crash marker requests.
type Sink interface {
	Render(Snapshot)
	SpawnMarker(text string, lifespan time.Duration)
	ClearMarkers()
}

type NoticeKind string

const NoticeLoss = NoticeKind("loss")

// Notice is an unsolicited message for one participant, such as the loss
// notice sent when a round crashes under an active bet.
type Notice struct {
	Kind       NoticeKind
	RoundID    string
	Amount     float64
	Multiplier float64
}

type Notifier interface {
	Notify(participantID string, n Notice)
}

type nopSink struct{}

func (nopSink) Render(Snapshot)                   {}
func (nopSink) SpawnMarker(string, time.Duration) {}
func (nopSink) ClearMarkers()                     {}

type nopNotifier struct{}

func (nopNotifier) Notify(string, Notice) {}

type nopHistory struct{}

func (nopHistory) Record(float64) {}

type nopStats struct{}

func (nopStats) RecordCashout(string, float64, float64) {}
func (nopStats) RecordLoss(string, float64)             {}
