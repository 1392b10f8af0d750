package round

type BetStatus string

const (
	BetActive    = BetStatus("active")
	BetCashedOut = BetStatus("cashed_out")
	BetLost      = BetStatus("lost")
)

// Bet is one participant's wager in the current round. Status only moves
// forward: Active to CashedOut or Lost.
type Bet struct {
	ParticipantID     string    `json:"participantId"`
	DisplayName       string    `json:"name"`
	Amount            float64   `json:"amount"`
	Status            BetStatus `json:"status"`
	CashoutMultiplier float64   `json:"cashoutMultiplier,omitempty"`
	Payout            float64   `json:"payout,omitempty"`
}

func newBet(participantID, name string, amount float64) *Bet {
	return &Bet{
		ParticipantID: participantID,
		DisplayName:   name,
		Amount:        amount,
		Status:        BetActive,
	}
}

func (b *Bet) Active() bool {
	return b.Status == BetActive
}

func (b *Bet) markCashedOut(multiplier, payout float64) bool {
	if b.Status != BetActive {
		return false
	}
	b.Status = BetCashedOut
	b.CashoutMultiplier = multiplier
	b.Payout = payout
	return true
}

func (b *Bet) markLost() bool {
	if b.Status != BetActive {
		return false
	}
	b.Status = BetLost
	return true
}

// rank orders bets for display: active first, then cashed out, then lost.
func (b *Bet) rank() int {
	switch b.Status {
	case BetActive:
		return 0
	case BetCashedOut:
		return 1
	}
	return 2
}
