package round

import (
	"errors"
	"fmt"
	"math"

	"crashround/internal/economy"
	"crashround/internal/metrics"

	"go.uber.org/zap"
)

type BetResult struct {
	Amount  float64
	Updated bool // an existing bet was stacked or resized
}

type CashoutResult struct {
	Amount     float64
	Multiplier float64
	Payout     float64
}

// PlaceBet creates the participant's bet or, while waiting, stacks amount
// onto it. With late join enabled a running-round bet may be raised to
// amount but never lowered.
func (e *Engine) PlaceBet(participantID, name string, amount float64) (BetResult, error) {
	e.mu.Lock()
	res, err := e.placeBetLocked(participantID, name, amount)
	e.mu.Unlock()

	countAction("bet", err)
	if err != nil {
		e.log.Debug("bet rejected", zap.String("participant", participantID), zap.Float64("amount", amount), zap.Error(err))
	}
	return res, err
}

func (e *Engine) placeBetLocked(participantID, name string, amount float64) (BetResult, error) {
	if !e.limiter.allow(participantID, e.now()) {
		return BetResult{}, ErrRateLimited
	}
	if e.stopped || (e.phase != PhaseWaiting && !e.Config.AllowLateJoin) {
		return BetResult{}, ErrRoundNotWaiting
	}
	if math.IsNaN(amount) {
		return BetResult{}, ErrBetTooLow
	}

	existing := e.bets[participantID]
	if existing != nil && !existing.Active() {
		return BetResult{}, ErrRoundNotWaiting
	}
	base := 0.0
	if existing != nil {
		base = existing.Amount
	}
	stacking := e.phase == PhaseWaiting && existing != nil

	if !stacking && amount < e.Config.MinBet {
		return BetResult{}, ErrBetTooLow
	}
	target := amount
	if stacking {
		target = base + amount
	}
	if target > e.Config.MaxBet {
		return BetResult{}, ErrBetTooHigh
	}
	if existing != nil && e.phase != PhaseWaiting && target < base {
		return BetResult{}, ErrRoundNotWaiting
	}
	if target <= 0 {
		return BetResult{}, ErrBetTooLow
	}

	delta := target - base
	if e.economy.Enabled() && delta > 0 {
		if err := e.economy.Withdraw(participantID, delta); err != nil {
			if errors.Is(err, economy.ErrInsufficientFunds) {
				return BetResult{}, ErrInsufficientFunds
			}
			return BetResult{}, fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
		}
	}
	if e.economy.Enabled() && delta < 0 && e.phase == PhaseWaiting {
		e.economy.Deposit(participantID, -delta)
	}

	if existing == nil {
		e.bets[participantID] = newBet(participantID, name, target)
		return BetResult{Amount: target}, nil
	}
	existing.Amount = target
	return BetResult{Amount: target, Updated: true}, nil
}

// CancelBet removes the participant's bet while waiting and refunds it in
// full. It returns the refunded amount.
func (e *Engine) CancelBet(participantID string) (float64, error) {
	e.mu.Lock()
	refund, err := e.cancelBetLocked(participantID)
	e.mu.Unlock()

	countAction("cancel", err)
	return refund, err
}

func (e *Engine) cancelBetLocked(participantID string) (float64, error) {
	if !e.limiter.allow(participantID, e.now()) {
		return 0, ErrRateLimited
	}
	bet, ok := e.bets[participantID]
	if !ok || !bet.Active() {
		return 0, ErrNoBet
	}
	if e.stopped || e.phase != PhaseWaiting {
		return 0, ErrRoundNotWaiting
	}
	delete(e.bets, participantID)
	if e.economy.Enabled() {
		e.economy.Deposit(participantID, bet.Amount)
	}
	return bet.Amount, nil
}

// Cashout settles the participant's active bet at the live multiplier less
// the house edge.
func (e *Engine) Cashout(participantID string) (CashoutResult, error) {
	e.mu.Lock()
	res, err := e.cashoutLocked(participantID)
	e.mu.Unlock()

	countAction("cashout", err)
	if err != nil {
		return res, err
	}
	e.stats.RecordCashout(participantID, res.Amount, res.Payout)
	metrics.Wagered.Add(res.Amount)
	metrics.PaidOut.Add(res.Payout)
	e.log.Debug("cashout",
		zap.String("participant", participantID),
		zap.Float64("multiplier", res.Multiplier),
		zap.Float64("payout", res.Payout))
	return res, nil
}

func (e *Engine) cashoutLocked(participantID string) (CashoutResult, error) {
	if !e.limiter.allow(participantID, e.now()) {
		return CashoutResult{}, ErrRateLimited
	}
	if e.stopped || e.phase != PhaseRunning {
		return CashoutResult{}, ErrRoundNotRunning
	}
	bet, ok := e.bets[participantID]
	if !ok || !bet.Active() {
		return CashoutResult{}, ErrNoBet
	}

	m := e.currentMultiplier
	payout := Payout(bet.Amount, m)
	bet.markCashedOut(m, payout)
	e.economy.Deposit(participantID, payout)
	return CashoutResult{Amount: bet.Amount, Multiplier: m, Payout: payout}, nil
}

// HandleDisconnect withdraws a waiting bet with a full refund. A running
// active bet is forfeited: marked lost and counted as a loss, with no
// refund and no notice.
func (e *Engine) HandleDisconnect(participantID string) {
	e.mu.Lock()
	bet, ok := e.bets[participantID]
	if !ok {
		e.mu.Unlock()
		return
	}

	var lost *Bet
	switch e.phase {
	case PhaseWaiting:
		delete(e.bets, participantID)
		if e.economy.Enabled() {
			e.economy.Deposit(participantID, bet.Amount)
		}
	case PhaseRunning:
		if bet.markLost() {
			b := *bet
			lost = &b
		}
	}
	e.mu.Unlock()

	if lost != nil {
		e.stats.RecordLoss(lost.ParticipantID, lost.Amount)
		metrics.Wagered.Add(lost.Amount)
		e.log.Info("bet forfeited on disconnect", zap.String("participant", participantID), zap.Float64("amount", lost.Amount))
	}
}

// Rig overrides the next round's crash point. It returns the stored value,
// capped at MaxCrash.
func (e *Engine) Rig(multiplier float64) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != PhaseWaiting {
		return 0, ErrTooLate
	}
	if math.IsNaN(multiplier) || multiplier < e.Config.MinCrash {
		return 0, ErrTooLow
	}
	capped := math.Min(multiplier, e.Config.MaxCrash)
	e.rigged, e.hasRig = capped, true
	e.log.Info("next crash rigged", zap.Float64("multiplier", capped))
	return capped, nil
}

var actionOutcomes = []struct {
	err   error
	label string
}{
	{ErrRateLimited, "rate_limited"},
	{ErrRoundNotWaiting, "not_waiting"},
	{ErrRoundNotRunning, "not_running"},
	{ErrNoBet, "no_bet"},
	{ErrBetTooLow, "too_low"},
	{ErrBetTooHigh, "too_high"},
	{ErrInsufficientFunds, "insufficient_funds"},
	{ErrLedgerUnavailable, "ledger_unavailable"},
}

func countAction(action string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		for _, o := range actionOutcomes {
			if errors.Is(err, o.err) {
				outcome = o.label
				break
			}
		}
	}
	metrics.BetActions.WithLabelValues(action, outcome).Inc()
}
