package economy

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// MemoryLedger is an in-process wallet book. Unknown participants start
// with the configured opening balance.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[string]decimal.Decimal
	opening  decimal.Decimal
}

func NewMemoryLedger(openingBalance float64) *MemoryLedger {
	return &MemoryLedger{
		balances: make(map[string]decimal.Decimal),
		opening:  decimal.NewFromFloat(openingBalance),
	}
}

func (m *MemoryLedger) Balance(_ context.Context, participantID string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balanceLocked(participantID), nil
}

func (m *MemoryLedger) Withdraw(_ context.Context, participantID string, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bal := m.balanceLocked(participantID)
	if bal.LessThan(amount) {
		return ErrInsufficientFunds
	}
	m.balances[participantID] = bal.Sub(amount)
	return nil
}

func (m *MemoryLedger) Deposit(_ context.Context, participantID string, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[participantID] = m.balanceLocked(participantID).Add(amount)
	return nil
}

func (m *MemoryLedger) balanceLocked(participantID string) decimal.Decimal {
	bal, ok := m.balances[participantID]
	if !ok {
		return m.opening
	}
	return bal
}
