package economy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func TestGateway_DisabledIsTrivial(t *testing.T) {
	g := Disabled()
	if g.Enabled() {
		t.Fatal("Enabled() = true, want false")
	}
	if err := g.Withdraw("alice", 1e12); err != nil {
		t.Errorf("Withdraw() error = %v, want nil", err)
	}
	g.Deposit("alice", 10)
}

func TestGateway_MissingLedgerDegradesToDisabled(t *testing.T) {
	g := NewGateway(true, nil, time.Second, zap.NewNop())
	if g.Enabled() {
		t.Error("Enabled() = true with nil ledger, want false")
	}
	if err := g.Withdraw("alice", 50); err != nil {
		t.Errorf("Withdraw() error = %v, want nil", err)
	}
}

func TestGateway_WithdrawAndDeposit(t *testing.T) {
	ledger := NewMemoryLedger(100)
	g := NewGateway(true, ledger, time.Second, zap.NewNop())

	if err := g.Withdraw("alice", 60); err != nil {
		t.Fatalf("Withdraw(60) error: %v", err)
	}
	if err := g.Withdraw("alice", 60); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("Withdraw(60) again error = %v, want ErrInsufficientFunds", err)
	}

	g.Deposit("alice", 99.5)
	bal, err := g.Balance("alice")
	if err != nil {
		t.Fatalf("Balance() error: %v", err)
	}
	if bal != 139.5 {
		t.Errorf("Balance() = %v, want 139.5", bal)
	}
}

func TestGateway_ExactBalanceCanBeWithdrawn(t *testing.T) {
	g := NewGateway(true, NewMemoryLedger(0.3), time.Second, zap.NewNop())
	if err := g.Withdraw("bob", 0.1); err != nil {
		t.Fatal(err)
	}
	if err := g.Withdraw("bob", 0.2); err != nil {
		t.Errorf("Withdraw(0.2) of remaining 0.2 error = %v, want nil", err)
	}
}

type brokenLedger struct{ deposits int }

func (b *brokenLedger) Balance(context.Context, string) (decimal.Decimal, error) {
	return decimal.Zero, errors.New("connection refused")
}

func (b *brokenLedger) Withdraw(context.Context, string, decimal.Decimal) error {
	return errors.New("connection refused")
}

func (b *brokenLedger) Deposit(context.Context, string, decimal.Decimal) error {
	b.deposits++
	return errors.New("connection refused")
}

func TestGateway_LedgerFaults(t *testing.T) {
	ledger := &brokenLedger{}
	g := NewGateway(true, ledger, time.Second, zap.NewNop())

	err := g.Withdraw("alice", 10)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Withdraw() error = %v, want ErrUnavailable", err)
	}
	if errors.Is(err, ErrInsufficientFunds) {
		t.Error("ledger fault reported as insufficient funds")
	}

	g.Deposit("alice", 10)
	if ledger.deposits != 1 {
		t.Errorf("deposit attempts = %d, want exactly 1 (no retry)", ledger.deposits)
	}
}
