package economy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crashround/internal/metrics"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUnavailable       = errors.New("ledger unavailable")
)

// Ledger moves currency in and out of participant balances. Withdraw returns
// ErrInsufficientFunds when the balance cannot cover amount.
type Ledger interface {
	Balance(ctx context.Context, participantID string) (decimal.Decimal, error)
	Withdraw(ctx context.Context, participantID string, amount decimal.Decimal) error
	Deposit(ctx context.Context, participantID string, amount decimal.Decimal) error
}

// Gateway wraps a Ledger with an enable switch and bounded calls. When
// disabled every withdrawal succeeds and deposits are dropped.
type Gateway struct {
	enabled bool
	ledger  Ledger
	timeout time.Duration
	log     *zap.Logger
}

func NewGateway(enabled bool, ledger Ledger, timeout time.Duration, log *zap.Logger) *Gateway {
	if enabled && ledger == nil {
		log.Warn("economy enabled but no ledger configured, running with economy disabled")
		enabled = false
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Gateway{
		enabled: enabled,
		ledger:  ledger,
		timeout: timeout,
		log:     log,
	}
}

// Disabled returns a gateway that never touches a ledger.
func Disabled() *Gateway {
	return &Gateway{log: zap.NewNop(), timeout: time.Second}
}

func (g *Gateway) Enabled() bool {
	return g.enabled
}

// Withdraw takes amount from the participant. Ledger faults are logged and
// surface as ErrUnavailable; they are never retried.
func (g *Gateway) Withdraw(participantID string, amount float64) error {
	if !g.enabled {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()

	err := g.ledger.Withdraw(ctx, participantID, decimal.NewFromFloat(amount))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrInsufficientFunds):
		return ErrInsufficientFunds
	default:
		metrics.LedgerFailures.WithLabelValues("withdraw").Inc()
		g.log.Error("withdraw failed",
			zap.String("participant", participantID),
			zap.Float64("amount", amount),
			zap.Error(err))
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}

// Deposit is best effort. A failed deposit is logged and the funds are not
// queued for retry.
func (g *Gateway) Deposit(participantID string, amount float64) {
	if !g.enabled || amount <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()

	if err := g.ledger.Deposit(ctx, participantID, decimal.NewFromFloat(amount)); err != nil {
		metrics.LedgerFailures.WithLabelValues("deposit").Inc()
		g.log.Error("deposit failed",
			zap.String("participant", participantID),
			zap.Float64("amount", amount),
			zap.Error(err))
	}
}

// Balance reports the participant's balance, or zero when disabled.
func (g *Gateway) Balance(participantID string) (float64, error) {
	if !g.enabled {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()

	bal, err := g.ledger.Balance(ctx, participantID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return bal.InexactFloat64(), nil
}
