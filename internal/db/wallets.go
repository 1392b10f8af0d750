package db

import (
	"context"
	"fmt"

	"crashround/internal/economy"

	"github.com/shopspring/decimal"
)

// WalletRepo is a Postgres-backed economy.Ledger. A participant's row is
// created with the opening balance on first touch.
type WalletRepo struct {
	db      *DB
	opening decimal.Decimal
}

func (d *DB) Wallets(openingBalance float64) *WalletRepo {
	return &WalletRepo{db: d, opening: decimal.NewFromFloat(openingBalance)}
}

func (r *WalletRepo) ensure(ctx context.Context, participantID string) error {
	_, err := r.db.conn.ExecContext(ctx, `
		INSERT INTO wallets (participant_id, balance) VALUES ($1, $2)
		ON CONFLICT (participant_id) DO NOTHING
	`, participantID, r.opening.String())
	if err != nil {
		return fmt.Errorf("opening wallet: %w", err)
	}
	return nil
}

func (r *WalletRepo) Balance(ctx context.Context, participantID string) (decimal.Decimal, error) {
	if err := r.ensure(ctx, participantID); err != nil {
		return decimal.Zero, err
	}
	var raw string
	err := r.db.conn.QueryRowContext(ctx, `
		SELECT balance FROM wallets WHERE participant_id = $1
	`, participantID).Scan(&raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("getting balance: %w", err)
	}
	bal, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing balance %q: %w", raw, err)
	}
	return bal, nil
}

// Withdraw debits amount only when the balance covers it, in a single
// conditional update.
func (r *WalletRepo) Withdraw(ctx context.Context, participantID string, amount decimal.Decimal) error {
	if err := r.ensure(ctx, participantID); err != nil {
		return err
	}
	res, err := r.db.conn.ExecContext(ctx, `
		UPDATE wallets SET balance = balance - $2, updated_at = now()
		WHERE participant_id = $1 AND balance >= $2
	`, participantID, amount.String())
	if err != nil {
		return fmt.Errorf("withdrawing: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("withdrawing: %w", err)
	}
	if n == 0 {
		return economy.ErrInsufficientFunds
	}
	return nil
}

func (r *WalletRepo) Deposit(ctx context.Context, participantID string, amount decimal.Decimal) error {
	_, err := r.db.conn.ExecContext(ctx, `
		INSERT INTO wallets (participant_id, balance) VALUES ($1, $2::numeric + $3::numeric)
		ON CONFLICT (participant_id) DO UPDATE SET balance = wallets.balance + $3::numeric, updated_at = now()
	`, participantID, r.opening.String(), amount.String())
	if err != nil {
		return fmt.Errorf("depositing: %w", err)
	}
	return nil
}
