package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"crashround/internal/stats"
)

// StatsRepo persists the settlement ledger in player_stats and server_stats.
type StatsRepo struct {
	db *DB
}

func (d *DB) Stats() *StatsRepo {
	return &StatsRepo{db: d}
}

func (r *StatsRepo) Load(ctx context.Context) (stats.Snapshot, error) {
	snap := stats.Snapshot{Players: make(map[string]stats.Record)}

	rows, err := r.db.conn.QueryContext(ctx, `
		SELECT participant_id, wins, losses, total_games, net, profit, loss, total_bet, total_won
		FROM player_stats
	`)
	if err != nil {
		return snap, fmt.Errorf("querying player stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var rec stats.Record
		if err := rows.Scan(&id, &rec.Wins, &rec.Losses, &rec.TotalGames,
			&rec.Net, &rec.Profit, &rec.Loss, &rec.TotalBet, &rec.TotalWon); err != nil {
			return snap, fmt.Errorf("scanning player stats: %w", err)
		}
		snap.Players[id] = rec
	}
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("iterating player stats: %w", err)
	}

	s := &snap.Server
	err = r.db.conn.QueryRowContext(ctx, `
		SELECT wins, losses, total_games, net, profit, loss, total_bet, total_won
		FROM server_stats WHERE id = 1
	`).Scan(&s.Wins, &s.Losses, &s.TotalGames, &s.Net, &s.Profit, &s.Loss, &s.TotalBet, &s.TotalWon)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return snap, fmt.Errorf("querying server stats: %w", err)
	}
	return snap, nil
}

// Save writes the participant row and the server totals in one transaction.
func (r *StatsRepo) Save(ctx context.Context, participantID string, player, server stats.Record) error {
	tx, err := r.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO player_stats (participant_id, wins, losses, total_games, net, profit, loss, total_bet, total_won)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (participant_id) DO UPDATE SET
			wins = $2, losses = $3, total_games = $4, net = $5, profit = $6,
			loss = $7, total_bet = $8, total_won = $9, updated_at = now()
	`, participantID, player.Wins, player.Losses, player.TotalGames,
		player.Net, player.Profit, player.Loss, player.TotalBet, player.TotalWon)
	if err != nil {
		return fmt.Errorf("upserting player stats: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO server_stats (id, wins, losses, total_games, net, profit, loss, total_bet, total_won)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			wins = $1, losses = $2, total_games = $3, net = $4, profit = $5,
			loss = $6, total_bet = $7, total_won = $8
	`, server.Wins, server.Losses, server.TotalGames,
		server.Net, server.Profit, server.Loss, server.TotalBet, server.TotalWon)
	if err != nil {
		return fmt.Errorf("upserting server stats: %w", err)
	}
	return tx.Commit()
}
