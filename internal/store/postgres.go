package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

// Postgres records matches into a PostgreSQL database through a pgx pool
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects, verifies the connection and migrates the schema
func OpenPostgres(ctx context.Context, dsn string, maxConns int) (*Postgres, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if maxConns > 0 {
		poolCfg.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()
	if err := runMigrations(ctx, db, "postgres", "migrations/postgres"); err != nil {
		pool.Close()
		return nil, err
	}
	return &Postgres{pool: pool}, nil
}

// Record stores one finished match with its players
func (p *Postgres) Record(ctx context.Context, rec MatchRecord) error {
	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		var matchID int64
		err := tx.QueryRow(ctx,
			`INSERT INTO matches (session_id, name, mode, result, reason, ticks, started_at, ended_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
			rec.SessionID, rec.Name, rec.Mode, rec.Result, rec.Reason, int64(rec.Ticks),
			rec.StartedAt, rec.EndedAt).Scan(&matchID)
		if err != nil {
			return fmt.Errorf("insert match: %w", err)
		}

		batch := &pgx.Batch{}
		for _, pl := range rec.Players {
			batch.Queue(
				`INSERT INTO match_players (match_id, player_id, client_id, kills, alive, winner)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				matchID, int64(pl.PlayerID), pl.ClientID, pl.Kills, pl.Alive, pl.Winner)
		}
		if batch.Len() == 0 {
			return nil
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert players: %w", err)
		}
		return nil
	})
}

// Recent returns the latest matches, newest first
func (p *Postgres) Recent(ctx context.Context, limit int) ([]MatchRecord, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, session_id::text, name, mode, result, reason, ticks, started_at, ended_at
		 FROM matches ORDER BY ended_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		out   []MatchRecord
		index = make(map[int64]int)
		ids   []int64
	)
	for rows.Next() {
		var (
			id    int64
			rec   MatchRecord
			ticks int64
		)
		if err := rows.Scan(&id, &rec.SessionID, &rec.Name, &rec.Mode, &rec.Result, &rec.Reason,
			&ticks, &rec.StartedAt, &rec.EndedAt); err != nil {
			return nil, err
		}
		rec.Ticks = uint64(ticks)
		index[id] = len(out)
		ids = append(ids, id)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}

	prows, err := p.pool.Query(ctx,
		`SELECT match_id, player_id, client_id, kills, alive, winner
		 FROM match_players WHERE match_id = ANY($1) ORDER BY match_id, player_id`, ids)
	if err != nil {
		return nil, err
	}
	defer prows.Close()
	for prows.Next() {
		var (
			matchID, pid int64
			pl           PlayerResult
		)
		if err := prows.Scan(&matchID, &pid, &pl.ClientID, &pl.Kills, &pl.Alive, &pl.Winner); err != nil {
			return nil, err
		}
		pl.PlayerID = uint32(pid)
		i := index[matchID]
		out[i].Players = append(out[i].Players, pl)
	}
	return out, prows.Err()
}

// Close releases the pool
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
