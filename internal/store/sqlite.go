package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite records matches into an embedded database file
type SQLite struct {
	conn *sql.DB
}

// OpenSQLite opens (or creates) the database and migrates it
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// single writer; also keeps :memory: on one connection
	conn.SetMaxOpenConns(1)

	if _, err := conn.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, err
	}
	if err := runMigrations(ctx, conn, "sqlite3", "migrations/sqlite"); err != nil {
		conn.Close()
		return nil, err
	}
	return &SQLite{conn: conn}, nil
}

// Record stores one finished match with its players
func (s *SQLite) Record(ctx context.Context, rec MatchRecord) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO matches (session_id, name, mode, result, reason, ticks, started_at, ended_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.Name, rec.Mode, rec.Result, rec.Reason, int64(rec.Ticks),
		rec.StartedAt.UTC().Format(time.RFC3339Nano), rec.EndedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert match: %w", err)
	}
	matchID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO match_players (match_id, player_id, client_id, kills, alive, winner) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare players: %w", err)
	}
	defer stmt.Close()
	for _, p := range rec.Players {
		if _, err := stmt.ExecContext(ctx, matchID, int64(p.PlayerID), p.ClientID, p.Kills, p.Alive, p.Winner); err != nil {
			return fmt.Errorf("insert player %d: %w", p.PlayerID, err)
		}
	}
	return tx.Commit()
}

// Recent returns the latest matches, newest first
func (s *SQLite) Recent(ctx context.Context, limit int) ([]MatchRecord, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, session_id, name, mode, result, reason, ticks, started_at, ended_at
		 FROM matches ORDER BY ended_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		out []MatchRecord
		ids []int64
	)
	for rows.Next() {
		var (
			id             int64
			rec            MatchRecord
			ticks          int64
			started, ended string
		)
		if err := rows.Scan(&id, &rec.SessionID, &rec.Name, &rec.Mode, &rec.Result, &rec.Reason, &ticks, &started, &ended); err != nil {
			return nil, err
		}
		rec.Ticks = uint64(ticks)
		rec.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		rec.EndedAt, _ = time.Parse(time.RFC3339Nano, ended)
		out = append(out, rec)
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i, id := range ids {
		players, err := s.players(ctx, id)
		if err != nil {
			return nil, err
		}
		out[i].Players = players
	}
	return out, nil
}

func (s *SQLite) players(ctx context.Context, matchID int64) ([]PlayerResult, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT player_id, client_id, kills, alive, winner FROM match_players WHERE match_id = ? ORDER BY player_id`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PlayerResult
	for rows.Next() {
		var (
			p   PlayerResult
			pid int64
		)
		if err := rows.Scan(&pid, &p.ClientID, &p.Kills, &p.Alive, &p.Winner); err != nil {
			return nil, err
		}
		p.PlayerID = uint32(pid)
		out = append(out, p)
	}
	return out, rows.Err()
}

// Close closes the database
func (s *SQLite) Close() error {
	return s.conn.Close()
}
