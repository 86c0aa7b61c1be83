package store

import (
	"context"
	"fmt"
	"time"

	"arena-server/internal/config"

	"go.uber.org/zap"
)

// PlayerResult is one player's line in a finished match
type PlayerResult struct {
	PlayerID uint32
	ClientID string
	Kills    int
	Alive    bool
	Winner   bool
}

// MatchRecord is the summary of a finished session
type MatchRecord struct {
	SessionID string
	Name      string
	Mode      string
	Result    string
	Reason    string
	Ticks     uint64
	StartedAt time.Time
	EndedAt   time.Time
	Players   []PlayerResult
}

// Recorder persists finished matches
type Recorder interface {
	Record(ctx context.Context, rec MatchRecord) error
	Recent(ctx context.Context, limit int) ([]MatchRecord, error)
	Close() error
}

// Nop discards every record
type Nop struct{}

func (Nop) Record(context.Context, MatchRecord) error { return nil }

func (Nop) Recent(context.Context, int) ([]MatchRecord, error) { return nil, nil }

func (Nop) Close() error { return nil }

// Open builds the recorder selected by cfg.Driver and applies migrations
func Open(ctx context.Context, cfg config.StoreConfig, log *zap.Logger) (Recorder, error) {
	switch cfg.Driver {
	case "sqlite":
		db, err := OpenSQLite(ctx, cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("sqlite store: %w", err)
		}
		log.Info("match store ready", zap.String("driver", "sqlite"), zap.String("path", cfg.Path))
		return db, nil
	case "postgres":
		db, err := OpenPostgres(ctx, cfg.DSN, cfg.MaxConns)
		if err != nil {
			return nil, fmt.Errorf("postgres store: %w", err)
		}
		log.Info("match store ready", zap.String("driver", "postgres"))
		return db, nil
	case "none", "":
		log.Info("match store disabled")
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
