// db.go
//
// Best-score backend selection.
// Responsibilities:
//   - Map STORE_BACKEND onto a store.Backend (sqlite, postgres, mysql, redis, memory).
//   - Ensure the parent directory exists for file-backed SQLite databases.
//   - Apply embedded migrations for SQL backends (store.OpenSQL).

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/numguess/internal/config"
	"github.com/robalobadob/numguess/internal/httpserver"
	"github.com/robalobadob/numguess/internal/store"
)

// openBackend returns the configured backend and, when it supports one,
// a health pinger.
func openBackend(ctx context.Context, cfg *config.Config) (store.Backend, httpserver.Pinger, error) {
	switch cfg.StoreBackend {
	case "memory":
		log.Warn().Msg("best scores are kept in memory and lost on restart")
		return store.NewMemoryStore(), nil, nil

	case "redis":
		rs, err := store.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("addr", cfg.RedisAddr).Int("db", cfg.RedisDB).Msg("redis store ready")
		return rs, rs, nil
	}

	d, err := store.DialectFor(cfg.StoreBackend)
	if err != nil {
		return nil, nil, err
	}
	if d.Name() == "sqlite" {
		if err := ensureDir(cfg.DatabaseURL); err != nil {
			return nil, nil, err
		}
	}
	ss, err := store.OpenSQL(ctx, d, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Str("dialect", d.Name()).Msg("sql store ready")
	return ss, ss, nil
}

// ensureDir creates the parent directory for ./data/app.db style paths.
func ensureDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return nil
}
