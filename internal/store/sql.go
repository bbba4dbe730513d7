package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SQLStore is a Backend over the best_scores table.
type SQLStore struct {
	db *sql.DB

	loadQ   string
	upsertQ string
	clearQ  string
}

// NewSQLStore wraps an open, migrated database. The store owns db and
// closes it on Close.
func NewSQLStore(db *sql.DB, d Dialect) *SQLStore {
	return &SQLStore{
		db:      db,
		loadQ:   d.Rebind(`SELECT attempts FROM best_scores WHERE score_key = ?`),
		upsertQ: d.Rebind(d.UpsertBestScore()),
		clearQ:  d.Rebind(`DELETE FROM best_scores WHERE score_key = ?`),
	}
}

func (s *SQLStore) Load(ctx context.Context, key string) (int, bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.loadQ, key).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

// SaveIfLower runs a single conditional upsert; the affected row count
// tells whether the value changed.
func (s *SQLStore) SaveIfLower(ctx context.Context, key string, attempts int) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.upsertQ, key, attempts)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLStore) Clear(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, s.clearQ, key)
	return err
}

func (s *SQLStore) Close() error { return s.db.Close() }

// Ping checks the connection; used by the health endpoint.
func (s *SQLStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// OpenSQL opens dsn with d, applies connection settings and migrations.
func OpenSQL(ctx context.Context, d Dialect, dsn string) (*SQLStore, error) {
	db, err := sql.Open(d.DriverName(), d.DSN(dsn))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.Name(), err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", d.Name(), err)
	}
	if err := d.Configure(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := Migrate(ctx, db, d); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewSQLStore(db, d), nil
}
