package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/subledger/journal"
)

// compile-time interface check
var _ journal.Store = (*Store)(nil)

// Store implements journal.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the journal table and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("subledger/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("subledger/sqlite: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Append(ctx context.Context, e *journal.Entry) error {
	m, err := toEntryModel(e)
	if err != nil {
		return err
	}
	if _, err := s.sdb.NewInsert(m).Exec(ctx); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: seq %d: %v", journal.ErrDuplicateEntry, e.Seq, err)
		}
		return fmt.Errorf("subledger/sqlite: append entry %d: %w", e.Seq, err)
	}
	return nil
}

func (s *Store) Entries(ctx context.Context, opts journal.ListOpts) ([]*journal.Entry, error) {
	var models []entryModel
	q := s.sdb.NewSelect(&models).Where("seq > ?", int64(opts.AfterSeq))

	if opts.Action != "" {
		q = q.Where("action = ?", string(opts.Action))
	}
	if opts.Actor != "" {
		q = q.Where("actor = ?", opts.Actor.String())
	}
	if opts.Provider != "" {
		q = q.Where("provider = ?", opts.Provider.String())
	}
	if opts.Subscriber != "" {
		q = q.Where("subscriber = ?", opts.Subscriber.String())
	}
	if opts.SubscriptionID != 0 {
		q = q.Where("subscription_id = ?", int64(opts.SubscriptionID))
	}
	if opts.TokenID != 0 {
		q = q.Where("token_id = ?", int64(opts.TokenID))
	}
	q = q.OrderExpr("seq ASC")
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("subledger/sqlite: list entries: %w", err)
	}

	result := make([]*journal.Entry, len(models))
	for i := range models {
		e, err := fromEntryModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = e
	}
	return result, nil
}

func (s *Store) LastSeq(ctx context.Context) (uint64, error) {
	var last int64
	err := s.sdb.NewRaw(`SELECT COALESCE(MAX(seq), 0) FROM subledger_journal`).Scan(ctx, &last)
	if err != nil {
		return 0, fmt.Errorf("subledger/sqlite: last seq: %w", err)
	}
	return uint64(last), nil
}
