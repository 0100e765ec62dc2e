package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/subledger/journal"
)

const colJournal = "subledger_journal"

// compile-time interface check
var _ journal.Store = (*Store)(nil)

// Store implements journal.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the journal indexes.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.mdb.Collection(colJournal).Indexes().CreateMany(ctx, migrationIndexes())
	if err != nil {
		return fmt.Errorf("subledger/mongo: migrate %s indexes: %w", colJournal, err)
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
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: seq %d: %v", journal.ErrDuplicateEntry, e.Seq, err)
		}
		return fmt.Errorf("subledger/mongo: append entry: %w", err)
	}
	return nil
}

func (s *Store) Entries(ctx context.Context, opts journal.ListOpts) ([]*journal.Entry, error) {
	var models []entryModel
	q := s.mdb.NewFind(&models).
		Filter(entryFilter(opts)).
		Sort(bson.D{{Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("subledger/mongo: list entries: %w", err)
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
	var m entryModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{}).
		Sort(bson.D{{Key: "_id", Value: -1}}).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("subledger/mongo: last seq: %w", err)
	}
	return uint64(m.Seq), nil
}

func entryFilter(opts journal.ListOpts) bson.M {
	filter := bson.M{"_id": bson.M{"$gt": int64(opts.AfterSeq)}}
	if opts.Action != "" {
		filter["action"] = string(opts.Action)
	}
	if opts.Actor != "" {
		filter["actor"] = opts.Actor.String()
	}
	if opts.Provider != "" {
		filter["provider"] = opts.Provider.String()
	}
	if opts.Subscriber != "" {
		filter["subscriber"] = opts.Subscriber.String()
	}
	if opts.SubscriptionID != 0 {
		filter["subscription_id"] = int64(opts.SubscriptionID)
	}
	if opts.TokenID != 0 {
		filter["token_id"] = int64(opts.TokenID)
	}
	return filter
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for the journal collection.
func migrationIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "entry_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "action", Value: 1}, {Key: "_id", Value: 1}}},
		{Keys: bson.D{{Key: "actor", Value: 1}, {Key: "_id", Value: 1}}},
		{Keys: bson.D{{Key: "provider", Value: 1}, {Key: "subscriber", Value: 1}, {Key: "_id", Value: 1}}},
		{Keys: bson.D{{Key: "subscriber", Value: 1}, {Key: "_id", Value: 1}}},
		{Keys: bson.D{{Key: "subscription_id", Value: 1}}, Options: options.Index().SetSparse(true)},
		{Keys: bson.D{{Key: "token_id", Value: 1}}, Options: options.Index().SetSparse(true)},
	}
}
