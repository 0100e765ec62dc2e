// Package memory provides an in-memory journal store. Entries are kept in
// their encoded form so readers never share state with the writer.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/xraph/subledger/journal"
)

// compile-time interface check
var _ journal.Store = (*Store)(nil)

type Store struct {
	mu sync.RWMutex

	entries [][]byte
	seqs    map[uint64]struct{}
	ids     map[string]struct{}

	failNext error
	closed   bool
}

func New() *Store {
	return &Store{
		seqs: make(map[uint64]struct{}),
		ids:  make(map[string]struct{}),
	}
}

// FailNext makes the next Append return err without storing anything.
func (s *Store) FailNext(err error) {
	s.mu.Lock()
	s.failNext = err
	s.mu.Unlock()
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) Append(_ context.Context, e *journal.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errClosed
	}
	if err := s.failNext; err != nil {
		s.failNext = nil
		return err
	}
	if _, dup := s.seqs[e.Seq]; dup {
		return fmt.Errorf("%w: seq %d", journal.ErrDuplicateEntry, e.Seq)
	}
	if _, dup := s.ids[e.ID.String()]; dup {
		return fmt.Errorf("%w: id %s", journal.ErrDuplicateEntry, e.ID)
	}

	data, err := journal.Encode(e)
	if err != nil {
		return err
	}

	// Keep entries ordered by seq even if appended out of order.
	pos := len(s.entries)
	for pos > 0 {
		prev, err := journal.Decode(s.entries[pos-1])
		if err != nil {
			return err
		}
		if prev.Seq < e.Seq {
			break
		}
		pos--
	}
	s.entries = append(s.entries, nil)
	copy(s.entries[pos+1:], s.entries[pos:])
	s.entries[pos] = data

	s.seqs[e.Seq] = struct{}{}
	s.ids[e.ID.String()] = struct{}{}
	return nil
}

func (s *Store) Entries(_ context.Context, opts journal.ListOpts) ([]*journal.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, errClosed
	}

	result := make([]*journal.Entry, 0)
	for _, data := range s.entries {
		e, err := journal.Decode(data)
		if err != nil {
			return nil, err
		}
		if !opts.Matches(e) {
			continue
		}
		result = append(result, e)
		if opts.Limit > 0 && len(result) == opts.Limit {
			break
		}
	}
	return result, nil
}

func (s *Store) LastSeq(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var last uint64
	for seq := range s.seqs {
		if seq > last {
			last = seq
		}
	}
	return last, nil
}

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

var errClosed = errors.New("subledger/memory: store closed")
