// Package ledgerstore persists balances, supplies, relay states and the
// event journal on a key-value database. It is the durable half of the
// ledger-store collaborator; writes land atomically via the backend's
// batch operation and are durable once ApplyChanges returns.
package ledgerstore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/tokenrelay/relayd/internal/core/event"
	"github.com/tokenrelay/relayd/internal/core/relay"
	"github.com/tokenrelay/relayd/internal/core/token"
	"github.com/tokenrelay/relayd/internal/storage/database"
)

// DefaultCacheSize is the default balance-record cache capacity.
const DefaultCacheSize = 4096

// Store implements event.Store on top of a database.DB.
type Store struct {
	db database.DB

	// cache holds recently read balance records; entries are refreshed
	// on commit, so it never serves stale values.
	cache *lru.Cache[string, uint64]

	mu          sync.Mutex
	journalNext uint64
}

// Open builds a store over an already opened database.
func Open(ctx context.Context, db database.DB, cacheSize int) (*Store, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, uint64](cacheSize)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db, cache: cache}

	raw, err := db.Read(ctx, journalSeqKey())
	switch {
	case err == nil:
		if len(raw) != 8 {
			return nil, fmt.Errorf("corrupt journal sequence record (%d bytes)", len(raw))
		}
		s.journalNext = binary.BigEndian.Uint64(raw)
	case errors.Is(err, database.ErrKeyNotFound):
		s.journalNext = 0
	default:
		return nil, err
	}

	return s, nil
}

func (s *Store) Balance(ctx context.Context, c token.Currency, a token.Account) (uint64, error) {
	key := balanceKey(c, a)
	if value, ok := s.cache.Get(string(key)); ok {
		return value, nil
	}
	value, err := s.readUint64(ctx, key)
	if err != nil {
		return 0, err
	}
	s.cache.Add(string(key), value)
	return value, nil
}

func (s *Store) Supply(ctx context.Context, c token.Currency) (uint64, error) {
	return s.readUint64(ctx, supplyKey(c))
}

func (s *Store) RelayState(ctx context.Context, c token.Currency) (relay.State, bool, error) {
	raw, err := s.db.Read(ctx, relayStateKey(c))
	if err != nil {
		if errors.Is(err, database.ErrKeyNotFound) {
			return relay.State{}, false, nil
		}
		return relay.State{}, false, err
	}
	state, err := decodeRelayState(raw)
	if err != nil {
		return relay.State{}, false, fmt.Errorf("relay state for %s: %w", c, err)
	}
	return state, true, nil
}

// ApplyChanges writes one invocation's change list as a single batch.
func (s *Store) ApplyChanges(ctx context.Context, changes []event.Change) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ops := make([]database.BatchOperation, 0, len(changes)+1)
	type cacheUpdate struct {
		key   string
		value uint64
	}
	var cacheUpdates []cacheUpdate

	journalNext := s.journalNext
	journalTouched := false

	for _, ch := range changes {
		switch ch.Kind {
		case event.ChangeBalance:
			key := balanceKey(ch.Currency, ch.Account)
			ops = append(ops, database.BatchOperation{
				Type: database.BatchPut, Key: key, Value: encodeUint64(ch.Value),
			})
			cacheUpdates = append(cacheUpdates, cacheUpdate{key: string(key), value: ch.Value})
		case event.ChangeSupply:
			ops = append(ops, database.BatchOperation{
				Type: database.BatchPut, Key: supplyKey(ch.Currency), Value: encodeUint64(ch.Value),
			})
		case event.ChangeRelayState:
			ops = append(ops, database.BatchOperation{
				Type: database.BatchPut, Key: relayStateKey(ch.Currency), Value: encodeRelayState(ch.State),
			})
		case event.ChangeJournal:
			ops = append(ops, database.BatchOperation{
				Type: database.BatchPut, Key: journalKey(journalNext), Value: ch.Journal,
			})
			journalNext++
			journalTouched = true
		default:
			return fmt.Errorf("unknown change kind %d", ch.Kind)
		}
	}
	if journalTouched {
		ops = append(ops, database.BatchOperation{
			Type: database.BatchPut, Key: journalSeqKey(), Value: encodeUint64(journalNext),
		})
	}

	if err := s.db.Batch(ctx, ops); err != nil {
		return err
	}

	s.journalNext = journalNext
	for _, u := range cacheUpdates {
		s.cache.Add(u.key, u.value)
	}
	return nil
}

// JournalLen returns the number of journal entries written so far.
func (s *Store) JournalLen() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.journalNext
}

// JournalEntries reads up to limit raw journal records starting at
// sequence start.
func (s *Store) JournalEntries(ctx context.Context, start uint64, limit int) ([][]byte, error) {
	iter, err := s.db.Iterator(ctx, journalKey(start), journalKey(^uint64(0)))
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out [][]byte
	for iter.Next() {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, iter.Value())
	}
	return out, iter.Error()
}

func (s *Store) readUint64(ctx context.Context, key []byte) (uint64, error) {
	raw, err := s.db.Read(ctx, key)
	if err != nil {
		if errors.Is(err, database.ErrKeyNotFound) {
			return 0, nil // absent records read as zero
		}
		return 0, err
	}
	if len(raw) != 8 {
		return 0, fmt.Errorf("corrupt amount record (%d bytes)", len(raw))
	}
	return binary.BigEndian.Uint64(raw), nil
}

func encodeUint64(v uint64) []byte {
	out := make([]byte, 8)
	binary.BigEndian.PutUint64(out, v)
	return out
}

func encodeRelayState(s relay.State) []byte {
	out := make([]byte, 16)
	binary.BigEndian.PutUint64(out[:8], s.Supply)
	binary.BigEndian.PutUint64(out[8:], s.Balance)
	return out
}

func decodeRelayState(raw []byte) (relay.State, error) {
	if len(raw) != 16 {
		return relay.State{}, fmt.Errorf("corrupt relay state record (%d bytes)", len(raw))
	}
	return relay.State{
		Supply:  binary.BigEndian.Uint64(raw[:8]),
		Balance: binary.BigEndian.Uint64(raw[8:]),
	}, nil
}
