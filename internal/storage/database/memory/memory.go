package memory

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/tokenrelay/relayd/internal/storage/database"
)

// DB is an in-memory database.DB used by tests and the replay command.
type DB struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

func NewDB() *DB {
	return &DB{data: make(map[string][]byte)}
}

func (m *DB) Read(ctx context.Context, key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, database.ErrDBClosed
	}
	val, ok := m.data[string(key)]
	if !ok {
		return nil, database.ErrKeyNotFound
	}
	valCopy := make([]byte, len(val))
	copy(valCopy, val)
	return valCopy, nil
}

func (m *DB) Write(ctx context.Context, key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return database.ErrDBClosed
	}
	valCopy := make([]byte, len(value))
	copy(valCopy, value)
	m.data[string(key)] = valCopy
	return nil
}

func (m *DB) Delete(ctx context.Context, key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return database.ErrDBClosed
	}
	delete(m.data, string(key))
	return nil
}

func (m *DB) Batch(ctx context.Context, ops []database.BatchOperation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return database.ErrDBClosed
	}
	for _, op := range ops {
		switch op.Type {
		case database.BatchPut:
			valCopy := make([]byte, len(op.Value))
			copy(valCopy, op.Value)
			m.data[string(op.Key)] = valCopy
		case database.BatchDelete:
			delete(m.data, string(op.Key))
		default:
			return database.ErrBatchOperationFailed
		}
	}
	return nil
}

func (m *DB) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

type Iterator struct {
	keys    []string
	values  [][]byte
	pos     int
	started bool
}

func (m *DB) Iterator(ctx context.Context, start, end []byte) (database.Iterator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, database.ErrDBClosed
	}

	it := &Iterator{}
	for k, v := range m.data {
		kb := []byte(k)
		if start != nil && bytes.Compare(kb, start) < 0 {
			continue
		}
		if end != nil && bytes.Compare(kb, end) >= 0 {
			continue
		}
		it.keys = append(it.keys, k)
		valCopy := make([]byte, len(v))
		copy(valCopy, v)
		it.values = append(it.values, valCopy)
	}
	sort.Sort(it)
	return it, nil
}

// sort.Interface over parallel key/value slices
func (it *Iterator) Len() int           { return len(it.keys) }
func (it *Iterator) Less(i, j int) bool { return it.keys[i] < it.keys[j] }
func (it *Iterator) Swap(i, j int) {
	it.keys[i], it.keys[j] = it.keys[j], it.keys[i]
	it.values[i], it.values[j] = it.values[j], it.values[i]
}

func (it *Iterator) Next() bool {
	if !it.started {
		it.started = true
	} else {
		it.pos++
	}
	return it.pos < len(it.keys)
}

func (it *Iterator) Key() []byte {
	return []byte(it.keys[it.pos])
}

func (it *Iterator) Value() []byte {
	return it.values[it.pos]
}

func (it *Iterator) Error() error { return nil }
func (it *Iterator) Close() error { return nil }
