package storage

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/c360studio/casegen/llm"
	"github.com/c360studio/casegen/workflow"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memEntry struct {
	key   string
	value []byte
	rev   uint64
}

func (e *memEntry) Bucket() string                  { return "test" }
func (e *memEntry) Key() string                     { return e.key }
func (e *memEntry) Value() []byte                   { return e.value }
func (e *memEntry) Revision() uint64                { return e.rev }
func (e *memEntry) Created() time.Time              { return time.Time{} }
func (e *memEntry) Delta() uint64                   { return 0 }
func (e *memEntry) Operation() jetstream.KeyValueOp { return jetstream.KeyValuePut }

// memBucket is an in-memory bucket with revision checking.
type memBucket struct {
	mu      sync.Mutex
	entries map[string]*memEntry
	seq     uint64

	// beforeUpdate runs once before the next Update, to simulate a
	// concurrent writer.
	beforeUpdate func()
	failGet      error
}

func newMemBucket() *memBucket {
	return &memBucket{entries: make(map[string]*memEntry)}
}

func (b *memBucket) Get(_ context.Context, key string) (jetstream.KeyValueEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failGet != nil {
		return nil, b.failGet
	}
	e, ok := b.entries[key]
	if !ok {
		return nil, jetstream.ErrKeyNotFound
	}
	return e, nil
}

func (b *memBucket) Put(_ context.Context, key string, value []byte) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.put(key, value), nil
}

func (b *memBucket) put(key string, value []byte) uint64 {
	b.seq++
	b.entries[key] = &memEntry{key: key, value: append([]byte(nil), value...), rev: b.seq}
	return b.seq
}

func (b *memBucket) Update(_ context.Context, key string, value []byte, revision uint64) (uint64, error) {
	if hook := b.beforeUpdate; hook != nil {
		b.beforeUpdate = nil
		hook()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	var current uint64
	if e, ok := b.entries[key]; ok {
		current = e.rev
	}
	if current != revision {
		return 0, jetstream.ErrKeyExists
	}
	return b.put(key, value), nil
}

func TestKVStore(t *testing.T) {
	storeContract(t, func(t *testing.T) Store { return newKVStore(newMemBucket()) })
}

func TestKVStore_RetriesOnConcurrentWrite(t *testing.T) {
	ctx := context.Background()
	b := newMemBucket()
	s := newKVStore(b)
	other := newKVStore(b)

	require.NoError(t, s.Commit(ctx, []workflow.Requirement{requirement("REQ-001")}, nil))

	b.beforeUpdate = func() {
		require.NoError(t, other.Commit(ctx, []workflow.Requirement{requirement("REQ-002")}, nil))
	}
	require.NoError(t, s.Commit(ctx, []workflow.Requirement{requirement("REQ-003")}, nil))

	reqs, err := s.Requirements(ctx)
	require.NoError(t, err)
	ids := make([]string, len(reqs))
	for i, r := range reqs {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"REQ-001", "REQ-002", "REQ-003"}, ids, "neither write is lost")
}

func TestKVStore_ConcurrentConflictSurfaces(t *testing.T) {
	ctx := context.Background()
	b := newMemBucket()
	s := newKVStore(b)
	other := newKVStore(b)

	// The racing writer commits the same id, so the retry sees a conflict.
	b.beforeUpdate = func() {
		require.NoError(t, other.Commit(ctx, []workflow.Requirement{requirement("REQ-001")}, nil))
	}
	err := s.Commit(ctx, []workflow.Requirement{requirement("REQ-001")}, nil)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestKVStore_GetError(t *testing.T) {
	b := newMemBucket()
	b.failGet = errors.New("nats: timeout")

	_, err := newKVStore(b).TestCases(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get workspace")
}

func TestKVStore_RecordCall(t *testing.T) {
	b := newMemBucket()
	s := newKVStore(b)

	require.NoError(t, s.RecordCall(context.Background(), &llm.CallRecord{RequestID: "req-1", Intent: "heal-test-case"}))

	entry, err := b.Get(context.Background(), "calls.req-1")
	require.NoError(t, err)
	var got llm.CallRecord
	require.NoError(t, json.Unmarshal(entry.Value(), &got))
	assert.Equal(t, "heal-test-case", got.Intent)

	var _ llm.CallRecorder = s
	var _ Store = s
}
