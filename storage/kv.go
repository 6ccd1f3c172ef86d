package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/c360studio/casegen/llm"
	"github.com/c360studio/casegen/workflow"
	"github.com/nats-io/nats.go/jetstream"
)

// DefaultBucket is the KV bucket used when none is configured.
const DefaultBucket = "CASEGEN_WORKSPACE"

const (
	workspaceKey = "workspace"
	callKeyPref  = "calls."
	maxAttempts  = 5
)

// bucket is the subset of jetstream.KeyValue the store uses.
type bucket interface {
	Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error)
	Put(ctx context.Context, key string, value []byte) (uint64, error)
	Update(ctx context.Context, key string, value []byte, revision uint64) (uint64, error)
}

// KVStore keeps the workspace as a single JSON document in a NATS KV
// bucket so several processes can share it. Writes are optimistic: the
// document is re-read and the mutation retried when another writer got in
// first.
type KVStore struct {
	kv     bucket
	logger *slog.Logger
}

// KVOption configures a KVStore.
type KVOption func(*KVStore)

// WithKVLogger sets the logger.
func WithKVLogger(logger *slog.Logger) KVOption {
	return func(s *KVStore) {
		s.logger = logger
	}
}

// NewKVStore opens the named bucket, creating it if it doesn't exist.
func NewKVStore(ctx context.Context, js jetstream.JetStream, bucketName string, opts ...KVOption) (*KVStore, error) {
	if bucketName == "" {
		bucketName = DefaultBucket
	}
	kv, err := getOrCreateBucket(ctx, js, bucketName)
	if err != nil {
		return nil, fmt.Errorf("open workspace bucket: %w", err)
	}
	return newKVStore(kv, opts...), nil
}

func newKVStore(kv bucket, opts ...KVOption) *KVStore {
	s := &KVStore{kv: kv, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func getOrCreateBucket(ctx context.Context, js jetstream.JetStream, name string) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	if !errors.Is(err, jetstream.ErrBucketNotFound) {
		return nil, err
	}
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: "casegen workspace",
		History:     5,
	})
}

// Close is a no-op; the caller owns the NATS connection.
func (s *KVStore) Close() error {
	return nil
}

// load returns the workspace and its revision. A missing key is an empty
// workspace at revision 0.
func (s *KVStore) load(ctx context.Context) (*workspace, uint64, error) {
	entry, err := s.kv.Get(ctx, workspaceKey)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return &workspace{}, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("get workspace: %w", err)
	}
	var w workspace
	if err := json.Unmarshal(entry.Value(), &w); err != nil {
		return nil, 0, fmt.Errorf("unmarshal workspace: %w", err)
	}
	return &w, entry.Revision(), nil
}

// mutate applies fn to the latest workspace and writes it back, retrying
// when the revision moved underneath.
func (s *KVStore) mutate(ctx context.Context, fn func(*workspace) error) error {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		w, rev, err := s.load(ctx)
		if err != nil {
			return err
		}
		if err := fn(w); err != nil {
			return err
		}
		data, err := json.Marshal(w)
		if err != nil {
			return fmt.Errorf("marshal workspace: %w", err)
		}

		_, err = s.kv.Update(ctx, workspaceKey, data, rev)
		if err == nil {
			return nil
		}
		if !errors.Is(err, jetstream.ErrKeyExists) {
			return fmt.Errorf("update workspace: %w", err)
		}
		s.logger.Debug("Workspace revision moved, retrying", "attempt", attempt, "revision", rev)
	}
	return fmt.Errorf("workspace update lost %d races: %w", maxAttempts, ErrConflict)
}

// Commit implements Store.
func (s *KVStore) Commit(ctx context.Context, reqs []workflow.Requirement, cases []workflow.TestCase) error {
	return s.mutate(ctx, func(w *workspace) error {
		return w.commit(reqs, cases)
	})
}

// Replace implements Store.
func (s *KVStore) Replace(ctx context.Context, reqs []workflow.Requirement, cases []workflow.TestCase) error {
	if err := validateBatch(reqs, cases); err != nil {
		return err
	}
	return s.mutate(ctx, func(w *workspace) error {
		w.Requirements = append([]workflow.Requirement{}, reqs...)
		w.TestCases = append([]workflow.TestCase{}, cases...)
		return nil
	})
}

// Requirements implements Store.
func (s *KVStore) Requirements(ctx context.Context) ([]workflow.Requirement, error) {
	w, _, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if w.Requirements == nil {
		return []workflow.Requirement{}, nil
	}
	return w.Requirements, nil
}

// TestCases implements Store.
func (s *KVStore) TestCases(ctx context.Context) ([]workflow.TestCase, error) {
	w, _, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if w.TestCases == nil {
		return []workflow.TestCase{}, nil
	}
	return w.TestCases, nil
}

// TestCase implements Store.
func (s *KVStore) TestCase(ctx context.Context, id string) (*workflow.TestCase, error) {
	w, _, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	i := w.index(id)
	if i < 0 {
		return nil, fmt.Errorf("test case %q: %w", id, ErrNotFound)
	}
	tc := w.TestCases[i]
	return &tc, nil
}

// PatchTestCase implements Store.
func (s *KVStore) PatchTestCase(ctx context.Context, id string, patch workflow.TestCasePatch) (*workflow.TestCase, error) {
	var result *workflow.TestCase
	err := s.mutate(ctx, func(w *workspace) error {
		tc, err := w.patch(id, patch)
		result = tc
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// BulkUpdate implements Store.
func (s *KVStore) BulkUpdate(ctx context.Context, ids []string, update workflow.BulkUpdate) ([]workflow.TestCase, error) {
	var result []workflow.TestCase
	err := s.mutate(ctx, func(w *workspace) error {
		updated, err := w.bulk(ids, update)
		result = updated
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteTestCase implements Store.
func (s *KVStore) DeleteTestCase(ctx context.Context, id string) error {
	return s.mutate(ctx, func(w *workspace) error {
		return w.remove(id)
	})
}

// RecordCall implements llm.CallRecorder. Each call is its own key.
func (s *KVStore) RecordCall(ctx context.Context, r *llm.CallRecord) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal call record: %w", err)
	}
	if _, err := s.kv.Put(ctx, callKeyPref+r.RequestID, data); err != nil {
		return fmt.Errorf("record call: %w", err)
	}
	return nil
}
