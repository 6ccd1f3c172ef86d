package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/c360studio/casegen/llm"
	"github.com/c360studio/casegen/workflow"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS requirements (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL,
	module TEXT NOT NULL DEFAULT '',
	source TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS test_cases (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	requirement_id TEXT NOT NULL,
	data TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS test_cases_requirement ON test_cases(requirement_id);

CREATE TABLE IF NOT EXISTS calls (
	request_id TEXT PRIMARY KEY,
	intent TEXT,
	capability TEXT,
	provider TEXT,
	model TEXT,
	prompt_tokens INTEGER,
	completion_tokens INTEGER,
	total_tokens INTEGER,
	duration_ms INTEGER,
	retries INTEGER,
	error TEXT,
	started_at INTEGER
);
`

// SQLiteStore keeps the workspace in a local SQLite file. Commits run in a
// single transaction.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// SQLiteOption configures a SQLiteStore.
type SQLiteOption func(*SQLiteStore)

// WithSQLiteLogger sets the logger.
func WithSQLiteLogger(logger *slog.Logger) SQLiteOption {
	return func(s *SQLiteStore) {
		s.logger = logger
	}
}

// OpenSQLite opens or creates the database at path. ":memory:" opens a
// private in-memory database.
func OpenSQLite(path string, opts ...SQLiteOption) (*SQLiteStore, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(10000)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection serializes writers and keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Commit implements Store.
func (s *SQLiteStore) Commit(ctx context.Context, reqs []workflow.Requirement, cases []workflow.TestCase) error {
	if err := validateBatch(reqs, cases); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, r := range reqs {
			if exists, err := rowExists(ctx, tx, "requirements", r.ID); err != nil {
				return err
			} else if exists {
				return fmt.Errorf("requirement %q: %w", r.ID, ErrConflict)
			}
		}
		for _, tc := range cases {
			if exists, err := rowExists(ctx, tx, "test_cases", tc.ID); err != nil {
				return err
			} else if exists {
				return fmt.Errorf("test case %q: %w", tc.ID, ErrConflict)
			}
		}
		return s.insertAll(ctx, tx, reqs, cases)
	})
}

// Replace implements Store.
func (s *SQLiteStore) Replace(ctx context.Context, reqs []workflow.Requirement, cases []workflow.TestCase) error {
	if err := validateBatch(reqs, cases); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM test_cases`); err != nil {
			return fmt.Errorf("clear test cases: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM requirements`); err != nil {
			return fmt.Errorf("clear requirements: %w", err)
		}
		return s.insertAll(ctx, tx, reqs, cases)
	})
}

func (s *SQLiteStore) insertAll(ctx context.Context, tx *sql.Tx, reqs []workflow.Requirement, cases []workflow.TestCase) error {
	for _, r := range reqs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO requirements (id, description, module, source) VALUES (?, ?, ?, ?)`,
			r.ID, r.Description, r.Module, string(r.Source))
		if err != nil {
			return fmt.Errorf("insert requirement %q: %w", r.ID, err)
		}
	}
	for _, tc := range cases {
		data, err := json.Marshal(tc)
		if err != nil {
			return fmt.Errorf("marshal test case %q: %w", tc.ID, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO test_cases (id, requirement_id, data, updated_at) VALUES (?, ?, ?, ?)`,
			tc.ID, tc.RequirementID, string(data), s.now().UnixMilli())
		if err != nil {
			return fmt.Errorf("insert test case %q: %w", tc.ID, err)
		}
	}
	return nil
}

// Requirements implements Store.
func (s *SQLiteStore) Requirements(ctx context.Context) ([]workflow.Requirement, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, description, module, source FROM requirements ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query requirements: %w", err)
	}
	defer rows.Close()

	reqs := []workflow.Requirement{}
	for rows.Next() {
		var r workflow.Requirement
		var src string
		if err := rows.Scan(&r.ID, &r.Description, &r.Module, &src); err != nil {
			return nil, fmt.Errorf("scan requirement: %w", err)
		}
		r.Source = workflow.Source(src)
		reqs = append(reqs, r)
	}
	return reqs, rows.Err()
}

// TestCases implements Store.
func (s *SQLiteStore) TestCases(ctx context.Context) ([]workflow.TestCase, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM test_cases ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query test cases: %w", err)
	}
	defer rows.Close()

	cases := []workflow.TestCase{}
	for rows.Next() {
		tc, err := scanTestCase(rows)
		if err != nil {
			return nil, err
		}
		cases = append(cases, tc)
	}
	return cases, rows.Err()
}

// TestCase implements Store.
func (s *SQLiteStore) TestCase(ctx context.Context, id string) (*workflow.TestCase, error) {
	tc, err := getTestCase(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	return &tc, nil
}

// PatchTestCase implements Store.
func (s *SQLiteStore) PatchTestCase(ctx context.Context, id string, patch workflow.TestCasePatch) (*workflow.TestCase, error) {
	var result workflow.TestCase
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		tc, err := getTestCase(ctx, tx, id)
		if err != nil {
			return err
		}
		updated, err := patched(tc, patch)
		if err != nil {
			return err
		}
		if err := s.updateTestCase(ctx, tx, updated); err != nil {
			return err
		}
		result = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Patched test case", "id", id, "fields", patch.Fields())
	return &result, nil
}

// BulkUpdate implements Store.
func (s *SQLiteStore) BulkUpdate(ctx context.Context, ids []string, update workflow.BulkUpdate) ([]workflow.TestCase, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}
	var result []workflow.TestCase
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		current := make([]workflow.TestCase, 0, len(ids))
		for _, id := range ids {
			tc, err := getTestCase(ctx, tx, id)
			if err != nil {
				return err
			}
			current = append(current, tc)
		}
		result = selectCases(workflow.ApplyBulkUpdate(current, ids, update), ids)
		for _, tc := range result {
			if err := s.updateTestCase(ctx, tx, tc); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteTestCase implements Store.
func (s *SQLiteStore) DeleteTestCase(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM test_cases WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete test case: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("test case %q: %w", id, ErrNotFound)
	}
	return nil
}

// RecordCall implements llm.CallRecorder.
func (s *SQLiteStore) RecordCall(ctx context.Context, r *llm.CallRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO calls (request_id, intent, capability, provider, model,
			prompt_tokens, completion_tokens, total_tokens, duration_ms, retries, error, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RequestID, r.Intent, r.Capability, r.Provider, r.Model,
		r.Usage.PromptTokens, r.Usage.CompletionTokens, r.Usage.TotalTokens,
		r.DurationMs, r.Retries, r.Error, r.StartedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("record call: %w", err)
	}
	return nil
}

// CallUsage sums token usage per intent over the call log.
func (s *SQLiteStore) CallUsage(ctx context.Context) (map[string]llm.TokenUsage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT intent, SUM(prompt_tokens), SUM(completion_tokens), SUM(total_tokens)
		FROM calls GROUP BY intent`)
	if err != nil {
		return nil, fmt.Errorf("query call usage: %w", err)
	}
	defer rows.Close()

	usage := make(map[string]llm.TokenUsage)
	for rows.Next() {
		var intent string
		var u llm.TokenUsage
		if err := rows.Scan(&intent, &u.PromptTokens, &u.CompletionTokens, &u.TotalTokens); err != nil {
			return nil, fmt.Errorf("scan call usage: %w", err)
		}
		usage[intent] = u
	}
	return usage, rows.Err()
}

func (s *SQLiteStore) updateTestCase(ctx context.Context, tx *sql.Tx, tc workflow.TestCase) error {
	data, err := json.Marshal(tc)
	if err != nil {
		return fmt.Errorf("marshal test case %q: %w", tc.ID, err)
	}
	_, err = tx.ExecContext(ctx, `UPDATE test_cases SET data = ?, updated_at = ? WHERE id = ?`,
		string(data), s.now().UnixMilli(), tc.ID)
	if err != nil {
		return fmt.Errorf("update test case %q: %w", tc.ID, err)
	}
	return nil
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func getTestCase(ctx context.Context, q querier, id string) (workflow.TestCase, error) {
	tc, err := scanTestCase(q.QueryRowContext(ctx, `SELECT data FROM test_cases WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return tc, fmt.Errorf("test case %q: %w", id, ErrNotFound)
	}
	return tc, err
}

func scanTestCase(row scanner) (workflow.TestCase, error) {
	var tc workflow.TestCase
	var data string
	if err := row.Scan(&data); err != nil {
		return tc, err
	}
	if err := json.NewDecoder(strings.NewReader(data)).Decode(&tc); err != nil {
		return tc, fmt.Errorf("decode test case: %w", err)
	}
	return tc, nil
}

func rowExists(ctx context.Context, q querier, table, id string) (bool, error) {
	var n int
	// table is one of two constants, never user input.
	err := q.QueryRowContext(ctx, `SELECT COUNT(1) FROM `+table+` WHERE id = ?`, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check %s id: %w", table, err)
	}
	return n > 0, nil
}
