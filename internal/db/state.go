package db

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strings"
	"time"

	"github.com/hpungsan/miniwriter/internal/errors"
)

// ErrReadOnly is returned when a write is attempted inside View.
var ErrReadOnly = stderrors.New("write attempted in read-only transaction")

// Tx reads and writes local state inside one transaction.
type Tx interface {
	// Get returns the value under key; ok is false when the key is absent.
	Get(key string) (value []byte, ok bool, err error)
	Put(key string, value []byte) error
	Delete(key string) error
	// Keys returns all keys starting with prefix, sorted.
	Keys(prefix string) ([]string, error)
}

// State is a transactional key/value store for process-local client state.
// Implementations: SQLiteState, BoltState.
type State interface {
	View(ctx context.Context, fn func(Tx) error) error
	Update(ctx context.Context, fn func(Tx) error) error
	Close() error
}

// SQLiteState implements State on the local_state table.
type SQLiteState struct {
	db *sql.DB
}

// NewSQLiteState wraps an initialized database (see Init).
func NewSQLiteState(db *sql.DB) *SQLiteState {
	return &SQLiteState{db: db}
}

// DB exposes the underlying handle.
func (s *SQLiteState) DB() *sql.DB {
	return s.db
}

// View runs fn in a read-only transaction.
func (s *SQLiteState) View(ctx context.Context, fn func(Tx) error) error {
	return s.run(ctx, true, fn)
}

// Update runs fn in a read-write transaction, committing if fn returns nil.
func (s *SQLiteState) Update(ctx context.Context, fn func(Tx) error) error {
	return s.run(ctx, false, fn)
}

// Close closes the database.
func (s *SQLiteState) Close() error {
	return s.db.Close()
}

func (s *SQLiteState) run(ctx context.Context, readOnly bool, fn func(Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	if err := fn(&sqliteTx{ctx: ctx, tx: tx, readOnly: readOnly}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if readOnly {
		return tx.Rollback()
	}
	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

type sqliteTx struct {
	ctx      context.Context
	tx       *sql.Tx
	readOnly bool
}

func (t *sqliteTx) Get(key string) ([]byte, bool, error) {
	var value []byte
	err := t.tx.QueryRowContext(t.ctx, `SELECT value FROM local_state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.NewInternal(err)
	}
	return value, true, nil
}

func (t *sqliteTx) Put(key string, value []byte) error {
	if t.readOnly {
		return ErrReadOnly
	}
	query := `
		INSERT INTO local_state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := t.tx.ExecContext(t.ctx, query, key, value, time.Now().Unix()); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

func (t *sqliteTx) Delete(key string) error {
	if t.readOnly {
		return ErrReadOnly
	}
	if _, err := t.tx.ExecContext(t.ctx, `DELETE FROM local_state WHERE key = ?`, key); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

func (t *sqliteTx) Keys(prefix string) ([]string, error) {
	// LIKE would treat '_' and '%' in routes as wildcards; filter on substr instead.
	rows, err := t.tx.QueryContext(t.ctx,
		`SELECT key FROM local_state WHERE substr(key, 1, ?) = ? ORDER BY key`,
		len(prefix), prefix)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, errors.NewInternal(err)
		}
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return keys, nil
}
