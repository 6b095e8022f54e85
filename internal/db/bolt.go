package db

import (
	"bytes"
	"context"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/hpungsan/miniwriter/internal/errors"
)

// BoltFile is the bbolt file name inside the base directory.
const BoltFile = "miniwriter.bolt"

var stateBucket = []byte("local_state")

// BoltState implements State on a single bbolt bucket.
type BoltState struct {
	db *bolt.DB
}

// OpenBolt opens (or creates) the bbolt file at path.
func OpenBolt(path string) (*BoltState, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(stateBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}
	return &BoltState{db: db}, nil
}

// View runs fn in a read-only transaction.
func (s *BoltState) View(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(tx *bolt.Tx) error {
		return fn(&boltTx{b: tx.Bucket(stateBucket), readOnly: true})
	})
}

// Update runs fn in a read-write transaction.
func (s *BoltState) Update(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return fn(&boltTx{b: tx.Bucket(stateBucket)})
	})
}

// Close closes the bolt file.
func (s *BoltState) Close() error {
	return s.db.Close()
}

type boltTx struct {
	b        *bolt.Bucket
	readOnly bool
}

func (t *boltTx) Get(key string) ([]byte, bool, error) {
	v := t.b.Get([]byte(key))
	if v == nil {
		return nil, false, nil
	}
	// bbolt values are only valid for the life of the transaction
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (t *boltTx) Put(key string, value []byte) error {
	if t.readOnly {
		return ErrReadOnly
	}
	if err := t.b.Put([]byte(key), value); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

func (t *boltTx) Delete(key string) error {
	if t.readOnly {
		return ErrReadOnly
	}
	if err := t.b.Delete([]byte(key)); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

func (t *boltTx) Keys(prefix string) ([]string, error) {
	var keys []string
	p := []byte(prefix)
	c := t.b.Cursor()
	for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
		keys = append(keys, string(k))
	}
	return keys, nil
}
