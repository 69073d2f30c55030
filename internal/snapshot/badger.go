package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

const badgerKeyPrefix = "option:"

// Badger is a Store persisted with BadgerDB.
type Badger struct {
	db *badger.DB
}

// OpenBadger opens (creating if needed) a BadgerDB at path. An empty path
// opens an in-memory database, which is useful for tests.
func OpenBadger(path string) (*Badger, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil // Suppress BadgerDB logs

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for snapshots: %w", err)
	}

	return &Badger{db: db}, nil
}

func badgerKey(name string) []byte {
	return []byte(badgerKeyPrefix + name)
}

func (b *Badger) Get(_ context.Context, name string) ([]byte, bool, error) {
	var value []byte

	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(name))
		if err != nil {
			return err
		}

		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get option %s: %w", name, err)
	}

	return value, true, nil
}

func (b *Badger) Set(_ context.Context, name string, value []byte) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(name), value)
	})
	if err != nil {
		return fmt.Errorf("set option %s: %w", name, err)
	}

	return nil
}

func (b *Badger) Add(_ context.Context, name string, value []byte) (bool, error) {
	added := false

	err := b.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(badgerKey(name))
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		added = true
		return txn.Set(badgerKey(name), value)
	})
	if err != nil {
		return false, fmt.Errorf("add option %s: %w", name, err)
	}

	return added, nil
}

func (b *Badger) Delete(_ context.Context, name string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(badgerKey(name))
	})
	if err != nil {
		return fmt.Errorf("delete option %s: %w", name, err)
	}

	return nil
}

// Close releases the database. Closing twice is not an error.
func (b *Badger) Close() error {
	if b.db.IsClosed() {
		return nil
	}
	return b.db.Close()
}
