// Package badgercache stores client chat state in BadgerDB.
package badgercache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/vovakirdan/pairchat/internal/chatsync"
)

const keyPrefix = "chatsync:state:"

// Cache implements chatsync.Cache on a Badger database.
type Cache struct {
	db *badger.DB
}

// Open opens (or creates) the cache at dir. An empty dir keeps everything
// in memory.
func Open(dir string) (*Cache, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return New(db), nil
}

// New wraps an open database.
func New(db *badger.DB) *Cache {
	return &Cache{db: db}
}

// Close closes the database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Load reads the state stored for selfID.
func (c *Cache) Load(_ context.Context, selfID string) (chatsync.State, bool, error) {
	var state chatsync.State
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + selfID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &state)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return chatsync.State{}, false, nil
	}
	if err != nil {
		return chatsync.State{}, false, fmt.Errorf("load state: %w", err)
	}
	return state, true, nil
}

// Save stores state under its identity.
func (c *Cache) Save(_ context.Context, state chatsync.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+state.SelfID), data)
	})
}

var _ chatsync.Cache = (*Cache)(nil)
