package storage

import (
	"errors"
	"sort"
)

// CacheDB buffers writes on top of a parent database. Reads fall through to
// the parent for keys that were not touched. Nothing reaches the parent until
// Write is called; dropping the cache discards every buffered change. Caches
// may be stacked to give nested requests their own rollback scope.
type CacheDB struct {
	parent Database
	dirty  map[string][]byte // nil value marks a deletion
}

// NewCacheDB wraps parent in a write buffer.
func NewCacheDB(parent Database) *CacheDB {
	return &CacheDB{parent: parent, dirty: make(map[string][]byte)}
}

func (c *CacheDB) Put(key []byte, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	c.dirty[string(key)] = append([]byte{}, value...)
	return nil
}

func (c *CacheDB) Get(key []byte) ([]byte, error) {
	if value, ok := c.dirty[string(key)]; ok {
		if value == nil {
			return nil, ErrNotFound
		}
		return append([]byte(nil), value...), nil
	}
	return c.parent.Get(key)
}

func (c *CacheDB) Delete(key []byte) error {
	c.dirty[string(key)] = nil
	return nil
}

// Dirty reports the number of buffered writes.
func (c *CacheDB) Dirty() int { return len(c.dirty) }

// Write flushes buffered changes to the parent in key order and resets the
// buffer.
func (c *CacheDB) Write() error {
	keys := make([]string, 0, len(c.dirty))
	for k := range c.dirty {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		value := c.dirty[k]
		var err error
		if value == nil {
			err = c.parent.Delete([]byte(k))
		} else {
			err = c.parent.Put([]byte(k), value)
		}
		if err != nil {
			return err
		}
	}
	c.dirty = make(map[string][]byte)
	return nil
}

// Discard drops every buffered change.
func (c *CacheDB) Discard() { c.dirty = make(map[string][]byte) }

// Close does not close the parent.
func (c *CacheDB) Close() {}

// IsNotFound reports whether err signals a missing key.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
