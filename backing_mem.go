package strata

import (
	"fmt"
	"slices"
	"sync"
)

type memBacking struct {
	mu      sync.Mutex
	buckets map[string]map[string][]byte
	closed  bool
	writer  bool
}

// newMemBacking returns a transient in-memory backing for tests and
// ephemeral databases. Content ordering doesn't matter here; the engine
// orders everything itself.
func newMemBacking() backing {
	return &memBacking{buckets: make(map[string]map[string][]byte)}
}

func (s *memBacking) beginTx(writable bool) (backingTx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if writable && s.writer {
		return nil, fmt.Errorf("concurrent write transaction")
	}
	if writable {
		s.writer = true
	}

	snap := make(map[string]map[string][]byte, len(s.buckets))
	for name, b := range s.buckets {
		nb := make(map[string][]byte, len(b))
		for k, v := range b {
			nb[k] = v
		}
		snap[name] = nb
	}
	return &memTx{base: s, writable: writable, buckets: snap}, nil
}

func (s *memBacking) compact() (bool, error) {
	return false, nil
}

func (s *memBacking) size() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, b := range s.buckets {
		for k, v := range b {
			n += int64(len(k) + len(v))
		}
	}
	return n
}

func (s *memBacking) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.buckets = nil
	return nil
}

type memTx struct {
	base     *memBacking
	writable bool
	buckets  map[string]map[string][]byte
	closed   bool
}

func (tx *memTx) closeLocked() {
	if tx.closed {
		return
	}
	tx.closed = true
	if tx.writable {
		tx.base.writer = false
	}
}

func (tx *memTx) bucket(name string) backingBucket {
	if tx.closed {
		panic("tx is closed")
	}
	b := tx.buckets[name]
	if b == nil {
		return nil
	}
	return memBucket{tx: tx, items: b}
}

func (tx *memTx) createBucket(name string) (backingBucket, error) {
	if tx.closed {
		panic("tx is closed")
	}
	if !tx.writable {
		return nil, fmt.Errorf("tx not writable")
	}
	b := tx.buckets[name]
	if b == nil {
		b = make(map[string][]byte)
		tx.buckets[name] = b
	}
	return memBucket{tx: tx, items: b}, nil
}

func (tx *memTx) deleteBucket(name string) error {
	if tx.closed {
		panic("tx is closed")
	}
	if !tx.writable {
		return fmt.Errorf("tx not writable")
	}
	if tx.buckets[name] == nil {
		return errBucketNotFound
	}
	delete(tx.buckets, name)
	return nil
}

func (tx *memTx) foreachBucket(fn func(name string, b backingBucket) error) error {
	if tx.closed {
		panic("tx is closed")
	}
	for name, b := range tx.buckets {
		if err := fn(name, memBucket{tx: tx, items: b}); err != nil {
			return err
		}
	}
	return nil
}

func (tx *memTx) commit() error {
	if tx.closed {
		return nil
	}
	if !tx.writable {
		return fmt.Errorf("tx not writable")
	}
	tx.base.mu.Lock()
	defer tx.base.mu.Unlock()
	if tx.base.closed {
		tx.closeLocked()
		return ErrClosed
	}
	tx.base.buckets = tx.buckets
	tx.closeLocked()
	return nil
}

func (tx *memTx) rollback() error {
	tx.base.mu.Lock()
	defer tx.base.mu.Unlock()
	tx.closeLocked()
	return nil
}

type memBucket struct {
	tx    *memTx
	items map[string][]byte
}

func (b memBucket) put(key, value []byte) error {
	if !b.tx.writable {
		return fmt.Errorf("tx not writable")
	}
	b.items[string(key)] = slices.Clone(value)
	return nil
}

func (b memBucket) delete(key []byte) error {
	if !b.tx.writable {
		return fmt.Errorf("tx not writable")
	}
	delete(b.items, string(key))
	return nil
}

func (b memBucket) foreach(fn func(k, v []byte) error) error {
	for k, v := range b.items {
		if err := fn([]byte(k), v); err != nil {
			return err
		}
	}
	return nil
}

func (b memBucket) clear() error {
	if !b.tx.writable {
		return fmt.Errorf("tx not writable")
	}
	for k := range b.items {
		delete(b.items, k)
	}
	return nil
}
