package strata

import (
	"fmt"
	"os"
	"sync"
	"unsafe"

	"go.etcd.io/bbolt"
)

type boltBacking struct {
	mu   sync.Mutex
	bdb  *bbolt.DB
	path string
	bopt *bbolt.Options
}

func openBoltBacking(path string, opt Options) (backing, error) {
	bopt := new(bbolt.Options)
	*bopt = *bbolt.DefaultOptions
	if opt.IsTesting {
		bopt.NoSync = true
		bopt.NoFreelistSync = true
		bopt.InitialMmapSize = 1024 * 1024 * 5
	} else {
		bopt.InitialMmapSize = 1024 * 1024 * 1024
		bopt.FreelistType = bbolt.FreelistMapType
	}

	bdb, err := bbolt.Open(path, 0666, bopt)
	if err != nil {
		return nil, err
	}
	return &boltBacking{bdb: bdb, path: path, bopt: bopt}, nil
}

func (s *boltBacking) handle() (*bbolt.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bdb == nil {
		return nil, ErrClosed
	}
	return s.bdb, nil
}

func (s *boltBacking) beginTx(writable bool) (backingTx, error) {
	bdb, err := s.handle()
	if err != nil {
		return nil, err
	}
	btx, err := bdb.Begin(writable)
	if err != nil {
		return nil, err
	}
	return &boltTx{btx: btx}, nil
}

// compact copies live data into a fresh file, swaps it in and reopens.
// The engine keeps all transactions out for the duration.
func (s *boltBacking) compact() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bdb == nil {
		return false, ErrClosed
	}

	before := fileSize(s.path)
	tmp := s.path + ".compacting"
	os.Remove(tmp)

	dst, err := bbolt.Open(tmp, 0666, s.bopt)
	if err != nil {
		return false, fmt.Errorf("compact: %w", err)
	}
	err = bbolt.Compact(dst, s.bdb, 0)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return false, fmt.Errorf("compact: %w", err)
	}

	if err := s.bdb.Close(); err != nil {
		s.bdb = nil
		return false, fmt.Errorf("compact: %w", err)
	}
	s.bdb = nil
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		s.bdb, _ = bbolt.Open(s.path, 0666, s.bopt)
		return false, fmt.Errorf("compact: %w", err)
	}
	bdb, err := bbolt.Open(s.path, 0666, s.bopt)
	if err != nil {
		return false, fmt.Errorf("compact: reopening: %w", err)
	}
	s.bdb = bdb

	return fileSize(s.path) < before, nil
}

func (s *boltBacking) size() int64 {
	return fileSize(s.path)
}

func (s *boltBacking) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bdb == nil {
		return nil
	}
	err := s.bdb.Close()
	s.bdb = nil
	return err
}

func fileSize(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return fi.Size()
}

type boltTx struct {
	btx *bbolt.Tx
}

func (tx *boltTx) bucket(name string) backingBucket {
	b := tx.btx.Bucket(unsafeBytesFromString(name))
	if b == nil {
		return nil
	}
	return &boltBucket{btx: tx.btx, name: []byte(name), b: b}
}

func (tx *boltTx) createBucket(name string) (backingBucket, error) {
	b, err := tx.btx.CreateBucketIfNotExists([]byte(name))
	if err != nil {
		return nil, err
	}
	return &boltBucket{btx: tx.btx, name: []byte(name), b: b}, nil
}

func (tx *boltTx) deleteBucket(name string) error {
	err := tx.btx.DeleteBucket(unsafeBytesFromString(name))
	if err == bbolt.ErrBucketNotFound {
		return errBucketNotFound
	}
	return err
}

func (tx *boltTx) foreachBucket(fn func(name string, b backingBucket) error) error {
	return tx.btx.ForEach(func(name []byte, b *bbolt.Bucket) error {
		return fn(string(name), &boltBucket{btx: tx.btx, name: name, b: b})
	})
}

func (tx *boltTx) commit() error {
	return tx.btx.Commit()
}

func (tx *boltTx) rollback() error {
	err := tx.btx.Rollback()
	if err == bbolt.ErrTxClosed {
		return nil
	}
	return err
}

type boltBucket struct {
	btx  *bbolt.Tx
	name []byte
	b    *bbolt.Bucket
}

func (b *boltBucket) put(key, value []byte) error { return b.b.Put(key, value) }

func (b *boltBucket) delete(key []byte) error { return b.b.Delete(key) }

func (b *boltBucket) foreach(fn func(k, v []byte) error) error {
	return b.b.ForEach(fn)
}

func (b *boltBucket) clear() error {
	if err := b.btx.DeleteBucket(b.name); err != nil {
		return err
	}
	nb, err := b.btx.CreateBucket(b.name)
	if err != nil {
		return err
	}
	b.b = nb
	return nil
}

func unsafeBytesFromString(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}
