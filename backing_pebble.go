package strata

import (
	"bytes"
	"errors"
	"slices"
	"sync"

	"github.com/cockroachdb/pebble"
)

// pebbleBacking stores all buckets in a single pebble keyspace. Every key is
// prefixed with the varbytes-encoded bucket name, and each bucket also owns a
// marker key (the bare prefix) so that empty buckets survive a reload.
type pebbleBacking struct {
	mu   sync.Mutex
	pdb  *pebble.DB
	path string
	sync bool
}

func openPebbleBacking(path string, opt Options) (backing, error) {
	popt := &pebble.Options{}
	if opt.IsTesting {
		popt.DisableWAL = true
	}
	pdb, err := pebble.Open(path, popt)
	if err != nil {
		return nil, err
	}
	return &pebbleBacking{pdb: pdb, path: path, sync: !opt.IsTesting}, nil
}

func (s *pebbleBacking) handle() (*pebble.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pdb == nil {
		return nil, ErrClosed
	}
	return s.pdb, nil
}

func (s *pebbleBacking) beginTx(writable bool) (backingTx, error) {
	pdb, err := s.handle()
	if err != nil {
		return nil, err
	}
	tx := &pebbleTx{s: s, pdb: pdb}
	if writable {
		tx.batch = pdb.NewIndexedBatch()
	}
	return tx, nil
}

func (s *pebbleBacking) compact() (bool, error) {
	pdb, err := s.handle()
	if err != nil {
		return false, err
	}
	before := pdb.Metrics().DiskSpaceUsage()
	end := bytes.Repeat([]byte{0xFF}, 16)
	if err := pdb.Compact([]byte{0}, end, true); err != nil {
		return false, err
	}
	return pdb.Metrics().DiskSpaceUsage() < before, nil
}

func (s *pebbleBacking) size() int64 {
	pdb, err := s.handle()
	if err != nil {
		return 0
	}
	return int64(pdb.Metrics().DiskSpaceUsage())
}

func (s *pebbleBacking) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pdb == nil {
		return nil
	}
	err := s.pdb.Close()
	s.pdb = nil
	return err
}

type pebbleTx struct {
	s     *pebbleBacking
	pdb   *pebble.DB
	batch *pebble.Batch
	done  bool
}

func (tx *pebbleTx) reader() pebble.Reader {
	if tx.batch != nil {
		return tx.batch
	}
	return tx.pdb
}

func (tx *pebbleTx) bucket(name string) backingBucket {
	prefix := bucketPrefix(name)
	_, closer, err := tx.reader().Get(prefix)
	if err != nil {
		return nil
	}
	closer.Close()
	return &pebbleBucket{tx: tx, prefix: prefix}
}

func (tx *pebbleTx) createBucket(name string) (backingBucket, error) {
	if tx.batch == nil {
		return nil, errors.New("tx not writable")
	}
	prefix := bucketPrefix(name)
	if err := tx.batch.Set(prefix, nil, nil); err != nil {
		return nil, err
	}
	return &pebbleBucket{tx: tx, prefix: prefix}, nil
}

func (tx *pebbleTx) deleteBucket(name string) error {
	if tx.batch == nil {
		return errors.New("tx not writable")
	}
	prefix := bucketPrefix(name)
	_, closer, err := tx.batch.Get(prefix)
	if err != nil {
		if err == pebble.ErrNotFound {
			return errBucketNotFound
		}
		return err
	}
	closer.Close()
	return deleteKeyRange(tx.batch, prefix)
}

func (tx *pebbleTx) foreachBucket(fn func(name string, b backingBucket) error) error {
	it, err := tx.reader().NewIter(nil)
	if err != nil {
		return err
	}
	defer it.Close()

	for valid := it.First(); valid; {
		d := makeByteDecoder(it.Key())
		name, err := d.VarBytes()
		if err != nil {
			return err
		}
		prefix := bucketPrefix(string(name))
		if err := fn(string(name), &pebbleBucket{tx: tx, prefix: prefix}); err != nil {
			return err
		}
		if end := prefixSuccessor(prefix); end != nil {
			valid = it.SeekGE(end)
		} else {
			valid = false
		}
	}
	return it.Error()
}

func (tx *pebbleTx) commit() error {
	if tx.done {
		return nil
	}
	tx.done = true
	if tx.batch == nil {
		return nil
	}
	opts := pebble.NoSync
	if tx.s.sync {
		opts = pebble.Sync
	}
	err := tx.batch.Commit(opts)
	tx.batch.Close()
	tx.batch = nil
	return err
}

func (tx *pebbleTx) rollback() error {
	if tx.done {
		return nil
	}
	tx.done = true
	if tx.batch != nil {
		tx.batch.Close()
		tx.batch = nil
	}
	return nil
}

type pebbleBucket struct {
	tx     *pebbleTx
	prefix []byte
}

func (b *pebbleBucket) put(key, value []byte) error {
	if b.tx.batch == nil {
		return errors.New("tx not writable")
	}
	return b.tx.batch.Set(append(slices.Clone(b.prefix), key...), value, nil)
}

func (b *pebbleBucket) delete(key []byte) error {
	if b.tx.batch == nil {
		return errors.New("tx not writable")
	}
	return b.tx.batch.Delete(append(slices.Clone(b.prefix), key...), nil)
}

func (b *pebbleBucket) foreach(fn func(k, v []byte) error) error {
	upper := prefixSuccessor(b.prefix)
	it, err := b.tx.reader().NewIter(&pebble.IterOptions{
		LowerBound: b.prefix,
		UpperBound: upper,
	})
	if err != nil {
		return err
	}
	defer it.Close()

	for valid := it.First(); valid; valid = it.Next() {
		key := it.Key()
		if upper == nil && !bytes.HasPrefix(key, b.prefix) {
			break
		}
		if len(key) == len(b.prefix) {
			continue // bucket marker
		}
		if err := fn(key[len(b.prefix):], it.Value()); err != nil {
			return err
		}
	}
	return it.Error()
}

func (b *pebbleBucket) clear() error {
	if b.tx.batch == nil {
		return errors.New("tx not writable")
	}
	if err := deleteKeyRange(b.tx.batch, b.prefix); err != nil {
		return err
	}
	// Recreate the marker dropped by the range deletion.
	return b.tx.batch.Set(b.prefix, nil, nil)
}

func bucketPrefix(name string) []byte {
	return appendVarbytes(make([]byte, 0, len(name)+1), unsafeBytesFromString(name))
}

// prefixSuccessor returns the smallest key greater than every key that starts
// with p, or nil if no such key exists.
func prefixSuccessor(p []byte) []byte {
	end := slices.Clone(p)
	if inc(end) {
		return end
	}
	return nil
}

func deleteKeyRange(batch *pebble.Batch, prefix []byte) error {
	if end := prefixSuccessor(prefix); end != nil {
		return batch.DeleteRange(prefix, end, nil)
	}
	it, err := batch.NewIter(&pebble.IterOptions{LowerBound: prefix})
	if err != nil {
		return err
	}
	defer it.Close()
	var keys [][]byte
	for valid := it.First(); valid; valid = it.Next() {
		if !bytes.HasPrefix(it.Key(), prefix) {
			break
		}
		keys = append(keys, slices.Clone(it.Key()))
	}
	if err := it.Error(); err != nil {
		return err
	}
	for _, k := range keys {
		if err := batch.Delete(k, nil); err != nil {
			return err
		}
	}
	return nil
}
