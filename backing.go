package strata

import "errors"

// errBucketNotFound is returned by backingTx.deleteBucket when the bucket
// doesn't exist.
var errBucketNotFound = errors.New("bucket not found")

// backing persists committed engine state (Bolt, Pebble, in-memory).
// The engine owns all ordering, typing and concurrency; a backing is a
// plain collection of byte buckets with one writable transaction at a
// time, read fully once at open and written through on every commit.
type backing interface {
	// beginTx starts a new transaction.
	beginTx(writable bool) (backingTx, error)

	// compact rewrites the store to reclaim space, reporting whether it
	// got smaller. No transaction may be active during the call.
	compact() (bool, error)

	// size returns the store size in bytes (0 if unknown).
	size() int64

	// close closes the backing.
	close() error
}

// backingTx is a storage transaction.
type backingTx interface {
	// bucket returns a named bucket, nil if it doesn't exist.
	bucket(name string) backingBucket

	// createBucket creates a bucket if it doesn't exist.
	createBucket(name string) (backingBucket, error)

	// deleteBucket deletes a bucket; errBucketNotFound if absent.
	deleteBucket(name string) error

	// foreachBucket calls fn for every bucket.
	foreachBucket(fn func(name string, b backingBucket) error) error

	// commit commits the transaction.
	commit() error

	// rollback aborts the transaction. Safe to call multiple times, and
	// after commit.
	rollback() error
}

// backingBucket is an unordered collection of key-value byte pairs.
type backingBucket interface {
	// put stores a key-value pair.
	put(key, value []byte) error

	// delete removes a key.
	delete(key []byte) error

	// foreach calls fn for every pair; the slices are only valid during
	// the call.
	foreach(fn func(k, v []byte) error) error

	// clear removes all pairs.
	clear() error
}

// tableMeta is the stored description of a table, checked against the
// declared definition on every open.
type tableMeta struct {
	kind    byte
	keyType string
	valType string
}

func (m tableMeta) encode(buf []byte) []byte {
	buf = append(buf, m.kind)
	buf = appendVarbytes(buf, []byte(m.keyType))
	buf = appendVarbytes(buf, []byte(m.valType))
	return buf
}

func decodeTableMeta(data []byte) (tableMeta, error) {
	var m tableMeta
	d := makeByteDecoder(data)
	kind, err := d.Raw(1)
	if err != nil {
		return m, err
	}
	m.kind = kind[0]
	kt, err := d.VarBytes()
	if err != nil {
		return m, err
	}
	vt, err := d.VarBytes()
	if err != nil {
		return m, err
	}
	m.keyType, m.valType = string(kt), string(vt)
	return m, nil
}

const metaBucket = "m"

func tableBucket(name string) string {
	return "t" + name
}
