package strata

// KeyRange defines a range of keys. The constructors use mnemonics: O means
// open, I means inclusive, E means exclusive; the first letter is for the
// lower bound, the second for the upper bound.
type KeyRange[K any] struct {
	Lower    *K
	Upper    *K
	LowerInc bool
	UpperInc bool
}

func RangeOO[K any]() KeyRange[K]    { return KeyRange[K]{} }
func RangeIO[K any](l K) KeyRange[K] { return KeyRange[K]{Lower: &l, LowerInc: true} }
func RangeEO[K any](l K) KeyRange[K] { return KeyRange[K]{Lower: &l} }
func RangeOI[K any](u K) KeyRange[K] { return KeyRange[K]{Upper: &u, UpperInc: true} }
func RangeOE[K any](u K) KeyRange[K] { return KeyRange[K]{Upper: &u} }
func RangeII[K any](l, u K) KeyRange[K] {
	return KeyRange[K]{Lower: &l, Upper: &u, LowerInc: true, UpperInc: true}
}
func RangeIE[K any](l, u K) KeyRange[K] {
	return KeyRange[K]{Lower: &l, Upper: &u, LowerInc: true}
}
func RangeEI[K any](l, u K) KeyRange[K] {
	return KeyRange[K]{Lower: &l, Upper: &u, UpperInc: true}
}
func RangeEE[K any](l, u K) KeyRange[K] {
	return KeyRange[K]{Lower: &l, Upper: &u}
}

func (r KeyRange[K]) encode() (lo, hi []byte, loInc, hiInc bool) {
	if r.Lower != nil {
		lo = encodeValue(nil, *r.Lower)
		loInc = r.LowerInc
	}
	if r.Upper != nil {
		hi = encodeValue(nil, *r.Upper)
		hiInc = r.UpperInc
	}
	return
}

// Range returns the entries whose keys fall within r, in ascending key
// order.
func Range[K comparable, V any](db *DB, tbl *Table[K, V], r KeyRange[K]) ([]Entry[K, V], error) {
	tx, et, err := db.readTable(tbl.ti)
	if err != nil {
		return nil, err
	}
	defer tx.abort()

	lo, hi, loInc, hiInc := r.encode()
	var entries []Entry[K, V]
	var decodeErr error
	et.ascendRange(lo, hi, loInc, hiInc, func(k, v []byte) bool {
		entry, err := decodeEntry[K, V](tbl.ti.name, rawEntry{k: k, v: v})
		if err != nil {
			decodeErr = err
			return false
		}
		entries = append(entries, *entry)
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}
	if db.verbose {
		db.logf("db: RANGE %s => %d entries", tbl.ti.name, len(entries))
	}
	return entries, nil
}

// Find returns the first entry within r, in ascending key order, that
// satisfies pred, or nil if none does.
func Find[K comparable, V any](db *DB, tbl *Table[K, V], r KeyRange[K], pred func(K, V) bool) (*Entry[K, V], error) {
	return find(db, tbl, r, pred, (*engineTable).ascendRange)
}

// RFind is Find in descending key order.
func RFind[K comparable, V any](db *DB, tbl *Table[K, V], r KeyRange[K], pred func(K, V) bool) (*Entry[K, V], error) {
	return find(db, tbl, r, pred, (*engineTable).descendRange)
}

func find[K comparable, V any](db *DB, tbl *Table[K, V], r KeyRange[K], pred func(K, V) bool, scan func(et *engineTable, lo, hi []byte, loInc, hiInc bool, fn func(k, v []byte) bool)) (*Entry[K, V], error) {
	tx, et, err := db.readTable(tbl.ti)
	if err != nil {
		return nil, err
	}
	defer tx.abort()

	lo, hi, loInc, hiInc := r.encode()
	var found *Entry[K, V]
	var decodeErr error
	scan(et, lo, hi, loInc, hiInc, func(k, v []byte) bool {
		entry, err := decodeEntry[K, V](tbl.ti.name, rawEntry{k: k, v: v})
		if err != nil {
			decodeErr = err
			return false
		}
		if pred(entry.Key, entry.Value) {
			found = entry
			return false
		}
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}
	return found, nil
}

// FindNth returns the n-th entry (zero-based, ascending) that satisfies
// pred, or nil if fewer than n+1 entries match.
func FindNth[K comparable, V any](db *DB, tbl *Table[K, V], n int, pred func(K, V) bool) (*Entry[K, V], error) {
	if n < 0 {
		return nil, nil
	}
	tx, et, err := db.readTable(tbl.ti)
	if err != nil {
		return nil, err
	}
	defer tx.abort()

	var found *Entry[K, V]
	var decodeErr error
	et.ascend(func(k, v []byte) bool {
		entry, err := decodeEntry[K, V](tbl.ti.name, rawEntry{k: k, v: v})
		if err != nil {
			decodeErr = err
			return false
		}
		if !pred(entry.Key, entry.Value) {
			return true
		}
		if n == 0 {
			found = entry
			return false
		}
		n--
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}
	return found, nil
}

// CountMatches returns how many entries satisfy pred.
func CountMatches[K comparable, V any](db *DB, tbl *Table[K, V], pred func(K, V) bool) (int, error) {
	tx, et, err := db.readTable(tbl.ti)
	if err != nil {
		return 0, err
	}
	defer tx.abort()

	n := 0
	var decodeErr error
	et.ascend(func(k, v []byte) bool {
		entry, err := decodeEntry[K, V](tbl.ti.name, rawEntry{k: k, v: v})
		if err != nil {
			decodeErr = err
			return false
		}
		if pred(entry.Key, entry.Value) {
			n++
		}
		return true
	})
	if decodeErr != nil {
		return 0, decodeErr
	}
	return n, nil
}

// Filter returns the entries satisfying pred, in ascending key order.
func Filter[K comparable, V any](db *DB, tbl *Table[K, V], pred func(K, V) bool) ([]Entry[K, V], error) {
	tx, et, err := db.readTable(tbl.ti)
	if err != nil {
		return nil, err
	}
	defer tx.abort()

	var entries []Entry[K, V]
	var decodeErr error
	et.ascend(func(k, v []byte) bool {
		entry, err := decodeEntry[K, V](tbl.ti.name, rawEntry{k: k, v: v})
		if err != nil {
			decodeErr = err
			return false
		}
		if pred(entry.Key, entry.Value) {
			entries = append(entries, *entry)
		}
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}
	return entries, nil
}

// FilterKeys returns the keys satisfying pred, in ascending order, without
// decoding values.
func FilterKeys[K comparable, V any](db *DB, tbl *Table[K, V], pred func(K) bool) ([]K, error) {
	tx, et, err := db.readTable(tbl.ti)
	if err != nil {
		return nil, err
	}
	defer tx.abort()

	var keys []K
	var decodeErr error
	et.ascend(func(k, v []byte) bool {
		var key K
		if err := decodeValue(k, &key); err != nil {
			decodeErr = tableErrf(tbl.ti.name, err, "decoding key")
			return false
		}
		if pred(key) {
			keys = append(keys, key)
		}
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}
	return keys, nil
}
