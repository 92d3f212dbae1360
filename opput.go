package strata

import "fmt"

// TryAdd stores value under key only if the key is absent, and returns
// whether it did. An existing value is left untouched.
func TryAdd[K comparable, V any](db *DB, tbl *Table[K, V], key K, value V) (bool, error) {
	tx, et, err := db.writeTable(tbl.ti)
	if err != nil {
		return false, err
	}

	keyRaw := encodeValue(nil, key)
	added := et.get(keyRaw) == nil
	if added {
		et.put(keyRaw, encodeValue(nil, value))
	}
	if err := db.commitWrite(tx); err != nil {
		return false, err
	}
	if db.verbose {
		if added {
			db.logf("db: ADD %s/%v => %v", tbl.ti.name, key, value)
		} else {
			db.logf("db: ADD.NOOP %s/%v", tbl.ti.name, key)
		}
	}
	return added, nil
}

// Insert stores value under key unconditionally and returns the previous
// value, if the key had one.
func Insert[K comparable, V any](db *DB, tbl *Table[K, V], key K, value V) (V, bool, error) {
	var zero V
	tx, et, err := db.writeTable(tbl.ti)
	if err != nil {
		return zero, false, err
	}

	prevRaw, had := et.put(encodeValue(nil, key), encodeValue(nil, value))
	var prev V
	if had {
		if err := decodeValue(prevRaw, &prev); err != nil {
			tx.abort()
			return zero, false, tableErrf(tbl.ti.name, err, "decoding previous value of %v", key)
		}
	}
	if err := db.commitWrite(tx); err != nil {
		return zero, false, err
	}
	if db.verbose {
		db.logf("db: PUT %s/%v => %v", tbl.ti.name, key, value)
	}
	return prev, had, nil
}

// Update decodes the value under key, applies edit to the copy and stores
// the result, returning the value as it was before the edit. A missing key
// is an ErrNotFound failure and edit is not called.
func Update[K comparable, V any](db *DB, tbl *Table[K, V], key K, edit func(v *V)) (V, error) {
	var zero V
	tx, et, err := db.writeTable(tbl.ti)
	if err != nil {
		return zero, err
	}

	keyRaw := encodeValue(nil, key)
	raw := et.get(keyRaw)
	if raw == nil {
		tx.abort()
		return zero, fmt.Errorf("update %s/%v: %w", tbl.ti.name, key, ErrNotFound)
	}

	// Two independent decodes: the edit must not reach the returned copy
	// through shared slices or maps.
	var old, work V
	if err := decodeValue(raw, &old); err != nil {
		tx.abort()
		return zero, tableErrf(tbl.ti.name, err, "decoding value of %v", key)
	}
	if err := decodeValue(raw, &work); err != nil {
		tx.abort()
		return zero, tableErrf(tbl.ti.name, err, "decoding value of %v", key)
	}
	edit(&work)
	et.put(keyRaw, encodeValue(nil, work))
	if err := db.commitWrite(tx); err != nil {
		return zero, err
	}
	if db.verbose {
		db.logf("db: UPDATE %s/%v => %v", tbl.ti.name, key, work)
	}
	return old, nil
}

// Remove deletes the entry under key and returns the removed value, if the
// key had one.
func Remove[K comparable, V any](db *DB, tbl *Table[K, V], key K) (V, bool, error) {
	var zero V
	tx, et, err := db.writeTable(tbl.ti)
	if err != nil {
		return zero, false, err
	}

	prevRaw, had := et.delete(encodeValue(nil, key))
	var prev V
	if had {
		if err := decodeValue(prevRaw, &prev); err != nil {
			tx.abort()
			return zero, false, tableErrf(tbl.ti.name, err, "decoding value of %v", key)
		}
	}
	if err := db.commitWrite(tx); err != nil {
		return zero, false, err
	}
	if db.verbose {
		if had {
			db.logf("db: DELETE %s/%v", tbl.ti.name, key)
		} else {
			db.logf("db: DELETE.NOOP %s/%v", tbl.ti.name, key)
		}
	}
	return prev, had, nil
}
