package strata

import "reflect"

// Batch operations run inside exactly one write transaction: either every
// change lands or none does. Within a batch later steps observe the effects
// of earlier ones.

// BatchTryAdd adds the entries whose keys are absent and returns the keys it
// skipped, in input order. A key occurring twice in entries is skipped on
// the second occurrence like any other present key.
func BatchTryAdd[K comparable, V any](db *DB, tbl *Table[K, V], entries []Entry[K, V]) ([]K, error) {
	tx, et, err := db.writeTable(tbl.ti)
	if err != nil {
		return nil, err
	}

	var present []K
	for _, e := range entries {
		keyRaw := encodeValue(nil, e.Key)
		if et.get(keyRaw) != nil {
			present = append(present, e.Key)
			continue
		}
		et.put(keyRaw, encodeValue(nil, e.Value))
	}
	if err := db.commitWrite(tx); err != nil {
		return nil, err
	}
	if db.verbose {
		db.logf("db: BATCH.ADD %s => %d added, %d skipped", tbl.ti.name, len(entries)-len(present), len(present))
	}
	return present, nil
}

// BatchInsert stores every entry unconditionally and returns the value each
// overwritten key held just before its write. A key occurring twice in
// entries keeps the last value, and its reported prior is the first one.
func BatchInsert[K comparable, V any](db *DB, tbl *Table[K, V], entries []Entry[K, V]) (map[K]V, error) {
	tx, et, err := db.writeTable(tbl.ti)
	if err != nil {
		return nil, err
	}

	prior := make(map[K]V)
	for _, e := range entries {
		keyRaw := encodeValue(nil, e.Key)
		prevRaw, had := et.put(keyRaw, encodeValue(nil, e.Value))
		if !had {
			continue
		}
		var prev V
		if err := decodeValue(prevRaw, &prev); err != nil {
			tx.abort()
			return nil, tableErrf(tbl.ti.name, err, "decoding previous value of %v", e.Key)
		}
		prior[e.Key] = prev
	}
	if err := db.commitWrite(tx); err != nil {
		return nil, err
	}
	if db.verbose {
		db.logf("db: BATCH.PUT %s => %d entries, %d overwritten", tbl.ti.name, len(entries), len(prior))
	}
	return prior, nil
}

// BatchUpdate applies edit to the value of every key that is present;
// absent keys are skipped.
func BatchUpdate[K comparable, V any](db *DB, tbl *Table[K, V], keys []K, edit func(key K, v *V)) error {
	return batchEdit(db, tbl, keys, edit, nil, nil)
}

// BatchEdit is BatchUpdate returning the pre-edit values of the keys it
// touched.
func BatchEdit[K comparable, V any](db *DB, tbl *Table[K, V], keys []K, edit func(key K, v *V)) (map[K]V, error) {
	prior := make(map[K]V)
	if err := batchEdit(db, tbl, keys, edit, prior, nil); err != nil {
		return nil, err
	}
	return prior, nil
}

// BatchEditFast is BatchUpdate for hot paths: no prior values are collected
// and keys are never retained.
func BatchEditFast[K comparable, V any](db *DB, tbl *Table[K, V], keys []K, edit func(key K, v *V)) error {
	return batchEdit(db, tbl, keys, edit, nil, nil)
}

// BatchEditCount is BatchUpdate returning how many edits actually changed
// the stored value, compared as decoded values.
func BatchEditCount[K comparable, V any](db *DB, tbl *Table[K, V], keys []K, edit func(key K, v *V)) (int, error) {
	var n int
	if err := batchEdit(db, tbl, keys, edit, nil, &n); err != nil {
		return 0, err
	}
	return n, nil
}

func batchEdit[K comparable, V any](db *DB, tbl *Table[K, V], keys []K, edit func(key K, v *V), prior map[K]V, count *int) error {
	tx, et, err := db.writeTable(tbl.ti)
	if err != nil {
		return err
	}

	edited := 0
	for _, key := range keys {
		keyRaw := encodeValue(nil, key)
		raw := et.get(keyRaw)
		if raw == nil {
			continue
		}
		var work V
		if err := decodeValue(raw, &work); err != nil {
			tx.abort()
			return tableErrf(tbl.ti.name, err, "decoding value of %v", key)
		}
		var old V
		if prior != nil || count != nil {
			if err := decodeValue(raw, &old); err != nil {
				tx.abort()
				return tableErrf(tbl.ti.name, err, "decoding value of %v", key)
			}
		}
		edit(key, &work)
		if prior != nil {
			prior[key] = old
		}
		if count != nil && !reflect.DeepEqual(old, work) {
			*count++
		}
		et.put(keyRaw, encodeValue(nil, work))
		edited++
	}
	if err := db.commitWrite(tx); err != nil {
		return err
	}
	if db.verbose {
		db.logf("db: BATCH.EDIT %s => %d of %d keys", tbl.ti.name, edited, len(keys))
	}
	return nil
}

// ClearTable removes every entry; the table itself remains.
func ClearTable[K comparable, V any](db *DB, tbl *Table[K, V]) error {
	tx, et, err := db.writeTable(tbl.ti)
	if err != nil {
		return err
	}
	n := et.clearAll()
	if err := db.commitWrite(tx); err != nil {
		return err
	}
	if db.verbose {
		db.logf("db: CLEAR %s => %d entries", tbl.ti.name, n)
	}
	return nil
}

// DeleteTable drops the table entirely and reports whether it existed.
// Deleting a table of a different kind or with different types fails.
func DeleteTable[K comparable, V any](db *DB, tbl *Table[K, V]) (bool, error) {
	tx, err := db.eng.beginWrite()
	if err != nil {
		return false, txErr("begin write", err)
	}
	existed, err := tx.deleteTable(tbl.ti)
	if err != nil {
		tx.abort()
		return false, err
	}
	if err := db.commitWrite(tx); err != nil {
		return false, err
	}
	if db.verbose {
		db.logf("db: DROP %s => %v", tbl.ti.name, existed)
	}
	return existed, nil
}
