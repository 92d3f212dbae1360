package strata

// MultimapGet returns every value mapped to key, in ascending value order.
// An unmapped key yields no values and no error.
func MultimapGet[K comparable, V any](db *DB, tbl *Multimap[K, V], key K) ([]V, error) {
	tx, em, err := db.readMulti(tbl.ti)
	if err != nil {
		return nil, err
	}
	defer tx.abort()

	keyBuf := keyBytesPool.Get().([]byte)
	defer keyBytesPool.Put(keyBuf[:0])
	vals, err := decodeValues[V](tbl.ti.name, key, em.get(encodeValue(keyBuf, key)))
	if err != nil {
		return nil, err
	}
	if db.verbose {
		db.logf("db: MGET %s/%v => %d values", tbl.ti.name, key, len(vals))
	}
	return vals, nil
}

// MultimapAll returns every key with its values, keys and values both
// ascending.
func MultimapAll[K comparable, V any](db *DB, tbl *Multimap[K, V]) ([]MultimapEntry[K, V], error) {
	tx, em, err := db.readMulti(tbl.ti)
	if err != nil {
		return nil, err
	}
	defer tx.abort()

	var entries []MultimapEntry[K, V]
	var decodeErr error
	em.iterate(func(keyRaw []byte, valsRaw [][]byte) bool {
		var entry MultimapEntry[K, V]
		if err := decodeValue(keyRaw, &entry.Key); err != nil {
			decodeErr = tableErrf(tbl.ti.name, err, "decoding key")
			return false
		}
		entry.Values, decodeErr = decodeValues[V](tbl.ti.name, entry.Key, valsRaw)
		if decodeErr != nil {
			return false
		}
		entries = append(entries, entry)
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}
	return entries, nil
}

// MultimapInsert maps value to key and reports whether the pair was already
// present. Inserting an existing pair is a no-op.
func MultimapInsert[K comparable, V any](db *DB, tbl *Multimap[K, V], key K, value V) (bool, error) {
	tx, em, err := db.writeMulti(tbl.ti)
	if err != nil {
		return false, err
	}

	existed := em.insert(encodeValue(nil, key), encodeValue(nil, value))
	if err := db.commitWrite(tx); err != nil {
		return false, err
	}
	if db.verbose {
		if existed {
			db.logf("db: MPUT.NOOP %s/%v", tbl.ti.name, key)
		} else {
			db.logf("db: MPUT %s/%v => %v", tbl.ti.name, key, value)
		}
	}
	return existed, nil
}

// MultimapInsertValues maps every value in values to key and reports whether
// the key had any value at all before the call.
func MultimapInsertValues[K comparable, V any](db *DB, tbl *Multimap[K, V], key K, values []V) (bool, error) {
	tx, em, err := db.writeMulti(tbl.ti)
	if err != nil {
		return false, err
	}

	keyRaw := encodeValue(nil, key)
	had := em.hasKey(keyRaw)
	for _, v := range values {
		em.insert(keyRaw, encodeValue(nil, v))
	}
	if err := db.commitWrite(tx); err != nil {
		return false, err
	}
	if db.verbose {
		db.logf("db: MPUT %s/%v => %d values", tbl.ti.name, key, len(values))
	}
	return had, nil
}

// MultimapBatchInsert inserts every entry's values in one transaction.
func MultimapBatchInsert[K comparable, V any](db *DB, tbl *Multimap[K, V], entries []MultimapEntry[K, V]) error {
	tx, em, err := db.writeMulti(tbl.ti)
	if err != nil {
		return err
	}

	n := 0
	for _, e := range entries {
		keyRaw := encodeValue(nil, e.Key)
		for _, v := range e.Values {
			em.insert(keyRaw, encodeValue(nil, v))
			n++
		}
	}
	if err := db.commitWrite(tx); err != nil {
		return err
	}
	if db.verbose {
		db.logf("db: MBATCH.PUT %s => %d pairs over %d keys", tbl.ti.name, n, len(entries))
	}
	return nil
}

// MultimapAssign replaces key's entire value set with values and reports
// whether a non-empty set existed before. No union with the prior set.
func MultimapAssign[K comparable, V any](db *DB, tbl *Multimap[K, V], key K, values []V) (bool, error) {
	tx, em, err := db.writeMulti(tbl.ti)
	if err != nil {
		return false, err
	}

	keyRaw := encodeValue(nil, key)
	had := len(em.removeAll(keyRaw)) > 0
	for _, v := range values {
		em.insert(keyRaw, encodeValue(nil, v))
	}
	if err := db.commitWrite(tx); err != nil {
		return false, err
	}
	if db.verbose {
		db.logf("db: MASSIGN %s/%v => %d values", tbl.ti.name, key, len(values))
	}
	return had, nil
}

// MultimapRemove unmaps value from key and reports whether the pair
// existed.
func MultimapRemove[K comparable, V any](db *DB, tbl *Multimap[K, V], key K, value V) (bool, error) {
	tx, em, err := db.writeMulti(tbl.ti)
	if err != nil {
		return false, err
	}

	existed := em.remove(encodeValue(nil, key), encodeValue(nil, value))
	if err := db.commitWrite(tx); err != nil {
		return false, err
	}
	if db.verbose {
		if existed {
			db.logf("db: MDELETE %s/%v", tbl.ti.name, key)
		} else {
			db.logf("db: MDELETE.NOOP %s/%v", tbl.ti.name, key)
		}
	}
	return existed, nil
}

// MultimapRemoveAll unmaps every value from key and returns the removed
// values in ascending order.
func MultimapRemoveAll[K comparable, V any](db *DB, tbl *Multimap[K, V], key K) ([]V, error) {
	tx, em, err := db.writeMulti(tbl.ti)
	if err != nil {
		return nil, err
	}

	removedRaw := em.removeAll(encodeValue(nil, key))
	removed, err := decodeValues[V](tbl.ti.name, key, removedRaw)
	if err != nil {
		tx.abort()
		return nil, err
	}
	if err := db.commitWrite(tx); err != nil {
		return nil, err
	}
	if db.verbose {
		db.logf("db: MDELETE.ALL %s/%v => %d values", tbl.ti.name, key, len(removed))
	}
	return removed, nil
}

// ClearMultimapTable unmaps everything from every key; the table itself
// remains. There is no wholesale truncation for multimap tables: the keys
// are enumerated and each one's set removed in turn, all inside the one
// transaction, so the cost grows with the number of pairs.
func ClearMultimapTable[K comparable, V any](db *DB, tbl *Multimap[K, V]) error {
	tx, em, err := db.writeMulti(tbl.ti)
	if err != nil {
		return err
	}

	var keys [][]byte
	em.iterate(func(keyRaw []byte, valsRaw [][]byte) bool {
		keys = append(keys, keyRaw)
		return true
	})
	n := 0
	for _, keyRaw := range keys {
		n += len(em.removeAll(keyRaw))
	}
	if err := db.commitWrite(tx); err != nil {
		return err
	}
	if db.verbose {
		db.logf("db: MCLEAR %s => %d pairs over %d keys", tbl.ti.name, n, len(keys))
	}
	return nil
}

// DeleteMultimapTable drops the table entirely and reports whether it
// existed. Deleting a table of a different kind or with different types
// fails.
func DeleteMultimapTable[K comparable, V any](db *DB, tbl *Multimap[K, V]) (bool, error) {
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

func decodeValues[V any](table string, key any, raws [][]byte) ([]V, error) {
	if len(raws) == 0 {
		return nil, nil
	}
	vals := make([]V, len(raws))
	for i, raw := range raws {
		if err := decodeValue(raw, &vals[i]); err != nil {
			return nil, tableErrf(table, err, "decoding value of %v", key)
		}
	}
	return vals, nil
}
