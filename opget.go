package strata

// Get returns the value stored under key. The second result reports whether
// the key was present; absence is not an error.
func Get[K comparable, V any](db *DB, tbl *Table[K, V], key K) (V, bool, error) {
	var zero V
	tx, et, err := db.readTable(tbl.ti)
	if err != nil {
		return zero, false, err
	}
	defer tx.abort()

	keyBuf := keyBytesPool.Get().([]byte)
	defer keyBytesPool.Put(keyBuf[:0])
	raw := et.get(encodeValue(keyBuf, key))
	if raw == nil {
		if db.verbose {
			db.logf("db: GET.NOTFOUND %s/%v", tbl.ti.name, key)
		}
		return zero, false, nil
	}

	var v V
	if err := decodeValue(raw, &v); err != nil {
		return zero, false, tableErrf(tbl.ti.name, err, "decoding value of %v", key)
	}
	if db.verbose {
		db.logf("db: GET %s/%v => %v", tbl.ti.name, key, v)
	}
	return v, true, nil
}

// ContainsKey reports whether key is present without decoding its value.
func ContainsKey[K comparable, V any](db *DB, tbl *Table[K, V], key K) (bool, error) {
	tx, et, err := db.readTable(tbl.ti)
	if err != nil {
		return false, err
	}
	defer tx.abort()

	keyBuf := keyBytesPool.Get().([]byte)
	defer keyBytesPool.Put(keyBuf[:0])
	found := et.get(encodeValue(keyBuf, key)) != nil
	if db.verbose {
		db.logf("db: EXISTS.%s %s/%v", map[bool]string{false: "NO", true: "YES"}[found], tbl.ti.name, key)
	}
	return found, nil
}

// First returns the entry with the smallest key, or nil if the table is
// empty.
func First[K comparable, V any](db *DB, tbl *Table[K, V]) (*Entry[K, V], error) {
	return edgeEntry(db, tbl, "FIRST", (*engineTable).first)
}

// Last returns the entry with the largest key, or nil if the table is empty.
func Last[K comparable, V any](db *DB, tbl *Table[K, V]) (*Entry[K, V], error) {
	return edgeEntry(db, tbl, "LAST", (*engineTable).last)
}

func edgeEntry[K comparable, V any](db *DB, tbl *Table[K, V], what string, pick func(*engineTable) (rawEntry, bool)) (*Entry[K, V], error) {
	tx, et, err := db.readTable(tbl.ti)
	if err != nil {
		return nil, err
	}
	defer tx.abort()

	e, ok := pick(et)
	if !ok {
		if db.verbose {
			db.logf("db: %s.EMPTY %s", what, tbl.ti.name)
		}
		return nil, nil
	}
	entry, err := decodeEntry[K, V](tbl.ti.name, e)
	if err != nil {
		return nil, err
	}
	if db.verbose {
		db.logf("db: %s %s => %v/%v", what, tbl.ti.name, entry.Key, entry.Value)
	}
	return entry, nil
}

// FirstKey returns the smallest key without decoding its value.
func FirstKey[K comparable, V any](db *DB, tbl *Table[K, V]) (K, bool, error) {
	return edgeKey(db, tbl, (*engineTable).first)
}

// LastKey returns the largest key without decoding its value.
func LastKey[K comparable, V any](db *DB, tbl *Table[K, V]) (K, bool, error) {
	return edgeKey(db, tbl, (*engineTable).last)
}

func edgeKey[K comparable, V any](db *DB, tbl *Table[K, V], pick func(*engineTable) (rawEntry, bool)) (K, bool, error) {
	var zero K
	tx, et, err := db.readTable(tbl.ti)
	if err != nil {
		return zero, false, err
	}
	defer tx.abort()

	e, ok := pick(et)
	if !ok {
		return zero, false, nil
	}
	var key K
	if err := decodeValue(e.k, &key); err != nil {
		return zero, false, tableErrf(tbl.ti.name, err, "decoding key")
	}
	return key, true, nil
}

// All returns every entry in ascending key order.
func All[K comparable, V any](db *DB, tbl *Table[K, V]) ([]Entry[K, V], error) {
	tx, et, err := db.readTable(tbl.ti)
	if err != nil {
		return nil, err
	}
	defer tx.abort()

	entries := make([]Entry[K, V], 0, et.len())
	var decodeErr error
	et.ascend(func(k, v []byte) bool {
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
		db.logf("db: ALL %s => %d entries", tbl.ti.name, len(entries))
	}
	return entries, nil
}

func decodeEntry[K comparable, V any](table string, e rawEntry) (*Entry[K, V], error) {
	var entry Entry[K, V]
	if err := decodeValue(e.k, &entry.Key); err != nil {
		return nil, tableErrf(table, err, "decoding key")
	}
	if err := decodeValue(e.v, &entry.Value); err != nil {
		return nil, tableErrf(table, err, "decoding value of %v", entry.Key)
	}
	return &entry, nil
}
