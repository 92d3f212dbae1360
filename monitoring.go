package strata

// TableStats summarizes one table's content. For multimap tables Rows counts
// (key, value) pairs and Keys counts distinct keys, each contributing its
// KeyBytes once; for plain tables the two are equal.
type TableStats struct {
	Keys       int
	Rows       int
	KeyBytes   int64
	ValueBytes int64
}

func (ts *TableStats) TotalBytes() int64 {
	return ts.KeyBytes + ts.ValueBytes
}

func StatsForTable[K comparable, V any](db *DB, tbl *Table[K, V]) (TableStats, error) {
	tx, et, err := db.readTable(tbl.ti)
	if err != nil {
		return TableStats{}, err
	}
	defer tx.abort()

	var ts TableStats
	et.ascend(func(k, v []byte) bool {
		ts.Rows++
		ts.KeyBytes += int64(len(k))
		ts.ValueBytes += int64(len(v))
		return true
	})
	ts.Keys = ts.Rows
	return ts, nil
}

func StatsForMultimap[K comparable, V any](db *DB, tbl *Multimap[K, V]) (TableStats, error) {
	tx, em, err := db.readMulti(tbl.ti)
	if err != nil {
		return TableStats{}, err
	}
	defer tx.abort()

	var ts TableStats
	em.iterate(func(key []byte, vals [][]byte) bool {
		ts.Keys++
		ts.KeyBytes += int64(len(key))
		ts.Rows += len(vals)
		for _, v := range vals {
			ts.ValueBytes += int64(len(v))
		}
		return true
	})
	return ts, nil
}
