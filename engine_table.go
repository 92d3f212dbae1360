package strata

// engineTable is a transaction's view of one plain table, operating on
// encoded keys and values. Write methods clone the shared tableData on first
// touch and keep pending backing ops in sync.
type engineTable struct {
	tx *etx
	td *tableData
}

func (et *engineTable) write() *tableData {
	et.td = et.tx.mutable(et.td)
	return et.td
}

func (et *engineTable) get(key []byte) []byte {
	e, ok := et.td.tree.Get(rawEntry{k: key})
	if !ok {
		return nil
	}
	return e.v
}

func (et *engineTable) put(key, value []byte) (prev []byte, had bool) {
	td := et.write()
	old, had := td.tree.ReplaceOrInsert(rawEntry{k: key, v: value})
	et.tx.noteOp(bkPut, td.name, key, value)
	return old.v, had
}

func (et *engineTable) delete(key []byte) (prev []byte, had bool) {
	e, ok := et.td.tree.Get(rawEntry{k: key})
	if !ok {
		return nil, false
	}
	td := et.write()
	td.tree.Delete(rawEntry{k: key})
	et.tx.noteOp(bkDelete, td.name, key, nil)
	return e.v, true
}

func (et *engineTable) first() (rawEntry, bool) { return et.td.tree.Min() }
func (et *engineTable) last() (rawEntry, bool)  { return et.td.tree.Max() }
func (et *engineTable) len() int                { return et.td.tree.Len() }

func (et *engineTable) ascend(fn func(k, v []byte) bool) {
	et.td.tree.Ascend(func(e rawEntry) bool {
		return fn(e.k, e.v)
	})
}

func (et *engineTable) descend(fn func(k, v []byte) bool) {
	et.td.tree.Descend(func(e rawEntry) bool {
		return fn(e.k, e.v)
	})
}

// ascendRange visits entries between lo and hi in ascending order. Nil bounds
// are open ends; loInc and hiInc control whether equal keys are included.
func (et *engineTable) ascendRange(lo, hi []byte, loInc, hiInc bool, fn func(k, v []byte) bool) {
	keyCmp := et.td.keyCmp
	visit := func(e rawEntry) bool {
		if lo != nil && !loInc && keyCmp(e.k, lo) == 0 {
			return true
		}
		if hi != nil {
			c := keyCmp(e.k, hi)
			if c > 0 || (c == 0 && !hiInc) {
				return false
			}
		}
		return fn(e.k, e.v)
	}
	if lo != nil {
		et.td.tree.AscendGreaterOrEqual(rawEntry{k: lo}, visit)
	} else {
		et.td.tree.Ascend(visit)
	}
}

// descendRange is ascendRange in descending order.
func (et *engineTable) descendRange(lo, hi []byte, loInc, hiInc bool, fn func(k, v []byte) bool) {
	keyCmp := et.td.keyCmp
	visit := func(e rawEntry) bool {
		if hi != nil && !hiInc && keyCmp(e.k, hi) == 0 {
			return true
		}
		if lo != nil {
			c := keyCmp(e.k, lo)
			if c < 0 || (c == 0 && !loInc) {
				return false
			}
		}
		return fn(e.k, e.v)
	}
	if hi != nil {
		et.td.tree.DescendLessOrEqual(rawEntry{k: hi}, visit)
	} else {
		et.td.tree.Descend(visit)
	}
}

func (et *engineTable) clearAll() int {
	n := et.td.tree.Len()
	if n == 0 {
		return 0
	}
	td := et.write()
	td.tree.Clear(false)
	et.tx.noteOp(bkClear, td.name, nil, nil)
	return n
}

// engineMulti is a transaction's view of one multimap table. Each stored
// entry is a single (key, value) pair; values for a key come back in value
// order.
type engineMulti struct {
	tx *etx
	td *tableData
}

func (em *engineMulti) write() *tableData {
	em.td = em.tx.mutable(em.td)
	return em.td
}

func composeMultimapKey(key, val []byte) []byte {
	buf := appendVarbytes(make([]byte, 0, len(key)+len(val)+1), key)
	return append(buf, val...)
}

func (em *engineMulti) get(key []byte) [][]byte {
	var vals [][]byte
	keyCmp := em.td.keyCmp
	em.td.tree.AscendGreaterOrEqual(rawEntry{k: key}, func(e rawEntry) bool {
		if keyCmp(e.k, key) != 0 {
			return false
		}
		vals = append(vals, e.v)
		return true
	})
	return vals
}

func (em *engineMulti) hasKey(key []byte) bool {
	found := false
	keyCmp := em.td.keyCmp
	em.td.tree.AscendGreaterOrEqual(rawEntry{k: key}, func(e rawEntry) bool {
		found = keyCmp(e.k, key) == 0
		return false
	})
	return found
}

func (em *engineMulti) insert(key, val []byte) (existed bool) {
	if em.td.tree.Has(rawEntry{k: key, v: val}) {
		return true
	}
	td := em.write()
	td.tree.ReplaceOrInsert(rawEntry{k: key, v: val})
	em.tx.noteOp(bkPut, td.name, composeMultimapKey(key, val), nil)
	return false
}

func (em *engineMulti) remove(key, val []byte) (existed bool) {
	if !em.td.tree.Has(rawEntry{k: key, v: val}) {
		return false
	}
	td := em.write()
	td.tree.Delete(rawEntry{k: key, v: val})
	em.tx.noteOp(bkDelete, td.name, composeMultimapKey(key, val), nil)
	return true
}

func (em *engineMulti) removeAll(key []byte) [][]byte {
	vals := em.get(key)
	if len(vals) == 0 {
		return nil
	}
	td := em.write()
	for _, v := range vals {
		td.tree.Delete(rawEntry{k: key, v: v})
		em.tx.noteOp(bkDelete, td.name, composeMultimapKey(key, v), nil)
	}
	return vals
}

// iterate visits each key with all of its values, both in ascending order.
func (em *engineMulti) iterate(fn func(key []byte, vals [][]byte) bool) {
	keyCmp := em.td.keyCmp
	var curKey []byte
	var curVals [][]byte
	stopped := false
	em.td.tree.Ascend(func(e rawEntry) bool {
		if curVals != nil && keyCmp(curKey, e.k) == 0 {
			curVals = append(curVals, e.v)
			return true
		}
		if curVals != nil && !fn(curKey, curVals) {
			stopped = true
			return false
		}
		curKey = e.k
		curVals = [][]byte{e.v}
		return true
	})
	if !stopped && curVals != nil {
		fn(curKey, curVals)
	}
}

