package strata

import (
	"fmt"
	"slices"
	"sync"

	"github.com/google/btree"
)

const btreeDegree = 32

// rawEntry is a single encoded row. Plain tables use k => v. Multimap tables
// store one entry per (key, value) pair, with the pair split across k and v.
type rawEntry struct {
	k []byte
	v []byte
}

// tableData holds one table's rows. Entries loaded from the backing sit in
// staged until the first typed access supplies comparators; after that the
// tree is authoritative and staged is nil.
//
// A tableData reachable from a published engineState is immutable except for
// the one-time staged-to-tree promotion, which happens under engine.mu.
// Writers clone before modifying.
type tableData struct {
	meta   tableMeta
	name   string
	staged []rawEntry
	tree   *btree.BTreeG[rawEntry]
	keyCmp func(a, b []byte) int
	valCmp func(a, b []byte) int
	less   btree.LessFunc[rawEntry]
}

func (td *tableData) check(info tableInfo) error {
	if td.meta.kind != info.kind {
		return tableErrf(info.name, nil, "already exists as a %s, not a %s", kindName(td.meta.kind), kindName(info.kind))
	}
	if td.meta.keyType != info.keyType || td.meta.valType != info.valType {
		return tableErrf(info.name, nil, "already holds %s => %s, not %s => %s", td.meta.keyType, td.meta.valType, info.keyType, info.valType)
	}
	return nil
}

// engineState is an immutable snapshot of all tables. Readers hold a pointer
// to one and never see later changes.
type engineState struct {
	tables map[string]*tableData
}

func newEngineState() *engineState {
	return &engineState{tables: make(map[string]*tableData)}
}

func (st *engineState) clone() *engineState {
	tables := make(map[string]*tableData, len(st.tables))
	for name, td := range st.tables {
		tables[name] = td
	}
	return &engineState{tables: tables}
}

// checkpoint captures a state for later restoration. Cheap to take: table
// contents are shared, not copied.
type checkpoint struct {
	state *engineState
}

// engine keeps the authoritative copy of all tables in memory and writes
// changes through to the backing on commit. Reads are served from published
// snapshots without touching the backing.
type engine struct {
	mu     sync.Mutex
	cond   *sync.Cond
	back   backing
	state  *engineState
	writer bool
	closed bool
}

func newEngine(back backing) (*engine, error) {
	eng := &engine{back: back, state: newEngineState()}
	eng.cond = sync.NewCond(&eng.mu)
	if err := eng.load(); err != nil {
		back.close()
		return nil, err
	}
	return eng, nil
}

func (eng *engine) load() error {
	btx, err := eng.back.beginTx(false)
	if err != nil {
		return err
	}
	defer btx.rollback()

	mb := btx.bucket(metaBucket)
	if mb == nil {
		return nil
	}

	err = mb.foreach(func(k, v []byte) error {
		name := string(k)
		meta, err := decodeTableMeta(slices.Clone(v))
		if err != nil {
			return tableErrf(name, err, "loading table metadata")
		}
		td := &tableData{meta: meta, name: name}

		b := btx.bucket(tableBucket(name))
		if b == nil {
			eng.state.tables[name] = td
			return nil
		}
		err = b.foreach(func(k, v []byte) error {
			switch meta.kind {
			case kindMultimap:
				k2 := slices.Clone(k)
				d := makeByteDecoder(k2)
				key, err := d.VarBytes()
				if err != nil {
					return tableErrf(name, err, "loading multimap entry")
				}
				td.staged = append(td.staged, rawEntry{k: key, v: d.Buf})
			default:
				td.staged = append(td.staged, rawEntry{k: slices.Clone(k), v: slices.Clone(v)})
			}
			return nil
		})
		if err != nil {
			return err
		}
		eng.state.tables[name] = td
		return nil
	})
	return err
}

func (eng *engine) beginRead() (*etx, error) {
	eng.mu.Lock()
	defer eng.mu.Unlock()
	if eng.closed {
		return nil, ErrClosed
	}
	return &etx{eng: eng, base: eng.state, state: eng.state}, nil
}

func (eng *engine) beginWrite() (*etx, error) {
	eng.mu.Lock()
	defer eng.mu.Unlock()
	for eng.writer && !eng.closed {
		eng.cond.Wait()
	}
	if eng.closed {
		return nil, ErrClosed
	}
	eng.writer = true
	return &etx{
		eng:      eng,
		writable: true,
		base:     eng.state,
		state:    eng.state.clone(),
		owned:    make(map[*tableData]bool),
	}, nil
}

func (eng *engine) close() error {
	eng.mu.Lock()
	for eng.writer {
		eng.cond.Wait()
	}
	if eng.closed {
		eng.mu.Unlock()
		return nil
	}
	eng.closed = true
	eng.cond.Broadcast()
	eng.mu.Unlock()
	return eng.back.close()
}

const (
	bkPut = iota
	bkDelete
	bkCreate
	bkDrop
	bkClear
)

// backOp is one pending change to replay against the backing at commit time.
// For multimap tables the key is already in composed storage form.
type backOp struct {
	kind  int
	table string
	key   []byte
	value []byte
}

// etx is an engine transaction. Read transactions are snapshot views and can
// run concurrently; write transactions are serialized by the engine.
type etx struct {
	eng      *engine
	writable bool
	base     *engineState
	state    *engineState
	ops      []backOp
	owned    map[*tableData]bool
	restored bool
	done     bool
}

func (tx *etx) noteOp(kind int, table string, key, value []byte) {
	if tx.restored {
		return // commit rewrites changed tables wholesale after a restore
	}
	tx.ops = append(tx.ops, backOp{kind: kind, table: table, key: key, value: value})
}

// table resolves info against the transaction's state, creating the table on
// a write transaction and returning errTableMissing on a read-only one.
func (tx *etx) table(info tableInfo) (*tableData, error) {
	td := tx.state.tables[info.name]
	if td == nil {
		if !tx.writable {
			return nil, errTableMissing
		}
		td = &tableData{
			meta:   tableMeta{kind: info.kind, keyType: info.keyType, valType: info.valType},
			name:   info.name,
			tree:   btree.NewG[rawEntry](btreeDegree, entryLess(info)),
			keyCmp: info.keyCmp,
			valCmp: info.valCmp,
		}
		td.less = entryLess(info)
		tx.state.tables[info.name] = td
		tx.owned[td] = true
		tx.noteOp(bkCreate, info.name, nil, td.meta.encode(nil))
		return td, nil
	}
	if err := td.check(info); err != nil {
		return nil, err
	}
	tx.eng.ensureTree(td, info)
	return td, nil
}

func entryLess(info tableInfo) btree.LessFunc[rawEntry] {
	keyCmp, valCmp := info.keyCmp, info.valCmp
	if info.kind == kindMultimap {
		return func(a, b rawEntry) bool {
			if c := keyCmp(a.k, b.k); c != 0 {
				return c < 0
			}
			return valCmp(a.v, b.v) < 0
		}
	}
	return func(a, b rawEntry) bool {
		return keyCmp(a.k, b.k) < 0
	}
}

// ensureTree promotes staged entries into a searchable tree once comparators
// are known. Idempotent; shared tableData values are only ever promoted under
// engine.mu so concurrent snapshots observe either nil or a fully built tree.
func (eng *engine) ensureTree(td *tableData, info tableInfo) {
	eng.mu.Lock()
	defer eng.mu.Unlock()
	if td.tree != nil {
		return
	}
	td.keyCmp = info.keyCmp
	td.valCmp = info.valCmp
	td.less = entryLess(info)
	tree := btree.NewG[rawEntry](btreeDegree, td.less)
	for _, e := range td.staged {
		tree.ReplaceOrInsert(e)
	}
	td.staged = nil
	td.tree = tree
}

// mutable returns a tableData the transaction may modify in place, cloning
// the shared one on first touch.
func (tx *etx) mutable(td *tableData) *tableData {
	if tx.owned[td] {
		return td
	}
	ntd := &tableData{
		meta:   td.meta,
		name:   td.name,
		tree:   td.tree.Clone(),
		keyCmp: td.keyCmp,
		valCmp: td.valCmp,
		less:   td.less,
	}
	tx.state.tables[td.name] = ntd
	tx.owned[ntd] = true
	return ntd
}

func (tx *etx) deleteTable(info tableInfo) (bool, error) {
	td := tx.state.tables[info.name]
	if td == nil {
		return false, nil
	}
	if err := td.check(info); err != nil {
		return false, err
	}
	delete(tx.state.tables, info.name)
	delete(tx.owned, td)
	tx.noteOp(bkDrop, info.name, nil, nil)
	return true, nil
}

// checkpoint captures the transaction's current state. Tables touched so far
// become copy-on-write again so later changes cannot leak into the capture.
func (tx *etx) checkpoint() *checkpoint {
	cp := &checkpoint{state: tx.state.clone()}
	clear(tx.owned)
	return cp
}

// restore rewinds the transaction to a previously captured state. From here
// on the commit rewrites every table that differs from the base snapshot.
func (tx *etx) restore(cp *checkpoint) {
	tx.state = cp.state.clone()
	clear(tx.owned)
	tx.ops = nil
	tx.restored = true
}

func (tx *etx) commit() error {
	if tx.done {
		return nil
	}
	if !tx.writable {
		tx.done = true
		return nil
	}
	if len(tx.ops) == 0 && !tx.restored {
		tx.release()
		return nil
	}

	btx, err := tx.eng.back.beginTx(true)
	if err != nil {
		tx.release()
		return err
	}
	if tx.restored {
		err = writeRestoredState(btx, tx.base, tx.state)
	} else {
		err = applyBackOps(btx, tx.ops)
	}
	if err == nil {
		err = btx.commit()
	} else {
		btx.rollback()
	}
	if err != nil {
		tx.release()
		return err
	}

	eng := tx.eng
	eng.mu.Lock()
	eng.state = tx.state
	eng.writer = false
	eng.cond.Broadcast()
	eng.mu.Unlock()
	tx.done = true
	return nil
}

func (tx *etx) abort() {
	if tx.done {
		return
	}
	tx.release()
}

func (tx *etx) release() {
	tx.done = true
	if !tx.writable {
		return
	}
	eng := tx.eng
	eng.mu.Lock()
	eng.writer = false
	eng.cond.Broadcast()
	eng.mu.Unlock()
}

func applyBackOps(btx backingTx, ops []backOp) error {
	for _, op := range ops {
		switch op.kind {
		case bkCreate:
			mb, err := btx.createBucket(metaBucket)
			if err != nil {
				return err
			}
			if err := mb.put([]byte(op.table), op.value); err != nil {
				return err
			}
			if _, err := btx.createBucket(tableBucket(op.table)); err != nil {
				return err
			}
		case bkDrop:
			if mb := btx.bucket(metaBucket); mb != nil {
				if err := mb.delete([]byte(op.table)); err != nil {
					return err
				}
			}
			if err := btx.deleteBucket(tableBucket(op.table)); err != nil && err != errBucketNotFound {
				return err
			}
		case bkPut:
			b := btx.bucket(tableBucket(op.table))
			if b == nil {
				return fmt.Errorf("missing bucket for table %s", op.table)
			}
			if err := b.put(op.key, op.value); err != nil {
				return err
			}
		case bkDelete:
			b := btx.bucket(tableBucket(op.table))
			if b == nil {
				return fmt.Errorf("missing bucket for table %s", op.table)
			}
			if err := b.delete(op.key); err != nil {
				return err
			}
		case bkClear:
			b := btx.bucket(tableBucket(op.table))
			if b == nil {
				return fmt.Errorf("missing bucket for table %s", op.table)
			}
			if err := b.clear(); err != nil {
				return err
			}
		}
	}
	return nil
}

// writeRestoredState reconciles the backing with cur after a restore: tables
// missing from cur are dropped, tables whose data differs from base are
// rewritten in full. Unchanged tables share their tableData pointer with base
// and are skipped.
func writeRestoredState(btx backingTx, base, cur *engineState) error {
	for name := range base.tables {
		if cur.tables[name] == nil {
			if mb := btx.bucket(metaBucket); mb != nil {
				if err := mb.delete([]byte(name)); err != nil {
					return err
				}
			}
			if err := btx.deleteBucket(tableBucket(name)); err != nil && err != errBucketNotFound {
				return err
			}
		}
	}

	for name, td := range cur.tables {
		if base.tables[name] == td {
			continue
		}
		mb, err := btx.createBucket(metaBucket)
		if err != nil {
			return err
		}
		if err := mb.put([]byte(name), td.meta.encode(nil)); err != nil {
			return err
		}
		b := btx.bucket(tableBucket(name))
		if b == nil {
			b, err = btx.createBucket(tableBucket(name))
			if err != nil {
				return err
			}
		} else if err := b.clear(); err != nil {
			return err
		}
		if err := writeTableData(b, td); err != nil {
			return err
		}
	}
	return nil
}

func writeTableData(b backingBucket, td *tableData) error {
	put := func(e rawEntry) error {
		if td.meta.kind == kindMultimap {
			return b.put(composeMultimapKey(e.k, e.v), nil)
		}
		return b.put(e.k, e.v)
	}
	if td.tree != nil {
		var err error
		td.tree.Ascend(func(e rawEntry) bool {
			err = put(e)
			return err == nil
		})
		return err
	}
	for _, e := range td.staged {
		if err := put(e); err != nil {
			return err
		}
	}
	return nil
}
