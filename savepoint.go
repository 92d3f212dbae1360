package strata

import (
	"fmt"
	"time"
)

// Savepoint is a restorable point in the database's history. Taking one is
// cheap: table contents are shared with live state until either side
// changes. Savepoints live in memory only and do not survive reopening.
type Savepoint struct {
	ID        uint64
	CreatedAt time.Time

	cp *checkpoint
}

// Savepoint captures the current state and returns its id. Ids grow
// monotonically: one more than the highest live id, or 0 when none exist.
func (db *DB) Savepoint() (uint64, error) {
	tx, err := db.eng.beginWrite()
	if err != nil {
		return 0, txErr("begin write", err)
	}
	cp := tx.checkpoint()

	db.savepointsMu.Lock()
	var id uint64
	if max, ok := db.savepoints.Max(); ok {
		id = max.ID + 1
	}
	db.savepoints.ReplaceOrInsert(&Savepoint{ID: id, CreatedAt: now(), cp: cp})
	db.savepointsMu.Unlock()

	if err := tx.commit(); err != nil {
		return 0, txErr("commit", err)
	}
	if db.verbose {
		db.logf("db: SAVEPOINT => %d", id)
	}
	return id, nil
}

// LoadSavepoint rewinds the database to the state captured by savepoint id.
// Rewinding invalidates every savepoint taken after the restored point; the
// restored one itself stays loadable. An unknown id is an ErrNotFound
// failure.
func (db *DB) LoadSavepoint(id uint64) error {
	tx, err := db.eng.beginWrite()
	if err != nil {
		return txErr("begin write", err)
	}

	db.savepointsMu.Lock()
	sp, ok := db.savepoints.Get(&Savepoint{ID: id})
	if !ok {
		db.savepointsMu.Unlock()
		tx.abort()
		return fmt.Errorf("savepoint %d: %w", id, ErrNotFound)
	}
	tx.restore(sp.cp)
	if err := tx.commit(); err != nil {
		db.savepointsMu.Unlock()
		return txErr("commit", err)
	}
	db.WriteCount.Add(1)

	var doomed []*Savepoint
	db.savepoints.AscendGreaterOrEqual(&Savepoint{ID: id + 1}, func(s *Savepoint) bool {
		doomed = append(doomed, s)
		return true
	})
	for _, s := range doomed {
		db.savepoints.Delete(s)
	}
	db.savepointsMu.Unlock()

	if db.verbose {
		db.logf("db: SAVEPOINT.LOAD %d => dropped %d later savepoints", id, len(doomed))
	}
	return nil
}

// Savepoints lists the live savepoints in ascending id order.
func (db *DB) Savepoints() []Savepoint {
	db.savepointsMu.Lock()
	defer db.savepointsMu.Unlock()

	out := make([]Savepoint, 0, db.savepoints.Len())
	db.savepoints.Ascend(func(s *Savepoint) bool {
		sp := *s
		sp.cp = nil
		out = append(out, sp)
		return true
	})
	return out
}

// ClearSavepoints drops every savepoint. The next one created gets id 0.
func (db *DB) ClearSavepoints() {
	db.savepointsMu.Lock()
	defer db.savepointsMu.Unlock()
	db.savepoints.Clear(false)
}
