package strata

import (
	"errors"
	"path/filepath"
	"testing"
)

var extraTable = NewTable[ID, Item]("Extra")

func TestSavepointRoundTrip(t *testing.T) {
	forEachBacking(t, func(t *testing.T, db *DB) {
		_, _, err := Insert(db, itemsTable, 1, Item{10, "ten"})
		ck(t, err)
		_, _, err = Insert(db, itemsTable, 2, Item{20, "twenty"})
		ck(t, err)
		_, err = MultimapInsertValues(db, tagsMap, 1, []string{"a", "b"})
		ck(t, err)

		sp := must(db.Savepoint())

		_, _, err = Insert(db, itemsTable, 3, Item{30, "thirty"})
		ck(t, err)
		_, _, err = Remove(db, itemsTable, 1)
		ck(t, err)
		_, err = Update(db, itemsTable, 2, func(v *Item) { v.B = "CHANGED" })
		ck(t, err)
		_, err = MultimapAssign(db, tagsMap, 1, []string{"c"})
		ck(t, err)
		_, _, err = Insert(db, extraTable, 7, Item{7, "seven"})
		ck(t, err)

		ck(t, db.LoadSavepoint(sp))

		deepEqual(t, must(All(db, itemsTable)), []Entry[ID, Item]{
			{1, Item{10, "ten"}},
			{2, Item{20, "twenty"}},
		})
		deepEqual(t, must(MultimapGet(db, tagsMap, 1)), []string{"a", "b"})
		isempty(t, must(All(db, extraTable)))

		// Writes after a restore behave normally.
		_, _, err = Insert(db, itemsTable, 4, Item{40, "forty"})
		ck(t, err)
		deepEqual(t, getOK(t, db, itemsTable, 4), Item{40, "forty"})
	})
}

func TestSavepointRestorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.db")

	db := must(Open(path, Options{IsTesting: true}))
	_, _, err := Insert(db, itemsTable, 1, Item{10, "ten"})
	ck(t, err)
	sp := must(db.Savepoint())
	_, _, err = Insert(db, itemsTable, 2, Item{20, "twenty"})
	ck(t, err)
	_, _, err = Insert(db, extraTable, 7, Item{7, "seven"})
	ck(t, err)
	ck(t, db.LoadSavepoint(sp))
	db.Close()

	db = must(Open(path, Options{IsTesting: true}))
	defer db.Close()
	deepEqual(t, getOK(t, db, itemsTable, 1), Item{10, "ten"})
	getNone(t, db, itemsTable, 2)
	isempty(t, must(All(db, extraTable)))
}

func TestSavepointInvalidation(t *testing.T) {
	db := setup(t)
	_, _, err := Insert(db, itemsTable, 1, Item{1, "one"})
	ck(t, err)
	p1 := must(db.Savepoint())
	_, _, err = Insert(db, itemsTable, 2, Item{2, "two"})
	ck(t, err)
	p2 := must(db.Savepoint())

	ck(t, db.LoadSavepoint(p1))
	getNone(t, db, itemsTable, 2)

	// Loading p1 dropped everything after it, p2 included.
	if err := db.LoadSavepoint(p2); !errors.Is(err, ErrNotFound) {
		t.Errorf("** got %v, wanted ErrNotFound", err)
	}

	// p1 itself survives and can be loaded again.
	ck(t, db.LoadSavepoint(p1))
	deepEqual(t, getOK(t, db, itemsTable, 1), Item{1, "one"})
}

func TestSavepointIDs(t *testing.T) {
	db := setup(t)
	deepEqual(t, must(db.Savepoint()), 0)
	deepEqual(t, must(db.Savepoint()), 1)
	deepEqual(t, must(db.Savepoint()), 2)

	ck(t, db.LoadSavepoint(0))
	deepEqual(t, must(db.Savepoint()), 1)

	var ids []uint64
	for _, sp := range db.Savepoints() {
		ids = append(ids, sp.ID)
		if sp.CreatedAt.IsZero() {
			t.Errorf("** savepoint %d has zero CreatedAt", sp.ID)
		}
	}
	deepEqual(t, ids, []uint64{0, 1})

	db.ClearSavepoints()
	isempty(t, db.Savepoints())
	deepEqual(t, must(db.Savepoint()), 0)
}

func TestSavepointUnknown(t *testing.T) {
	db := setup(t)
	if err := db.LoadSavepoint(99); !errors.Is(err, ErrNotFound) {
		t.Errorf("** got %v, wanted ErrNotFound", err)
	}
}
