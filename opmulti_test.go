package strata

import (
	"cmp"
	"errors"
	"testing"
)

func TestMultimapInsert(t *testing.T) {
	forEachBacking(t, func(t *testing.T, db *DB) {
		existed, err := MultimapInsert(db, tagsMap, 1, "b")
		ck(t, err)
		deepEqual(t, existed, false)

		existed, err = MultimapInsert(db, tagsMap, 1, "a")
		ck(t, err)
		deepEqual(t, existed, false)

		existed, err = MultimapInsert(db, tagsMap, 1, "b")
		ck(t, err)
		deepEqual(t, existed, true)

		deepEqual(t, must(MultimapGet(db, tagsMap, 1)), []string{"a", "b"})
		isempty(t, must(MultimapGet(db, tagsMap, 2)))
	})
}

func TestMultimapInsertValues(t *testing.T) {
	db := setup(t)

	had, err := MultimapInsertValues(db, tagsMap, 1, []string{"b", "a"})
	ck(t, err)
	deepEqual(t, had, false)

	had, err = MultimapInsertValues(db, tagsMap, 1, []string{"c", "a"})
	ck(t, err)
	deepEqual(t, had, true)

	deepEqual(t, must(MultimapGet(db, tagsMap, 1)), []string{"a", "b", "c"})
}

func TestMultimapAssign(t *testing.T) {
	db := setup(t)
	_, err := MultimapInsertValues(db, tagsMap, 1, []string{"a", "b"})
	ck(t, err)

	had, err := MultimapAssign(db, tagsMap, 1, []string{"c"})
	ck(t, err)
	deepEqual(t, had, true)
	deepEqual(t, must(MultimapGet(db, tagsMap, 1)), []string{"c"})

	had, err = MultimapAssign(db, tagsMap, 2, []string{"x"})
	ck(t, err)
	deepEqual(t, had, false)
	deepEqual(t, must(MultimapGet(db, tagsMap, 2)), []string{"x"})
}

func TestMultimapRemove(t *testing.T) {
	db := setup(t)
	_, err := MultimapInsertValues(db, tagsMap, 1, []string{"a", "b", "c"})
	ck(t, err)

	existed, err := MultimapRemove(db, tagsMap, 1, "b")
	ck(t, err)
	deepEqual(t, existed, true)

	existed, err = MultimapRemove(db, tagsMap, 1, "b")
	ck(t, err)
	deepEqual(t, existed, false)

	deepEqual(t, must(MultimapGet(db, tagsMap, 1)), []string{"a", "c"})
}

func TestMultimapRemoveAll(t *testing.T) {
	db := setup(t)
	_, err := MultimapInsertValues(db, tagsMap, 1, []string{"c", "a", "b"})
	ck(t, err)

	removed, err := MultimapRemoveAll(db, tagsMap, 1)
	ck(t, err)
	deepEqual(t, removed, []string{"a", "b", "c"})
	isempty(t, must(MultimapGet(db, tagsMap, 1)))

	removed, err = MultimapRemoveAll(db, tagsMap, 1)
	ck(t, err)
	isempty(t, removed)
}

func TestMultimapAll(t *testing.T) {
	db := setup(t)
	ck(t, MultimapBatchInsert(db, tagsMap, []MultimapEntry[ID, string]{
		{2, []string{"y"}},
		{1, []string{"b", "a"}},
		{2, []string{"x"}},
	}))

	deepEqual(t, must(MultimapAll(db, tagsMap)), []MultimapEntry[ID, string]{
		{1, []string{"a", "b"}},
		{2, []string{"x", "y"}},
	})
}

func TestMultimapCustomValueOrder(t *testing.T) {
	db := setup(t)
	desc := NewMultimapCmp[ID, string]("DescTags", cmp.Compare[ID], func(a, b string) int {
		return cmp.Compare(b, a)
	})
	_, err := MultimapInsertValues(db, desc, 1, []string{"a", "c", "b"})
	ck(t, err)
	deepEqual(t, must(MultimapGet(db, desc, 1)), []string{"c", "b", "a"})
}

func TestClearMultimapTable(t *testing.T) {
	forEachBacking(t, func(t *testing.T, db *DB) {
		_, err := MultimapInsertValues(db, tagsMap, 1, []string{"a", "b"})
		ck(t, err)
		_, err = MultimapInsertValues(db, tagsMap, 2, []string{"c"})
		ck(t, err)

		ck(t, ClearMultimapTable(db, tagsMap))
		isempty(t, must(MultimapAll(db, tagsMap)))

		// Cleared, not deleted.
		_, err = MultimapInsert(db, tagsMap, 3, "z")
		ck(t, err)
		deepEqual(t, must(MultimapGet(db, tagsMap, 3)), []string{"z"})
	})
}

func TestDeleteMultimapTable(t *testing.T) {
	db := setup(t)
	_, err := MultimapInsert(db, tagsMap, 1, "a")
	ck(t, err)

	existed, err := DeleteMultimapTable(db, tagsMap)
	ck(t, err)
	deepEqual(t, existed, true)

	existed, err = DeleteMultimapTable(db, tagsMap)
	ck(t, err)
	deepEqual(t, existed, false)
}

func TestMultimapKindMismatch(t *testing.T) {
	db := setup(t)
	_, err := MultimapInsert(db, tagsMap, 1, "a")
	ck(t, err)

	bad := NewTable[ID, string]("Tags")
	_, _, err = Get(db, bad, 1)
	var te *TableError
	if !errors.As(err, &te) {
		t.Errorf("** got %v, wanted a TableError", err)
	}
}
