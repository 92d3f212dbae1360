package strata

import (
	"strconv"
	"testing"
)

var rangeTable = NewTable[int, string]("RangeInts")

func rangeSetup(t testing.TB) *DB {
	t.Helper()
	db := setup(t)
	for _, k := range []int{300, -5, 0, 3, -1} {
		_, _, err := Insert(db, rangeTable, k, strconv.Itoa(k))
		ck(t, err)
	}
	return db
}

func TestRange(t *testing.T) {
	db := rangeSetup(t)

	o := func(name string, r KeyRange[int], exp ...int) {
		t.Helper()
		t.Run(name, func(t *testing.T) {
			var got []int
			for _, e := range must(Range(db, rangeTable, r)) {
				deepEqual(t, e.Value, strconv.Itoa(e.Key))
				got = append(got, e.Key)
			}
			deepEqual(t, got, exp)
		})
	}

	o("full", RangeOO[int](), -5, -1, 0, 3, 300)

	o("lower inc", RangeIO(-1), -1, 0, 3, 300)
	o("lower exc", RangeEO(-1), 0, 3, 300)
	o("lower inc absent", RangeIO(-2), -1, 0, 3, 300)
	o("lower exc absent", RangeEO(-2), -1, 0, 3, 300)

	o("upper inc", RangeOI(3), -5, -1, 0, 3)
	o("upper exc", RangeOE(3), -5, -1, 0)
	o("upper inc absent", RangeOI(2), -5, -1, 0)

	o("both inc", RangeII(-1, 3), -1, 0, 3)
	o("inc exc", RangeIE(-1, 3), -1, 0)
	o("exc inc", RangeEI(-1, 3), 0, 3)
	o("both exc", RangeEE(-1, 3), 0)

	o("wide", RangeII(-1000, 1000), -5, -1, 0, 3, 300)
	o("empty window", RangeII(5, 7))
	o("inverted", RangeII(3, -1))
}

func TestFind(t *testing.T) {
	db := rangeSetup(t)
	even := func(k int, _ string) bool { return k%2 == 0 }
	odd := func(k int, _ string) bool { return k%2 != 0 }

	deepEqual(t, must(Find(db, rangeTable, RangeOO[int](), even)), &Entry[int, string]{0, "0"})
	deepEqual(t, must(RFind(db, rangeTable, RangeOO[int](), even)), &Entry[int, string]{300, "300"})
	deepEqual(t, must(Find(db, rangeTable, RangeEO(0), even)), &Entry[int, string]{300, "300"})
	isnil(t, must(Find(db, rangeTable, RangeII(1, 2), even)))
	isnil(t, must(Find(db, rangeTable, RangeOO[int](), func(_ int, v string) bool { return v == "nope" })))

	deepEqual(t, must(FindNth(db, rangeTable, 0, odd)), &Entry[int, string]{-5, "-5"})
	deepEqual(t, must(FindNth(db, rangeTable, 1, odd)), &Entry[int, string]{-1, "-1"})
	deepEqual(t, must(FindNth(db, rangeTable, 2, odd)), &Entry[int, string]{3, "3"})
	isnil(t, must(FindNth(db, rangeTable, 3, odd)))
	isnil(t, must(FindNth(db, rangeTable, -1, odd)))
}

func TestCountMatches(t *testing.T) {
	db := rangeSetup(t)
	deepEqual(t, must(CountMatches(db, rangeTable, func(k int, _ string) bool { return k%2 != 0 })), 3)
	deepEqual(t, must(CountMatches(db, rangeTable, func(k int, _ string) bool { return false })), 0)
}

func TestFilter(t *testing.T) {
	db := rangeSetup(t)
	deepEqual(t, must(Filter(db, rangeTable, func(k int, _ string) bool { return k < 0 })), []Entry[int, string]{
		{-5, "-5"},
		{-1, "-1"},
	})
	isempty(t, must(Filter(db, rangeTable, func(int, string) bool { return false })))

	deepEqual(t, must(FilterKeys(db, rangeTable, func(k int) bool { return k > 0 })), []int{3, 300})
}
