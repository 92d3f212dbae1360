package strata

import (
	"bytes"
	"cmp"
	"errors"
	"testing"
)

func TestEncodeRoundTrip(t *testing.T) {
	roundTrip(t, int(-5))
	roundTrip(t, uint32(7))
	roundTrip(t, int64(1<<40))
	roundTrip(t, "hello")
	roundTrip(t, "")
	roundTrip(t, true)
	roundTrip(t, 3.25)
	roundTrip(t, ID(42))
	roundTrip(t, Item{A: 10, B: "ten"})
	roundTrip(t, []string{"a", "b"})
	roundTrip(t, map[string]int{"a": 1, "b": 2})
}

func roundTrip[T any](t *testing.T, v T) {
	t.Helper()
	raw := encodeValue(nil, v)
	if len(raw) == 0 {
		t.Fatalf("** empty encoding for %v", v)
	}
	var got T
	ck(t, decodeValue(raw, &got))
	deepEqual(t, got, v)
}

func TestEncodeDeterministic(t *testing.T) {
	v := map[string]int{"b": 2, "a": 1, "c": 3}
	first := encodeValue(nil, v)
	for i := 0; i < 5; i++ {
		if raw := encodeValue(nil, v); !bytes.Equal(raw, first) {
			t.Fatalf("** got %x, wanted %x", raw, first)
		}
	}
}

func TestDecodeError(t *testing.T) {
	var v int
	err := decodeValue(x("c1"), &v)
	var de *DataError
	if !errors.As(err, &de) {
		t.Fatalf("** got %v, wanted a DataError", err)
	}
}

func TestRawCompare(t *testing.T) {
	rc := rawCompare(cmp.Compare[int])
	keys := []int{-300, -5, -1, 0, 1, 3, 300}
	for _, a := range keys {
		for _, b := range keys {
			got := sign(rc(encodeValue(nil, a), encodeValue(nil, b)))
			want := cmp.Compare(a, b)
			if got != want {
				t.Errorf("** compare(%d, %d): got %d, wanted %d", a, b, got, want)
			}
		}
	}

	// The byte encoding does not sort like the values do, which is the
	// whole reason comparisons decode first.
	if bytes.Compare(encodeValue(nil, 3), encodeValue(nil, -5)) < 0 {
		if rc(encodeValue(nil, 3), encodeValue(nil, -5)) <= 0 {
			t.Errorf("** got raw byte ordering, wanted value ordering")
		}
	}
}

func TestRawCompareWithMin(t *testing.T) {
	rc := rawCompareWithMin(cmp.Compare[string])
	deepEqual(t, rc(nil, nil), 0)
	deepEqual(t, rc(nil, encodeValue(nil, "")), -1)
	deepEqual(t, rc(encodeValue(nil, ""), nil), 1)
	deepEqual(t, sign(rc(encodeValue(nil, "a"), encodeValue(nil, "b"))), -1)
}

func TestRawCompareCorruptPanics(t *testing.T) {
	rc := rawCompare(cmp.Compare[int])
	defer func() {
		e := recover()
		if e == nil {
			t.Fatalf("** no panic on corrupt bytes")
		}
		err, ok := e.(error)
		var de *DataError
		if !ok || !errors.As(err, &de) {
			t.Errorf("** got %v, wanted a DataError", e)
		}
	}()
	rc(x("c1"), encodeValue(nil, 1))
}

func sign(n int) int {
	if n < 0 {
		return -1
	} else if n > 0 {
		return 1
	}
	return 0
}
