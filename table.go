package strata

import (
	"cmp"
	"reflect"
)

// Entry is a single key-value pair of a plain table.
type Entry[K, V any] struct {
	Key   K
	Value V
}

// MultimapEntry is a key of a multimap table together with its full value
// set, values in ascending order.
type MultimapEntry[K, V any] struct {
	Key    K
	Values []V
}

const (
	kindTable = byte(iota + 1)
	kindMultimap
)

func kindName(kind byte) string {
	switch kind {
	case kindTable:
		return "table"
	case kindMultimap:
		return "multimap table"
	default:
		return "unknown"
	}
}

// tableInfo is what the engine needs to know about a declared table: its
// identity for the schema check, and byte comparators for ordering.
type tableInfo struct {
	name    string
	kind    byte
	keyType string
	valType string
	keyCmp  func(a, b []byte) int
	valCmp  func(a, b []byte) int // multimaps only
}

// Table declares a typed table: a named ordered map from K to V. Declare
// tables once, typically at package scope, and pass them to the operation
// functions. The zero value is not usable; use NewTable or NewTableCmp.
type Table[K comparable, V any] struct {
	ti tableInfo
}

// NewTable declares a table whose keys use their natural order.
func NewTable[K cmp.Ordered, V any](name string) *Table[K, V] {
	return NewTableCmp[K, V](name, cmp.Compare[K])
}

// NewTableCmp declares a table ordered by the given key comparison, which
// must define a total order over K values.
func NewTableCmp[K comparable, V any](name string, keyCmp func(a, b K) int) *Table[K, V] {
	if name == "" {
		panic("table name must not be empty")
	}
	if keyCmp == nil {
		panic("keyCmp == nil")
	}
	return &Table[K, V]{
		ti: tableInfo{
			name:    name,
			kind:    kindTable,
			keyType: typeName[K](),
			valType: typeName[V](),
			keyCmp:  rawCompare(keyCmp),
		},
	}
}

func (tbl *Table[K, V]) Name() string {
	return tbl.ti.name
}

// Multimap declares a typed multimap table: a named ordered map from K to
// an ordered set of V. The zero value is not usable; use NewMultimap or
// NewMultimapCmp.
type Multimap[K, V any] struct {
	ti tableInfo
}

// NewMultimap declares a multimap table whose keys and values use their
// natural orders.
func NewMultimap[K cmp.Ordered, V cmp.Ordered](name string) *Multimap[K, V] {
	return NewMultimapCmp[K, V](name, cmp.Compare[K], cmp.Compare[V])
}

// NewMultimapCmp declares a multimap table with the given key and value
// comparisons, each a total order.
func NewMultimapCmp[K, V any](name string, keyCmp func(a, b K) int, valCmp func(a, b V) int) *Multimap[K, V] {
	if name == "" {
		panic("table name must not be empty")
	}
	if keyCmp == nil || valCmp == nil {
		panic("keyCmp == nil || valCmp == nil")
	}
	return &Multimap[K, V]{
		ti: tableInfo{
			name:    name,
			kind:    kindMultimap,
			keyType: typeName[K](),
			valType: typeName[V](),
			keyCmp:  rawCompare(keyCmp),
			valCmp:  rawCompareWithMin(valCmp),
		},
	}
}

func (mm *Multimap[K, V]) Name() string {
	return mm.ti.name
}

func typeName[T any]() string {
	return reflect.TypeOf((*T)(nil)).Elem().String()
}
