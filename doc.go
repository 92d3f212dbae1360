/*
Package strata implements typed tables on top of an ordered transactional
key-value store (Bolt or Pebble, or plain memory for tests).

We implement:

1. Tables, ordered collections of key => value entries; keys and values are
arbitrary MsgPack-encodable Go types.

2. Multimap tables, mapping each key to a set of values kept in value order.

3. Batch operations, running a whole sequence of edits inside exactly one
write transaction.

4. Savepoints, cheap restorable snapshots of the entire database.

# Technical Details

**Working set.**
The full content of every table lives in memory as copy-on-write B-trees.
Reads run against immutable published snapshots and never block; writes are
serialized, applied to cloned trees and written through to the backing store
when the transaction commits. Opening a database loads everything back.

**Ordering.**
Keys are ordered by their decoded values, not their encoded bytes: the
comparator decodes both sides on every comparison. Simple over fast, and it
frees key types from any order-preserving encoding requirement.

**Buckets.**
The backing store holds one bucket per table, named by prefixing the table
name with "t", plus a single metadata bucket "m" recording each table's kind
and declared key/value types. Bolt has native buckets; the Pebble backing
simulates them with length-prefixed key prefixes.

**Entry encoding.**
Keys and values are MsgPack, encoded with sorted map keys so equal values
produce equal bytes. A plain table stores key => value directly. A multimap
table stores one entry per (key, value) pair under the composite key
varbytes(key) + value, with an empty stored value.

**Savepoints.**
A savepoint captures the engine's state map; unchanged tables share their
trees with live data, so both taking and restoring one is cheap. Ids count
up from 0; restoring id N drops every savepoint with a higher id. Savepoints
are in-memory only and vanish on Close.
*/
package strata
