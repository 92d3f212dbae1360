package strata

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// encodeValue appends the MsgPack encoding of v to buf. Map keys are sorted
// so that logically equal values encode identically. Encoding can only fail
// on values Go cannot serialize at all, which is a programmer error.
func encodeValue(buf []byte, v any) []byte {
	bb := bytesBuilder{buf}
	enc := msgpack.GetEncoder()
	enc.Reset(&bb)
	enc.SetSortMapKeys(true)
	err := enc.Encode(v)
	msgpack.PutEncoder(enc)
	if err != nil {
		panic(fmt.Errorf("failed to encode %T using MsgPack: %w", v, err))
	}
	return bb.Buf
}

func decodeValue(buf []byte, ptr any) error {
	var r bytes.Reader
	r.Reset(buf)
	dec := msgpack.GetDecoder()
	dec.Reset(&r)
	err := dec.Decode(ptr)
	msgpack.PutDecoder(dec)
	if err != nil {
		return dataErrf(buf, 0, err, "failed to decode msgpack into %T", ptr)
	}
	return nil
}

// rawCompare adapts a typed comparison to encoded keys by decoding both
// sides. Simple over fast: ordering never depends on the byte encoding.
// Undecodable bytes mean the stored data is corrupt; tree walks cannot
// surface an error, so this panics with the DataError.
func rawCompare[T any](cmp func(a, b T) int) func(a, b []byte) int {
	return func(a, b []byte) int {
		var av, bv T
		if err := decodeValue(a, &av); err != nil {
			panic(err)
		}
		if err := decodeValue(b, &bv); err != nil {
			panic(err)
		}
		return cmp(av, bv)
	}
}

// rawCompareWithMin is rawCompare that treats empty bytes as smaller than
// everything; empty never occurs as stored data (MsgPack encodings are at
// least one byte), which frees it up as an iteration pivot.
func rawCompareWithMin[T any](cmp func(a, b T) int) func(a, b []byte) int {
	inner := rawCompare(cmp)
	return func(a, b []byte) int {
		if len(a) == 0 {
			if len(b) == 0 {
				return 0
			}
			return -1
		}
		if len(b) == 0 {
			return 1
		}
		return inner(a, b)
	}
}
