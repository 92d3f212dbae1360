package strata

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound reports that something the operation requires is absent:
// Update on a missing key, LoadSavepoint with an unknown id. Test with
// errors.Is; the returned error carries the details.
var ErrNotFound = errors.New("not found")

// ErrClosed is returned by operations on a closed database.
var ErrClosed = errors.New("database closed")

// errTableMissing is how the engine reports a table that was never created
// to a read transaction; the access layer reacts by creating it.
var errTableMissing = errors.New("table does not exist")

// DataError means stored bytes could not be decoded. It carries the
// offending data; Error() hex-dumps a truncated version of it.
type DataError struct {
	Data []byte
	Off  int
	Err  error
	Msg  string
}

func dataErrf(data []byte, off int, err error, format string, args ...any) error {
	return &DataError{data, off, err, fmt.Sprintf(format, args...)}
}

func (e *DataError) Unwrap() error {
	return e.Err
}

func (e *DataError) Error() string {
	const prefixLen = 64
	const suffixLen = 32
	n := len(e.Data)
	if n <= prefixLen+suffixLen {
		if e.Err != nil {
			return fmt.Sprintf("%s: %v: (%d) %x", e.Msg, e.Err, n, e.Data)
		} else {
			return fmt.Sprintf("%s: (%d) %x", e.Msg, n, e.Data)
		}
	} else {
		p, s := e.Data[:prefixLen], e.Data[n-suffixLen:]
		if e.Err != nil {
			return fmt.Sprintf("%s: %v: (%d) %x...%x", e.Msg, e.Err, n, p, s)
		} else {
			return fmt.Sprintf("%s: (%d) %x...%x", e.Msg, n, p, s)
		}
	}
}

// TableError means a table could not be opened or changed: a declaration
// mismatch against stored metadata, or a lifecycle failure.
type TableError struct {
	Table string
	Msg   string
	Err   error
}

func tableErrf(table string, err error, format string, args ...any) error {
	return &TableError{table, fmt.Sprintf(format, args...), err}
}

func (e *TableError) Unwrap() error {
	return e.Err
}

func (e *TableError) Error() string {
	var buf strings.Builder
	buf.WriteString(e.Table)
	if e.Msg != "" {
		buf.WriteString(": ")
		buf.WriteString(e.Msg)
		if e.Err != nil {
			buf.WriteString(": ")
			buf.WriteString(e.Err.Error())
		}
	} else if e.Err != nil {
		buf.WriteString(": ")
		buf.WriteString(e.Err.Error())
	}
	return buf.String()
}

// TxError means a transaction could not begin or commit; the wrapped cause
// comes from the engine or its backing store.
type TxError struct {
	Op  string
	Err error
}

func txErr(op string, err error) error {
	return &TxError{op, err}
}

func (e *TxError) Unwrap() error {
	return e.Err
}

func (e *TxError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}
