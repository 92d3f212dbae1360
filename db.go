package strata

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/btree"
)

// BackingKind selects the storage layer that persists table data.
type BackingKind int

const (
	// BackingBolt stores everything in a single Bolt file. The default.
	BackingBolt BackingKind = iota
	// BackingPebble stores everything in a Pebble directory.
	BackingPebble
	// BackingMemory keeps data in memory only. Nothing survives Close.
	BackingMemory
)

type Options struct {
	Backing BackingKind

	// Logf sinks all logging. Defaults to log.Printf.
	Logf    func(format string, args ...any)
	Verbose bool

	// IsTesting trades durability for speed: file sync is disabled and
	// initial file sizes are kept small.
	IsTesting bool
}

// DB is a database of typed tables. All methods are safe for concurrent use.
type DB struct {
	eng     *engine
	logf    func(format string, args ...any)
	verbose bool

	savepointsMu sync.Mutex
	savepoints   *btree.BTreeG[*Savepoint]

	tempPath string

	ReadCount  atomic.Uint64
	WriteCount atomic.Uint64
}

// Open opens or creates a database at path. For BackingBolt path is a file,
// for BackingPebble a directory; BackingMemory ignores it.
func Open(path string, opt Options) (*DB, error) {
	back, err := openBacking(path, opt)
	if err != nil {
		return nil, fmt.Errorf("strata: %w", err)
	}
	eng, err := newEngine(back)
	if err != nil {
		return nil, fmt.Errorf("strata: %w", err)
	}

	logf := opt.Logf
	if logf == nil {
		logf = log.Printf
	}
	return &DB{
		eng:     eng,
		logf:    logf,
		verbose: opt.Verbose,
		savepoints: btree.NewG[*Savepoint](btreeDegree, func(a, b *Savepoint) bool {
			return a.ID < b.ID
		}),
	}, nil
}

// OpenTemp opens a database backed by a freshly created temporary location.
// The caller owns the location; remove TempPath after Close to clean up.
func OpenTemp(opt Options) (*DB, error) {
	var path string
	switch opt.Backing {
	case BackingBolt:
		f, err := os.CreateTemp("", "strata-*.db")
		if err != nil {
			return nil, fmt.Errorf("strata: %w", err)
		}
		path = f.Name()
		if err := f.Close(); err != nil {
			os.Remove(path)
			return nil, fmt.Errorf("strata: %w", err)
		}
	case BackingPebble:
		dir, err := os.MkdirTemp("", "strata-*")
		if err != nil {
			return nil, fmt.Errorf("strata: %w", err)
		}
		path = dir
	}

	db, err := Open(path, opt)
	if err != nil {
		if path != "" {
			os.RemoveAll(path)
		}
		return nil, err
	}
	db.tempPath = path
	return db, nil
}

func openBacking(path string, opt Options) (backing, error) {
	switch opt.Backing {
	case BackingBolt:
		return openBoltBacking(path, opt)
	case BackingPebble:
		return openPebbleBacking(path, opt)
	case BackingMemory:
		return newMemBacking(), nil
	default:
		panic(fmt.Errorf("unknown backing kind %d", opt.Backing))
	}
}

// Close releases all savepoints and shuts the database down, waiting for an
// in-flight write to finish first. Safe to call more than once.
func (db *DB) Close() {
	db.ClearSavepoints()
	if err := db.eng.close(); err != nil {
		panic(fmt.Errorf("strata: closing: %w", err))
	}
}

// TempPath returns the path created by OpenTemp, if any.
func (db *DB) TempPath() string {
	return db.tempPath
}

// Size returns the backing's disk footprint in bytes.
func (db *DB) Size() int64 {
	return db.eng.back.size()
}

// Compact asks the backing to reclaim unused space, blocking writes for the
// duration. Returns whether the footprint shrank; backings that cannot
// compact report false.
func (db *DB) Compact() (bool, error) {
	tx, err := db.eng.beginWrite()
	if err != nil {
		return false, fmt.Errorf("strata: %w", err)
	}
	defer tx.abort()

	shrank, err := db.eng.back.compact()
	if err != nil {
		return false, fmt.Errorf("strata: %w", err)
	}
	if db.verbose {
		db.logf("db: COMPACT => %v (%d bytes)", shrank, db.eng.back.size())
	}
	return shrank, nil
}

// DataLocalPath returns a per-user directory suitable for storing appName's
// database, following platform conventions. The directory is created if
// needed.
func DataLocalPath(appName string) (string, error) {
	var base string
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, "Library", "Application Support")
	case "windows":
		base = os.Getenv("LocalAppData")
		if base == "" {
			return "", fmt.Errorf("LocalAppData not set")
		}
	default:
		base = os.Getenv("XDG_DATA_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			base = filepath.Join(home, ".local", "share")
		}
	}
	dir := filepath.Join(base, appName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// now is separated out for tests.
var now = time.Now
