package storage

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/orneryd/p3if/pkg/model"
)

// Key prefixes for BadgerDB storage organization
// Using single-byte prefixes for efficiency
const (
	prefixPattern      = byte(0x01) // pattern:patternID -> storedPattern
	prefixRelationship = byte(0x02) // relationship:relationshipID -> storedRelationship
	prefixSequence     = byte(0x03) // insertion sequence lease
)

// sequenceBandwidth is how many sequence numbers are leased per disk write.
const sequenceBandwidth = 128

// BadgerPersistence mirrors the store into BadgerDB.
//
// Key Structure:
//   - Patterns: 0x01 + patternID -> JSON(storedPattern)
//   - Relationships: 0x02 + relationshipID -> JSON(storedRelationship)
//   - Sequence: 0x03 -> badger.Sequence lease
//
// Each value carries the sequence number of its first save so LoadAll can
// restore insertion order.
//
// Example:
//
//	backend, err := storage.NewBadgerPersistence(storage.BadgerOptions{DataDir: "./data/p3if"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer backend.Close()
//
//	store := storage.NewStore(storage.Options{Persistence: backend})
type BadgerPersistence struct {
	db     *badger.DB
	seq    *badger.Sequence
	mu     sync.RWMutex
	closed bool
}

// BadgerOptions configures the BadgerDB backend.
type BadgerOptions struct {
	// DataDir is the directory for storing data files.
	// Required unless InMemory is set.
	DataDir string

	// InMemory runs BadgerDB in memory-only mode.
	// Useful for testing. Data is not persisted.
	InMemory bool

	// SyncWrites forces fsync after each write.
	// Slower but more durable.
	SyncWrites bool

	// Logger for BadgerDB internal logging.
	// If nil, BadgerDB logging is silenced.
	Logger badger.Logger
}

// NewBadgerPersistence opens (or creates) a BadgerDB backend.
//
// Configuration Trade-offs:
//   - SyncWrites=true: Slower writes but every mutation reaches disk
//   - InMemory=true: Fastest but data lost on shutdown
func NewBadgerPersistence(opts BadgerOptions) (*BadgerPersistence, error) {
	dir := opts.DataDir
	if opts.InMemory {
		dir = ""
	}
	badgerOpts := badger.DefaultOptions(dir)

	if opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true)
	}

	if opts.SyncWrites {
		badgerOpts = badgerOpts.WithSyncWrites(true)
	}

	if opts.Logger != nil {
		badgerOpts = badgerOpts.WithLogger(opts.Logger)
	} else {
		// Use a quiet logger by default
		badgerOpts = badgerOpts.WithLogger(nil)
	}

	// Pattern stores are small; keep the memory footprint modest.
	badgerOpts = badgerOpts.
		WithMemTableSize(16 << 20).
		WithValueLogFileSize(64 << 20).
		WithNumMemtables(2).
		WithNumLevelZeroTables(2).
		WithNumLevelZeroTablesStall(4).
		WithValueThreshold(1024).
		WithBlockCacheSize(32 << 20).
		WithIndexCacheSize(16 << 20)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}

	seq, err := db.GetSequence([]byte{prefixSequence}, sequenceBandwidth)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to lease sequence: %w", err)
	}

	return &BadgerPersistence{db: db, seq: seq}, nil
}

// NewBadgerPersistenceInMemory creates an in-memory BadgerDB backend for
// testing.
func NewBadgerPersistenceInMemory() (*BadgerPersistence, error) {
	return NewBadgerPersistence(BadgerOptions{InMemory: true})
}

// ============================================================================
// Key encoding helpers
// ============================================================================

// patternKey creates a key for storing a pattern.
func patternKey(id string) []byte {
	return append([]byte{prefixPattern}, []byte(id)...)
}

// relationshipKey creates a key for storing a relationship.
func relationshipKey(id string) []byte {
	return append([]byte{prefixRelationship}, []byte(id)...)
}

// ============================================================================
// Persistence
// ============================================================================

// SavePattern writes p, keeping the sequence number of an earlier save.
func (b *BadgerPersistence) SavePattern(p *model.Pattern) error {
	if err := b.checkOpen(); err != nil {
		return err
	}

	key := patternKey(p.ID)
	return b.db.Update(func(txn *badger.Txn) error {
		seq, err := b.sequenceFor(txn, key, func(val []byte) (uint64, error) {
			sp, err := deserializePattern(val)
			if err != nil {
				return 0, err
			}
			return sp.Seq, nil
		})
		if err != nil {
			return err
		}

		data, err := serializePattern(seq, p)
		if err != nil {
			return fmt.Errorf("failed to encode pattern: %w", err)
		}
		return txn.Set(key, data)
	})
}

// SaveRelationship writes r, keeping the sequence number of an earlier save.
func (b *BadgerPersistence) SaveRelationship(r *model.Relationship) error {
	if err := b.checkOpen(); err != nil {
		return err
	}

	key := relationshipKey(r.ID)
	return b.db.Update(func(txn *badger.Txn) error {
		seq, err := b.sequenceFor(txn, key, func(val []byte) (uint64, error) {
			sr, err := deserializeRelationship(val)
			if err != nil {
				return 0, err
			}
			return sr.Seq, nil
		})
		if err != nil {
			return err
		}

		data, err := serializeRelationship(seq, r)
		if err != nil {
			return fmt.Errorf("failed to encode relationship: %w", err)
		}
		return txn.Set(key, data)
	})
}

// DeletePattern removes a pattern. Deleting an absent id is not an error.
func (b *BadgerPersistence) DeletePattern(id string) error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(patternKey(id))
	})
}

// DeleteRelationship removes a relationship. Deleting an absent id is not
// an error.
func (b *BadgerPersistence) DeleteRelationship(id string) error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(relationshipKey(id))
	})
}

// Clear drops every pattern and relationship.
func (b *BadgerPersistence) Clear() error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	for _, prefix := range []byte{prefixPattern, prefixRelationship} {
		if err := b.db.DropPrefix([]byte{prefix}); err != nil {
			return fmt.Errorf("failed to drop prefix %#x: %w", prefix, err)
		}
	}
	return nil
}

// LoadAll returns every stored pattern and relationship in insertion order.
func (b *BadgerPersistence) LoadAll() ([]*model.Pattern, []*model.Relationship, error) {
	if err := b.checkOpen(); err != nil {
		return nil, nil, err
	}

	var patterns []*storedPattern
	var rels []*storedRelationship

	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte{prefixPattern}
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := it.Item().Value(func(val []byte) error {
				sp, err := deserializePattern(val)
				if err != nil {
					return err
				}
				patterns = append(patterns, sp)
				return nil
			}); err != nil {
				return err
			}
		}

		prefix = []byte{prefixRelationship}
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := it.Item().Value(func(val []byte) error {
				sr, err := deserializeRelationship(val)
				if err != nil {
					return err
				}
				rels = append(rels, sr)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return materialize(patterns, rels)
}

// Close releases the sequence lease and closes the database.
func (b *BadgerPersistence) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	b.closed = true
	if err := b.seq.Release(); err != nil {
		b.db.Close()
		return fmt.Errorf("failed to release sequence: %w", err)
	}
	return b.db.Close()
}

// ZapBadgerLogger adapts a zap logger to badger.Logger. Badger's info
// chatter is demoted to debug.
func ZapBadgerLogger(l *zap.Logger) badger.Logger {
	return badgerLogger{l.Named("badger").WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

type badgerLogger struct {
	s *zap.SugaredLogger
}

func (b badgerLogger) Errorf(f string, v ...interface{})   { b.s.Errorf(f, v...) }
func (b badgerLogger) Warningf(f string, v ...interface{}) { b.s.Warnf(f, v...) }
func (b badgerLogger) Infof(f string, v ...interface{})    { b.s.Debugf(f, v...) }
func (b badgerLogger) Debugf(f string, v ...interface{})   { b.s.Debugf(f, v...) }

// RunGC runs garbage collection on the BadgerDB value log.
// Should be called periodically for long-running applications.
func (b *BadgerPersistence) RunGC() error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	return b.db.RunValueLogGC(0.5)
}

func (b *BadgerPersistence) checkOpen() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrStorageClosed
	}
	return nil
}

// sequenceFor returns the sequence stored under key, or leases a new one
// when the key is absent.
func (b *BadgerPersistence) sequenceFor(txn *badger.Txn, key []byte, decode func([]byte) (uint64, error)) (uint64, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return b.seq.Next()
	}
	if err != nil {
		return 0, err
	}

	var seq uint64
	err = item.Value(func(val []byte) error {
		var decodeErr error
		seq, decodeErr = decode(val)
		return decodeErr
	})
	return seq, err
}
