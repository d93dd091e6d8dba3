package storage

import (
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// OpenBadger opens the embedded primary store at dir, creating it if needed.
// Badger's own logging is routed to the debug logger when one is given,
// otherwise disabled.
func OpenBadger(dir string, log *zap.Logger) (*badger.DB, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dir, err)
	}

	opts := badger.DefaultOptions(dir)
	if log != nil {
		opts = opts.WithLogger(badgerLogger{s: log.Sugar()})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return db, nil
}

// OpenBadgerInMemory opens a throwaway in-memory store for tests and
// environments without durable storage.
func OpenBadgerInMemory() (*badger.DB, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return db, nil
}

// BadgerTier is the durable primary tier for one visitor. Keys are
// namespaced per visitor so a single database serves every visitor the
// process sees. Badger failures degrade to cache misses and dropped writes.
type BadgerTier struct {
	db        *badger.DB
	visitorID string
	log       *zap.Logger
}

func NewBadgerTier(db *badger.DB, visitorID string, log *zap.Logger) *BadgerTier {
	if log == nil {
		log = zap.NewNop()
	}
	return &BadgerTier{db: db, visitorID: visitorID, log: log}
}

func (t *BadgerTier) key(k string) []byte {
	return []byte("visitor/" + t.visitorID + "/" + k)
}

func (t *BadgerTier) Get(key string) (string, bool) {
	var val string
	err := t.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(t.key(key))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			val = string(v)
			return nil
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			t.log.Debug("primary store read failed", zap.String("key", key), zap.Error(err))
		}
		return "", false
	}
	return val, true
}

func (t *BadgerTier) Set(key, value string) {
	err := t.db.Update(func(txn *badger.Txn) error {
		return txn.Set(t.key(key), []byte(value))
	})
	if err != nil {
		t.log.Debug("primary store write failed", zap.String("key", key), zap.Error(err))
	}
}

// badgerLogger adapts zap to badger's Logger interface.
type badgerLogger struct {
	s *zap.SugaredLogger
}

func (l badgerLogger) Errorf(format string, args ...interface{})   { l.s.Errorf(format, args...) }
func (l badgerLogger) Warningf(format string, args ...interface{}) { l.s.Warnf(format, args...) }
func (l badgerLogger) Infof(format string, args ...interface{})    { l.s.Debugf(format, args...) }
func (l badgerLogger) Debugf(format string, args ...interface{})   { l.s.Debugf(format, args...) }
