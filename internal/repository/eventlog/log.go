// Package eventlog persists analytics records in an embedded badger store, ordered by time.
package eventlog

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"go.uber.org/zap"

	"github.com/kailas-cloud/mediasearch/internal/domain/analytics"
)

// ErrClosed is returned by operations on a closed log.
var ErrClosed = errors.New("event log closed")

const (
	recordPrefix = "evt:"
	kindSearch   = 's'
	kindClick    = 'c'
)

// Log is an append-only analytics event log.
type Log struct {
	db     *badger.DB
	logger *zap.Logger
}

type loggerAdapter struct {
	logger *zap.SugaredLogger
}

var _ badger.Logger = (*loggerAdapter)(nil)

func (l *loggerAdapter) Errorf(msg string, items ...any)   { l.logger.Errorf(msg, items...) }
func (l *loggerAdapter) Warningf(msg string, items ...any) { l.logger.Warnf(msg, items...) }
func (l *loggerAdapter) Infof(msg string, items ...any)    { l.logger.Debugf(msg, items...) }
func (l *loggerAdapter) Debugf(msg string, items ...any)   { l.logger.Debugf(msg, items...) }

// Open opens the log at path, creating the directory if needed. An empty path keeps the log in memory.
func Open(path string, logger *zap.Logger) (*Log, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("create event log dir: %w", err)
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat event log dir: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", path)
		}
		opts = badger.DefaultOptions(path)
	}
	opts.Logger = &loggerAdapter{logger: logger.Named("badger").Sugar()}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	return &Log{db: db, logger: logger}, nil
}

// AppendSearch stores a search event.
func (l *Log) AppendSearch(ctx context.Context, ev analytics.Event) error {
	val, err := json.Marshal(searchFromDomain(ev))
	if err != nil {
		return fmt.Errorf("encode search event: %w", err)
	}
	return l.put(ctx, recordKey(ev.Timestamp.UnixNano(), kindSearch, ev.ID), val)
}

// AppendClick stores a click event.
func (l *Log) AppendClick(ctx context.Context, c analytics.Click) error {
	val, err := json.Marshal(clickFromDomain(c))
	if err != nil {
		return fmt.Errorf("encode click event: %w", err)
	}
	return l.put(ctx, recordKey(c.Timestamp.UnixNano(), kindClick, c.ID), val)
}

func (l *Log) put(ctx context.Context, key, val []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if l.db.IsClosed() {
		return ErrClosed
	}
	if err := l.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, val)
	}); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

// Replay calls fn for every stored record in timestamp order. Undecodable records are skipped with a warning.
func (l *Log) Replay(ctx context.Context, fn func(analytics.Record) error) error {
	if l.db.IsClosed() {
		return ErrClosed
	}
	return l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(recordPrefix)
		iter := txn.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := iter.Item()
			kind, ok := recordKind(item.Key())
			if !ok {
				l.logger.Warn("Skipping event log entry with malformed key", zap.ByteString("key", item.KeyCopy(nil)))
				continue
			}

			var rec analytics.Record
			err := item.Value(func(val []byte) error {
				var err error
				rec, err = decode(kind, val)
				return err
			})
			if err != nil {
				l.logger.Warn("Skipping undecodable event log entry", zap.ByteString("key", item.KeyCopy(nil)), zap.Error(err))
				continue
			}
			if err := fn(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// Count returns the number of stored records.
func (l *Log) Count(ctx context.Context) (int, error) {
	n := 0
	err := l.Replay(ctx, func(analytics.Record) error {
		n++
		return nil
	})
	return n, err
}

// Ping reports whether the log is open.
func (l *Log) Ping(_ context.Context) error {
	if l.db.IsClosed() {
		return ErrClosed
	}
	return nil
}

// Close flushes and closes the store.
func (l *Log) Close() error {
	if err := l.db.Close(); err != nil {
		return fmt.Errorf("close event log: %w", err)
	}
	return nil
}

// recordKey is evt:<big-endian unix nanos><kind>:<id>, so iteration order is time order.
func recordKey(nanos int64, kind byte, id string) []byte {
	buf := make([]byte, 0, len(recordPrefix)+8+2+len(id))
	buf = append(buf, recordPrefix...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(nanos))
	buf = append(buf, kind, ':')
	return append(buf, id...)
}

func recordKind(key []byte) (byte, bool) {
	pos := len(recordPrefix) + 8
	if len(key) < pos+2 || key[pos+1] != ':' {
		return 0, false
	}
	switch key[pos] {
	case kindSearch, kindClick:
		return key[pos], true
	}
	return 0, false
}

func decode(kind byte, val []byte) (analytics.Record, error) {
	switch kind {
	case kindSearch:
		var dto searchDTO
		if err := json.Unmarshal(val, &dto); err != nil {
			return analytics.Record{}, err
		}
		ev := dto.toDomain()
		return analytics.Record{Search: &ev}, nil
	default:
		var dto clickDTO
		if err := json.Unmarshal(val, &dto); err != nil {
			return analytics.Record{}, err
		}
		c := dto.toDomain()
		return analytics.Record{Click: &c}, nil
	}
}
