// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

package events

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend"
)

// Key layout:
//
//	evt/<8-byte big-endian occurredAt nanos><event id> -> JSON event
//	dup/<dedup key>                                   -> empty, TTL-bound
//
// Big-endian timestamps make lexical key order equal to time order, so a
// window read is a single forward seek.
const (
	prefixEvent = "evt/"
	prefixDedup = "dup/"

	// maxEventsPerTxn keeps transactions well under Badger's size limit.
	maxEventsPerTxn = 256
)

// BadgerConfig configures the Badger-backed log.
type BadgerConfig struct {
	// Path is the directory where BadgerDB stores its files.
	Path string

	// SyncWrites forces fsync after every commit.
	SyncWrites bool

	// Compression enables Snappy block compression.
	Compression bool

	// DedupWindow is the width of the dedup bucket.
	DedupWindow time.Duration

	// InMemory runs Badger without touching disk. Intended for tests.
	InMemory bool
}

// BadgerLog implements Log on BadgerDB.
type BadgerLog struct {
	db          *badger.DB
	dedupWindow time.Duration
	logger      zerolog.Logger

	mu     sync.RWMutex
	closed bool
}

// OpenBadgerLog opens (or creates) the log at cfg.Path.
//
//nolint:gocritic // logger passed by value for zerolog chaining
func OpenBadgerLog(cfg BadgerConfig, logger zerolog.Logger) (*BadgerLog, error) {
	if cfg.DedupWindow <= 0 {
		return nil, fmt.Errorf("dedup window must be positive, got %v", cfg.DedupWindow)
	}
	if cfg.Path == "" && !cfg.InMemory {
		return nil, errors.New("badger path is required")
	}

	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.SyncWrites = cfg.SyncWrites
	if cfg.Compression {
		opts.Compression = options.Snappy
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	l := &BadgerLog{
		db:          db,
		dedupWindow: cfg.DedupWindow,
		logger:      logger.With().Str("component", "interaction-log").Logger(),
	}
	l.logger.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Bool("sync_writes", cfg.SyncWrites).
		Dur("dedup_window", cfg.DedupWindow).
		Msg("interaction log opened")
	return l, nil
}

func eventKey(e *recommend.InteractionEvent) []byte {
	key := make([]byte, 0, len(prefixEvent)+8+len(e.ID))
	key = append(key, prefixEvent...)
	key = binary.BigEndian.AppendUint64(key, timeOrdinal(e.OccurredAt))
	return append(key, e.ID...)
}

// timeOrdinal maps t onto an unsigned, order-preserving integer. Instants
// before the Unix epoch collapse to zero.
func timeOrdinal(t time.Time) uint64 {
	n := t.UnixNano()
	if n < 0 {
		return 0
	}
	return uint64(n)
}

// Append implements Log.
func (l *BadgerLog) Append(ctx context.Context, events []recommend.InteractionEvent) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return 0, ErrLogClosed
	}

	written := 0
	for start := 0; start < len(events); start += maxEventsPerTxn {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		end := start + maxEventsPerTxn
		if end > len(events) {
			end = len(events)
		}

		n, err := l.appendChunk(events[start:end])
		if err != nil {
			return written, err
		}
		written += n
	}
	return written, nil
}

func (l *BadgerLog) appendChunk(events []recommend.InteractionEvent) (int, error) {
	written := 0
	now := time.Now()
	err := l.db.Update(func(txn *badger.Txn) error {
		written = 0
		for i := range events {
			e := &events[i]
			dupKey := []byte(prefixDedup + e.DedupKey(l.dedupWindow))

			_, err := txn.Get(dupKey)
			if err == nil {
				continue
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("check dedup key: %w", err)
			}

			data, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("marshal event: %w", err)
			}
			if err := txn.Set(eventKey(e), data); err != nil {
				return fmt.Errorf("set event: %w", err)
			}
			ttl := dedupExpiry(e, l.dedupWindow, now).Sub(now)
			if err := txn.SetEntry(badger.NewEntry(dupKey, nil).WithTTL(ttl)); err != nil {
				return fmt.Errorf("set dedup key: %w", err)
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("append interactions: %w", err)
	}
	return written, nil
}

// ReadWindow implements Log. The read runs inside one View transaction and
// therefore sees a consistent snapshot.
func (l *BadgerLog) ReadWindow(ctx context.Context, since time.Time) ([]recommend.InteractionEvent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return nil, ErrLogClosed
	}

	var out []recommend.InteractionEvent
	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixEvent)
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := binary.BigEndian.AppendUint64([]byte(prefixEvent), timeOrdinal(since))
		for it.Seek(seek); it.ValidForPrefix(opts.Prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var e recommend.InteractionEvent
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			}); err != nil {
				return fmt.Errorf("decode event %q: %w", it.Item().Key(), err)
			}
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read interaction window: %w", err)
	}
	return out, nil
}

// RunGC reclaims value log space until Badger reports nothing to rewrite.
func (l *BadgerLog) RunGC(ratio float64) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return ErrLogClosed
	}

	for {
		err := l.db.RunValueLogGC(ratio)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run value log GC: %w", err)
		}
	}
}

// Close implements Log.
func (l *BadgerLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	if err := l.db.Close(); err != nil {
		return fmt.Errorf("close BadgerDB: %w", err)
	}
	l.logger.Info().Msg("interaction log closed")
	return nil
}

var _ Log = (*BadgerLog)(nil)
