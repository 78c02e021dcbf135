// Seekd - Venue Presence and Real-Time Social Graph Engine
// Copyright 2026 Seek IRL
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seek-irl/seekd

// Package store is the durable layer: an append-only check-in event log,
// the chat message log, DM room documents and session gates, all in a
// single embedded BadgerDB keyspace. Writes that downstream consumers
// care about are published to the message bus after commit.
//
// Key scheme:
//
//	checkin:<city>:<seq>        check-in event (append-only)
//	latest:<identityKey>        most recent event per identity
//	gate:<identityKey>          session gate
//	msg:<roomID>:<seq>          chat message (append-only)
//	msgidx:<messageID>          message ID -> message key
//	dm:<pairKey>                DM room document (merge-upserted)
//	vote:<messageID>:<identity> vote marker (idempotency)
//
// <seq> is a zero-padded store-wide sequence so lexicographic key order
// matches append order within a prefix.
package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dgraph-io/badger/v4"

	"github.com/seek-irl/seekd/internal/config"
	"github.com/seek-irl/seekd/internal/logging"
)

const (
	prefixCheckIn = "checkin:"
	prefixLatest  = "latest:"
	prefixGate    = "gate:"
	prefixMsg     = "msg:"
	prefixMsgIdx  = "msgidx:"
	prefixDM      = "dm:"
	prefixVote    = "vote:"

	seqKey       = "seq:events"
	seqBandwidth = 128
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store: closed")

// Store owns the badger database and the outbound publisher. All methods
// are safe for concurrent use.
type Store struct {
	db  *badger.DB
	seq *badger.Sequence
	pub message.Publisher

	// lastTS guards the per-writer monotonic CreatedAt clock.
	mu     sync.Mutex
	lastTS time.Time
	closed bool

	now func() time.Time
}

// Open opens (or creates) the store at cfg.Path. publisher may be nil;
// appends then skip the bus, which is how offline tooling and most tests
// run.
func Open(cfg config.StoreConfig, publisher message.Publisher) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path).
		WithLogger(badgerLogger{}).
		WithInMemory(cfg.InMemory)
	if cfg.InMemory {
		opts.Dir = ""
		opts.ValueDir = ""
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", cfg.Path, err)
	}

	seq, err := db.GetSequence([]byte(seqKey), seqBandwidth)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open event sequence: %w", err)
	}

	return &Store{
		db:  db,
		seq: seq,
		pub: publisher,
		now: time.Now,
	}, nil
}

// Close releases the sequence lease and the database. Safe to call once.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if err := s.seq.Release(); err != nil {
		logging.Warn().Err(err).Msg("release event sequence")
	}
	return s.db.Close()
}

// RunGC runs badger value log GC on the given interval until the stop
// channel closes. No-op for in-memory stores.
func (s *Store) RunGC(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			// Repeat while GC keeps reclaiming files.
			for {
				if err := s.db.RunValueLogGC(0.5); err != nil {
					if !errors.Is(err, badger.ErrNoRewrite) && !errors.Is(err, badger.ErrGCInMemoryMode) {
						logging.Warn().Err(err).Msg("badger value log gc")
					}
					break
				}
			}
		}
	}
}

// mergeUpdate runs a read-modify-write transaction, retrying when
// badger's conflict detection aborts it. Each retry re-reads the newest
// committed value, so concurrent merges on one key all land and the
// last writer's fields win. Progress is guaranteed: a conflict means
// another transaction committed.
func (s *Store) mergeUpdate(fn func(txn *badger.Txn) error) error {
	for {
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
}

// stamp assigns the next event timestamp: wall clock, bumped forward a
// nanosecond when the clock has not advanced since the previous write.
// Per-writer monotonicity is what the presence tie-break relies on.
func (s *Store) stamp() (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return time.Time{}, ErrClosed
	}
	ts := s.now().UTC()
	if !ts.After(s.lastTS) {
		ts = s.lastTS.Add(time.Nanosecond)
	}
	s.lastTS = ts
	return ts, nil
}

func (s *Store) nextSeq() (string, error) {
	n, err := s.seq.Next()
	if err != nil {
		return "", fmt.Errorf("next sequence: %w", err)
	}
	return fmt.Sprintf("%020d", n), nil
}

// badgerLogger routes badger's internal logging through zerolog at
// debug/warn levels so it honors the process log configuration.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	logging.Error().Msgf("badger: "+format, args...)
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	logging.Warn().Msgf("badger: "+format, args...)
}

func (badgerLogger) Infof(format string, args ...interface{}) {
	logging.Debug().Msgf("badger: "+format, args...)
}

func (badgerLogger) Debugf(format string, args ...interface{}) {
	logging.Debug().Msgf("badger: "+format, args...)
}
