// Seekd - Venue Presence and Real-Time Social Graph Engine
// Copyright 2026 Seek IRL
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seek-irl/seekd

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/seek-irl/seekd/internal/logging"
	"github.com/seek-irl/seekd/internal/metrics"
	"github.com/seek-irl/seekd/internal/models"
)

// TopicCheckIns is the bus topic carrying all check-in events. The city
// travels in message metadata; consumers demux by scope.
const TopicCheckIns = "checkins"

func checkInKey(city, seq string) []byte {
	return []byte(prefixCheckIn + models.NormalizeKey(city) + ":" + seq)
}

// AppendCheckIn persists a check-in event and publishes it to the city's
// topic. The store assigns EventID and CreatedAt; whatever the caller put
// there is overwritten. The returned event carries the assigned values.
//
// The event is committed before publish: a bus failure is logged, not
// returned, because derived views rebuild from the log on the next read.
func (s *Store) AppendCheckIn(ctx context.Context, ev models.CheckInEvent) (models.CheckInEvent, error) {
	if ev.IdentityKey == "" {
		return models.CheckInEvent{}, fmt.Errorf("append check-in: empty identity key")
	}
	if ev.City == "" {
		return models.CheckInEvent{}, fmt.Errorf("append check-in: empty city")
	}

	ts, err := s.stamp()
	if err != nil {
		return models.CheckInEvent{}, err
	}
	seq, err := s.nextSeq()
	if err != nil {
		return models.CheckInEvent{}, err
	}

	ev.EventID = uuid.NewString()
	ev.CreatedAt = ts
	ev.City = models.NormalizeKey(ev.City)

	payload, err := json.Marshal(ev)
	if err != nil {
		return models.CheckInEvent{}, fmt.Errorf("marshal check-in: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(checkInKey(ev.City, seq), payload); err != nil {
			return err
		}
		return txn.Set([]byte(prefixLatest+ev.IdentityKey), payload)
	})
	if err != nil {
		return models.CheckInEvent{}, fmt.Errorf("append check-in: %w", err)
	}

	s.publish(TopicCheckIns, ev.EventID, payload, map[string]string{"city": ev.City})
	return ev, nil
}

// EventsSince returns the city's events with CreatedAt at or after since,
// in append order. since zero returns the whole log.
func (s *Store) EventsSince(ctx context.Context, city string, since time.Time) ([]models.CheckInEvent, error) {
	prefix := []byte(prefixCheckIn + models.NormalizeKey(city) + ":")

	var events []models.CheckInEvent
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := it.Item().Value(func(val []byte) error {
				var ev models.CheckInEvent
				if err := json.Unmarshal(val, &ev); err != nil {
					return fmt.Errorf("decode event %s: %w", it.Item().Key(), err)
				}
				if since.IsZero() || !ev.CreatedAt.Before(since) {
					events = append(events, ev)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan events for %s: %w", city, err)
	}
	return events, nil
}

// LatestCheckIn returns the identity's most recent event, if any.
// Satisfies the session gate rebuild interface.
func (s *Store) LatestCheckIn(ctx context.Context, identityKey string) (models.CheckInEvent, bool, error) {
	var ev models.CheckInEvent
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefixLatest + identityKey))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &ev)
		})
	})
	if err != nil {
		return models.CheckInEvent{}, false, fmt.Errorf("latest check-in for %s: %w", identityKey, err)
	}
	return ev, found, nil
}

func (s *Store) publish(topic, id string, payload []byte, md map[string]string) {
	if s.pub == nil {
		return
	}
	msg := message.NewMessage(id, payload)
	for k, v := range md {
		msg.Metadata.Set(k, v)
	}
	if err := s.pub.Publish(topic, msg); err != nil {
		metrics.BusPublishErrors.WithLabelValues(topic).Inc()
		logging.Warn().Err(err).Str("topic", topic).Str("message_id", id).Msg("bus publish failed")
	}
}
