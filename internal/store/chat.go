// Seekd - Venue Presence and Real-Time Social Graph Engine
// Copyright 2026 Seek IRL
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seek-irl/seekd

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/seek-irl/seekd/internal/models"
)

// ErrMessageNotFound is returned when a vote targets an unknown message.
var ErrMessageNotFound = errors.New("store: message not found")

// TopicChats is the bus topic carrying all chat messages. The room id
// travels in message metadata; consumers demux by scope.
const TopicChats = "chats"

// AppendMessage persists a chat message and publishes it to the room's
// topic. MessageID and CreatedAt are store-assigned.
func (s *Store) AppendMessage(ctx context.Context, msg models.ChatMessage) (models.ChatMessage, error) {
	if msg.RoomID == "" {
		return models.ChatMessage{}, fmt.Errorf("append message: empty room id")
	}
	if msg.From == "" {
		return models.ChatMessage{}, fmt.Errorf("append message: empty sender")
	}

	ts, err := s.stamp()
	if err != nil {
		return models.ChatMessage{}, err
	}
	seq, err := s.nextSeq()
	if err != nil {
		return models.ChatMessage{}, err
	}

	msg.MessageID = uuid.NewString()
	msg.CreatedAt = ts

	payload, err := json.Marshal(msg)
	if err != nil {
		return models.ChatMessage{}, fmt.Errorf("marshal message: %w", err)
	}

	key := []byte(prefixMsg + msg.RoomID + ":" + seq)
	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, payload); err != nil {
			return err
		}
		return txn.Set([]byte(prefixMsgIdx+msg.MessageID), key)
	})
	if err != nil {
		return models.ChatMessage{}, fmt.Errorf("append message: %w", err)
	}

	s.publish(TopicChats, msg.MessageID, payload, map[string]string{"room_id": msg.RoomID})
	return msg, nil
}

// MessagesSince returns the room's messages with CreatedAt at or after
// since, oldest first. limit <= 0 means no limit; with a limit, the most
// recent messages win.
func (s *Store) MessagesSince(ctx context.Context, roomID string, since time.Time, limit int) ([]models.ChatMessage, error) {
	prefix := []byte(prefixMsg + roomID + ":")

	var msgs []models.ChatMessage
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
				var m models.ChatMessage
				if err := json.Unmarshal(val, &m); err != nil {
					return fmt.Errorf("decode message %s: %w", it.Item().Key(), err)
				}
				if since.IsZero() || !m.CreatedAt.Before(since) {
					msgs = append(msgs, m)
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
		return nil, fmt.Errorf("scan messages for %s: %w", roomID, err)
	}
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

// MergeDMRoom upserts a DM room document. Absent on disk, the document is
// created with both timestamps set. Present, only the fields the update
// carries are applied: display names merge per participant, CreatedAt is
// preserved, UpdatedAt moves forward. Calling it twice with the same
// input is a no-op beyond UpdatedAt. Concurrent calls on one pair key
// never error; conflicting transactions retry against the newest value.
func (s *Store) MergeDMRoom(ctx context.Context, room models.DMRoom) (models.DMRoom, error) {
	if room.PairKey == "" {
		return models.DMRoom{}, fmt.Errorf("merge dm room: empty pair key")
	}
	now := s.now().UTC()
	key := []byte(prefixDM + room.PairKey)

	var merged models.DMRoom
	err := s.mergeUpdate(func(txn *badger.Txn) error {
		merged = models.DMRoom{}
		item, err := txn.Get(key)
		switch {
		case err == badger.ErrKeyNotFound:
			merged = room
			merged.CreatedAt = now
			merged.UpdatedAt = now
			if merged.DisplayNames == nil {
				merged.DisplayNames = make(map[string]string)
			}
		case err != nil:
			return err
		default:
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &merged)
			}); err != nil {
				return err
			}
			if len(room.Participants) > 0 {
				merged.Participants = room.Participants
			}
			if merged.DisplayNames == nil {
				merged.DisplayNames = make(map[string]string)
			}
			for id, name := range room.DisplayNames {
				if name != "" {
					merged.DisplayNames[id] = name
				}
			}
			merged.UpdatedAt = now
		}

		payload, err := json.Marshal(merged)
		if err != nil {
			return err
		}
		return txn.Set(key, payload)
	})
	if err != nil {
		return models.DMRoom{}, fmt.Errorf("merge dm room %s: %w", room.PairKey, err)
	}
	return merged, nil
}

// DMRoomsFor lists every DM room the identity participates in.
func (s *Store) DMRoomsFor(ctx context.Context, identityKey string) ([]models.DMRoom, error) {
	prefix := []byte(prefixDM)

	var rooms []models.DMRoom
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
				var r models.DMRoom
				if err := json.Unmarshal(val, &r); err != nil {
					return err
				}
				for _, p := range r.Participants {
					if p == identityKey {
						rooms = append(rooms, r)
						break
					}
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
		return nil, fmt.Errorf("scan dm rooms for %s: %w", identityKey, err)
	}
	return rooms, nil
}

// ApplyVote records one identity's vote on a message. The first vote per
// (message, identity) increments the stored vote count and returns the
// updated message with applied=true; repeats return the current message
// with applied=false. Votes are permanent; there is no unvote.
func (s *Store) ApplyVote(ctx context.Context, messageID, identityKey string) (models.ChatMessage, bool, error) {
	voteKey := []byte(prefixVote + messageID + ":" + identityKey)

	var msg models.ChatMessage
	applied := false
	err := s.mergeUpdate(func(txn *badger.Txn) error {
		msg, applied = models.ChatMessage{}, false
		// Locate the message first so unknown IDs fail before the
		// marker check.
		idxItem, err := txn.Get([]byte(prefixMsgIdx + messageID))
		if err == badger.ErrKeyNotFound {
			return ErrMessageNotFound
		}
		if err != nil {
			return err
		}
		var msgKey []byte
		if err := idxItem.Value(func(val []byte) error {
			msgKey = append([]byte(nil), val...)
			return nil
		}); err != nil {
			return err
		}

		msgItem, err := txn.Get(msgKey)
		if err != nil {
			return err
		}
		if err := msgItem.Value(func(val []byte) error {
			return json.Unmarshal(val, &msg)
		}); err != nil {
			return err
		}

		if _, err := txn.Get(voteKey); err == nil {
			return nil // already voted
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		msg.Votes++
		applied = true
		payload, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		if err := txn.Set(msgKey, payload); err != nil {
			return err
		}
		return txn.Set(voteKey, []byte(s.now().UTC().Format(time.RFC3339)))
	})
	if err != nil {
		return models.ChatMessage{}, false, fmt.Errorf("apply vote on %s: %w", messageID, err)
	}
	return msg, applied, nil
}
