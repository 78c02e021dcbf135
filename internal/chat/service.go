// Seekd - Venue Presence and Real-Time Social Graph Engine
// Copyright 2026 Seek IRL
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seek-irl/seekd

package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/seek-irl/seekd/internal/config"
	"github.com/seek-irl/seekd/internal/models"
)

// Send pipeline errors.
var (
	ErrRateLimited    = errors.New("chat: sending too fast")
	ErrMessageTooLong = errors.New("chat: message too long")
	ErrEmptyMessage   = errors.New("chat: empty message")
)

// MessageStore is the persistence surface the service needs, implemented
// by the badger store.
type MessageStore interface {
	AppendMessage(ctx context.Context, msg models.ChatMessage) (models.ChatMessage, error)
	MessagesSince(ctx context.Context, roomID string, since time.Time, limit int) ([]models.ChatMessage, error)
	MergeDMRoom(ctx context.Context, room models.DMRoom) (models.DMRoom, error)
	DMRoomsFor(ctx context.Context, identityKey string) ([]models.DMRoom, error)
	ApplyVote(ctx context.Context, messageID, identityKey string) (models.ChatMessage, bool, error)
}

// Service is the chat pipeline over a MessageStore.
type Service struct {
	store  MessageStore
	masker *Masker

	maxLen   int
	sendRate rate.Limit
	burst    int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewService builds the service from chat config.
func NewService(store MessageStore, cfg config.ChatConfig) *Service {
	perMinute := cfg.SendPerMinute
	if perMinute <= 0 {
		perMinute = 30
	}
	maxLen := cfg.MaxMessageLen
	if maxLen <= 0 {
		maxLen = 500
	}
	return &Service{
		store:    store,
		masker:   NewMasker(cfg.ProfanityWords),
		maxLen:   maxLen,
		sendRate: rate.Limit(float64(perMinute) / 60.0),
		burst:    perMinute/6 + 1,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Send validates, masks and appends a message to the addressed room.
func (s *Service) Send(ctx context.Context, addr models.ChatRoomAddress, from string, msg models.ChatMessage) (models.ChatMessage, error) {
	roomID := addr.RoomID()
	if roomID == "" {
		return models.ChatMessage{}, fmt.Errorf("chat: invalid room address")
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" && msg.Emoji == "" {
		return models.ChatMessage{}, ErrEmptyMessage
	}
	if len([]rune(text)) > s.maxLen {
		return models.ChatMessage{}, ErrMessageTooLong
	}
	if !s.limiter(from).Allow() {
		return models.ChatMessage{}, ErrRateLimited
	}

	msg.RoomID = roomID
	msg.From = from
	msg.Text = s.masker.Mask(text)
	return s.store.AppendMessage(ctx, msg)
}

// History returns a room's backlog, oldest first.
func (s *Service) History(ctx context.Context, addr models.ChatRoomAddress, since time.Time, limit int) ([]models.ChatMessage, error) {
	roomID := addr.RoomID()
	if roomID == "" {
		return nil, fmt.Errorf("chat: invalid room address")
	}
	return s.store.MessagesSince(ctx, roomID, since, limit)
}

// OpenDM returns the DM room for the two identities, creating it on
// first touch. Display names merge in without clobbering the peer's.
// Opening the same pair from either side yields one room.
func (s *Service) OpenDM(ctx context.Context, selfID, selfName, peerID, peerName string) (models.DMRoom, error) {
	addr, err := ResolveAddress(models.RoomDM, "", "", selfID, peerID)
	if err != nil {
		return models.DMRoom{}, err
	}
	names := make(map[string]string)
	if selfName != "" {
		names[selfID] = selfName
	}
	if peerName != "" {
		names[peerID] = peerName
	}
	participants := []string{selfID, peerID}
	if participants[0] > participants[1] {
		participants[0], participants[1] = participants[1], participants[0]
	}
	return s.store.MergeDMRoom(ctx, models.DMRoom{
		PairKey:      addr.PairKey,
		Participants: participants,
		DisplayNames: names,
	})
}

// ListDMs returns the identity's DM rooms.
func (s *Service) ListDMs(ctx context.Context, identityKey string) ([]models.DMRoom, error) {
	return s.store.DMRoomsFor(ctx, identityKey)
}

// Vote applies one identity's vote to a message. Repeats are no-ops.
func (s *Service) Vote(ctx context.Context, messageID, identityKey string) (models.ChatMessage, bool, error) {
	return s.store.ApplyVote(ctx, messageID, identityKey)
}

func (s *Service) limiter(identityKey string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.limiters[identityKey]
	if !ok {
		l = rate.NewLimiter(s.sendRate, s.burst)
		s.limiters[identityKey] = l
	}
	return l
}
