// Seekd - Venue Presence and Real-Time Social Graph Engine
// Copyright 2026 Seek IRL
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seek-irl/seekd

package eventprocessor

import (
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/seek-irl/seekd/internal/config"
	"github.com/seek-irl/seekd/internal/models"
	"github.com/seek-irl/seekd/internal/store"
	"github.com/seek-irl/seekd/internal/websocket"
)

type capturedPush struct {
	msgType string
	scope   string
	data    interface{}
}

type fakeHub struct {
	mu     sync.Mutex
	pushes []capturedPush
}

func (f *fakeHub) Publish(msgType, scope string, data interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushes = append(f.pushes, capturedPush{msgType, scope, data})
}

func (f *fakeHub) byScope(scope string) []capturedPush {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []capturedPush
	for _, p := range f.pushes {
		if p.scope == scope {
			out = append(out, p)
		}
	}
	return out
}

func testPresenceConfig() config.PresenceConfig {
	return config.PresenceConfig{
		VenueWindow:       time.Hour,
		SessionWindow:     12 * time.Hour,
		TrendingWindow:    time.Hour,
		SnapshotRetention: 24 * time.Hour,
	}
}

func newTestProcessor(t *testing.T) (*Processor, *fakeHub) {
	t.Helper()
	bus, err := store.NewBus(config.NATSConfig{})
	if err != nil {
		t.Fatalf("NewBus: %v", err)
	}
	t.Cleanup(func() { bus.Close() })

	hub := &fakeHub{}
	p, err := New(testPresenceConfig(), bus, NewSnapshot(24*time.Hour), hub)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p, hub
}

func checkinMsg(t *testing.T, ev models.CheckInEvent) *message.Message {
	t.Helper()
	payload, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return message.NewMessage(ev.EventID, payload)
}

func TestHandleCheckInPushesDerivedViews(t *testing.T) {
	p, hub := newTestProcessor(t)

	ev := models.CheckInEvent{
		EventID:     "e1",
		IdentityKey: "u1",
		VenueKey:    "spats",
		VenueRaw:    "Spats",
		City:        "austin",
		CreatedAt:   time.Now().UTC(),
	}
	if err := p.handleCheckIn(checkinMsg(t, ev)); err != nil {
		t.Fatalf("handleCheckIn: %v", err)
	}

	venue := hub.byScope(websocket.ScopeVenue("spats"))
	if len(venue) != 1 {
		t.Fatalf("venue pushes = %d, want 1", len(venue))
	}
	entries, ok := venue[0].data.([]models.PresenceEntry)
	if !ok || len(entries) != 1 || entries[0].IdentityKey != "u1" {
		t.Errorf("venue view = %+v", venue[0].data)
	}

	if len(hub.byScope(websocket.ScopeCity("austin"))) != 1 {
		t.Error("city view not pushed")
	}

	trending := hub.byScope(websocket.ScopeTrending("austin"))
	if len(trending) != 1 {
		t.Fatal("trending view not pushed")
	}
	board := trending[0].data.([]TrendingEntry)
	if len(board) != 1 || board[0].VenueKey != "spats" || board[0].Count != 1 {
		t.Errorf("trending board = %+v", board)
	}
	if board[0].RecentUnique != 1 {
		t.Errorf("recent unique = %d, want 1", board[0].RecentUnique)
	}
}

func TestHandleCheckInDeclareAwaySkipsVenuePush(t *testing.T) {
	p, hub := newTestProcessor(t)
	now := time.Now().UTC()

	p.handleCheckIn(checkinMsg(t, models.CheckInEvent{
		EventID: "e1", IdentityKey: "u1", VenueKey: "spats", City: "austin", CreatedAt: now,
	}))
	hub.mu.Lock()
	hub.pushes = nil
	hub.mu.Unlock()

	err := p.handleCheckIn(checkinMsg(t, models.CheckInEvent{
		EventID: "e2", IdentityKey: "u1", VenueKey: models.NotAtVenueKey, City: "austin",
		CreatedAt: now.Add(time.Minute),
	}))
	if err != nil {
		t.Fatalf("handleCheckIn: %v", err)
	}

	if pushes := hub.byScope(websocket.ScopeVenue(models.NotAtVenueKey)); len(pushes) != 0 {
		t.Errorf("sentinel venue received a push: %+v", pushes)
	}
	city := hub.byScope(websocket.ScopeCity("austin"))
	if len(city) != 1 {
		t.Fatal("city view not refreshed after declare-away")
	}
	if entries := city[0].data.([]models.PresenceEntry); len(entries) != 0 {
		t.Errorf("declared-away identity still in city view: %+v", entries)
	}
}

func TestHandleCheckInBadPayload(t *testing.T) {
	p, _ := newTestProcessor(t)
	if err := p.handleCheckIn(message.NewMessage("bad", []byte("{not json"))); err == nil {
		t.Error("undecodable payload must error for the poison queue")
	}
}

func TestHandleChatForwardsToRoomScope(t *testing.T) {
	p, hub := newTestProcessor(t)

	m := models.ChatMessage{MessageID: "m1", RoomID: "city-austin", From: "u1", Text: "hi"}
	payload, _ := json.Marshal(m)
	if err := p.handleChat(message.NewMessage(m.MessageID, payload)); err != nil {
		t.Fatalf("handleChat: %v", err)
	}

	pushes := hub.byScope(websocket.ScopeRoom("city-austin"))
	if len(pushes) != 1 || pushes[0].msgType != websocket.MessageTypeChat {
		t.Fatalf("pushes = %+v", pushes)
	}
	if got := pushes[0].data.(models.ChatMessage); got.Text != "hi" {
		t.Errorf("message = %+v", got)
	}
}

func TestSnapshotPrune(t *testing.T) {
	now := time.Date(2026, 8, 28, 22, 0, 0, 0, time.UTC)
	s := NewSnapshot(time.Hour)
	s.now = func() time.Time { return now }

	s.Add(models.CheckInEvent{IdentityKey: "u1", City: "austin", CreatedAt: now.Add(-2 * time.Hour)})
	s.Add(models.CheckInEvent{IdentityKey: "u2", City: "austin", CreatedAt: now.Add(-10 * time.Minute)})
	s.Add(models.CheckInEvent{IdentityKey: "u3", City: "dallas", CreatedAt: now.Add(-3 * time.Hour)})

	if removed := s.Prune(); removed != 2 {
		t.Errorf("pruned %d, want 2", removed)
	}
	if evs := s.Events("austin"); len(evs) != 1 || evs[0].IdentityKey != "u2" {
		t.Errorf("austin events = %+v", evs)
	}
	if cities := s.Cities(); len(cities) != 1 || cities[0] != "austin" {
		t.Errorf("cities = %v", cities)
	}
}

func TestSnapshotSeedSortsAcrossCities(t *testing.T) {
	now := time.Now().UTC()
	s := NewSnapshot(24 * time.Hour)
	s.Seed([]models.CheckInEvent{
		{IdentityKey: "u2", City: "Austin", CreatedAt: now},
		{IdentityKey: "u1", City: "austin", CreatedAt: now.Add(-time.Hour)},
	})

	evs := s.Events("austin")
	if len(evs) != 2 {
		t.Fatalf("seeded events = %d, want 2 (city names must normalize)", len(evs))
	}
	if evs[0].IdentityKey != "u1" {
		t.Errorf("seed did not sort by CreatedAt: %+v", evs)
	}
}
