// Seekd - Venue Presence and Real-Time Social Graph Engine
// Copyright 2026 Seek IRL
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seek-irl/seekd

package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/seek-irl/seekd/internal/config"
	"github.com/seek-irl/seekd/internal/models"
	"github.com/seek-irl/seekd/internal/store"
)

func newTestService(t *testing.T, cfg config.ChatConfig) *Service {
	t.Helper()
	st, err := store.Open(config.StoreConfig{Path: t.TempDir(), InMemory: true}, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return NewService(st, cfg)
}

func TestResolveAddress(t *testing.T) {
	tests := []struct {
		name    string
		kind    models.RoomKind
		city    string
		venue   string
		self    string
		peer    string
		wantID  string
		wantErr error
	}{
		{name: "city room", kind: models.RoomCity, city: "Austin", wantID: "city-austin"},
		{name: "city missing", kind: models.RoomCity, wantErr: ErrNoCity},
		{name: "venue room", kind: models.RoomVenue, venue: "spats", wantID: "venue-spats"},
		{name: "venue missing", kind: models.RoomVenue, wantErr: ErrNoVenue},
		{name: "venue sentinel", kind: models.RoomVenue, venue: models.NotAtVenueKey, wantErr: ErrNoVenue},
		{name: "dm room", kind: models.RoomDM, self: "b", peer: "a", wantID: "dm-a_b"},
		{name: "dm self", kind: models.RoomDM, self: "a", peer: "a", wantErr: ErrNoPeer},
		{name: "dm no peer", kind: models.RoomDM, self: "a", wantErr: ErrNoPeer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, err := ResolveAddress(tt.kind, tt.city, tt.venue, tt.self, tt.peer)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if err == nil && addr.RoomID() != tt.wantID {
				t.Errorf("RoomID = %q, want %q", addr.RoomID(), tt.wantID)
			}
		})
	}
}

func TestSelectorDMLock(t *testing.T) {
	dm := models.ChatRoomAddress{Kind: models.RoomDM, PairKey: "a_b"}
	city := models.ChatRoomAddress{Kind: models.RoomCity, City: "austin"}

	sel := NewSelector(dm, true)
	if sel.Switch(city) {
		t.Error("locked DM selector accepted a switch")
	}
	if sel.Current().Kind != models.RoomDM {
		t.Error("locked selector left its DM")
	}

	sel.Unlock()
	if !sel.Switch(city) {
		t.Error("unlocked selector refused a switch")
	}
	if sel.Current().City != "austin" {
		t.Errorf("current = %+v", sel.Current())
	}

	// A non-DM start is never locked.
	sel = NewSelector(city, true)
	if !sel.Switch(dm) {
		t.Error("city selector should switch freely")
	}
}

func TestMaskerStarsWords(t *testing.T) {
	m := NewMasker([]string{"heck", "darn"})

	tests := []struct{ in, want string }{
		{"what the heck", "what the ****"},
		{"What The HECK", "What The ****"},
		{"heckle is fine", "heckle is fine"},
		{"darn heck darn", "**** **** ****"},
		{"clean text", "clean text"},
	}
	for _, tt := range tests {
		if got := m.Mask(tt.in); got != tt.want {
			t.Errorf("Mask(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSendMasksAndPersists(t *testing.T) {
	svc := newTestService(t, config.ChatConfig{
		ProfanityWords: []string{"heck"},
		SendPerMinute:  60,
		MaxMessageLen:  100,
	})
	ctx := context.Background()
	addr := models.ChatRoomAddress{Kind: models.RoomCity, City: "austin"}

	sent, err := svc.Send(ctx, addr, "u1", models.ChatMessage{Text: "  what the heck  "})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if sent.Text != "what the ****" {
		t.Errorf("text = %q", sent.Text)
	}
	if sent.From != "u1" || sent.RoomID != "city-austin" {
		t.Errorf("message envelope wrong: %+v", sent)
	}

	hist, err := svc.History(ctx, addr, time.Time{}, 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(hist) != 1 || hist[0].Text != "what the ****" {
		t.Errorf("history = %+v", hist)
	}
}

func TestSendValidation(t *testing.T) {
	svc := newTestService(t, config.ChatConfig{SendPerMinute: 60, MaxMessageLen: 10})
	ctx := context.Background()
	addr := models.ChatRoomAddress{Kind: models.RoomCity, City: "austin"}

	if _, err := svc.Send(ctx, addr, "u1", models.ChatMessage{Text: "   "}); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("blank text err = %v", err)
	}
	if _, err := svc.Send(ctx, addr, "u1", models.ChatMessage{Text: strings.Repeat("x", 11)}); !errors.Is(err, ErrMessageTooLong) {
		t.Errorf("long text err = %v", err)
	}
	// Emoji-only messages are allowed.
	if _, err := svc.Send(ctx, addr, "u1", models.ChatMessage{Emoji: "🍻"}); err != nil {
		t.Errorf("emoji-only err = %v", err)
	}
}

func TestSendRateLimited(t *testing.T) {
	// 6/minute gives burst 2: the third immediate send must fail.
	svc := newTestService(t, config.ChatConfig{SendPerMinute: 6, MaxMessageLen: 100})
	ctx := context.Background()
	addr := models.ChatRoomAddress{Kind: models.RoomCity, City: "austin"}

	var last error
	for i := 0; i < 5; i++ {
		_, last = svc.Send(ctx, addr, "u1", models.ChatMessage{Text: "spam"})
		if last != nil {
			break
		}
	}
	if !errors.Is(last, ErrRateLimited) {
		t.Errorf("burst sends err = %v, want ErrRateLimited", last)
	}

	// Another identity has its own budget.
	if _, err := svc.Send(ctx, addr, "u2", models.ChatMessage{Text: "hello"}); err != nil {
		t.Errorf("second identity blocked: %v", err)
	}
}

func TestOpenDMCommutative(t *testing.T) {
	svc := newTestService(t, config.ChatConfig{SendPerMinute: 60})
	ctx := context.Background()

	r1, err := svc.OpenDM(ctx, "u2", "Sam", "u1", "Alex")
	if err != nil {
		t.Fatalf("OpenDM: %v", err)
	}
	r2, err := svc.OpenDM(ctx, "u1", "Alex", "u2", "Sam")
	if err != nil {
		t.Fatalf("OpenDM reversed: %v", err)
	}
	if r1.PairKey != r2.PairKey {
		t.Errorf("pair keys differ: %q vs %q", r1.PairKey, r2.PairKey)
	}
	if !r2.CreatedAt.Equal(r1.CreatedAt) {
		t.Error("second open recreated the room")
	}
	if r2.DisplayNames["u1"] != "Alex" || r2.DisplayNames["u2"] != "Sam" {
		t.Errorf("display names = %+v", r2.DisplayNames)
	}

	rooms, _ := svc.ListDMs(ctx, "u1")
	if len(rooms) != 1 {
		t.Errorf("ListDMs = %+v", rooms)
	}
}

func TestVotePassthroughIdempotent(t *testing.T) {
	svc := newTestService(t, config.ChatConfig{SendPerMinute: 60})
	ctx := context.Background()
	addr := models.ChatRoomAddress{Kind: models.RoomVenue, VenueKey: "spats"}

	sent, err := svc.Send(ctx, addr, "u1", models.ChatMessage{Text: "round on me"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	msg, applied, err := svc.Vote(ctx, sent.MessageID, "u2")
	if err != nil || !applied || msg.Votes != 1 {
		t.Errorf("first vote: applied=%v votes=%d err=%v", applied, msg.Votes, err)
	}
	msg, applied, _ = svc.Vote(ctx, sent.MessageID, "u2")
	if applied || msg.Votes != 1 {
		t.Errorf("repeat vote: applied=%v votes=%d", applied, msg.Votes)
	}
}
