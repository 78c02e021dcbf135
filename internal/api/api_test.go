// Seekd - Venue Presence and Real-Time Social Graph Engine
// Copyright 2026 Seek IRL
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seek-irl/seekd

package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/seek-irl/seekd/internal/chat"
	"github.com/seek-irl/seekd/internal/config"
	"github.com/seek-irl/seekd/internal/directory"
	"github.com/seek-irl/seekd/internal/models"
	"github.com/seek-irl/seekd/internal/presence"
	"github.com/seek-irl/seekd/internal/resolve"
	"github.com/seek-irl/seekd/internal/store"
	seekws "github.com/seek-irl/seekd/internal/websocket"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	st, err := store.Open(config.StoreConfig{Path: t.TempDir(), InMemory: true}, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	dir := directory.New(1.0)
	dir.Replace([]models.Venue{
		{ID: "1", Name: "Spats", City: "Austin", Lat: 30.2849, Lng: -97.7341},
		{ID: "2", Name: "Harrys", City: "Austin", Lat: 30.2672, Lng: -97.7431},
	})

	h := NewHandler(
		st,
		dir,
		resolve.New(dir, 0.5, true),
		presence.NewSessions(st, st, 12*time.Hour),
		chat.NewService(st, config.ChatConfig{
			ProfanityWords: []string{"heck"},
			SendPerMinute:  60,
			MaxMessageLen:  500,
		}),
		nil, // no snapshot: reads fall back to the store log
		config.PresenceConfig{
			VenueWindow:       time.Hour,
			SessionWindow:     12 * time.Hour,
			TrendingWindow:    time.Hour,
			SnapshotRetention: 24 * time.Hour,
		},
	)

	srv := httptest.NewServer(NewRouter(h, seekws.NewHub(), config.SecurityConfig{
		RateLimitReqs:      1000,
		RateLimitWindow:    time.Minute,
		WriteRateLimitReqs: 1000,
	}))
	t.Cleanup(srv.Close)
	return srv
}

type envelope struct {
	Status string           `json:"status"`
	Data   json.RawMessage  `json:"data"`
	Error  *models.APIError `json:"error"`
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return resp.StatusCode, env
}

func checkIn(t *testing.T, srv *httptest.Server, name, venueText string) CheckInResponse {
	t.Helper()
	status, env := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/v1/checkins", CheckInRequest{
		City:      "Austin",
		VenueText: venueText,
		Attributes: models.Attributes{
			Name: name, Age: 24, Gender: "Man", College: "UT Austin",
		},
	})
	if status != http.StatusCreated {
		t.Fatalf("check-in status = %d, error = %+v", status, env.Error)
	}
	var out CheckInResponse
	if err := json.Unmarshal(env.Data, &out); err != nil {
		t.Fatalf("decode check-in response: %v", err)
	}
	return out
}

func TestCheckInAssignsAnonymousIdentity(t *testing.T) {
	srv := newTestServer(t)

	res := checkIn(t, srv, "Alex", "Spats")
	if !strings.HasPrefix(res.IdentityKey, "anon:") {
		t.Errorf("identity key = %q, want anon fingerprint", res.IdentityKey)
	}
	if res.Event.VenueKey != "spats" {
		t.Errorf("venue key = %q", res.Event.VenueKey)
	}
	if res.Event.EventID == "" || res.Event.CreatedAt.IsZero() {
		t.Error("event missing store-assigned fields")
	}

	// Same attributes resolve to the same identity.
	res2 := checkIn(t, srv, "Alex", "Harrys")
	if res2.IdentityKey != res.IdentityKey {
		t.Errorf("identity not stable: %q vs %q", res2.IdentityKey, res.IdentityKey)
	}
}

func TestCheckInValidation(t *testing.T) {
	srv := newTestServer(t)

	// Missing city.
	status, env := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/v1/checkins", CheckInRequest{
		VenueText:  "Spats",
		Attributes: models.Attributes{Name: "Alex"},
	})
	if status != http.StatusBadRequest || env.Error == nil || env.Error.Code != codeValidation {
		t.Errorf("missing city: status=%d error=%+v", status, env.Error)
	}

	// No venue input at all.
	status, env = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/v1/checkins", CheckInRequest{
		City:       "Austin",
		Attributes: models.Attributes{Name: "Alex"},
	})
	if status != http.StatusBadRequest || env.Error.Code != codeNoVenue {
		t.Errorf("no venue: status=%d error=%+v", status, env.Error)
	}

	// Unknown gender option.
	status, env = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/v1/checkins", CheckInRequest{
		City:      "Austin",
		VenueText: "Spats",
		Attributes: models.Attributes{
			Name: "Alex", Gender: "Robot",
		},
	})
	if status != http.StatusBadRequest || env.Error.Code != codeValidation {
		t.Errorf("bad gender: status=%d error=%+v", status, env.Error)
	}
}

func TestPresenceEndpoint(t *testing.T) {
	srv := newTestServer(t)
	checkIn(t, srv, "Alex", "Spats")
	checkIn(t, srv, "Sam", "Spats")

	status, env := doJSON(t, srv.Client(), http.MethodGet,
		srv.URL+"/api/v1/presence?city=Austin&venue=Spats", nil)
	if status != http.StatusOK {
		t.Fatalf("presence status = %d", status)
	}
	var entries []models.PresenceEntry
	if err := json.Unmarshal(env.Data, &entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}

	// Hard filter excludes non-matches.
	status, env = doJSON(t, srv.Client(), http.MethodGet,
		srv.URL+"/api/v1/presence?city=Austin&venue=Spats&filter.college=UT+Austin&hard=true", nil)
	if status != http.StatusOK {
		t.Fatalf("filtered presence status = %d", status)
	}
	json.Unmarshal(env.Data, &entries)
	if len(entries) != 2 {
		t.Errorf("matching entries filtered out: %d", len(entries))
	}

	status, env = doJSON(t, srv.Client(), http.MethodGet,
		srv.URL+"/api/v1/presence?city=Austin&venue=Spats&filter.college=A%26M&hard=true", nil)
	json.Unmarshal(env.Data, &entries)
	if len(entries) != 0 {
		t.Errorf("hard filter kept non-matches: %d", len(entries))
	}
}

func TestDeclareAwayEmptiesPresence(t *testing.T) {
	srv := newTestServer(t)
	res := checkIn(t, srv, "Alex", "Spats")

	status, _ := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/v1/declare-away", DeclareAwayRequest{
		IdentityKey: res.IdentityKey,
		City:        "Austin",
	})
	if status != http.StatusOK {
		t.Fatalf("declare-away status = %d", status)
	}

	_, env := doJSON(t, srv.Client(), http.MethodGet,
		srv.URL+"/api/v1/presence?city=Austin&venue=Spats", nil)
	var entries []models.PresenceEntry
	json.Unmarshal(env.Data, &entries)
	if len(entries) != 0 {
		t.Errorf("declared-away identity still present: %+v", entries)
	}

	// Session reports declared.
	_, env = doJSON(t, srv.Client(), http.MethodGet,
		srv.URL+"/api/v1/session?identity_key="+res.IdentityKey, nil)
	var session struct {
		State models.SessionState `json:"state"`
	}
	json.Unmarshal(env.Data, &session)
	if session.State != models.SessionDeclared {
		t.Errorf("session state = %s, want declared", session.State)
	}
}

func TestTrendingEndpoint(t *testing.T) {
	srv := newTestServer(t)
	checkIn(t, srv, "Alex", "Spats")
	checkIn(t, srv, "Sam", "Spats")
	checkIn(t, srv, "Kit", "Harrys")

	status, env := doJSON(t, srv.Client(), http.MethodGet,
		srv.URL+"/api/v1/trending?city=Austin", nil)
	if status != http.StatusOK {
		t.Fatalf("trending status = %d", status)
	}
	var board []struct {
		models.VenueActivity
		Venue *models.Venue `json:"venue"`
	}
	if err := json.Unmarshal(env.Data, &board); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(board) != 2 || board[0].VenueKey != "spats" || board[0].Count != 2 {
		t.Fatalf("board = %+v", board)
	}
	if board[0].Venue == nil || board[0].Venue.Name != "Spats" {
		t.Errorf("directory details missing: %+v", board[0].Venue)
	}
}

func TestVenueEndpoints(t *testing.T) {
	srv := newTestServer(t)

	status, env := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/v1/venues?city=austin", nil)
	if status != http.StatusOK {
		t.Fatalf("venues status = %d", status)
	}
	var venues []models.Venue
	json.Unmarshal(env.Data, &venues)
	if len(venues) != 2 {
		t.Errorf("venues = %d, want 2", len(venues))
	}

	status, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/v1/venues", nil)
	if status != http.StatusBadRequest {
		t.Errorf("missing city status = %d", status)
	}

	status, env = doJSON(t, srv.Client(), http.MethodGet,
		srv.URL+"/api/v1/venues/nearest?city=austin&lat=30.2849&lng=-97.7341", nil)
	if status != http.StatusOK {
		t.Fatalf("nearest status = %d", status)
	}
	var nearest struct {
		Venue models.Venue `json:"venue"`
	}
	json.Unmarshal(env.Data, &nearest)
	if nearest.Venue.Name != "Spats" {
		t.Errorf("nearest = %+v", nearest.Venue)
	}

	status, env = doJSON(t, srv.Client(), http.MethodGet,
		srv.URL+"/api/v1/venues/suggest?city=austin&q=spa", nil)
	if status != http.StatusOK {
		t.Fatalf("suggest status = %d", status)
	}
	json.Unmarshal(env.Data, &venues)
	if len(venues) != 1 || venues[0].Name != "Spats" {
		t.Errorf("suggest = %+v", venues)
	}
}

func TestChatEndpoints(t *testing.T) {
	srv := newTestServer(t)

	// Send to the city room, masked.
	status, env := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/v1/chat/messages", SendMessageRequest{
		Room: roomParams{Kind: models.RoomCity, City: "Austin"},
		From: "anon:u1",
		Text: "what the heck",
	})
	if status != http.StatusCreated {
		t.Fatalf("send status = %d, error = %+v", status, env.Error)
	}
	var sent models.ChatMessage
	json.Unmarshal(env.Data, &sent)
	if sent.Text != "what the ****" {
		t.Errorf("text = %q", sent.Text)
	}

	// History.
	status, env = doJSON(t, srv.Client(), http.MethodGet,
		srv.URL+"/api/v1/chat/messages?kind=city&city=Austin", nil)
	if status != http.StatusOK {
		t.Fatalf("history status = %d", status)
	}
	var msgs []models.ChatMessage
	json.Unmarshal(env.Data, &msgs)
	if len(msgs) != 1 {
		t.Fatalf("history = %d messages", len(msgs))
	}

	// Vote, idempotent.
	status, env = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/v1/chat/votes", VoteRequest{
		MessageID: sent.MessageID, IdentityKey: "anon:u2",
	})
	if status != http.StatusOK {
		t.Fatalf("vote status = %d", status)
	}
	var vote struct {
		Message models.ChatMessage `json:"message"`
		Applied bool               `json:"applied"`
	}
	json.Unmarshal(env.Data, &vote)
	if !vote.Applied || vote.Message.Votes != 1 {
		t.Errorf("vote = %+v", vote)
	}

	status, env = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/v1/chat/votes", VoteRequest{
		MessageID: sent.MessageID, IdentityKey: "anon:u2",
	})
	json.Unmarshal(env.Data, &vote)
	if vote.Applied {
		t.Error("repeat vote applied")
	}

	// Unknown message.
	status, _ = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/v1/chat/votes", VoteRequest{
		MessageID: "missing", IdentityKey: "anon:u2",
	})
	if status != http.StatusNotFound {
		t.Errorf("unknown message status = %d", status)
	}

	// Venue room without a venue key is a recoverable error.
	status, env = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/v1/chat/messages", SendMessageRequest{
		Room: roomParams{Kind: models.RoomVenue},
		From: "anon:u1",
		Text: "hello",
	})
	if status != http.StatusBadRequest || env.Error.Code != codeNoVenue {
		t.Errorf("no venue: status=%d error=%+v", status, env.Error)
	}
}

func TestDMEndpoints(t *testing.T) {
	srv := newTestServer(t)

	status, env := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/v1/chat/rooms/dm", OpenDMRequest{
		SelfID: "anon:u2", SelfName: "Sam", PeerID: "anon:u1", PeerName: "Alex",
	})
	if status != http.StatusOK {
		t.Fatalf("open dm status = %d, error = %+v", status, env.Error)
	}
	var room models.DMRoom
	json.Unmarshal(env.Data, &room)
	if room.PairKey != models.PairKey("anon:u1", "anon:u2") {
		t.Errorf("pair key = %q", room.PairKey)
	}

	_, env = doJSON(t, srv.Client(), http.MethodGet,
		srv.URL+"/api/v1/chat/rooms/dm?identity_key=anon:u1", nil)
	var rooms []models.DMRoom
	json.Unmarshal(env.Data, &rooms)
	if len(rooms) != 1 {
		t.Errorf("dm list = %+v", rooms)
	}

	// Self-DM rejected.
	status, env = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/v1/chat/rooms/dm", OpenDMRequest{
		SelfID: "anon:u1", PeerID: "anon:u1",
	})
	if status != http.StatusBadRequest || env.Error.Code != codeNoPeer {
		t.Errorf("self dm: status=%d error=%+v", status, env.Error)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)
	status, env := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/health", nil)
	if status != http.StatusOK || env.Status != "ok" {
		t.Errorf("health: status=%d env=%+v", status, env)
	}
}
