// Seekd - Venue Presence and Real-Time Social Graph Engine
// Copyright 2026 Seek IRL
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seek-irl/seekd

package eventprocessor

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/goccy/go-json"

	"github.com/seek-irl/seekd/internal/config"
	"github.com/seek-irl/seekd/internal/logging"
	"github.com/seek-irl/seekd/internal/metrics"
	"github.com/seek-irl/seekd/internal/models"
	"github.com/seek-irl/seekd/internal/presence"
	"github.com/seek-irl/seekd/internal/ranking"
	"github.com/seek-irl/seekd/internal/store"
	"github.com/seek-irl/seekd/internal/websocket"
)

// PoisonTopic receives messages that failed decoding or exhausted their
// retries. Nothing consumes it in-process; it exists for inspection.
const PoisonTopic = "poison.events"

// TrendingEntry is the pushed trending row: the derived activity plus
// the unique-visitor count over the trending window, which reacts faster
// than the presence-window count when a venue heats up.
type TrendingEntry struct {
	models.VenueActivity
	RecentUnique int `json:"recent_unique"`
}

// Broadcaster is the hub surface the processor pushes derived views to.
type Broadcaster interface {
	Publish(msgType, scope string, data interface{})
}

// Processor consumes the bus, maintains the snapshot and pushes derived
// views to the hub.
type Processor struct {
	router   *message.Router
	snapshot *Snapshot
	window   *presence.VenueWindow
	hub      Broadcaster
	presence config.PresenceConfig
	now      func() time.Time
}

// New builds the processor and its watermill router with the recoverer,
// correlation, retry and poison-queue middleware chain.
func New(cfg config.PresenceConfig, bus *store.Bus, snapshot *Snapshot, hub Broadcaster) (*Processor, error) {
	wmLogger := store.NewWatermillLogger(logging.Logger())

	router, err := message.NewRouter(message.RouterConfig{
		CloseTimeout: 30 * time.Second,
	}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("create router: %w", err)
	}

	poison, err := middleware.PoisonQueue(bus.Publisher, PoisonTopic)
	if err != nil {
		return nil, fmt.Errorf("create poison queue: %w", err)
	}

	router.AddMiddleware(
		middleware.CorrelationID,
		poison,
		middleware.Retry{
			MaxRetries:      3,
			InitialInterval: 100 * time.Millisecond,
			MaxInterval:     5 * time.Second,
			Multiplier:      2.0,
			Logger:          wmLogger,
		}.Middleware,
		middleware.Recoverer,
	)

	p := &Processor{
		router:   router,
		snapshot: snapshot,
		window:   presence.NewVenueWindow(cfg.TrendingWindow, 12),
		hub:      hub,
		presence: cfg,
		now:      time.Now,
	}

	router.AddNoPublisherHandler("checkin-derive", store.TopicCheckIns, bus.Subscriber, p.handleCheckIn)
	router.AddNoPublisherHandler("chat-fanout", store.TopicChats, bus.Subscriber, p.handleChat)
	return p, nil
}

// Run drives the router until ctx cancels. Blocks; run it supervised.
func (p *Processor) Run(ctx context.Context) error {
	return p.router.Run(ctx)
}

// Running closes once the router accepts messages; startup sequencing
// waits on it before serving traffic.
func (p *Processor) Running() <-chan struct{} {
	return p.router.Running()
}

// Prune evicts events past the retention horizon from the snapshot and
// drops trending-window venues that emptied out. Returns the number of
// snapshot events removed. The supervisor calls this on an interval.
func (p *Processor) Prune() int {
	p.window.Prune()
	return p.snapshot.Prune()
}

// Seed warms the snapshot from the store's log for the given cities.
func (p *Processor) Seed(ctx context.Context, st *store.Store, cities []string) error {
	since := p.now().Add(-p.presence.SnapshotRetention)
	for _, city := range cities {
		events, err := st.EventsSince(ctx, city, since)
		if err != nil {
			return fmt.Errorf("seed snapshot for %s: %w", city, err)
		}
		p.snapshot.Seed(events)
	}
	return nil
}

// handleCheckIn folds one event into the snapshot and pushes the
// re-derived venue, city and trending views.
func (p *Processor) handleCheckIn(msg *message.Message) error {
	var ev models.CheckInEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		return fmt.Errorf("decode check-in %s: %w", msg.UUID, err)
	}

	start := p.now()
	p.snapshot.Add(ev)
	if ev.AtVenue() {
		p.window.Observe(ev.VenueKey, ev.IdentityKey)
	}

	events := p.snapshot.Events(ev.City)
	now := p.now()

	if ev.AtVenue() {
		venueView := presence.ActivePresence(events, ev.VenueKey, p.presence.VenueWindow, now)
		p.hub.Publish(websocket.MessageTypePresence, websocket.ScopeVenue(ev.VenueKey), venueView)
	} else {
		// A declare-away empties the identity's previous venue; without
		// the previous key here, scoped venue views refresh lazily and
		// only the city-wide views push now.
		metrics.DeclaredAwayTotal.Inc()
	}

	cityView := presence.ActivePresence(events, "", p.presence.VenueWindow, now)
	p.hub.Publish(websocket.MessageTypePresence, websocket.ScopeCity(ev.City), cityView)

	activity := presence.ActivityByVenue(events, p.presence.TrendingWindow, now)
	board := make([]TrendingEntry, 0, len(activity))
	for _, act := range ranking.RankTrending(activity, 0) {
		board = append(board, TrendingEntry{
			VenueActivity: act,
			RecentUnique:  p.window.Count(act.VenueKey),
		})
	}
	p.hub.Publish(websocket.MessageTypeTrending, websocket.ScopeTrending(ev.City), board)

	metrics.ObserveDerivation(p.now().Sub(start))
	return nil
}

// handleChat forwards a persisted message to its room's subscribers.
func (p *Processor) handleChat(msg *message.Message) error {
	var m models.ChatMessage
	if err := json.Unmarshal(msg.Payload, &m); err != nil {
		return fmt.Errorf("decode chat message %s: %w", msg.UUID, err)
	}
	p.hub.Publish(websocket.MessageTypeChat, websocket.ScopeRoom(m.RoomID), m)
	return nil
}
