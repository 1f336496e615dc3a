package websocket

import (
	"context"
	"sync"
	"time"

	"socialhub/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PartnerLister resolves the users who share a chat with a user.
type PartnerLister interface {
	PartnerIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// PresenceRecorder mirrors online state into shared storage.
type PresenceRecorder interface {
	SetOnline(ctx context.Context, userID string, connections int) error
	SetOffline(ctx context.Context, userID string) error
	Heartbeat(ctx context.Context, userID string) error
}

type HubConfig struct {
	SendBuffer      int
	EventsPerSecond float64
	EventBurst      int
}

func DefaultHubConfig() HubConfig {
	return HubConfig{SendBuffer: 256, EventsPerSecond: 10, EventBurst: 20}
}

const presenceTimeout = 5 * time.Second

// Hub owns the connection registry. Connections join and leave through the
// Run loop, which only mutates the registry; presence writes and online and
// offline announcements run off the loop so a slow store never delays other
// users' connects.
type Hub struct {
	cfg        HubConfig
	registry   *Registry
	dispatcher *Dispatcher
	router     *Router
	partners   PartnerLister
	presence   PresenceRecorder
	metrics    *metrics.Metrics
	log        *Logger

	register   chan Connection
	unregister chan Connection
	done       chan struct{}
	effects    sync.WaitGroup
}

// NewHub wires a hub. presence may be nil when Redis is disabled.
func NewHub(cfg HubConfig, registry *Registry, dispatcher *Dispatcher, router *Router, partners PartnerLister, presence PresenceRecorder, m *metrics.Metrics, log *Logger) *Hub {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = DefaultHubConfig().SendBuffer
	}
	if cfg.EventsPerSecond <= 0 {
		cfg.EventsPerSecond = DefaultHubConfig().EventsPerSecond
	}
	if cfg.EventBurst <= 0 {
		cfg.EventBurst = DefaultHubConfig().EventBurst
	}
	if log == nil {
		log = NewLogger(nil)
	}
	return &Hub{
		cfg:        cfg,
		registry:   registry,
		dispatcher: dispatcher,
		router:     router,
		partners:   partners,
		presence:   presence,
		metrics:    m,
		log:        log,
		register:   make(chan Connection),
		unregister: make(chan Connection, 256),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Registry() *Registry { return h.registry }

func (h *Hub) Dispatcher() *Dispatcher { return h.dispatcher }

// Run processes joins and leaves until ctx is cancelled, then closes every
// live connection and waits for pending presence work.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	defer h.effects.Wait()

	for {
		select {
		case conn := <-h.register:
			h.attach(conn)
		case conn := <-h.unregister:
			h.detach(conn)
		case <-ctx.Done():
			for _, conn := range h.registry.All() {
				h.detach(conn)
			}
			return
		}
	}
}

func (h *Hub) Register(conn Connection) bool {
	select {
	case h.register <- conn:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(conn Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

func (h *Hub) attach(conn Connection) {
	userID := conn.UserID()
	first := h.registry.Register(userID, conn)
	h.metrics.ConnectionOpened()
	h.log.Info("connected", userID, conn.ID(), zap.Bool("first", first))

	if first {
		h.metrics.UserOnline()
	}
	h.afterTransition(userID, first, EventUserOnline)
}

func (h *Hub) detach(conn Connection) {
	userID, last := h.registry.Unregister(conn.ID())
	if c, ok := conn.(interface{ Close() }); ok {
		c.Close()
	}
	if userID == uuid.Nil {
		return
	}
	h.metrics.ConnectionClosed()
	h.log.Info("disconnected", userID, conn.ID(), zap.Bool("last", last))

	if last {
		h.metrics.UserOffline()
	}
	h.afterTransition(userID, last, EventUserOffline)
}

// afterTransition records presence and, when the user crossed between
// online and offline, tells their chat partners. Both read the registry when
// they run, so out-of-order completions settle on the current state.
func (h *Hub) afterTransition(userID uuid.UUID, crossed bool, event string) {
	h.effects.Add(1)
	go func() {
		defer h.effects.Done()
		h.recordPresence(userID)
		if crossed {
			h.announce(userID, event)
		}
	}()
}

func (h *Hub) announce(userID uuid.UUID, event string) {
	if h.registry.IsOnline(userID) != (event == EventUserOnline) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
	defer cancel()

	partners, err := h.partners.PartnerIDs(ctx, userID)
	if err != nil {
		h.log.Error(event, userID, "", err)
		return
	}
	h.dispatcher.SendToUsers(partners, event, PresencePayload{UserID: userID})
}

func (h *Hub) recordPresence(userID uuid.UUID) {
	if h.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
	defer cancel()

	var err error
	if n := h.registry.ConnectionCount(userID); n > 0 {
		err = h.presence.SetOnline(ctx, userID.String(), n)
	} else {
		err = h.presence.SetOffline(ctx, userID.String())
	}
	if err != nil {
		h.log.Warn("presence", userID, "", zap.Error(err))
	}
}

func (h *Hub) heartbeat(userID uuid.UUID) {
	if h.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
	defer cancel()
	if err := h.presence.Heartbeat(ctx, userID.String()); err != nil {
		h.log.Warn("heartbeat", userID, "", zap.Error(err))
	}
}
