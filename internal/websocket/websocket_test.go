package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"socialhub/config"
	"socialhub/internal/domain/user"
	"socialhub/internal/metrics"
	"socialhub/internal/repository"
	"socialhub/internal/services"
	"socialhub/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeConn struct {
	id     string
	userID uuid.UUID
	refuse bool

	mu     sync.Mutex
	frames [][]byte
}

func newFakeConn(userID uuid.UUID) *fakeConn {
	return &fakeConn{id: uuid.NewString(), userID: userID}
}

func (c *fakeConn) ID() string        { return c.id }
func (c *fakeConn) UserID() uuid.UUID { return c.userID }

func (c *fakeConn) Send(data []byte) bool {
	if c.refuse {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, data)
	return true
}

func (c *fakeConn) received(t *testing.T) []OutboundFrame {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]OutboundFrame, 0, len(c.frames))
	for _, raw := range c.frames {
		var f OutboundFrame
		require.NoError(t, json.Unmarshal(raw, &f))
		out = append(out, f)
	}
	return out
}

func events(frames []OutboundFrame) []string {
	out := make([]string, 0, len(frames))
	for _, f := range frames {
		out = append(out, f.Event)
	}
	return out
}

type env struct {
	db         *gorm.DB
	chats      *services.ChatService
	messages   *services.MessageService
	auth       *services.AuthService
	registry   *Registry
	dispatcher *Dispatcher
	router     *Router
	metrics    *metrics.Metrics

	alice, bob, carol user.User
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.NewDB(t)

	chatRepo := repository.NewChatRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	users := services.NewUserService(repository.NewUserRepository(db), nil, nil)
	posts := services.NewPostService(repository.NewPostRepository(db))

	e := &env{db: db, metrics: metrics.New()}
	e.chats = services.NewChatService(chatRepo, users)
	e.messages = services.NewMessageService(repository.NewTransactor(db), chatRepo, messageRepo, posts)
	e.auth = services.NewAuthService(users, &config.Config{JWTSecret: "test-secret"})
	history := services.NewHistoryService(chatRepo, messageRepo)

	e.registry = NewRegistry()
	e.dispatcher = NewDispatcher(e.registry, nil, e.metrics)
	e.router = NewRouter(e.chats, e.messages, history, e.dispatcher, e.metrics, nil)

	e.alice = testutil.CreateUser(t, db, "Alice")
	e.bob = testutil.CreateUser(t, db, "Bob")
	e.carol = testutil.CreateUser(t, db, "Carol")
	return e
}

func frame(t *testing.T, event, requestID string, data interface{}) []byte {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	out, err := json.Marshal(InboundFrame{Event: event, RequestID: requestID, Data: raw})
	require.NoError(t, err)
	return out
}

func TestRegistryTransitions(t *testing.T) {
	r := NewRegistry()
	u := uuid.New()
	c1, c2 := newFakeConn(u), newFakeConn(u)

	assert.False(t, r.IsOnline(u))
	assert.Empty(t, r.ConnectionsFor(u))

	assert.True(t, r.Register(u, c1))
	assert.False(t, r.Register(u, c2))
	assert.False(t, r.Register(u, c1), "re-registering is a no-op")
	assert.Equal(t, 2, r.Count())
	assert.True(t, r.IsOnline(u))
	assert.True(t, r.IsOnlineString(u.String()))

	id, last := r.Unregister(c1.ID())
	assert.Equal(t, u, id)
	assert.False(t, last)
	assert.True(t, r.IsOnline(u))

	id, last = r.Unregister(c2.ID())
	assert.Equal(t, u, id)
	assert.True(t, last)
	assert.False(t, r.IsOnline(u))
	assert.Zero(t, r.Count())

	id, last = r.Unregister("unknown")
	assert.Equal(t, uuid.Nil, id)
	assert.False(t, last)
	assert.False(t, r.IsOnlineString("not-a-uuid"))
}

func TestRegistryConcurrentUse(t *testing.T) {
	r := NewRegistry()
	u := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := newFakeConn(u)
			r.Register(u, c)
			_ = r.ConnectionsFor(u)
			r.Unregister(c.ID())
		}()
	}
	wg.Wait()
	assert.False(t, r.IsOnline(u))
}

func TestBroadcastReachesEveryLiveConnectionOfMembers(t *testing.T) {
	e := newEnv(t)
	c := testutil.CreateChat(t, e.db, e.alice.ID, e.bob.ID)
	c.Members = []user.User{e.alice, e.bob}

	a1, a2 := newFakeConn(e.alice.ID), newFakeConn(e.alice.ID)
	outsider := newFakeConn(e.carol.ID)
	e.registry.Register(e.alice.ID, a1)
	e.registry.Register(e.alice.ID, a2)
	e.registry.Register(e.carol.ID, outsider)

	assert.NotPanics(t, func() {
		e.dispatcher.BroadcastToMembers(c, EventMessageDelivered, map[string]string{"k": "v"})
	})

	assert.Equal(t, []string{EventMessageDelivered}, events(a1.received(t)))
	assert.Equal(t, []string{EventMessageDelivered}, events(a2.received(t)))
	assert.Empty(t, outsider.received(t))
}

func TestBroadcastCountsDroppedDeliveries(t *testing.T) {
	e := newEnv(t)
	c := testutil.CreateChat(t, e.db, e.alice.ID, e.bob.ID)
	c.Members = []user.User{e.alice, e.bob}

	full := newFakeConn(e.bob.ID)
	full.refuse = true
	ok := newFakeConn(e.alice.ID)
	e.registry.Register(e.bob.ID, full)
	e.registry.Register(e.alice.ID, ok)

	e.dispatcher.BroadcastToMembers(c, EventMessageDelivered, nil)

	assert.Len(t, ok.received(t), 1)
	assert.Empty(t, full.received(t))
}

func TestRouterSendBroadcastsAndAcks(t *testing.T) {
	e := newEnv(t)
	c, err := e.chats.FindOrCreate(context.Background(), e.alice.ID, e.bob.ID)
	require.NoError(t, err)

	sender := newFakeConn(e.alice.ID)
	peer := newFakeConn(e.bob.ID)
	e.registry.Register(e.alice.ID, sender)
	e.registry.Register(e.bob.ID, peer)

	e.router.Handle(context.Background(), sender, frame(t, EventMessageSend, "r1", map[string]interface{}{
		"type":    "text",
		"chat_id": c.ID,
		"content": "hello",
	}))

	got := sender.received(t)
	require.Equal(t, []string{EventMessageDelivered, EventAck}, events(got))
	assert.Equal(t, "r1", got[1].RequestID)
	assert.Equal(t, []string{EventMessageDelivered}, events(peer.received(t)))

	// Without a request id there is no ack.
	e.router.Handle(context.Background(), sender, frame(t, EventMessageSend, "", map[string]interface{}{
		"type":    "text",
		"chat_id": c.ID,
		"content": "again",
	}))
	assert.Equal(t, []string{EventMessageDelivered, EventAck, EventMessageDelivered}, events(sender.received(t)))
}

func TestRouterErrorsGoToOriginOnly(t *testing.T) {
	e := newEnv(t)
	c, err := e.chats.FindOrCreate(context.Background(), e.alice.ID, e.bob.ID)
	require.NoError(t, err)

	intruder := newFakeConn(e.carol.ID)
	peer := newFakeConn(e.bob.ID)
	e.registry.Register(e.carol.ID, intruder)
	e.registry.Register(e.bob.ID, peer)

	e.router.Handle(context.Background(), intruder, frame(t, EventMessageSend, "r2", map[string]interface{}{
		"type":    "text",
		"chat_id": c.ID,
		"content": "let me in",
	}))

	got := intruder.received(t)
	require.Len(t, got, 1)
	assert.Equal(t, EventError, got[0].Event)
	assert.Equal(t, "r2", got[0].RequestID)
	payload := got[0].Data.(map[string]interface{})
	assert.Equal(t, "NOT_FOUND", payload["code"])
	assert.Empty(t, peer.received(t))
}

func TestRouterRejectsMalformedFrames(t *testing.T) {
	e := newEnv(t)
	conn := newFakeConn(e.alice.ID)

	e.router.Handle(context.Background(), conn, []byte("{not json"))
	e.router.Handle(context.Background(), conn, []byte(`{"event":"nope"}`))
	e.router.Handle(context.Background(), conn, []byte(`{"event":"message:edit","data":"oops"}`))
	e.router.Handle(context.Background(), conn, frame(t, EventMessageSend, "", map[string]string{"type": "voice"}))
	e.router.Handle(context.Background(), conn, frame(t, EventHistoryPage, "", map[string]string{"cursor": "garbage"}))
	e.router.Handle(context.Background(), conn, frame(t, EventChatOpen, "", map[string]uuid.UUID{"recipient_id": e.alice.ID}))

	got := conn.received(t)
	require.Len(t, got, 6)
	for _, f := range got {
		assert.Equal(t, EventError, f.Event)
		assert.Equal(t, "INVALID_INPUT", f.Data.(map[string]interface{})["code"])
	}
}

func TestRouterRepliesToQueries(t *testing.T) {
	e := newEnv(t)
	conn := newFakeConn(e.alice.ID)

	e.router.Handle(context.Background(), conn, frame(t, EventChatOpen, "o", map[string]uuid.UUID{"recipient_id": e.bob.ID}))
	e.router.Handle(context.Background(), conn, []byte(`{"event":"ping","request_id":"p"}`))
	e.router.Handle(context.Background(), conn, frame(t, EventChatList, "l", map[string]string{"query": "bo"}))

	got := conn.received(t)
	require.Equal(t, []string{EventChatOpen, EventPong, EventChatList}, events(got))
	opened := got[0].Data.(map[string]interface{})
	assert.Equal(t, "Bob", opened["name"])
	assert.Len(t, got[2].Data.([]interface{}), 1)

	chatID := opened["id"].(string)
	e.router.Handle(context.Background(), conn, frame(t, EventChatGet, "g", map[string]string{"chat_id": chatID}))
	e.router.Handle(context.Background(), conn, frame(t, EventHistoryPage, "h", map[string]interface{}{"chat_id": chatID, "limit": 5}))

	got = conn.received(t)
	require.Equal(t, []string{EventChatOpen, EventPong, EventChatList, EventChatGet, EventHistoryPage}, events(got))
	page := got[4].Data.(map[string]interface{})
	assert.Empty(t, page["messages"])
	assert.Nil(t, page["next_cursor"])
}

type fakePartners struct {
	partners map[uuid.UUID][]uuid.UUID
	delay    time.Duration
}

func (f fakePartners) PartnerIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.partners[userID], nil
}

type fakePresence struct {
	mu     sync.Mutex
	online map[string]int
}

func (p *fakePresence) SetOnline(_ context.Context, userID string, n int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online[userID] = n
	return nil
}

func (p *fakePresence) SetOffline(_ context.Context, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.online, userID)
	return nil
}

func (p *fakePresence) Heartbeat(context.Context, string) error { return nil }

func (p *fakePresence) count(userID uuid.UUID) (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, ok := p.online[userID.String()]
	return n, ok
}

func TestHubAnnouncesOnlineTransitions(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()
	registry := NewRegistry()
	dispatcher := NewDispatcher(registry, nil, nil)
	presence := &fakePresence{online: map[string]int{}}
	partners := fakePartners{partners: map[uuid.UUID][]uuid.UUID{alice: {bob}, bob: {alice}}}
	hub := NewHub(DefaultHubConfig(), registry, dispatcher, nil, partners, presence, nil, nil)

	watcher := newFakeConn(bob)
	hub.attach(watcher)

	a1, a2 := newFakeConn(alice), newFakeConn(alice)
	hub.attach(a1)
	hub.attach(a2)
	require.Eventually(t, func() bool {
		n, _ := presence.count(alice)
		return n == 2 && len(watcher.received(t)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	hub.detach(a1)
	hub.detach(a2)
	require.Eventually(t, func() bool {
		_, stillOnline := presence.count(alice)
		return !stillOnline && len(watcher.received(t)) == 2
	}, 2*time.Second, 10*time.Millisecond)

	got := watcher.received(t)
	require.Equal(t, []string{EventUserOnline, EventUserOffline}, events(got))
	assert.Equal(t, alice.String(), got[0].Data.(map[string]interface{})["user_id"])
}

func TestHubJoinsDoNotWaitOnSlowPartnerLookups(t *testing.T) {
	registry := NewRegistry()
	dispatcher := NewDispatcher(registry, nil, nil)
	partners := fakePartners{delay: 2 * time.Second}
	hub := NewHub(DefaultHubConfig(), registry, dispatcher, nil, partners, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	defer cancel()

	first := newFakeConn(uuid.New())
	second := newFakeConn(uuid.New())

	start := time.Now()
	require.True(t, hub.Register(first))
	require.True(t, hub.Register(second))
	hub.Unregister(first)
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	require.Eventually(t, func() bool {
		return registry.IsOnline(second.UserID()) && !registry.IsOnline(first.UserID())
	}, time.Second, 10*time.Millisecond)
}

// readEvent reads frames until one carries event, skipping presence frames
// whose timing depends on when the other side connected.
func readEvent(t *testing.T, conn *gws.Conn, event string) OutboundFrame {
	t.Helper()
	for {
		f := readFrame(t, conn)
		if f.Event == event {
			return f
		}
		if f.Event != EventUserOnline && f.Event != EventUserOffline {
			t.Fatalf("expected %s, got %s", event, f.Event)
		}
	}
}

func readFrame(t *testing.T, conn *gws.Conn) OutboundFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var f OutboundFrame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestHandshakeAndMessageFlow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	e := newEnv(t)
	c, err := e.chats.FindOrCreate(context.Background(), e.alice.ID, e.bob.ID)
	require.NoError(t, err)

	hub := NewHub(DefaultHubConfig(), e.registry, e.dispatcher, e.router, e.chats, nil, e.metrics, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	engine := gin.New()
	engine.GET("/v1/ws", NewHandler(hub, e.auth).Handle)
	srv := httptest.NewServer(engine)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/ws"

	_, resp, err := gws.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = gws.DefaultDialer.Dial(wsURL+"?token=bogus", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	aliceToken, err := e.auth.IssueAccessToken(e.alice.ID, time.Minute)
	require.NoError(t, err)
	bobToken, err := e.auth.IssueAccessToken(e.bob.ID, time.Minute)
	require.NoError(t, err)

	aliceConn, _, err := gws.DefaultDialer.Dial(wsURL+"?token="+aliceToken, nil)
	require.NoError(t, err)
	defer aliceConn.Close()

	dialer := gws.Dialer{Subprotocols: []string{"bearer", bobToken}}
	bobConn, resp, err := dialer.Dial(wsURL, nil)
	require.NoError(t, err)
	assert.Equal(t, "bearer", resp.Header.Get("Sec-WebSocket-Protocol"))

	online := readEvent(t, aliceConn, EventUserOnline)
	assert.Equal(t, e.bob.ID.String(), online.Data.(map[string]interface{})["user_id"])

	require.NoError(t, aliceConn.WriteJSON(map[string]interface{}{
		"event":      EventMessageSend,
		"request_id": "m1",
		"data":       map[string]interface{}{"type": "text", "chat_id": c.ID, "content": "hi bob"},
	}))

	readEvent(t, aliceConn, EventMessageDelivered)
	ack := readEvent(t, aliceConn, EventAck)
	assert.Equal(t, "m1", ack.RequestID)

	atBob := readEvent(t, bobConn, EventMessageDelivered)
	msg := atBob.Data.(map[string]interface{})["message"].(map[string]interface{})
	assert.Equal(t, "hi bob", msg["content"])

	require.NoError(t, aliceConn.WriteJSON(map[string]interface{}{
		"event":      EventMessageEdit,
		"request_id": "e1",
		"data":       map[string]interface{}{"message_id": uuid.New(), "content": "x"},
	}))
	failed := readEvent(t, aliceConn, EventError)
	assert.Equal(t, "e1", failed.RequestID)

	require.NoError(t, bobConn.Close())
	offline := readEvent(t, aliceConn, EventUserOffline)
	assert.Equal(t, e.bob.ID.String(), offline.Data.(map[string]interface{})["user_id"])
}
