package hub

import (
	"Campus/internal/chat"
	"Campus/internal/event"
	"Campus/internal/metrics"
	"Campus/internal/presence"
	"Campus/internal/signaling"
	"Campus/pkg/apperrors"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	shardCount = 64 // tune: 16/64/128 depending on load
)

type inboundMessage struct {
	event  event.WsEvent
	client *Client
}

// userBucket holds the sockets of the users hashed into one shard.
type userBucket struct {
	sync.RWMutex
	users map[string]map[string]*Client // userID -> clientID -> client
}

// Config tunes the socket surface.
type Config struct {
	AllowedOrigins []string
	RateLimit      float64 // inbound events per second per socket
	RateBurst      int
	QuietInterval  time.Duration
}

type Hub struct {
	shards     [shardCount]*userBucket
	register   chan *Client
	unregister chan *Client
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	stopOnce   sync.Once

	// one queue per worker; a client always lands on the same one so its
	// events are handled in the order they were read
	inbound []chan inboundMessage

	config      Config
	upgrader    websocket.Upgrader
	chatHandler *ChatHandler
	callHandler *CallHandler
	logger      *zap.Logger
}

func NewHub(chats *chat.Service, tracker *presence.Tracker, exchange *signaling.Exchange, config Config, logger *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		register:   make(chan *Client, 1024),
		unregister: make(chan *Client, 1024),
		ctx:        ctx,
		cancel:     cancel,
		config:     config,
		logger:     logger,
	}

	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	h.chatHandler = NewChatHandler(h, chats, tracker)
	h.callHandler = NewCallHandler(h, exchange)

	for i := 0; i < shardCount; i++ {
		h.shards[i] = &userBucket{
			users: make(map[string]map[string]*Client),
		}
	}

	// run manager loop
	go h.run()

	// start worker loop
	h.inbound = make([]chan inboundMessage, workerPoolSize)
	for i := range h.inbound {
		queue := make(chan inboundMessage, inboundQueueSize)
		h.inbound[i] = queue

		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			for {
				select {
				case <-h.ctx.Done():
					return
				case in, ok := <-queue:
					if !ok {
						return
					}

					h.handleEvent(in.event, in.client)
				}
			}
		}()
	}

	return h
}

func (h *Hub) newLimiter() *rate.Limiter {
	if h.config.RateLimit <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := h.config.RateBurst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(h.config.RateLimit), burst)
}

func (h *Hub) handleEvent(ev event.WsEvent, c *Client) {
	if c.IsClosed() {
		return
	}
	if !c.limiter.Allow() {
		h.rejectRateLimited(ev, c)
		return
	}

	switch {
	case event.IsChatEvent(ev.Event):
		h.chatHandler.HandleChatEvent(ev, c)
	case event.IsCallEvent(ev.Event):
		h.callHandler.HandleCallEvent(ev, c)
	default:
		h.logger.Warn("unknown event type",
			zap.String("event", ev.Event),
			zap.String("client_id", c.ID),
		)
	}
}

// rejectRateLimited answers a throttled event on the channel the event
// belongs to and drops it.
func (h *Hub) rejectRateLimited(ev event.WsEvent, c *Client) {
	metrics.RateLimited.Inc()
	c.logger.Debug("event rate limited", zap.String("event", ev.Event))

	err := apperrors.New(apperrors.CodeUnavailable, "too many events, slow down")
	if event.IsCallEvent(ev.Event) {
		h.callHandler.sendCallError(c, "", err)
		return
	}
	sendChatError(c, "", err)
}

// queueFor picks the worker queue that handles every event of clientID.
func (h *Hub) queueFor(clientID string) chan inboundMessage {
	sum := sha1.Sum([]byte(clientID))
	return h.inbound[binary.BigEndian.Uint32(sum[:4])%uint32(len(h.inbound))]
}

func getShard(userID string) uint32 {
	if userID == "" {
		return 0
	}

	h := sha1.Sum([]byte(userID))
	return binary.BigEndian.Uint32(h[:4]) % shardCount
}

func (h *Hub) addClient(c *Client) {
	sh := getShard(c.userID)
	b := h.shards[sh]
	b.Lock()
	defer b.Unlock()

	clients, ok := b.users[c.userID]
	if !ok {
		clients = make(map[string]*Client)
		b.users[c.userID] = clients
	}

	clients[c.ID] = c
	metrics.SocketConnections.Inc()
	h.logger.Debug("client registered",
		zap.String("client_id", c.ID),
		zap.String("user_id", c.userID),
		zap.Uint32("shard", sh),
	)
}

func (h *Hub) removeClient(c *Client) {
	sh := getShard(c.userID)
	b := h.shards[sh]
	b.Lock()
	defer b.Unlock()

	if clients, ok := b.users[c.userID]; ok {
		if _, exists := clients[c.ID]; exists {
			delete(clients, c.ID)
			metrics.SocketConnections.Dec()
		}

		if len(clients) == 0 {
			delete(b.users, c.userID)
		}
	}

	c.Close()
	h.logger.Debug("client removed",
		zap.String("client_id", c.ID),
		zap.String("user_id", c.userID),
		zap.Uint32("shard", sh),
	)
}

// clients returns a snapshot of every connected socket.
func (h *Hub) clients() []*Client {
	var out []*Client
	for _, shard := range h.shards {
		shard.RLock()
		for _, clients := range shard.users {
			for _, c := range clients {
				out = append(out, c)
			}
		}
		shard.RUnlock()
	}
	return out
}

func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		h.cancel()

		// Close all client connections
		for _, c := range h.clients() {
			c.Close()
		}

		h.wg.Wait()
		h.logger.Info("hub stopped")
	})
}

func (h *Hub) run() {
	for {
		select {
		case <-h.ctx.Done():
			return
		case c := <-h.register:
			h.addClient(c)
		case c := <-h.unregister:
			h.removeClient(c)
		}
	}
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		// non-browser clients do not send an origin
		return true
	}

	for _, allowed := range h.config.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// ServeWS upgrades the request and attaches a client for userID.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	RegisterClient(userID, conn, h)
}
