package hub

import (
	"Campus/internal/chat"
	"Campus/internal/event"
	"context"
	"errors"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type Client struct {
	ID      string
	userID  string
	conn    *websocket.Conn
	manager *Hub
	egress  chan event.WsEvent
	inbound chan inboundMessage
	limiter *rate.Limiter
	logger  *zap.Logger

	// open conversation views, keyed by peer id
	sessions   map[string]*chat.Session
	sessionsMu sync.Mutex

	// call sessions this socket relays, keyed by session id
	relays   map[string]*callRelay
	relaysMu sync.Mutex

	// cancel or stop goroutine
	cancel         context.CancelFunc
	ctx            context.Context
	once           sync.Once
	connClosed     chan struct{}
	connClosedOnce sync.Once
	closed         bool         // tracks if client is closed
	closedMu       sync.RWMutex // protects closed flag
}

var (
	// tuning parameters
	writeWait          = 10 * time.Second       // time allowed to write a message to the peer
	pongWait           = 20 * time.Second       // time allowed to read the next pong message from the peer
	pingInterval       = (pongWait * 9) / 10    // send pings to peer with this period
	maxMessageSize     = 64 * 1024              // max inbound message size (64KB)
	sendBufSize        = 256                    // per-connection outbound buffer size
	workerPoolSize     = 16                     // number of workers to process inbound messages
	inboundQueueSize   = 256                    // per-worker inbound buffer for burst handling
	sendTimeout        = 2 * time.Second        // timeout for enqueuing outbound messages
	registerTimeout    = 5 * time.Second        // timeout for client registration
	unregisterTimeout  = 5 * time.Second        // timeout for client unregistration
	inboundSendTimeout = 500 * time.Millisecond // timeout for sending to inbound channel
)

// RegisterClient creates a new client with a single WebSocket connection
func RegisterClient(userID string, conn *websocket.Conn, h *Hub) *Client {
	ctx, cancel := context.WithCancel(h.ctx)
	clientID := uuid.New().String()

	client := &Client{
		ID:         clientID,
		userID:     userID,
		conn:       conn,
		manager:    h,
		egress:     make(chan event.WsEvent, sendBufSize),
		inbound:    h.queueFor(clientID),
		limiter:    h.newLimiter(),
		logger:     h.logger.With(zap.String("client_id", clientID), zap.String("user_id", userID)),
		sessions:   make(map[string]*chat.Session),
		relays:     make(map[string]*callRelay),
		cancel:     cancel,
		ctx:        ctx,
		connClosed: make(chan struct{}),
	}

	select {
	case h.register <- client:
		// registered
		go client.ReadMessages()
		go client.WriteMessage()
		client.logger.Info("client connected")
		return client
	case <-time.After(registerTimeout):
		client.logger.Warn("failed to register client: timeout")
		cancel()
		conn.Close()
		return nil
	}
}

func (c *Client) ReadMessages() {
	defer func() {
		select {
		case c.manager.unregister <- c:
			// unregistered successfully
		case <-time.After(unregisterTimeout):
			c.logger.Warn("failed to unregister client: timeout")
		}
		c.Close()
	}()

	c.conn.SetReadLimit(int64(maxMessageSize))
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(c.pongHandler)

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
			var ev event.WsEvent

			if err := c.conn.ReadJSON(&ev); err != nil {
				if websocket.IsCloseError(err,
					websocket.CloseNormalClosure,
					websocket.CloseGoingAway,
					websocket.CloseAbnormalClosure,
				) {
					c.logger.Info("client disconnected")
					return
				}

				var ne net.Error
				if errors.As(err, &ne) && ne.Timeout() {
					c.logger.Info("client timed out - closing connection")
					return
				}

				c.logger.Warn("error reading from client", zap.Error(err))
				return
			}

			// Non-blocking send into inbound processing queue to avoid blocking reader
			select {
			case c.inbound <- inboundMessage{client: c, event: ev}:
				// accepted for processing
			case <-time.After(inboundSendTimeout):
				c.logger.Warn("inbound send timeout: dropping client")
				return
			case <-c.ctx.Done():
				return
			}
		}
	}
}

func (c *Client) WriteMessage() {
	ticker := time.NewTicker(pingInterval)

	defer func() {
		ticker.Stop()
		c.Close()
		_ = c.conn.Close()

		c.connClosedOnce.Do(func() {
			close(c.connClosed)
		})
	}()

	for {
		select {
		case <-c.ctx.Done():
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case ev := <-c.egress:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				c.logger.Warn("write error", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.logger.Debug("ping failed", zap.Error(err))
				return
			}
		}
	}
}

func (c *Client) pongHandler(string) error {
	return c.conn.SetReadDeadline(time.Now().Add(pongWait))
}

// Close stops the pumps, closes every open conversation view and stops
// relaying calls. Call records are left for the peers or the sweeper.
func (c *Client) Close() {
	c.once.Do(func() {
		c.closedMu.Lock()
		c.closed = true
		c.closedMu.Unlock()

		c.cancel()

		c.sessionsMu.Lock()
		sessions := c.sessions
		c.sessions = make(map[string]*chat.Session)
		c.sessionsMu.Unlock()
		for _, s := range sessions {
			s.Close()
		}

		c.relaysMu.Lock()
		relays := c.relays
		c.relays = make(map[string]*callRelay)
		c.relaysMu.Unlock()
		for _, r := range relays {
			r.stop()
		}

		// Wait for WriteMessage to close conn, or force close after timeout
		go func() {
			select {
			case <-c.connClosed:
				// WriteMessage closed it properly
			case <-time.After(5 * time.Second):
				_ = c.conn.Close()
				c.logger.Warn("safety timeout: force closed connection")
			}
		}()
	})
}

// IsClosed returns true if the client has been closed
func (c *Client) IsClosed() bool {
	c.closedMu.RLock()
	defer c.closedMu.RUnlock()
	return c.closed
}

// SafeSend attempts to send an event to the client's egress channel.
// Returns true if sent successfully, false if client is closed or timeout.
func (c *Client) SafeSend(ev event.WsEvent, timeout time.Duration) bool {
	if c.IsClosed() {
		return false
	}

	select {
	case <-c.ctx.Done():
		return false
	case c.egress <- ev:
		return true
	case <-time.After(timeout):
		c.logger.Warn("egress full, dropping event", zap.String("event", ev.Event))
		return false
	}
}

func (c *Client) session(peerID string) *chat.Session {
	c.sessionsMu.Lock()
	defer c.sessionsMu.Unlock()
	return c.sessions[peerID]
}

// addSession stores s unless a view of the same peer is already open.
func (c *Client) addSession(peerID string, s *chat.Session) bool {
	c.sessionsMu.Lock()
	defer c.sessionsMu.Unlock()
	if c.IsClosed() {
		return false
	}
	if _, ok := c.sessions[peerID]; ok {
		return false
	}
	c.sessions[peerID] = s
	return true
}

func (c *Client) removeSession(peerID string) *chat.Session {
	c.sessionsMu.Lock()
	defer c.sessionsMu.Unlock()
	s := c.sessions[peerID]
	delete(c.sessions, peerID)
	return s
}

func (c *Client) openPeers() []string {
	c.sessionsMu.Lock()
	defer c.sessionsMu.Unlock()
	peers := make([]string, 0, len(c.sessions))
	for p := range c.sessions {
		peers = append(peers, p)
	}
	sort.Strings(peers)
	return peers
}

func (c *Client) addRelay(r *callRelay) bool {
	c.relaysMu.Lock()
	defer c.relaysMu.Unlock()
	if c.IsClosed() {
		return false
	}
	if _, ok := c.relays[r.sessionID]; ok {
		return false
	}
	c.relays[r.sessionID] = r
	return true
}

func (c *Client) removeRelay(sessionID string) *callRelay {
	c.relaysMu.Lock()
	defer c.relaysMu.Unlock()
	r := c.relays[sessionID]
	delete(c.relays, sessionID)
	return r
}

func (c *Client) relayedSessions() []string {
	c.relaysMu.Lock()
	defer c.relaysMu.Unlock()
	ids := make([]string, 0, len(c.relays))
	for id := range c.relays {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
