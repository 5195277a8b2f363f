package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/wirechat/wirechat/internal/auth"
	"github.com/wirechat/wirechat/internal/broker"
	"github.com/wirechat/wirechat/internal/events"
	"github.com/wirechat/wirechat/internal/metrics"
)

// wsConn is the part of *websocket.Conn a session drives, factored out so
// tests can run the state machine against a fake transport.
type wsConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(string) error)
	Close() error
}

// inbound is the client frame grammar. type discriminates; the other fields
// are populated per type.
type inbound struct {
	Type   string `json:"type"`
	Token  string `json:"token,omitempty"`
	Active *bool  `json:"active,omitempty"`
	ChatID int64  `json:"chat_id,omitempty"`
	Status string `json:"status,omitempty"`
}

// Session is one duplex connection. It starts unauthenticated and rejects
// every frame except auth until one succeeds. All writes go through the send
// queue so the writer goroutine is the only one touching the transport for
// data frames.
type Session struct {
	conn  wsConn
	hub   *Hub
	pres  *Presence
	auth  *auth.Service
	store Store
	authz Authorizer
	brk   Broker
	log   zerolog.Logger

	send      chan []byte
	closeOnce sync.Once
	done      chan struct{}

	mu        sync.Mutex
	userID    int64
	isAdmin   bool
	username  string
	active    bool
	lastTouch time.Time

	// chats the session subscribed to; guarded by the hub mutex.
	chats map[int64]struct{}
}

func (s *Session) UserID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

func (s *Session) IsAdmin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isAdmin
}

func (s *Session) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.username
}

func (s *Session) isActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *Session) authed() bool {
	return s.UserID() != 0
}

// Send queues an outbound payload. A full queue means the peer stopped
// reading; the session is closed instead of blocking fan-out for everyone
// else.
func (s *Session) Send(payload []byte) {
	select {
	case <-s.done:
	case s.send <- payload:
	default:
		s.log.Warn().Int64("user_id", s.UserID()).Msg("send queue full, dropping session")
		s.forceClose()
	}
}

// forceClose tears down the transport; the read loop unblocks and runs the
// regular close path.
func (s *Session) forceClose() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

// readLoop drives the inbound state machine until the transport dies.
func (s *Session) readLoop(ctx context.Context) {
	defer s.teardown(ctx)

	s.conn.SetReadLimit(maxFrameSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			s.Send(events.Error("Binary frames are not supported"))
			continue
		}

		var frame inbound
		if err := json.Unmarshal(data, &frame); err != nil {
			s.Send(events.Error("Malformed frame"))
			continue
		}
		if !s.handleFrame(ctx, frame) {
			return
		}
	}
}

// handleFrame processes one frame; false means the session must close.
func (s *Session) handleFrame(ctx context.Context, frame inbound) bool {
	if !s.authed() {
		if frame.Type != "auth" {
			// The client may still authenticate on this connection.
			s.Send(events.Error("Not authenticated"))
			return true
		}
		return s.handleAuth(ctx, frame)
	}

	switch frame.Type {
	case "auth":
		// Repeat auth on a live session is a no-op ack.
		s.Send(events.AuthOK(s.UserID()))
	case "subscribe":
		s.handleSubscribe(ctx, frame.ChatID)
	case "typing":
		s.handleTyping(ctx, frame.ChatID)
	case "presence_update":
		s.handlePresenceUpdate(ctx, frame.Status)
	case "ping":
		s.handlePing(ctx, frame.Active)
	default:
		s.Send(events.Error("Unknown frame type"))
	}
	return true
}

func (s *Session) handleAuth(ctx context.Context, frame inbound) bool {
	claims, err := s.auth.VerifyAccess(frame.Token)
	if err != nil {
		s.Send(events.Error("Invalid token"))
		return false
	}

	active := frame.Active == nil || *frame.Active

	username := ""
	if u, err := s.store.UserByID(ctx, claims.UserID); err == nil {
		username = u.Username
	} else {
		s.log.Warn().Err(err).Int64("user_id", claims.UserID).Msg("username lookup failed on auth")
	}

	s.mu.Lock()
	s.userID = claims.UserID
	s.isAdmin = claims.IsAdmin
	s.username = username
	s.active = active
	s.lastTouch = time.Now()
	s.mu.Unlock()

	s.log = s.log.With().Int64("user_id", claims.UserID).Logger()

	s.hub.AttachUser(s)
	if err := s.store.TouchUserLastActivity(ctx, claims.UserID); err != nil {
		s.log.Warn().Err(err).Msg("last-activity touch failed on auth")
	}
	s.Send(events.AuthOK(claims.UserID))
	if active {
		s.pres.SessionActive(ctx, s)
	}
	return true
}

func (s *Session) handleSubscribe(ctx context.Context, chatID int64) {
	if chatID <= 0 {
		s.Send(events.Error("chat_id is required"))
		return
	}
	ok, err := s.authz.IsMember(ctx, chatID, s.UserID())
	if err != nil {
		s.log.Error().Err(err).Int64("chat_id", chatID).Msg("membership check failed")
		s.Send(events.Error("Internal error"))
		return
	}
	if !ok {
		s.Send(events.Error("Not a member of this chat"))
		return
	}
	s.hub.AttachChat(chatID, s)
	s.Send(events.Subscribed(chatID))
}

func (s *Session) handleTyping(ctx context.Context, chatID int64) {
	if chatID <= 0 {
		s.Send(events.Error("chat_id is required"))
		return
	}
	s.brk.Publish(ctx, broker.ChatChannel(chatID), events.Typing(chatID, s.UserID(), s.Username()))
}

func (s *Session) handlePresenceUpdate(ctx context.Context, status string) {
	switch status {
	case "active":
		s.mu.Lock()
		was := s.active
		s.active = true
		s.mu.Unlock()
		if !was {
			s.pres.SessionActive(ctx, s)
		}
	case "away":
		s.mu.Lock()
		was := s.active
		s.active = false
		s.mu.Unlock()
		if was {
			s.pres.SessionAway(ctx, s)
		}
	default:
		s.Send(events.Error("status must be active or away"))
	}
}

func (s *Session) handlePing(ctx context.Context, activePtr *bool) {
	s.Send(events.Pong())
	if activePtr == nil || !*activePtr {
		return
	}

	s.mu.Lock()
	wasActive := s.active
	s.active = true
	touch := time.Since(s.lastTouch) >= touchInterval
	if touch {
		s.lastTouch = time.Now()
	}
	s.mu.Unlock()

	if touch {
		if err := s.store.TouchUserLastActivity(ctx, s.UserID()); err != nil {
			s.log.Warn().Err(err).Msg("last-activity touch failed on ping")
		}
	}
	if !wasActive {
		s.pres.SessionActive(ctx, s)
	}
}

// writeLoop is the only writer of data frames; it also keeps the transport
// alive with ping frames.
func (s *Session) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.forceClose()
	}()

	for {
		select {
		case payload, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
			metrics.WSFramesOut.Inc()
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			return
		}
	}
}

// teardown runs once when the read loop exits: detach everywhere, let
// presence decide whether the user went offline.
func (s *Session) teardown(ctx context.Context) {
	s.forceClose()
	s.hub.Detach(s)
	s.pres.SessionClosed(ctx, s)
}
