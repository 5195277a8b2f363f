package ws

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/wirechat/wirechat/internal/auth"
	"github.com/wirechat/wirechat/internal/metrics"
)

// Gateway owns the realtime side: the upgrade endpoint plus the shared hub
// and presence aggregator behind it.
type Gateway struct {
	hub      *Hub
	presence *Presence
	auth     *auth.Service
	store    Store
	authz    Authorizer
	brk      Broker
	upgrader websocket.Upgrader
}

func NewGateway(authSvc *auth.Service, st Store, az Authorizer, brk Broker) *Gateway {
	hub := NewHub(brk)
	return &Gateway{
		hub:      hub,
		presence: NewPresence(st, brk, hub),
		auth:     authSvc,
		store:    st,
		authz:    az,
		brk:      brk,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Browser clients authenticate in-band with the auth frame, so
			// cross-origin upgrades are allowed.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Hub exposes the registry for local fan-out (metrics, tests).
func (g *Gateway) Hub() *Hub { return g.hub }

// ServeHTTP upgrades the connection and runs the session pumps. The client
// authenticates with its first frame; the transport itself is public.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Ctx(r.Context()).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	s := g.newSession(conn)
	metrics.WSConnections.Inc()
	defer metrics.WSConnections.Dec()

	go s.writeLoop()
	// The session outlives the HTTP request; frame handling uses a fresh
	// background context so a canceled upgrade request cannot abort DB calls
	// mid-frame.
	s.readLoop(context.WithoutCancel(r.Context()))
}

func (g *Gateway) newSession(conn wsConn) *Session {
	return &Session{
		conn:  conn,
		hub:   g.hub,
		pres:  g.presence,
		auth:  g.auth,
		store: g.store,
		authz: g.authz,
		brk:   g.brk,
		log:   log.With().Str("component", "ws").Logger(),
		send:  make(chan []byte, sendQueueSize),
		done:  make(chan struct{}),
		chats: make(map[int64]struct{}),
	}
}
