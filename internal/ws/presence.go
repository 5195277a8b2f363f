package ws

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wirechat/wirechat/internal/broker"
	"github.com/wirechat/wirechat/internal/events"
	"github.com/wirechat/wirechat/internal/metrics"
	"github.com/wirechat/wirechat/internal/store"
)

// Presence tracks which users are online (at least one active session on a
// live transport) and broadcasts transitions, honoring each user's
// last_seen_visibility setting.
type Presence struct {
	store Store
	brk   Broker
	hub   *Hub
	log   zerolog.Logger

	// active counts active sessions per user. The first/last transition is
	// decided under this mutex so concurrent sessions of one user cannot
	// both miss (or both claim) the online broadcast.
	mu     sync.Mutex
	active map[int64]int
}

func NewPresence(st Store, brk Broker, hub *Hub) *Presence {
	return &Presence{
		store:  st,
		brk:    brk,
		hub:    hub,
		log:    log.With().Str("component", "presence").Logger(),
		active: make(map[int64]int),
	}
}

// SessionActive is called when a session becomes active: on authed attach
// with active=true, on an explicit presence_update, or on a background
// session pinging with active=true. The user goes online when this is their
// first active session.
func (p *Presence) SessionActive(ctx context.Context, s *Session) {
	userID := s.UserID()
	p.mu.Lock()
	p.active[userID]++
	first := p.active[userID] == 1
	p.mu.Unlock()
	if first {
		p.broadcast(ctx, s, true)
	}
}

// SessionAway handles an explicit active→away downgrade. When no active
// session remains the user goes offline and last_activity is written through.
func (p *Presence) SessionAway(ctx context.Context, s *Session) {
	p.maybeOffline(ctx, s)
}

// SessionClosed handles a transport close. The hub has already detached the
// session. Only a session that was still active could change the user's
// online state by going away; an away session already ran the offline path
// when it downgraded.
func (p *Presence) SessionClosed(ctx context.Context, s *Session) {
	if !s.isActive() {
		return
	}
	p.maybeOffline(ctx, s)
}

func (p *Presence) maybeOffline(ctx context.Context, s *Session) {
	userID := s.UserID()
	if userID == 0 {
		return
	}
	p.mu.Lock()
	if p.active[userID] > 0 {
		p.active[userID]--
	}
	last := p.active[userID] == 0
	if last {
		delete(p.active, userID)
	}
	p.mu.Unlock()
	if !last {
		return
	}
	if err := p.store.TouchUserLastActivity(ctx, userID); err != nil {
		p.log.Warn().Err(err).Int64("user_id", userID).Msg("last-activity write-through failed")
	}
	p.broadcast(ctx, s, false)
}

// broadcast fans the online/offline transition out to the chats the user
// belongs to. When visibility is everyone the full envelope rides the
// broker; otherwise the decision is per viewer, so only local sessions are
// walked and cross-process viewers see nothing.
func (p *Presence) broadcast(ctx context.Context, s *Session, online bool) {
	userID := s.UserID()
	username := s.Username()
	status := "offline"
	if online {
		status = "online"
	}
	metrics.PresenceBroadcasts.WithLabelValues(status).Inc()

	visibility, err := p.store.LastSeenVisibility(ctx, userID)
	if err != nil {
		p.log.Error().Err(err).Int64("user_id", userID).Msg("visibility lookup failed; suppressing broadcast")
		return
	}

	chats, err := p.store.ChatsForUser(ctx, userID)
	if err != nil {
		p.log.Error().Err(err).Int64("user_id", userID).Msg("chat enumeration failed; suppressing broadcast")
		return
	}

	if visibility == store.VisibilityEveryone {
		envelope := events.PresenceFull(userID, username, status)
		for _, chatID := range chats {
			p.brk.Publish(ctx, broker.ChatChannel(chatID), envelope)
		}
		return
	}

	// Restricted visibility: per-viewer filtering over local sessions only.
	full := events.PresenceFull(userID, username, status)
	var approx []byte
	if visibility == store.VisibilityApproxOnly {
		bucket := "online"
		if !online {
			bucket, err = p.store.LastSeenBucket(ctx, userID)
			if err != nil {
				p.log.Warn().Err(err).Int64("user_id", userID).Msg("last-seen bucket lookup failed")
				bucket = "long ago"
			}
		}
		approx = events.PresenceApprox(userID, username, bucket)
	}

	for _, chatID := range chats {
		for _, viewer := range p.hub.chatSessions(chatID) {
			switch {
			case viewer.IsAdmin() || viewer.UserID() == userID:
				viewer.Send(full)
			case visibility == store.VisibilityApproxOnly:
				viewer.Send(approx)
			}
			// nobody: non-admin viewers get nothing
		}
	}
}
