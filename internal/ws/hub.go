package ws

import (
	"sync"

	"github.com/wirechat/wirechat/internal/broker"
)

// Hub is the process-local subscription registry: which sessions want events
// for which chats and users. All map mutations go through one mutex; fan-out
// copies the target set under the lock and sends outside it.
type Hub struct {
	brk Broker

	mu     sync.Mutex
	byChat map[int64]map[*Session]struct{}
	byUser map[int64]map[*Session]struct{}
}

func NewHub(brk Broker) *Hub {
	return &Hub{
		brk:    brk,
		byChat: make(map[int64]map[*Session]struct{}),
		byUser: make(map[int64]map[*Session]struct{}),
	}
}

// AttachUser registers an authenticated session under its user id and makes
// sure the broker carries user:<id> into this process. Idempotent.
func (h *Hub) AttachUser(s *Session) {
	userID := s.UserID()
	h.mu.Lock()
	set, ok := h.byUser[userID]
	if !ok {
		set = make(map[*Session]struct{})
		h.byUser[userID] = set
	}
	set[s] = struct{}{}
	h.mu.Unlock()

	ch := broker.UserChannel(userID)
	h.brk.Subscribe(ch, func(_ string, payload []byte) {
		h.FanoutUser(userID, payload)
	})
}

// AttachChat adds the session to a chat's local fan-out set. Re-attaching is
// a no-op, as is re-subscribing the broker channel.
func (h *Hub) AttachChat(chatID int64, s *Session) {
	h.mu.Lock()
	set, ok := h.byChat[chatID]
	if !ok {
		set = make(map[*Session]struct{})
		h.byChat[chatID] = set
	}
	set[s] = struct{}{}
	s.chats[chatID] = struct{}{}
	h.mu.Unlock()

	ch := broker.ChatChannel(chatID)
	h.brk.Subscribe(ch, func(_ string, payload []byte) {
		h.FanoutChat(chatID, payload)
	})
}

// Subscribed reports whether the session joined the chat's fan-out set.
func (h *Hub) Subscribed(chatID int64, s *Session) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := s.chats[chatID]
	return ok
}

// Detach removes the session from every set it appears in, pruning emptied
// entries. Safe to call more than once.
func (h *Hub) Detach(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for chatID := range s.chats {
		if set, ok := h.byChat[chatID]; ok {
			delete(set, s)
			if len(set) == 0 {
				delete(h.byChat, chatID)
			}
		}
	}
	s.chats = make(map[int64]struct{})

	if userID := s.UserID(); userID != 0 {
		if set, ok := h.byUser[userID]; ok {
			delete(set, s)
			if len(set) == 0 {
				delete(h.byUser, userID)
			}
		}
	}
}

// FanoutChat delivers payload to every local session subscribed to the chat.
func (h *Hub) FanoutChat(chatID int64, payload []byte) {
	for _, s := range h.chatSessions(chatID) {
		s.Send(payload)
	}
}

// FanoutUser delivers payload to every local session of the user.
func (h *Hub) FanoutUser(userID int64, payload []byte) {
	h.mu.Lock()
	targets := make([]*Session, 0, len(h.byUser[userID]))
	for s := range h.byUser[userID] {
		targets = append(targets, s)
	}
	h.mu.Unlock()

	for _, s := range targets {
		s.Send(payload)
	}
}

// chatSessions snapshots the chat's fan-out set so sends happen outside the
// lock.
func (h *Hub) chatSessions(chatID int64) []*Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*Session, 0, len(h.byChat[chatID]))
	for s := range h.byChat[chatID] {
		out = append(out, s)
	}
	return out
}
