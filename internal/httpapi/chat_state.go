package httpapi

import (
	"net/http"
	"time"

	"github.com/wirechat/wirechat/internal/auth"
	"github.com/wirechat/wirechat/internal/broker"
	"github.com/wirechat/wirechat/internal/events"
)

// Per-viewer chat flags: favorite, archive, sidebar pin, mute. All of them
// are POST/DELETE pairs returning 204 and affect only the caller's sidebar.

func (s *Server) setChatFlag(w http.ResponseWriter, r *http.Request, set func(userID, chatID int64) error) {
	chatID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid chat id")
		return
	}
	userID := auth.UserID(r.Context())
	if !s.requireMember(w, r, chatID, userID) {
		return
	}
	if err := set(userID, chatID); err != nil {
		storeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) FavoriteChat(w http.ResponseWriter, r *http.Request) {
	s.setChatFlag(w, r, func(userID, chatID int64) error {
		return s.Store.SetFavorite(r.Context(), userID, chatID, true)
	})
}

func (s *Server) UnfavoriteChat(w http.ResponseWriter, r *http.Request) {
	s.setChatFlag(w, r, func(userID, chatID int64) error {
		return s.Store.SetFavorite(r.Context(), userID, chatID, false)
	})
}

func (s *Server) ArchiveChat(w http.ResponseWriter, r *http.Request) {
	s.setChatFlag(w, r, func(userID, chatID int64) error {
		return s.Store.SetArchived(r.Context(), userID, chatID, true)
	})
}

func (s *Server) UnarchiveChat(w http.ResponseWriter, r *http.Request) {
	s.setChatFlag(w, r, func(userID, chatID int64) error {
		return s.Store.SetArchived(r.Context(), userID, chatID, false)
	})
}

func (s *Server) PinChat(w http.ResponseWriter, r *http.Request) {
	s.setChatFlag(w, r, func(userID, chatID int64) error {
		return s.Store.SetSidebarPin(r.Context(), userID, chatID, true)
	})
}

func (s *Server) UnpinChat(w http.ResponseWriter, r *http.Request) {
	s.setChatFlag(w, r, func(userID, chatID int64) error {
		return s.Store.SetSidebarPin(r.Context(), userID, chatID, false)
	})
}

type muteReq struct {
	DurationMinutes *int `json:"duration_minutes"`
}

// MuteChat silences notifications, for a duration or indefinitely.
func (s *Server) MuteChat(w http.ResponseWriter, r *http.Request) {
	var req muteReq
	// Empty body means mute indefinitely.
	_ = decode(r, &req)

	until := time.Now().AddDate(100, 0, 0)
	if req.DurationMinutes != nil {
		if *req.DurationMinutes <= 0 {
			writeError(w, http.StatusBadRequest, "duration_minutes must be positive")
			return
		}
		until = time.Now().Add(time.Duration(*req.DurationMinutes) * time.Minute)
	}

	s.setChatFlag(w, r, func(userID, chatID int64) error {
		return s.Store.SetMuted(r.Context(), userID, chatID, &until)
	})
}

func (s *Server) UnmuteChat(w http.ResponseWriter, r *http.Request) {
	s.setChatFlag(w, r, func(userID, chatID int64) error {
		return s.Store.SetMuted(r.Context(), userID, chatID, nil)
	})
}

type markReadReq struct {
	LastReadMsgID int64 `json:"last_read_msg_id"`
}

// MarkRead advances the caller's read cursor and, when they share read
// receipts, tells the chat.
func (s *Server) MarkRead(w http.ResponseWriter, r *http.Request) {
	chatID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid chat id")
		return
	}
	var req markReadReq
	if err := decode(r, &req); err != nil || req.LastReadMsgID <= 0 {
		writeError(w, http.StatusBadRequest, "last_read_msg_id is required")
		return
	}
	userID := auth.UserID(r.Context())
	if !s.requireMember(w, r, chatID, userID) {
		return
	}

	if err := s.Store.AdvanceReadCursor(r.Context(), userID, chatID, req.LastReadMsgID); err != nil {
		storeError(w, r, err)
		return
	}

	enabled, err := s.Store.ReadReceiptsEnabled(r.Context(), userID)
	if err == nil && enabled {
		s.Broker.Publish(r.Context(), broker.ChatChannel(chatID),
			events.ReadReceipt(chatID, userID, req.LastReadMsgID))
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReadReceipts lists cursor positions of members who share them.
func (s *Server) ReadReceipts(w http.ResponseWriter, r *http.Request) {
	chatID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid chat id")
		return
	}
	userID := auth.UserID(r.Context())
	if !s.requireMember(w, r, chatID, userID) {
		return
	}

	receipts, err := s.Store.ReadReceipts(r.Context(), chatID)
	if err != nil {
		storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, receipts)
}
