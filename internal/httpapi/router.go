package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/wirechat/wirechat/internal/auth"
	"github.com/wirechat/wirechat/internal/metrics"
)

// Routes builds the full HTTP surface. /auth, /health, /metrics and /ws are
// public (the websocket authenticates in-band); everything else sits behind
// the bearer-token middleware and the per-user rate limit.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Post("/auth/register", s.Register)
	r.Post("/auth/login", s.Login)
	r.Post("/auth/refresh", s.Refresh)

	if s.WS != nil {
		r.Handle("/ws", s.WS)
	}

	limiter := NewRateLimiter(600, time.Minute, 120)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(s.Auth))
		r.Use(limiter.Middleware)

		r.Get("/me", s.Me)

		r.Route("/users", func(r chi.Router) {
			r.Get("/search", s.SearchUsers)
			r.Get("/by-username/{username}", s.GetUserByUsername)
			r.Put("/me/avatar", s.SetMyAvatar)
			r.Get("/{id}", s.GetUser)
			r.Put("/{id}", s.UpdateUser)
		})

		r.Route("/chats", func(r chi.Router) {
			r.Post("/", s.CreateChat)
			r.Get("/", s.ListChats)
			r.Get("/by-public-name/{name}", s.GetChatByPublicName)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.GetChat)
				r.Patch("/", s.UpdateChat)
				r.Delete("/", s.DeleteChat)

				r.Post("/favorite", s.FavoriteChat)
				r.Delete("/favorite", s.UnfavoriteChat)
				r.Post("/archive", s.ArchiveChat)
				r.Delete("/archive", s.UnarchiveChat)
				r.Post("/pin", s.PinChat)
				r.Delete("/pin", s.UnpinChat)
				r.Post("/mute", s.MuteChat)
				r.Delete("/mute", s.UnmuteChat)
				r.Post("/leave", s.LeaveChat)
				r.Post("/read", s.MarkRead)
				r.Get("/read-receipts", s.ReadReceipts)
				r.Post("/avatar", s.SetChatAvatar)

				r.Post("/members/{uid}/promote", s.PromoteMember)
				r.Post("/members/{uid}/demote", s.DemoteMember)

				r.Post("/messages", s.SendMessage)
				r.Get("/messages", s.ListMessages)
				r.Get("/messages/search", s.SearchMessages)
				r.Put("/messages/{mid}", s.EditMessage)
				r.Delete("/messages/{mid}", s.DeleteMessage)
				r.Post("/messages/{mid}/pin", s.PinMessage)
				r.Delete("/messages/{mid}/pin", s.UnpinMessage)
				r.Post("/messages/{mid}/reactions", s.ToggleReaction)
				r.Get("/pinned-message", s.PinnedMessage)
				r.Get("/reactions", s.ListReactions)

				r.Post("/forward", s.ForwardMessages)

				r.Post("/invites", s.CreateInvite)
				r.Get("/invites", s.ListInvites)
			})
		})

		r.Route("/invites/{token}", func(r chi.Router) {
			r.Delete("/", s.RevokeInvite)
			r.Get("/preview", s.PreviewInvite)
			r.Post("/join", s.JoinByInvite)
		})

		r.Post("/files", s.UploadFile)
		r.Get("/files/{id}/download", s.DownloadFile)

		r.Get("/settings", s.GetSettings)
		r.Put("/settings", s.UpdateSettings)

		r.Get("/stickers", s.ListStickers)
		r.Get("/stickers/{id}/image", s.StickerImage)
	})

	log.Info().Msg("HTTP routes registered")
	return r
}
