package httpapi

import (
	"net/http"

	"github.com/wirechat/wirechat/internal/store"
)

type stickerJSON struct {
	store.Sticker
	ImageURL *string `json:"image_url,omitempty"`
}

// ListStickers returns the catalog with pre-signed image URLs.
func (s *Server) ListStickers(w http.ResponseWriter, r *http.Request) {
	stickers, err := s.Store.ListStickers(r.Context())
	if err != nil {
		storeError(w, r, err)
		return
	}
	out := make([]stickerJSON, 0, len(stickers))
	for i := range stickers {
		st := stickerJSON{Sticker: stickers[i]}
		st.ImageURL = s.presign(r.Context(), &store.ObjectRef{Bucket: stickers[i].Bucket, Key: stickers[i].Key}, "")
		out = append(out, st)
	}
	writeJSON(w, http.StatusOK, out)
}

// StickerImage redirects to the sticker's pre-signed image URL.
func (s *Server) StickerImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid sticker id")
		return
	}
	st, err := s.Store.StickerByID(r.Context(), id)
	if err != nil {
		storeError(w, r, err)
		return
	}
	url, err := s.Objects.PresignGet(r.Context(), st.Bucket, st.Key, "")
	if err != nil {
		writeError(w, http.StatusBadGateway, "Object storage unavailable")
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}
