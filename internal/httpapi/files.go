package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/wirechat/wirechat/internal/auth"
)

// UploadFile accepts one multipart file, streams it to object storage and
// records its metadata. The blob is referenced later by file_id (messages,
// avatars).
func (s *Server) UploadFile(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.MaxFileBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "File exceeds the upload limit")
			return
		}
		writeError(w, http.StatusBadRequest, "Expected multipart form with a file field")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, `Multipart field "file" is required`)
		return
	}
	defer file.Close()

	if header.Size > s.MaxFileBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "File exceeds the upload limit")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := fmt.Sprintf("%d/%s%s", userID, uuid.NewString(), filepath.Ext(header.Filename))

	if err := s.Objects.Upload(r.Context(), key, file, header.Size, contentType); err != nil {
		writeError(w, http.StatusBadGateway, "Object storage unavailable")
		return
	}

	f, err := s.Store.CreateFile(r.Context(), userID, s.Objects.Bucket(), key,
		header.Filename, contentType, header.Size)
	if err != nil {
		storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

// DownloadFile redirects to a pre-signed URL; the blob never passes through
// the API.
func (s *Server) DownloadFile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid file id")
		return
	}
	f, err := s.Store.FileByID(r.Context(), id)
	if err != nil {
		storeError(w, r, err)
		return
	}

	url, err := s.Objects.PresignGet(r.Context(), f.Bucket, f.ObjectKey, f.FileName)
	if err != nil {
		writeError(w, http.StatusBadGateway, "Object storage unavailable")
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}
