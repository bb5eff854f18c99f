package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"gifmaker/internal/download"
	"gifmaker/internal/logging"
)

// Download hands out a finished GIF once. The ticket is released when it
// is claimed, so a second request gets 404.
// GET /api/download/{token}
func (h *Handlers) Download(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]

	a, err := h.tickets.Claim(token)
	if err != nil {
		if !errors.Is(err, download.ErrNotFound) && !errors.Is(err, download.ErrClosed) {
			logging.Error("Download: claim failed: %v", err)
		}
		http.Error(w, "Download not found or already fetched", http.StatusNotFound)
		return
	}
	h.posters.Forget(token)

	if err := download.Serve(r.Context(), w, a, h.serveCfg); err != nil {
		logging.Warn("Download of %s interrupted: %v", a.Filename, err)
	}
}

// Preview returns a JPEG poster of a GIF that has not been fetched yet.
// GET /api/preview/{token}
func (h *Handlers) Preview(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]

	a, err := h.tickets.Peek(token)
	if err != nil {
		http.Error(w, "Preview not found", http.StatusNotFound)
		return
	}

	poster, err := h.posters.Poster(token, a.Data)
	if err != nil {
		logging.Error("Preview: failed to render poster for %s: %v", a.Filename, err)
		http.Error(w, "Failed to render preview", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(poster)))
	w.Header().Set("Cache-Control", "private, max-age=60")
	if _, err := w.Write(poster); err != nil {
		logging.Debug("Preview write failed: %v", err)
	}
}
