package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path"

	"github.com/dustin/go-humanize"

	"gifmaker/internal/logging"
	"gifmaker/internal/metrics"
	"gifmaker/internal/pipeline"
)

const (
	// multipartMemory is how much of an upload is held in memory before
	// the multipart reader spills to temporary files.
	multipartMemory = 32 << 20
	// multipartOverhead allows for boundaries and part headers on top of
	// the largest accepted file.
	multipartOverhead = 1 << 20
)

// SessionResponse is the session as seen by the web UI.
type SessionResponse struct {
	pipeline.Session
	// Preview is the poster URL of a pending download.
	Preview string `json:"preview,omitempty"`
}

func newSessionResponse(s pipeline.Session) SessionResponse {
	resp := SessionResponse{Session: s}
	if s.Download != "" {
		resp.Preview = "/api/preview/" + path.Base(s.Download)
	}
	return resp
}

// GetSession returns the session. Reading a finished session returns the
// pipeline to idle; the messages remain until the next conversion.
// GET /api/session
func (h *Handlers) GetSession(w http.ResponseWriter, _ *http.Request) {
	writeJSONStatusCode(w, http.StatusOK, newSessionResponse(h.pipeline.Snapshot()))
}

// SelectFile accepts one or more multipart "file" fields and selects the
// first one for conversion.
// POST /api/select
func (h *Handlers) SelectFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+multipartOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, "File is too large (limit "+humanize.IBytes(uint64(h.maxUpload))+")", http.StatusRequestEntityTooLarge)
			return
		}
		logging.Debug("SelectFile: bad multipart body: %v", err)
		writeJSONError(w, "Expected a multipart form with a file field", http.StatusBadRequest)
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			logging.Warn("Failed to remove multipart temp files: %v", err)
		}
	}()

	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		writeJSONError(w, pipeline.ErrNoFile.Error(), http.StatusBadRequest)
		return
	}

	first := headers[0]
	if first.Size > h.maxUpload {
		writeJSONError(w, "File is too large (limit "+humanize.IBytes(uint64(h.maxUpload))+")", http.StatusRequestEntityTooLarge)
		return
	}

	data, err := readPart(first)
	if err != nil {
		logging.Error("SelectFile: failed to read %s: %v", first.Filename, err)
		writeJSONError(w, "Failed to read the uploaded file", http.StatusBadRequest)
		return
	}
	metrics.UploadBytes.Observe(float64(len(data)))

	// Only the first file is converted; the rest are passed by name so the
	// pipeline can report them as ignored.
	files := make([]pipeline.File, 0, len(headers))
	files = append(files, pipeline.NewFile(first.Filename, data))
	for _, fh := range headers[1:] {
		files = append(files, pipeline.NewFile(fh.Filename, nil))
	}

	if err := h.pipeline.Select(files...); err != nil {
		writeSelectError(w, err)
		return
	}

	writeJSONStatusCode(w, http.StatusOK, newSessionResponse(h.pipeline.Snapshot()))
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func writeSelectError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pipeline.ErrNoFile):
		writeJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, pipeline.ErrBusy):
		writeJSONError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, pipeline.ErrClosed):
		writeJSONError(w, "Server is shutting down", http.StatusServiceUnavailable)
	default:
		logging.Error("Unexpected pipeline error: %v", err)
		writeJSONError(w, "Internal error", http.StatusInternalServerError)
	}
}

// Convert starts converting the selected file in the background. Progress
// and the outcome are read from GET /api/session.
// POST /api/convert
func (h *Handlers) Convert(w http.ResponseWriter, _ *http.Request) {
	if err := h.pipeline.Start(h.ctx); err != nil {
		writeSelectError(w, err)
		return
	}
	writeJSONStatusCode(w, http.StatusAccepted, newSessionResponse(h.pipeline.Snapshot()))
}
