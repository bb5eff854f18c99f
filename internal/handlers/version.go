package handlers

import (
	"net/http"

	"gifmaker/internal/startup"
)

// GetVersion returns the application version and build information
func (h *Handlers) GetVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSONStatusCode(w, http.StatusOK, startup.GetBuildInfo())
}
