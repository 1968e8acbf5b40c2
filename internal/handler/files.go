package handler

import (
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/sakif/livt/internal/auth"
	"github.com/sakif/livt/internal/service"
)

// FileHandler serves files of the local blob driver. A file is only
// served when its program is published or the viewer is its creator, the
// same rule the Open and Download links follow.
type FileHandler struct {
	programs *service.ProgramService
	files    http.Handler
	logger   *slog.Logger
}

// NewFileHandler guards files, which serves blob keys as URL paths
// ("/programs/<uid>/<name>").
func NewFileHandler(programService *service.ProgramService, files http.Handler, logger *slog.Logger) *FileHandler {
	return &FileHandler{programs: programService, files: files, logger: logger}
}

// ServeHTTP checks access to the requested key, then hands the request to
// the file server.
//
// HTTP: GET /files/<key>
func (h *FileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	userID, _ := auth.UserIDFromContext(r.Context())

	if err := h.programs.FileAccess(r.Context(), userID, key); err != nil {
		logFailure(h.logger, r, "files: access check failed", err)
		status, _ := errorStatus(err)
		http.Error(w, http.StatusText(status), status)
		return
	}
	h.files.ServeHTTP(w, r)
}
