package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/livt/internal/service"
)

// HomeHandler serves the landing page.
type HomeHandler struct {
	auth     *service.AuthService
	renderer *Renderer
	logger   *slog.Logger
}

func NewHomeHandler(authService *service.AuthService, renderer *Renderer, logger *slog.Logger) *HomeHandler {
	return &HomeHandler{auth: authService, renderer: renderer, logger: logger}
}

type indexView struct {
	layout
	Denied bool
}

// HandleIndex renders the home page.
//
// HTTP: GET / and GET /index.html
func (h *HomeHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	viewer, err := currentViewer(r, h.auth)
	if err != nil {
		logFailure(h.logger, r, "home page: loading viewer", err)
	}
	h.renderer.Render(w, http.StatusOK, pageIndex, indexView{
		layout: newLayout("Home", viewer),
		Denied: r.URL.Query().Get("auth") == "denied",
	})
}
