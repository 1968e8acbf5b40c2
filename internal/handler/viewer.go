package handler

import (
	"net/http"

	"github.com/sakif/livt/internal/auth"
	"github.com/sakif/livt/internal/model"
	"github.com/sakif/livt/internal/service"
)

// currentViewer loads the profile behind the request's session. Anonymous
// requests, and sessions whose profile is gone, yield (nil, nil).
func currentViewer(r *http.Request, users *service.AuthService) (*model.User, error) {
	userID, _ := auth.UserIDFromContext(r.Context())
	return users.Viewer(r.Context(), userID)
}
