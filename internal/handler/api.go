package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/livt/internal/auth"
	"github.com/sakif/livt/internal/model"
	"github.com/sakif/livt/internal/service"
)

// APIHandler serves the JSON API under /api. Every route sits behind
// auth.RequireAuth, so a user ID is always in the context.
//
//	GET    /api/me
//	PATCH  /api/me                         {"displayName": "..."}
//	GET    /api/creators/{uid}/overview
//	GET    /api/creators/{uid}/analytics
//	GET    /api/creators/{uid}/programs
//	POST   /api/creators/{uid}/follow
//	DELETE /api/creators/{uid}/follow
//
// The creator routes apply the dashboard access policy: creators only.
type APIHandler struct {
	auth      *service.AuthService
	dashboard *service.DashboardService
	programs  *service.ProgramService
	follows   *service.FollowService
	logger    *slog.Logger
}

func NewAPIHandler(
	authService *service.AuthService,
	dashboardService *service.DashboardService,
	programService *service.ProgramService,
	followService *service.FollowService,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		auth:      authService,
		dashboard: dashboardService,
		programs:  programService,
		follows:   followService,
		logger:    logger,
	}
}

// UpdateMeRequest is the PATCH /api/me body.
type UpdateMeRequest struct {
	DisplayName string `json:"displayName"`
}

// ProgramsResponse wraps the program list so the API can grow fields
// without breaking clients.
type ProgramsResponse struct {
	CreatorID string          `json:"creatorId"`
	CanManage bool            `json:"canManage"`
	Programs  []model.Program `json:"programs"`
}

// FollowResponse reports the follower count after a follow change.
type FollowResponse struct {
	CreatorID string `json:"creatorId"`
	Followers int64  `json:"followers"`
}

// HandleMe returns the signed-in profile.
func (h *APIHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	user, err := h.auth.GetUserByID(r.Context(), userID)
	if err != nil {
		h.fail(w, r, "get profile", err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleUpdateMe changes the signed-in user's display name.
func (h *APIHandler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var req UpdateMeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, "update profile", err)
		return
	}

	userID, _ := auth.UserIDFromContext(r.Context())
	user, err := h.auth.UpdateDisplayName(r.Context(), userID, req.DisplayName)
	if err != nil {
		h.fail(w, r, "update profile", err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleOverview returns the KPI cards of a creator.
func (h *APIHandler) HandleOverview(w http.ResponseWriter, r *http.Request) {
	subjectID, _, ok := h.authorize(w, r)
	if !ok {
		return
	}
	overview, err := h.dashboard.Overview(r.Context(), subjectID)
	if err != nil {
		h.fail(w, r, "overview", err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

// HandleAnalytics returns the published/drafts/last-30-days counts.
func (h *APIHandler) HandleAnalytics(w http.ResponseWriter, r *http.Request) {
	subjectID, _, ok := h.authorize(w, r)
	if !ok {
		return
	}
	analytics, err := h.dashboard.Analytics(r.Context(), subjectID)
	if err != nil {
		h.fail(w, r, "analytics", err)
		return
	}
	writeJSON(w, http.StatusOK, analytics)
}

// HandlePrograms returns a creator's programs, newest first.
func (h *APIHandler) HandlePrograms(w http.ResponseWriter, r *http.Request) {
	subjectID, canManage, ok := h.authorize(w, r)
	if !ok {
		return
	}
	programs, err := h.programs.ListForCreator(r.Context(), subjectID)
	if err != nil {
		h.fail(w, r, "list programs", err)
		return
	}
	writeJSON(w, http.StatusOK, ProgramsResponse{
		CreatorID: subjectID,
		CanManage: canManage,
		Programs:  programs,
	})
}

// HandleFollow makes the signed-in user follow {uid}.
func (h *APIHandler) HandleFollow(w http.ResponseWriter, r *http.Request) {
	h.changeFollow(w, r, http.StatusCreated, h.follows.Follow)
}

// HandleUnfollow removes the follow of {uid}.
func (h *APIHandler) HandleUnfollow(w http.ResponseWriter, r *http.Request) {
	h.changeFollow(w, r, http.StatusOK, h.follows.Unfollow)
}

func (h *APIHandler) changeFollow(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	change func(ctx context.Context, followerID, creatorID string) error,
) {
	userID, _ := auth.UserIDFromContext(r.Context())
	creatorID := chi.URLParam(r, "uid")

	if err := change(r.Context(), userID, creatorID); err != nil {
		h.fail(w, r, "follow", err)
		return
	}
	followers, err := h.follows.Followers(r.Context(), creatorID)
	if err != nil {
		h.fail(w, r, "follow", err)
		return
	}
	writeJSON(w, status, FollowResponse{CreatorID: creatorID, Followers: followers})
}

// authorize applies the dashboard policy to {uid} for the signed-in user.
// It writes the error response itself and reports ok=false when the
// request must stop.
func (h *APIHandler) authorize(w http.ResponseWriter, r *http.Request) (subjectID string, canManage bool, ok bool) {
	viewer, err := currentViewer(r, h.auth)
	if err != nil {
		h.fail(w, r, "authorize", err)
		return "", false, false
	}
	access, err := h.dashboard.Authorize(viewer, chi.URLParam(r, "uid"))
	if err != nil {
		h.fail(w, r, "authorize", err)
		return "", false, false
	}
	return access.SubjectID, access.CanManage, true
}

func (h *APIHandler) fail(w http.ResponseWriter, r *http.Request, action string, err error) {
	logFailure(h.logger, r, "api: "+action+" failed", err)
	writeError(w, err)
}
