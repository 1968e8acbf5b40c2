package handler

import (
	"context"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/livt/internal/apperror"
	"github.com/sakif/livt/internal/dashboard"
	"github.com/sakif/livt/internal/service"
)

// maxMemory is how much of a multipart upload ParseMultipartForm keeps in
// memory; the rest spills to a temporary file.
const maxMemory = 8 << 20

const uploadedStatus = "Uploaded ✔"

// DashboardHandler serves the creator dashboard and the program actions
// posted from it.
//
// HANDLER RESPONSIBILITIES:
//   - HandleDashboard  → GET  /creatordashboard.html?uid=&tab=
//   - HandleUploadPage → GET  /upload.html (the dashboard's upload tab)
//   - HandleUpload     → POST /programs (multipart)
//   - HandleToggle     → POST /programs/{id}/toggle
//   - HandleDelete     → POST /programs/{id}/delete
//   - HandleOpen       → GET  /programs/{id}/open
//   - HandleDownload   → GET  /download.html?id=
//
// Every action ends in a redirect back to the dashboard, so a refresh
// never re-posts and the page is always rebuilt from stored state.
type DashboardHandler struct {
	auth      *service.AuthService
	dashboard *service.DashboardService
	programs  *service.ProgramService
	renderer  *Renderer
	maxUpload int64
	logger    *slog.Logger
}

func NewDashboardHandler(
	authService *service.AuthService,
	dashboardService *service.DashboardService,
	programService *service.ProgramService,
	renderer *Renderer,
	maxUploadBytes int64,
	logger *slog.Logger,
) *DashboardHandler {
	return &DashboardHandler{
		auth:      authService,
		dashboard: dashboardService,
		programs:  programService,
		renderer:  renderer,
		maxUpload: maxUploadBytes,
		logger:    logger,
	}
}

// tabView is one tab bar link.
type tabView struct {
	dashboard.TabLink
	Href string
}

type countsView struct {
	Followers, Programs, Downloads string
}

type analyticsView struct {
	Published, Drafts, LastThirty string
}

// uploadForm echoes the upload fields back after a failed upload.
type uploadForm struct {
	Title       string
	Description string
	Published   bool
}

// dashboardView is the data behind dashboard.html.
type dashboardView struct {
	layout
	CreatorName  string
	CreatorID    string
	Tabs         []tabView
	Active       dashboard.Tab
	IsSelf       bool
	Overview     countsView
	Analytics    analyticsView
	Rows         []dashboard.Row
	Form         uploadForm
	UploadStatus string
	UploadFailed bool
}

func newDashboardView(page *service.Page, active dashboard.Tab) dashboardView {
	access := page.Access

	// Tab links carry the resolved subject, never the raw query value.
	var linkUID string
	if !access.IsSelf {
		linkUID = access.SubjectID
	}
	links := dashboard.Tabs(active, access.IsSelf)
	tabs := make([]tabView, 0, len(links))
	for _, l := range links {
		tabs = append(tabs, tabView{TabLink: l, Href: dashboard.DashboardURL(linkUID, l.Tab)})
	}

	return dashboardView{
		layout:      newLayout("Creator dashboard", page.Viewer),
		CreatorName: dashboard.CreatorLabel(page.Subject),
		CreatorID:   access.SubjectID,
		Tabs:        tabs,
		Active:      active,
		IsSelf:      access.IsSelf,
		Overview: countsView{
			Followers: dashboard.FormatCount(page.Overview.Followers),
			Programs:  dashboard.FormatCount(page.Overview.Programs),
			Downloads: dashboard.FormatCount(page.Overview.Downloads),
		},
		Analytics: analyticsView{
			Published:  dashboard.FormatCount(page.Analytics.Published),
			Drafts:     dashboard.FormatCount(page.Analytics.Drafts),
			LastThirty: dashboard.FormatCount(page.Analytics.LastThirty),
		},
		Rows: dashboard.Rows(page.Programs, access.CanManage),
		Form: uploadForm{Published: true},
	}
}

// load resolves the viewer and the dashboard state for uid. It writes the
// response itself (redirect or error page) and returns nil when the page
// must not render.
func (h *DashboardHandler) load(w http.ResponseWriter, r *http.Request, uid string) *service.Page {
	viewer, err := currentViewer(r, h.auth)
	if err != nil {
		logFailure(h.logger, r, "dashboard: loading viewer", err)
		h.renderer.RenderError(w, nil, err)
		return nil
	}

	page, err := h.dashboard.Load(r.Context(), viewer, uid)
	if err != nil {
		logFailure(h.logger, r, "dashboard: loading page", err)
		h.renderer.RenderError(w, viewer, err)
		return nil
	}
	if page.Access.Redirect != "" {
		http.Redirect(w, r, page.Access.Redirect, http.StatusSeeOther)
		return nil
	}
	return page
}

// HandleDashboard renders a creator's dashboard.
//
// HTTP: GET /creatordashboard.html?uid=<creator>&tab=<tab>
//
// Without uid the viewer's own dashboard is shown. Another creator's
// dashboard is read-only: no upload tab, no toggle or delete buttons.
func (h *DashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	uid := q.Get("uid")

	page := h.load(w, r, uid)
	if page == nil {
		return
	}

	view := newDashboardView(page, dashboard.SelectTab(q.Get("tab"), page.Access.IsSelf))
	if q.Get("uploaded") == "1" && page.Access.IsSelf {
		view.UploadStatus = uploadedStatus
	}
	h.renderer.Render(w, http.StatusOK, pageDashboard, view)
}

// HandleUploadPage sends /upload.html to the dashboard's upload tab.
//
// HTTP: GET /upload.html
func (h *DashboardHandler) HandleUploadPage(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, dashboard.DashboardURL("", dashboard.TabUpload), http.StatusSeeOther)
}

// HandleUpload stores an uploaded program.
//
// HTTP: POST /programs (multipart: title, description, published, file)
//
// On success the browser is redirected to the upload tab, which shows the
// confirmation in #upload-status. On failure the upload tab is rendered again with the
// message in #upload-status and the typed fields kept.
func (h *DashboardHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	page := h.load(w, r, "")
	if page == nil {
		return
	}

	form := uploadForm{}
	in, file, err := h.parseUpload(r, &form)
	if file != nil {
		defer file.Close()
	}
	if err == nil {
		_, err = h.programs.Upload(r.Context(), page.Viewer.ID, in)
	}
	if err != nil {
		logFailure(h.logger, r, "upload failed", err)
		h.renderUploadError(w, r, form, err)
		return
	}

	http.Redirect(w, r, dashboard.DashboardURL("", dashboard.TabUpload)+"&uploaded=1", http.StatusSeeOther)
}

// parseUpload reads the multipart form into an UploadInput. A missing file
// is not an error here; the service rejects it with "Choose a file.".
func (h *DashboardHandler) parseUpload(r *http.Request, form *uploadForm) (service.UploadInput, multipart.File, error) {
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return service.UploadInput{}, nil, apperror.ValidationFailed("file",
				"file is too large (max "+strconv.FormatInt(h.maxUpload>>20, 10)+" MB)")
		}
		return service.UploadInput{}, nil, apperror.ValidationFailed("form", "invalid upload form")
	}

	form.Title = r.PostFormValue("title")
	form.Description = r.PostFormValue("description")
	form.Published, _ = strconv.ParseBool(r.PostFormValue("published"))

	in := service.UploadInput{
		Title:       form.Title,
		Description: form.Description,
		Published:   form.Published,
	}

	file, header, err := r.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return in, nil, nil
	case err != nil:
		return in, nil, apperror.ValidationFailed("file", "could not read the uploaded file")
	}

	in.File = file
	in.FileName = header.Filename
	in.ContentType = header.Header.Get("Content-Type")
	in.Size = header.Size
	return in, file, nil
}

// renderUploadError re-renders the viewer's dashboard on the upload tab.
// "Choose a file." is shown as is; every other failure gets the "Error: "
// prefix.
func (h *DashboardHandler) renderUploadError(w http.ResponseWriter, r *http.Request, form uploadForm, uploadErr error) {
	viewer, err := currentViewer(r, h.auth)
	if err != nil {
		h.renderer.RenderError(w, nil, err)
		return
	}
	page, err := h.dashboard.Load(r.Context(), viewer, "")
	if err != nil || page.Access.Redirect != "" {
		h.renderer.RenderError(w, viewer, uploadErr)
		return
	}

	view := newDashboardView(page, dashboard.TabUpload)
	view.Form = form
	view.UploadFailed = true
	view.UploadStatus = "Error: " + messageFor(uploadErr)
	var appErr *apperror.AppError
	if errors.As(uploadErr, &appErr) && appErr.Field == "file" && appErr.Message == "Choose a file." {
		view.UploadStatus = appErr.Message
	}

	status, _ := errorStatus(uploadErr)
	h.renderer.Render(w, status, pageDashboard, view)
}

// HandleToggle flips a program between Published and Draft.
//
// HTTP: POST /programs/{id}/toggle
func (h *DashboardHandler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	h.manage(w, r, "toggle", func(viewerID, id string) error {
		_, err := h.programs.TogglePublished(r.Context(), viewerID, id)
		return err
	})
}

// HandleDelete removes a program and its file.
//
// HTTP: POST /programs/{id}/delete
func (h *DashboardHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	h.manage(w, r, "delete", func(viewerID, id string) error {
		return h.programs.Delete(r.Context(), viewerID, id)
	})
}

// manage runs a toggle or delete for the signed-in creator and redirects
// back to the programs tab. A program that is already gone (double
// submit) just redirects; a foreign program is a 403 page.
func (h *DashboardHandler) manage(w http.ResponseWriter, r *http.Request, action string, run func(viewerID, id string) error) {
	page := h.load(w, r, "")
	if page == nil {
		return
	}

	id := chi.URLParam(r, "id")
	err := run(page.Viewer.ID, id)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		logFailure(h.logger, r, "program "+action+" failed", err)
		h.renderer.RenderError(w, page.Viewer, err)
		return
	}

	http.Redirect(w, r, dashboard.DashboardURL("", dashboard.TabPrograms), http.StatusSeeOther)
}

// HandleOpen counts a view and redirects to the file.
//
// HTTP: GET /programs/{id}/open
func (h *DashboardHandler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	h.track(w, r, chi.URLParam(r, "id"), h.programs.TrackView)
}

// HandleDownload counts a download and redirects to the file. This is the
// link behind "Copy DL", so it works signed out for published programs.
//
// HTTP: GET /download.html?id=<program>
func (h *DashboardHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	h.track(w, r, r.URL.Query().Get("id"), h.programs.TrackDownload)
}

func (h *DashboardHandler) track(
	w http.ResponseWriter,
	r *http.Request,
	id string,
	track func(ctx context.Context, viewerID, id string) (string, error),
) {
	viewer, err := currentViewer(r, h.auth)
	if err != nil {
		logFailure(h.logger, r, "tracking: loading viewer", err)
	}
	var viewerID string
	if viewer != nil {
		viewerID = viewer.ID
	}

	target, err := track(r.Context(), viewerID, id)
	if err != nil {
		logFailure(h.logger, r, "tracked link failed", err)
		h.renderer.RenderError(w, viewer, err)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}
