// Package dashboard holds the creator dashboard's decisions as pure
// functions: who may see which dashboard, where each auth step redirects,
// which tab is open, and the numbers and rows the page shows.
//
// Nothing here does I/O. Handlers load state through the services, pass it
// in, and render what comes back, so every rule is testable with plain
// values.
package dashboard

import (
	"net/url"
	"strings"

	"github.com/sakif/livt/internal/model"
)

// Page paths. Redirects use absolute paths so they resolve the same from
// /programs/{id}/toggle as from /login.html.
const (
	HomePath      = "/index.html"
	LoginPath     = "/login.html"
	UploadPath    = "/upload.html"
	DashboardPath = "/creatordashboard.html"
)

// Access is the outcome of Decide. When Redirect is set nothing else is
// meaningful and the page must not render.
type Access struct {
	Redirect  string
	SubjectID string // whose dashboard is shown
	IsSelf    bool
	CanManage bool // upload, toggle and delete controls
}

// Decide applies the dashboard access policy for viewer (nil when signed
// out) and the optional uid query parameter:
//
//  1. signed out → login page, coming back to the same dashboard afterwards
//  2. not a creator → home page
//  3. subject is uid, or the viewer when uid is empty
//  4. only the subject themself may manage
//
// A uid equal to the viewer's own ID is the viewer's own dashboard.
func Decide(viewer *model.User, uid string) Access {
	uid = strings.TrimSpace(uid)

	if viewer == nil {
		return Access{Redirect: LoginURL(dashboardNext(uid))}
	}
	if !viewer.IsCreator() {
		return Access{Redirect: HomePath}
	}

	subject := uid
	if subject == "" {
		subject = viewer.ID
	}
	self := subject == viewer.ID
	return Access{SubjectID: subject, IsSelf: self, CanManage: self}
}

// dashboardNext is the relative dashboard link carried in ?next=.
func dashboardNext(uid string) string {
	next := strings.TrimPrefix(DashboardPath, "/")
	if uid != "" {
		next += "?uid=" + url.QueryEscape(uid)
	}
	return next
}

// DashboardURL returns the dashboard path for uid ("" for the viewer's own)
// opened on tab.
func DashboardURL(uid string, tab Tab) string {
	q := url.Values{}
	if uid != "" {
		q.Set("uid", uid)
	}
	if tab != "" && tab != TabOverview {
		q.Set("tab", string(tab))
	}
	if len(q) == 0 {
		return DashboardPath
	}
	return DashboardPath + "?" + q.Encode()
}
