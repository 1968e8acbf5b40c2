package dashboard

import (
	"net/url"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sakif/livt/internal/model"
)

const (
	untitled   = "(untitled)"
	noDate     = "—"
	dateLayout = "1/2/2006"
)

var printer = message.NewPrinter(language.English)

// FormatCount renders n with thousands separators ("12,345").
func FormatCount(n int64) string {
	return printer.Sprintf("%d", n)
}

// Row is the display projection of one program. It is output only: the
// toggle and delete actions post the program ID and the service re-reads
// the stored record.
type Row struct {
	ID          string
	Title       string
	Published   bool
	Status      string // "Published" or "Draft"
	Views       string
	Downloads   string
	Created     string
	OpenURL     string
	DownloadURL string
	ToggleLabel string // "Publish" or "Unpublish"
	CanManage   bool

	// Reachable is false for another creator's drafts. Open and Copy DL
	// would only answer 404 for them, so OpenURL and DownloadURL stay empty.
	Reachable bool
}

// Rows projects programs into table rows in the order given.
func Rows(programs []model.Program, canManage bool) []Row {
	rows := make([]Row, 0, len(programs))
	for _, p := range programs {
		r := Row{
			ID:          p.ID,
			Title:       p.Title,
			Published:   p.Published,
			Status:      "Draft",
			Views:       FormatCount(p.Views),
			Downloads:   FormatCount(p.Downloads),
			Created:     noDate,
			ToggleLabel: "Publish",
			CanManage:   canManage,
			Reachable:   p.Published || canManage,
		}
		if r.Reachable {
			r.OpenURL = "/programs/" + url.PathEscape(p.ID) + "/open"
			r.DownloadURL = "/download.html?id=" + url.QueryEscape(p.ID)
		}
		if r.Title == "" {
			r.Title = untitled
		}
		if p.Published {
			r.Status = "Published"
			r.ToggleLabel = "Unpublish"
		}
		if !p.CreatedAt.IsZero() {
			r.Created = p.CreatedAt.Format(dateLayout)
		}
		rows = append(rows, r)
	}
	return rows
}

// CreatorLabel is the dashboard heading for subject: display name, then
// email, then "Creator" when the profile is missing.
func CreatorLabel(subject *model.User) string {
	if subject == nil {
		return "Creator"
	}
	if subject.DisplayName != "" {
		return subject.DisplayName
	}
	if subject.Email != "" {
		return subject.Email
	}
	return "Creator"
}

// WhoAmI is the #whoami text.
func WhoAmI(viewer *model.User) string {
	if viewer == nil {
		return "Not signed in"
	}
	return "Signed in as " + viewer.Label()
}
