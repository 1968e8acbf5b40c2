package handler_test

import (
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/livt/internal/model"
)

// =========================================================================
// Access
// =========================================================================

func TestDashboard_Access(t *testing.T) {
	env := newTestEnv(t)
	_, fanCookie := env.account(t, "fan@example.com", model.RoleUser)

	t.Run("signed out goes to login and comes back", func(t *testing.T) {
		rr := env.get("/creatordashboard.html?uid=c2", nil)

		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "/login.html?next=creatordashboard.html%3Fuid%3Dc2", rr.Header().Get("Location"))
	})

	t.Run("non-creator goes home", func(t *testing.T) {
		rr := env.get("/creatordashboard.html", fanCookie)

		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "/index.html", rr.Header().Get("Location"))
	})

	t.Run("upload page is the upload tab", func(t *testing.T) {
		rr := env.get("/upload.html", nil)

		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "/creatordashboard.html?tab=upload", rr.Header().Get("Location"))
	})
}

func TestDashboard_EmptyCreator(t *testing.T) {
	env := newTestEnv(t)
	creator, cookie := env.account(t, "ada@example.com", model.RoleCreator)

	rr := env.get("/creatordashboard.html", cookie)

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `id="creator-name">ada<`)
	assert.Contains(t, body, `id="creator-id" class="muted">uid: `+creator.ID+`<`)
	assert.Contains(t, body, `id="kpi-followers" class="kpi-value">0<`)
	assert.Contains(t, body, `id="kpi-programs" class="kpi-value">0<`)
	assert.Contains(t, body, `id="kpi-downloads" class="kpi-value">0<`)
	assert.Contains(t, body, "No programs yet.")
	assert.Contains(t, body, `id="tab-upload"`)
	assert.Contains(t, body, `id="tab-overview" class="tab-panel">`)
}

func TestDashboard_OtherCreatorIsReadOnly(t *testing.T) {
	env := newTestEnv(t)
	_, viewerCookie := env.account(t, "viewer@example.com", model.RoleCreator)
	other, _ := env.account(t, "other@example.com", model.RoleCreator)
	env.program(t, other, "Other plan", true)

	rr := env.get("/creatordashboard.html?uid="+other.ID+"&tab=upload", viewerCookie)

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `id="creator-name">other<`)
	assert.Contains(t, body, "Other plan")
	assert.NotContains(t, body, `id="tab-upload"`)
	assert.NotContains(t, body, `data-tab="upload"`)
	assert.NotContains(t, body, "/toggle")
	assert.NotContains(t, body, "/delete")
	// The upload tab request falls back to the overview.
	assert.Contains(t, body, `id="tab-overview" class="tab-panel">`)
}

func TestDashboard_OwnUIDIsSelf(t *testing.T) {
	env := newTestEnv(t)
	creator, cookie := env.account(t, "ada@example.com", model.RoleCreator)
	env.program(t, creator, "Mine", true)

	rr := env.get("/creatordashboard.html?uid="+creator.ID, cookie)

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `id="tab-upload"`)
	assert.Contains(t, body, "/toggle")
}

func TestDashboard_OtherCreatorsDraftHasNoLinks(t *testing.T) {
	env := newTestEnv(t)
	_, viewerCookie := env.account(t, "viewer@example.com", model.RoleCreator)
	other, otherCookie := env.account(t, "other@example.com", model.RoleCreator)
	shared := env.program(t, other, "Shared", true)
	draft := env.program(t, other, "Unfinished", false)

	body := env.get("/creatordashboard.html?uid="+other.ID+"&tab=programs", viewerCookie).Body.String()

	assert.Contains(t, body, "Unfinished")
	assert.Contains(t, body, `href="/programs/`+shared.ID+`/open"`)
	assert.NotContains(t, body, "/programs/"+draft.ID+"/open")
	assert.NotContains(t, body, "id="+draft.ID)
	assert.Contains(t, body, `aria-disabled="true">Open<`)

	// The links left out would only have answered 404.
	assert.Equal(t, http.StatusNotFound, env.get("/programs/"+draft.ID+"/open", viewerCookie).Code)

	own := env.get("/creatordashboard.html?tab=programs", otherCookie).Body.String()
	assert.Contains(t, own, `href="/programs/`+draft.ID+`/open"`)
	assert.NotContains(t, own, `aria-disabled="true"`)
}

func TestDashboard_TabLinksUseResolvedSubject(t *testing.T) {
	env := newTestEnv(t)
	creator, cookie := env.account(t, "ada@example.com", model.RoleCreator)
	other, _ := env.account(t, "other@example.com", model.RoleCreator)

	rr := env.get("/creatordashboard.html?uid="+url.QueryEscape(" "+other.ID+" "), cookie)

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `href="/creatordashboard.html?uid=`+other.ID+`" data-tab="overview"`)
	assert.NotContains(t, body, "uid=+")
	assert.NotContains(t, body, "%20")

	// Own dashboard via an explicit uid links without it.
	body = env.get("/creatordashboard.html?uid="+creator.ID, cookie).Body.String()
	assert.Contains(t, body, `href="/creatordashboard.html" data-tab="overview"`)
}

func TestDashboard_Analytics(t *testing.T) {
	env := newTestEnv(t)
	creator, cookie := env.account(t, "ada@example.com", model.RoleCreator)
	env.program(t, creator, "One", true)
	env.program(t, creator, "Two", true)
	env.program(t, creator, "Three", false)

	rr := env.get("/creatordashboard.html?tab=analytics", cookie)

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `id="tab-analytics" class="tab-panel">`)
	assert.Contains(t, body, `id="kpi-programs" class="kpi-value">3<`)
	assert.Contains(t, body, `id="a-published" class="kpi-value">2<`)
	assert.Contains(t, body, `id="a-drafts" class="kpi-value">1<`)
	assert.Contains(t, body, `id="a-last30" class="kpi-value">3<`)
}

// =========================================================================
// Upload
// =========================================================================

func TestUpload_NoFile(t *testing.T) {
	env := newTestEnv(t)
	creator, cookie := env.account(t, "ada@example.com", model.RoleCreator)

	rr := env.do(uploadRequest(map[string]string{"title": "Plan", "published": "true"}, "", ""), cookie)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `role="status">Choose a file.<`)
	assert.NotContains(t, body, "Error: Choose a file.")
	assert.Contains(t, body, `value="Plan"`)
	assert.Empty(t, env.list(t, creator))

	entries, err := os.ReadDir(env.blobDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "nothing may be stored")
}

func TestUpload(t *testing.T) {
	env := newTestEnv(t)
	creator, cookie := env.account(t, "ada@example.com", model.RoleCreator)

	rr := env.do(uploadRequest(map[string]string{
		"title":       "Strength block",
		"description": "Four weeks",
		"published":   "false",
	}, "block.pdf", "%PDF-1.4"), cookie)

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/creatordashboard.html?tab=upload&uploaded=1", rr.Header().Get("Location"))

	programs := env.list(t, creator)
	require.Len(t, programs, 1)
	p := programs[0]
	assert.Equal(t, "Strength block", p.Title)
	assert.Equal(t, "application/pdf", p.FileType)
	assert.Equal(t, "block.pdf", p.FileName)
	assert.False(t, p.Published)

	data, err := os.ReadFile(filepath.Join(env.blobDir, filepath.FromSlash(p.FilePath)))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))

	page := env.get(rr.Header().Get("Location"), cookie).Body.String()
	assert.Contains(t, page, "Uploaded ✔")
	assert.Contains(t, page, "Strength block")
	assert.Contains(t, page, `pill-draft">Draft<`)
}

func TestUpload_UntypedFileIsDocument(t *testing.T) {
	env := newTestEnv(t)
	creator, cookie := env.account(t, "ada@example.com", model.RoleCreator)

	req := typedUploadRequest(map[string]string{"title": "Notes", "published": "true"},
		"notes.xyz", "application/octet-stream", "plain notes")
	rr := env.do(req, cookie)

	require.Equal(t, http.StatusSeeOther, rr.Code)
	programs := env.list(t, creator)
	require.Len(t, programs, 1)
	assert.Equal(t, "document", programs[0].FileType)
	assert.Equal(t, "notes.xyz", programs[0].FileName)
}

func TestUpload_TooLarge(t *testing.T) {
	env := newTestEnv(t)
	creator, cookie := env.account(t, "ada@example.com", model.RoleCreator)
	big := make([]byte, 2<<20)

	rr := env.do(uploadRequest(map[string]string{"title": "Big"}, "big.bin", string(big)), cookie)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Error: file is too large")
	assert.Empty(t, env.list(t, creator))
}

func TestUpload_NotSignedIn(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(uploadRequest(nil, "a.pdf", "x"), nil)

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/login.html?next=creatordashboard.html", rr.Header().Get("Location"))
}

// =========================================================================
// Toggle / Delete
// =========================================================================

func TestToggle_IsDurable(t *testing.T) {
	env := newTestEnv(t)
	creator, cookie := env.account(t, "ada@example.com", model.RoleCreator)
	p := env.program(t, creator, "Plan", true)

	rr := env.postForm("/programs/"+p.ID+"/toggle", url.Values{}, cookie)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/creatordashboard.html?tab=programs", rr.Header().Get("Location"))
	assert.False(t, env.list(t, creator)[0].Published)

	page := env.get("/creatordashboard.html?tab=programs", cookie).Body.String()
	assert.Contains(t, page, `pill-draft">Draft<`)
	assert.Contains(t, page, ">Publish<")

	env.postForm("/programs/"+p.ID+"/toggle", url.Values{}, cookie)
	assert.True(t, env.list(t, creator)[0].Published)
}

func TestManage_ForeignProgramForbidden(t *testing.T) {
	env := newTestEnv(t)
	owner, _ := env.account(t, "owner@example.com", model.RoleCreator)
	_, otherCookie := env.account(t, "other@example.com", model.RoleCreator)
	p := env.program(t, owner, "Plan", true)

	rr := env.postForm("/programs/"+p.ID+"/toggle", url.Values{}, otherCookie)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = env.postForm("/programs/"+p.ID+"/delete", url.Values{}, otherCookie)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	programs := env.list(t, owner)
	require.Len(t, programs, 1)
	assert.True(t, programs[0].Published)
}

func TestDelete_RemovesRowAndFile(t *testing.T) {
	env := newTestEnv(t)
	creator, cookie := env.account(t, "ada@example.com", model.RoleCreator)
	keep := env.program(t, creator, "Keep", true)
	gone := env.program(t, creator, "Gone", true)

	rr := env.postForm("/programs/"+gone.ID+"/delete", url.Values{}, cookie)
	assert.Equal(t, http.StatusSeeOther, rr.Code)

	page := env.get("/creatordashboard.html", cookie).Body.String()
	assert.Contains(t, page, `id="kpi-programs" class="kpi-value">1<`)
	assert.NotContains(t, page, "Gone")
	assert.Contains(t, page, "Keep")

	assert.NoFileExists(t, filepath.Join(env.blobDir, filepath.FromSlash(gone.FilePath)))
	assert.FileExists(t, filepath.Join(env.blobDir, filepath.FromSlash(keep.FilePath)))

	// A second submit of the same form just comes back.
	rr = env.postForm("/programs/"+gone.ID+"/delete", url.Values{}, cookie)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
}

// =========================================================================
// Tracked links
// =========================================================================

func TestDownload_CountsAndRedirects(t *testing.T) {
	env := newTestEnv(t)
	creator, cookie := env.account(t, "ada@example.com", model.RoleCreator)
	p := env.program(t, creator, "Plan", true)

	rr := env.get("/download.html?id="+p.ID, nil)
	assert.Equal(t, http.StatusFound, rr.Code)
	location := rr.Header().Get("Location")
	assert.Equal(t, "/files/"+p.FilePath, location)

	file := env.get(location, nil)
	assert.Equal(t, http.StatusOK, file.Code)
	assert.Equal(t, "Plan", file.Body.String())

	rr = env.get("/programs/"+p.ID+"/open", nil)
	assert.Equal(t, http.StatusFound, rr.Code)

	stored := env.list(t, creator)[0]
	assert.Equal(t, int64(1), stored.Downloads)
	assert.Equal(t, int64(1), stored.Views)

	page := env.get("/creatordashboard.html", cookie).Body.String()
	assert.Contains(t, page, `id="kpi-downloads" class="kpi-value">1<`)
}

func TestDownload_Draft(t *testing.T) {
	env := newTestEnv(t)
	creator, cookie := env.account(t, "ada@example.com", model.RoleCreator)
	p := env.program(t, creator, "Secret", false)

	rr := env.get("/download.html?id="+p.ID, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.get("/download.html?id="+p.ID, cookie)
	assert.Equal(t, http.StatusFound, rr.Code)

	rr = env.get("/download.html", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}


func TestFiles_DraftsAreServedToTheirCreatorOnly(t *testing.T) {
	env := newTestEnv(t)
	creator, cookie := env.account(t, "ada@example.com", model.RoleCreator)
	_, strangerCookie := env.account(t, "bob@example.com", model.RoleCreator)
	draft := env.program(t, creator, "Secret", false)
	path := "/files/" + draft.FilePath

	assert.Equal(t, http.StatusNotFound, env.get(path, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.get(path, strangerCookie).Code)

	rr := env.get(path, cookie)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Secret", rr.Body.String())

	// Once published the file is public.
	env.postForm("/programs/"+draft.ID+"/toggle", url.Values{}, cookie)
	assert.Equal(t, http.StatusOK, env.get(path, nil).Code)
}

func TestFiles_UnreferencedFileIsNotServed(t *testing.T) {
	env := newTestEnv(t)
	orphan := filepath.Join(env.blobDir, "programs", "nobody", "1_orphan.pdf")
	require.NoError(t, os.MkdirAll(filepath.Dir(orphan), 0o755))
	require.NoError(t, os.WriteFile(orphan, []byte("left behind"), 0o644))

	rr := env.get("/files/programs/nobody/1_orphan.pdf", nil)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}
