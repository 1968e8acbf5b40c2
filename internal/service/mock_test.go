package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/sakif/livt/internal/apperror"
	"github.com/sakif/livt/internal/blob"
	"github.com/sakif/livt/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// discardLogger drops all log output so test runs stay quiet.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// =========================================================================
// MOCK REPOSITORY
// =========================================================================
//
// mockStore keeps users, programs and follows in maps and implements all
// three repository interfaces, the same way *sqlite.DB does. The err*
// fields make the next matching call fail.

type mockStore struct {
	mu       sync.Mutex
	users    map[string]*model.User
	programs map[string]*model.Program
	follows  map[[2]string]bool // {creatorID, followerID}
	nextID   int

	errCreateProgram error
	errList          error
	errCount         error
	errGetUser       error
	errIncrement     error
}

func newMockStore() *mockStore {
	return &mockStore{
		users:    make(map[string]*model.User),
		programs: make(map[string]*model.Program),
		follows:  make(map[[2]string]bool),
	}
}

func (m *mockStore) id(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s-%d", prefix, m.nextID)
}

func (m *mockStore) addUser(email string, role model.Role) *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &model.User{ID: m.id("user"), Email: email, DisplayName: strings.Split(email, "@")[0], Role: role}
	m.users[u.ID] = u
	copied := *u
	return &copied
}

func (m *mockStore) addProgram(p model.Program) *model.Program {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.id("prog")
	if p.FilePath == "" {
		p.FilePath = "programs/" + p.CreatorID + "/" + p.ID
	}
	m.programs[p.ID] = &p
	copied := p
	return &copied
}

func (m *mockStore) CreateUser(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return apperror.Conflict("email", "email already in use")
		}
		if user.GitHubID != 0 && u.GitHubID == user.GitHubID {
			return apperror.Conflict("github", "this GitHub account is already linked")
		}
	}
	user.ID = m.id("user")
	user.CreatedAt = time.Now().UTC()
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *mockStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errGetUser != nil {
		return nil, m.errGetUser
	}
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (m *mockStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (m *mockStore) GetUserByGitHubID(_ context.Context, githubID int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.GitHubID == githubID {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", fmt.Sprint(githubID))
}

func (m *mockStore) LinkGitHub(_ context.Context, userID string, githubID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return apperror.NotFound("user", userID)
	}
	u.GitHubID = githubID
	return nil
}

func (m *mockStore) UpdateDisplayName(_ context.Context, userID, displayName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return apperror.NotFound("user", userID)
	}
	u.DisplayName = displayName
	return nil
}

func (m *mockStore) CreateProgram(_ context.Context, p *model.Program) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errCreateProgram != nil {
		return m.errCreateProgram
	}
	p.ID = m.id("prog")
	p.Views, p.Downloads = 0, 0
	stored := *p
	m.programs[p.ID] = &stored
	return nil
}

func (m *mockStore) GetProgramByID(_ context.Context, id string) (*model.Program, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.programs[id]
	if !ok {
		return nil, apperror.NotFound("program", id)
	}
	copied := *p
	return &copied, nil
}

func (m *mockStore) GetProgramByPath(_ context.Context, path string) (*model.Program, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.programs {
		if p.FilePath == path {
			copied := *p
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("program file", path)
}

func (m *mockStore) ListProgramsByCreator(_ context.Context, creatorID string) ([]model.Program, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errList != nil {
		return nil, m.errList
	}
	result := []model.Program{}
	for _, p := range m.programs {
		if p.CreatorID == creatorID {
			result = append(result, *p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (m *mockStore) SetPublished(_ context.Context, id string, published bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.programs[id]
	if !ok {
		return apperror.NotFound("program", id)
	}
	p.Published = published
	return nil
}

func (m *mockStore) DeleteProgram(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.programs[id]; !ok {
		return apperror.NotFound("program", id)
	}
	delete(m.programs, id)
	return nil
}

func (m *mockStore) IncrementViews(_ context.Context, id string) error {
	return m.increment(id, func(p *model.Program) { p.Views++ })
}

func (m *mockStore) IncrementDownloads(_ context.Context, id string) error {
	return m.increment(id, func(p *model.Program) { p.Downloads++ })
}

func (m *mockStore) increment(id string, f func(*model.Program)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errIncrement != nil {
		return m.errIncrement
	}
	p, ok := m.programs[id]
	if !ok {
		return apperror.NotFound("program", id)
	}
	f(p)
	return nil
}

func (m *mockStore) ProgramPathExists(_ context.Context, path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.programs {
		if p.FilePath == path {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStore) CreateFollow(_ context.Context, f *model.Follow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]string{f.CreatorID, f.FollowerID}
	if m.follows[key] {
		return apperror.Conflict("follow", "already following this creator")
	}
	m.follows[key] = true
	return nil
}

func (m *mockStore) DeleteFollow(_ context.Context, creatorID, followerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]string{creatorID, followerID}
	if !m.follows[key] {
		return apperror.NotFound("follow", followerID+"->"+creatorID)
	}
	delete(m.follows, key)
	return nil
}

func (m *mockStore) CountFollowers(_ context.Context, creatorID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errCount != nil {
		return 0, m.errCount
	}
	var n int64
	for key := range m.follows {
		if key[0] == creatorID {
			n++
		}
	}
	return n, nil
}

// =========================================================================
// FAKE BLOB STORE
// =========================================================================

type fakeBlobs struct {
	mu      sync.Mutex
	objects map[string]blob.Object
	data    map[string][]byte
	deleted []string

	errPut    error
	errURL    error
	errDelete error
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: make(map[string]blob.Object), data: make(map[string][]byte)}
}

func (f *fakeBlobs) add(key string, modified time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = blob.Object{Key: key, LastModified: modified}
}

func (f *fakeBlobs) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	if f.errPut != nil {
		return f.errPut
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = blob.Object{Key: key, Size: int64(buf.Len()), LastModified: time.Now()}
	f.data[key] = buf.Bytes()
	return nil
}

func (f *fakeBlobs) URL(_ context.Context, key string) (string, error) {
	if f.errURL != nil {
		return "", f.errURL
	}
	return "https://blobs.test/" + key, nil
}

func (f *fakeBlobs) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	if f.errDelete != nil {
		return f.errDelete
	}
	if _, ok := f.objects[key]; !ok {
		return fmt.Errorf("fake: %w", blob.ErrNotFound)
	}
	delete(f.objects, key)
	delete(f.data, key)
	return nil
}

func (f *fakeBlobs) List(_ context.Context, prefix string) ([]blob.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []blob.Object
	for k, o := range f.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (f *fakeBlobs) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok
}

var errBoom = errors.New("boom")
