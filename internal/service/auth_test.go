package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/livt/internal/apperror"
	"github.com/sakif/livt/internal/auth"
	"github.com/sakif/livt/internal/model"
)

func newTestAuthService(t *testing.T) (*AuthService, *mockStore) {
	t.Helper()
	tokens, err := auth.NewTokenService("service-test-secret-1234", time.Hour)
	require.NoError(t, err)
	store := newMockStore()
	return NewAuthService(store, tokens, auth.NewPasswordServiceForTest(), discardLogger()), store
}

// =========================================================================
// SignUp
// =========================================================================

func TestSignUp(t *testing.T) {
	svc, store := newTestAuthService(t)

	res, err := svc.SignUp(context.Background(), SignUpInput{
		Email:       "  Ada@Example.COM ",
		Password:    "secret1",
		DisplayName: "Ada",
		Role:        model.RoleCreator,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "ada@example.com", res.User.Email)
	assert.Equal(t, "Ada", res.User.DisplayName)
	assert.Equal(t, model.RoleCreator, res.User.Role)

	stored, err := store.GetUserByID(context.Background(), res.User.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", stored.PasswordHash)

	userID, err := svc.ValidateToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, userID)
}

func TestSignUp_DisplayNameDefaultsToLocalPart(t *testing.T) {
	svc, _ := newTestAuthService(t)

	res, err := svc.SignUp(context.Background(), SignUpInput{
		Email: "grace.hopper@example.com", Password: "secret1", Role: model.RoleUser,
	})

	require.NoError(t, err)
	assert.Equal(t, "grace.hopper", res.User.DisplayName)
}

func TestSignUp_Validation(t *testing.T) {
	tests := []struct {
		name      string
		input     SignUpInput
		wantField string
		wantMsg   string
	}{
		{
			name:      "invalid email",
			input:     SignUpInput{Email: "not-an-email", Password: "secret1", Role: model.RoleUser},
			wantField: "email",
		},
		{
			name:      "named address",
			input:     SignUpInput{Email: "Ada <ada@example.com>", Password: "secret1", Role: model.RoleUser},
			wantField: "email",
		},
		{
			name:      "short password",
			input:     SignUpInput{Email: "a@example.com", Password: "12345", Role: model.RoleUser},
			wantField: "password",
			wantMsg:   "password should be at least 6 characters",
		},
		{
			name:      "password of spaces",
			input:     SignUpInput{Email: "a@example.com", Password: "   12   ", Role: model.RoleUser},
			wantField: "password",
		},
		{
			name:      "unknown role",
			input:     SignUpInput{Email: "a@example.com", Password: "secret1", Role: "admin"},
			wantField: "role",
		},
		{
			name:      "display name too long",
			input:     SignUpInput{Email: "a@example.com", Password: "secret1", Role: model.RoleUser, DisplayName: strings.Repeat("x", 81)},
			wantField: "displayName",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTestAuthService(t)

			_, err := svc.SignUp(context.Background(), tt.input)

			var appErr *apperror.AppError
			require.True(t, errors.As(err, &appErr), "want *AppError, got %v", err)
			assert.True(t, errors.Is(err, apperror.ErrValidation))
			assert.Equal(t, tt.wantField, appErr.Field)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, appErr.Message)
			}
			assert.Empty(t, store.users, "nothing may be written on a validation error")
		})
	}
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, SignUpInput{Email: "dup@example.com", Password: "secret1", Role: model.RoleUser})
	require.NoError(t, err)

	_, err = svc.SignUp(ctx, SignUpInput{Email: "DUP@example.com", Password: "secret2", Role: model.RoleCreator})

	assert.True(t, errors.Is(err, apperror.ErrConflict))
	assert.Equal(t, "email already in use", apperror.Message(err, ""))
}

// =========================================================================
// SignIn
// =========================================================================

func TestSignIn(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()
	created, err := svc.SignUp(ctx, SignUpInput{Email: "ada@example.com", Password: "secret1", Role: model.RoleCreator})
	require.NoError(t, err)

	res, err := svc.SignIn(ctx, " ADA@example.com ", " secret1 ")

	require.NoError(t, err)
	assert.Equal(t, created.User.ID, res.User.ID)
	assert.Equal(t, model.RoleCreator, res.User.Role)
	assert.NotEmpty(t, res.Token)
}

func TestSignIn_BadCredentials(t *testing.T) {
	svc, store := newTestAuthService(t)
	ctx := context.Background()
	_, err := svc.SignUp(ctx, SignUpInput{Email: "ada@example.com", Password: "secret1", Role: model.RoleUser})
	require.NoError(t, err)

	// GitHub-only account: no password hash.
	require.NoError(t, store.CreateUser(ctx, &model.User{Email: "gh@example.com", Role: model.RoleUser, GitHubID: 9}))

	cases := []struct{ name, email, password string }{
		{"wrong password", "ada@example.com", "secret2"},
		{"unknown email", "nobody@example.com", "secret1"},
		{"empty password", "ada@example.com", ""},
		{"github-only account", "gh@example.com", "anything"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.SignIn(ctx, tc.email, tc.password)
			assert.True(t, errors.Is(err, apperror.ErrUnauthorized))
			assert.Equal(t, "invalid email or password", apperror.Message(err, ""))
		})
	}
}

// =========================================================================
// SignInGitHub
// =========================================================================

func TestSignInGitHub_NewAccount(t *testing.T) {
	svc, _ := newTestAuthService(t)

	res, err := svc.SignInGitHub(context.Background(), &auth.GitHubUser{ID: 77, Login: "octo", Email: "octo@example.com"})

	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, res.User.Role)
	assert.Equal(t, "octo", res.User.DisplayName)
	assert.Equal(t, int64(77), res.User.GitHubID)
}

func TestSignInGitHub_LinksExistingEmail(t *testing.T) {
	svc, store := newTestAuthService(t)
	ctx := context.Background()
	creator := store.addUser("ada@example.com", model.RoleCreator)

	res, err := svc.SignInGitHub(ctx, &auth.GitHubUser{ID: 42, Login: "ada", Email: "ada@example.com"})
	require.NoError(t, err)
	assert.Equal(t, creator.ID, res.User.ID)
	assert.Equal(t, model.RoleCreator, res.User.Role)

	// Second sign-in goes through the github id.
	again, err := svc.SignInGitHub(ctx, &auth.GitHubUser{ID: 42, Login: "ada", Email: "changed@example.com"})
	require.NoError(t, err)
	assert.Equal(t, creator.ID, again.User.ID)
	assert.Len(t, store.users, 1)
}

func TestSignInGitHub_HiddenEmail(t *testing.T) {
	svc, _ := newTestAuthService(t)

	res, err := svc.SignInGitHub(context.Background(), &auth.GitHubUser{ID: 5, Login: "Ghost", Name: "The Ghost"})

	require.NoError(t, err)
	assert.Equal(t, "5+ghost@users.noreply.github.com", res.User.Email)
	assert.Equal(t, "The Ghost", res.User.DisplayName)
}

func TestSignInGitHub_Invalid(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, err := svc.SignInGitHub(context.Background(), nil)
	assert.Error(t, err)
	_, err = svc.SignInGitHub(context.Background(), &auth.GitHubUser{})
	assert.Error(t, err)
}

// =========================================================================
// Profile
// =========================================================================

func TestViewer(t *testing.T) {
	svc, store := newTestAuthService(t)
	ctx := context.Background()
	u := store.addUser("ada@example.com", model.RoleCreator)

	v, err := svc.Viewer(ctx, "")
	assert.NoError(t, err)
	assert.Nil(t, v)

	v, err = svc.Viewer(ctx, "deleted-user")
	assert.NoError(t, err)
	assert.Nil(t, v)

	v, err = svc.Viewer(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, v.ID)

	store.errGetUser = errBoom
	_, err = svc.Viewer(ctx, u.ID)
	assert.ErrorIs(t, err, errBoom)
}

func TestUpdateDisplayName(t *testing.T) {
	svc, store := newTestAuthService(t)
	ctx := context.Background()
	u := store.addUser("ada@example.com", model.RoleCreator)

	updated, err := svc.UpdateDisplayName(ctx, u.ID, "  Ada Lovelace ")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", updated.DisplayName)
	assert.Equal(t, model.RoleCreator, updated.Role)

	_, err = svc.UpdateDisplayName(ctx, u.ID, "   ")
	assert.True(t, errors.Is(err, apperror.ErrValidation))

	_, err = svc.UpdateDisplayName(ctx, "missing", "Name")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestGetUserByID_Empty(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, err := svc.GetUserByID(context.Background(), "")

	assert.True(t, errors.Is(err, apperror.ErrUnauthorized))
}
