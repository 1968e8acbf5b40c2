// AUTHENTICATION FLOW:
//
//	AuthHandler (HTTP) → AuthService → UserRepository (DB)
//	                                 ↘ TokenService (JWT), PasswordService (bcrypt)
//
// AuthService owns every sign-up and sign-in rule. Handlers only parse the
// form, call one method, and turn the result into a cookie and a redirect.

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/sakif/livt/internal/apperror"
	"github.com/sakif/livt/internal/auth"
	"github.com/sakif/livt/internal/model"
	"github.com/sakif/livt/internal/repository"
)

const MaxDisplayNameLength = 80

// errBadCredentials is deliberately the same for an unknown email and a
// wrong password.
var errBadCredentials = apperror.Unauthorized("invalid email or password")

type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the profile and its freshly issued session token so
// the handler can set the cookie and pick the redirect in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// SignUpInput is the create-account form.
type SignUpInput struct {
	Email       string
	Password    string
	DisplayName string
	Role        model.Role
}

// SignUp validates the form, creates the profile and signs the new user in.
//
// RULES:
//   - email is trimmed, lower-cased and must parse as a bare address
//   - password (trimmed) must be at least auth.MinPasswordLength characters
//   - role must be creator or user
//   - display name defaults to the part of the email before "@"
//   - a second account with the same email is a conflict
func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (*AuthResult, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}

	password := strings.TrimSpace(in.Password)
	if len(password) < auth.MinPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password should be at least %d characters", auth.MinPasswordLength))
	}
	if !in.Role.Valid() {
		return nil, apperror.ValidationFailed("role", "choose a role: creator or user")
	}

	displayName := strings.TrimSpace(in.DisplayName)
	if displayName == "" {
		displayName, _, _ = strings.Cut(email, "@")
	}
	if len(displayName) > MaxDisplayNameLength {
		return nil, apperror.ValidationFailed("displayName",
			fmt.Sprintf("display name must be %d characters or fewer", MaxDisplayNameLength))
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", "password must be 72 bytes or fewer")
	}

	user := &model.User{
		Email:        email,
		DisplayName:  displayName,
		Role:         in.Role,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating account for %s: %w", email, err)
	}

	s.logger.Info("account created",
		slog.String("userID", user.ID),
		slog.String("role", string(user.Role)),
	)

	return s.issue(user)
}

// SignIn checks email and password. Unknown emails, wrong passwords and
// GitHub-only accounts (no password set) all fail the same way.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	password = strings.TrimSpace(password)
	if email == "" || password == "" {
		return nil, errBadCredentials
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, errBadCredentials
		}
		return nil, fmt.Errorf("service/auth: looking up %s: %w", email, err)
	}
	if user.PasswordHash == "" {
		return nil, errBadCredentials
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrInvalidPassword) {
			return nil, errBadCredentials
		}
		return nil, fmt.Errorf("service/auth: verifying password of %s: %w", user.ID, err)
	}

	s.logger.Info("signed in", slog.String("userID", user.ID))
	return s.issue(user)
}

// SignInGitHub resolves a GitHub identity to a profile:
//
//  1. a profile already linked to the GitHub id → sign in
//  2. a profile with the same email → link it, then sign in
//  3. otherwise → create a "user" profile (creators sign up with email
//     first and can link GitHub by signing in with the same address)
func (s *AuthService) SignInGitHub(ctx context.Context, gh *auth.GitHubUser) (*AuthResult, error) {
	if gh == nil || gh.ID == 0 {
		return nil, errors.New("service/auth: GitHub user must not be empty")
	}

	user, err := s.users.GetUserByGitHubID(ctx, gh.ID)
	if err == nil {
		return s.issue(user)
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: looking up github id %d: %w", gh.ID, err)
	}

	email := strings.ToLower(strings.TrimSpace(gh.Email))
	if email != "" {
		user, err = s.users.GetUserByEmail(ctx, email)
		switch {
		case err == nil:
			if err := s.users.LinkGitHub(ctx, user.ID, gh.ID); err != nil {
				return nil, fmt.Errorf("service/auth: linking github id %d: %w", gh.ID, err)
			}
			user.GitHubID = gh.ID
			s.logger.Info("github account linked", slog.String("userID", user.ID))
			return s.issue(user)
		case !errors.Is(err, apperror.ErrNotFound):
			return nil, fmt.Errorf("service/auth: looking up %s: %w", email, err)
		}
	} else {
		email = fmt.Sprintf("%d+%s@users.noreply.github.com", gh.ID, strings.ToLower(gh.Login))
	}

	displayName := strings.TrimSpace(gh.Name)
	if displayName == "" {
		displayName = gh.Login
	}
	user = &model.User{
		Email:       email,
		DisplayName: displayName,
		Role:        model.RoleUser,
		GitHubID:    gh.ID,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating account for github id %d: %w", gh.ID, err)
	}

	s.logger.Info("account created via GitHub", slog.String("userID", user.ID))
	return s.issue(user)
}

// GetUserByID returns the profile for id.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.Unauthorized("not signed in")
	}
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}
	return user, nil
}

// Viewer resolves the signed-in user for a page. An empty id, or a session
// whose profile no longer exists, is an anonymous viewer (nil, nil).
func (s *AuthService) Viewer(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, nil
	}
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("service/auth: fetching viewer %s: %w", id, err)
	}
	return user, nil
}

// UpdateDisplayName changes the viewer's display name. Role and email are
// not editable.
func (s *AuthService) UpdateDisplayName(ctx context.Context, id, displayName string) (*model.User, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, apperror.ValidationFailed("displayName", "display name is required")
	}
	if len(displayName) > MaxDisplayNameLength {
		return nil, apperror.ValidationFailed("displayName",
			fmt.Sprintf("display name must be %d characters or fewer", MaxDisplayNameLength))
	}

	if err := s.users.UpdateDisplayName(ctx, id, displayName); err != nil {
		return nil, fmt.Errorf("service/auth: updating display name of %s: %w", id, err)
	}
	return s.GetUserByID(ctx, id)
}

// ValidateToken returns the user ID encoded in a session token.
func (s *AuthService) ValidateToken(tokenStr string) (string, error) {
	userID, err := s.tokens.Validate(tokenStr)
	if err != nil {
		return "", fmt.Errorf("service/auth: %w", err)
	}
	return userID, nil
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// normalizeEmail trims and lower-cases email and rejects anything that is
// not a bare address ("Ada <ada@example.com>" included).
func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return "", apperror.ValidationFailed("email", "enter a valid email address")
	}
	return email, nil
}
