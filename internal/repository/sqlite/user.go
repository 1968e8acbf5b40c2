package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/livt/internal/apperror"
	"github.com/sakif/livt/internal/model"
	"github.com/sakif/livt/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, email, display_name, role, password_hash, github_id, created_at`

// CreateUser inserts a new profile and fills in its ID and CreatedAt.
//
// github_id is nullable: accounts created with email and password store
// NULL there, so the UNIQUE constraint only applies to linked accounts.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Email,
		user.DisplayName,
		string(user.Role),
		user.PasswordHash,
		nullableGitHubID(user.GitHubID),
		user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			if strings.Contains(err.Error(), "github_id") {
				return apperror.Conflict("github", "this GitHub account is already linked")
			}
			return apperror.Conflict("email", "email already in use")
		}
		return fmt.Errorf("sqlite: creating user %s: %w", user.Email, err)
	}

	return nil
}

// GetUserByID retrieves a profile by its ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row, "id", id)
}

// GetUserByEmail retrieves a profile by its (lower-cased) email.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row, "email", email)
}

// GetUserByGitHubID retrieves the profile linked to a GitHub account.
func (db *DB) GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE github_id = ?`, githubID)
	return scanUser(row, "github_id", fmt.Sprint(githubID))
}

// LinkGitHub attaches a GitHub account to an existing profile.
func (db *DB) LinkGitHub(ctx context.Context, userID string, githubID int64) error {
	err := db.execAffectingOne(ctx, apperror.NotFound("user", userID),
		`UPDATE users SET github_id = ? WHERE id = ?`, githubID, userID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("github", "this GitHub account is already linked")
		}
		return fmt.Errorf("sqlite: linking github account to user %s: %w", userID, err)
	}
	return nil
}

// UpdateDisplayName changes the name shown in the header and "Signed in as".
func (db *DB) UpdateDisplayName(ctx context.Context, userID, displayName string) error {
	err := db.execAffectingOne(ctx, apperror.NotFound("user", userID),
		`UPDATE users SET display_name = ? WHERE id = ?`, displayName, userID)
	if err != nil {
		return fmt.Errorf("sqlite: updating display name of user %s: %w", userID, err)
	}
	return nil
}

func scanUser(row *sql.Row, key, value string) (*model.User, error) {
	var (
		u        model.User
		role     string
		githubID sql.NullInt64
	)
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.DisplayName,
		&role,
		&u.PasswordHash,
		&githubID,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", value)
		}
		return nil, fmt.Errorf("sqlite: getting user by %s %s: %w", key, value, err)
	}
	u.Role = model.Role(role)
	u.GitHubID = githubID.Int64
	return &u, nil
}

func nullableGitHubID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}
