// Package repository declares the storage interfaces the service layer
// depends on. The sqlite package provides the production implementation;
// service tests provide in-memory fakes.
package repository

import (
	"context"

	"github.com/sakif/livt/internal/model"
)

// UserRepository stores profiles and their identity columns.
type UserRepository interface {
	// CreateUser inserts a new profile. A duplicate email (or GitHub id)
	// returns apperror.ErrConflict.
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error)
	LinkGitHub(ctx context.Context, userID string, githubID int64) error
	UpdateDisplayName(ctx context.Context, userID, displayName string) error
}

// ProgramRepository stores program metadata records.
type ProgramRepository interface {
	CreateProgram(ctx context.Context, program *model.Program) error
	GetProgramByID(ctx context.Context, id string) (*model.Program, error)
	GetProgramByPath(ctx context.Context, path string) (*model.Program, error)
	// ListProgramsByCreator returns every program of the creator, newest
	// first. There is no pagination.
	ListProgramsByCreator(ctx context.Context, creatorID string) ([]model.Program, error)
	SetPublished(ctx context.Context, id string, published bool) error
	DeleteProgram(ctx context.Context, id string) error
	IncrementViews(ctx context.Context, id string) error
	IncrementDownloads(ctx context.Context, id string) error
	// ProgramPathExists reports whether any record references the blob key.
	ProgramPathExists(ctx context.Context, path string) (bool, error)
}

// FollowRepository stores follow relationships.
type FollowRepository interface {
	CreateFollow(ctx context.Context, follow *model.Follow) error
	DeleteFollow(ctx context.Context, creatorID, followerID string) error
	CountFollowers(ctx context.Context, creatorID string) (int64, error)
}
