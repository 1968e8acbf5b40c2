// Package service contains the business logic between the HTTP handlers
// and the storage layers.
//
//	Handler (HTTP)  → parses forms, renders pages, writes JSON
//	Service         → validates, checks ownership, orchestrates stores
//	Repository/Blob → SQLite records and stored files
//
// Services take repository interfaces and a blob.Store, never concrete
// types, so tests run against in-memory fakes.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"strings"
	"time"

	"github.com/sakif/livt/internal/apperror"
	"github.com/sakif/livt/internal/blob"
	"github.com/sakif/livt/internal/model"
	"github.com/sakif/livt/internal/repository"
)

const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 5000
)

// ProgramService manages program records and their stored files.
type ProgramService struct {
	programs repository.ProgramRepository
	users    repository.UserRepository
	blobs    blob.Store
	logger   *slog.Logger
	now      func() time.Time
}

func NewProgramService(
	programs repository.ProgramRepository,
	users repository.UserRepository,
	blobs blob.Store,
	logger *slog.Logger,
) *ProgramService {
	return &ProgramService{
		programs: programs,
		users:    users,
		blobs:    blobs,
		logger:   logger,
		now:      time.Now,
	}
}

// UploadInput is the upload form. File is nil when no file was chosen.
type UploadInput struct {
	Title       string
	Description string
	Published   bool
	FileName    string
	ContentType string
	Size        int64
	File        io.Reader
}

// Upload stores the file and then its metadata record:
//
//  1. put the blob at programs/<creator>/<unixMillis>_<name>
//  2. get its download URL
//  3. insert the record (counters at zero, server timestamp)
//
// Nothing is written when no file was chosen. If step 3 fails the blob is
// deleted again on a best-effort basis; a blob that survives that delete is
// picked up by SweepOrphans.
func (s *ProgramService) Upload(ctx context.Context, creatorID string, in UploadInput) (*model.Program, error) {
	if in.File == nil || strings.TrimSpace(in.FileName) == "" {
		return nil, apperror.ValidationFailed("file", "Choose a file.")
	}

	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	if len(title) > MaxTitleLength {
		return nil, apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or fewer", MaxTitleLength))
	}
	if len(description) > MaxDescriptionLength {
		return nil, apperror.ValidationFailed("description",
			fmt.Sprintf("description must be %d characters or fewer", MaxDescriptionLength))
	}

	if err := s.requireCreator(ctx, creatorID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	key := blob.ProgramKey(creatorID, in.FileName, now)
	fileType := fileTypeOf(in.ContentType)

	if err := s.blobs.Put(ctx, key, in.File, in.Size, in.ContentType); err != nil {
		return nil, fmt.Errorf("service/program: storing file: %w", err)
	}

	url, err := s.blobs.URL(ctx, key)
	if err != nil {
		s.discardBlob(ctx, key, "url failed")
		return nil, fmt.Errorf("service/program: getting download url: %w", err)
	}

	program := &model.Program{
		CreatorID:   creatorID,
		Title:       title,
		Description: description,
		FileURL:     url,
		FilePath:    key,
		FileName:    blob.BaseName(in.FileName),
		FileType:    fileType,
		Published:   in.Published,
		CreatedAt:   now,
	}
	if err := s.programs.CreateProgram(ctx, program); err != nil {
		s.discardBlob(ctx, key, "metadata insert failed")
		return nil, fmt.Errorf("service/program: saving program: %w", err)
	}

	s.logger.Info("program uploaded",
		slog.String("programID", program.ID),
		slog.String("creatorID", creatorID),
		slog.String("path", key),
		slog.Int64("size", in.Size),
	)
	return program, nil
}

// ListForCreator returns the creator's programs, newest first.
func (s *ProgramService) ListForCreator(ctx context.Context, creatorID string) ([]model.Program, error) {
	programs, err := s.programs.ListProgramsByCreator(ctx, creatorID)
	if err != nil {
		return nil, fmt.Errorf("service/program: listing programs of %s: %w", creatorID, err)
	}
	return programs, nil
}

// TogglePublished flips the stored published flag of a program the viewer
// owns and returns the updated record.
func (s *ProgramService) TogglePublished(ctx context.Context, viewerID, id string) (*model.Program, error) {
	program, err := s.owned(ctx, viewerID, id)
	if err != nil {
		return nil, err
	}

	next := !program.Published
	if err := s.programs.SetPublished(ctx, id, next); err != nil {
		return nil, fmt.Errorf("service/program: toggling %s: %w", id, err)
	}
	program.Published = next

	s.logger.Info("program visibility changed",
		slog.String("programID", id),
		slog.Bool("published", next),
	)
	return program, nil
}

// Delete removes a program the viewer owns: the record first, then the
// file. A failed file delete is logged and otherwise ignored.
func (s *ProgramService) Delete(ctx context.Context, viewerID, id string) error {
	program, err := s.owned(ctx, viewerID, id)
	if err != nil {
		return err
	}

	if err := s.programs.DeleteProgram(ctx, id); err != nil {
		return fmt.Errorf("service/program: deleting %s: %w", id, err)
	}
	if program.FilePath != "" {
		s.discardBlob(ctx, program.FilePath, "program deleted")
	}

	s.logger.Info("program deleted", slog.String("programID", id))
	return nil
}

// TrackDownload counts a download and returns a fresh link to the file.
// Drafts are only reachable by their creator; to anyone else they do not
// exist.
func (s *ProgramService) TrackDownload(ctx context.Context, viewerID, id string) (string, error) {
	return s.track(ctx, viewerID, id, s.programs.IncrementDownloads, "download")
}

// TrackView counts an open and returns a fresh link to the file.
func (s *ProgramService) TrackView(ctx context.Context, viewerID, id string) (string, error) {
	return s.track(ctx, viewerID, id, s.programs.IncrementViews, "view")
}

func (s *ProgramService) track(
	ctx context.Context,
	viewerID, id string,
	increment func(context.Context, string) error,
	what string,
) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", apperror.ValidationFailed("id", "program id is required")
	}

	program, err := s.programs.GetProgramByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("service/program: getting %s: %w", id, err)
	}
	if !program.Published && program.CreatorID != viewerID {
		return "", apperror.NotFound("program", id)
	}

	url, err := s.blobs.URL(ctx, program.FilePath)
	if err != nil {
		return "", fmt.Errorf("service/program: getting url of %s: %w", id, err)
	}

	// Counting is secondary to serving the file.
	if err := increment(ctx, id); err != nil {
		s.logger.Warn("failed to count "+what,
			slog.String("programID", id),
			slog.String("error", err.Error()),
		)
	}
	return url, nil
}

// FileAccess reports whether viewerID may fetch the stored file at key
// directly. The rule is the one the tracked links apply: drafts belong to
// their creator only, and a file no record references does not exist.
func (s *ProgramService) FileAccess(ctx context.Context, viewerID, key string) error {
	program, err := s.programs.GetProgramByPath(ctx, key)
	if err != nil {
		return fmt.Errorf("service/program: checking file %s: %w", key, err)
	}
	if !program.Published && program.CreatorID != viewerID {
		return apperror.NotFound("program file", key)
	}
	return nil
}

// SweepReport summarises one orphan sweep.
type SweepReport struct {
	Scanned int
	Recent  int      // younger than the grace period, left alone
	Orphans []string // keys with no record
	Deleted int
	Failed  int
}

// SweepOrphans deletes stored files under blob.ProgramPrefix that no
// program record references. Files modified within grace are skipped so an
// upload whose record is still being written is never collected. With
// dryRun the orphans are reported but kept.
func (s *ProgramService) SweepOrphans(ctx context.Context, grace time.Duration, dryRun bool) (*SweepReport, error) {
	objects, err := s.blobs.List(ctx, blob.ProgramPrefix)
	if err != nil {
		return nil, fmt.Errorf("service/program: listing stored files: %w", err)
	}

	cutoff := s.now().Add(-grace)
	report := &SweepReport{Scanned: len(objects)}

	for _, obj := range objects {
		if obj.LastModified.After(cutoff) {
			report.Recent++
			continue
		}

		exists, err := s.programs.ProgramPathExists(ctx, obj.Key)
		if err != nil {
			return report, fmt.Errorf("service/program: checking %s: %w", obj.Key, err)
		}
		if exists {
			continue
		}

		report.Orphans = append(report.Orphans, obj.Key)
		if dryRun {
			continue
		}
		if err := s.blobs.Delete(ctx, obj.Key); err != nil && !errors.Is(err, blob.ErrNotFound) {
			report.Failed++
			s.logger.Warn("failed to delete orphaned file",
				slog.String("path", obj.Key),
				slog.String("error", err.Error()),
			)
			continue
		}
		report.Deleted++
	}

	s.logger.Info("orphan sweep finished",
		slog.Int("scanned", report.Scanned),
		slog.Int("orphans", len(report.Orphans)),
		slog.Int("deleted", report.Deleted),
		slog.Int("failed", report.Failed),
		slog.Bool("dryRun", dryRun),
	)
	return report, nil
}

// owned loads a program and checks that viewerID created it.
func (s *ProgramService) owned(ctx context.Context, viewerID, id string) (*model.Program, error) {
	if viewerID == "" {
		return nil, apperror.Unauthorized("not signed in")
	}
	program, err := s.programs.GetProgramByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/program: getting %s: %w", id, err)
	}
	if program.CreatorID != viewerID {
		return nil, apperror.Forbidden("you can only manage your own programs")
	}
	return program, nil
}

func (s *ProgramService) requireCreator(ctx context.Context, userID string) error {
	if userID == "" {
		return apperror.Unauthorized("not signed in")
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("service/program: getting uploader %s: %w", userID, err)
	}
	if !user.IsCreator() {
		return apperror.Forbidden("only creators can upload programs")
	}
	return nil
}

// discardBlob deletes key and only logs a failure.
func (s *ProgramService) discardBlob(ctx context.Context, key, reason string) {
	if err := s.blobs.Delete(ctx, key); err != nil && !errors.Is(err, blob.ErrNotFound) {
		s.logger.Warn("failed to delete stored file",
			slog.String("path", key),
			slog.String("reason", reason),
			slog.String("error", err.Error()),
		)
	}
}

// unknownContentType is what browsers send for a file they cannot type.
const unknownContentType = "application/octet-stream"

// fileTypeOf is the stored file type for a part's Content-Type. An empty or
// generic binary type means the browser did not know the file's type.
func fileTypeOf(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType == "" || mediaType == unknownContentType {
		return model.DefaultFileType
	}
	return contentType
}
