package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/livt/internal/apperror"
	"github.com/sakif/livt/internal/dashboard"
	"github.com/sakif/livt/internal/model"
	"github.com/sakif/livt/internal/repository"
)

// DashboardService loads everything a creator dashboard shows.
type DashboardService struct {
	users    repository.UserRepository
	programs repository.ProgramRepository
	follows  repository.FollowRepository
	logger   *slog.Logger
	now      func() time.Time
}

func NewDashboardService(
	users repository.UserRepository,
	programs repository.ProgramRepository,
	follows repository.FollowRepository,
	logger *slog.Logger,
) *DashboardService {
	return &DashboardService{
		users:    users,
		programs: programs,
		follows:  follows,
		logger:   logger,
		now:      time.Now,
	}
}

// Page is the loaded state of one dashboard view. When Access.Redirect is
// set only Viewer and Access are filled in.
type Page struct {
	Viewer    *model.User
	Access    dashboard.Access
	Subject   *model.User // nil when the uid names no profile
	Programs  []model.Program
	Overview  model.Overview
	Analytics model.Analytics
}

// Load applies the access policy and, when the page may render, reads the
// subject's profile, programs and follower count. KPIs and analytics are
// computed from the same program list so the three tabs always agree.
func (s *DashboardService) Load(ctx context.Context, viewer *model.User, uid string) (*Page, error) {
	page := &Page{Viewer: viewer, Access: dashboard.Decide(viewer, uid)}
	if page.Access.Redirect != "" {
		return page, nil
	}
	subjectID := page.Access.SubjectID

	subject, err := s.users.GetUserByID(ctx, subjectID)
	switch {
	case err == nil:
		page.Subject = subject
	case errors.Is(err, apperror.ErrNotFound):
		s.logger.Debug("dashboard subject has no profile", slog.String("uid", subjectID))
	default:
		return nil, fmt.Errorf("service/dashboard: getting creator %s: %w", subjectID, err)
	}

	page.Programs, page.Overview, page.Analytics, err = s.metrics(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	return page, nil
}

// Authorize applies the dashboard policy to the JSON API: anonymous callers
// are unauthorized and non-creators are forbidden.
func (s *DashboardService) Authorize(viewer *model.User, uid string) (dashboard.Access, error) {
	access := dashboard.Decide(viewer, uid)
	if access.Redirect == "" {
		return access, nil
	}
	if viewer == nil {
		return access, apperror.Unauthorized("not signed in")
	}
	return access, apperror.Forbidden("a creator account is required")
}

// Overview returns the KPI cards for creatorID.
func (s *DashboardService) Overview(ctx context.Context, creatorID string) (model.Overview, error) {
	_, overview, _, err := s.metrics(ctx, creatorID)
	return overview, err
}

// Analytics returns the analytics tab for creatorID.
func (s *DashboardService) Analytics(ctx context.Context, creatorID string) (model.Analytics, error) {
	_, _, analytics, err := s.metrics(ctx, creatorID)
	return analytics, err
}

func (s *DashboardService) metrics(ctx context.Context, creatorID string) ([]model.Program, model.Overview, model.Analytics, error) {
	programs, err := s.programs.ListProgramsByCreator(ctx, creatorID)
	if err != nil {
		return nil, model.Overview{}, model.Analytics{}, fmt.Errorf("service/dashboard: listing programs of %s: %w", creatorID, err)
	}
	followers, err := s.follows.CountFollowers(ctx, creatorID)
	if err != nil {
		return nil, model.Overview{}, model.Analytics{}, fmt.Errorf("service/dashboard: counting followers of %s: %w", creatorID, err)
	}
	return programs, dashboard.SummarizeOverview(followers, programs), dashboard.Summarize(programs, s.now()), nil
}
