package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/livt/internal/apperror"
	"github.com/sakif/livt/internal/model"
	"github.com/sakif/livt/internal/repository"
)

var _ repository.FollowRepository = (*DB)(nil)

// CreateFollow records that FollowerID follows CreatorID.
// Following the same creator twice returns apperror.ErrConflict.
func (db *DB) CreateFollow(ctx context.Context, f *model.Follow) error {
	f.ID = xid.New().String()
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO follows (id, creator_id, follower_id, created_at) VALUES (?, ?, ?, ?)`,
		f.ID, f.CreatorID, f.FollowerID, f.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("follow", "already following this creator")
		}
		if isForeignKeyViolation(err) {
			return apperror.NotFound("creator", f.CreatorID)
		}
		return fmt.Errorf("sqlite: creating follow %s -> %s: %w", f.FollowerID, f.CreatorID, err)
	}
	return nil
}

// DeleteFollow removes the relationship. Returns ErrNotFound if it did not exist.
func (db *DB) DeleteFollow(ctx context.Context, creatorID, followerID string) error {
	err := db.execAffectingOne(ctx, apperror.NotFound("follow", followerID+"->"+creatorID),
		`DELETE FROM follows WHERE creator_id = ? AND follower_id = ?`, creatorID, followerID)
	if err != nil {
		return fmt.Errorf("sqlite: deleting follow %s -> %s: %w", followerID, creatorID, err)
	}
	return nil
}

// CountFollowers counts the follow records pointing at creatorID.
func (db *DB) CountFollowers(ctx context.Context, creatorID string) (int64, error) {
	var n int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM follows WHERE creator_id = ?`, creatorID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting followers of %s: %w", creatorID, err)
	}
	return n, nil
}
