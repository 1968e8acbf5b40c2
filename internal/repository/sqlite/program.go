package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/livt/internal/apperror"
	"github.com/sakif/livt/internal/model"
	"github.com/sakif/livt/internal/repository"
)

var _ repository.ProgramRepository = (*DB)(nil)

const programColumns = `id, creator_id, title, description, file_url, file_path,
	file_name, file_type, published, views, downloads, created_at`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// CreateProgram inserts a metadata record. Views and Downloads always start
// at zero regardless of what the caller put in the struct.
func (db *DB) CreateProgram(ctx context.Context, p *model.Program) error {
	p.ID = xid.New().String()
	p.Views = 0
	p.Downloads = 0
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO programs (`+programColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.CreatorID,
		p.Title,
		p.Description,
		p.FileURL,
		p.FilePath,
		p.FileName,
		p.FileType,
		p.Published,
		p.Views,
		p.Downloads,
		p.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NotFound("creator", p.CreatorID)
		}
		return fmt.Errorf("sqlite: creating program: %w", err)
	}

	return nil
}

// GetProgramByID retrieves a single program record.
func (db *DB) GetProgramByID(ctx context.Context, id string) (*model.Program, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+programColumns+` FROM programs WHERE id = ?`, id)

	p, err := scanProgram(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("program", id)
		}
		return nil, fmt.Errorf("sqlite: getting program %s: %w", id, err)
	}
	return p, nil
}

// GetProgramByPath retrieves the record that references the blob key.
func (db *DB) GetProgramByPath(ctx context.Context, path string) (*model.Program, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+programColumns+` FROM programs WHERE file_path = ? LIMIT 1`, path)

	p, err := scanProgram(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("program file", path)
		}
		return nil, fmt.Errorf("sqlite: getting program by path %s: %w", path, err)
	}
	return p, nil
}

// ListProgramsByCreator returns all programs of a creator, newest first.
//
// The ID is a secondary sort key so that two uploads stamped with the same
// instant still come back in a stable order.
func (db *DB) ListProgramsByCreator(ctx context.Context, creatorID string) ([]model.Program, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+programColumns+`
		 FROM programs
		 WHERE creator_id = ?
		 ORDER BY created_at DESC, id DESC`,
		creatorID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing programs of %s: %w", creatorID, err)
	}
	defer rows.Close()

	programs := []model.Program{}
	for rows.Next() {
		p, err := scanProgram(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning program row: %w", err)
		}
		programs = append(programs, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating programs: %w", err)
	}

	return programs, nil
}

// SetPublished writes the published flag.
func (db *DB) SetPublished(ctx context.Context, id string, published bool) error {
	err := db.execAffectingOne(ctx, apperror.NotFound("program", id),
		`UPDATE programs SET published = ? WHERE id = ?`, published, id)
	if err != nil {
		return fmt.Errorf("sqlite: setting published on program %s: %w", id, err)
	}
	return nil
}

// DeleteProgram removes the metadata record. The blob is the caller's job.
func (db *DB) DeleteProgram(ctx context.Context, id string) error {
	err := db.execAffectingOne(ctx, apperror.NotFound("program", id),
		`DELETE FROM programs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting program %s: %w", id, err)
	}
	return nil
}

// IncrementViews adds one to the view counter in a single statement, so
// concurrent opens never lose an update.
func (db *DB) IncrementViews(ctx context.Context, id string) error {
	err := db.execAffectingOne(ctx, apperror.NotFound("program", id),
		`UPDATE programs SET views = views + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: incrementing views of program %s: %w", id, err)
	}
	return nil
}

// IncrementDownloads adds one to the download counter.
func (db *DB) IncrementDownloads(ctx context.Context, id string) error {
	err := db.execAffectingOne(ctx, apperror.NotFound("program", id),
		`UPDATE programs SET downloads = downloads + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: incrementing downloads of program %s: %w", id, err)
	}
	return nil
}

// ProgramPathExists reports whether a record references the blob key.
// The orphan sweep calls this once per stored blob.
func (db *DB) ProgramPathExists(ctx context.Context, path string) (bool, error) {
	var exists bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM programs WHERE file_path = ?)`, path,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking program path %s: %w", path, err)
	}
	return exists, nil
}

func scanProgram(s rowScanner) (*model.Program, error) {
	var p model.Program
	err := s.Scan(
		&p.ID,
		&p.CreatorID,
		&p.Title,
		&p.Description,
		&p.FileURL,
		&p.FilePath,
		&p.FileName,
		&p.FileType,
		&p.Published,
		&p.Views,
		&p.Downloads,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
