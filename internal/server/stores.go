package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/sakif/livt/internal/blob"
	fsblob "github.com/sakif/livt/internal/blob/fs"
	minioblob "github.com/sakif/livt/internal/blob/minio"
	"github.com/sakif/livt/internal/blob/s3store"
	"github.com/sakif/livt/internal/config"
	sqliteRepo "github.com/sakif/livt/internal/repository/sqlite"
)

// filesPrefix is where the fs blob driver's files are served.
const filesPrefix = "/files"

// Stores holds the two storage handles of the process: the document store
// and the blob store. Both the server and livtctl open them through
// OpenStores so they always agree on configuration.
type Stores struct {
	DB    *sqliteRepo.DB
	Blobs blob.Store

	// Files serves stored files by key when the fs driver is active; nil
	// for minio and s3, whose URLs point at the object store itself. The
	// server mounts it under filesPrefix behind handler.FileHandler.
	Files http.Handler
}

// OpenStores opens the database (creating its directory and applying
// migrations) and the configured blob store.
func OpenStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Stores, error) {
	if cfg.DB.Path != ":memory:" {
		dir := filepath.Dir(cfg.DB.Path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
		}
	}

	db, err := sqliteRepo.New(ctx, cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	stores := &Stores{DB: db}
	if err := stores.openBlobs(ctx, cfg.Storage); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening blob store: %w", err)
	}

	logger.Info("stores opened",
		slog.String("database", cfg.DB.Path),
		slog.String("storage", cfg.Storage.Driver),
	)
	return stores, nil
}

func (s *Stores) openBlobs(ctx context.Context, cfg config.Storage) error {
	switch cfg.Driver {
	case config.DriverFS:
		store, err := fsblob.New(cfg.Dir, filesPrefix)
		if err != nil {
			return err
		}
		s.Blobs = store
		s.Files = store.Handler()

	case config.DriverMinIO:
		store, err := minioblob.New(ctx, minioblob.Options{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			UseSSL:    cfg.UseSSL,
			Bucket:    cfg.Bucket,
			URLExpiry: cfg.URLExpiry,
		})
		if err != nil {
			return err
		}
		s.Blobs = store

	case config.DriverS3:
		store, err := s3store.New(ctx, s3store.Options{
			Endpoint:  cfg.Endpoint,
			Region:    cfg.Region,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Bucket:    cfg.Bucket,
			URLExpiry: cfg.URLExpiry,
		})
		if err != nil {
			return err
		}
		s.Blobs = store

	default:
		return fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
	return nil
}

// Close releases the database. Blob stores hold no open resources.
func (s *Stores) Close() error {
	return s.DB.Close()
}
