// Package fs stores program files in a local directory and serves them
// under a URL prefix of the app itself. It backs development setups and
// the handler tests, where no object store is running.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/sakif/livt/internal/blob"
)

var _ blob.Store = (*Store)(nil)

type Store struct {
	root    string
	baseURL string // e.g. "/files"
}

// New creates root if needed. baseURL is the path prefix the Handler is
// mounted on.
func New(root, baseURL string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("fs: creating root %s: %w", root, err)
	}
	return &Store{root: root, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

// path maps a key to a file under root. Keys that would escape root are
// rejected.
func (s *Store) path(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" || clean != "/"+key {
		return "", fmt.Errorf("fs: invalid key %q", key)
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

// Put writes to a temp file in the target directory and renames it into
// place, so a failed upload never leaves a partial file under the key.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, _ int64, _ string) error {
	dst, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("fs: creating directory for %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return fmt.Errorf("fs: creating temp file for %s: %w", key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: r}); err != nil {
		tmp.Close()
		return fmt.Errorf("fs: writing %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("fs: closing %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("fs: renaming into %s: %w", key, err)
	}
	return nil
}

// URL returns the path the Handler serves key under. Each segment is
// escaped, so names with spaces survive the round trip.
func (s *Store) URL(_ context.Context, key string) (string, error) {
	if _, err := s.path(key); err != nil {
		return "", err
	}
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.baseURL + "/" + strings.Join(segments, "/"), nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return fmt.Errorf("fs: deleting %s: %w", key, blob.ErrNotFound)
		}
		return fmt.Errorf("fs: deleting %s: %w", key, err)
	}
	return nil
}

// List walks root and returns the files whose slash-separated relative path
// starts with prefix. Temp files of in-flight uploads are skipped.
func (s *Store) List(ctx context.Context, prefix string) ([]blob.Object, error) {
	var objects []blob.Object
	err := filepath.WalkDir(s.root, func(p string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".upload-") {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		objects = append(objects, blob.Object{Key: key, Size: info.Size(), LastModified: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fs: listing %s: %w", prefix, err)
	}
	return objects, nil
}

// Handler serves stored files. Mount it with http.StripPrefix(baseURL).
func (s *Store) Handler() http.Handler {
	return http.FileServer(http.Dir(s.root))
}

// ctxReader stops a long copy once the request is cancelled.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
