// Package blob declares the binary object store that holds uploaded program
// files. Metadata lives in the document store; a program record only keeps
// the key returned by ProgramKey.
//
// Three drivers implement Store:
//
//	minio    → MinIO or any S3-compatible endpoint via minio-go
//	s3store  → AWS S3 / Cloudflare R2 via aws-sdk-go-v2
//	fs       → a local directory, served by the app itself (dev and tests)
//
// URL returns a link a browser can follow right now. For the remote drivers
// it is presigned and expires, so callers that redirect to a file should ask
// for a fresh URL at request time instead of reusing a stored one.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// ProgramPrefix is the key prefix under which all program files are stored.
const ProgramPrefix = "programs/"

// ErrNotFound is returned by drivers that can tell a missing key apart.
var ErrNotFound = errors.New("blob: object not found")

// Object describes one stored blob as reported by List.
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Store is the blob store used by the program service and the orphan sweep.
type Store interface {
	// Put writes r under key. size may be -1 when unknown.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// URL returns a download link for key.
	URL(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
	// List returns every object whose key starts with prefix.
	List(ctx context.Context, prefix string) ([]Object, error)
}

// ProgramKey builds the storage key of an upload:
//
//	programs/<creatorID>/<unixMillis>_<base name>
//
// Browsers on some platforms send the full client path as the file name, so
// only the last element is kept.
func ProgramKey(creatorID, fileName string, now time.Time) string {
	return fmt.Sprintf("%s%s/%d_%s", ProgramPrefix, creatorID, now.UnixMilli(), BaseName(fileName))
}

// BaseName strips any directory part, forward or backslash separated.
func BaseName(fileName string) string {
	name := path.Base(strings.ReplaceAll(fileName, `\`, "/"))
	if name == "." || name == "/" {
		return "file"
	}
	return name
}
