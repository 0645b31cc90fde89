package ps

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

var (
	ErrNotFound          = errors.New("object not found")
	ErrUnsupportedScheme = errors.New("unsupported storage scheme")
)

// ObjectInfo describes one object directly under a listed directory.
type ObjectInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// Store is a read-only view of a table's storage location. Names passed to
// List and Read are relative to Root and use forward slashes.
type Store interface {
	// Root returns the absolute location the store was opened at.
	Root() string
	// List returns the entries directly under dir sorted by name. A missing
	// directory is reported as ErrNotFound.
	List(ctx context.Context, dir string) ([]ObjectInfo, error)
	// Read returns the full contents of the named object.
	Read(ctx context.Context, name string) ([]byte, error)
}

// Options configures access to remote object stores. Empty values fall
// back to the AWS default credential chain.
type Options struct {
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	SessionToken string
}

// HasStaticCredentials reports whether explicit S3 keys were supplied.
func (o Options) HasStaticCredentials() bool {
	return o.AccessKey != "" && o.SecretKey != ""
}

// Open returns the store for a table location, chosen by URI scheme.
func Open(ctx context.Context, uri string, opts Options) (Store, error) {
	switch DetectScheme(uri) {
	case SchemeLocal, SchemeFile:
		return NewLocalStore(LocalPath(uri))
	case SchemeS3:
		return NewS3Store(ctx, uri, opts)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, uri)
	}
}

// Join resolves name against root. Absolute URIs are returned unchanged.
func Join(root, name string) string {
	if strings.Contains(name, "://") {
		return name
	}
	if strings.Contains(root, "://") {
		return strings.TrimSuffix(root, "/") + "/" + strings.TrimPrefix(name, "/")
	}
	return filepath.Join(root, filepath.FromSlash(name))
}
