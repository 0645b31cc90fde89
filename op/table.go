package op

import (
	"context"
	"errors"
	"path"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/nickyhof/deltactl/core"
	"github.com/nickyhof/deltactl/db"
	"github.com/nickyhof/deltactl/ps"
)

// Table is an open table handle.
type Table interface {
	Kind() core.TableKind
	Reference() string

	Files(ctx context.Context) ([]string, error)
	Schema(ctx context.Context) (*core.Schema, error)
	Version(ctx context.Context) (int64, error)
	Metadata(ctx context.Context) (*core.TableMetadata, error)
	// History returns commits newest first; limit 0 returns all of them.
	History(ctx context.Context, limit int) ([]core.CommitInfo, error)

	// Source describes the table for registration with a query engine.
	Source(ctx context.Context) (db.Source, error)
	Close() error
}

type Options struct {
	Storage ps.Options
	// Engine introspects flat tables. When nil, flat tables open their own.
	Engine *db.Engine
}

// flatExtensions maps recognized single-file extensions.
var flatExtensions = map[string]bool{
	".parquet": true,
}

// ResolveKind picks the backend for ref from its extension without touching
// storage. References without an extension are versioned tables.
func ResolveKind(ref string) (core.TableKind, error) {
	ext := extension(ref)
	switch {
	case ext == "":
		return core.VersionedKind, nil
	case flatExtensions[strings.ToLower(ext)]:
		return core.FlatKind, nil
	default:
		return core.UnknownKind, &core.FormatError{Ref: ref, Extension: ext}
	}
}

// extension returns the extension of the last path segment of ref. Scheme
// and bucket or host names are not part of the path, and "." or ".." have
// no extension.
func extension(ref string) string {
	p := strings.TrimRight(ref, "/")
	if i := strings.Index(p, "://"); i >= 0 {
		rest := p[i+3:]
		if ps.DetectScheme(ref) == ps.SchemeFile {
			p = rest
		} else if j := strings.Index(rest, "/"); j >= 0 {
			p = rest[j:]
		} else {
			return ""
		}
	}
	if base := path.Base(p); base == "." || base == ".." {
		return ""
	}
	return path.Ext(p)
}

// Open resolves the backend for ref and opens it.
func Open(ctx context.Context, ref string, opts Options) (Table, error) {
	kind, err := ResolveKind(ref)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"table": ref, "kind": kind}).Debug("opening table")

	if kind == core.FlatKind {
		t, err := openParquetTable(ctx, ref, opts)
		if err != nil {
			return nil, err
		}
		return t, nil
	}

	t, err := openDeltaTable(ctx, ref, opts)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func openErr(ref string, err error) error {
	var openErr *core.OpenError
	if errors.As(err, &openErr) {
		return err
	}
	return &core.OpenError{Ref: ref, Err: err}
}
