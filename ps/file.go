package ps

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-billy/v6/memfs"
	"github.com/go-git/go-billy/v6/osfs"
)

// FileStore serves a table from a billy filesystem: the local disk for real
// tables, memory for tests.
type FileStore struct {
	fs   billy.Filesystem
	root string
}

// NewFileStore wraps fs. root is reported by Root and used to build file URIs.
func NewFileStore(fs billy.Filesystem, root string) *FileStore {
	return &FileStore{fs: fs, root: root}
}

// NewLocalStore opens the directory dir on the local disk.
func NewLocalStore(dir string) (*FileStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return NewFileStore(osfs.New(abs), abs), nil
}

func NewMemoryStore() *FileStore {
	return NewFileStore(memfs.New(), "memory:///")
}

// Filesystem exposes the underlying filesystem.
func (s *FileStore) Filesystem() billy.Filesystem {
	return s.fs
}

func (s *FileStore) Root() string {
	return s.root
}

func (s *FileStore) List(ctx context.Context, dir string) ([]ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := s.fs.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, dir)
		}
		return nil, err
	}

	infos := make([]ObjectInfo, 0, len(entries))
	for _, entry := range entries {
		fi, err := s.fs.Stat(path.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		infos = append(infos, ObjectInfo{
			Name:    fi.Name(),
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
			IsDir:   fi.IsDir(),
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})
	return infos, nil
}

func (s *FileStore) Read(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := s.fs.Open(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(f)
}
