package fs

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Ahmed-Sermani/go-pagerank/objstore"
	"golang.org/x/xerrors"
)

var _ objstore.Store = (*DirStore)(nil)

// DirStore is an objstore.Store backed by a local directory. Object names
// map to slash-separated paths relative to the root directory.
type DirStore struct {
	root string
}

// NewDirStore returns a store rooted at dir. The directory must exist.
func NewDirStore(dir string) (*DirStore, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, xerrors.Errorf("open dir store: %w", err)
	}
	if !info.IsDir() {
		return nil, xerrors.Errorf("open dir store: %q is not a directory", dir)
	}
	return &DirStore{root: dir}, nil
}

func (s *DirStore) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		if name := filepath.ToSlash(rel); strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, xerrors.Errorf("list %q: %w", prefix, err)
	}
	return names, nil
}

func (s *DirStore) Get(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, xerrors.Errorf("get %q: %w", name, err)
	}

	path, err := s.pathFor(name)
	if err != nil {
		return nil, xerrors.Errorf("get %q: %w", name, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if xerrors.Is(err, fs.ErrNotExist) {
			err = objstore.ErrNotFound
		}
		return nil, xerrors.Errorf("get %q: %w", name, err)
	}
	return data, nil
}

// Put writes the object to a temporary file first and renames it into place
// so that concurrent readers never observe a partially written object.
func (s *DirStore) Put(_ context.Context, name string, data []byte, _ string) error {
	path, err := s.pathFor(name)
	if err != nil {
		return xerrors.Errorf("put %q: %w", name, err)
	}
	if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return xerrors.Errorf("put %q: %w", name, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".put-*")
	if err != nil {
		return xerrors.Errorf("put %q: %w", name, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return xerrors.Errorf("put %q: %w", name, err)
	}
	if err = tmp.Close(); err != nil {
		return xerrors.Errorf("put %q: %w", name, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return xerrors.Errorf("put %q: %w", name, err)
	}
	return nil
}

// pathFor maps name to a path below the root directory. Absolute names and
// names escaping the root through ".." are rejected.
func (s *DirStore) pathFor(name string) (string, error) {
	local := filepath.FromSlash(name)
	if !filepath.IsLocal(local) {
		return "", objstore.ErrInvalidName
	}
	return filepath.Join(s.root, local), nil
}
