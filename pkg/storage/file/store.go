// Package file implements storage.Store on the local filesystem. Replacements
// are written to a temporary file next to the target, fsynced and renamed over
// it.
package file

import (
	"blocklist/pkg/serrors"
	"blocklist/pkg/storage"
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Store resolves relative names against a root directory.
type Store struct {
	root string
}

// New returns a Store rooted at root. An empty root means the working directory.
func New(root string) *Store {
	return &Store{root: root}
}

// Path returns the filesystem path for name.
func (s *Store) Path(name string) string {
	if filepath.IsAbs(name) || s.root == "" {
		return name
	}

	return filepath.Join(s.root, name)
}

// Open opens the named file for reading.
func (s *Store) Open(_ context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(s.Path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, serrors.Wrap(serrors.ErrNotFound, err, "%s does not exist", name)
	}
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrIO, err, "could not open %s", name)
	}

	return f, nil
}

// Stage creates a temporary file in the target's directory.
func (s *Store) Stage(_ context.Context, name string) (storage.Staged, error) {
	target := s.Path(name)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return nil, serrors.Wrap(serrors.ErrIO, err, "could not create directory for %s", name)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+"-*.tmp")
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrIO, err, "could not create temp file for %s", name)
	}

	st := &staged{
		target: target,
		tmp:    tmp,
		digest: sha256.New(),
	}
	st.w = bufio.NewWriter(io.MultiWriter(tmp, st.digest))

	return st, nil
}

// staged is a temp file plus a running digest of everything written to it.
type staged struct {
	target   string
	tmp      *os.File
	w        *bufio.Writer
	digest   hash.Hash
	finished bool
}

func (s *staged) Write(p []byte) (int, error) {
	if s.finished {
		return 0, storage.ErrFinished
	}

	n, err := s.w.Write(p)
	if err != nil {
		return n, serrors.Wrap(serrors.ErrIO, err, "could not write %s", s.tmp.Name())
	}

	return n, nil
}

func (s *staged) Size() (int64, error) {
	if s.finished {
		return 0, storage.ErrFinished
	}
	if err := s.w.Flush(); err != nil {
		return 0, serrors.Wrap(serrors.ErrIO, err, "could not flush %s", s.tmp.Name())
	}
	fi, err := s.tmp.Stat()
	if err != nil {
		return 0, serrors.Wrap(serrors.ErrIO, err, "could not stat %s", s.tmp.Name())
	}

	return fi.Size(), nil
}

func (s *staged) Commit() (bool, error) {
	if s.finished {
		return false, storage.ErrFinished
	}
	s.finished = true
	defer func() {
		_ = os.Remove(s.tmp.Name())
	}()

	if err := s.w.Flush(); err != nil {
		_ = s.tmp.Close()

		return false, serrors.Wrap(serrors.ErrIO, err, "could not flush temp file")
	}
	if err := s.tmp.Sync(); err != nil {
		_ = s.tmp.Close()

		return false, serrors.Wrap(serrors.ErrIO, err, "could not sync temp file")
	}
	if err := s.tmp.Close(); err != nil {
		return false, serrors.Wrap(serrors.ErrIO, err, "could not close temp file")
	}

	same, err := sameDigest(s.target, s.digest.Sum(nil))
	if err != nil {
		return false, err
	}
	if same {
		return false, nil
	}

	if err := os.Chmod(s.tmp.Name(), 0o644); err != nil {
		return false, serrors.Wrap(serrors.ErrIO, err, "could not chmod temp file")
	}
	if err := os.Rename(s.tmp.Name(), s.target); err != nil {
		return false, serrors.Wrap(serrors.ErrIO, err, "could not replace %s", s.target)
	}

	return true, nil
}

func (s *staged) Discard() error {
	if s.finished {
		return storage.ErrFinished
	}
	s.finished = true

	closeErr := s.tmp.Close()
	if err := os.Remove(s.tmp.Name()); err != nil {
		return serrors.Wrap(serrors.ErrIO, err, "could not remove temp file")
	}
	if closeErr != nil {
		return fmt.Errorf("could not close temp file: %w", closeErr)
	}

	return nil
}

// sameDigest reports whether the file at path exists and hashes to sum.
func sameDigest(path string, sum []byte) (bool, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, serrors.Wrap(serrors.ErrIO, err, "could not open %s", path)
	}
	defer func() {
		_ = f.Close()
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return false, serrors.Wrap(serrors.ErrIO, err, "could not read %s", path)
	}

	return bytes.Equal(h.Sum(nil), sum), nil
}

// Ensure Store conforms to the storage.Store interface at compile time.
var _ storage.Store = (*Store)(nil)
