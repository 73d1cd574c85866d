package creds

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// FileName is the credential file inside a session directory.
const FileName = "creds.json"

var ErrNoCredentials = errors.New("no credentials stored")

// FileStore keeps the credential blob of one session directory.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) Path() string {
	return filepath.Join(s.dir, FileName)
}

func (s *FileStore) Exists() bool {
	_, err := os.Stat(s.Path())
	return err == nil
}

// Load returns the raw credential file.
func (s *FileStore) Load() ([]byte, error) {
	raw, err := os.ReadFile(s.Path())
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoCredentials
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", s.Path())
	}
	return raw, nil
}

// Save replaces the credential file atomically.
func (s *FileStore) Save(raw []byte) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return errors.Wrapf(err, "create session dir %s", s.dir)
	}

	tmp, err := os.CreateTemp(s.dir, FileName+".*")
	if err != nil {
		return errors.Wrap(err, "create temp credential file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return errors.Wrap(err, "write temp credential file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp credential file")
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return errors.Wrap(err, "chmod credential file")
	}
	if err := os.Rename(tmp.Name(), s.Path()); err != nil {
		return errors.Wrapf(err, "replace %s", s.Path())
	}
	return nil
}

// Clear removes the whole session directory.
func (s *FileStore) Clear() error {
	if err := os.RemoveAll(s.dir); err != nil {
		return errors.Wrapf(err, "remove session dir %s", s.dir)
	}
	return nil
}
