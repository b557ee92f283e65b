// Package localstore keeps named JSON blobs on disk, one file per key.
//
// It is the client's equivalent of browser local storage: values are opaque
// bytes, writes replace the whole value atomically, and a missing key is not
// an error.
package localstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const lockFile = ".lock"

// Store is a directory of key files.
type Store struct {
	dir string
}

// Open returns a store rooted at dir, creating the directory if needed.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("localstore: empty directory")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory backing the store.
func (s *Store) Dir() string { return s.dir }

// Get returns the blob stored under key. ok is false when nothing is stored.
func (s *Store) Get(key string) (data []byte, ok bool, err error) {
	path, err := s.path(key)
	if err != nil {
		return nil, false, err
	}
	data, err = os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// Set replaces the blob under key using a temp file and rename.
func (s *Store) Set(key string, data []byte) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	return s.withLock(func() error {
		tmp, err := os.CreateTemp(s.dir, key+"-*.tmp")
		if err != nil {
			return err
		}
		tmpName := tmp.Name()

		if _, err := tmp.Write(data); err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return err
		}
		if err := tmp.Close(); err != nil {
			os.Remove(tmpName)
			return err
		}
		return os.Rename(tmpName, path)
	})
}

// Delete removes key. Deleting a missing key is a no-op.
func (s *Store) Delete(key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	return s.withLock(func() error {
		err := os.Remove(path)
		if os.IsNotExist(err) {
			return nil
		}
		return err
	})
}

func (s *Store) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." || strings.HasPrefix(key, ".") {
		return "", fmt.Errorf("localstore: invalid key %q", key)
	}
	return filepath.Join(s.dir, key+".json"), nil
}

// withLock serializes writers across processes with an OS file lock.
func (s *Store) withLock(fn func() error) error {
	f, err := os.OpenFile(filepath.Join(s.dir, lockFile), os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := lock(f); err != nil {
		return fmt.Errorf("lock store: %w", err)
	}
	defer unlock(f)

	return fn()
}

// lock and unlock live in lock_unix.go and lock_windows.go.
