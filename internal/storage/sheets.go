package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var ErrBadFilename = errors.New("bad filename")

// SheetStore holds the scanned answer sheets a teacher uploads during the
// student-upload stage of a grading run. Keys are scoped per session.
type SheetStore interface {
	Put(sessionID int64, filename string, r io.Reader) (string, error) // returns canonical key
	Get(key string) (io.ReadCloser, error)
	List(sessionID int64) ([]string, error)
	URL(key string) (string, error)
}

// SheetKey builds the canonical key for a sheet. Filenames are flattened to
// their base name so a crafted name cannot escape the session's prefix.
func SheetKey(sessionID int64, filename string) (string, error) {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "\x00") {
		return "", ErrBadFilename
	}
	return fmt.Sprintf("sessions/%d/%s", sessionID, name), nil
}

// FSSheetStore keeps sheets on local disk, one directory per session. This is
// the offline-mode store; an object-storage implementation can replace it
// behind the same interface for hosted deployments.
type FSSheetStore struct{ base string }

func NewFSSheetStore(base string) (*FSSheetStore, error) {
	if base == "" {
		base = "./data/sheets"
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, err
	}
	return &FSSheetStore{base: base}, nil
}

func (s *FSSheetStore) Put(sessionID int64, filename string, r io.Reader) (string, error) {
	key, err := SheetKey(sessionID, filename)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(s.base, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return "", err
	}
	return key, nil
}

func (s *FSSheetStore) Get(key string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(s.base, filepath.FromSlash(path.Clean(key))))
}

func (s *FSSheetStore) List(sessionID int64) ([]string, error) {
	dir := filepath.Join(s.base, "sessions", fmt.Sprintf("%d", sessionID))
	out := []string{}
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil // no uploads yet
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		out = append(out, fmt.Sprintf("sessions/%d/%s", sessionID, d.Name()))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// URL returns a file:// URL for dev use. Hosted stores return signed URLs.
func (s *FSSheetStore) URL(key string) (string, error) {
	abs, err := filepath.Abs(filepath.Join(s.base, filepath.FromSlash(key)))
	if err != nil {
		return "", err
	}
	u := url.URL{Scheme: "file", Path: abs}
	return u.String(), nil
}
