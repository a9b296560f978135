// Package files keeps uploaded task attachments in one directory per task.
package files

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/adanyl0v/go-taskdesk/internal/models"
)

const dirPerm = 0o750

var ErrInvalidPath = errors.New("invalid file path")

// Store implements services.FileStore. Paths it hands out are
// relative to its root: "{taskID}/{name}".
type Store struct {
	fs afero.Fs
}

func NewStore(fs afero.Fs) *Store {
	return &Store{fs: fs}
}

// NewOsStore roots a store at dir on the local disk.
func NewOsStore(dir string) (*Store, error) {
	osFs := afero.NewOsFs()
	err := osFs.MkdirAll(dir, dirPerm)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage root %s: %w", dir, err)
	}
	return NewStore(afero.NewBasePathFs(osFs, dir)), nil
}

func (s *Store) Save(taskID int64, name, contentType string, r io.Reader) (models.File, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return models.File{}, fmt.Errorf("%w: %q", ErrInvalidPath, name)
	}

	dir := taskDir(taskID)
	err := s.fs.MkdirAll(dir, dirPerm)
	if err != nil {
		return models.File{}, fmt.Errorf("failed to create task directory: %w", err)
	}

	p := path.Join(dir, name)
	f, err := s.fs.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return models.File{}, fmt.Errorf("failed to create file %s: %w", p, err)
	}

	br := bufio.NewReader(r)
	if contentType == "" {
		// Peek returns what is available when the content is shorter.
		head, _ := br.Peek(512)
		contentType = http.DetectContentType(head)
	}

	size, err := io.Copy(f, br)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = s.fs.Remove(p)
		return models.File{}, fmt.Errorf("failed to write file %s: %w", p, err)
	}

	return models.File{
		Name: name,
		Path: p,
		Type: contentType,
		Size: size,
	}, nil
}

func (s *Store) Open(p string) (afero.File, error) {
	p, err := cleanPath(p)
	if err != nil {
		return nil, err
	}
	return s.fs.Open(p)
}

func (s *Store) Remove(p string) error {
	p, err := cleanPath(p)
	if err != nil {
		return err
	}
	err = s.fs.Remove(p)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *Store) RemoveTask(taskID int64) error {
	return s.fs.RemoveAll(taskDir(taskID))
}

// TaskIDs lists the task directories present under the root.
// Entries whose name is not a task id are skipped.
func (s *Store) TaskIDs() ([]int64, error) {
	entries, err := afero.ReadDir(s.fs, "/")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		id, err := strconv.ParseInt(e.Name(), 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func taskDir(taskID int64) string {
	return strconv.FormatInt(taskID, 10)
}

// cleanPath rejects paths that would leave the task directories.
func cleanPath(p string) (string, error) {
	cleaned := path.Clean(strings.TrimPrefix(p, "/"))
	dir, name := path.Split(cleaned)
	if name == "" || name == ".." || strings.HasPrefix(cleaned, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	if _, err := strconv.ParseInt(strings.TrimSuffix(dir, "/"), 10, 64); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	return cleaned, nil
}
