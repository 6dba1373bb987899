package dedup

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/dealmungchi/freegameworker/logger"
	apperrors "github.com/dealmungchi/freegameworker/pkg/errors"
)

// FileStore persists announced ids as a JSON array of strings
type FileStore struct {
	path  string
	mu    sync.RWMutex
	ids   map[string]struct{}
	order []string
}

// NewFileStore loads path. A missing or unparsable file starts an empty set;
// any other read failure is returned.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		path: path,
		ids:  make(map[string]struct{}),
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.ForStore().Info().Str("path", path).Msg("No posted file yet, starting empty")
		return s, nil
	}
	if err != nil {
		return nil, apperrors.NewStore("file", "failed to read "+path, err)
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		logger.ForStore().Warn().Err(err).Str("path", path).Msg("Posted file is unreadable, starting empty")
		return s, nil
	}
	for _, id := range ids {
		if _, ok := s.ids[id]; ok {
			continue
		}
		s.ids[id] = struct{}{}
		s.order = append(s.order, id)
	}
	logger.ForStore().Debug().Str("path", path).Int("ids", len(s.order)).Msg("Loaded posted file")
	return s, nil
}

func (s *FileStore) Contains(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok, nil
}

// AddAll appends unseen ids and rewrites the file atomically
func (s *FileStore) AddAll(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, id := range ids {
		if _, ok := s.ids[id]; ok {
			continue
		}
		s.ids[id] = struct{}{}
		s.order = append(s.order, id)
		added++
	}
	if added == 0 {
		return nil
	}
	return s.write()
}

const postedFileMode os.FileMode = 0o644

func (s *FileStore) write() error {
	data, err := json.MarshalIndent(s.order, "", "  ")
	if err != nil {
		return apperrors.NewStore("file", "failed to encode ids", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return apperrors.NewStore("file", "failed to create temp file", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return apperrors.NewStore("file", "failed to write temp file", err)
	}
	// CreateTemp uses 0600; keep the posted file readable like a plain WriteFile would
	if err := tmp.Chmod(postedFileMode); err != nil {
		tmp.Close()
		return apperrors.NewStore("file", "failed to set temp file mode", err)
	}
	if err := tmp.Close(); err != nil {
		return apperrors.NewStore("file", "failed to close temp file", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return apperrors.NewStore("file", "failed to replace "+s.path, err)
	}
	return nil
}

func (s *FileStore) Close() error {
	return nil
}
