package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"rateScope/internal/model"
)

// JSONFileStore appends observations to a single JSON file holding one
// ordered array. Each append reads the whole file, appends in memory, and
// rewrites it; an absent or corrupt file starts a fresh empty array
// rather than failing.
type JSONFileStore struct {
	path   string
	logger *zap.Logger
	mu     sync.Mutex
}

// NewJSONFileStore builds a file store writing to path.
func NewJSONFileStore(path string, logger *zap.Logger) *JSONFileStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JSONFileStore{path: path, logger: logger}
}

// Append adds one observation to the end of the on-disk array.
func (s *JSONFileStore) Append(_ context.Context, obs model.PriceObservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	observations := s.load()
	observations = append(observations, obs)

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	data, err := json.MarshalIndent(observations, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal observations: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write observations tmp: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("rename observations: %w", err)
	}

	return nil
}

// load reads the existing array, healing missing or corrupt files into an
// empty list.
func (s *JSONFileStore) load() []model.PriceObservation {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("observation log unreadable, starting fresh", zap.String("path", s.path), zap.Error(err))
		}
		return []model.PriceObservation{}
	}

	var observations []model.PriceObservation
	if err := json.Unmarshal(data, &observations); err != nil {
		s.logger.Warn("observation log corrupt, starting fresh", zap.String("path", s.path), zap.Error(err))
		return []model.PriceObservation{}
	}
	return observations
}
