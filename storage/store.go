package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"artloop/logging"
)

// ErrStorage marks filesystem failures while persisting artifacts.
var ErrStorage = errors.New("storage: persist failed")

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// Store persists images and prompt sidecars under a root directory using the
// year/week layout. It holds no state beyond the root path.
type Store struct {
	root   string
	logger *logging.Logger
}

// NewStore creates a store rooted at dir. The root is created on first
// persist, not here.
func NewStore(dir string, logger *logging.Logger) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage: root directory cannot be empty")
	}
	return &Store{root: dir, logger: logger}, nil
}

// Root returns the archive root directory.
func (s *Store) Root() string {
	return s.root
}

// ImagePath resolves a key's image file under the root.
func (s *Store) ImagePath(key StorageKey) string {
	return filepath.Join(s.root, key.ImagePath())
}

// PromptPath resolves a key's sidecar file under the root.
func (s *Store) PromptPath(key StorageKey) string {
	return filepath.Join(s.root, key.PromptPath())
}

// Persist writes the image and its prompt sidecar for a generation finished
// at ts. The image is written first; a sidecar failure reports ErrStorage
// but leaves the image file in place, and the returned key remains valid for
// the image.
func (s *Store) Persist(imageData []byte, finalPrompt string, ts time.Time) (StorageKey, error) {
	if len(imageData) == 0 {
		return StorageKey{}, fmt.Errorf("%w: empty image data", ErrStorage)
	}

	key := KeyFor(ts, imageData)
	dir := filepath.Dir(s.ImagePath(key))
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return StorageKey{}, fmt.Errorf("%w: create %s: %v", ErrStorage, dir, err)
	}

	imagePath := s.ImagePath(key)
	if err := os.WriteFile(imagePath, imageData, filePerm); err != nil {
		return StorageKey{}, fmt.Errorf("%w: write image %s: %v", ErrStorage, imagePath, err)
	}

	promptPath := s.PromptPath(key)
	if err := os.WriteFile(promptPath, []byte(finalPrompt), filePerm); err != nil {
		// Image stays on disk; the caller decides whether a missing sidecar
		// fails the run.
		return key, fmt.Errorf("%w: write sidecar %s: %v", ErrStorage, promptPath, err)
	}

	if s.logger != nil {
		s.logger.Info("artifact persisted",
			zap.String("image", imagePath),
			zap.Int("bytes", len(imageData)))
	}
	return key, nil
}
