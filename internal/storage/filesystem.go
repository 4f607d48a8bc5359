package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/chapterlyapp/chapterly-server/internal/errors"
)

// FilesystemStore writes narration artifacts under a local audio directory.
// Thread-safe for concurrent publishes.
// Layout: {basePath}/chapters/{chapterID}.mp3, served under publicBaseURL.
type FilesystemStore struct {
	basePath      string
	publicBaseURL string
	mu            sync.RWMutex // Protects file operations
}

// NewFilesystemStore creates a store rooted at basePath.
// Artifacts live in {basePath}/chapters/ and resolve to
// {publicBaseURL}/chapters/{chapterID}.mp3.
func NewFilesystemStore(basePath, publicBaseURL string) (*FilesystemStore, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}

	chaptersPath := filepath.Join(basePath, "chapters")
	if err := os.MkdirAll(chaptersPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create chapters directory: %w", err)
	}

	return &FilesystemStore{
		basePath:      basePath,
		publicBaseURL: publicBaseURL,
	}, nil
}

// Publish writes the artifact and returns its public URL.
// The write goes through a temp file and rename so readers never observe
// a half-written artifact.
func (s *FilesystemStore) Publish(ctx context.Context, chapterID string, audio []byte) (string, error) {
	if chapterID == "" {
		return "", errors.Storage("chapter ID cannot be empty")
	}
	if len(audio) == 0 {
		return "", errors.Storage("audio data cannot be empty")
	}
	if err := ctx.Err(); err != nil {
		return "", errors.Wrap(err, errors.CodeStorage, "publish canceled")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(chapterID)

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+chapterID+"-*.tmp")
	if err != nil {
		return "", errors.Wrap(err, errors.CodeStorage, "failed to create temp artifact")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(audio); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", errors.Wrap(err, errors.CodeStorage, "failed to write artifact")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", errors.Wrap(err, errors.CodeStorage, "failed to close artifact")
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return "", errors.Wrap(err, errors.CodeStorage, "failed to set artifact permissions")
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", errors.Wrap(err, errors.CodeStorage, "failed to publish artifact")
	}

	return s.URL(chapterID), nil
}

// Delete removes a chapter's artifact. Missing artifacts are not an error.
func (s *FilesystemStore) Delete(ctx context.Context, chapterID string) error {
	if chapterID == "" {
		return errors.Storage("chapter ID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.Path(chapterID)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, errors.CodeStorage, "failed to delete artifact")
	}
	return nil
}

// Exists checks whether a chapter's artifact is on disk.
func (s *FilesystemStore) Exists(chapterID string) bool {
	if chapterID == "" {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := os.Stat(s.Path(chapterID))
	return err == nil
}

// Path returns the filesystem path for a chapter's artifact.
func (s *FilesystemStore) Path(chapterID string) string {
	return filepath.Join(s.basePath, "chapters", chapterID+".mp3")
}

// URL returns the public URL for a chapter's artifact.
func (s *FilesystemStore) URL(chapterID string) string {
	return fmt.Sprintf("%s/chapters/%s.mp3", s.publicBaseURL, chapterID)
}
