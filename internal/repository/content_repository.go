package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"portfolio-be/internal/domain"
	"portfolio-be/pkg/validator"
)

// fileContentRepository keeps one JSON file per locale and content type
// under dir/<locale>/<type>.json
type fileContentRepository struct {
	dir string
	mu  sync.Mutex
}

// NewFileContentRepository creates a content repository rooted at dir
func NewFileContentRepository(dir string) ContentRepository {
	return &fileContentRepository{dir: dir}
}

func (r *fileContentRepository) path(locale string, contentType domain.ContentType) (string, error) {
	if !validator.IsLocale(locale) {
		return "", fmt.Errorf("invalid locale %q", locale)
	}
	if !contentType.Valid() {
		return "", fmt.Errorf("invalid content type %q", contentType)
	}
	return filepath.Join(r.dir, locale, string(contentType)+".json"), nil
}

// Save writes data to a temp file in the target directory and renames it
// over the old file, so readers see either the old or the new blob.
func (r *fileContentRepository) Save(ctx context.Context, locale string, contentType domain.ContentType, data []byte) (time.Time, error) {
	target, err := r.path(locale, contentType)
	if err != nil {
		return time.Time{}, err
	}
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return time.Time{}, fmt.Errorf("failed to create content directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+string(contentType)+"-*.json")
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to create temp content file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return time.Time{}, fmt.Errorf("failed to write content: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return time.Time{}, fmt.Errorf("failed to sync content: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return time.Time{}, fmt.Errorf("failed to close content file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return time.Time{}, fmt.Errorf("failed to set content permissions: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return time.Time{}, fmt.Errorf("failed to replace content file: %w", err)
	}

	info, err := os.Stat(target)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to stat content file: %w", err)
	}
	return info.ModTime().UTC(), nil
}

// Load reads the blob for a type and locale
func (r *fileContentRepository) Load(ctx context.Context, locale string, contentType domain.ContentType) ([]byte, time.Time, error) {
	target, err := r.path(locale, contentType)
	if err != nil {
		return nil, time.Time{}, err
	}
	if err := ctx.Err(); err != nil {
		return nil, time.Time{}, err
	}

	data, err := os.ReadFile(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, time.Time{}, ErrContentNotFound
		}
		return nil, time.Time{}, fmt.Errorf("failed to read content: %w", err)
	}

	info, err := os.Stat(target)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to stat content file: %w", err)
	}
	return data, info.ModTime().UTC(), nil
}
