// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
)

// MaxArtifactFileSize caps a single uploaded artifact at 16 MiB.
const MaxArtifactFileSize = 16 << 20

var ErrDisallowedExtension = errors.New("file extension not allowed")
var ErrFileTooLarge = errors.New("file exceeds maximum size")

var allowedExtensions = map[string]struct{}{
	".txt": {}, ".pdf": {}, ".png": {}, ".jpg": {}, ".jpeg": {},
	".gif": {}, ".doc": {}, ".docx": {}, ".xls": {}, ".xlsx": {}, ".log": {},
}

// ArtifactStore persists uploaded artifact files under a flat directory,
// one file per (testRunId, testCaseId, filename) triple.
type ArtifactStore struct {
	dir    string
	logger *slog.Logger
}

func NewArtifactStore(dir string, logger *slog.Logger) (*ArtifactStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("artifact directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}

	return &ArtifactStore{dir: dir, logger: logger}, nil
}

// Save writes one uploaded file and returns the stored path. The name is
// prefixed with the run and case identifiers so concurrent runs cannot
// clobber each other's uploads.
func (s *ArtifactStore) Save(testRunID, testCaseID string, file *multipart.FileHeader) (string, error) {
	filename := sanitizeFilename(file.Filename)
	if filename == "" {
		return "", ErrDisallowedExtension
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := allowedExtensions[ext]; !ok {
		return "", ErrDisallowedExtension
	}
	if file.Size > MaxArtifactFileSize {
		return "", ErrFileTooLarge
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	stored := fmt.Sprintf("%s_%s_%s", sanitizeFilename(testRunID), sanitizeFilename(testCaseID), filename)
	path := filepath.Join(s.dir, stored)

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create artifact file: %w", err)
	}
	defer dst.Close()

	// LimitReader guards against a lying Content-Length on the part header.
	written, err := io.Copy(dst, io.LimitReader(src, MaxArtifactFileSize+1))
	if err != nil {
		return "", fmt.Errorf("write artifact file: %w", err)
	}
	if written > MaxArtifactFileSize {
		_ = os.Remove(path)
		return "", ErrFileTooLarge
	}

	s.logger.Info("artifact file saved",
		"test_run_id", testRunID,
		"test_case_id", testCaseID,
		"path", path,
		"bytes", written,
	)

	return path, nil
}

// sanitizeFilename strips directory components and characters that have no
// business in a stored filename.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == ".." {
		return ""
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	return strings.Trim(b.String(), ".")
}
