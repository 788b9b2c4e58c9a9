// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func fileHeader(t *testing.T, filename, content string) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	form, err := multipart.NewReader(&buf, writer.Boundary()).ReadForm(32 << 20)
	if err != nil {
		t.Fatalf("read form: %v", err)
	}
	t.Cleanup(func() { _ = form.RemoveAll() })

	headers := form.File["file"]
	if len(headers) != 1 {
		t.Fatalf("expected one file header got %d", len(headers))
	}
	return headers[0]
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestArtifactStoreSave(t *testing.T) {
	dir := t.TempDir()
	store, err := NewArtifactStore(dir, discardLogger())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	path, err := store.Save("R1", "TC1", fileHeader(t, "screenshot.png", "fake-png-bytes"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	if filepath.Base(path) != "R1_TC1_screenshot.png" {
		t.Fatalf("unexpected stored name %s", filepath.Base(path))
	}

	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if string(body) != "fake-png-bytes" {
		t.Fatalf("stored content mismatch: %q", body)
	}
}

func TestArtifactStoreRejectsDisallowedExtension(t *testing.T) {
	store, err := NewArtifactStore(t.TempDir(), discardLogger())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	if _, err := store.Save("R1", "TC1", fileHeader(t, "payload.exe", "nope")); !errors.Is(err, ErrDisallowedExtension) {
		t.Fatalf("expected ErrDisallowedExtension got %v", err)
	}
}

func TestArtifactStoreSanitizesPathTraversal(t *testing.T) {
	dir := t.TempDir()
	store, err := NewArtifactStore(dir, discardLogger())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	path, err := store.Save("R1", "TC1", fileHeader(t, "../../etc/notes.txt", "hello"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	if !strings.HasPrefix(path, dir) {
		t.Fatalf("stored path escaped directory: %s", path)
	}
	if strings.Contains(filepath.Base(path), "/") {
		t.Fatalf("stored name still contains separators: %s", path)
	}
}

func TestNewArtifactStoreRequiresDirectory(t *testing.T) {
	if _, err := NewArtifactStore("  ", discardLogger()); err == nil {
		t.Fatal("expected error for empty directory")
	}
}
