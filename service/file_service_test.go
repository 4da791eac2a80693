package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFileService_Save(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	fs := NewFileService(&Service{
		Upload: UploadConfig{Dir: dir, URLPrefix: "/uploads/", MaxBytes: 16},
		Clock:  func() time.Time { return now },
	})

	f, err := fs.Save(context.Background(), 1, "../photo.PNG", "image/png", strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if f.Name != "photo.PNG" || f.Size != 9 || f.Type != "image/png" {
		t.Fatalf("unexpected file %+v", f)
	}
	if !strings.HasPrefix(f.URL, "/uploads/202403/") || !strings.HasSuffix(f.URL, ".png") {
		t.Fatalf("unexpected url %s", f.URL)
	}
	rel := strings.TrimPrefix(f.URL, "/uploads/")
	b, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
	if err != nil || string(b) != "png-bytes" {
		t.Fatalf("stored content %q err %v", b, err)
	}
}

func TestFileService_SaveTooLarge(t *testing.T) {
	dir := t.TempDir()
	fs := NewFileService(&Service{Upload: UploadConfig{Dir: dir, MaxBytes: 4}})

	if _, err := fs.Save(context.Background(), 1, "a.txt", "text/plain", strings.NewReader("12345")); err != ErrInvalidParam {
		t.Fatalf("expected ErrInvalidParam, got %v", err)
	}
	entries, _ := filepath.Glob(filepath.Join(dir, "*", "*"))
	if len(entries) != 0 {
		t.Fatalf("partial file should be removed: %v", entries)
	}
}
