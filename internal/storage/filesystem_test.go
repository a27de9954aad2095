package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSanitizeKey(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"projects/a/scene-01/image.png", "projects/a/scene-01/image.png", false},
		{"/leading/slash.png", "leading/slash.png", false},
		{`win\style\key.wav`, "win/style/key.wav", false},
		{"./dot/./seg.mp4", "dot/seg.mp4", false},
		{"../escape", "", true},
		{"a/../../b", "", true},
		{"   ", "", true},
		{"/", "", true},
	}
	for _, tc := range cases {
		got, err := sanitizeKey(tc.in)
		if (err != nil) != tc.wantErr {
			t.Fatalf("sanitizeKey(%q) err = %v, wantErr %v", tc.in, err, tc.wantErr)
		}
		if got != tc.want {
			t.Fatalf("sanitizeKey(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFileStoreWriteReadRemove(t *testing.T) {
	root := t.TempDir()
	fs, err := NewFileStore(root)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()

	key, err := fs.Write(ctx, "projects/p1/scene-01/image.png", []byte("png"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "projects", "p1", "scene-01", "image.png")); err != nil {
		t.Fatalf("file not written: %v", err)
	}
	data, err := fs.Read(ctx, key)
	if err != nil || string(data) != "png" {
		t.Fatalf("Read = %q, %v", data, err)
	}
	if err := fs.RemoveAll(ctx, "projects/p1"); err != nil {
		t.Fatalf("RemoveAll: %v", err)
	}
	if _, err := fs.Read(ctx, key); err == nil {
		t.Fatalf("Read after RemoveAll succeeded")
	}
	if _, err := fs.Write(ctx, "../x", nil); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("traversal err = %v", err)
	}
}
