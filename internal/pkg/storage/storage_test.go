package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/birdwatch/birdwatch-api/internal/pkg/apperr"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestLocalStorageRoundTrip(t *testing.T) {
	st, err := NewLocalStorage(t.TempDir(), "http://localhost/uploads/")
	if err != nil {
		t.Fatalf("new storage: %v", err)
	}
	ctx := context.Background()
	key := NewKey("posts", ".jpg")

	if err := st.Put(ctx, key, strings.NewReader("hello"), "image/jpeg"); err != nil {
		t.Fatalf("put: %v", err)
	}
	ok, err := st.Exists(ctx, key)
	if err != nil || !ok {
		t.Fatalf("expected object to exist, ok=%v err=%v", ok, err)
	}

	rc, err := st.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	rc.Close()
	if string(body) != "hello" {
		t.Fatalf("unexpected body %q", body)
	}

	if got := st.URL(key); got != "http://localhost/uploads/"+key {
		t.Fatalf("unexpected url %q", got)
	}

	if err := st.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := st.Delete(ctx, key); err != nil {
		t.Fatalf("second delete should be a no-op, got %v", err)
	}
	if _, err := st.Get(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLocalStorageKeysStayInsideBase(t *testing.T) {
	base := t.TempDir()
	st, _ := NewLocalStorage(base, "http://x")
	full, err := st.resolve("../../etc/passwd")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !strings.HasPrefix(full, base) {
		t.Fatalf("path escaped base dir: %s", full)
	}
}

func TestThumbKey(t *testing.T) {
	if got := ThumbKey("posts/abc.jpg"); got != "posts/abc_thumb.jpg" {
		t.Fatalf("unexpected thumb key %q", got)
	}
}

func TestValidateFile(t *testing.T) {
	svg := []byte(`<?xml version="1.0"?><svg xmlns="http://www.w3.org/2000/svg" width="1" height="1"></svg>`)

	if _, mime, err := ValidateFile(bytes.NewReader(pngHeader), CategoryAvatar, 1024); err != nil || mime != "image/png" {
		t.Fatalf("png avatar: mime=%q err=%v", mime, err)
	}
	if _, mime, err := ValidateFile(bytes.NewReader(svg), CategoryBirdIcon, 1024); err != nil || mime != "image/svg+xml" {
		t.Fatalf("svg icon: mime=%q err=%v", mime, err)
	}
	if _, _, err := ValidateFile(bytes.NewReader(svg), CategoryAvatar, 1024); !errors.Is(err, ErrInvalidMimeType) {
		t.Fatalf("svg avatar: expected ErrInvalidMimeType, got %v", err)
	}
	if _, _, err := ValidateFile(bytes.NewReader(pngHeader), CategoryAvatar, 4); !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
	_, _, err := ValidateFile(bytes.NewReader(nil), CategoryAvatar, 4)
	if !errors.Is(err, ErrEmptyFile) {
		t.Fatalf("expected ErrEmptyFile, got %v", err)
	}
	if apperr.KindOf(err) != apperr.KindInvalidArgument {
		t.Fatalf("expected invalid argument kind, got %v", apperr.KindOf(err))
	}
}
