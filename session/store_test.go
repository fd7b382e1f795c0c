// Copyright (c) 2025 BVK Chaitanya

package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "sessions")

	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	if r, err := s.Load(ctx); err != nil || r != nil {
		t.Fatalf("want nil record from an empty store, got %v, %v", r, err)
	}

	want := &Record{
		AccountName: "bot-account",
		SessionBlob: "refresh-token-1",
		CapturedAt:  time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	if err := s.Save(ctx, want); err != nil {
		t.Fatal(err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.AccountName != want.AccountName || got.SessionBlob != want.SessionBlob || !got.CapturedAt.Equal(want.CapturedAt) {
		t.Fatalf("want %#v, got %#v", want, got)
	}

	finfo, err := os.Stat(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	if mode := finfo.Mode().Perm(); mode != 0600 {
		t.Fatalf("want file mode 0600, got %v", mode)
	}

	// Save fully replaces the old record.
	next := &Record{
		AccountName: "bot-account",
		SessionBlob: "refresh-token-2",
		CapturedAt:  want.CapturedAt.Add(time.Hour),
	}
	if err := s.Save(ctx, next); err != nil {
		t.Fatal(err)
	}
	if got, err := s.Load(ctx); err != nil || got.SessionBlob != next.SessionBlob {
		t.Fatalf("want replaced record, got %v, %v", got, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("want only the record file in the directory, got %d entries", len(entries))
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if r, err := s.Load(ctx); err != nil || r != nil {
		t.Fatalf("want nil record after clear, got %v, %v", r, err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("clearing an absent record must succeed: %v", err)
	}
}

func TestFileStoreCorrupted(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	for _, data := range []string{"{not-json", `{"account_name":"x"}`, ""} {
		if err := os.WriteFile(s.Path(), []byte(data), 0600); err != nil {
			t.Fatal(err)
		}
		if r, err := s.Load(ctx); err != nil || r != nil {
			t.Fatalf("want corrupted record %q to load as nil, got %v, %v", data, r, err)
		}
	}
}

func TestFileStoreUnavailable(t *testing.T) {
	ctx := context.Background()

	// Use a regular file where the directory is expected.
	parent := t.TempDir()
	fpath := filepath.Join(parent, "not-a-dir")
	if err := os.WriteFile(fpath, nil, 0600); err != nil {
		t.Fatal(err)
	}

	s, err := NewFileStore(fpath)
	if err != nil {
		t.Fatal(err)
	}
	r := &Record{AccountName: "a", SessionBlob: "b", CapturedAt: time.Now()}
	if err := s.Save(ctx, r); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("want ErrStoreUnavailable, got %v", err)
	}
	if _, err := s.Load(ctx); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("want ErrStoreUnavailable, got %v", err)
	}
}

func TestFileStoreInvalid(t *testing.T) {
	if _, err := NewFileStore("relative/dir"); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("want os.ErrInvalid for relative path, got %v", err)
	}

	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Save(context.Background(), &Record{AccountName: "a"}); !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("want os.ErrInvalid for incomplete record, got %v", err)
	}
}
