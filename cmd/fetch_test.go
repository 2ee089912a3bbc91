package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ytaudio-bot/application/resolve"
	"ytaudio-bot/domain/media"
	"ytaudio-bot/infrastructure/filesystem"
)

func TestRunFetchWithDependencies(t *testing.T) {
	dir := t.TempDir()
	extractor := &fakeExtractor{}
	var out bytes.Buffer

	err := RunFetchWithDependencies(
		context.Background(),
		resolve.NewService(fakeMetadata{}, nil),
		extractor,
		filesystem.NewStore(),
		dir,
		"mp3",
		"lofi beats",
		false,
		&out,
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path := filepath.Join(dir, "LOFI BEATS.mp3")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected audio file at %s: %v", path, err)
	}
	if string(data) != "ID3" {
		t.Errorf("unexpected file content %q", data)
	}
	if extractor.verifyRuns != 1 {
		t.Errorf("expected yt-dlp to be verified once, got %d", extractor.verifyRuns)
	}
	if !strings.Contains(out.String(), "Successfully created: "+path) {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestRunFetchWithDependencies_NotFound(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer

	err := RunFetchWithDependencies(
		context.Background(),
		resolve.NewService(fakeMetadata{}, nil),
		&fakeExtractor{},
		filesystem.NewStore(),
		dir,
		"mp3",
		"nothing",
		false,
		&out,
	)
	if !errors.Is(err, media.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("expected no files written, got %d", len(entries))
	}
}
