package ytdlp

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"ytaudio-bot/domain/audio"
	"ytaudio-bot/domain/media"
)

// mockCommandRunner records calls and returns a canned result
type mockCommandRunner struct {
	result *CommandResult
	err    error
	block  bool

	calls []runCall
}

type runCall struct {
	name string
	args []string
}

func (m *mockCommandRunner) Run(ctx context.Context, name string, args ...string) (*CommandResult, error) {
	m.calls = append(m.calls, runCall{name: name, args: args})
	if m.block {
		<-ctx.Done()
		return &CommandResult{ExitCode: -1}, ctx.Err()
	}
	return m.result, m.err
}

var testMedia = media.ResolvedMedia{
	CanonicalURL: "https://www.youtube.com/watch?v=abc123",
	VideoID:      "abc123",
	Title:        "Song A",
}

var mp3Bytes = []byte{0xFF, 0xFB, 0x90, 0x64, 0x00, 0x0F}

func TestExtractor_Args(t *testing.T) {
	e := NewExtractor()
	got := e.Args("https://www.youtube.com/watch?v=abc123")
	want := []string{
		"-x",
		"--audio-format", "mp3",
		"--no-playlist",
		"-o", "-",
		"--", "https://www.youtube.com/watch?v=abc123",
	}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("Args() = %v, want %v", got, want)
	}

	e = NewExtractor(WithAudioFormat("m4a"), WithExtraArgs("--cookies", "cookies.txt"))
	got = e.Args("u")
	if got[2] != "m4a" {
		t.Errorf("audio format arg = %q, want m4a", got[2])
	}
	if got[len(got)-4] != "--cookies" || got[len(got)-1] != "u" {
		t.Errorf("extra args should precede the url: %v", got)
	}

	e = NewExtractor(WithFFmpegPath("/opt/ffmpeg/bin"))
	got = e.Args("u")
	if !strings.Contains(strings.Join(got, " "), "--ffmpeg-location /opt/ffmpeg/bin --") {
		t.Errorf("ffmpeg location should be passed before the url: %v", got)
	}
}

func TestExtractor_Extract_Success(t *testing.T) {
	runner := &mockCommandRunner{result: &CommandResult{Stdout: mp3Bytes, ExitCode: 0}}
	e := NewExtractor(WithCommandRunner(runner), WithYtDlpPath("/opt/bin/yt-dlp"))

	payload, err := e.Extract(context.Background(), testMedia)
	if err != nil {
		t.Fatalf("Extract() unexpected error: %v", err)
	}
	if !bytes.Equal(payload.Data, mp3Bytes) {
		t.Errorf("Data = %x, want %x", payload.Data, mp3Bytes)
	}
	if payload.Filename != "Song A.mp3" {
		t.Errorf("Filename = %q, want %q", payload.Filename, "Song A.mp3")
	}
	if runner.calls[0].name != "/opt/bin/yt-dlp" {
		t.Errorf("command = %q, want custom path", runner.calls[0].name)
	}
}

func TestExtractor_Extract_DefaultTitle(t *testing.T) {
	runner := &mockCommandRunner{result: &CommandResult{Stdout: mp3Bytes}}
	e := NewExtractor(WithCommandRunner(runner))

	payload, err := e.Extract(context.Background(), media.ResolvedMedia{CanonicalURL: "u"})
	if err != nil {
		t.Fatalf("Extract() unexpected error: %v", err)
	}
	if payload.Filename != "audio.mp3" {
		t.Errorf("Filename = %q, want audio.mp3", payload.Filename)
	}
}

func TestExtractor_Extract_Failures(t *testing.T) {
	tests := []struct {
		name     string
		result   *CommandResult
		err      error
		wantCode int
	}{
		{
			name:     "non-zero exit with partial output",
			result:   &CommandResult{Stdout: []byte{0xFF, 0xFB}, Stderr: []byte("ERROR: Video unavailable\n"), ExitCode: 1},
			err:      errors.New("exit status 1"),
			wantCode: 1,
		},
		{
			name:     "success status but empty output",
			result:   &CommandResult{ExitCode: 0},
			wantCode: 0,
		},
		{
			name:     "launch failure",
			result:   &CommandResult{ExitCode: -1},
			err:      exec.ErrNotFound,
			wantCode: -1,
		},
		{
			name:     "runner returned no result",
			err:      errors.New("boom"),
			wantCode: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &mockCommandRunner{result: tt.result, err: tt.err}
			e := NewExtractor(WithCommandRunner(runner))

			payload, err := e.Extract(context.Background(), testMedia)
			if payload != nil {
				t.Errorf("Extract() payload = %+v, want nil", payload)
			}
			if !errors.Is(err, audio.ErrExtractionFailed) {
				t.Fatalf("Extract() error = %v, want ErrExtractionFailed", err)
			}

			var extractErr *audio.ExtractionError
			if !errors.As(err, &extractErr) {
				t.Fatalf("Extract() error is not an ExtractionError: %T", err)
			}
			if extractErr.ExitCode != tt.wantCode {
				t.Errorf("ExitCode = %d, want %d", extractErr.ExitCode, tt.wantCode)
			}
			if extractErr.TimedOut {
				t.Error("TimedOut = true, want false")
			}
		})
	}
}

func TestExtractor_Extract_StderrIsKept(t *testing.T) {
	runner := &mockCommandRunner{
		result: &CommandResult{Stderr: []byte("ERROR: Sign in to confirm your age\n"), ExitCode: 1},
		err:    errors.New("exit status 1"),
	}
	e := NewExtractor(WithCommandRunner(runner))

	_, err := e.Extract(context.Background(), testMedia)
	var extractErr *audio.ExtractionError
	if !errors.As(err, &extractErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
	if extractErr.Stderr != "ERROR: Sign in to confirm your age" {
		t.Errorf("Stderr = %q", extractErr.Stderr)
	}
}

func TestExtractor_Extract_Timeout(t *testing.T) {
	runner := &mockCommandRunner{block: true}
	e := NewExtractor(WithCommandRunner(runner), WithTimeout(20*time.Millisecond))

	_, err := e.Extract(context.Background(), testMedia)

	var extractErr *audio.ExtractionError
	if !errors.As(err, &extractErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
	if !extractErr.TimedOut {
		t.Error("TimedOut = false, want true")
	}
}

func TestExtractor_Extract_CallerCancellationIsNotTimeout(t *testing.T) {
	runner := &mockCommandRunner{block: true}
	e := NewExtractor(WithCommandRunner(runner), WithTimeout(time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Extract(ctx, testMedia)

	var extractErr *audio.ExtractionError
	if !errors.As(err, &extractErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
	if extractErr.TimedOut {
		t.Error("TimedOut = true for caller cancellation")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error should wrap context.Canceled: %v", err)
	}
}

func TestExtractor_VerifyInstalled(t *testing.T) {
	runner := &mockCommandRunner{result: &CommandResult{Stdout: []byte("2025.01.15\n")}}
	ok := NewExtractor(WithCommandRunner(runner), WithFFmpegPath("/opt/ffmpeg/bin/ffmpeg"))
	if err := ok.VerifyInstalled(context.Background()); err != nil {
		t.Errorf("VerifyInstalled() unexpected error: %v", err)
	}
	if len(runner.calls) != 2 {
		t.Fatalf("expected yt-dlp and ffmpeg checks, got %d calls", len(runner.calls))
	}
	if runner.calls[0].name != "yt-dlp" || runner.calls[1].name != "/opt/ffmpeg/bin/ffmpeg" {
		t.Errorf("checked binaries = %q, %q", runner.calls[0].name, runner.calls[1].name)
	}

	missing := NewExtractor(WithCommandRunner(&mockCommandRunner{err: exec.ErrNotFound}))
	if err := missing.VerifyInstalled(context.Background()); err == nil {
		t.Error("VerifyInstalled() expected error, got nil")
	}
}

// writeScript creates an executable shell script standing in for yt-dlp
func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stubs need a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "yt-dlp")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatalf("failed to write stub script: %v", err)
	}
	return path
}

func TestExtractor_WithExecRunner(t *testing.T) {
	t.Run("success writes stdout payload", func(t *testing.T) {
		path := writeScript(t, `printf '\377\373\220\144'`)
		e := NewExtractor(WithYtDlpPath(path))

		payload, err := e.Extract(context.Background(), testMedia)
		if err != nil {
			t.Fatalf("Extract() unexpected error: %v", err)
		}
		if !bytes.Equal(payload.Data, []byte{0xFF, 0xFB, 0x90, 0x64}) {
			t.Errorf("Data = %x", payload.Data)
		}
	})

	t.Run("non-zero exit discards partial output", func(t *testing.T) {
		path := writeScript(t, "printf 'partial'\necho 'ERROR: boom' >&2\nexit 3")
		e := NewExtractor(WithYtDlpPath(path))

		_, err := e.Extract(context.Background(), testMedia)
		var extractErr *audio.ExtractionError
		if !errors.As(err, &extractErr) {
			t.Fatalf("expected ExtractionError, got %v", err)
		}
		if extractErr.ExitCode != 3 {
			t.Errorf("ExitCode = %d, want 3", extractErr.ExitCode)
		}
		if extractErr.Stderr != "ERROR: boom" {
			t.Errorf("Stderr = %q, want %q", extractErr.Stderr, "ERROR: boom")
		}
	})

	t.Run("hung process is killed on timeout", func(t *testing.T) {
		path := writeScript(t, "exec sleep 30")
		e := NewExtractor(WithYtDlpPath(path), WithTimeout(100*time.Millisecond))

		start := time.Now()
		_, err := e.Extract(context.Background(), testMedia)
		var extractErr *audio.ExtractionError
		if !errors.As(err, &extractErr) || !extractErr.TimedOut {
			t.Fatalf("expected timed out ExtractionError, got %v", err)
		}
		if elapsed := time.Since(start); elapsed > 10*time.Second {
			t.Errorf("extraction took %v, process was not killed", elapsed)
		}
	})

	t.Run("missing binary", func(t *testing.T) {
		e := NewExtractor(WithYtDlpPath(filepath.Join(t.TempDir(), "does-not-exist")))
		_, err := e.Extract(context.Background(), testMedia)
		if !errors.Is(err, audio.ErrExtractionFailed) {
			t.Errorf("Extract() error = %v, want ErrExtractionFailed", err)
		}
	})
}

func TestTailBuffer(t *testing.T) {
	b := &tailBuffer{limit: 5}
	b.Write([]byte("abc"))
	b.Write([]byte("defgh"))
	if got := string(b.Bytes()); got != "defgh" {
		t.Errorf("Bytes() = %q, want %q", got, "defgh")
	}
}
