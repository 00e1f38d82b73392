package whisper

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"subclip/internal/faults"
	"subclip/internal/media/toolrun"
)

func TestBuildArgs(t *testing.T) {
	args := buildArgs("/videos/demo.mp4", "/data/subtitles", "small", "en")
	want := []string{
		"/videos/demo.mp4",
		"--output_format", "srt",
		"--output_dir", "/data/subtitles",
		"--language", "en",
		"--model", "small",
		"--verbose", "False",
		"--fp16", "False",
	}
	if !reflect.DeepEqual(args, want) {
		t.Fatalf("unexpected args\n got %v\nwant %v", args, want)
	}

	noLang := buildArgs("/videos/demo.mp4", "/data/subtitles", "base", "")
	for _, arg := range noLang {
		if arg == "--language" {
			t.Fatal("language flag must be omitted without a hint")
		}
	}
}

func TestDetectLanguage(t *testing.T) {
	cases := []struct {
		stderr string
		want   string
	}{
		{"Detecting language using up to the first 30 seconds.\nDetected language: English\n", "English"},
		{"Detected language:zh", "zh"},
		{"no detection line here", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := DetectLanguage(tc.stderr); got != tc.want {
			t.Fatalf("DetectLanguage(%q) = %q, want %q", tc.stderr, got, tc.want)
		}
	}
}

func TestTranscribeReturnsArtifact(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "demo.mp4")
	if err := os.WriteFile(video, []byte("fake"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}
	outDir := filepath.Join(dir, "subtitles")

	svc := NewService("whisper").WithRunner(func(ctx context.Context, tool string, args ...string) (toolrun.Result, error) {
		// The real tool writes {stem}.srt into the output directory.
		srt := filepath.Join(outDir, "demo.srt")
		if err := os.WriteFile(srt, []byte("1\n00:00:01,000 --> 00:00:02,000\nhello\n"), 0o644); err != nil {
			t.Fatalf("write srt: %v", err)
		}
		return toolrun.Result{Stderr: "Detected language: English"}, nil
	})

	result, err := svc.Transcribe(context.Background(), video, outDir, "", "")
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if result.SubtitlePath != filepath.Join(outDir, "demo.srt") {
		t.Fatalf("unexpected subtitle path %q", result.SubtitlePath)
	}
	if result.Model != DefaultModel {
		t.Fatalf("expected default model, got %q", result.Model)
	}
	if result.DetectedLanguage != "English" {
		t.Fatalf("unexpected language %q", result.DetectedLanguage)
	}
}

func TestTranscribeToolMissing(t *testing.T) {
	svc := NewService("whisper").WithRunner(func(ctx context.Context, tool string, args ...string) (toolrun.Result, error) {
		return toolrun.Result{}, faults.Wrap(faults.ErrToolMissing, tool, nil)
	})

	_, err := svc.Transcribe(context.Background(), "/videos/demo.mp4", t.TempDir(), "base", "")
	if !errors.Is(err, faults.ErrToolMissing) {
		t.Fatalf("expected tool-missing, got %v", err)
	}
}

func TestTranscribeMissingOutput(t *testing.T) {
	svc := NewService("whisper").WithRunner(func(ctx context.Context, tool string, args ...string) (toolrun.Result, error) {
		return toolrun.Result{}, nil
	})

	_, err := svc.Transcribe(context.Background(), "/videos/demo.mp4", t.TempDir(), "base", "")
	if !errors.Is(err, faults.ErrMalformedOutput) {
		t.Fatalf("expected malformed-output, got %v", err)
	}
}
