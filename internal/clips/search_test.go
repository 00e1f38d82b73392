package clips

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"subclip/internal/faults"
	"subclip/internal/logging"
	"subclip/internal/media/toolrun"
)

const searchSRT = `1
00:00:01,000 --> 00:00:03,000
Hello there, friend

2
00:00:05,000 --> 00:00:07,000
Nothing to see here

3
00:00:10,000 --> 00:00:12,000
Well HELLO again
and hello once more
`

func writeTranscript(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write transcript: %v", err)
	}
	return path
}

func TestSearchAndClipMatches(t *testing.T) {
	dir := t.TempDir()
	video := writeVideo(t, dir, "movie.mp4")
	writeTranscript(t, dir, "movie.srt", searchSRT)

	var argv [][]string
	cutter := NewCutter("ffmpeg", 1.0, logging.NewNop()).WithRunner(fakeFFmpeg(t, &argv))

	outcome, err := cutter.SearchAndClip(context.Background(), SearchRequest{
		VideoPath: video,
		Keyword:   "hello",
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(outcome.Matches) != 2 || outcome.ClipsCreated != 2 {
		t.Fatalf("expected 2 matches and 2 clips, got %+v", outcome)
	}

	first := outcome.Matches[0]
	if first.Highlighted != "**Hello** there, friend" {
		t.Fatalf("highlight must preserve original casing: %q", first.Highlighted)
	}
	// Without an output directory the clips land next to the video under
	// the cutter's timestamped default name.
	if filepath.Dir(first.ClipPath) != dir {
		t.Fatalf("clip must land next to the video: %q", first.ClipPath)
	}
	if base := filepath.Base(first.ClipPath); !strings.HasPrefix(base, "hello_clip_") || !strings.HasSuffix(base, ".mp4") {
		t.Fatalf("unexpected clip name %q", base)
	}
	// Padded boundaries: cue 1.0-3.0 widened by 1s, clamped at zero.
	if first.StartSeconds != 0 || first.EndSeconds != 4 {
		t.Fatalf("unexpected padded window: %+v", first)
	}

	second := outcome.Matches[1]
	if second.Highlighted != "Well **HELLO** again\nand **hello** once more" {
		t.Fatalf("all occurrences must be wrapped: %q", second.Highlighted)
	}
	if filepath.Dir(second.ClipPath) != dir {
		t.Fatalf("clip must land next to the video: %q", second.ClipPath)
	}
}

func TestSearchAndClipOutputNaming(t *testing.T) {
	dir := t.TempDir()
	video := writeVideo(t, dir, "movie.mp4")
	writeTranscript(t, dir, "movie.srt", searchSRT)

	var argv [][]string
	cutter := NewCutter("ffmpeg", 1.0, logging.NewNop()).WithRunner(fakeFFmpeg(t, &argv))

	// Default run: timestamped names, never the indexed form.
	outcome, err := cutter.SearchAndClip(context.Background(), SearchRequest{
		VideoPath: video,
		Keyword:   "hello",
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	for _, m := range outcome.Matches {
		base := filepath.Base(m.ClipPath)
		if base == "hello_clip_1.mp4" || base == "hello_clip_2.mp4" {
			t.Fatalf("indexed name %q used without an output directory", base)
		}
	}

	// Explicit output directory switches to stable indexed names.
	outDir := filepath.Join(dir, "out")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	outcome, err = cutter.SearchAndClip(context.Background(), SearchRequest{
		VideoPath: video,
		Keyword:   "hello",
		OutputDir: outDir,
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	want := []string{
		filepath.Join(outDir, "hello_clip_1.mp4"),
		filepath.Join(outDir, "hello_clip_2.mp4"),
	}
	for i, m := range outcome.Matches {
		if m.ClipPath != want[i] {
			t.Fatalf("match %d: got %q, want %q", i, m.ClipPath, want[i])
		}
	}
}

func TestSearchAndClipZeroMatches(t *testing.T) {
	dir := t.TempDir()
	video := writeVideo(t, dir, "movie.mp4")
	writeTranscript(t, dir, "movie.srt", searchSRT)

	cutter := NewCutter("ffmpeg", 1.0, logging.NewNop()).WithRunner(
		func(ctx context.Context, tool string, args ...string) (toolrun.Result, error) {
			t.Fatal("ffmpeg must not run without matches")
			return toolrun.Result{}, nil
		})

	outcome, err := cutter.SearchAndClip(context.Background(), SearchRequest{
		VideoPath: video,
		Keyword:   "absent",
	})
	if err != nil {
		t.Fatalf("zero matches is not an error: %v", err)
	}
	if len(outcome.Matches) != 0 || outcome.ClipsCreated != 0 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
}

func TestSearchAndClipNoTranscript(t *testing.T) {
	dir := t.TempDir()
	video := writeVideo(t, dir, "movie.mp4")

	cutter := NewCutter("ffmpeg", 1.0, logging.NewNop())
	_, err := cutter.SearchAndClip(context.Background(), SearchRequest{
		VideoPath: video,
		Keyword:   "hello",
	})
	if !errors.Is(err, faults.ErrNoTranscript) {
		t.Fatalf("expected no-transcript, got %v", err)
	}
}

func TestSearchAndClipExplicitSubtitlePath(t *testing.T) {
	dir := t.TempDir()
	video := writeVideo(t, dir, "movie.mp4")
	transcript := writeTranscript(t, dir, "elsewhere.srt", searchSRT)

	var argv [][]string
	cutter := NewCutter("ffmpeg", 1.0, logging.NewNop()).WithRunner(fakeFFmpeg(t, &argv))

	outcome, err := cutter.SearchAndClip(context.Background(), SearchRequest{
		VideoPath:    video,
		Keyword:      "friend",
		SubtitlePath: transcript,
		OutputDir:    dir,
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if outcome.SubtitlePath != transcript {
		t.Fatalf("explicit path not used: %q", outcome.SubtitlePath)
	}
	if len(outcome.Matches) != 1 {
		t.Fatalf("expected one match, got %d", len(outcome.Matches))
	}
}

func TestSearchAndClipIsolatesCutFailures(t *testing.T) {
	dir := t.TempDir()
	video := writeVideo(t, dir, "movie.mp4")
	writeTranscript(t, dir, "movie.srt", searchSRT)

	calls := 0
	cutter := NewCutter("ffmpeg", 1.0, logging.NewNop()).WithRunner(
		func(ctx context.Context, tool string, args ...string) (toolrun.Result, error) {
			calls++
			if calls == 1 {
				return toolrun.Result{}, &faults.ToolFailure{Tool: tool, ExitCode: 1, Stderr: "encoder blew up"}
			}
			out := args[len(args)-2]
			if err := os.WriteFile(out, []byte("clip"), 0o644); err != nil {
				t.Fatalf("write clip: %v", err)
			}
			return toolrun.Result{}, nil
		})

	outcome, err := cutter.SearchAndClip(context.Background(), SearchRequest{
		VideoPath: video,
		Keyword:   "hello",
	})
	if err != nil {
		t.Fatalf("per-match failures must not abort the run: %v", err)
	}
	if len(outcome.Matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(outcome.Matches))
	}
	if outcome.Matches[0].Error == "" || outcome.Matches[0].ClipPath != "" {
		t.Fatalf("first match should carry the cut error: %+v", outcome.Matches[0])
	}
	if outcome.Matches[1].Error != "" || outcome.Matches[1].ClipPath == "" {
		t.Fatalf("second match should succeed: %+v", outcome.Matches[1])
	}
	if outcome.ClipsCreated != 1 {
		t.Fatalf("expected one created clip, got %d", outcome.ClipsCreated)
	}
}

func TestHighlighterQuotesRegexMeta(t *testing.T) {
	highlight := newHighlighter("c++", false)
	if got := highlight("learning C++ daily"); got != "learning **C++** daily" {
		t.Fatalf("unexpected highlight %q", got)
	}
}

func TestSearchAndClipCaseSensitive(t *testing.T) {
	dir := t.TempDir()
	video := writeVideo(t, dir, "movie.mp4")
	writeTranscript(t, dir, "movie.srt", searchSRT)

	var argv [][]string
	cutter := NewCutter("ffmpeg", 1.0, logging.NewNop()).WithRunner(fakeFFmpeg(t, &argv))

	outcome, err := cutter.SearchAndClip(context.Background(), SearchRequest{
		VideoPath:     video,
		Keyword:       "HELLO",
		CaseSensitive: true,
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(outcome.Matches) != 1 {
		t.Fatalf("case-sensitive search must match only the exact casing, got %d", len(outcome.Matches))
	}
	if outcome.Matches[0].Highlighted != "Well **HELLO** again\nand hello once more" {
		t.Fatalf("lowercase occurrence must stay unwrapped: %q", outcome.Matches[0].Highlighted)
	}
}

func TestSearchAndClipPaddingOverride(t *testing.T) {
	dir := t.TempDir()
	video := writeVideo(t, dir, "movie.mp4")
	writeTranscript(t, dir, "movie.srt", searchSRT)

	var argv [][]string
	cutter := NewCutter("ffmpeg", 1.0, logging.NewNop()).WithRunner(fakeFFmpeg(t, &argv))

	padding := 0.0
	outcome, err := cutter.SearchAndClip(context.Background(), SearchRequest{
		VideoPath:      video,
		Keyword:        "friend",
		PaddingSeconds: &padding,
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(outcome.Matches) != 1 {
		t.Fatalf("expected one match, got %d", len(outcome.Matches))
	}
	// Cue 1.0-3.0 with zero padding stays unwidened.
	if outcome.Matches[0].StartSeconds != 1 || outcome.Matches[0].EndSeconds != 3 {
		t.Fatalf("padding override ignored: %+v", outcome.Matches[0])
	}
}
