package ffprobe

import (
	"context"
	"errors"
	"testing"

	"subclip/internal/faults"
	"subclip/internal/media/toolrun"
)

const sampleProbeJSON = `{
  "streams": [
    {"index": 0, "codec_name": "h264", "codec_type": "video"},
    {"index": 1, "codec_name": "aac", "codec_type": "audio"},
    {"index": 2, "codec_name": "subrip", "codec_type": "subtitle",
     "duration": "120.5",
     "disposition": {"default": 1, "forced": 0},
     "tags": {"language": "eng", "title": "English"}},
    {"index": 3, "codec_name": "ass", "codec_type": "subtitle",
     "tags": {}}
  ],
  "format": {"duration": "121.04"}
}`

func stubRunner(stdout string, err error) toolrun.Runner {
	return func(ctx context.Context, tool string, args ...string) (toolrun.Result, error) {
		return toolrun.Result{Stdout: stdout}, err
	}
}

func TestInspectFindsSubtitleStreams(t *testing.T) {
	prober := New("ffprobe").WithRunner(stubRunner(sampleProbeJSON, nil))

	report, err := prober.Inspect(context.Background(), "/media/movie.mkv")
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if !report.HasSubtitles {
		t.Fatal("expected subtitles to be detected")
	}
	if report.TotalStreams != 4 {
		t.Fatalf("expected 4 total streams, got %d", report.TotalStreams)
	}
	if len(report.SubtitleStreams) != 2 {
		t.Fatalf("expected 2 subtitle streams, got %d", len(report.SubtitleStreams))
	}

	first := report.SubtitleStreams[0]
	if first.Index != 0 || first.CodecName != "subrip" || first.Language != "eng" {
		t.Fatalf("unexpected first stream %#v", first)
	}
	if first.Duration != "120.5" || first.Disposition["default"] != 1 {
		t.Fatalf("unexpected stream detail %#v", first)
	}

	second := report.SubtitleStreams[1]
	if second.Index != 1 || second.Language != "unknown" || second.Duration != "unknown" {
		t.Fatalf("unexpected second stream %#v", second)
	}

	if report.DurationSeconds != 121.04 {
		t.Fatalf("unexpected container duration %v", report.DurationSeconds)
	}
}

func TestInspectWithoutSubtitles(t *testing.T) {
	prober := New("ffprobe").WithRunner(stubRunner(`{"streams":[{"index":0,"codec_type":"video"}],"format":{}}`, nil))

	report, err := prober.Inspect(context.Background(), "/media/plain.mp4")
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if report.HasSubtitles || len(report.SubtitleStreams) != 0 {
		t.Fatalf("expected no subtitles, got %#v", report)
	}
}

func TestInspectClassifiesErrors(t *testing.T) {
	cases := []struct {
		name   string
		runner toolrun.Runner
		kind   error
	}{
		{"tool missing", stubRunner("", faults.New(faults.ErrToolMissing, "ffprobe")), faults.ErrToolMissing},
		{"tool failed", stubRunner("", &faults.ToolFailure{Tool: "ffprobe", ExitCode: 1}), faults.ErrToolFailed},
		{"malformed output", stubRunner("not json", nil), faults.ErrMalformedOutput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			prober := New("ffprobe").WithRunner(tc.runner)
			report, err := prober.Inspect(context.Background(), "/media/movie.mkv")
			if !errors.Is(err, tc.kind) {
				t.Fatalf("expected %v, got %v", tc.kind, err)
			}
			if report.HasSubtitles {
				t.Fatal("failed probe must report has_subtitles=false")
			}
		})
	}
}

func TestInspectRejectsEmptyPath(t *testing.T) {
	prober := New("")
	if _, err := prober.Inspect(context.Background(), "  "); !errors.Is(err, faults.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
