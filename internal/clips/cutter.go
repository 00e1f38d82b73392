package clips

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"subclip/internal/faults"
	"subclip/internal/logging"
	"subclip/internal/media/toolrun"
	"subclip/internal/textutil"
)

// DefaultPaddingSeconds widens each clip on both sides so speech is not
// cut mid-word.
const DefaultPaddingSeconds = 1.0

// CutRequest describes one segment to cut.
type CutRequest struct {
	VideoPath    string
	StartSeconds float64
	EndSeconds   float64
	// OutputPath is optional; when empty a timestamped name is derived
	// next to the video.
	OutputPath string
	// PaddingSeconds overrides the cutter's padding when set.
	PaddingSeconds *float64
	Keyword        string
	SubtitleText   string
}

// Result describes a produced clip. Start and End are the padded
// boundaries actually cut.
type Result struct {
	OutputPath   string  `json:"output_path"`
	Start        float64 `json:"start_seconds"`
	End          float64 `json:"end_seconds"`
	Duration     float64 `json:"duration_seconds"`
	SubtitleText string  `json:"subtitle_text,omitempty"`
}

// Cutter invokes ffmpeg to produce clips.
type Cutter struct {
	ffmpeg  string
	padding float64
	run     toolrun.Runner
	logger  *slog.Logger
}

func NewCutter(ffmpegBinary string, paddingSeconds float64, logger *slog.Logger) *Cutter {
	if ffmpegBinary == "" {
		ffmpegBinary = "ffmpeg"
	}
	if paddingSeconds < 0 {
		paddingSeconds = DefaultPaddingSeconds
	}
	return &Cutter{
		ffmpeg:  ffmpegBinary,
		padding: paddingSeconds,
		run:     toolrun.Run,
		logger:  logging.WithComponent(logger, "clips"),
	}
}

// WithRunner sets a custom command runner (for testing).
func (c *Cutter) WithRunner(run toolrun.Runner) *Cutter {
	c.run = run
	return c
}

// Cut produces one clip. The requested window is widened by the padding,
// with the start clamped at zero. Video is re-encoded so the clip starts
// on a clean frame; audio is copied as-is.
func (c *Cutter) Cut(ctx context.Context, req CutRequest) (Result, error) {
	if req.EndSeconds <= req.StartSeconds {
		return Result{}, faults.New(faults.ErrValidation,
			fmt.Sprintf("end %.3f must be after start %.3f", req.EndSeconds, req.StartSeconds))
	}
	if _, err := os.Stat(req.VideoPath); err != nil {
		return Result{}, faults.Wrap(faults.ErrFileMissing, req.VideoPath, nil)
	}

	padding := c.padding
	if req.PaddingSeconds != nil && *req.PaddingSeconds >= 0 {
		padding = *req.PaddingSeconds
	}
	start := req.StartSeconds - padding
	if start < 0 {
		start = 0
	}
	end := req.EndSeconds + padding

	outputPath := req.OutputPath
	if outputPath == "" {
		outputPath = c.defaultOutputPath(req.VideoPath, req.Keyword)
	}

	args := []string{
		"-i", req.VideoPath,
		"-ss", formatSeconds(start),
		"-to", formatSeconds(end),
		"-c:v", "libx264",
		"-c:a", "copy",
		"-avoid_negative_ts", "make_zero",
		outputPath,
		"-y",
	}
	c.logger.Info("cutting clip",
		slog.String("video", req.VideoPath),
		slog.String("output", outputPath),
		slog.String("start", formatSeconds(start)),
		slog.String("end", formatSeconds(end)))

	if _, err := c.run(ctx, c.ffmpeg, args...); err != nil {
		return Result{}, err
	}
	if _, err := os.Stat(outputPath); err != nil {
		return Result{}, faults.New(faults.ErrMalformedOutput, "ffmpeg produced no clip file")
	}

	return Result{
		OutputPath:   outputPath,
		Start:        start,
		End:          end,
		Duration:     end - start,
		SubtitleText: req.SubtitleText,
	}, nil
}

func (c *Cutter) defaultOutputPath(videoPath, keyword string) string {
	stamp := time.Now().UTC().Format("20060102_150405")
	name := fmt.Sprintf("%s_clip_%s.mp4", textutil.SanitizeName(keyword), stamp)
	return filepath.Join(filepath.Dir(videoPath), name)
}

func formatSeconds(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', 3, 64)
}
