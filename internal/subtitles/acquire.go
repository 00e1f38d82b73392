package subtitles

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"subclip/internal/faults"
	"subclip/internal/logging"
	"subclip/internal/media/ffprobe"
	"subclip/internal/media/toolrun"
	"subclip/internal/services/whisper"
)

// Source names where a subtitle artifact came from.
const (
	SourceEmbedded = "embedded"
	SourceExternal = "external"
	SourceASR      = "asr"
	SourceUnknown  = "unknown"
)

// Artifact is the product of a successful acquisition.
type Artifact struct {
	SubtitlePath string
	Source       string
	Language     string
	// ASRModel is set only when Source is SourceASR.
	ASRModel string
}

// AcquireRequest carries per-video acquisition parameters.
type AcquireRequest struct {
	VideoPath         string
	PreferredLanguage string
	ASRModel          string
}

// AcquirerOptions configures an Acquirer.
type AcquirerOptions struct {
	FFmpegBinary   string
	SubtitleDir    string
	ProbeTimeout   time.Duration
	ExtractTimeout time.Duration
}

// Acquirer produces exactly one subtitle artifact per video by trying, in
// order: extracting an embedded track, adopting a sidecar file, and
// synthesising via ASR. Each stage recovers into the next; only total
// failure is an error.
type Acquirer struct {
	prober *ffprobe.Prober
	asr    *whisper.Service
	opts   AcquirerOptions
	run    toolrun.Runner
	logger *slog.Logger
}

// NewAcquirer wires an Acquirer from its collaborators.
func NewAcquirer(prober *ffprobe.Prober, asr *whisper.Service, opts AcquirerOptions, logger *slog.Logger) *Acquirer {
	if opts.FFmpegBinary == "" {
		opts.FFmpegBinary = "ffmpeg"
	}
	return &Acquirer{
		prober: prober,
		asr:    asr,
		opts:   opts,
		run:    toolrun.Run,
		logger: logging.WithComponent(logger, "subtitles"),
	}
}

// WithRunner sets a custom command runner for the extraction stage (for testing).
func (a *Acquirer) WithRunner(run toolrun.Runner) *Acquirer {
	a.run = run
	return a
}

// Acquire runs the fall-through strategy and returns the first artifact
// produced. The returned error names the last stage attempted.
func (a *Acquirer) Acquire(ctx context.Context, req AcquireRequest) (Artifact, error) {
	if artifact, ok := a.tryEmbedded(ctx, req); ok {
		return artifact, nil
	}
	if artifact, ok := a.trySidecar(req.VideoPath); ok {
		return artifact, nil
	}
	return a.tryASR(ctx, req)
}

func (a *Acquirer) tryEmbedded(ctx context.Context, req AcquireRequest) (Artifact, bool) {
	probeCtx := ctx
	if a.opts.ProbeTimeout > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, a.opts.ProbeTimeout)
		defer cancel()
	}

	report, err := a.prober.Inspect(probeCtx, req.VideoPath)
	if err != nil {
		a.logger.Warn("probe failed, falling through", slog.String("error", err.Error()))
		return Artifact{}, false
	}
	if !report.HasSubtitles {
		return Artifact{}, false
	}

	stream := selectStream(report.SubtitleStreams, req.PreferredLanguage)
	a.logger.Info("embedded subtitle stream found",
		slog.Int("streams", len(report.SubtitleStreams)),
		slog.Int("selected", stream.Index),
		slog.String("language", stream.Language))

	outputPath := embeddedArtifactPath(req.VideoPath)
	if err := a.extractStream(ctx, req.VideoPath, stream.Index, outputPath); err != nil {
		a.logger.Warn("embedded extraction failed, falling through", slog.String("error", err.Error()))
		return Artifact{}, false
	}

	return Artifact{
		SubtitlePath: outputPath,
		Source:       SourceEmbedded,
		Language:     stream.Language,
	}, true
}

func (a *Acquirer) trySidecar(videoPath string) (Artifact, bool) {
	sidecars := ScanSidecars(videoPath)
	if len(sidecars) == 0 {
		return Artifact{}, false
	}

	chosen := FirstSRT(sidecars)
	if chosen == "" {
		chosen = sidecars[0]
	}
	a.logger.Info("using sidecar subtitle", slog.String("path", chosen))

	return Artifact{
		SubtitlePath: chosen,
		Source:       SourceExternal,
		Language:     InferLanguage(chosen),
	}, true
}

func (a *Acquirer) tryASR(ctx context.Context, req AcquireRequest) (Artifact, error) {
	if a.opts.SubtitleDir != "" {
		if err := os.MkdirAll(a.opts.SubtitleDir, 0o755); err != nil {
			return Artifact{}, fmt.Errorf("asr stage: ensure subtitle dir: %w", err)
		}
	}

	result, err := a.asr.Transcribe(ctx, req.VideoPath, a.opts.SubtitleDir, req.ASRModel, req.PreferredLanguage)
	if err != nil {
		return Artifact{}, fmt.Errorf("asr stage: %w", err)
	}

	language := result.DetectedLanguage
	if language == "" {
		language = "unknown"
	}
	a.logger.Info("asr transcription complete",
		slog.String("path", result.SubtitlePath),
		slog.String("model", result.Model),
		slog.String("language", language))

	return Artifact{
		SubtitlePath: result.SubtitlePath,
		Source:       SourceASR,
		Language:     language,
		ASRModel:     result.Model,
	}, nil
}

// extractStream converts one embedded subtitle stream to SRT next to the
// video, overwriting any previous artifact for the same video.
func (a *Acquirer) extractStream(ctx context.Context, videoPath string, streamIndex int, outputPath string) error {
	args := []string{
		"-y",
		"-i", videoPath,
		"-map", fmt.Sprintf("0:s:%d", streamIndex),
		"-c:s", "srt",
		outputPath,
	}
	if _, err := toolrunWithCap(ctx, a.run, a.opts.ExtractTimeout, a.opts.FFmpegBinary, args...); err != nil {
		return err
	}
	if _, err := os.Stat(outputPath); err != nil {
		return faults.New(faults.ErrMalformedOutput, "extraction produced no subtitle file")
	}
	return nil
}

func toolrunWithCap(ctx context.Context, run toolrun.Runner, timeout time.Duration, tool string, args ...string) (toolrun.Result, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return run(ctx, tool, args...)
}

// selectStream prefers the first stream whose language starts with the
// preferred code; otherwise the first stream wins.
func selectStream(streams []ffprobe.SubtitleStream, preferredLanguage string) ffprobe.SubtitleStream {
	if preferredLanguage != "" {
		prefix := strings.ToLower(preferredLanguage)
		for _, stream := range streams {
			if strings.HasPrefix(strings.ToLower(stream.Language), prefix) {
				return stream
			}
		}
	}
	return streams[0]
}

// embeddedArtifactPath derives {stem}_embedded.srt next to the video.
func embeddedArtifactPath(videoPath string) string {
	dir := filepath.Dir(videoPath)
	stem := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
	return filepath.Join(dir, stem+"_embedded.srt")
}
