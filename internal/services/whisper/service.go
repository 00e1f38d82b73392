package whisper

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"subclip/internal/faults"
	"subclip/internal/media/toolrun"
)

// DefaultModel is the model tag used when none is requested.
const DefaultModel = "base"

// DefaultCommand is the ASR binary resolved on PATH when unconfigured.
const DefaultCommand = "whisper"

var detectedLanguagePattern = regexp.MustCompile(`Detected language:\s*(\w+)`)

// Service drives the ASR tool.
type Service struct {
	binary string
	run    toolrun.Runner
}

// NewService creates an ASR service for the given binary name.
func NewService(binary string) *Service {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = DefaultCommand
	}
	return &Service{binary: binary, run: toolrun.Run}
}

// WithRunner sets a custom command runner (for testing).
func (s *Service) WithRunner(run toolrun.Runner) *Service {
	s.run = run
	return s
}

// Installed reports whether the ASR binary responds to --help.
func (s *Service) Installed(ctx context.Context) bool {
	return toolrun.Probe(ctx, s.binary, "--help")
}

// Result describes a completed transcription.
type Result struct {
	SubtitlePath     string
	DetectedLanguage string
	Model            string
}

// Transcribe runs the ASR tool against the video and returns the path of
// the generated SRT. The output file is {stem}.srt inside outputDir.
// language is an optional hint; empty means auto-detect.
func (s *Service) Transcribe(ctx context.Context, videoPath, outputDir, model, language string) (Result, error) {
	var result Result

	if videoPath == "" {
		return result, faults.New(faults.ErrValidation, "transcribe: video path required")
	}
	if outputDir == "" {
		outputDir = filepath.Dir(videoPath)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return result, fmt.Errorf("transcribe: ensure output dir: %w", err)
	}
	if model == "" {
		model = DefaultModel
	}

	args := buildArgs(videoPath, outputDir, model, language)
	run, err := s.run(ctx, s.binary, args...)
	if err != nil {
		return result, fmt.Errorf("asr: %w", err)
	}

	stem := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
	subtitlePath := filepath.Join(outputDir, stem+".srt")
	if _, err := os.Stat(subtitlePath); err != nil {
		return result, faults.New(faults.ErrMalformedOutput, "asr: subtitle file was not produced")
	}

	result.SubtitlePath = subtitlePath
	result.Model = model
	result.DetectedLanguage = DetectLanguage(run.Stderr)
	if result.DetectedLanguage == "" {
		result.DetectedLanguage = language
	}
	return result, nil
}

// buildArgs constructs the ASR argument vector. Verbose output and
// half-precision are disabled for predictable stderr and portability.
func buildArgs(videoPath, outputDir, model, language string) []string {
	args := []string{
		videoPath,
		"--output_format", "srt",
		"--output_dir", outputDir,
	}
	if language != "" {
		args = append(args, "--language", language)
	}
	args = append(args,
		"--model", model,
		"--verbose", "False",
		"--fp16", "False",
	)
	return args
}

// DetectLanguage extracts the recognized language from ASR stderr output.
func DetectLanguage(stderr string) string {
	match := detectedLanguagePattern.FindStringSubmatch(stderr)
	if match == nil {
		return ""
	}
	return match[1]
}
