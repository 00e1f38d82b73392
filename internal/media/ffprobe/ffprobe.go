package ffprobe

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"subclip/internal/faults"
	"subclip/internal/media/toolrun"
)

// SubtitleStream describes one subtitle track multiplexed in a container.
type SubtitleStream struct {
	// Index is the position among subtitle streams, as used by -map 0:s:N.
	Index       int
	CodecName   string
	Language    string
	Title       string
	Disposition map[string]int
	Duration    string
}

// Report summarizes the subtitle-relevant portion of a probe.
type Report struct {
	HasSubtitles    bool
	SubtitleStreams []SubtitleStream
	TotalStreams    int
	DurationSeconds float64
}

// rawProbe mirrors the ffprobe JSON document.
type rawProbe struct {
	Streams []struct {
		Index       int               `json:"index"`
		CodecName   string            `json:"codec_name"`
		CodecType   string            `json:"codec_type"`
		Duration    string            `json:"duration"`
		Disposition map[string]int    `json:"disposition"`
		Tags        map[string]string `json:"tags"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Prober invokes ffprobe against media files.
type Prober struct {
	binary string
	run    toolrun.Runner
}

// New constructs a Prober for the given binary name.
func New(binary string) *Prober {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	return &Prober{binary: binary, run: toolrun.Run}
}

// WithRunner sets a custom command runner (for testing).
func (p *Prober) WithRunner(run toolrun.Runner) *Prober {
	p.run = run
	return p
}

// Installed reports whether the probe binary responds to -version.
func (p *Prober) Installed(ctx context.Context) bool {
	return toolrun.Probe(ctx, p.binary, "-version")
}

// Inspect probes the media file and returns its subtitle stream report.
// On error the returned report is usable and has HasSubtitles=false.
func (p *Prober) Inspect(ctx context.Context, path string) (Report, error) {
	if strings.TrimSpace(path) == "" {
		return Report{}, faults.New(faults.ErrValidation, "probe: empty path")
	}

	result, err := p.run(ctx, p.binary,
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		"-show_format",
		path,
	)
	if err != nil {
		return Report{}, err
	}

	var raw rawProbe
	if err := json.Unmarshal([]byte(result.Stdout), &raw); err != nil {
		return Report{}, faults.Wrap(faults.ErrMalformedOutput, "parse probe report", err)
	}

	report := Report{
		TotalStreams:    len(raw.Streams),
		DurationSeconds: parseSeconds(raw.Format.Duration),
	}
	subtitleOrdinal := 0
	for _, stream := range raw.Streams {
		if !strings.EqualFold(stream.CodecType, "subtitle") {
			continue
		}
		language := stream.Tags["language"]
		if language == "" {
			language = "unknown"
		}
		duration := stream.Duration
		if duration == "" {
			duration = "unknown"
		}
		report.SubtitleStreams = append(report.SubtitleStreams, SubtitleStream{
			Index:       subtitleOrdinal,
			CodecName:   stream.CodecName,
			Language:    language,
			Title:       stream.Tags["title"],
			Disposition: stream.Disposition,
			Duration:    duration,
		})
		subtitleOrdinal++
	}
	report.HasSubtitles = len(report.SubtitleStreams) > 0
	return report, nil
}

func parseSeconds(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || parsed < 0 {
		return 0
	}
	return parsed
}
