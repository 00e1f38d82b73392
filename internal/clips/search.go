package clips

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"subclip/internal/faults"
	"subclip/internal/subtitles"
	"subclip/internal/textutil"
)

// Match is one subtitle cue that contained the keyword, with the clip cut
// for it. Failed cuts carry Error and leave ClipPath empty; one bad match
// never aborts the others.
type Match struct {
	Index        int     `json:"index"`
	Start        string  `json:"start"`
	End          string  `json:"end"`
	Text         string  `json:"text"`
	Highlighted  string  `json:"highlighted"`
	ClipPath     string  `json:"clip_path,omitempty"`
	StartSeconds float64 `json:"start_seconds"`
	EndSeconds   float64 `json:"end_seconds"`
	Error        string  `json:"error,omitempty"`
}

// SearchRequest drives one search-and-clip run over a video's transcript.
type SearchRequest struct {
	VideoPath string
	Keyword   string
	// SubtitlePath overrides sidecar discovery when set.
	SubtitlePath string
	// OutputDir defaults to the video's directory.
	OutputDir string
	// CaseSensitive switches the match from the default case-insensitive
	// literal comparison to an exact one.
	CaseSensitive bool
	// PaddingSeconds overrides the cutter's padding when set.
	PaddingSeconds *float64
}

// SearchOutcome reports every match found. Zero matches is a normal
// outcome, not an error.
type SearchOutcome struct {
	Keyword      string  `json:"keyword"`
	SubtitlePath string  `json:"subtitle_path"`
	Matches      []Match `json:"matches"`
	ClipsCreated int     `json:"clips_created"`
}

// SearchAndClip finds every cue containing the keyword and cuts a clip per
// match. The transcript comes from the explicit subtitle path or, failing
// that, the first SRT sidecar next to the video.
func (c *Cutter) SearchAndClip(ctx context.Context, req SearchRequest) (SearchOutcome, error) {
	keyword := strings.TrimSpace(req.Keyword)
	if keyword == "" {
		return SearchOutcome{}, faults.New(faults.ErrValidation, "keyword must not be empty")
	}

	subtitlePath := req.SubtitlePath
	if subtitlePath == "" {
		subtitlePath = subtitles.FirstSRT(subtitles.ScanSidecars(req.VideoPath))
	}
	if subtitlePath == "" {
		return SearchOutcome{}, faults.Wrap(faults.ErrNoTranscript, req.VideoPath, nil)
	}

	doc, err := subtitles.ParseFile(subtitlePath)
	if err != nil {
		return SearchOutcome{}, err
	}

	outcome := SearchOutcome{Keyword: keyword, SubtitlePath: subtitlePath}
	highlighter := newHighlighter(keyword, req.CaseSensitive)
	contains := func(text string) bool {
		if req.CaseSensitive {
			return strings.Contains(text, keyword)
		}
		return strings.Contains(strings.ToLower(text), strings.ToLower(keyword))
	}
	safeKeyword := textutil.SanitizeName(keyword)

	for _, cue := range doc.Cues {
		if !contains(cue.Text) {
			continue
		}
		match := Match{
			Index:       cue.Index,
			Start:       cue.Start,
			End:         cue.End,
			Text:        cue.Text,
			Highlighted: highlighter(cue.Text),
		}

		startSeconds, startErr := cue.StartSeconds()
		endSeconds, endErr := cue.EndSeconds()
		if startErr != nil || endErr != nil {
			match.Error = "unparseable cue timing"
			outcome.Matches = append(outcome.Matches, match)
			continue
		}
		match.StartSeconds = startSeconds
		match.EndSeconds = endSeconds

		// Indexed names only apply inside an explicit output directory;
		// otherwise the cutter picks its timestamped default next to the
		// video.
		var outputPath string
		if req.OutputDir != "" {
			ordinal := len(outcome.Matches) + 1
			outputPath = filepath.Join(req.OutputDir, fmt.Sprintf("%s_clip_%d.mp4", safeKeyword, ordinal))
		}
		result, cutErr := c.Cut(ctx, CutRequest{
			VideoPath:      req.VideoPath,
			StartSeconds:   startSeconds,
			EndSeconds:     endSeconds,
			OutputPath:     outputPath,
			PaddingSeconds: req.PaddingSeconds,
			Keyword:        keyword,
			SubtitleText:   cue.Text,
		})
		if cutErr != nil {
			match.Error = cutErr.Error()
			c.logger.Warn("clip failed for match",
				slog.Int("cue", cue.Index),
				slog.String("error", cutErr.Error()))
		} else {
			match.ClipPath = result.OutputPath
			match.StartSeconds = result.Start
			match.EndSeconds = result.End
			outcome.ClipsCreated++
		}
		outcome.Matches = append(outcome.Matches, match)
	}

	c.logger.Info("search complete",
		slog.String("keyword", keyword),
		slog.Int("matches", len(outcome.Matches)),
		slog.Int("clips", outcome.ClipsCreated))
	return outcome, nil
}

// newHighlighter wraps every occurrence of keyword in **…**, preserving
// the original casing of the matched text.
func newHighlighter(keyword string, caseSensitive bool) func(string) string {
	expr := regexp.QuoteMeta(keyword)
	if !caseSensitive {
		expr = `(?i)` + expr
	}
	pattern := regexp.MustCompile(expr)
	return func(text string) string {
		return pattern.ReplaceAllString(text, "**$0**")
	}
}
