package subtitles

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"

	"subclip/internal/faults"
)

// Cue is one timed text entry in an SRT file.
type Cue struct {
	Index int
	// Start and End are wall-clock stamps, HH:MM:SS,mmm.
	Start string
	End   string
	// Text may span multiple lines.
	Text string
}

// StartSeconds returns the cue start as fractional seconds.
func (c Cue) StartSeconds() (float64, error) {
	return StampSeconds(c.Start)
}

// EndSeconds returns the cue end as fractional seconds.
func (c Cue) EndSeconds() (float64, error) {
	return StampSeconds(c.End)
}

// Document is the result of parsing a subtitle file.
type Document struct {
	Cues []Cue
	// Encoding names the character encoding that decoded the file.
	Encoding string
	// Skipped counts malformed cue blocks that were dropped.
	Skipped int
}

var blockSeparator = regexp.MustCompile(`\n\s*\n`)

// Parse decodes and parses SRT data. Encodings are attempted in order
// UTF-8, GBK, Latin-1; the first that decodes cleanly wins. Malformed cue
// blocks are skipped, never fatal.
func Parse(data []byte) (Document, error) {
	content, encoding, err := decodeText(data)
	if err != nil {
		return Document{}, err
	}

	doc := Document{Encoding: encoding}
	content = strings.ReplaceAll(content, "\r\n", "\n")
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return doc, nil
	}

	for _, block := range blockSeparator.Split(trimmed, -1) {
		cue, ok := parseBlock(block)
		if !ok {
			doc.Skipped++
			continue
		}
		doc.Cues = append(doc.Cues, cue)
	}
	return doc, nil
}

// ParseFile reads and parses the SRT file at path.
func ParseFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Document{}, faults.Wrap(faults.ErrFileMissing, path, nil)
		}
		return Document{}, fmt.Errorf("read subtitle file: %w", err)
	}
	return Parse(data)
}

// Format renders cues back to SRT bytes. Parsing then formatting a
// well-formed file yields identical bytes modulo trailing newline.
func Format(cues []Cue) []byte {
	var builder strings.Builder
	for i, cue := range cues {
		if i > 0 {
			builder.WriteByte('\n')
		}
		fmt.Fprintf(&builder, "%d\n%s --> %s\n%s\n", cue.Index, cue.Start, cue.End, cue.Text)
	}
	return []byte(builder.String())
}

func parseBlock(block string) (Cue, bool) {
	lines := strings.Split(strings.TrimSpace(block), "\n")
	if len(lines) < 3 {
		return Cue{}, false
	}

	index, err := strconv.Atoi(strings.TrimSpace(lines[0]))
	if err != nil {
		return Cue{}, false
	}

	start, end, err := parseTimeLine(lines[1])
	if err != nil {
		return Cue{}, false
	}

	text := strings.Join(lines[2:], "\n")
	if strings.TrimSpace(text) == "" {
		return Cue{}, false
	}

	return Cue{Index: index, Start: start, End: end, Text: text}, true
}

func parseTimeLine(line string) (string, string, error) {
	parts := strings.Split(strings.TrimSpace(line), " --> ")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid time line %q", line)
	}
	start := strings.TrimSpace(parts[0])
	end := strings.TrimSpace(parts[1])
	if _, err := StampSeconds(start); err != nil {
		return "", "", err
	}
	if _, err := StampSeconds(end); err != nil {
		return "", "", err
	}
	return start, end, nil
}

// StampSeconds converts an SRT stamp ("00:01:30,500") to fractional
// seconds. The comma is treated as a decimal point; a period is accepted.
func StampSeconds(stamp string) (float64, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(stamp), ",", ".")
	parts := strings.Split(normalized, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", stamp)
	}
	hours, errH := strconv.Atoi(parts[0])
	minutes, errM := strconv.Atoi(parts[1])
	seconds, errS := strconv.ParseFloat(parts[2], 64)
	if errH != nil || errM != nil || errS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", stamp)
	}
	return float64(hours*3600+minutes*60) + seconds, nil
}

// SecondsStamp renders fractional seconds as an SRT stamp with
// millisecond precision.
func SecondsStamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	millis := int64(seconds*1000 + 0.5)
	h := millis / 3_600_000
	millis -= h * 3_600_000
	m := millis / 60_000
	millis -= m * 60_000
	s := millis / 1000
	ms := millis % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// decodeText attempts UTF-8, then GBK, then Latin-1. Latin-1 accepts any
// byte sequence, so the fall-through cannot fail.
func decodeText(data []byte) (string, string, error) {
	if utf8.Valid(data) {
		return string(data), "utf-8", nil
	}

	if decoded, err := simplifiedchinese.GBK.NewDecoder().Bytes(data); err == nil && !strings.ContainsRune(string(decoded), utf8.RuneError) {
		return string(decoded), "gbk", nil
	}

	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", "", faults.Wrap(faults.ErrDecode, "decode subtitle text", err)
	}
	return string(decoded), "latin-1", nil
}
