package store

import (
	"strings"
	"time"
)

// ProcessingStatus tracks the lifecycle of a subtitle preparation attempt.
type ProcessingStatus string

const (
	StatusProcessing ProcessingStatus = "processing"
	StatusSuccess    ProcessingStatus = "success"
	StatusFailed     ProcessingStatus = "failed"
)

// Video is one uploaded video file and its user-facing metadata.
type Video struct {
	ID               string    `json:"id"`
	OriginalFilename string    `json:"original_filename"`
	StoredFilename   string    `json:"stored_filename"`
	FilePath         string    `json:"file_path"`
	FileSize         int64     `json:"file_size"`
	ContentType      string    `json:"content_type"`
	UploadTime       time.Time `json:"upload_time"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Tags             []string  `json:"tags"`
	Likes            int       `json:"likes"`
	Duration         string    `json:"duration"`
	SubtitleReady    bool      `json:"subtitle_ready"`
}

// PreparationRecord is the outcome of one subtitle preparation run for a
// video. At most one record per video is current; a fresh run replaces it.
type PreparationRecord struct {
	ID               int64            `json:"id"`
	VideoID          string           `json:"video_id"`
	VideoPath        string           `json:"video_path"`
	SubtitleSource   string           `json:"subtitle_source"`
	SubtitlePath     string           `json:"subtitle_path"`
	SubtitleLanguage string           `json:"subtitle_language"`
	Status           ProcessingStatus `json:"processing_status"`
	ErrorMessage     string           `json:"error_message,omitempty"`
	ASRModel         string           `json:"asr_model,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// Stats summarizes the library for the db stats endpoint.
type Stats struct {
	TotalVideos     int       `json:"total_videos"`
	TotalBytes      int64     `json:"total_bytes"`
	SubtitlesReady  int       `json:"subtitles_ready"`
	LatestUploadAt  time.Time `json:"latest_upload_at"`
	PreparedRecords int       `json:"prepared_records"`
}

func joinTags(tags []string) string {
	cleaned := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			cleaned = append(cleaned, tag)
		}
	}
	return strings.Join(cleaned, ",")
}

func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			tags = append(tags, part)
		}
	}
	return tags
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
