package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// videoView mirrors the daemon's video JSON.
type videoView struct {
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
	Duration         string    `json:"duration"`
	SubtitleReady    bool      `json:"subtitle_ready"`
}

type videoListResponse struct {
	Total  int         `json:"total"`
	Videos []videoView `json:"videos"`
}

type searchResponse struct {
	Query   string      `json:"query"`
	Total   int         `json:"total"`
	Results []videoView `json:"results"`
}

func videoTable(videos []videoView) string {
	headers := []string{"ID", "Title", "Size", "Uploaded", "Duration", "Subtitles"}
	rows := make([][]string, 0, len(videos))
	for _, video := range videos {
		rows = append(rows, []string{
			video.ID,
			video.Title,
			humanize.IBytes(uint64(video.FileSize)),
			video.UploadTime.Local().Format("2006-01-02 15:04"),
			video.Duration,
			yesNo(video.SubtitleReady),
		})
	}
	return renderTable(headers, rows, 2, 4)
}

func videoDetails(video videoView) string {
	rows := [][]string{
		{"ID", video.ID},
		{"Title", video.Title},
		{"Description", video.Description},
		{"Original filename", video.OriginalFilename},
		{"Stored filename", video.StoredFilename},
		{"Path", video.FilePath},
		{"Size", humanize.IBytes(uint64(video.FileSize))},
		{"Content type", video.ContentType},
		{"Uploaded", video.UploadTime.Local().Format(time.RFC1123)},
		{"Duration", video.Duration},
		{"Tags", fmt.Sprintf("%v", video.Tags)},
		{"Subtitle ready", yesNo(video.SubtitleReady)},
	}
	return renderTable([]string{"Field", "Value"}, rows)
}
