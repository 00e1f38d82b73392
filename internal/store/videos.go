package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"subclip/internal/faults"
)

const videoColumns = `id, original_filename, stored_filename, file_path, file_size,
	content_type, upload_time, title, description, tags, likes, duration, subtitle_ready`

// InsertVideo persists a freshly uploaded video row.
func (s *Store) InsertVideo(ctx context.Context, video *Video) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO video_metadata (id, original_filename, stored_filename, file_path,
			file_size, content_type, upload_time, title, description, tags, likes,
			duration, subtitle_ready)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		video.ID, video.OriginalFilename, video.StoredFilename, video.FilePath,
		video.FileSize, video.ContentType, formatTime(video.UploadTime), video.Title,
		video.Description, joinTags(video.Tags), video.Likes, video.Duration,
		video.SubtitleReady)
	if err != nil {
		return faults.Wrap(faults.ErrPersistence, "insert video", err)
	}
	return nil
}

// GetVideo returns the video with the given id, or faults.ErrNotFound.
func (s *Store) GetVideo(ctx context.Context, id string) (*Video, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+videoColumns+" FROM video_metadata WHERE id = ?", id)
	video, err := scanVideo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, faults.Wrap(faults.ErrNotFound, fmt.Sprintf("video %s", id), nil)
	}
	if err != nil {
		return nil, faults.Wrap(faults.ErrPersistence, "get video", err)
	}
	return video, nil
}

// ListVideos returns all videos, most recently uploaded first.
func (s *Store) ListVideos(ctx context.Context) ([]*Video, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+videoColumns+" FROM video_metadata ORDER BY upload_time DESC, id")
	if err != nil {
		return nil, faults.Wrap(faults.ErrPersistence, "list videos", err)
	}
	defer rows.Close()
	return collectVideos(rows)
}

// SearchVideos returns videos whose title, description, original filename,
// or tags contain the query, case-insensitively. An empty query lists
// everything.
func (s *Store) SearchVideos(ctx context.Context, query string) ([]*Video, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.ListVideos(ctx)
	}
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+videoColumns+` FROM video_metadata
		WHERE lower(title) LIKE ? ESCAPE '\'
		   OR lower(description) LIKE ? ESCAPE '\'
		   OR lower(original_filename) LIKE ? ESCAPE '\'
		   OR lower(tags) LIKE ? ESCAPE '\'
		ORDER BY upload_time DESC, id`,
		pattern, pattern, pattern, pattern)
	if err != nil {
		return nil, faults.Wrap(faults.ErrPersistence, "search videos", err)
	}
	defer rows.Close()
	return collectVideos(rows)
}

// DeleteVideo removes the video row and any preparation records for it.
// Deleting an unknown id returns faults.ErrNotFound.
func (s *Store) DeleteVideo(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return faults.Wrap(faults.ErrPersistence, "begin delete", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM subtitle_processing WHERE video_id = ?", id); err != nil {
		return faults.Wrap(faults.ErrPersistence, "delete preparation records", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM video_metadata WHERE id = ?", id)
	if err != nil {
		return faults.Wrap(faults.ErrPersistence, "delete video", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return faults.Wrap(faults.ErrPersistence, "delete video", err)
	}
	if affected == 0 {
		return faults.Wrap(faults.ErrNotFound, fmt.Sprintf("video %s", id), nil)
	}
	if err := tx.Commit(); err != nil {
		return faults.Wrap(faults.ErrPersistence, "commit delete", err)
	}
	return nil
}

// SetSubtitleReady flips the subtitle_ready flag on a video row.
func (s *Store) SetSubtitleReady(ctx context.Context, id string, ready bool) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE video_metadata SET subtitle_ready = ? WHERE id = ?", ready, id)
	if err != nil {
		return faults.Wrap(faults.ErrPersistence, "set subtitle_ready", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return faults.Wrap(faults.ErrPersistence, "set subtitle_ready", err)
	}
	if affected == 0 {
		return faults.Wrap(faults.ErrNotFound, fmt.Sprintf("video %s", id), nil)
	}
	return nil
}

// SetDuration records the probed duration string on a video row.
func (s *Store) SetDuration(ctx context.Context, id, duration string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE video_metadata SET duration = ? WHERE id = ?", duration, id)
	if err != nil {
		return faults.Wrap(faults.ErrPersistence, "set duration", err)
	}
	return nil
}

// VideosNeedingPreparation returns videos with no successful preparation
// record, oldest upload first. Batch preparation walks this list.
func (s *Store) VideosNeedingPreparation(ctx context.Context) ([]*Video, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+videoColumns+` FROM video_metadata v
		WHERE NOT EXISTS (
			SELECT 1 FROM subtitle_processing p
			WHERE p.video_id = v.id AND p.processing_status = 'success'
		)
		ORDER BY upload_time, id`)
	if err != nil {
		return nil, faults.Wrap(faults.ErrPersistence, "videos needing preparation", err)
	}
	defer rows.Close()
	return collectVideos(rows)
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVideo(row rowScanner) (*Video, error) {
	var (
		video      Video
		uploadTime string
		tags       string
	)
	err := row.Scan(&video.ID, &video.OriginalFilename, &video.StoredFilename,
		&video.FilePath, &video.FileSize, &video.ContentType, &uploadTime,
		&video.Title, &video.Description, &tags, &video.Likes, &video.Duration,
		&video.SubtitleReady)
	if err != nil {
		return nil, err
	}
	video.UploadTime = parseTime(uploadTime)
	video.Tags = splitTags(tags)
	return &video, nil
}

func collectVideos(rows *sql.Rows) ([]*Video, error) {
	videos := []*Video{}
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, faults.Wrap(faults.ErrPersistence, "scan video", err)
		}
		videos = append(videos, video)
	}
	if err := rows.Err(); err != nil {
		return nil, faults.Wrap(faults.ErrPersistence, "iterate videos", err)
	}
	return videos, nil
}
