package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"subclip/internal/faults"
)

const preparationColumns = `id, video_id, video_path, subtitle_source, subtitle_path,
	subtitle_language, processing_status, error_message, asr_model, created_at, updated_at`

// SavePreparation replaces the current preparation record for a video and
// mirrors the outcome onto the video's subtitle_ready flag, all in one
// transaction.
func (s *Store) SavePreparation(ctx context.Context, record *PreparationRecord) error {
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return faults.Wrap(faults.ErrPersistence, "begin save preparation", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM subtitle_processing WHERE video_id = ?", record.VideoID); err != nil {
		return faults.Wrap(faults.ErrPersistence, "replace preparation record", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO subtitle_processing (video_id, video_path, subtitle_source,
			subtitle_path, subtitle_language, processing_status, error_message,
			asr_model, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.VideoID, record.VideoPath, record.SubtitleSource, record.SubtitlePath,
		record.SubtitleLanguage, string(record.Status), record.ErrorMessage,
		record.ASRModel, formatTime(record.CreatedAt), formatTime(record.UpdatedAt))
	if err != nil {
		return faults.Wrap(faults.ErrPersistence, "insert preparation record", err)
	}
	record.ID, err = res.LastInsertId()
	if err != nil {
		return faults.Wrap(faults.ErrPersistence, "insert preparation record", err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE video_metadata SET subtitle_ready = ? WHERE id = ?",
		record.Status == StatusSuccess, record.VideoID); err != nil {
		return faults.Wrap(faults.ErrPersistence, "mirror subtitle_ready", err)
	}

	if err := tx.Commit(); err != nil {
		return faults.Wrap(faults.ErrPersistence, "commit preparation record", err)
	}
	return nil
}

// GetPreparation returns the current preparation record for a video, or
// faults.ErrNotFound when the video has never been prepared.
func (s *Store) GetPreparation(ctx context.Context, videoID string) (*PreparationRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+preparationColumns+` FROM subtitle_processing
		 WHERE video_id = ? ORDER BY id DESC LIMIT 1`, videoID)
	record, err := scanPreparation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, faults.Wrap(faults.ErrNotFound,
			fmt.Sprintf("preparation record for video %s", videoID), nil)
	}
	if err != nil {
		return nil, faults.Wrap(faults.ErrPersistence, "get preparation record", err)
	}
	return record, nil
}

// ResetStaleProcessing marks records stuck in the processing state as
// failed. The daemon calls this on startup, since an in-flight run cannot
// survive a restart.
func (s *Store) ResetStaleProcessing(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE subtitle_processing
		SET processing_status = ?, error_message = ?, updated_at = ?
		WHERE processing_status = ?`,
		string(StatusFailed), "interrupted by daemon restart",
		formatTime(time.Now()), string(StatusProcessing))
	if err != nil {
		return 0, faults.Wrap(faults.ErrPersistence, "reset stale records", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, faults.Wrap(faults.ErrPersistence, "reset stale records", err)
	}
	return affected, nil
}

// Stats returns library-wide counters for the stats endpoint.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	var latest sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(1), COALESCE(SUM(file_size), 0),
		       COALESCE(SUM(subtitle_ready), 0), MAX(upload_time)
		FROM video_metadata`).Scan(
		&stats.TotalVideos, &stats.TotalBytes, &stats.SubtitlesReady, &latest)
	if err != nil {
		return nil, faults.Wrap(faults.ErrPersistence, "video stats", err)
	}
	if latest.Valid {
		stats.LatestUploadAt = parseTime(latest.String)
	}
	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM subtitle_processing WHERE processing_status = ?",
		string(StatusSuccess)).Scan(&stats.PreparedRecords)
	if err != nil {
		return nil, faults.Wrap(faults.ErrPersistence, "preparation stats", err)
	}
	return stats, nil
}

func scanPreparation(row rowScanner) (*PreparationRecord, error) {
	var (
		record    PreparationRecord
		status    string
		createdAt string
		updatedAt string
	)
	err := row.Scan(&record.ID, &record.VideoID, &record.VideoPath,
		&record.SubtitleSource, &record.SubtitlePath, &record.SubtitleLanguage,
		&status, &record.ErrorMessage, &record.ASRModel, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	record.Status = ProcessingStatus(status)
	record.CreatedAt = parseTime(createdAt)
	record.UpdatedAt = parseTime(updatedAt)
	return &record, nil
}
