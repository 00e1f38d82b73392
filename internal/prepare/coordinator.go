package prepare

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"

	"subclip/internal/faults"
	"subclip/internal/logging"
	"subclip/internal/store"
	"subclip/internal/subtitles"
)

// Acquirer produces a subtitle artifact for a video. Implemented by
// subtitles.Acquirer.
type Acquirer interface {
	Acquire(ctx context.Context, req subtitles.AcquireRequest) (subtitles.Artifact, error)
}

// Request carries the parameters of one preparation run.
type Request struct {
	VideoID           string
	VideoPath         string
	ForceRegenerate   bool
	ASRModel          string
	PreferredLanguage string
}

// Result is the outcome of a preparation run. FromCache reports that an
// earlier successful record satisfied the request without running any
// tools.
type Result struct {
	Record    *store.PreparationRecord
	FromCache bool
}

type flight struct {
	done   chan struct{}
	result Result
	err    error
}

// Coordinator runs subtitle preparation with per-video single-flight
// semantics: concurrent requests for the same video share one run, so the
// expensive ASR stage executes at most once.
type Coordinator struct {
	store    *store.Store
	acquirer Acquirer
	logger   *slog.Logger

	mu       sync.Mutex
	inflight map[string]*flight
}

func NewCoordinator(st *store.Store, acquirer Acquirer, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		store:    st,
		acquirer: acquirer,
		logger:   logging.WithComponent(logger, "prepare"),
		inflight: make(map[string]*flight),
	}
}

// Prepare ensures the video has a subtitle artifact, consulting the cache
// first unless the request forces regeneration. A failed run persists a
// failed record before returning the error.
func (c *Coordinator) Prepare(ctx context.Context, req Request) (Result, error) {
	if !req.ForceRegenerate {
		if result, ok := c.fromCache(ctx, req.VideoID); ok {
			c.logger.Info("preparation served from cache",
				slog.String(logging.FieldVideoID, req.VideoID),
				slog.String("subtitle_path", result.Record.SubtitlePath))
			return result, nil
		}
	}

	c.mu.Lock()
	if f, ok := c.inflight[req.VideoID]; ok {
		c.mu.Unlock()
		select {
		case <-f.done:
			return f.result, f.err
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
	f := &flight{done: make(chan struct{})}
	c.inflight[req.VideoID] = f
	c.mu.Unlock()

	f.result, f.err = c.run(ctx, req)
	close(f.done)

	c.mu.Lock()
	delete(c.inflight, req.VideoID)
	c.mu.Unlock()

	return f.result, f.err
}

// fromCache reports whether a previous successful record still points at
// an existing subtitle file.
func (c *Coordinator) fromCache(ctx context.Context, videoID string) (Result, bool) {
	record, err := c.store.GetPreparation(ctx, videoID)
	if err != nil || record.Status != store.StatusSuccess {
		return Result{}, false
	}
	if _, err := os.Stat(record.SubtitlePath); err != nil {
		return Result{}, false
	}
	return Result{Record: record, FromCache: true}, true
}

func (c *Coordinator) run(ctx context.Context, req Request) (Result, error) {
	if _, err := os.Stat(req.VideoPath); err != nil {
		missing := faults.Wrap(faults.ErrFileMissing, req.VideoPath, nil)
		record := c.persistOutcome(ctx, req, subtitles.Artifact{Source: subtitles.SourceUnknown}, missing)
		return Result{Record: record}, missing
	}

	processing := &store.PreparationRecord{
		VideoID:        req.VideoID,
		VideoPath:      req.VideoPath,
		SubtitleSource: subtitles.SourceUnknown,
		Status:         store.StatusProcessing,
		ASRModel:       req.ASRModel,
	}
	if err := c.store.SavePreparation(ctx, processing); err != nil {
		return Result{}, err
	}

	c.logger.Info("preparation started",
		slog.String(logging.FieldVideoID, req.VideoID),
		slog.Bool("force", req.ForceRegenerate))

	artifact, acquireErr := c.acquirer.Acquire(ctx, subtitles.AcquireRequest{
		VideoPath:         req.VideoPath,
		PreferredLanguage: req.PreferredLanguage,
		ASRModel:          req.ASRModel,
	})
	record := c.persistOutcome(ctx, req, artifact, acquireErr)
	if acquireErr != nil {
		c.logger.Error("preparation failed",
			slog.String(logging.FieldVideoID, req.VideoID),
			slog.String("error", acquireErr.Error()))
		return Result{Record: record}, acquireErr
	}

	c.logger.Info("preparation complete",
		slog.String(logging.FieldVideoID, req.VideoID),
		slog.String("source", artifact.Source),
		slog.String("subtitle_path", artifact.SubtitlePath))
	return Result{Record: record}, nil
}

// persistOutcome writes the final record for the run. Persistence errors
// here are logged, not returned: the caller's error is the acquisition
// outcome.
func (c *Coordinator) persistOutcome(ctx context.Context, req Request, artifact subtitles.Artifact, runErr error) *store.PreparationRecord {
	record := &store.PreparationRecord{
		VideoID:          req.VideoID,
		VideoPath:        req.VideoPath,
		SubtitleSource:   artifact.Source,
		SubtitlePath:     artifact.SubtitlePath,
		SubtitleLanguage: artifact.Language,
		ASRModel:         artifact.ASRModel,
		Status:           store.StatusSuccess,
	}
	if record.SubtitleSource == "" {
		record.SubtitleSource = subtitles.SourceUnknown
	}
	if record.SubtitleLanguage == "" {
		record.SubtitleLanguage = "unknown"
	}
	if runErr != nil {
		record.Status = store.StatusFailed
		record.ErrorMessage = runErr.Error()
		record.ASRModel = req.ASRModel
	}

	// Don't let a context cancellation block recording the outcome.
	saveCtx := ctx
	if ctx.Err() != nil {
		saveCtx = context.WithoutCancel(ctx)
	}
	if err := c.store.SavePreparation(saveCtx, record); err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Error("failed to persist preparation outcome",
			slog.String(logging.FieldVideoID, req.VideoID),
			slog.String("error", err.Error()))
	}
	return record
}
