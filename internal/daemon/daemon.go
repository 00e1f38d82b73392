package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"subclip/internal/clips"
	"subclip/internal/config"
	"subclip/internal/deps"
	"subclip/internal/faults"
	"subclip/internal/fileutil"
	"subclip/internal/jobs"
	"subclip/internal/logging"
	"subclip/internal/media/ffprobe"
	"subclip/internal/prepare"
	"subclip/internal/services/whisper"
	"subclip/internal/store"
	"subclip/internal/subtitles"
)

// videoExtensions lists the upload formats the service accepts.
var videoExtensions = map[string]struct{}{
	".mp4":  {},
	".avi":  {},
	".mov":  {},
	".mkv":  {},
	".webm": {},
	".flv":  {},
	".wmv":  {},
}

// Daemon coordinates the HTTP API, background preparation tasks, and
// single-instance execution.
type Daemon struct {
	cfg         *config.Config
	logger      *slog.Logger
	store       *store.Store
	tracker     *jobs.Tracker
	coordinator *prepare.Coordinator
	cutter      *clips.Cutter
	prober      *ffprobe.Prober

	api      *apiServer
	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	tasks   sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool          `json:"running"`
	PID          int           `json:"pid"`
	DatabasePath string        `json:"database_path"`
	LockFilePath string        `json:"lock_file_path"`
	RunningTasks int           `json:"running_tasks"`
	Dependencies []deps.Status `json:"dependencies"`
}

// New constructs a daemon with initialized collaborators.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || st == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, and logger")
	}

	prober := ffprobe.New(cfg.Tools.FFprobe)
	asr := whisper.NewService(cfg.ASR.Binary)
	acquirer := subtitles.NewAcquirer(prober, asr, subtitles.AcquirerOptions{
		FFmpegBinary:   cfg.Tools.FFmpeg,
		SubtitleDir:    cfg.Paths.SubtitleDir,
		ProbeTimeout:   cfg.ProbeTimeout(),
		ExtractTimeout: cfg.ExtractTimeout(),
	}, logger)

	lockPath := filepath.Join(cfg.Paths.LogDir, "subclipd.lock")
	return &Daemon{
		cfg:         cfg,
		logger:      logging.WithComponent(logger, "daemon"),
		store:       st,
		tracker:     jobs.NewTracker(),
		coordinator: prepare.NewCoordinator(st, acquirer, logger),
		cutter:      clips.NewCutter(cfg.Tools.FFmpeg, cfg.Clips.PaddingSeconds, logger),
		prober:      prober,
		lockPath:    lockPath,
		lock:        flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, re-drives records interrupted by the
// previous shutdown, and brings up the HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another subclip daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	reset, err := d.store.ResetStaleProcessing(d.ctx)
	if err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		return fmt.Errorf("reset stale records: %w", err)
	}
	if reset > 0 {
		d.logger.Warn("marked interrupted preparation records failed", slog.Int64("count", reset))
	}

	api, err := newAPIServer(d.cfg, d, d.logger)
	if err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		return err
	}
	d.api = api
	if err := d.api.start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		return err
	}

	d.running.Store(true)
	d.logger.Info("subclip daemon started", slog.String("lock", d.lockPath))

	if d.cfg.ASR.PrepareOnStartup {
		if _, err := d.StartBatchPreparation(d.ctx); err != nil {
			d.logger.Warn("startup preparation sweep failed", slog.String("error", err.Error()))
		}
	}
	return nil
}

// Stop waits for in-flight preparation tasks, shuts down the API, and
// releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.tasks.Wait()
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", slog.String("error", err.Error()))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("subclip daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Addr returns the address the API server is listening on, empty when the
// server is not running.
func (d *Daemon) Addr() string {
	if d.api == nil {
		return ""
	}
	return d.api.addr()
}

// Status returns the current daemon status including tool availability.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DatabasePath: d.cfg.DatabasePath(),
		LockFilePath: d.lockPath,
		RunningTasks: d.tracker.Running(),
		Dependencies: deps.CheckBinaries(deps.Requirements(d.cfg)),
	}
}

// IngestUpload streams an uploaded file into the video directory and
// records it. A partial file is removed when anything fails.
func (d *Daemon) IngestUpload(ctx context.Context, src io.Reader, originalFilename, contentType, title, description string, tags []string) (*store.Video, error) {
	ext := strings.ToLower(filepath.Ext(originalFilename))
	if _, ok := videoExtensions[ext]; !ok {
		return nil, faults.New(faults.ErrUnsupportedFormat,
			fmt.Sprintf("unsupported video extension %q", ext))
	}

	id := uuid.NewString()
	storedFilename := id + ext
	destPath := filepath.Join(d.cfg.Paths.VideoDir, storedFilename)

	written, err := fileutil.WriteStream(destPath, src)
	if err != nil {
		return nil, fmt.Errorf("store video file: %w", err)
	}

	if strings.TrimSpace(title) == "" {
		title = strings.TrimSuffix(filepath.Base(originalFilename), ext)
	}
	video := &store.Video{
		ID:               id,
		OriginalFilename: originalFilename,
		StoredFilename:   storedFilename,
		FilePath:         destPath,
		FileSize:         written,
		ContentType:      contentType,
		UploadTime:       time.Now().UTC(),
		Title:            strings.TrimSpace(title),
		Description:      strings.TrimSpace(description),
		Tags:             tags,
		Duration:         d.probeDuration(ctx, destPath),
	}
	if err := d.store.InsertVideo(ctx, video); err != nil {
		_ = os.Remove(destPath)
		return nil, err
	}

	d.logger.Info("video uploaded",
		slog.String(logging.FieldVideoID, id),
		slog.String("filename", originalFilename),
		slog.Int64("bytes", written))
	return video, nil
}

// probeDuration is best-effort: probe failures leave the duration unknown.
func (d *Daemon) probeDuration(ctx context.Context, path string) string {
	probeCtx := ctx
	if timeout := d.cfg.ProbeTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	report, err := d.prober.Inspect(probeCtx, path)
	if err != nil {
		d.logger.Debug("duration probe failed", slog.String("error", err.Error()))
		return "unknown"
	}
	if report.DurationSeconds <= 0 {
		return "unknown"
	}
	return fmt.Sprintf("%.2f", report.DurationSeconds)
}

// RemoveVideo deletes the video bytes and then the database row, so a
// failed unlink never leaves an orphaned file behind a 200 response.
// Subtitle artifacts are cleaned up best-effort once the row is gone.
func (d *Daemon) RemoveVideo(ctx context.Context, id string) error {
	video, err := d.store.GetVideo(ctx, id)
	if err != nil {
		return err
	}
	record, recErr := d.store.GetPreparation(ctx, id)

	if err := fileutil.RemoveIfExists(video.FilePath); err != nil {
		return fmt.Errorf("remove video file %s: %w", video.FilePath, err)
	}

	if err := d.store.DeleteVideo(ctx, id); err != nil {
		return err
	}

	removals := []string{embeddedArtifactFor(video.FilePath)}
	if recErr == nil && record.SubtitlePath != "" {
		removals = append(removals, record.SubtitlePath)
	}
	for _, path := range removals {
		if path == "" {
			continue
		}
		if err := fileutil.RemoveIfExists(path); err != nil {
			d.logger.Warn("failed to remove artifact",
				slog.String(logging.FieldVideoID, id),
				slog.String("path", path),
				slog.String("error", err.Error()))
		}
	}

	d.logger.Info("video deleted", slog.String(logging.FieldVideoID, id))
	return nil
}

func embeddedArtifactFor(videoPath string) string {
	stem := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
	return filepath.Join(filepath.Dir(videoPath), stem+"_embedded.srt")
}

// PreparationOptions carries the tunables of one preparation request.
type PreparationOptions struct {
	ForceRegenerate   bool
	ASRModel          string
	PreferredLanguage string
}

// StartPreparation launches subtitle preparation in the background and
// returns the task id to poll. When a run for the video is already in
// flight the existing task id is returned with started=false.
func (d *Daemon) StartPreparation(ctx context.Context, videoID string, opts PreparationOptions) (string, bool, error) {
	video, err := d.store.GetVideo(ctx, videoID)
	if err != nil {
		return "", false, err
	}

	taskID := jobs.PrepareTaskID(videoID)
	if !d.tracker.Start(taskID, "preparing subtitles") {
		return taskID, false, nil
	}

	if opts.ASRModel == "" {
		opts.ASRModel = d.cfg.ASR.Model
	}
	if opts.PreferredLanguage == "" {
		opts.PreferredLanguage = d.cfg.ASR.Language
	}

	runCtx := d.ctx
	if runCtx == nil {
		runCtx = context.Background()
	}
	d.tasks.Add(1)
	go func() {
		defer d.tasks.Done()
		result, err := d.coordinator.Prepare(runCtx, prepare.Request{
			VideoID:           videoID,
			VideoPath:         video.FilePath,
			ForceRegenerate:   opts.ForceRegenerate,
			ASRModel:          opts.ASRModel,
			PreferredLanguage: opts.PreferredLanguage,
		})
		if err != nil {
			d.tracker.Fail(taskID, err.Error())
			return
		}
		detail := "subtitle ready via " + result.Record.SubtitleSource
		if result.FromCache {
			detail = "subtitle already prepared"
		}
		d.tracker.Complete(taskID, detail)
	}()

	return taskID, true, nil
}

// StartBatchPreparation spawns a preparation task for every video without
// a successful record and returns the task ids.
func (d *Daemon) StartBatchPreparation(ctx context.Context) ([]string, error) {
	videos, err := d.store.VideosNeedingPreparation(ctx)
	if err != nil {
		return nil, err
	}
	taskIDs := make([]string, 0, len(videos))
	for _, video := range videos {
		taskID, _, err := d.StartPreparation(ctx, video.ID, PreparationOptions{})
		if err != nil {
			d.logger.Warn("batch preparation skip",
				slog.String(logging.FieldVideoID, video.ID),
				slog.String("error", err.Error()))
			continue
		}
		taskIDs = append(taskIDs, taskID)
	}
	d.logger.Info("batch preparation started", slog.Int("videos", len(taskIDs)))
	return taskIDs, nil
}

// Task returns the tracker snapshot for a task id.
func (d *Daemon) Task(id string) jobs.Task {
	return d.tracker.Get(id)
}

// Subtitles returns the parsed cue list of a video's prepared transcript.
func (d *Daemon) Subtitles(ctx context.Context, videoID string) (*store.PreparationRecord, subtitles.Document, error) {
	if _, err := d.store.GetVideo(ctx, videoID); err != nil {
		return nil, subtitles.Document{}, err
	}
	record, err := d.store.GetPreparation(ctx, videoID)
	if err != nil {
		return nil, subtitles.Document{}, err
	}
	if record.Status != store.StatusSuccess {
		return nil, subtitles.Document{}, faults.Wrap(faults.ErrNoTranscript,
			fmt.Sprintf("video %s has no successful preparation", videoID), nil)
	}
	doc, err := subtitles.ParseFile(record.SubtitlePath)
	if err != nil {
		return nil, subtitles.Document{}, err
	}
	return record, doc, nil
}

// ClipOptions tunes a search-and-clip run.
type ClipOptions struct {
	// SubtitlePath overrides the prepared transcript.
	SubtitlePath string
	// OutputDir defaults to the video's directory.
	OutputDir string
	// PaddingSeconds overrides the configured clip padding when set.
	PaddingSeconds *float64
	CaseSensitive  bool
}

// CutClips searches a video's transcript for a keyword and cuts a clip
// for each match. The prepared transcript is preferred; sidecar discovery
// is the fallback for videos prepared out of band.
func (d *Daemon) CutClips(ctx context.Context, videoID, keyword string, opts ClipOptions) (clips.SearchOutcome, error) {
	video, err := d.store.GetVideo(ctx, videoID)
	if err != nil {
		return clips.SearchOutcome{}, err
	}

	subtitlePath := opts.SubtitlePath
	if subtitlePath == "" {
		if record, err := d.store.GetPreparation(ctx, videoID); err == nil && record.Status == store.StatusSuccess {
			if _, statErr := os.Stat(record.SubtitlePath); statErr == nil {
				subtitlePath = record.SubtitlePath
			}
		}
	}

	return d.cutter.SearchAndClip(ctx, clips.SearchRequest{
		VideoPath:      video.FilePath,
		Keyword:        keyword,
		SubtitlePath:   subtitlePath,
		OutputDir:      opts.OutputDir,
		CaseSensitive:  opts.CaseSensitive,
		PaddingSeconds: opts.PaddingSeconds,
	})
}

// Healthy reports whether the daemon's store is reachable.
func (d *Daemon) Healthy(ctx context.Context) error {
	return d.store.Ping(ctx)
}
