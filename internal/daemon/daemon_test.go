package daemon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"subclip/internal/faults"
	"subclip/internal/jobs"
	"subclip/internal/logging"
	"subclip/internal/store"
	"subclip/internal/testsupport"
)

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	st := testsupport.MustOpenStore(t, cfg)

	d, err := New(cfg, st, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if d.Addr() == "" {
		t.Fatal("expected a bound api address")
	}
	if err := d.Start(ctx); err == nil {
		t.Fatal("second Start must fail while running")
	}

	// A second daemon against the same lock file must be refused.
	other, err := New(cfg, st, logging.NewNop())
	if err != nil {
		t.Fatalf("New (second): %v", err)
	}
	if err := other.Start(ctx); err == nil {
		other.Stop()
		t.Fatal("second instance must not acquire the lock")
	}

	d.Stop()
	if d.running.Load() {
		t.Fatal("daemon should be stopped")
	}

	// The lock is free again after Stop.
	if err := other.Start(ctx); err != nil {
		t.Fatalf("restart after stop: %v", err)
	}
	other.Stop()
}

func TestStartResetsStaleRecords(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	st := testsupport.MustOpenStore(t, cfg)

	videoPath := filepath.Join(cfg.Paths.VideoDir, "vid-1.mp4")
	testsupport.WriteFile(t, videoPath, 8)
	testsupport.NewVideo(t, st, "vid-1", videoPath)
	if err := st.SavePreparation(context.Background(), &store.PreparationRecord{
		VideoID: "vid-1", VideoPath: videoPath,
		SubtitleSource: "unknown", Status: store.StatusProcessing,
	}); err != nil {
		t.Fatalf("save processing record: %v", err)
	}

	d, err := New(cfg, st, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	record, err := st.GetPreparation(context.Background(), "vid-1")
	if err != nil {
		t.Fatalf("get preparation: %v", err)
	}
	if record.Status != store.StatusFailed {
		t.Fatalf("stale record not re-driven: %+v", record)
	}
}

func TestStartupSweepPreparesVideos(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	cfg.ASR.PrepareOnStartup = true
	st := testsupport.MustOpenStore(t, cfg)

	videoPath := filepath.Join(cfg.Paths.VideoDir, "vid-1.mp4")
	testsupport.WriteFile(t, videoPath, 8)
	sidecar := filepath.Join(cfg.Paths.VideoDir, "vid-1.srt")
	srt := "1\n00:00:01,000 --> 00:00:02,000\nhello there\n"
	if err := os.WriteFile(sidecar, []byte(srt), 0o644); err != nil {
		t.Fatal(err)
	}
	testsupport.NewVideo(t, st, "vid-1", videoPath)

	d, err := New(cfg, st, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	deadline := time.Now().Add(10 * time.Second)
	taskID := jobs.PrepareTaskID("vid-1")
	for {
		task := d.Task(taskID)
		if task.State == jobs.StateCompleted {
			break
		}
		if task.State == jobs.StateFailed {
			t.Fatalf("sweep task failed: %s", task.Detail)
		}
		if time.Now().After(deadline) {
			t.Fatalf("sweep task did not finish, state %s", task.State)
		}
		time.Sleep(10 * time.Millisecond)
	}

	record, err := st.GetPreparation(context.Background(), "vid-1")
	if err != nil {
		t.Fatalf("get preparation: %v", err)
	}
	if record.Status != store.StatusSuccess || record.SubtitlePath != sidecar {
		t.Fatalf("unexpected record after sweep: %+v", record)
	}
}

func TestRemoveVideoCleansArtifacts(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	st := testsupport.MustOpenStore(t, cfg)
	d, err := New(cfg, st, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	videoPath := filepath.Join(cfg.Paths.VideoDir, "vid-1.mp4")
	embedded := filepath.Join(cfg.Paths.VideoDir, "vid-1_embedded.srt")
	generated := filepath.Join(cfg.Paths.SubtitleDir, "vid-1.srt")
	testsupport.WriteFile(t, videoPath, 8)
	testsupport.WriteFile(t, embedded, 8)
	testsupport.WriteFile(t, generated, 8)
	testsupport.NewVideo(t, st, "vid-1", videoPath)
	if err := st.SavePreparation(ctx, &store.PreparationRecord{
		VideoID: "vid-1", VideoPath: videoPath,
		SubtitleSource: "asr", SubtitlePath: generated, Status: store.StatusSuccess,
	}); err != nil {
		t.Fatalf("save preparation: %v", err)
	}

	if err := d.RemoveVideo(ctx, "vid-1"); err != nil {
		t.Fatalf("RemoveVideo: %v", err)
	}
	for _, path := range []string{videoPath, embedded, generated} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Fatalf("artifact %s should be gone: %v", path, err)
		}
	}
	if _, err := st.GetVideo(ctx, "vid-1"); !errors.Is(err, faults.ErrNotFound) {
		t.Fatalf("row should be gone, got %v", err)
	}
}

func TestRemoveVideoKeepsRowWhenUnlinkFails(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	st := testsupport.MustOpenStore(t, cfg)
	d, err := New(cfg, st, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// A non-empty directory at the video path makes the unlink fail even
	// when running as root.
	ctx := context.Background()
	videoPath := filepath.Join(cfg.Paths.VideoDir, "vid-1.mp4")
	if err := os.MkdirAll(videoPath, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	testsupport.WriteFile(t, filepath.Join(videoPath, "stuck"), 8)
	testsupport.NewVideo(t, st, "vid-1", videoPath)

	if err := d.RemoveVideo(ctx, "vid-1"); err == nil {
		t.Fatal("expected unlink failure to surface")
	}
	// The row survives so the delete can be retried once the bytes are
	// removable.
	if _, err := st.GetVideo(ctx, "vid-1"); err != nil {
		t.Fatalf("row must remain after failed file removal: %v", err)
	}
}

func TestIngestUploadRejectsExtension(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	st := testsupport.MustOpenStore(t, cfg)
	d, err := New(cfg, st, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = d.IngestUpload(context.Background(), nil, "notes.txt", "text/plain", "", "", nil)
	if !errors.Is(err, faults.ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format, got %v", err)
	}
}
