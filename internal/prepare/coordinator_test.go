package prepare

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"subclip/internal/faults"
	"subclip/internal/logging"
	"subclip/internal/store"
	"subclip/internal/subtitles"
)

type stubAcquirer struct {
	calls    atomic.Int64
	artifact subtitles.Artifact
	err      error
	block    chan struct{}
}

func (s *stubAcquirer) Acquire(ctx context.Context, req subtitles.AcquireRequest) (subtitles.Artifact, error) {
	s.calls.Add(1)
	if s.block != nil {
		<-s.block
	}
	return s.artifact, s.err
}

func newFixture(t *testing.T) (*store.Store, string) {
	t.Helper()
	dir := t.TempDir()
	st, err := store.OpenPath(context.Background(), filepath.Join(dir, "video_metadata.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st, dir
}

func addVideo(t *testing.T, st *store.Store, dir, id string) string {
	t.Helper()
	path := filepath.Join(dir, id+".mp4")
	if err := os.WriteFile(path, []byte("video"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}
	err := st.InsertVideo(context.Background(), &store.Video{
		ID: id, OriginalFilename: id + ".mp4", StoredFilename: id + ".mp4",
		FilePath: path, FileSize: 5, Title: id, Duration: "unknown",
	})
	if err != nil {
		t.Fatalf("insert video: %v", err)
	}
	return path
}

func TestPrepareSuccessPersistsRecord(t *testing.T) {
	st, dir := newFixture(t)
	videoPath := addVideo(t, st, dir, "vid-1")
	srt := filepath.Join(dir, "vid-1.srt")
	if err := os.WriteFile(srt, []byte("1\n00:00:01,000 --> 00:00:02,000\nhi\n"), 0o644); err != nil {
		t.Fatalf("write srt: %v", err)
	}

	acq := &stubAcquirer{artifact: subtitles.Artifact{
		SubtitlePath: srt, Source: subtitles.SourceASR, Language: "English", ASRModel: "base",
	}}
	coord := NewCoordinator(st, acq, logging.NewNop())

	result, err := coord.Prepare(context.Background(), Request{VideoID: "vid-1", VideoPath: videoPath})
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if result.FromCache {
		t.Fatal("first run must not be from cache")
	}
	if result.Record.Status != store.StatusSuccess || result.Record.SubtitleSource != "asr" {
		t.Fatalf("unexpected record: %+v", result.Record)
	}

	video, err := st.GetVideo(context.Background(), "vid-1")
	if err != nil {
		t.Fatalf("get video: %v", err)
	}
	if !video.SubtitleReady {
		t.Fatal("success must mark subtitle_ready")
	}
}

func TestPrepareCacheHitSkipsAcquirer(t *testing.T) {
	st, dir := newFixture(t)
	videoPath := addVideo(t, st, dir, "vid-2")
	srt := filepath.Join(dir, "vid-2.srt")
	if err := os.WriteFile(srt, []byte("cached"), 0o644); err != nil {
		t.Fatalf("write srt: %v", err)
	}

	acq := &stubAcquirer{artifact: subtitles.Artifact{SubtitlePath: srt, Source: subtitles.SourceExternal}}
	coord := NewCoordinator(st, acq, logging.NewNop())

	if _, err := coord.Prepare(context.Background(), Request{VideoID: "vid-2", VideoPath: videoPath}); err != nil {
		t.Fatalf("first prepare: %v", err)
	}
	result, err := coord.Prepare(context.Background(), Request{VideoID: "vid-2", VideoPath: videoPath})
	if err != nil {
		t.Fatalf("second prepare: %v", err)
	}
	if !result.FromCache {
		t.Fatal("second run should hit the cache")
	}
	if got := acq.calls.Load(); got != 1 {
		t.Fatalf("acquirer should run once, ran %d times", got)
	}
}

func TestPrepareCacheInvalidWhenArtifactDeleted(t *testing.T) {
	st, dir := newFixture(t)
	videoPath := addVideo(t, st, dir, "vid-3")
	srt := filepath.Join(dir, "vid-3.srt")
	if err := os.WriteFile(srt, []byte("x"), 0o644); err != nil {
		t.Fatalf("write srt: %v", err)
	}

	acq := &stubAcquirer{artifact: subtitles.Artifact{SubtitlePath: srt, Source: subtitles.SourceExternal}}
	coord := NewCoordinator(st, acq, logging.NewNop())

	if _, err := coord.Prepare(context.Background(), Request{VideoID: "vid-3", VideoPath: videoPath}); err != nil {
		t.Fatalf("first prepare: %v", err)
	}
	if err := os.Remove(srt); err != nil {
		t.Fatalf("remove srt: %v", err)
	}
	acq.artifact.SubtitlePath = filepath.Join(dir, "vid-3-new.srt")
	if err := os.WriteFile(acq.artifact.SubtitlePath, []byte("new"), 0o644); err != nil {
		t.Fatalf("write new srt: %v", err)
	}

	result, err := coord.Prepare(context.Background(), Request{VideoID: "vid-3", VideoPath: videoPath})
	if err != nil {
		t.Fatalf("prepare after deletion: %v", err)
	}
	if result.FromCache {
		t.Fatal("missing artifact must not be served from cache")
	}
	if got := acq.calls.Load(); got != 2 {
		t.Fatalf("expected re-acquisition, acquirer ran %d times", got)
	}
}

func TestPrepareForceRegenerates(t *testing.T) {
	st, dir := newFixture(t)
	videoPath := addVideo(t, st, dir, "vid-4")
	srt := filepath.Join(dir, "vid-4.srt")
	if err := os.WriteFile(srt, []byte("x"), 0o644); err != nil {
		t.Fatalf("write srt: %v", err)
	}

	acq := &stubAcquirer{artifact: subtitles.Artifact{SubtitlePath: srt, Source: subtitles.SourceASR, ASRModel: "base"}}
	coord := NewCoordinator(st, acq, logging.NewNop())

	ctx := context.Background()
	if _, err := coord.Prepare(ctx, Request{VideoID: "vid-4", VideoPath: videoPath}); err != nil {
		t.Fatalf("first prepare: %v", err)
	}
	result, err := coord.Prepare(ctx, Request{VideoID: "vid-4", VideoPath: videoPath, ForceRegenerate: true})
	if err != nil {
		t.Fatalf("forced prepare: %v", err)
	}
	if result.FromCache {
		t.Fatal("forced run must bypass the cache")
	}
	if got := acq.calls.Load(); got != 2 {
		t.Fatalf("expected two acquisitions, got %d", got)
	}
}

func TestPrepareMissingVideoPersistsFailure(t *testing.T) {
	st, dir := newFixture(t)
	_ = dir

	if err := st.InsertVideo(context.Background(), &store.Video{
		ID: "ghost", OriginalFilename: "ghost.mp4", StoredFilename: "ghost.mp4",
		FilePath: filepath.Join(dir, "ghost.mp4"), Title: "ghost", Duration: "unknown",
	}); err != nil {
		t.Fatalf("insert video: %v", err)
	}

	acq := &stubAcquirer{}
	coord := NewCoordinator(st, acq, logging.NewNop())

	_, err := coord.Prepare(context.Background(), Request{
		VideoID: "ghost", VideoPath: filepath.Join(dir, "ghost.mp4"),
	})
	if !errors.Is(err, faults.ErrFileMissing) {
		t.Fatalf("expected file-missing, got %v", err)
	}
	if acq.calls.Load() != 0 {
		t.Fatal("acquirer must not run for a missing file")
	}

	record, recErr := st.GetPreparation(context.Background(), "ghost")
	if recErr != nil {
		t.Fatalf("get preparation: %v", recErr)
	}
	if record.Status != store.StatusFailed || record.ErrorMessage == "" {
		t.Fatalf("missing file must persist a failed record: %+v", record)
	}
}

func TestPrepareFailurePersistsRecord(t *testing.T) {
	st, dir := newFixture(t)
	videoPath := addVideo(t, st, dir, "vid-5")

	acq := &stubAcquirer{err: faults.New(faults.ErrToolMissing, "whisper")}
	coord := NewCoordinator(st, acq, logging.NewNop())

	_, err := coord.Prepare(context.Background(), Request{VideoID: "vid-5", VideoPath: videoPath, ASRModel: "small"})
	if !errors.Is(err, faults.ErrToolMissing) {
		t.Fatalf("expected tool-missing, got %v", err)
	}

	record, recErr := st.GetPreparation(context.Background(), "vid-5")
	if recErr != nil {
		t.Fatalf("get preparation: %v", recErr)
	}
	if record.Status != store.StatusFailed || record.ASRModel != "small" {
		t.Fatalf("unexpected failed record: %+v", record)
	}
	video, vErr := st.GetVideo(context.Background(), "vid-5")
	if vErr != nil {
		t.Fatalf("get video: %v", vErr)
	}
	if video.SubtitleReady {
		t.Fatal("failure must not mark subtitle_ready")
	}
}

func TestPrepareConcurrentRequestsShareOneRun(t *testing.T) {
	st, dir := newFixture(t)
	videoPath := addVideo(t, st, dir, "vid-6")
	srt := filepath.Join(dir, "vid-6.srt")
	if err := os.WriteFile(srt, []byte("x"), 0o644); err != nil {
		t.Fatalf("write srt: %v", err)
	}

	acq := &stubAcquirer{
		artifact: subtitles.Artifact{SubtitlePath: srt, Source: subtitles.SourceASR},
		block:    make(chan struct{}),
	}
	coord := NewCoordinator(st, acq, logging.NewNop())

	ctx := context.Background()
	request := Request{VideoID: "vid-6", VideoPath: videoPath}

	var wg sync.WaitGroup
	const waiters = 8
	errs := make([]error, waiters)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errs[0] = coord.Prepare(ctx, request)
	}()
	// Wait for the first run to enter the acquirer before adding waiters,
	// so they all find the flight in progress.
	for acq.calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	for i := 1; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = coord.Prepare(ctx, request)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(acq.block)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("waiter %d: %v", i, err)
		}
	}
	if got := acq.calls.Load(); got != 1 {
		t.Fatalf("expected one shared acquisition, got %d", got)
	}
}
