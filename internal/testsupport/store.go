package testsupport

import (
	"context"
	"testing"
	"time"

	"subclip/internal/config"
	"subclip/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewVideo inserts a video row for tests and returns it.
func NewVideo(t testing.TB, st *store.Store, id, filePath string) *store.Video {
	t.Helper()

	video := &store.Video{
		ID:               id,
		OriginalFilename: id + ".mp4",
		StoredFilename:   id + ".mp4",
		FilePath:         filePath,
		FileSize:         1,
		UploadTime:       time.Now().UTC(),
		Title:            id,
		Duration:         "unknown",
	}
	if err := st.InsertVideo(context.Background(), video); err != nil {
		t.Fatalf("store.InsertVideo: %v", err)
	}
	return video
}
