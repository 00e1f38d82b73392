package daemon

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"subclip/internal/subtitles"
)

// uploadMemoryLimit caps how much of a multipart body stays in memory
// before spooling to disk.
const uploadMemoryLimit = 32 << 20

func (s *apiServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := r.ParseMultipartForm(uploadMemoryLimit); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	tags := splitTagList(r.FormValue("tags"))
	video, err := s.daemon.IngestUpload(r.Context(), file,
		header.Filename,
		header.Header.Get("Content-Type"),
		r.FormValue("title"),
		r.FormValue("description"),
		tags)
	if err != nil {
		s.writeFault(w, err)
		return
	}

	// Subtitle preparation begins immediately; the client polls the task.
	taskID, _, prepErr := s.daemon.StartPreparation(r.Context(), video.ID, PreparationOptions{})
	if prepErr != nil {
		s.logger.Warn("preparation did not start for upload", slog.String("error", prepErr.Error()))
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{
		"message":     "upload successful",
		"video_id":    video.ID,
		"filename":    video.OriginalFilename,
		"file_size":   video.FileSize,
		"upload_time": video.UploadTime,
		"video":       video,
		"task_id":     taskID,
	})
}

func (s *apiServer) handleVideos(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	videos, err := s.daemon.store.ListVideos(r.Context())
	if err != nil {
		s.writeFault(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"total":  len(videos),
		"videos": videos,
	})
}

func (s *apiServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		s.writeError(w, http.StatusBadRequest, "query parameter q must not be empty")
		return
	}
	videos, err := s.daemon.store.SearchVideos(r.Context(), query)
	if err != nil {
		s.writeFault(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"query":   query,
		"total":   len(videos),
		"results": videos,
	})
}

// handleVideoSubresource dispatches /videos/{id} and /videos/{id}/{action}.
func (s *apiServer) handleVideoSubresource(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/videos/")
	videoID, action, _ := strings.Cut(rest, "/")
	if videoID == "" || strings.Contains(action, "/") {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch action {
	case "":
		s.handleVideoItem(w, r, videoID)
	case "prepare":
		s.handlePrepare(w, r, videoID)
	case "subtitles":
		s.handleSubtitles(w, r, videoID)
	case "clips":
		s.handleClips(w, r, videoID)
	default:
		s.writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *apiServer) handleVideoItem(w http.ResponseWriter, r *http.Request, videoID string) {
	switch r.Method {
	case http.MethodGet:
		video, err := s.daemon.store.GetVideo(r.Context(), videoID)
		if err != nil {
			s.writeFault(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, video)
	case http.MethodDelete:
		if err := s.daemon.RemoveVideo(r.Context(), videoID); err != nil {
			s.writeFault(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]string{
			"id":     videoID,
			"status": "deleted",
		})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type prepareRequest struct {
	ForceRegenerate   bool   `json:"force_regenerate"`
	ASRModel          string `json:"asr_model"`
	PreferredLanguage string `json:"preferred_language"`
}

func (s *apiServer) handlePrepare(w http.ResponseWriter, r *http.Request, videoID string) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req prepareRequest
	if err := decodeOptionalJSON(r.Body, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	taskID, started, err := s.daemon.StartPreparation(r.Context(), videoID, PreparationOptions{
		ForceRegenerate:   req.ForceRegenerate,
		ASRModel:          req.ASRModel,
		PreferredLanguage: req.PreferredLanguage,
	})
	if err != nil {
		s.writeFault(w, err)
		return
	}
	message := "subtitle preparation started"
	if !started {
		message = "subtitle preparation already in progress"
	}
	s.writeJSON(w, http.StatusAccepted, map[string]any{
		"task_id": taskID,
		"started": started,
		"message": message,
	})
}

func (s *apiServer) handleSubtitles(w http.ResponseWriter, r *http.Request, videoID string) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	record, doc, err := s.daemon.Subtitles(r.Context(), videoID)
	if err != nil {
		s.writeFault(w, err)
		return
	}
	cues := make([]map[string]any, 0, len(doc.Cues))
	for _, cue := range doc.Cues {
		cues = append(cues, cueJSON(cue))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"video_id":      videoID,
		"subtitle_path": record.SubtitlePath,
		"source":        record.SubtitleSource,
		"language":      record.SubtitleLanguage,
		"encoding":      doc.Encoding,
		"cues":          cues,
		"count":         len(cues),
	})
}

type clipRequest struct {
	Keyword        string   `json:"keyword"`
	SRTPath        string   `json:"srt_path"`
	OutputDir      string   `json:"output_dir"`
	PaddingSeconds *float64 `json:"padding_seconds"`
	CaseSensitive  bool     `json:"case_sensitive"`
}

func (s *apiServer) handleClips(w http.ResponseWriter, r *http.Request, videoID string) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req clipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	outcome, err := s.daemon.CutClips(r.Context(), videoID, req.Keyword, ClipOptions{
		SubtitlePath:   req.SRTPath,
		OutputDir:      req.OutputDir,
		PaddingSeconds: req.PaddingSeconds,
		CaseSensitive:  req.CaseSensitive,
	})
	if err != nil {
		s.writeFault(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, outcome)
}

func cueJSON(cue subtitles.Cue) map[string]any {
	return map[string]any{
		"index": cue.Index,
		"start": cue.Start,
		"end":   cue.End,
		"text":  cue.Text,
	}
}

// decodeOptionalJSON parses a JSON body, treating an empty body as the
// zero value.
func decodeOptionalJSON(body io.Reader, dst any) error {
	err := json.NewDecoder(body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func splitTagList(raw string) []string {
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
