package api

import (
	"encoding/json/v2"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/chapterlyapp/chapterly-server/internal/domain"
	"github.com/chapterlyapp/chapterly-server/internal/http/response"
)

// generateAudioRequest is the body of POST /chapters/{id}/audio.
// An empty body is allowed; voice defaults to the female profile.
type generateAudioRequest struct {
	Voice string `json:"voice" validate:"omitempty,oneof=male female"`
}

// jobResponse is the wire shape of a synthesis job.
type jobResponse struct {
	JobID           string     `json:"job_id"`
	ChapterID       string     `json:"chapter_id"`
	State           string     `json:"state"`
	Voice           string     `json:"voice"`
	AudioURL        string     `json:"audio_url,omitempty"`
	DurationSeconds int        `json:"duration_seconds,omitempty"`
	FailureReason   string     `json:"failure_reason,omitempty"`
	FailureDetail   string     `json:"failure_detail,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

func newJobResponse(job *domain.SynthesisJob) jobResponse {
	return jobResponse{
		JobID:           job.ID,
		ChapterID:       job.ChapterID,
		State:           string(job.Status),
		Voice:           string(job.Voice),
		AudioURL:        job.AudioURL,
		DurationSeconds: job.DurationSeconds,
		FailureReason:   string(job.FailureReason),
		FailureDetail:   job.FailureDetail,
		CreatedAt:       job.CreatedAt,
		StartedAt:       job.StartedAt,
		CompletedAt:     job.CompletedAt,
	}
}

// handleGenerateAudio starts narration for a chapter.
// Responds 202 Accepted with the pending job; 409 when a job is live;
// 200 with the existing completed job when content is unchanged.
func (s *Server) handleGenerateAudio(w http.ResponseWriter, r *http.Request) {
	chapterID := chi.URLParam(r, "id")

	var req generateAudioRequest
	if r.ContentLength > 0 {
		if err := json.UnmarshalRead(r.Body, &req); err != nil {
			response.BadRequest(w, "Invalid request body", s.logger)
			return
		}
	}
	if err := s.validator.Validate(req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	voice := domain.ParseVoiceProfile(req.Voice)

	job, err := s.synthesisService.Generate(r.Context(), getUserID(r.Context()), chapterID, voice)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	if job.Status == domain.SynthesisStatusCompleted {
		// Idempotent repeat for unchanged content.
		response.Success(w, newJobResponse(job), s.logger)
		return
	}
	response.Accepted(w, newJobResponse(job), s.logger)
}

// handleGetAudioStatus returns the latest job for a chapter.
func (s *Server) handleGetAudioStatus(w http.ResponseWriter, r *http.Request) {
	chapterID := chi.URLParam(r, "id")

	job, err := s.synthesisService.JobStatus(r.Context(), chapterID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, newJobResponse(job), s.logger)
}
