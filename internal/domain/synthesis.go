package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// SynthesisStatus represents the state of a synthesis job.
type SynthesisStatus string

const (
	SynthesisStatusPending    SynthesisStatus = "pending"
	SynthesisStatusProcessing SynthesisStatus = "processing"
	SynthesisStatusCompleted  SynthesisStatus = "completed"
	SynthesisStatusFailed     SynthesisStatus = "failed"
)

// FailureReason classifies why a synthesis job failed.
type FailureReason string

const (
	FailureValidation        FailureReason = "validation"
	FailureSynthesisProvider FailureReason = "synthesis-provider"
	FailureStorageUpload     FailureReason = "storage-upload"
	FailureInternal          FailureReason = "internal"
)

// VoiceProfile is the abstract narration voice requested by the author.
type VoiceProfile string

const (
	VoiceMale   VoiceProfile = "male"
	VoiceFemale VoiceProfile = "female"
)

// ParseVoiceProfile maps a request string to a voice profile.
// Unknown or missing values default to the female voice.
func ParseVoiceProfile(s string) VoiceProfile {
	if VoiceProfile(s) == VoiceMale {
		return VoiceMale
	}
	return VoiceFemale
}

// SynthesisJob represents one end-to-end narration attempt for a chapter.
// At most one job per chapter may be live (pending or processing) at a time;
// the store enforces this. Jobs are never hard-deleted - regeneration creates
// a new record that supersedes the old one.
type SynthesisJob struct {
	ID        string `json:"id"`
	ChapterID string `json:"chapter_id"`

	Status SynthesisStatus `json:"status"`
	Voice  VoiceProfile    `json:"voice"`

	// ContentHash fingerprints (text, voice) so a retried request against
	// unchanged content returns the existing terminal result instead of
	// re-running synthesis.
	ContentHash string `json:"content_hash"`

	// Set only on the completed transition.
	AudioURL        string `json:"audio_url,omitempty"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`

	// Set only on the failed transition.
	FailureReason FailureReason `json:"failure_reason,omitempty"`
	FailureDetail string        `json:"failure_detail,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// IsLive reports whether the job is pending or processing.
func (j *SynthesisJob) IsLive() bool {
	return j.Status == SynthesisStatusPending || j.Status == SynthesisStatusProcessing
}

// IsTerminal reports whether the job reached completed or failed.
func (j *SynthesisJob) IsTerminal() bool {
	return j.Status == SynthesisStatusCompleted || j.Status == SynthesisStatusFailed
}

// MarkProcessing transitions the job to processing state.
func (j *SynthesisJob) MarkProcessing() {
	j.Status = SynthesisStatusProcessing
	now := time.Now()
	j.StartedAt = &now
}

// MarkCompleted transitions the job to completed state with its artifact.
func (j *SynthesisJob) MarkCompleted(audioURL string, durationSeconds int) {
	j.Status = SynthesisStatusCompleted
	j.AudioURL = audioURL
	j.DurationSeconds = durationSeconds
	now := time.Now()
	j.CompletedAt = &now
}

// MarkFailed transitions the job to failed state with a classified reason.
func (j *SynthesisJob) MarkFailed(reason FailureReason, detail string) {
	j.Status = SynthesisStatusFailed
	j.FailureReason = reason
	j.FailureDetail = detail
	now := time.Now()
	j.CompletedAt = &now
}

// HashContent fingerprints chapter text plus voice profile.
// Used for idempotent retry detection when the same generate request repeats.
func HashContent(text string, voice VoiceProfile) string {
	h := sha256.New()
	h.Write([]byte(text))
	h.Write([]byte{0})
	h.Write([]byte(voice))
	return hex.EncodeToString(h.Sum(nil))
}
