package sse

import (
	"time"

	"github.com/chapterlyapp/chapterly-server/internal/domain"
)

// EventType identifies the kind of change pushed to connected clients.
type EventType string

const (
	// Synthesis job lifecycle.
	EventSynthesisPending    EventType = "synthesis.pending"
	EventSynthesisProcessing EventType = "synthesis.processing"
	EventSynthesisCompleted  EventType = "synthesis.completed"
	EventSynthesisFailed     EventType = "synthesis.failed"

	// Social activity.
	EventCommentCreated EventType = "comment.created"
	EventChapterLiked   EventType = "chapter.liked"
	EventChapterSaved   EventType = "chapter.saved"

	// Connection management.
	EventConnected EventType = "connected"
	EventHeartbeat EventType = "heartbeat"
)

// Event is the envelope broadcast to clients.
type Event struct {
	Type      EventType `json:"type"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent creates an event stamped with the current time.
func NewEvent(eventType EventType, data any) Event {
	return Event{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// JobStateEventData describes a synthesis job transition.
// AudioURL and DurationSeconds are set only for completed, FailureReason
// only for failed.
type JobStateEventData struct {
	JobID           string `json:"job_id"`
	ChapterID       string `json:"chapter_id"`
	State           string `json:"state"`
	AudioURL        string `json:"audio_url,omitempty"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
	FailureReason   string `json:"failure_reason,omitempty"`
}

// jobEventTypes maps job status to the event type announcing it.
var jobEventTypes = map[domain.SynthesisStatus]EventType{
	domain.SynthesisStatusPending:    EventSynthesisPending,
	domain.SynthesisStatusProcessing: EventSynthesisProcessing,
	domain.SynthesisStatusCompleted:  EventSynthesisCompleted,
	domain.SynthesisStatusFailed:     EventSynthesisFailed,
}

// NewJobStateEvent builds the broadcast event for a job's current state.
func NewJobStateEvent(job *domain.SynthesisJob) Event {
	return NewEvent(jobEventTypes[job.Status], JobStateEventData{
		JobID:           job.ID,
		ChapterID:       job.ChapterID,
		State:           string(job.Status),
		AudioURL:        job.AudioURL,
		DurationSeconds: job.DurationSeconds,
		FailureReason:   string(job.FailureReason),
	})
}

// SocialEventData describes a social action on a chapter.
type SocialEventData struct {
	ChapterID string `json:"chapter_id"`
	ActorID   string `json:"actor_id"`
	CommentID string `json:"comment_id,omitempty"`
}
