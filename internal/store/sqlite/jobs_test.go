package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/chapterlyapp/chapterly-server/internal/domain"
	"github.com/chapterlyapp/chapterly-server/internal/errors"
	"github.com/chapterlyapp/chapterly-server/internal/id"
	"github.com/chapterlyapp/chapterly-server/internal/sse"
)

func newTestJob(chapterID string) *domain.SynthesisJob {
	return &domain.SynthesisJob{
		ID:          id.MustGenerate("job"),
		ChapterID:   chapterID,
		Status:      domain.SynthesisStatusPending,
		Voice:       domain.VoiceFemale,
		ContentHash: domain.HashContent("Hello world.", domain.VoiceFemale),
		CreatedAt:   time.Now(),
	}
}

func TestCreateJob_LiveJobInvariant(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	chapterID := seedChapter(t, s)

	if err := s.CreateJob(ctx, newTestJob(chapterID)); err != nil {
		t.Fatalf("create first job: %v", err)
	}

	// A second job while the first is live must be rejected.
	err := s.CreateJob(ctx, newTestJob(chapterID))
	if !errors.Is(err, errors.ErrJobAlreadyActive) {
		t.Errorf("expected job already active, got %v", err)
	}
}

func TestCreateJob_AfterTerminalJob(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	chapterID := seedChapter(t, s)

	first := newTestJob(chapterID)
	if err := s.CreateJob(ctx, first); err != nil {
		t.Fatalf("create first job: %v", err)
	}
	first.MarkFailed(domain.FailureSynthesisProvider, "provider down")
	if err := s.FailJob(ctx, first); err != nil {
		t.Fatalf("fail first job: %v", err)
	}

	// Terminal jobs do not block regeneration.
	if err := s.CreateJob(ctx, newTestJob(chapterID)); err != nil {
		t.Errorf("create job after terminal: %v", err)
	}
}

func TestCreateJob_UnknownChapter(t *testing.T) {
	s := newTestStore(t)

	err := s.CreateJob(context.Background(), newTestJob("chp-missing"))
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestStartJob(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	chapterID := seedChapter(t, s)

	job := newTestJob(chapterID)
	if err := s.CreateJob(ctx, job); err != nil {
		t.Fatalf("create job: %v", err)
	}

	started, err := s.StartJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("start job: %v", err)
	}
	if started.Status != domain.SynthesisStatusProcessing {
		t.Errorf("status = %s, want processing", started.Status)
	}
	if started.StartedAt == nil {
		t.Error("started_at should be set")
	}

	// Starting again must not succeed; transitions are monotonic.
	if _, err := s.StartJob(ctx, job.ID); err == nil {
		t.Error("second start should fail")
	}
}

func TestCompleteJob_UpdatesChapterAtomically(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	chapterID := seedChapter(t, s)

	job := newTestJob(chapterID)
	if err := s.CreateJob(ctx, job); err != nil {
		t.Fatalf("create job: %v", err)
	}
	if _, err := s.StartJob(ctx, job.ID); err != nil {
		t.Fatalf("start job: %v", err)
	}

	job.MarkCompleted("/audio/chapters/"+chapterID+".mp3", 42)
	if err := s.CompleteJob(ctx, job); err != nil {
		t.Fatalf("complete job: %v", err)
	}

	got, err := s.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.Status != domain.SynthesisStatusCompleted {
		t.Errorf("job status = %s, want completed", got.Status)
	}
	if got.AudioURL != job.AudioURL || got.DurationSeconds != 42 {
		t.Errorf("job artifact = (%s, %d)", got.AudioURL, got.DurationSeconds)
	}

	chapter, err := s.GetChapter(ctx, chapterID)
	if err != nil {
		t.Fatalf("get chapter: %v", err)
	}
	if chapter.AudioURL == nil || *chapter.AudioURL != job.AudioURL {
		t.Error("chapter audio_url should match the completed job")
	}
	if chapter.AudioDurationSeconds == nil || *chapter.AudioDurationSeconds != 42 {
		t.Error("chapter duration should match the completed job")
	}
}

func TestCompleteJob_RequiresProcessing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	chapterID := seedChapter(t, s)

	job := newTestJob(chapterID)
	if err := s.CreateJob(ctx, job); err != nil {
		t.Fatalf("create job: %v", err)
	}

	// Still pending: the completed transition must be refused and the
	// chapter left untouched.
	job.MarkCompleted("/audio/x.mp3", 10)
	if err := s.CompleteJob(ctx, job); err == nil {
		t.Error("complete from pending should fail")
	}

	chapter, err := s.GetChapter(ctx, chapterID)
	if err != nil {
		t.Fatalf("get chapter: %v", err)
	}
	if chapter.AudioURL != nil {
		t.Error("chapter audio_url should remain unset")
	}
}

func TestFailJob_KeepsPreviousChapterAudio(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	chapterID := seedChapter(t, s)

	// First generation succeeds.
	first := newTestJob(chapterID)
	if err := s.CreateJob(ctx, first); err != nil {
		t.Fatalf("create first job: %v", err)
	}
	if _, err := s.StartJob(ctx, first.ID); err != nil {
		t.Fatalf("start first job: %v", err)
	}
	first.MarkCompleted("/audio/chapters/"+chapterID+".mp3", 30)
	if err := s.CompleteJob(ctx, first); err != nil {
		t.Fatalf("complete first job: %v", err)
	}

	// Regeneration fails; the chapter keeps the old narration.
	second := newTestJob(chapterID)
	if err := s.CreateJob(ctx, second); err != nil {
		t.Fatalf("create second job: %v", err)
	}
	second.MarkFailed(domain.FailureStorageUpload, "disk full")
	if err := s.FailJob(ctx, second); err != nil {
		t.Fatalf("fail second job: %v", err)
	}

	got, err := s.GetJob(ctx, second.ID)
	if err != nil {
		t.Fatalf("get second job: %v", err)
	}
	if got.Status != domain.SynthesisStatusFailed {
		t.Errorf("status = %s, want failed", got.Status)
	}
	if got.FailureReason != domain.FailureStorageUpload {
		t.Errorf("failure reason = %s, want storage-upload", got.FailureReason)
	}

	chapter, err := s.GetChapter(ctx, chapterID)
	if err != nil {
		t.Fatalf("get chapter: %v", err)
	}
	if chapter.AudioURL == nil || *chapter.AudioURL != first.AudioURL {
		t.Error("chapter should keep audio from the previous completed job")
	}
}

func TestGetLatestJobByChapter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	chapterID := seedChapter(t, s)

	if _, err := s.GetLatestJobByChapter(ctx, chapterID); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected not found before any job, got %v", err)
	}

	first := newTestJob(chapterID)
	first.CreatedAt = time.Now().Add(-time.Minute)
	if err := s.CreateJob(ctx, first); err != nil {
		t.Fatalf("create first job: %v", err)
	}
	first.MarkFailed(domain.FailureInternal, "x")
	if err := s.FailJob(ctx, first); err != nil {
		t.Fatalf("fail first job: %v", err)
	}

	second := newTestJob(chapterID)
	if err := s.CreateJob(ctx, second); err != nil {
		t.Fatalf("create second job: %v", err)
	}

	latest, err := s.GetLatestJobByChapter(ctx, chapterID)
	if err != nil {
		t.Fatalf("get latest job: %v", err)
	}
	if latest.ID != second.ID {
		t.Errorf("latest = %s, want %s", latest.ID, second.ID)
	}
}

func TestFailInterruptedJobs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	chapterID := seedChapter(t, s)

	job := newTestJob(chapterID)
	if err := s.CreateJob(ctx, job); err != nil {
		t.Fatalf("create job: %v", err)
	}
	if _, err := s.StartJob(ctx, job.ID); err != nil {
		t.Fatalf("start job: %v", err)
	}

	n, err := s.FailInterruptedJobs(ctx, "server restarted")
	if err != nil {
		t.Fatalf("fail interrupted: %v", err)
	}
	if n != 1 {
		t.Errorf("failed %d jobs, want 1", n)
	}

	got, err := s.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.Status != domain.SynthesisStatusFailed || got.FailureReason != domain.FailureInternal {
		t.Errorf("job = (%s, %s), want (failed, internal)", got.Status, got.FailureReason)
	}

	// New generation is possible again.
	if err := s.CreateJob(ctx, newTestJob(chapterID)); err != nil {
		t.Errorf("create job after recovery: %v", err)
	}
}

// captureEmitter records emitted events for assertions.
type captureEmitter struct {
	events []sse.Event
}

func (c *captureEmitter) Emit(event any) {
	if e, ok := event.(sse.Event); ok {
		c.events = append(c.events, e)
	}
}

func TestJobLifecycle_EmitsEventsInOrder(t *testing.T) {
	s := newTestStore(t)
	emitter := &captureEmitter{}
	s.SetEmitter(emitter)

	ctx := context.Background()
	chapterID := seedChapter(t, s)

	job := newTestJob(chapterID)
	if err := s.CreateJob(ctx, job); err != nil {
		t.Fatalf("create job: %v", err)
	}
	if _, err := s.StartJob(ctx, job.ID); err != nil {
		t.Fatalf("start job: %v", err)
	}
	job.MarkCompleted("/audio/x.mp3", 10)
	if err := s.CompleteJob(ctx, job); err != nil {
		t.Fatalf("complete job: %v", err)
	}

	want := []sse.EventType{
		sse.EventSynthesisPending,
		sse.EventSynthesisProcessing,
		sse.EventSynthesisCompleted,
	}
	if len(emitter.events) != len(want) {
		t.Fatalf("emitted %d events, want %d", len(emitter.events), len(want))
	}
	for i, eventType := range want {
		if emitter.events[i].Type != eventType {
			t.Errorf("event[%d] = %s, want %s", i, emitter.events[i].Type, eventType)
		}
	}
}
