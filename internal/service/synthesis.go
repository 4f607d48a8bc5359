package service

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chapterlyapp/chapterly-server/internal/audio"
	"github.com/chapterlyapp/chapterly-server/internal/config"
	"github.com/chapterlyapp/chapterly-server/internal/domain"
	"github.com/chapterlyapp/chapterly-server/internal/errors"
	"github.com/chapterlyapp/chapterly-server/internal/id"
	"github.com/chapterlyapp/chapterly-server/internal/segment"
	"github.com/chapterlyapp/chapterly-server/internal/storage"
	"github.com/chapterlyapp/chapterly-server/internal/store"
	"github.com/chapterlyapp/chapterly-server/internal/tts"
)

// SynthesisService orchestrates chapter narration: segmentation, per-chunk
// synthesis, reassembly, publication, and the job state machine.
type SynthesisService struct {
	store       store.Store
	synthesizer tts.Synthesizer
	audioStore  storage.AudioStore
	config      config.SynthesisConfig
	logger      *slog.Logger

	// Pipeline lifecycle. Jobs run on the service context, not the request
	// context: generation continues after the caller's request returns.
	ctx    context.Context //nolint:containedctx // Context needed for pipeline lifecycle management
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSynthesisService creates a new synthesis service.
func NewSynthesisService(
	st store.Store,
	synthesizer tts.Synthesizer,
	audioStore storage.AudioStore,
	cfg config.SynthesisConfig,
	logger *slog.Logger,
) *SynthesisService {
	ctx, cancel := context.WithCancel(context.Background())

	return &SynthesisService{
		store:       st,
		synthesizer: synthesizer,
		audioStore:  audioStore,
		config:      cfg,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start recovers jobs left live by a previous process. A pending or
// processing row from a dead process will never make progress, so it is
// failed rather than resumed.
func (s *SynthesisService) Start() {
	n, err := s.store.FailInterruptedJobs(context.Background(), "server restarted during synthesis")
	if err != nil {
		s.logger.Error("failed to recover interrupted jobs", slog.Any("error", err))
		return
	}
	if n > 0 {
		s.logger.Info("recovered interrupted synthesis jobs", slog.Int("count", n))
	}
}

// Stop cancels running pipelines and waits for them to finish their
// terminal transitions.
func (s *SynthesisService) Stop() {
	s.logger.Info("stopping synthesis service")
	s.cancel()
	s.wg.Wait()
	s.logger.Info("synthesis service stopped")
}

// Generate starts narration for a chapter. Validation, authorization, and
// the live-job check happen synchronously; the pipeline itself runs in the
// background and reports through job transitions on the change feed.
//
// A repeat call for unchanged content whose latest job completed returns
// that job without re-synthesizing.
func (s *SynthesisService) Generate(ctx context.Context, userID, chapterID string, voice domain.VoiceProfile) (*domain.SynthesisJob, error) {
	chapter, err := s.store.GetChapter(ctx, chapterID)
	if err != nil {
		return nil, err
	}

	book, err := s.store.GetBook(ctx, chapter.BookID)
	if err != nil {
		return nil, err
	}
	if book.OwnerID != userID {
		return nil, errors.Forbidden("only the book owner can generate narration")
	}

	if strings.TrimSpace(chapter.Content) == "" {
		return nil, errors.Validation("chapter has no narratable text")
	}

	contentHash := domain.HashContent(chapter.Content, voice)

	latest, err := s.store.GetLatestJobByChapter(ctx, chapterID)
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}
	if latest != nil {
		if latest.IsLive() {
			return nil, errors.JobAlreadyActivef("synthesis already in progress for chapter %s", chapterID)
		}
		if latest.Status == domain.SynthesisStatusCompleted && latest.ContentHash == contentHash {
			s.logger.Debug("content unchanged, returning completed job",
				slog.String("chapter_id", chapterID),
				slog.String("job_id", latest.ID))
			return latest, nil
		}
	}

	jobID, err := id.Generate("job")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "generate job id")
	}

	job := &domain.SynthesisJob{
		ID:          jobID,
		ChapterID:   chapterID,
		Status:      domain.SynthesisStatusPending,
		Voice:       voice,
		ContentHash: contentHash,
		CreatedAt:   time.Now(),
	}

	// The partial unique index closes the race between the check above and
	// this insert: a concurrent Generate loses with JOB_ALREADY_ACTIVE.
	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	s.logger.Info("created synthesis job",
		slog.String("job_id", job.ID),
		slog.String("chapter_id", chapterID),
		slog.String("voice", string(voice)))

	s.wg.Add(1)
	go s.run(job, chapter)

	return job, nil
}

// JobStatus returns the latest job for a chapter.
func (s *SynthesisService) JobStatus(ctx context.Context, chapterID string) (*domain.SynthesisJob, error) {
	if _, err := s.store.GetChapter(ctx, chapterID); err != nil {
		return nil, err
	}
	return s.store.GetLatestJobByChapter(ctx, chapterID)
}

// run executes one job end to end and always leaves it terminal.
func (s *SynthesisService) run(job *domain.SynthesisJob, chapter *domain.Chapter) {
	defer s.wg.Done()

	ctx := s.ctx

	started, err := s.store.StartJob(ctx, job.ID)
	if err != nil {
		s.logger.Error("failed to start job",
			slog.String("job_id", job.ID),
			slog.Any("error", err))
		s.fail(job, errors.Wrap(err, errors.CodeInternal, "start job"))
		return
	}
	job = started

	chunks, err := segment.Split(chapter.Content, s.config.MaxChunkChars, s.config.MaxFragmentBytes)
	if err != nil {
		s.fail(job, err)
		return
	}

	s.logger.Info("synthesizing chapter",
		slog.String("job_id", job.ID),
		slog.String("chapter_id", chapter.ID),
		slog.Int("chunks", len(chunks)))

	parts, err := s.synthesizeChunks(ctx, chunks, job.Voice)
	if err != nil {
		s.fail(job, err)
		return
	}

	artifact, durationSeconds, err := audio.Assemble(parts)
	if err != nil {
		s.fail(job, err)
		return
	}

	audioURL, err := s.audioStore.Publish(ctx, chapter.ID, artifact)
	if err != nil {
		s.fail(job, err)
		return
	}

	job.MarkCompleted(audioURL, durationSeconds)
	if err := s.store.CompleteJob(ctx, job); err != nil {
		s.logger.Error("failed to complete job",
			slog.String("job_id", job.ID),
			slog.Any("error", err))
		return
	}

	s.logger.Info("synthesis completed",
		slog.String("job_id", job.ID),
		slog.String("chapter_id", chapter.ID),
		slog.String("audio_url", audioURL),
		slog.Int("duration_seconds", durationSeconds))
}

// synthesizeChunks voices all chunks through a bounded worker pool and
// returns the audio parts in chunk-index order. The first error cancels
// outstanding work.
func (s *SynthesisService) synthesizeChunks(ctx context.Context, chunks []segment.Chunk, voice domain.VoiceProfile) ([][]byte, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := s.config.MaxConcurrent
	if workers < 1 {
		workers = 1
	}
	if workers > len(chunks) {
		workers = len(chunks)
	}

	parts := make([][]byte, len(chunks))
	work := make(chan segment.Chunk)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	setErr := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		mu.Unlock()
	}

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for chunk := range work {
				data, err := s.synthesizer.Synthesize(ctx, chunk.Text, voice)
				if err != nil {
					setErr(errors.Wrapf(err, errorCode(err), "synthesize chunk %d", chunk.Index))
					return
				}
				// Each worker writes a distinct index; no lock needed.
				parts[chunk.Index] = data
			}
		}()
	}

	for _, chunk := range chunks {
		select {
		case work <- chunk:
		case <-ctx.Done():
		}
	}
	close(work)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return parts, nil
}

// fail records a terminal failure with its classified reason.
func (s *SynthesisService) fail(job *domain.SynthesisJob, err error) {
	reason := classifyFailure(err)

	s.logger.Error("synthesis failed",
		slog.String("job_id", job.ID),
		slog.String("chapter_id", job.ChapterID),
		slog.String("reason", string(reason)),
		slog.Any("error", err))

	job.MarkFailed(reason, err.Error())
	if failErr := s.store.FailJob(context.Background(), job); failErr != nil {
		s.logger.Error("failed to record job failure",
			slog.String("job_id", job.ID),
			slog.Any("error", failErr))
	}
}

// errorCode extracts the code from a domain error, defaulting to internal.
func errorCode(err error) errors.Code {
	var domainErr *errors.Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return errors.CodeInternal
}

// classifyFailure maps an error to the job's failure reason taxonomy.
func classifyFailure(err error) domain.FailureReason {
	switch errorCode(err) {
	case errors.CodeValidation:
		return domain.FailureValidation
	case errors.CodeSynthesis, errors.CodeIncompleteSynthesis:
		return domain.FailureSynthesisProvider
	case errors.CodeStorage:
		return domain.FailureStorageUpload
	default:
		return domain.FailureInternal
	}
}
