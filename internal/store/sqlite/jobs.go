package sqlite

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"github.com/chapterlyapp/chapterly-server/internal/domain"
	"github.com/chapterlyapp/chapterly-server/internal/errors"
	"github.com/chapterlyapp/chapterly-server/internal/sse"
)

// jobColumns is the ordered list of columns selected in job queries.
// Must match the scan order in scanJob.
const jobColumns = `id, chapter_id, status, voice_profile, content_hash,
	audio_url, duration_seconds, failure_reason, failure_detail,
	created_at, started_at, completed_at`

// scanJob scans a sql.Row (or sql.Rows via its Scan method) into a domain.SynthesisJob.
func scanJob(scanner interface{ Scan(dest ...any) error }) (*domain.SynthesisJob, error) {
	var j domain.SynthesisJob

	var (
		createdAt   string
		startedAt   sql.NullString
		completedAt sql.NullString
	)

	err := scanner.Scan(
		&j.ID,
		&j.ChapterID,
		&j.Status,
		&j.Voice,
		&j.ContentHash,
		&j.AudioURL,
		&j.DurationSeconds,
		&j.FailureReason,
		&j.FailureDetail,
		&createdAt,
		&startedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	if j.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if j.StartedAt, err = parseNullableTime(startedAt); err != nil {
		return nil, err
	}
	if j.CompletedAt, err = parseNullableTime(completedAt); err != nil {
		return nil, err
	}
	return &j, nil
}

// CreateJob inserts a new synthesis job in pending state.
// The partial unique index on live jobs makes this the durable guard for
// the one-live-job-per-chapter invariant: a violation returns
// errors.ErrJobAlreadyActive.
func (s *Store) CreateJob(ctx context.Context, job *domain.SynthesisJob) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO synthesis_jobs (
			id, chapter_id, status, voice_profile, content_hash,
			audio_url, duration_seconds, failure_reason, failure_detail,
			created_at, started_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		job.ChapterID,
		string(job.Status),
		string(job.Voice),
		job.ContentHash,
		job.AudioURL,
		job.DurationSeconds,
		string(job.FailureReason),
		job.FailureDetail,
		formatTime(job.CreatedAt),
		nullTimeString(job.StartedAt),
		nullTimeString(job.CompletedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return errors.JobAlreadyActivef("synthesis already in progress for chapter %s", job.ChapterID)
		}
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return errors.NotFoundf("chapter %s not found", job.ChapterID)
		}
		return errors.Wrap(err, errors.CodeInternal, "create job")
	}

	s.emitter.Emit(sse.NewJobStateEvent(job))
	return nil
}

// GetJob retrieves a synthesis job by ID.
// Returns errors.ErrNotFound if the job does not exist.
func (s *Store) GetJob(ctx context.Context, id string) (*domain.SynthesisJob, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM synthesis_jobs WHERE id = ?`, id)

	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFoundf("job %s not found", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "get job")
	}
	return job, nil
}

// GetLatestJobByChapter retrieves the most recent job for a chapter.
// Returns errors.ErrNotFound if the chapter has never had a job.
func (s *Store) GetLatestJobByChapter(ctx context.Context, chapterID string) (*domain.SynthesisJob, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM synthesis_jobs
		WHERE chapter_id = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		chapterID)

	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFoundf("no synthesis job for chapter %s", chapterID)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "get latest job")
	}
	return job, nil
}

// StartJob transitions a pending job to processing and returns the updated
// row. The guarded update keeps the transition monotonic: a job that is no
// longer pending is not restarted.
func (s *Store) StartJob(ctx context.Context, id string) (*domain.SynthesisJob, error) {
	startedAt := time.Now()

	result, err := s.db.ExecContext(ctx, `
		UPDATE synthesis_jobs SET status = ?, started_at = ?
		WHERE id = ? AND status = ?`,
		string(domain.SynthesisStatusProcessing),
		formatTime(startedAt),
		id,
		string(domain.SynthesisStatusPending),
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "start job")
	}

	n, err := result.RowsAffected()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "start job")
	}
	if n == 0 {
		if _, err := s.GetJob(ctx, id); err != nil {
			return nil, err
		}
		return nil, errors.Internalf("job %s is not pending", id)
	}

	job, err := s.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}

	s.emitter.Emit(sse.NewJobStateEvent(job))
	return job, nil
}

// CompleteJob transitions a processing job to completed and publishes the
// artifact onto its chapter. Both writes happen in one transaction so a
// reader never sees a completed job whose chapter lacks the audio URL.
func (s *Store) CompleteJob(ctx context.Context, job *domain.SynthesisJob) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "begin complete job")
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE synthesis_jobs SET
			status = ?, audio_url = ?, duration_seconds = ?, completed_at = ?
		WHERE id = ? AND status = ?`,
		string(domain.SynthesisStatusCompleted),
		job.AudioURL,
		job.DurationSeconds,
		nullTimeString(job.CompletedAt),
		job.ID,
		string(domain.SynthesisStatusProcessing),
	)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "complete job")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "complete job")
	}
	if n == 0 {
		return errors.Internalf("job %s is not processing", job.ID)
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx, `
		UPDATE chapters SET
			audio_url = ?, audio_duration_seconds = ?, updated_at = ?
		WHERE id = ?`,
		job.AudioURL,
		job.DurationSeconds,
		formatTime(now),
		job.ChapterID,
	)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "update chapter audio")
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "commit complete job")
	}

	s.emitter.Emit(sse.NewJobStateEvent(job))
	return nil
}

// FailJob transitions a live job to failed with its classified reason.
// The chapter keeps whatever audio it had from a previous completed job.
func (s *Store) FailJob(ctx context.Context, job *domain.SynthesisJob) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE synthesis_jobs SET
			status = ?, failure_reason = ?, failure_detail = ?, completed_at = ?
		WHERE id = ? AND status IN (?, ?)`,
		string(domain.SynthesisStatusFailed),
		string(job.FailureReason),
		job.FailureDetail,
		nullTimeString(job.CompletedAt),
		job.ID,
		string(domain.SynthesisStatusPending),
		string(domain.SynthesisStatusProcessing),
	)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "fail job")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "fail job")
	}
	if n == 0 {
		return errors.Internalf("job %s is not live", job.ID)
	}

	s.emitter.Emit(sse.NewJobStateEvent(job))
	return nil
}

// ListJobsByStatus returns all jobs with the given status, oldest first.
func (s *Store) ListJobsByStatus(ctx context.Context, status domain.SynthesisStatus) ([]*domain.SynthesisJob, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM synthesis_jobs
		WHERE status = ? ORDER BY created_at ASC`,
		string(status))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "list jobs")
	}
	defer rows.Close()

	var jobs []*domain.SynthesisJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "scan job")
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "list jobs")
	}
	return jobs, nil
}

// FailInterruptedJobs marks every live job as failed with an internal
// reason. Called once on startup: a job left pending or processing by a
// crashed process will never make progress, and leaving it live would
// block regeneration forever.
func (s *Store) FailInterruptedJobs(ctx context.Context, detail string) (int, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE synthesis_jobs SET
			status = ?, failure_reason = ?, failure_detail = ?, completed_at = ?
		WHERE status IN (?, ?)`,
		string(domain.SynthesisStatusFailed),
		string(domain.FailureInternal),
		detail,
		formatTime(time.Now()),
		string(domain.SynthesisStatusPending),
		string(domain.SynthesisStatusProcessing),
	)
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeInternal, "fail interrupted jobs")
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeInternal, "fail interrupted jobs")
	}
	if n > 0 {
		s.logger.Warn("failed interrupted synthesis jobs", slog.Int64("count", n))
	}
	return int(n), nil
}
