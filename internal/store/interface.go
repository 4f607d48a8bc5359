// Package store defines the persistence interface for Chapterly.
package store

import (
	"context"

	"github.com/chapterlyapp/chapterly-server/internal/domain"
)

// Store is the persistence interface for books, chapters, and synthesis jobs.
// Implementations return errors from internal/errors: ErrNotFound for
// missing rows, ErrJobAlreadyActive when the live-job invariant would be
// violated.
type Store interface {
	// Books
	CreateBook(ctx context.Context, book *domain.Book) error
	GetBook(ctx context.Context, id string) (*domain.Book, error)

	// Chapters
	CreateChapter(ctx context.Context, chapter *domain.Chapter) error
	GetChapter(ctx context.Context, id string) (*domain.Chapter, error)
	ListChaptersByBook(ctx context.Context, bookID string) ([]*domain.Chapter, error)

	// Synthesis jobs
	CreateJob(ctx context.Context, job *domain.SynthesisJob) error
	GetJob(ctx context.Context, id string) (*domain.SynthesisJob, error)
	GetLatestJobByChapter(ctx context.Context, chapterID string) (*domain.SynthesisJob, error)
	StartJob(ctx context.Context, id string) (*domain.SynthesisJob, error)
	CompleteJob(ctx context.Context, job *domain.SynthesisJob) error
	FailJob(ctx context.Context, job *domain.SynthesisJob) error
	ListJobsByStatus(ctx context.Context, status domain.SynthesisStatus) ([]*domain.SynthesisJob, error)
	FailInterruptedJobs(ctx context.Context, detail string) (int, error)

	SetEmitter(emitter EventEmitter)
	Close() error
}

// EventEmitter receives change events after the write that caused them
// has committed.
type EventEmitter interface {
	Emit(event any)
}

// NoopEmitter is a no-op implementation of EventEmitter for testing.
type NoopEmitter struct{}

func (NoopEmitter) Emit(_ any) {}

// NewNoopEmitter creates a new no-op emitter for testing.
func NewNoopEmitter() EventEmitter { return NoopEmitter{} }
