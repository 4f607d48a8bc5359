package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/chapterlyapp/chapterly-server/internal/domain"
	"github.com/chapterlyapp/chapterly-server/internal/errors"
	"github.com/chapterlyapp/chapterly-server/internal/id"
	"github.com/chapterlyapp/chapterly-server/internal/store"
)

// ChapterService manages books and their chapters.
type ChapterService struct {
	store  store.Store
	logger *slog.Logger
}

// NewChapterService creates a new chapter service.
func NewChapterService(st store.Store, logger *slog.Logger) *ChapterService {
	return &ChapterService{
		store:  st,
		logger: logger,
	}
}

// CreateBook creates a book owned by the calling user.
func (s *ChapterService) CreateBook(ctx context.Context, ownerID, title string) (*domain.Book, error) {
	bookID, err := id.Generate("bok")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "generate book id")
	}

	now := time.Now()
	book := &domain.Book{
		ID:        bookID,
		OwnerID:   ownerID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateBook(ctx, book); err != nil {
		return nil, err
	}

	s.logger.Info("created book",
		slog.String("book_id", book.ID),
		slog.String("owner_id", ownerID))
	return book, nil
}

// CreateChapter adds a chapter to a book. Only the book owner may add
// chapters.
func (s *ChapterService) CreateChapter(ctx context.Context, userID, bookID, title string, position int, content string) (*domain.Chapter, error) {
	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if book.OwnerID != userID {
		return nil, errors.Forbidden("only the book owner can add chapters")
	}

	chapterID, err := id.Generate("chp")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "generate chapter id")
	}

	now := time.Now()
	chapter := &domain.Chapter{
		ID:        chapterID,
		BookID:    bookID,
		Title:     title,
		Position:  position,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateChapter(ctx, chapter); err != nil {
		return nil, err
	}

	s.logger.Info("created chapter",
		slog.String("chapter_id", chapter.ID),
		slog.String("book_id", bookID),
		slog.Int("position", position))
	return chapter, nil
}

// GetChapter retrieves a chapter by ID.
func (s *ChapterService) GetChapter(ctx context.Context, chapterID string) (*domain.Chapter, error) {
	return s.store.GetChapter(ctx, chapterID)
}

// ListChapters returns a book's chapters in reading order.
func (s *ChapterService) ListChapters(ctx context.Context, bookID string) ([]*domain.Chapter, error) {
	if _, err := s.store.GetBook(ctx, bookID); err != nil {
		return nil, err
	}
	return s.store.ListChaptersByBook(ctx, bookID)
}
