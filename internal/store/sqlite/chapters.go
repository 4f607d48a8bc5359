package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/chapterlyapp/chapterly-server/internal/domain"
	"github.com/chapterlyapp/chapterly-server/internal/errors"
)

// chapterColumns is the ordered list of columns selected in chapter queries.
// Must match the scan order in scanChapter.
const chapterColumns = `id, book_id, title, position, content,
	audio_url, audio_duration_seconds, created_at, updated_at`

// scanChapter scans a sql.Row (or sql.Rows via its Scan method) into a domain.Chapter.
func scanChapter(scanner interface{ Scan(dest ...any) error }) (*domain.Chapter, error) {
	var c domain.Chapter

	var (
		audioURL  sql.NullString
		duration  sql.NullInt64
		createdAt string
		updatedAt string
	)

	err := scanner.Scan(
		&c.ID,
		&c.BookID,
		&c.Title,
		&c.Position,
		&c.Content,
		&audioURL,
		&duration,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if audioURL.Valid {
		c.AudioURL = &audioURL.String
	}
	if duration.Valid {
		d := int(duration.Int64)
		c.AudioDurationSeconds = &d
	}

	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateChapter inserts a new chapter.
func (s *Store) CreateChapter(ctx context.Context, chapter *domain.Chapter) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chapters (
			id, book_id, title, position, content,
			audio_url, audio_duration_seconds, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		chapter.ID,
		chapter.BookID,
		chapter.Title,
		chapter.Position,
		chapter.Content,
		nullableString(chapter.AudioURL),
		nullableInt(chapter.AudioDurationSeconds),
		formatTime(chapter.CreatedAt),
		formatTime(chapter.UpdatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return errors.NotFoundf("book %s not found", chapter.BookID)
		}
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return errors.Internalf("chapter %s already exists", chapter.ID)
		}
		return errors.Wrap(err, errors.CodeInternal, "create chapter")
	}
	return nil
}

// GetChapter retrieves a chapter by ID.
// Returns errors.ErrNotFound if the chapter does not exist.
func (s *Store) GetChapter(ctx context.Context, id string) (*domain.Chapter, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+chapterColumns+` FROM chapters WHERE id = ?`, id)

	chapter, err := scanChapter(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFoundf("chapter %s not found", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "get chapter")
	}
	return chapter, nil
}

// ListChaptersByBook returns all chapters of a book ordered by position.
func (s *Store) ListChaptersByBook(ctx context.Context, bookID string) ([]*domain.Chapter, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+chapterColumns+` FROM chapters
		WHERE book_id = ? ORDER BY position ASC`, bookID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "list chapters")
	}
	defer rows.Close()

	var chapters []*domain.Chapter
	for rows.Next() {
		chapter, err := scanChapter(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "scan chapter")
		}
		chapters = append(chapters, chapter)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "list chapters")
	}
	return chapters, nil
}
