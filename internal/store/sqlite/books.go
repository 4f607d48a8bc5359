package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/chapterlyapp/chapterly-server/internal/domain"
	"github.com/chapterlyapp/chapterly-server/internal/errors"
)

// CreateBook inserts a new book.
func (s *Store) CreateBook(ctx context.Context, book *domain.Book) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO books (id, owner_id, title, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		book.ID,
		book.OwnerID,
		book.Title,
		formatTime(book.CreatedAt),
		formatTime(book.UpdatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return errors.Internalf("book %s already exists", book.ID)
		}
		return errors.Wrap(err, errors.CodeInternal, "create book")
	}
	return nil
}

// GetBook retrieves a book by ID.
// Returns errors.ErrNotFound if the book does not exist.
func (s *Store) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, title, created_at, updated_at
		FROM books WHERE id = ?`, id)

	var (
		b         domain.Book
		createdAt string
		updatedAt string
	)
	err := row.Scan(&b.ID, &b.OwnerID, &b.Title, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NotFoundf("book %s not found", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "get book")
	}

	if b.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "parse book created_at")
	}
	if b.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "parse book updated_at")
	}
	return &b, nil
}
