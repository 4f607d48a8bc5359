package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chapterlyapp/chapterly-server/internal/errors"
	"github.com/chapterlyapp/chapterly-server/internal/store/sqlite"
)

func newChapterService(t *testing.T) *ChapterService {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return NewChapterService(st, logger)
}

func TestCreateChapter_OwnerOnly(t *testing.T) {
	svc := newChapterService(t)
	ctx := context.Background()

	book, err := svc.CreateBook(ctx, "usr-owner", "My Book")
	require.NoError(t, err)

	_, err = svc.CreateChapter(ctx, "usr-other", book.ID, "Intruder", 1, "text")
	assert.True(t, errors.Is(err, errors.ErrForbidden), "got %v", err)

	chapter, err := svc.CreateChapter(ctx, "usr-owner", book.ID, "Chapter One", 1, "text")
	require.NoError(t, err)
	assert.Equal(t, book.ID, chapter.BookID)
}

func TestListChapters(t *testing.T) {
	svc := newChapterService(t)
	ctx := context.Background()

	book, err := svc.CreateBook(ctx, "usr-owner", "My Book")
	require.NoError(t, err)

	for i := 3; i >= 1; i-- {
		_, err := svc.CreateChapter(ctx, "usr-owner", book.ID, "Chapter", i, "text")
		require.NoError(t, err)
	}

	chapters, err := svc.ListChapters(ctx, book.ID)
	require.NoError(t, err)
	require.Len(t, chapters, 3)
	for i, chapter := range chapters {
		assert.Equal(t, i+1, chapter.Position)
	}

	_, err = svc.ListChapters(ctx, "bok-missing")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}
