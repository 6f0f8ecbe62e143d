package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperifyio/litarchive/internal/archive"
)

// Test helper: open a store in a temp dir
func createTestStore(t *testing.T) *Store {
	s, err := Open(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err, "should open store")
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleArchive(at time.Time) *archive.AuthorArchive {
	a := archive.New("Аркадий Драгомощенко", at)
	a.Add(archive.Collection{
		Title: "Описание",
		URL:   "http://www.vavilon.ru/texts/dragom1.html",
		Items: []archive.ContentItem{
			{ItemTitle: "Первое", Text: "Один\n\nДва"},
			{ItemTitle: "Второе", Text: "Три"},
		},
	})
	a.Add(archive.Collection{Title: "Пустая", URL: "http://www.vavilon.ru/texts/dragom2.html"})
	return a
}

func TestSaveLoadArchive(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	want := sampleArchive(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))

	id, err := s.SaveArchive(ctx, want, "http://www.vavilon.ru/texts/dragomot0.html")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)

	got, err := s.LoadArchive(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, want.Author, got.Author)
	assert.True(t, want.CollectedAt.Equal(got.CollectedAt))
	assert.Equal(t, want.Books, got.Books, "books and items keep order; empty books stay empty")
}

func TestLoadArchive_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.LoadArchive(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListArchives(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	empty, err := s.ListArchives(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	older, err := s.SaveArchive(ctx, sampleArchive(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)), "u")
	require.NoError(t, err)
	newer, err := s.SaveArchive(ctx, sampleArchive(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)), "u")
	require.NoError(t, err)

	list, err := s.ListArchives(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer, list[0].ID)
	assert.Equal(t, older, list[1].ID)
	assert.Equal(t, 2, list[0].Books)
	assert.Equal(t, 2, list[0].Items)
	assert.Equal(t, "u", list[0].AuthorURL)
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.db")
	s, err := Open(path)
	require.NoError(t, err)
	id, err := s.SaveArchive(context.Background(), sampleArchive(time.Now()), "u")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	got, err := s2.LoadArchive(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, got.Books, 2)
}

func TestLoadArchive_AllBooksInOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	a := archive.New("Автор", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	for i := 0; i < 25; i++ {
		a.Add(archive.Collection{
			Title: fmt.Sprintf("Книга %02d", i),
			URL:   fmt.Sprintf("http://example.org/dragom%d.html", i),
			Items: []archive.ContentItem{{ItemTitle: "Текст", Text: fmt.Sprintf("строка %d", i)}},
		})
	}
	id, err := s.SaveArchive(ctx, a, "http://example.org/")
	require.NoError(t, err)

	got, err := s.LoadArchive(ctx, id)
	require.NoError(t, err)
	require.Len(t, got.Books, 25)
	for i, b := range got.Books {
		assert.Equal(t, fmt.Sprintf("Книга %02d", i), b.Title)
		require.Len(t, b.Items, 1)
		assert.Equal(t, fmt.Sprintf("строка %d", i), b.Items[0].Text)
	}
}

func TestLoadArchive_CanceledContext(t *testing.T) {
	s := createTestStore(t)
	id, err := s.SaveArchive(context.Background(), sampleArchive(time.Now()), "http://example.org/")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.LoadArchive(ctx, id)
	assert.Error(t, err, "a canceled load must not return a truncated archive")
}
