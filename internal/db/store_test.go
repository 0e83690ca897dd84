package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dedida26/library/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func mustBook(t *testing.T, s *Store, title string) int64 {
	t.Helper()
	id, err := s.CreateBook(context.Background(), models.Book{
		Title:         title,
		Author:        "Автор",
		PublishedDate: models.NewDate(2001, time.February, 3),
	})
	require.NoError(t, err)
	return id
}

func mustUser(t *testing.T, s *Store, name string) int64 {
	t.Helper()
	id, err := s.CreateUser(context.Background(), name, "hash")
	require.NoError(t, err)
	return id
}

func TestOpenRejectsBadInput(t *testing.T) {
	_, err := Open(DriverSQLite, "")
	assert.Error(t, err)

	_, err = Open("mysql", "whatever")
	assert.Error(t, err)
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "again.db")
	first, err := Open(DriverSQLite, path)
	require.NoError(t, err)
	mustBook(t, first, "Persisted")
	require.NoError(t, first.Close())

	second, err := Open(DriverSQLite, path)
	require.NoError(t, err)
	defer second.Close()

	books, err := second.ListBooks(context.Background(), BookFilter{})
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Persisted", books[0].Title)
}

func TestBookCRUD(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	id := mustBook(t, s, "Мастер и Маргарита")
	book, err := s.GetBook(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Мастер и Маргарита", book.Title)
	assert.Equal(t, "2001-02-03", book.PublishedDate.String())
	assert.False(t, book.IsReserved)

	book.Title = "Белая гвардия"
	book.IsReserved = true
	require.NoError(t, s.UpdateBook(ctx, book))

	got, err := s.GetBook(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, book, got)

	_, err = s.GetBook(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.UpdateBook(ctx, models.Book{ID: 999}), ErrNotFound)
	assert.ErrorIs(t, s.SetBookReserved(ctx, 999, true), ErrNotFound)
}

func TestListBooksFilter(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	a := mustBook(t, s, "A")
	b := mustBook(t, s, "B")
	require.NoError(t, s.SetBookReserved(ctx, b, true))

	all, err := s.ListBooks(ctx, BookFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, a, all[0].ID)

	reserved := true
	only, err := s.ListBooks(ctx, BookFilter{Reserved: &reserved})
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, b, only[0].ID)

	free := false
	only, err = s.ListBooks(ctx, BookFilter{Reserved: &free})
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, a, only[0].ID)
}

func TestListBooksEmptyIsNotNil(t *testing.T) {
	books, err := openTestStore(t).ListBooks(context.Background(), BookFilter{})
	require.NoError(t, err)
	assert.NotNil(t, books)
	assert.Empty(t, books)
}

func TestReservationsListAndDelete(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	book := mustBook(t, s, "Книга")
	other := mustBook(t, s, "Другая")
	alice := mustUser(t, s, "alice")
	bob := mustUser(t, s, "bob")

	insert := func(user, book int64, day int) {
		_, err := s.InsertReservation(ctx, models.Reservation{
			UserID:          user,
			BookID:          book,
			ReservationDate: models.NewDate(2024, time.January, day),
			IsActive:        true,
		})
		require.NoError(t, err)
	}
	insert(bob, book, 5)
	insert(alice, book, 1)
	insert(alice, other, 3)

	all, err := s.ListReservations(ctx, ReservationFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "2024-01-01", all[0].ReservationDate.String())
	assert.Equal(t, "alice", all[0].Username)
	assert.Equal(t, "Книга", all[0].BookTitle)
	assert.Equal(t, "Автор", all[0].BookAuthor)
	assert.True(t, all[0].IsActive)
	assert.Equal(t, "2024-01-05", all[2].ReservationDate.String())

	byBook, err := s.ListReservations(ctx, ReservationFilter{BookID: &book})
	require.NoError(t, err)
	assert.Len(t, byBook, 2)

	byUser, err := s.ListReservations(ctx, ReservationFilter{UserID: &alice})
	require.NoError(t, err)
	assert.Len(t, byUser, 2)

	both, err := s.ListReservations(ctx, ReservationFilter{BookID: &book, UserID: &bob})
	require.NoError(t, err)
	require.Len(t, both, 1)
	assert.Equal(t, "bob", both[0].Username)

	n, err := s.DeleteReservationsForBook(ctx, book)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	count, err := s.CountReservationsForBook(ctx, book)
	require.NoError(t, err)
	assert.Zero(t, count)

	count, err = s.CountReservationsForBook(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestReservationRequiresExistingBook(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	user := mustUser(t, s, "carol")

	_, err := s.InsertReservation(ctx, models.Reservation{UserID: user, BookID: 404, ReservationDate: models.Today()})
	assert.Error(t, err, "foreign keys must be enforced")
}

func TestWithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx *Store) error {
		mustBook(t, tx, "ghost")
		return boom
	})
	assert.ErrorIs(t, err, boom)

	books, err := s.ListBooks(ctx, BookFilter{})
	require.NoError(t, err)
	assert.Empty(t, books)

	require.NoError(t, s.WithTx(ctx, func(tx *Store) error {
		mustBook(t, tx, "real")
		return nil
	}))
	books, err = s.ListBooks(ctx, BookFilter{})
	require.NoError(t, err)
	assert.Len(t, books, 1)
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	id := mustUser(t, s, "dave")
	exists, err := s.UsernameExists(ctx, "dave")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = s.UsernameExists(ctx, "nobody")
	require.NoError(t, err)
	assert.False(t, exists)

	u, err := s.GetUserByUsername(ctx, "dave")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	require.NotNil(t, u.PasswordHash)
	assert.Equal(t, "hash", *u.PasswordHash)
	assert.Nil(t, u.TelegramID)
	assert.NotEmpty(t, u.CreatedAt)

	_, err = s.GetUser(ctx, 12345)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.CreateUser(ctx, "dave", "other")
	assert.Error(t, err, "username is unique")
}

func TestEnsureTelegramUser(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	first, err := s.EnsureTelegramUser(ctx, 42, "reader")
	require.NoError(t, err)
	again, err := s.EnsureTelegramUser(ctx, 42, "renamed")
	require.NoError(t, err)
	assert.Equal(t, first, again)

	u, err := s.GetUser(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "tg:renamed", u.Username)
	require.NotNil(t, u.TelegramID)
	assert.Equal(t, int64(42), *u.TelegramID)
	assert.Nil(t, u.PasswordHash)

	anon, err := s.EnsureTelegramUser(ctx, 7, "")
	require.NoError(t, err)
	u, err = s.GetUser(ctx, anon)
	require.NoError(t, err)
	assert.Equal(t, "tg:7", u.Username)
}

func TestEnsureTelegramUserReusedHandle(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	first, err := s.EnsureTelegramUser(ctx, 1, "alice")
	require.NoError(t, err)
	second, err := s.EnsureTelegramUser(ctx, 2, "alice")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	u, err := s.GetUser(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, "tg:2", u.Username)

	// Повторный вход того же аккаунта находит ту же запись.
	again, err := s.EnsureTelegramUser(ctx, 2, "alice")
	require.NoError(t, err)
	assert.Equal(t, second, again)

	u, err = s.GetUser(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "tg:alice", u.Username)
}

func TestTodoCascade(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	folder, err := s.CreateFolder(ctx, models.Folder{Name: "Дом"})
	require.NoError(t, err)
	page, err := s.CreatePage(ctx, models.Page{FolderID: folder, Title: "Покупки"})
	require.NoError(t, err)
	task, err := s.CreateTask(ctx, models.Task{PageID: page, Title: "Хлеб"})
	require.NoError(t, err)

	require.NoError(t, s.UpdateTask(ctx, models.Task{ID: task, PageID: page, Title: "Хлеб", IsDone: true}))
	got, err := s.GetTask(ctx, task)
	require.NoError(t, err)
	assert.True(t, got.IsDone)

	pages, err := s.ListPages(ctx, &folder)
	require.NoError(t, err)
	assert.Len(t, pages, 1)

	require.NoError(t, s.DeleteFolder(ctx, folder))

	_, err = s.GetPage(ctx, page)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetTask(ctx, task)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteFolder(ctx, folder), ErrNotFound)
}
