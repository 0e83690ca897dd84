package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dedida26/library/internal/db"
	"github.com/dedida26/library/internal/logging"
	"github.com/dedida26/library/internal/models"
)

func newTestStore(t *testing.T) *db.Store {
	t.Helper()
	store, err := db.Open(db.DriverSQLite, filepath.Join(t.TempDir(), "library.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestLibrary(t *testing.T) (*Library, *db.Store) {
	t.Helper()
	store := newTestStore(t)
	lib := NewLibrary(store, logging.Discard())
	lib.today = func() models.Date { return models.NewDate(2024, time.June, 1) }
	return lib, store
}

func addUser(t *testing.T, store *db.Store, name string) int64 {
	t.Helper()
	id, err := store.CreateUser(context.Background(), name, "x")
	require.NoError(t, err)
	return id
}

func addBook(t *testing.T, lib *Library) models.Book {
	t.Helper()
	book, err := lib.AddBook(context.Background(), BookInput{
		Title:         "Война и мир",
		Author:        "Л. Толстой",
		PublishedDate: "1869-01-01",
	})
	require.NoError(t, err)
	return book
}

func reservationCount(t *testing.T, store *db.Store, bookID int64) int {
	t.Helper()
	n, err := store.CountReservationsForBook(context.Background(), bookID)
	require.NoError(t, err)
	return n
}

func TestReserveThenEditClearsReservations(t *testing.T) {
	ctx := context.Background()
	lib, store := newTestLibrary(t)
	u1 := addUser(t, store, "u1")
	book := addBook(t, lib)
	require.False(t, book.IsReserved)

	r, err := lib.Reserve(ctx, book.ID, u1, ReserveInput{ReservationDate: "2024-01-01"})
	require.NoError(t, err)
	assert.Equal(t, u1, r.UserID)
	assert.Equal(t, book.ID, r.BookID)
	assert.Equal(t, "2024-01-01", r.ReservationDate.String())
	assert.True(t, r.IsActive)

	got, err := lib.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.True(t, got.IsReserved)
	assert.Equal(t, 1, reservationCount(t, store, book.ID))

	edited, err := lib.EditBook(ctx, book.ID, EditBookInput{
		BookInput:  BookInput{Title: got.Title, Author: got.Author, PublishedDate: got.PublishedDate.String()},
		IsReserved: false,
	})
	require.NoError(t, err)
	assert.False(t, edited.IsReserved)
	assert.Zero(t, reservationCount(t, store, book.ID))

	got, err = lib.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.False(t, got.IsReserved)
}

func TestReserveTwiceKeepsBothRows(t *testing.T) {
	ctx := context.Background()
	lib, store := newTestLibrary(t)
	u1 := addUser(t, store, "u1")
	u2 := addUser(t, store, "u2")
	book := addBook(t, lib)

	_, err := lib.Reserve(ctx, book.ID, u1, ReserveInput{ReservationDate: "2024-01-01"})
	require.NoError(t, err)
	_, err = lib.Reserve(ctx, book.ID, u2, ReserveInput{ReservationDate: "2024-01-02"})
	require.NoError(t, err)
	_, err = lib.Reserve(ctx, book.ID, u2, ReserveInput{ReservationDate: "2024-01-02"})
	require.NoError(t, err)

	assert.Equal(t, 3, reservationCount(t, store, book.ID))
}

func TestEditClearsReservationsOfAllUsers(t *testing.T) {
	ctx := context.Background()
	lib, store := newTestLibrary(t)
	book := addBook(t, lib)
	other := addBook(t, lib)
	for _, name := range []string{"a", "b", "c"} {
		_, err := lib.Reserve(ctx, book.ID, addUser(t, store, name), ReserveInput{})
		require.NoError(t, err)
	}
	_, err := lib.Reserve(ctx, other.ID, addUser(t, store, "d"), ReserveInput{})
	require.NoError(t, err)

	_, err = lib.EditBook(ctx, book.ID, EditBookInput{
		BookInput: BookInput{Title: "Новое", Author: "Автор", PublishedDate: "2000-01-01"},
	})
	require.NoError(t, err)

	assert.Zero(t, reservationCount(t, store, book.ID))
	assert.Equal(t, 1, reservationCount(t, store, other.ID), "other books are untouched")
}

func TestEditKeepingReservedFlagKeepsReservations(t *testing.T) {
	ctx := context.Background()
	lib, store := newTestLibrary(t)
	book := addBook(t, lib)
	_, err := lib.Reserve(ctx, book.ID, addUser(t, store, "u"), ReserveInput{})
	require.NoError(t, err)

	edited, err := lib.EditBook(ctx, book.ID, EditBookInput{
		BookInput:  BookInput{Title: "Renamed", Author: "Someone", PublishedDate: "1999-09-09"},
		IsReserved: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", edited.Title)
	assert.Equal(t, 1, reservationCount(t, store, book.ID))
}

func TestReserveDefaultsToToday(t *testing.T) {
	lib, store := newTestLibrary(t)
	book := addBook(t, lib)

	r, err := lib.Reserve(context.Background(), book.ID, addUser(t, store, "u"), ReserveInput{})
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01", r.ReservationDate.String())
}

func TestReserveErrors(t *testing.T) {
	ctx := context.Background()
	lib, store := newTestLibrary(t)
	u1 := addUser(t, store, "u1")
	book := addBook(t, lib)

	_, err := lib.Reserve(ctx, 999, u1, ReserveInput{ReservationDate: "2024-01-01"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = lib.Reserve(ctx, book.ID, u1, ReserveInput{ReservationDate: "01/02/2024"})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Fields, "reservation_date")

	_, err = lib.Reserve(ctx, book.ID, 0, ReserveInput{})
	assert.ErrorIs(t, err, ErrAuthentication)

	// Пользователя с таким id нет в базе.
	_, err = lib.Reserve(ctx, book.ID, 4242, ReserveInput{})
	assert.ErrorIs(t, err, ErrAuthentication)
	assert.NotErrorIs(t, err, ErrNotFound)

	assert.Zero(t, reservationCount(t, store, book.ID))
	got, err := lib.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.False(t, got.IsReserved, "failed reservations leave the flag alone")
}

func TestAddBookValidation(t *testing.T) {
	lib, _ := newTestLibrary(t)
	long := make([]rune, 101)
	for i := range long {
		long[i] = 'я'
	}

	_, err := lib.AddBook(context.Background(), BookInput{
		Title:         "   ",
		Author:        string(long),
		PublishedDate: "not a date",
	})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "обязательное поле", ve.Fields["title"])
	assert.Contains(t, ve.Fields, "author")
	assert.Contains(t, ve.Fields, "published_date")

	books, err := lib.ListBooks(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestEditMissingBook(t *testing.T) {
	lib, _ := newTestLibrary(t)
	_, err := lib.EditBook(context.Background(), 42, EditBookInput{
		BookInput: BookInput{Title: "T", Author: "A", PublishedDate: "2020-02-02"},
	})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = lib.GetBook(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEditCanSetFlagWithoutReservation(t *testing.T) {
	lib, store := newTestLibrary(t)
	book := addBook(t, lib)

	edited, err := lib.EditBook(context.Background(), book.ID, EditBookInput{
		BookInput:  BookInput{Title: book.Title, Author: book.Author, PublishedDate: book.PublishedDate.String()},
		IsReserved: true,
	})
	require.NoError(t, err)
	assert.True(t, edited.IsReserved)
	assert.Zero(t, reservationCount(t, store, book.ID))
}

func TestListReservationsOrderedByDate(t *testing.T) {
	ctx := context.Background()
	lib, store := newTestLibrary(t)
	book := addBook(t, lib)
	u := addUser(t, store, "reader")

	for _, d := range []string{"2024-03-01", "2024-01-01", "2024-02-01"} {
		_, err := lib.Reserve(ctx, book.ID, u, ReserveInput{ReservationDate: d})
		require.NoError(t, err)
	}

	items, err := lib.ListReservations(ctx, db.ReservationFilter{UserID: &u})
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "2024-01-01", items[0].ReservationDate.String())
	assert.Equal(t, "2024-02-01", items[1].ReservationDate.String())
	assert.Equal(t, "2024-03-01", items[2].ReservationDate.String())
	assert.Equal(t, "Война и мир", items[0].BookTitle)
	assert.Equal(t, "reader", items[0].Username)
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"b": "two", "a": "one"}}
	assert.Equal(t, "validation failed: a: one; b: two", err.Error())
}
