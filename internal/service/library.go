package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dedida26/library/internal/db"
	"github.com/dedida26/library/internal/models"
)

// BookInput: поля книги из формы добавления.
type BookInput struct {
	Title         string `json:"title" validate:"required,max=100"`
	Author        string `json:"author" validate:"required,max=100"`
	PublishedDate string `json:"published_date" validate:"required,isodate"`
}

// EditBookInput описывает форму редактирования: те же поля плюс флаг резервации.
type EditBookInput struct {
	BookInput
	IsReserved bool `json:"is_reserved"`
}

// ReserveInput описывает форму резервирования. Пустая дата означает "сегодня".
type ReserveInput struct {
	ReservationDate string `json:"reservation_date" validate:"omitempty,isodate"`
}

// Library ведёт каталог книг и журнал резерваций.
type Library struct {
	store *db.Store
	log   *slog.Logger
	today func() models.Date
}

func NewLibrary(store *db.Store, logger *slog.Logger) *Library {
	return &Library{
		store: store,
		log:   logger,
		today: models.Today,
	}
}

func (l *Library) ListBooks(ctx context.Context, reserved *bool) ([]models.Book, error) {
	return l.store.ListBooks(ctx, db.BookFilter{Reserved: reserved})
}

func (l *Library) GetBook(ctx context.Context, id int64) (models.Book, error) {
	book, err := l.store.GetBook(ctx, id)
	if err != nil {
		return models.Book{}, notFound(err, "book %d", id)
	}
	return book, nil
}

// AddBook добавляет книгу. Новая книга всегда свободна.
func (l *Library) AddBook(ctx context.Context, in BookInput) (models.Book, error) {
	book, err := in.toBook()
	if err != nil {
		return models.Book{}, err
	}

	book.ID, err = l.store.CreateBook(ctx, book)
	if err != nil {
		return models.Book{}, err
	}

	l.log.InfoContext(ctx, "book added", "book_id", book.ID, "title", book.Title)
	return book, nil
}

// EditBook обновляет книгу. Если флаг резервации снят, все резервации книги
// удаляются в той же транзакции, чьи бы они ни были.
//
// Установка флага без резервации допускается: сам флаг выставляется
// только в Reserve.
func (l *Library) EditBook(ctx context.Context, id int64, in EditBookInput) (models.Book, error) {
	book, err := in.toBook()
	if err != nil {
		return models.Book{}, err
	}
	book.ID = id
	book.IsReserved = in.IsReserved

	var removed int64
	err = l.store.WithTx(ctx, func(tx *db.Store) error {
		if err := tx.UpdateBook(ctx, book); err != nil {
			return notFound(err, "book %d", id)
		}
		if book.IsReserved {
			return nil
		}
		n, err := tx.DeleteReservationsForBook(ctx, id)
		removed = n
		return err
	})
	if err != nil {
		return models.Book{}, err
	}

	l.log.InfoContext(ctx, "book edited", "book_id", id, "is_reserved", book.IsReserved, "reservations_removed", removed)
	return book, nil
}

// Reserve создаёт резервацию и отмечает книгу зарезервированной, одной
// транзакцией. Повторное резервирование уже занятой книги не запрещено и
// добавляет ещё одну запись.
func (l *Library) Reserve(ctx context.Context, bookID int64, userID int64, in ReserveInput) (models.Reservation, error) {
	if userID <= 0 {
		return models.Reservation{}, fmt.Errorf("reserve book %d: %w", bookID, ErrAuthentication)
	}
	if err := validateStruct(in); err != nil {
		return models.Reservation{}, err
	}

	date := l.today()
	if in.ReservationDate != "" {
		parsed, err := models.ParseDate(in.ReservationDate)
		if err != nil {
			return models.Reservation{}, fieldError("reservation_date", err.Error())
		}
		date = parsed
	}

	r := models.Reservation{
		UserID:          userID,
		BookID:          bookID,
		ReservationDate: date,
		IsActive:        true,
	}

	err := l.store.WithTx(ctx, func(tx *db.Store) error {
		// Сессия может пережить пользователя (например, после сброса базы).
		if _, err := tx.GetUser(ctx, userID); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return fmt.Errorf("reserve book %d: user %d: %w", bookID, userID, ErrAuthentication)
			}
			return err
		}

		book, err := tx.GetBook(ctx, bookID)
		if err != nil {
			return notFound(err, "book %d", bookID)
		}
		if book.IsReserved {
			l.log.WarnContext(ctx, "book is already reserved, adding another reservation", "book_id", bookID, "user_id", userID)
		}

		if r.ID, err = tx.InsertReservation(ctx, r); err != nil {
			return err
		}
		return tx.SetBookReserved(ctx, bookID, true)
	})
	if err != nil {
		return models.Reservation{}, err
	}

	l.log.InfoContext(ctx, "book reserved", "book_id", bookID, "user_id", userID, "reservation_id", r.ID, "date", date.String())
	return r, nil
}

func (l *Library) ListReservations(ctx context.Context, f db.ReservationFilter) ([]models.ReservationView, error) {
	return l.store.ListReservations(ctx, f)
}

func (in BookInput) toBook() (models.Book, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Author = strings.TrimSpace(in.Author)
	if err := validateStruct(in); err != nil {
		return models.Book{}, err
	}
	published, err := models.ParseDate(in.PublishedDate)
	if err != nil {
		return models.Book{}, fieldError("published_date", err.Error())
	}
	return models.Book{
		Title:         in.Title,
		Author:        in.Author,
		PublishedDate: published,
	}, nil
}
