package db

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/dedida26/library/internal/models"
)

// ReservationFilter ограничивает список резерваций. Nil-поля не фильтруют.
type ReservationFilter struct {
	BookID *int64
	UserID *int64
}

func (s *Store) InsertReservation(ctx context.Context, r models.Reservation) (int64, error) {
	id, err := s.insert(ctx, `
INSERT INTO reservations (user_id, book_id, reservation_date, is_active)
VALUES (?, ?, ?, ?)
RETURNING id
`, r.UserID, r.BookID, r.ReservationDate, r.IsActive)
	if err != nil {
		return 0, fmt.Errorf("ошибка вставки резервации: %w", err)
	}
	return id, nil
}

// DeleteReservationsForBook удаляет все резервации книги, независимо от владельца.
func (s *Store) DeleteReservationsForBook(ctx context.Context, bookID int64) (int64, error) {
	n, err := s.exec(ctx, `DELETE FROM reservations WHERE book_id = ?`, bookID)
	if err != nil {
		return 0, fmt.Errorf("ошибка удаления резерваций: %w", err)
	}
	return n, nil
}

func (s *Store) CountReservationsForBook(ctx context.Context, bookID int64) (int, error) {
	var n int
	if err := s.get(ctx, &n, `SELECT COUNT(*) FROM reservations WHERE book_id = ?`, bookID); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта резерваций: %w", err)
	}
	return n, nil
}

// ListReservations возвращает резервации вместе с книгой и пользователем,
// по дате резервирования.
func (s *Store) ListReservations(ctx context.Context, f ReservationFilter) ([]models.ReservationView, error) {
	ds := s.dialect.From(goqu.T("reservations").As("r")).
		Join(goqu.T("books").As("b"), goqu.On(goqu.I("b.id").Eq(goqu.I("r.book_id")))).
		Join(goqu.T("users").As("u"), goqu.On(goqu.I("u.id").Eq(goqu.I("r.user_id")))).
		Select(
			goqu.I("r.id"),
			goqu.I("r.user_id"),
			goqu.I("r.book_id"),
			goqu.I("r.reservation_date"),
			goqu.I("r.is_active"),
			goqu.I("u.username"),
			goqu.I("b.title").As("book_title"),
			goqu.I("b.author").As("book_author"),
		).
		Order(goqu.I("r.reservation_date").Asc(), goqu.I("r.id").Asc())

	if f.BookID != nil {
		ds = ds.Where(goqu.I("r.book_id").Eq(*f.BookID))
	}
	if f.UserID != nil {
		ds = ds.Where(goqu.I("r.user_id").Eq(*f.UserID))
	}

	items := make([]models.ReservationView, 0)
	if err := s.selectDataset(ctx, &items, ds); err != nil {
		return nil, fmt.Errorf("ошибка чтения резерваций: %w", err)
	}
	return items, nil
}
