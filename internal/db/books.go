package db

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/dedida26/library/internal/models"
)

// BookFilter ограничивает выборку книг. Nil-поля не фильтруют.
type BookFilter struct {
	Reserved *bool
}

const bookColumns = `id, title, author, published_date, is_reserved`

func (s *Store) CreateBook(ctx context.Context, b models.Book) (int64, error) {
	id, err := s.insert(ctx, `
INSERT INTO books (title, author, published_date, is_reserved)
VALUES (?, ?, ?, ?)
RETURNING id
`, b.Title, b.Author, b.PublishedDate, b.IsReserved)
	if err != nil {
		return 0, fmt.Errorf("ошибка вставки книги: %w", err)
	}
	return id, nil
}

func (s *Store) GetBook(ctx context.Context, id int64) (models.Book, error) {
	var b models.Book
	if err := s.get(ctx, &b, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id); err != nil {
		if err == ErrNotFound {
			return models.Book{}, err
		}
		return models.Book{}, fmt.Errorf("ошибка поиска книги: %w", err)
	}
	return b, nil
}

func (s *Store) ListBooks(ctx context.Context, f BookFilter) ([]models.Book, error) {
	ds := s.dialect.From("books").
		Select("id", "title", "author", "published_date", "is_reserved").
		Order(goqu.I("id").Asc())
	if f.Reserved != nil {
		// Eq(bool) goqu превращает в "IS ?", а Postgres так не умеет.
		ds = ds.Where(goqu.L("is_reserved = ?", *f.Reserved))
	}

	books := make([]models.Book, 0)
	if err := s.selectDataset(ctx, &books, ds); err != nil {
		return nil, fmt.Errorf("ошибка чтения каталога: %w", err)
	}
	return books, nil
}

// UpdateBook перезаписывает все поля книги, включая IsReserved.
func (s *Store) UpdateBook(ctx context.Context, b models.Book) error {
	err := mustAffect(s.exec(ctx, `
UPDATE books
SET title = ?, author = ?, published_date = ?, is_reserved = ?
WHERE id = ?
`, b.Title, b.Author, b.PublishedDate, b.IsReserved, b.ID))
	if err != nil && err != ErrNotFound {
		return fmt.Errorf("ошибка обновления книги: %w", err)
	}
	return err
}

func (s *Store) SetBookReserved(ctx context.Context, id int64, reserved bool) error {
	err := mustAffect(s.exec(ctx, `UPDATE books SET is_reserved = ? WHERE id = ?`, reserved, id))
	if err != nil && err != ErrNotFound {
		return fmt.Errorf("ошибка обновления статуса книги: %w", err)
	}
	return err
}
