package models

import "fmt"

// Book описывает запись каталога. IsReserved производное поле: оно отражает
// наличие резерваций и обновляется только вместе с ними.
type Book struct {
	ID            int64  `db:"id" json:"id"`
	Title         string `db:"title" json:"title"`
	Author        string `db:"author" json:"author"`
	PublishedDate Date   `db:"published_date" json:"published_date"`
	IsReserved    bool   `db:"is_reserved" json:"is_reserved"`
}

// String используется в логах и ответах бота.
func (b Book) String() string {
	status := "свободна"
	if b.IsReserved {
		status = "зарезервирована"
	}
	return fmt.Sprintf("📚 %s\n   Автор: %s\n   Опубликована: %s\n   Статус: %s", b.Title, b.Author, b.PublishedDate, status)
}
