package models

// Reservation связывает одного пользователя с одной книгой на дату.
// IsActive хранится, но правилами резервирования не читается.
type Reservation struct {
	ID              int64 `db:"id" json:"id"`
	UserID          int64 `db:"user_id" json:"user_id"`
	BookID          int64 `db:"book_id" json:"book_id"`
	ReservationDate Date  `db:"reservation_date" json:"reservation_date"`
	IsActive        bool  `db:"is_active" json:"is_active"`
}

// ReservationView: резервация вместе с данными книги и пользователя,
// для списка резерваций.
type ReservationView struct {
	Reservation
	Username   string `db:"username" json:"username"`
	BookTitle  string `db:"book_title" json:"book_title"`
	BookAuthor string `db:"book_author" json:"book_author"`
}
