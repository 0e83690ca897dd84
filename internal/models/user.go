package models

type User struct {
	ID           int64   `db:"id" json:"id"`
	Username     string  `db:"username" json:"username"`
	PasswordHash *string `db:"password_hash" json:"-"`
	TelegramID   *int64  `db:"telegram_id" json:"telegram_id,omitempty"`
	CreatedAt    string  `db:"created_at" json:"created_at"`
}
