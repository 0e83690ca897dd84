package db

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL UNIQUE,
	password_hash TEXT,
	telegram_id INTEGER UNIQUE,
	created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS books (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	author TEXT NOT NULL,
	published_date TEXT NOT NULL,
	is_reserved BOOLEAN NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS reservations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	book_id INTEGER NOT NULL REFERENCES books(id) ON DELETE CASCADE,
	reservation_date TEXT NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT 1
);

CREATE INDEX IF NOT EXISTS idx_reservations_book_id ON reservations(book_id);

CREATE TABLE IF NOT EXISTS folders (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS pages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	folder_id INTEGER NOT NULL REFERENCES folders(id) ON DELETE CASCADE,
	title TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	page_id INTEGER NOT NULL REFERENCES pages(id) ON DELETE CASCADE,
	title TEXT NOT NULL,
	is_done BOOLEAN NOT NULL DEFAULT 0
);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
	id BIGSERIAL PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	password_hash TEXT,
	telegram_id BIGINT UNIQUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS books (
	id BIGSERIAL PRIMARY KEY,
	title TEXT NOT NULL,
	author TEXT NOT NULL,
	published_date DATE NOT NULL,
	is_reserved BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS reservations (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	book_id BIGINT NOT NULL REFERENCES books(id) ON DELETE CASCADE,
	reservation_date DATE NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE INDEX IF NOT EXISTS idx_reservations_book_id ON reservations(book_id);

CREATE TABLE IF NOT EXISTS folders (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS pages (
	id BIGSERIAL PRIMARY KEY,
	folder_id BIGINT NOT NULL REFERENCES folders(id) ON DELETE CASCADE,
	title TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	id BIGSERIAL PRIMARY KEY,
	page_id BIGINT NOT NULL REFERENCES pages(id) ON DELETE CASCADE,
	title TEXT NOT NULL,
	is_done BOOLEAN NOT NULL DEFAULT FALSE
);
`

func migrate(conn *sqlx.DB, driver string) error {
	schema := sqliteSchema
	if driver != DriverSQLite {
		schema = postgresSchema
	}

	// По одному выражению: не все драйверы принимают несколько за раз.
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := conn.Exec(stmt); err != nil {
			return fmt.Errorf("ошибка миграции: %w", err)
		}
	}
	return nil
}
