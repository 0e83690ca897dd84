package db

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dedida26/library/internal/models"
)

const userColumns = `id, username, password_hash, telegram_id, created_at`

func (s *Store) CreateUser(ctx context.Context, username string, passwordHash string) (int64, error) {
	id, err := s.insert(ctx, `
INSERT INTO users (username, password_hash)
VALUES (?, ?)
RETURNING id
`, username, passwordHash)
	if err != nil {
		return 0, fmt.Errorf("ошибка сохранения пользователя: %w", err)
	}
	return id, nil
}

func (s *Store) UsernameExists(ctx context.Context, username string) (bool, error) {
	var n int
	if err := s.get(ctx, &n, `SELECT COUNT(*) FROM users WHERE username = ?`, username); err != nil {
		return false, fmt.Errorf("ошибка поиска пользователя: %w", err)
	}
	return n > 0, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (models.User, error) {
	return s.getUserBy(ctx, "id", id)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	return s.getUserBy(ctx, "username", username)
}

func (s *Store) getUserBy(ctx context.Context, column string, value any) (models.User, error) {
	var u models.User
	if err := s.get(ctx, &u, `SELECT `+userColumns+` FROM users WHERE `+column+` = ?`, value); err != nil {
		if err == ErrNotFound {
			return models.User{}, err
		}
		return models.User{}, fmt.Errorf("ошибка поиска пользователя: %w", err)
	}
	return u, nil
}

// EnsureTelegramUser создаёт (или обновляет) пользователя, пришедшего из
// Telegram, и возвращает его id. Пользователь ищется по telegram_id; имя
// tg:<handle> берётся, только если его не занял другой аккаунт, иначе tg:<id>.
func (s *Store) EnsureTelegramUser(ctx context.Context, telegramID int64, tgUsername string) (int64, error) {
	byID := "tg:" + strconv.FormatInt(telegramID, 10)
	username := byID
	if tgUsername != "" {
		taken, err := s.usernameTakenByOther(ctx, "tg:"+tgUsername, telegramID)
		if err != nil {
			return 0, err
		}
		if !taken {
			username = "tg:" + tgUsername
		}
	}

	id, err := s.insert(ctx, `
INSERT INTO users (username, telegram_id)
VALUES (?, ?)
ON CONFLICT(telegram_id) DO UPDATE SET username = excluded.username
RETURNING id
`, username, telegramID)
	if err != nil {
		return 0, fmt.Errorf("ошибка сохранения пользователя Telegram: %w", err)
	}
	return id, nil
}

// usernameTakenByOther: имя занято кем-то, кроме аккаунта telegramID.
func (s *Store) usernameTakenByOther(ctx context.Context, username string, telegramID int64) (bool, error) {
	var n int
	err := s.get(ctx, &n, `
SELECT COUNT(*) FROM users
WHERE username = ? AND (telegram_id IS NULL OR telegram_id <> ?)
`, username, telegramID)
	if err != nil {
		return false, fmt.Errorf("ошибка поиска пользователя: %w", err)
	}
	return n > 0, nil
}
