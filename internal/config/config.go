package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config содержит все настройки приложения одной "пачкой".
type Config struct {
	HTTPAddr      string
	DBDriver      string
	DBDSN         string
	JWTSecret     string
	SessionTTL    time.Duration
	MaxConns      int
	CORSOrigins   []string
	LogLevel      string
	LogFormat     string
	TelegramToken string
}

// Load считывает .env файл (если он есть) и переменные окружения.
func Load() (*Config, error) {
	// Если файла нет, не страшно: в Docker переменные передаются напрямую.
	if err := godotenv.Load(); err != nil {
		fmt.Println("Инфо: файл .env не найден, ищем переменные в окружении OS")
	}
	return FromEnv(os.Getenv)
}

// FromEnv собирает Config из произвольного источника переменных.
func FromEnv(getenv func(string) string) (*Config, error) {
	secret := getenv("JWT_SECRET")
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("переменная JWT_SECRET не задана")
	}

	driver := strings.ToLower(withDefault(getenv("DB_DRIVER"), "sqlite"))
	dsn := getenv("DB_DSN")
	switch driver {
	case "sqlite":
		dsn = resolvePath(withDefault(dsn, "data/library.db"))
	case "postgres", "pgx":
		if strings.TrimSpace(dsn) == "" {
			return nil, fmt.Errorf("переменная DB_DSN обязательна для драйвера %s", driver)
		}
	default:
		return nil, fmt.Errorf("неизвестный DB_DRIVER: %q", driver)
	}

	ttl, err := time.ParseDuration(withDefault(getenv("SESSION_TTL"), "10h"))
	if err != nil || ttl <= 0 {
		return nil, fmt.Errorf("некорректный SESSION_TTL: %q", getenv("SESSION_TTL"))
	}

	maxConns, err := strconv.Atoi(withDefault(getenv("MAX_CONNS"), "256"))
	if err != nil || maxConns <= 0 {
		return nil, fmt.Errorf("некорректный MAX_CONNS: %q", getenv("MAX_CONNS"))
	}

	return &Config{
		HTTPAddr:      withDefault(getenv("HTTP_ADDR"), ":8080"),
		DBDriver:      driver,
		DBDSN:         dsn,
		JWTSecret:     secret,
		SessionTTL:    ttl,
		MaxConns:      maxConns,
		CORSOrigins:   splitList(withDefault(getenv("CORS_ORIGINS"), "*")),
		LogLevel:      strings.ToLower(withDefault(getenv("LOG_LEVEL"), "info")),
		LogFormat:     strings.ToLower(withDefault(getenv("LOG_FORMAT"), "text")),
		TelegramToken: strings.TrimSpace(getenv("TELEGRAM_TOKEN")),
	}, nil
}

func withDefault(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func resolvePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return p
	}
	if filepath.IsAbs(p) {
		return p
	}

	if exe, err := os.Executable(); err == nil {
		base := filepath.Dir(exe)
		return filepath.Clean(filepath.Join(base, p))
	}

	if cwd, err := os.Getwd(); err == nil {
		return filepath.Clean(filepath.Join(cwd, p))
	}

	return p
}
