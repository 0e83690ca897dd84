package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// ErrNotFound возвращается, когда запись с указанным id отсутствует.
var ErrNotFound = errors.New("запись не найдена")

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverPGX      = "pgx"
)

func init() {
	// sqlx не знает имя драйвера modernc, подсказываем тип плейсхолдеров.
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Store даёт доступ к базе. Внутри WithTx тот же Store работает поверх транзакции.
type Store struct {
	db      *sqlx.DB
	ext     sqlx.ExtContext
	dialect goqu.DialectWrapper
}

// Open подключается к базе и применяет схему.
func Open(driver string, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("DSN базы пустой")
	}

	var dialect string
	switch driver {
	case DriverSQLite:
		dir := filepath.Dir(dsn)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("не удалось создать директорию БД: %w", err)
		}
		dsn = sqliteDSN(dsn)
		dialect = "sqlite3"
	case DriverPostgres, DriverPGX:
		dialect = "postgres"
	default:
		return nil, fmt.Errorf("неподдерживаемый драйвер: %q", driver)
	}

	conn, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия БД: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("БД недоступна: %w", err)
	}

	if err := migrate(conn, driver); err != nil {
		conn.Close()
		return nil, err
	}

	return &Store{db: conn, ext: conn, dialect: goqu.Dialect(dialect)}, nil
}

// sqliteDSN добавляет PRAGMA в DSN: так они применяются к каждому
// соединению пула, а не к одному.
func sqliteDSN(path string) string {
	pragmas := []string{
		"_pragma=journal_mode(WAL)",
		"_pragma=foreign_keys(1)",
		"_pragma=busy_timeout(5000)",
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join(pragmas, "&")
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// WithTx выполняет fn в одной транзакции. Ошибка fn (или паника) откатывает всё.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(&Store{db: s.db, ext: tx, dialect: s.dialect}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, dest any, query string, args ...any) error {
	err := sqlx.GetContext(ctx, s.ext, dest, s.ext.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := s.ext.ExecContext(ctx, s.ext.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// insert выполняет INSERT ... RETURNING id.
func (s *Store) insert(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	if err := s.ext.QueryRowxContext(ctx, s.ext.Rebind(query), args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// selectDataset выполняет запрос, построенный goqu.
func (s *Store) selectDataset(ctx context.Context, dest any, ds *goqu.SelectDataset) error {
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("ошибка построения запроса: %w", err)
	}
	return sqlx.SelectContext(ctx, s.ext, dest, query, args...)
}

func mustAffect(n int64, err error) error {
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
