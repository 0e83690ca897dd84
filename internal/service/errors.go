package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dedida26/library/internal/db"
)

var (
	// ErrNotFound: запрошенная книга, резервация или запись todo отсутствует.
	ErrNotFound = errors.New("not found")
	// ErrAuthentication: неверные учётные данные или отсутствующая/просроченная сессия.
	ErrAuthentication = errors.New("authentication failed")
)

// ValidationError описывает некорректный ввод: поле -> сообщение.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func fieldError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// notFound переводит db.ErrNotFound в ErrNotFound сервиса.
func notFound(err error, format string, args ...any) error {
	if errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
	}
	return err
}
