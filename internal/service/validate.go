package service

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dedida26/library/internal/models"
)

// Имя пользователя: буквы, цифры и @/./+/-/_.
var usernameRe = regexp.MustCompile(`^[\p{L}\p{N}@.+\-_]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// В ошибках используем имена полей из json-тегов, как их видит клиент.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := models.ParseDate(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameRe.MatchString(fl.Field().String())
	})
	return v
}

// validateStruct проверяет теги validate и возвращает *ValidationError.
func validateStruct(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	ve := &ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		ve.Fields[fe.Field()] = message(fe)
	}
	return ve
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "обязательное поле"
	case "max":
		return "не длиннее " + fe.Param() + " символов"
	case "min":
		return "не короче " + fe.Param() + " символов"
	case "isodate":
		return "ожидается дата ГГГГ-ММ-ДД"
	case "username":
		return "допустимы буквы, цифры и символы @/./+/-/_"
	case "eqfield":
		return "пароли не совпадают"
	case "gt":
		return "должно быть больше " + fe.Param()
	default:
		return "некорректное значение"
	}
}
