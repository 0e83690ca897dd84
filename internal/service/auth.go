package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/dedida26/library/internal/db"
	"github.com/dedida26/library/internal/models"
)

// RegisterInput описывает форму регистрации. Captcha принимается, но не проверяется.
type RegisterInput struct {
	Username  string `json:"username" validate:"required,max=150,username"`
	Password1 string `json:"password1" validate:"required,min=8,max=72"`
	Password2 string `json:"password2" validate:"required,eqfield=Password1"`
	Captcha   string `json:"captcha"`
}

type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	Captcha  string `json:"captcha"`
}

// Session: выданный пользователю токен.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type sessionClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Auth отвечает за регистрацию, вход и сессии на HS256 JWT.
type Auth struct {
	store  *db.Store
	log    *slog.Logger
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewAuth(store *db.Store, logger *slog.Logger, secret string, ttl time.Duration) *Auth {
	return &Auth{
		store:  store,
		log:    logger,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Register создаёт пользователя и сразу выдаёт ему сессию.
func (a *Auth) Register(ctx context.Context, in RegisterInput) (models.User, Session, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := validateStruct(in); err != nil {
		return models.User{}, Session{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password1), bcrypt.DefaultCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return models.User{}, Session{}, fieldError("password1", "не длиннее 72 байт")
	}
	if err != nil {
		return models.User{}, Session{}, fmt.Errorf("hash password: %w", err)
	}

	var user models.User
	err = a.store.WithTx(ctx, func(tx *db.Store) error {
		exists, err := tx.UsernameExists(ctx, in.Username)
		if err != nil {
			return err
		}
		if exists {
			return fieldError("username", "пользователь с таким именем уже существует")
		}

		id, err := tx.CreateUser(ctx, in.Username, string(hash))
		if err != nil {
			return err
		}
		user, err = tx.GetUser(ctx, id)
		return err
	})
	if err != nil {
		return models.User{}, Session{}, err
	}

	session, err := a.IssueSession(user)
	if err != nil {
		return models.User{}, Session{}, err
	}

	a.log.InfoContext(ctx, "user registered", "user_id", user.ID, "username", user.Username)
	return user, session, nil
}

// Login проверяет пароль. Неизвестный пользователь и неверный пароль
// неразличимы для клиента.
func (a *Auth) Login(ctx context.Context, in LoginInput) (models.User, Session, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := validateStruct(in); err != nil {
		return models.User{}, Session{}, err
	}

	user, err := a.store.GetUserByUsername(ctx, in.Username)
	if err != nil {
		if err == db.ErrNotFound {
			return models.User{}, Session{}, fmt.Errorf("login %q: %w", in.Username, ErrAuthentication)
		}
		return models.User{}, Session{}, err
	}

	if user.PasswordHash == nil {
		return models.User{}, Session{}, fmt.Errorf("login %q: no password set: %w", in.Username, ErrAuthentication)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(in.Password)); err != nil {
		return models.User{}, Session{}, fmt.Errorf("login %q: %w", in.Username, ErrAuthentication)
	}

	session, err := a.IssueSession(user)
	if err != nil {
		return models.User{}, Session{}, err
	}

	a.log.InfoContext(ctx, "user logged in", "user_id", user.ID)
	return user, session, nil
}

func (a *Auth) IssueSession(user models.User) (Session, error) {
	now := a.now()
	expires := now.Add(a.ttl)
	claims := sessionClaims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return Session{}, fmt.Errorf("sign session: %w", err)
	}
	return Session{Token: token, ExpiresAt: expires}, nil
}

// ParseSession проверяет токен и возвращает id пользователя.
func (a *Auth) ParseSession(token string) (int64, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now), jwt.WithExpirationRequired())
	if err != nil {
		return 0, fmt.Errorf("session: %v: %w", err, ErrAuthentication)
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("session: bad subject %q: %w", claims.Subject, ErrAuthentication)
	}
	return id, nil
}

// TelegramUser возвращает id пользователя для аккаунта Telegram, создавая его при первом входе.
func (a *Auth) TelegramUser(ctx context.Context, telegramID int64, username string) (int64, error) {
	return a.store.EnsureTelegramUser(ctx, telegramID, username)
}
