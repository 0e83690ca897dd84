package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dedida26/library/internal/models"
	"github.com/dedida26/library/internal/service"
)

const sessionCookie = "session"

type ctxKey int

const userIDKey ctxKey = iota

func withUserID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// userIDFrom возвращает id пользователя, положенный requireUser, или 0.
func userIDFrom(ctx context.Context) int64 {
	id, _ := ctx.Value(userIDKey).(int64)
	return id
}

// authenticate ищет сессию: Bearer-токен, затем cookie, затем initData Telegram.
func (s *Server) authenticate(r *http.Request) (int64, error) {
	if h := r.Header.Get("Authorization"); len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return s.auth.ParseSession(strings.TrimSpace(h[7:]))
	}
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return s.auth.ParseSession(c.Value)
	}

	if s.botToken == "" {
		return 0, fmt.Errorf("no session: %w", service.ErrAuthentication)
	}
	initData := extractInitData(r)
	if initData == "" {
		return 0, fmt.Errorf("no session: %w", service.ErrAuthentication)
	}
	tgUser, err := ValidateInitData(initData, s.botToken, s.now())
	if err != nil {
		s.log.DebugContext(r.Context(), "auth: initData invalid", "len", len(initData), "remote", r.RemoteAddr, "err", err)
		return 0, fmt.Errorf("initData: %v: %w", err, service.ErrAuthentication)
	}
	return s.auth.TelegramUser(r.Context(), tgUser.ID, tgUser.Username)
}

// requireUser пропускает запрос дальше только с действующей сессией.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.authenticate(r)
		if err != nil {
			if errors.Is(err, service.ErrAuthentication) {
				s.log.InfoContext(r.Context(), "auth: rejected", "path", r.URL.Path, "remote", r.RemoteAddr, "err", err)
			}
			s.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(withUserID(r.Context(), id)))
	})
}

// currentUser: необязательная проверка для страниц, которые видны всем.
func (s *Server) currentUser(r *http.Request) int64 {
	id, err := s.authenticate(r)
	if err != nil {
		return 0
	}
	return id
}

type sessionResponse struct {
	User      models.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	form := isForm(r)
	if form {
		if err := parseForm(r); err != nil {
			s.renderFormError(w, r, "register", nil, badRequest("invalid form"))
			return
		}
		in = service.RegisterInput{
			Username:  r.PostForm.Get("username"),
			Password1: r.PostForm.Get("password1"),
			Password2: r.PostForm.Get("password2"),
			Captcha:   r.PostForm.Get("captcha"),
		}
	} else if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	user, session, err := s.auth.Register(r.Context(), in)
	if err != nil {
		if form {
			s.renderFormError(w, r, "register", map[string]string{"username": in.Username}, err)
			return
		}
		s.writeError(w, r, err)
		return
	}

	s.setSession(w, session)
	if form {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{User: user, Token: session.Token, ExpiresAt: session.ExpiresAt})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	form := isForm(r)
	if form {
		if err := parseForm(r); err != nil {
			s.renderFormError(w, r, "login", nil, badRequest("invalid form"))
			return
		}
		in = service.LoginInput{
			Username: r.PostForm.Get("username"),
			Password: r.PostForm.Get("password"),
			Captcha:  r.PostForm.Get("captcha"),
		}
	} else if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	user, session, err := s.auth.Login(r.Context(), in)
	if err != nil {
		if form {
			s.renderFormError(w, r, "login", map[string]string{"username": in.Username}, err)
			return
		}
		s.writeError(w, r, err)
		return
	}

	s.setSession(w, session)
	if form {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{User: user, Token: session.Token, ExpiresAt: session.ExpiresAt})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	// Ссылка или форма ведут обратно на вход, API получает 204.
	if r.Method == http.MethodGet || isForm(r) {
		http.Redirect(w, r, "/login/", http.StatusSeeOther)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) setSession(w http.ResponseWriter, session service.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func extractInitData(r *http.Request) string {
	for _, h := range []string{"X-Telegram-InitData", "X-Telegram-Web-App-Data", "X-Telegram-WebApp-Data"} {
		if v := r.Header.Get(h); v != "" {
			return v
		}
	}
	if auth := r.Header.Get("Authorization"); len(auth) > 4 && strings.EqualFold(auth[:4], "tma ") {
		return strings.TrimSpace(auth[4:])
	}
	return ""
}

func isForm(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return strings.HasPrefix(ct, "application/x-www-form-urlencoded") || strings.HasPrefix(ct, "multipart/form-data")
}
