package httpapi

import (
	"context"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/dedida26/library/internal/service"
)

// Pinger умеет проверить соединение с базой.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options: зависимости сервера.
type Options struct {
	Library     *service.Library
	Auth        *service.Auth
	Todo        *service.Todo
	DB          Pinger
	Logger      *slog.Logger
	BotToken    string
	CORSOrigins []string
}

type Server struct {
	library     *service.Library
	auth        *service.Auth
	todo        *service.Todo
	db          Pinger
	log         *slog.Logger
	botToken    string
	corsOrigins []string
	pages       map[string]*template.Template
	now         func() time.Time
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func New(opts Options) *Server {
	return &Server{
		library:     opts.Library,
		auth:        opts.Auth,
		todo:        opts.Todo,
		db:          opts.DB,
		log:         opts.Logger,
		botToken:    opts.BotToken,
		corsOrigins: opts.CORSOrigins,
		pages:       mustParsePages(),
		now:         time.Now,
	}
}

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)

	r.HandleFunc("/api/books", s.handleListBooks).Methods(http.MethodGet)
	r.Handle("/api/books", s.requireUser(http.HandlerFunc(s.handleCreateBook))).Methods(http.MethodPost)
	r.HandleFunc("/api/books/{id:[0-9]+}", s.handleGetBook).Methods(http.MethodGet)
	r.Handle("/api/books/{id:[0-9]+}", s.requireUser(http.HandlerFunc(s.handleEditBook))).Methods(http.MethodPut)
	r.Handle("/api/books/{id:[0-9]+}/reservations", s.requireUser(http.HandlerFunc(s.handleReserve))).Methods(http.MethodPost)
	r.HandleFunc("/api/reservations", s.handleListReservations).Methods(http.MethodGet)

	r.HandleFunc("/auth/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/auth/logout", s.handleLogout).Methods(http.MethodPost)

	todo := r.PathPrefix("/api/v3").Subrouter()
	todo.Use(s.requireUser)
	s.routeTodo(todo)

	// HTML-страницы и формы.
	r.HandleFunc("/", s.pageIndex).Methods(http.MethodGet)
	r.HandleFunc("/reservations", s.pageReservations).Methods(http.MethodGet)
	r.HandleFunc("/login/", s.pageLogin).Methods(http.MethodGet)
	r.HandleFunc("/register/", s.pageRegister).Methods(http.MethodGet)
	r.HandleFunc("/addbook/", s.pageAddBook).Methods(http.MethodGet)
	r.HandleFunc("/addbook/", s.formAddBook).Methods(http.MethodPost)
	r.HandleFunc("/editbook/{id:[0-9]+}/", s.pageEditBook).Methods(http.MethodGet)
	r.HandleFunc("/editbook/{id:[0-9]+}/", s.formEditBook).Methods(http.MethodPost)
	r.HandleFunc("/reservation/{id:[0-9]+}/", s.pageReserve).Methods(http.MethodGet)
	r.HandleFunc("/reservation/{id:[0-9]+}/", s.formReserve).Methods(http.MethodPost)

	// Старые адреса сайта.
	r.HandleFunc("/viewreservation/", s.pageReservations).Methods(http.MethodGet)
	r.HandleFunc("/logout/", s.handleLogout).Methods(http.MethodGet, http.MethodPost)

	c := cors.New(cors.Options{
		AllowedOrigins:   s.corsOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Telegram-InitData"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
	})

	return s.accessLog(c.Handler(r))
}

// accessLog пишет строку лога на каждый запрос и проставляет X-Request-ID.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.now()
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.log.InfoContext(r.Context(), "http",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", s.now().Sub(start),
			"request_id", id,
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			s.log.WarnContext(r.Context(), "health: db ping failed", "err", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
