package httpapi

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strconv"

	"github.com/dedida26/library/internal/models"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pageNames = []string{
	"index",
	"reservations",
	"login",
	"register",
	"addbook",
	"editbook",
	"reservation",
	"error",
}

// pageData: всё, что может понадобиться шаблону.
type pageData struct {
	UserID       int64
	Books        []models.Book
	Reservations []models.ReservationView
	Book         models.Book
	Values       map[string]string
	Errors       map[string]string
	Message      string
}

func mustParsePages() map[string]*template.Template {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		pages[name] = template.Must(template.New(name).ParseFS(templatesFS, "templates/layout.html", "templates/"+name+".html"))
	}
	return pages
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	tpl, ok := s.pages[name]
	if !ok {
		s.log.ErrorContext(r.Context(), "unknown page template", "name", name)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		s.log.ErrorContext(r.Context(), "render page", "name", name, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// renderFormError показывает форму снова: ошибки полей рядом с полями,
// остальное одним сообщением.
func (s *Server) renderFormError(w http.ResponseWriter, r *http.Request, name string, values map[string]string, err error) {
	status, body := s.errorResponse(r, err)
	data := pageData{
		UserID: s.currentUser(r),
		Values: values,
		Errors: body.Fields,
	}
	if len(body.Fields) == 0 {
		data.Message = body.Error
	}
	s.render(w, r, status, name, data)
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := s.errorResponse(r, err)
	s.render(w, r, status, "error", pageData{UserID: s.currentUser(r), Message: body.Error})
}

func (s *Server) pageIndex(w http.ResponseWriter, r *http.Request) {
	books, err := s.library.ListBooks(r.Context(), nil)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "index", pageData{UserID: s.currentUser(r), Books: books})
}

func (s *Server) pageReservations(w http.ResponseWriter, r *http.Request) {
	f, err := reservationFilter(r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	items, err := s.library.ListReservations(r.Context(), f)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "reservations", pageData{UserID: s.currentUser(r), Reservations: items})
}

func (s *Server) pageLogin(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "login", pageData{UserID: s.currentUser(r)})
}

func (s *Server) pageRegister(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "register", pageData{UserID: s.currentUser(r)})
}

func (s *Server) pageAddBook(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "addbook", pageData{UserID: s.currentUser(r)})
}

func (s *Server) pageEditBook(w http.ResponseWriter, r *http.Request) {
	book, ok := s.pageBook(w, r)
	if !ok {
		return
	}
	values := map[string]string{
		"id":             strconv.FormatInt(book.ID, 10),
		"title":          book.Title,
		"author":         book.Author,
		"published_date": book.PublishedDate.String(),
	}
	if book.IsReserved {
		values["is_reserved"] = "on"
	}
	s.render(w, r, http.StatusOK, "editbook", pageData{UserID: s.currentUser(r), Book: book, Values: values})
}

func (s *Server) pageReserve(w http.ResponseWriter, r *http.Request) {
	book, ok := s.pageBook(w, r)
	if !ok {
		return
	}
	values := map[string]string{
		"id": strconv.FormatInt(book.ID, 10),
	}
	s.render(w, r, http.StatusOK, "reservation", pageData{UserID: s.currentUser(r), Book: book, Values: values})
}

func (s *Server) pageBook(w http.ResponseWriter, r *http.Request) (models.Book, bool) {
	id, err := pathID(r)
	if err != nil {
		s.renderError(w, r, err)
		return models.Book{}, false
	}
	book, err := s.library.GetBook(r.Context(), id)
	if err != nil {
		s.renderError(w, r, err)
		return models.Book{}, false
	}
	return book, true
}
