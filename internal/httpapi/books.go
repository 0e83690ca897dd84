package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/dedida26/library/internal/db"
	"github.com/dedida26/library/internal/service"
)

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	reserved, err := queryBool(r, "reserved")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	books, err := s.library.ListBooks(r.Context(), reserved)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, books)
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	book, err := s.library.GetBook(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	var in service.BookInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	book, err := s.library.AddBook(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, book)
}

// handleEditBook заменяет запись целиком: отсутствующий is_reserved означает false.
func (s *Server) handleEditBook(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var in service.EditBookInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	book, err := s.library.EditBook(r.Context(), id, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (s *Server) handleReserve(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	// Тело необязательно: без него резервация на сегодня.
	var in service.ReserveInput
	if err := decodeOptionalJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	reservation, err := s.library.Reserve(r.Context(), id, userIDFrom(r.Context()), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, reservation)
}

func (s *Server) handleListReservations(w http.ResponseWriter, r *http.Request) {
	f, err := reservationFilter(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	items, err := s.library.ListReservations(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func reservationFilter(r *http.Request) (db.ReservationFilter, error) {
	bookID, err := queryID(r, "book_id")
	if err != nil {
		return db.ReservationFilter{}, err
	}
	userID, err := queryID(r, "user_id")
	if err != nil {
		return db.ReservationFilter{}, err
	}
	return db.ReservationFilter{BookID: bookID, UserID: userID}, nil
}

// Формы браузера: при успехе редирект на главную, при ошибке форма
// показывается снова с сообщениями.

func (s *Server) formAddBook(w http.ResponseWriter, r *http.Request) {
	userID := s.currentUser(r)
	if err := parseForm(r); err != nil {
		s.renderFormError(w, r, "addbook", nil, badRequest("invalid form"))
		return
	}
	in := bookFromForm(r)
	if userID == 0 {
		s.renderFormError(w, r, "addbook", formValues(r), service.ErrAuthentication)
		return
	}
	if _, err := s.library.AddBook(r.Context(), in); err != nil {
		s.renderFormError(w, r, "addbook", formValues(r), err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) formEditBook(w http.ResponseWriter, r *http.Request) {
	userID := s.currentUser(r)
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := parseForm(r); err != nil {
		s.renderFormError(w, r, "editbook", nil, badRequest("invalid form"))
		return
	}
	values := formValues(r)
	values["id"] = strconv.FormatInt(id, 10)
	if userID == 0 {
		s.renderFormError(w, r, "editbook", values, service.ErrAuthentication)
		return
	}
	in := service.EditBookInput{
		BookInput:  bookFromForm(r),
		IsReserved: checkbox(r.PostForm.Get("is_reserved")),
	}
	if _, err := s.library.EditBook(r.Context(), id, in); err != nil {
		s.renderFormError(w, r, "editbook", values, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) formReserve(w http.ResponseWriter, r *http.Request) {
	userID := s.currentUser(r)
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := parseForm(r); err != nil {
		s.renderFormError(w, r, "reservation", nil, badRequest("invalid form"))
		return
	}
	values := formValues(r)
	values["id"] = strconv.FormatInt(id, 10)
	in := service.ReserveInput{ReservationDate: strings.TrimSpace(r.PostForm.Get("reservation_date"))}
	if _, err := s.library.Reserve(r.Context(), id, userID, in); err != nil {
		s.renderFormError(w, r, "reservation", values, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func bookFromForm(r *http.Request) service.BookInput {
	return service.BookInput{
		Title:         r.PostForm.Get("title"),
		Author:        r.PostForm.Get("author"),
		PublishedDate: strings.TrimSpace(r.PostForm.Get("published_date")),
	}
}

func parseForm(r *http.Request) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.ParseMultipartForm(maxBodyBytes)
	}
	return r.ParseForm()
}

// formValues собирает присланные поля, чтобы вернуть их в форму.
func formValues(r *http.Request) map[string]string {
	out := make(map[string]string, len(r.PostForm))
	for k := range r.PostForm {
		out[k] = r.PostForm.Get(k)
	}
	return out
}

// checkbox: браузер шлёт "on", клиенты API иногда "true" или "1".
func checkbox(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}
