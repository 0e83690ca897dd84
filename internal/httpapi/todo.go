package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/dedida26/library/internal/service"
)

// routeTodo вешает CRUD папок, страниц и задач на подроутер /api/v3.
func (s *Server) routeTodo(r *mux.Router) {
	r.HandleFunc("/folders", s.handleListFolders).Methods(http.MethodGet)
	r.HandleFunc("/folders", s.handleCreateFolder).Methods(http.MethodPost)
	r.HandleFunc("/folders/{id:[0-9]+}", s.handleGetFolder).Methods(http.MethodGet)
	r.HandleFunc("/folders/{id:[0-9]+}", s.handleUpdateFolder).Methods(http.MethodPut)
	r.HandleFunc("/folders/{id:[0-9]+}", s.handleDeleteFolder).Methods(http.MethodDelete)

	r.HandleFunc("/pages", s.handleListPages).Methods(http.MethodGet)
	r.HandleFunc("/pages", s.handleCreatePage).Methods(http.MethodPost)
	r.HandleFunc("/pages/{id:[0-9]+}", s.handleGetPage).Methods(http.MethodGet)
	r.HandleFunc("/pages/{id:[0-9]+}", s.handleUpdatePage).Methods(http.MethodPut)
	r.HandleFunc("/pages/{id:[0-9]+}", s.handleDeletePage).Methods(http.MethodDelete)

	r.HandleFunc("/tasks", s.handleListTasks).Methods(http.MethodGet)
	r.HandleFunc("/tasks", s.handleCreateTask).Methods(http.MethodPost)
	r.HandleFunc("/tasks/{id:[0-9]+}", s.handleGetTask).Methods(http.MethodGet)
	r.HandleFunc("/tasks/{id:[0-9]+}", s.handleUpdateTask).Methods(http.MethodPut)
	r.HandleFunc("/tasks/{id:[0-9]+}", s.handleDeleteTask).Methods(http.MethodDelete)
}

func (s *Server) handleListFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := s.todo.ListFolders(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, folders)
}

func (s *Server) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	var in service.FolderInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	folder, err := s.todo.CreateFolder(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, folder)
}

func (s *Server) handleGetFolder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	folder, err := s.todo.GetFolder(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, folder)
}

func (s *Server) handleUpdateFolder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var in service.FolderInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	folder, err := s.todo.UpdateFolder(r.Context(), id, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, folder)
}

func (s *Server) handleDeleteFolder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.todo.DeleteFolder(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListPages(w http.ResponseWriter, r *http.Request) {
	folderID, err := queryID(r, "folder_id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	pages, err := s.todo.ListPages(r.Context(), folderID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pages)
}

func (s *Server) handleCreatePage(w http.ResponseWriter, r *http.Request) {
	var in service.PageInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	page, err := s.todo.CreatePage(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, page)
}

func (s *Server) handleGetPage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	page, err := s.todo.GetPage(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleUpdatePage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var in service.PageInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	page, err := s.todo.UpdatePage(r.Context(), id, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleDeletePage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.todo.DeletePage(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	pageID, err := queryID(r, "page_id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	tasks, err := s.todo.ListTasks(r.Context(), pageID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var in service.TaskInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	task, err := s.todo.CreateTask(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	task, err := s.todo.GetTask(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var in service.TaskInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	task, err := s.todo.UpdateTask(r.Context(), id, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.todo.DeleteTask(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
