package service

import (
	"context"
	"strings"

	"github.com/dedida26/library/internal/db"
	"github.com/dedida26/library/internal/models"
)

type FolderInput struct {
	Name string `json:"name" validate:"required,max=200"`
}

type PageInput struct {
	FolderID int64  `json:"folder_id" validate:"gt=0"`
	Title    string `json:"title" validate:"required,max=200"`
}

type TaskInput struct {
	PageID int64  `json:"page_id" validate:"gt=0"`
	Title  string `json:"title" validate:"required,max=200"`
	IsDone bool   `json:"is_done"`
}

// Todo управляет папками, страницами и задачами списка дел.
type Todo struct {
	store *db.Store
}

func NewTodo(store *db.Store) *Todo {
	return &Todo{store: store}
}

func (t *Todo) ListFolders(ctx context.Context) ([]models.Folder, error) {
	return t.store.ListFolders(ctx)
}

func (t *Todo) GetFolder(ctx context.Context, id int64) (models.Folder, error) {
	f, err := t.store.GetFolder(ctx, id)
	return f, notFound(err, "folder %d", id)
}

func (t *Todo) CreateFolder(ctx context.Context, in FolderInput) (models.Folder, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateStruct(in); err != nil {
		return models.Folder{}, err
	}
	f := models.Folder{Name: in.Name}
	id, err := t.store.CreateFolder(ctx, f)
	if err != nil {
		return models.Folder{}, err
	}
	f.ID = id
	return f, nil
}

func (t *Todo) UpdateFolder(ctx context.Context, id int64, in FolderInput) (models.Folder, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateStruct(in); err != nil {
		return models.Folder{}, err
	}
	f := models.Folder{ID: id, Name: in.Name}
	if err := t.store.UpdateFolder(ctx, f); err != nil {
		return models.Folder{}, notFound(err, "folder %d", id)
	}
	return f, nil
}

// DeleteFolder удаляет папку вместе со страницами и их задачами.
func (t *Todo) DeleteFolder(ctx context.Context, id int64) error {
	return notFound(t.store.DeleteFolder(ctx, id), "folder %d", id)
}

func (t *Todo) ListPages(ctx context.Context, folderID *int64) ([]models.Page, error) {
	return t.store.ListPages(ctx, folderID)
}

func (t *Todo) GetPage(ctx context.Context, id int64) (models.Page, error) {
	p, err := t.store.GetPage(ctx, id)
	return p, notFound(err, "page %d", id)
}

func (t *Todo) CreatePage(ctx context.Context, in PageInput) (models.Page, error) {
	p, err := t.pageFromInput(ctx, in)
	if err != nil {
		return models.Page{}, err
	}
	if p.ID, err = t.store.CreatePage(ctx, p); err != nil {
		return models.Page{}, err
	}
	return p, nil
}

func (t *Todo) UpdatePage(ctx context.Context, id int64, in PageInput) (models.Page, error) {
	p, err := t.pageFromInput(ctx, in)
	if err != nil {
		return models.Page{}, err
	}
	p.ID = id
	if err := t.store.UpdatePage(ctx, p); err != nil {
		return models.Page{}, notFound(err, "page %d", id)
	}
	return p, nil
}

func (t *Todo) DeletePage(ctx context.Context, id int64) error {
	return notFound(t.store.DeletePage(ctx, id), "page %d", id)
}

func (t *Todo) ListTasks(ctx context.Context, pageID *int64) ([]models.Task, error) {
	return t.store.ListTasks(ctx, pageID)
}

func (t *Todo) GetTask(ctx context.Context, id int64) (models.Task, error) {
	task, err := t.store.GetTask(ctx, id)
	return task, notFound(err, "task %d", id)
}

func (t *Todo) CreateTask(ctx context.Context, in TaskInput) (models.Task, error) {
	task, err := t.taskFromInput(ctx, in)
	if err != nil {
		return models.Task{}, err
	}
	if task.ID, err = t.store.CreateTask(ctx, task); err != nil {
		return models.Task{}, err
	}
	return task, nil
}

func (t *Todo) UpdateTask(ctx context.Context, id int64, in TaskInput) (models.Task, error) {
	task, err := t.taskFromInput(ctx, in)
	if err != nil {
		return models.Task{}, err
	}
	task.ID = id
	if err := t.store.UpdateTask(ctx, task); err != nil {
		return models.Task{}, notFound(err, "task %d", id)
	}
	return task, nil
}

func (t *Todo) DeleteTask(ctx context.Context, id int64) error {
	return notFound(t.store.DeleteTask(ctx, id), "task %d", id)
}

func (t *Todo) pageFromInput(ctx context.Context, in PageInput) (models.Page, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validateStruct(in); err != nil {
		return models.Page{}, err
	}
	if _, err := t.store.GetFolder(ctx, in.FolderID); err != nil {
		if err == db.ErrNotFound {
			return models.Page{}, fieldError("folder_id", "папка не найдена")
		}
		return models.Page{}, err
	}
	return models.Page{FolderID: in.FolderID, Title: in.Title}, nil
}

func (t *Todo) taskFromInput(ctx context.Context, in TaskInput) (models.Task, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validateStruct(in); err != nil {
		return models.Task{}, err
	}
	if _, err := t.store.GetPage(ctx, in.PageID); err != nil {
		if err == db.ErrNotFound {
			return models.Task{}, fieldError("page_id", "страница не найдена")
		}
		return models.Task{}, err
	}
	return models.Task{PageID: in.PageID, Title: in.Title, IsDone: in.IsDone}, nil
}
