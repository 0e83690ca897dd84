package db

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/dedida26/library/internal/models"
)

func (s *Store) ListFolders(ctx context.Context) ([]models.Folder, error) {
	ds := s.dialect.From("folders").Select("id", "name").Order(goqu.I("id").Asc())
	items := make([]models.Folder, 0)
	if err := s.selectDataset(ctx, &items, ds); err != nil {
		return nil, fmt.Errorf("ошибка чтения папок: %w", err)
	}
	return items, nil
}

func (s *Store) GetFolder(ctx context.Context, id int64) (models.Folder, error) {
	var f models.Folder
	err := s.get(ctx, &f, `SELECT id, name FROM folders WHERE id = ?`, id)
	return f, wrapGet(err, "папки")
}

func (s *Store) CreateFolder(ctx context.Context, f models.Folder) (int64, error) {
	id, err := s.insert(ctx, `INSERT INTO folders (name) VALUES (?) RETURNING id`, f.Name)
	if err != nil {
		return 0, fmt.Errorf("ошибка вставки папки: %w", err)
	}
	return id, nil
}

func (s *Store) UpdateFolder(ctx context.Context, f models.Folder) error {
	return wrapWrite(mustAffect(s.exec(ctx, `UPDATE folders SET name = ? WHERE id = ?`, f.Name, f.ID)), "папки")
}

func (s *Store) DeleteFolder(ctx context.Context, id int64) error {
	return wrapWrite(mustAffect(s.exec(ctx, `DELETE FROM folders WHERE id = ?`, id)), "папки")
}

// ListPages возвращает страницы; при folderID != nil только страницы папки.
func (s *Store) ListPages(ctx context.Context, folderID *int64) ([]models.Page, error) {
	ds := s.dialect.From("pages").Select("id", "folder_id", "title").Order(goqu.I("id").Asc())
	if folderID != nil {
		ds = ds.Where(goqu.C("folder_id").Eq(*folderID))
	}
	items := make([]models.Page, 0)
	if err := s.selectDataset(ctx, &items, ds); err != nil {
		return nil, fmt.Errorf("ошибка чтения страниц: %w", err)
	}
	return items, nil
}

func (s *Store) GetPage(ctx context.Context, id int64) (models.Page, error) {
	var p models.Page
	err := s.get(ctx, &p, `SELECT id, folder_id, title FROM pages WHERE id = ?`, id)
	return p, wrapGet(err, "страницы")
}

func (s *Store) CreatePage(ctx context.Context, p models.Page) (int64, error) {
	id, err := s.insert(ctx, `INSERT INTO pages (folder_id, title) VALUES (?, ?) RETURNING id`, p.FolderID, p.Title)
	if err != nil {
		return 0, fmt.Errorf("ошибка вставки страницы: %w", err)
	}
	return id, nil
}

func (s *Store) UpdatePage(ctx context.Context, p models.Page) error {
	return wrapWrite(mustAffect(s.exec(ctx, `UPDATE pages SET folder_id = ?, title = ? WHERE id = ?`, p.FolderID, p.Title, p.ID)), "страницы")
}

func (s *Store) DeletePage(ctx context.Context, id int64) error {
	return wrapWrite(mustAffect(s.exec(ctx, `DELETE FROM pages WHERE id = ?`, id)), "страницы")
}

// ListTasks возвращает задачи; при pageID != nil только задачи страницы.
func (s *Store) ListTasks(ctx context.Context, pageID *int64) ([]models.Task, error) {
	ds := s.dialect.From("tasks").Select("id", "page_id", "title", "is_done").Order(goqu.I("id").Asc())
	if pageID != nil {
		ds = ds.Where(goqu.C("page_id").Eq(*pageID))
	}
	items := make([]models.Task, 0)
	if err := s.selectDataset(ctx, &items, ds); err != nil {
		return nil, fmt.Errorf("ошибка чтения задач: %w", err)
	}
	return items, nil
}

func (s *Store) GetTask(ctx context.Context, id int64) (models.Task, error) {
	var t models.Task
	err := s.get(ctx, &t, `SELECT id, page_id, title, is_done FROM tasks WHERE id = ?`, id)
	return t, wrapGet(err, "задачи")
}

func (s *Store) CreateTask(ctx context.Context, t models.Task) (int64, error) {
	id, err := s.insert(ctx, `INSERT INTO tasks (page_id, title, is_done) VALUES (?, ?, ?) RETURNING id`, t.PageID, t.Title, t.IsDone)
	if err != nil {
		return 0, fmt.Errorf("ошибка вставки задачи: %w", err)
	}
	return id, nil
}

func (s *Store) UpdateTask(ctx context.Context, t models.Task) error {
	return wrapWrite(mustAffect(s.exec(ctx, `UPDATE tasks SET page_id = ?, title = ?, is_done = ? WHERE id = ?`, t.PageID, t.Title, t.IsDone, t.ID)), "задачи")
}

func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	return wrapWrite(mustAffect(s.exec(ctx, `DELETE FROM tasks WHERE id = ?`, id)), "задачи")
}

func wrapGet(err error, what string) error {
	if err == nil || err == ErrNotFound {
		return err
	}
	return fmt.Errorf("ошибка поиска %s: %w", what, err)
}

func wrapWrite(err error, what string) error {
	if err == nil || err == ErrNotFound {
		return err
	}
	return fmt.Errorf("ошибка записи %s: %w", what, err)
}
