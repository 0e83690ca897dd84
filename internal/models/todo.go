package models

type Folder struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

type Page struct {
	ID       int64  `db:"id" json:"id"`
	FolderID int64  `db:"folder_id" json:"folder_id"`
	Title    string `db:"title" json:"title"`
}

type Task struct {
	ID     int64  `db:"id" json:"id"`
	PageID int64  `db:"page_id" json:"page_id"`
	Title  string `db:"title" json:"title"`
	IsDone bool   `db:"is_done" json:"is_done"`
}
