package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"

	"example.com/taskapi/internal/domain"
	"example.com/taskapi/internal/storage"

	_ "github.com/mattn/go-sqlite3"
)

var memSeq atomic.Int64

// memoryDSN names a fresh shared-cache in-memory database. It lives only as
// long as the pool keeps a connection open.
func memoryDSN() string {
	return fmt.Sprintf("file:tasks_%d?mode=memory&cache=shared", memSeq.Add(1))
}

const schema = `
	create table if not exists tasks (
		id integer primary key autoincrement,
		title text not null,
		description text,
		completed integer not null default 0
	)`

type Store struct {
	db *sql.DB
}

func New(driver, dsn string) (*Store, error) {
	if driver == "" {
		driver = "sqlite3"
	}
	if dsn == "" {
		dsn = memoryDSN()
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	// A single connection keeps the in-memory database alive and serializes writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Create(in domain.TaskInput) (domain.Task, error) {
	row := s.db.QueryRow(`
		insert into tasks(title, description)
		values (?, ?)
		returning id, completed`,
		in.Title,
		nullString(in.Description),
	)
	t := domain.Task{Title: in.Title}
	if in.Description != nil {
		d := *in.Description
		t.Description = &d
	}
	if err := row.Scan(&t.ID, &t.Completed); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

func (s *Store) List(page domain.Page) ([]domain.Task, error) {
	limit := int64(page.Limit)
	if page.Unbounded() {
		limit = -1
	}
	skip := page.Skip
	if skip < 0 {
		skip = 0
	}
	rows, err := s.db.Query(`
		select id, title, description, completed
		from tasks
		order by id
		limit ? offset ?`,
		limit,
		skip,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := make([]domain.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (s *Store) GetByID(id int64) (domain.Task, error) {
	row := s.db.QueryRow(`
		select id, title, description, completed
		from tasks
		where id = ?`,
		id,
	)
	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Task{}, storage.ErrNotFound
		}
		return domain.Task{}, err
	}
	return t, nil
}

func (s *Store) Update(id int64, in domain.TaskInput) (domain.Task, error) {
	row := s.db.QueryRow(`
		update tasks
		set title = ?,
			description = ?
		where id = ?
		returning id, title, description, completed`,
		in.Title,
		nullString(in.Description),
		id,
	)
	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Task{}, storage.ErrNotFound
		}
		return domain.Task{}, err
	}
	return t, nil
}

func (s *Store) Delete(id int64) error {
	res, err := s.db.Exec(`delete from tasks where id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (domain.Task, error) {
	var t domain.Task
	var description sql.NullString
	if err := row.Scan(&t.ID, &t.Title, &description, &t.Completed); err != nil {
		return domain.Task{}, err
	}
	if description.Valid {
		t.Description = &description.String
	}
	return t, nil
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}
