package repository

import "example.com/taskapi/internal/domain"

// TaskRepository owns the task sequence and the id counter.
// Each method is atomic with respect to the others; ids are never reused.
// Missing ids are reported as storage.ErrNotFound.
type TaskRepository interface {
	Create(in domain.TaskInput) (domain.Task, error)
	List(page domain.Page) ([]domain.Task, error)
	GetByID(id int64) (domain.Task, error)
	Update(id int64, in domain.TaskInput) (domain.Task, error)
	Delete(id int64) error
}
