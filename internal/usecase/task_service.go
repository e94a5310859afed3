package usecase

import (
	"example.com/taskapi/internal/domain"
	"example.com/taskapi/internal/repository"
)

type TaskService struct {
	repo repository.TaskRepository
}

func NewTaskService(repo repository.TaskRepository) *TaskService {
	return &TaskService{repo: repo}
}

func (s *TaskService) Create(in domain.TaskInput) (domain.Task, error) {
	in, err := ValidateTaskInput(in)
	if err != nil {
		return domain.Task{}, err
	}
	return s.repo.Create(in)
}

func (s *TaskService) List(page domain.Page) ([]domain.Task, error) {
	if page.Skip < 0 {
		return nil, NewValidationError([]string{"query", "skip"}, "Input should be greater than or equal to 0", "greater_than_equal")
	}
	return s.repo.List(page)
}

func (s *TaskService) Get(id int64) (domain.Task, error) {
	if err := validateID(id); err != nil {
		return domain.Task{}, err
	}
	return s.repo.GetByID(id)
}

func (s *TaskService) Update(id int64, in domain.TaskInput) (domain.Task, error) {
	if err := validateID(id); err != nil {
		return domain.Task{}, err
	}
	in, err := ValidateTaskInput(in)
	if err != nil {
		return domain.Task{}, err
	}
	return s.repo.Update(id, in)
}

func (s *TaskService) Delete(id int64) error {
	if err := validateID(id); err != nil {
		return err
	}
	return s.repo.Delete(id)
}

func validateID(id int64) error {
	if id <= 0 {
		return NewValidationError([]string{"path", "id"}, "Input should be greater than 0", "greater_than")
	}
	return nil
}
