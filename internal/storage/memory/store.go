package memory

import (
	"sync"

	"example.com/taskapi/internal/domain"
	"example.com/taskapi/internal/storage"
)

type Store struct {
	mu     sync.RWMutex
	tasks  []domain.Task
	nextID int64
}

func New() *Store {
	return &Store{
		tasks:  make([]domain.Task, 0, 16),
		nextID: 1,
	}
}

func (s *Store) Create(in domain.TaskInput) (domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := domain.Task{
		ID:          s.nextID,
		Title:       in.Title,
		Description: copyString(in.Description),
	}
	s.tasks = append(s.tasks, t)
	s.nextID++
	return cloneTask(t), nil
}

func (s *Store) List(page domain.Page) ([]domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := page.Skip
	if start < 0 {
		start = 0
	}
	if start >= len(s.tasks) {
		return []domain.Task{}, nil
	}
	end := len(s.tasks)
	if !page.Unbounded() && page.Limit < end-start {
		end = start + page.Limit
	}
	out := make([]domain.Task, 0, end-start)
	for _, t := range s.tasks[start:end] {
		out = append(out, cloneTask(t))
	}
	return out, nil
}

func (s *Store) GetByID(id int64) (domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return domain.Task{}, storage.ErrNotFound
	}
	return cloneTask(s.tasks[i]), nil
}

func (s *Store) Update(id int64, in domain.TaskInput) (domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return domain.Task{}, storage.ErrNotFound
	}
	old := s.tasks[i]
	s.tasks[i] = domain.Task{
		ID:          old.ID,
		Title:       in.Title,
		Description: copyString(in.Description),
		Completed:   old.Completed,
	}
	return cloneTask(s.tasks[i]), nil
}

func (s *Store) Delete(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return storage.ErrNotFound
	}
	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	return nil
}

// indexOf expects s.mu to be held.
func (s *Store) indexOf(id int64) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneTask(t domain.Task) domain.Task {
	t.Description = copyString(t.Description)
	return t
}

func copyString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
