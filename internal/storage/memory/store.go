package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hongminglow/taskql/internal/models"
	"github.com/hongminglow/taskql/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Store is an in-process implementation of storage.Store.
// It is safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	users       map[string]models.User
	userByEmail map[string]string
	tasks       map[string]models.Task
	taskByTitle map[string]string

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		users:       make(map[string]models.User),
		userByEmail: make(map[string]string),
		tasks:       make(map[string]models.Task),
		taskByTitle: make(map[string]string),
		now:         time.Now,
	}
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() {}

func (s *Store) CreateUser(_ context.Context, user models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.userByEmail[user.Email]; ok {
		return models.User{}, storage.ErrAlreadyExists
	}
	user.ID = uuid.NewString()
	user.CreatedAt = s.now().UTC()
	s.users[user.ID] = user
	s.userByEmail[user.Email] = user.ID
	return user, nil
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.userByEmail[email]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return s.users[id], nil
}

func (s *Store) FindUserByID(_ context.Context, id string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return user, nil
}

// DeleteUser removes a user. Only tests use it, to model an identity that
// disappeared after its token was issued.
func (s *Store) DeleteUser(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.users[id]; ok {
		delete(s.userByEmail, user.Email)
		delete(s.users, id)
	}
}

func (s *Store) CreateTask(_ context.Context, task models.Task) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.taskByTitle[task.Title]; ok {
		return models.Task{}, storage.ErrAlreadyExists
	}
	task.ID = uuid.NewString()
	task.CreatedAt = s.now().UTC()
	task.Tags = cloneTags(task.Tags)
	s.tasks[task.ID] = task
	s.taskByTitle[task.Title] = task.ID
	return cloneTask(task), nil
}

func (s *Store) FindTaskByID(_ context.Context, id string) (models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	if !ok {
		return models.Task{}, storage.ErrNotFound
	}
	return cloneTask(task), nil
}

func (s *Store) ListTasks(_ context.Context, filter storage.TaskFilter) ([]models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Task, 0)
	for _, task := range s.tasks {
		if filter.Matches(task) {
			out = append(out, cloneTask(task))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) UpdateTask(_ context.Context, id string, patch storage.TaskPatch) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return models.Task{}, storage.ErrNotFound
	}
	if patch.Title != nil && *patch.Title != task.Title {
		if _, taken := s.taskByTitle[*patch.Title]; taken {
			return models.Task{}, storage.ErrAlreadyExists
		}
		delete(s.taskByTitle, task.Title)
		task.Title = *patch.Title
		s.taskByTitle[task.Title] = id
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.Tags != nil {
		task.Tags = cloneTags(*patch.Tags)
	}
	if patch.Done != nil {
		task.Done = *patch.Done
	}
	s.tasks[id] = task
	return cloneTask(task), nil
}

func (s *Store) DeleteTask(_ context.Context, id string) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return models.Task{}, storage.ErrNotFound
	}
	delete(s.tasks, id)
	delete(s.taskByTitle, task.Title)
	return task, nil
}

func cloneTask(t models.Task) models.Task {
	t.Tags = cloneTags(t.Tags)
	return t
}

func cloneTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	out := make([]string, len(tags))
	copy(out, tags)
	return out
}
