// Package tasks implements task CRUD on top of storage.TaskStore.
// Writes require an authenticated identity; updates and deletes also require ownership.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hongminglow/taskql/internal/auth"
	"github.com/hongminglow/taskql/internal/models"
	"github.com/hongminglow/taskql/internal/models/dto"
	"github.com/hongminglow/taskql/internal/storage"
)

var (
	// ErrForbidden is returned when the caller does not own the task.
	ErrForbidden = errors.New("task belongs to another user")
	// ErrDuplicateTitle is returned when another task already uses the title.
	ErrDuplicateTitle = errors.New("task title already exists")
)

type Service struct {
	store  storage.TaskStore
	logger *slog.Logger
}

func NewService(store storage.TaskStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// Create stores a task owned by the caller.
func (s *Service) Create(ctx context.Context, req dto.CreateTaskRequest) (models.Task, error) {
	owner, err := auth.RequireIdentity(ctx)
	if err != nil {
		return models.Task{}, err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return models.Task{}, &auth.ValidationError{Field: "title", Message: "is required"}
	}
	done := false
	if req.Done != nil {
		done = *req.Done
	}

	created, err := s.store.CreateTask(ctx, models.Task{
		Title:       title,
		Description: req.Description,
		Tags:        cleanTags(req.Tags),
		Done:        done,
		UserID:      owner.ID,
	})
	if err != nil {
		return models.Task{}, mapStoreErr("create task", err)
	}
	s.logger.InfoContext(ctx, "task created", slog.String("task_id", created.ID), slog.String("user_id", owner.ID))
	return created, nil
}

// Get returns a task by id.
func (s *Service) Get(ctx context.Context, id string) (models.Task, error) {
	task, err := s.store.FindTaskByID(ctx, id)
	if err != nil {
		return models.Task{}, mapStoreErr("get task", err)
	}
	return task, nil
}

// ListTodo returns unfinished tasks, limited to userID when it is set.
func (s *Service) ListTodo(ctx context.Context, userID string) ([]models.Task, error) {
	return s.listByDone(ctx, userID, false)
}

// ListDone returns finished tasks, limited to userID when it is set.
func (s *Service) ListDone(ctx context.Context, userID string) ([]models.Task, error) {
	return s.listByDone(ctx, userID, true)
}

func (s *Service) listByDone(ctx context.Context, userID string, done bool) ([]models.Task, error) {
	filter := storage.TaskFilter{UserID: strings.TrimSpace(userID), Done: &done}
	out, err := s.store.ListTasks(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return out, nil
}

// ListByOwner returns every task owned by userID.
func (s *Service) ListByOwner(ctx context.Context, userID string) ([]models.Task, error) {
	out, err := s.store.ListTasks(ctx, storage.TaskFilter{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return out, nil
}

// FindByTags returns tasks carrying any of tags, optionally limited to userID.
func (s *Service) FindByTags(ctx context.Context, tags []string, userID string) ([]models.Task, error) {
	tags = cleanTags(tags)
	if len(tags) == 0 {
		return nil, &auth.ValidationError{Field: "tags", Message: "at least one tag is required"}
	}
	out, err := s.store.ListTasks(ctx, storage.TaskFilter{UserID: userID, Tags: tags})
	if err != nil {
		return nil, fmt.Errorf("find tasks: %w", err)
	}
	return out, nil
}

// Update applies every field present in req to a task the caller owns.
func (s *Service) Update(ctx context.Context, id string, req dto.UpdateTaskRequest) (models.Task, error) {
	if _, err := s.owned(ctx, id); err != nil {
		return models.Task{}, err
	}

	patch := storage.TaskPatch{Description: req.Description, Done: req.Done}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return models.Task{}, &auth.ValidationError{Field: "title", Message: "must not be empty"}
		}
		patch.Title = &title
	}
	if req.Tags != nil {
		tags := cleanTags(*req.Tags)
		patch.Tags = &tags
	}

	updated, err := s.store.UpdateTask(ctx, id, patch)
	if err != nil {
		return models.Task{}, mapStoreErr("update task", err)
	}
	return updated, nil
}

// Delete removes a task the caller owns and returns it.
func (s *Service) Delete(ctx context.Context, id string) (models.Task, error) {
	if _, err := s.owned(ctx, id); err != nil {
		return models.Task{}, err
	}
	deleted, err := s.store.DeleteTask(ctx, id)
	if err != nil {
		return models.Task{}, mapStoreErr("delete task", err)
	}
	s.logger.InfoContext(ctx, "task deleted", slog.String("task_id", id))
	return deleted, nil
}

func (s *Service) owned(ctx context.Context, id string) (models.Task, error) {
	caller, err := auth.RequireIdentity(ctx)
	if err != nil {
		return models.Task{}, err
	}
	task, err := s.store.FindTaskByID(ctx, id)
	if err != nil {
		return models.Task{}, mapStoreErr("get task", err)
	}
	if task.UserID != caller.ID {
		return models.Task{}, ErrForbidden
	}
	return task, nil
}

func mapStoreErr(op string, err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return storage.ErrNotFound
	case errors.Is(err, storage.ErrAlreadyExists):
		return ErrDuplicateTitle
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// cleanTags trims, drops empties and de-duplicates while keeping order.
func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
