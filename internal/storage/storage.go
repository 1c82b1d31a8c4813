package storage

import (
	"context"
	"errors"

	"github.com/hongminglow/taskql/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// UserStore captures the credential lookups needed by the auth flow.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	FindUserByEmail(ctx context.Context, email string) (models.User, error)
	FindUserByID(ctx context.Context, id string) (models.User, error)
}

// TaskFilter narrows ListTasks. Zero values mean "no constraint".
// Tags matches tasks carrying any of the listed tags.
type TaskFilter struct {
	UserID string
	Done   *bool
	Tags   []string
}

// TaskPatch lists the fields UpdateTask should overwrite; nil fields are kept.
type TaskPatch struct {
	Title       *string
	Description *string
	Tags        *[]string
	Done        *bool
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Tags == nil && p.Done == nil
}

// TaskStore captures task persistence.
type TaskStore interface {
	CreateTask(ctx context.Context, task models.Task) (models.Task, error)
	FindTaskByID(ctx context.Context, id string) (models.Task, error)
	ListTasks(ctx context.Context, filter TaskFilter) ([]models.Task, error)
	UpdateTask(ctx context.Context, id string, patch TaskPatch) (models.Task, error)
	DeleteTask(ctx context.Context, id string) (models.Task, error)
}

// Store is the full persistence surface a driver provides.
type Store interface {
	UserStore
	TaskStore
	Ping(ctx context.Context) error
	Close()
}

// Matches reports whether task satisfies the filter. Drivers that filter in
// process (memory) use it directly; the others translate the same rules to queries.
func (f TaskFilter) Matches(task models.Task) bool {
	if f.UserID != "" && task.UserID != f.UserID {
		return false
	}
	if f.Done != nil && task.Done != *f.Done {
		return false
	}
	if len(f.Tags) == 0 {
		return true
	}
	for _, want := range f.Tags {
		for _, have := range task.Tags {
			if want == have {
				return true
			}
		}
	}
	return false
}
