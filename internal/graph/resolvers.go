package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/graphql-go/graphql"

	"github.com/hongminglow/taskql/internal/auth"
	"github.com/hongminglow/taskql/internal/models"
	"github.com/hongminglow/taskql/internal/models/dto"
	"github.com/hongminglow/taskql/internal/storage"
	"github.com/hongminglow/taskql/internal/tasks"
)

// Resolver holds the services GraphQL fields delegate to.
type Resolver struct {
	auth   *auth.Service
	tasks  *tasks.Service
	users  storage.UserStore
	logger *slog.Logger
}

// NewResolver binds the services to the schema's field resolvers. users backs
// the nested Task.author field.
func NewResolver(authSvc *auth.Service, taskSvc *tasks.Service, users storage.UserStore, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{auth: authSvc, tasks: taskSvc, users: users, logger: logger}
}

// fieldFunc is a resolver that may return a service error; resolve wraps it
// so every error leaving the schema is a typed *Error.
type fieldFunc func(p graphql.ResolveParams) (interface{}, error)

func (r *Resolver) resolve(fn fieldFunc) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		out, err := fn(p)
		if err != nil {
			return nil, toGraphQLError(ctx(p), r.logger, err)
		}
		return out, nil
	}
}

func ctx(p graphql.ResolveParams) context.Context {
	if p.Context == nil {
		return context.Background()
	}
	return p.Context
}

// Queries

func (r *Resolver) todoTasks(p graphql.ResolveParams) (interface{}, error) {
	return r.tasks.ListTodo(ctx(p), stringArg(p.Args, "userId"))
}

func (r *Resolver) doneTasks(p graphql.ResolveParams) (interface{}, error) {
	return r.tasks.ListDone(ctx(p), stringArg(p.Args, "userId"))
}

func (r *Resolver) task(p graphql.ResolveParams) (interface{}, error) {
	return r.tasks.Get(ctx(p), stringArg(p.Args, "id"))
}

func (r *Resolver) findTasks(p graphql.ResolveParams) (interface{}, error) {
	return r.tasks.FindByTags(ctx(p), stringList(p.Args["tags"]), stringArg(p.Args, "userId"))
}

func (r *Resolver) me(p graphql.ResolveParams) (interface{}, error) {
	return auth.RequireIdentity(ctx(p))
}

// Mutations

func (r *Resolver) addUser(p graphql.ResolveParams) (interface{}, error) {
	return r.auth.Register(ctx(p), dto.RegisterRequest{
		Firstname: stringArg(p.Args, "firstname"),
		Lastname:  stringArg(p.Args, "lastname"),
		Email:     stringArg(p.Args, "email"),
		Password:  stringArg(p.Args, "password"),
	})
}

func (r *Resolver) login(p graphql.ResolveParams) (interface{}, error) {
	return r.auth.Login(ctx(p), stringArg(p.Args, "email"), stringArg(p.Args, "password"))
}

func (r *Resolver) createTask(p graphql.ResolveParams) (interface{}, error) {
	if _, err := auth.RequireIdentity(ctx(p)); err != nil {
		return nil, err
	}
	input, _ := p.Args["input"].(map[string]interface{})
	req := dto.CreateTaskRequest{
		Title:       stringArg(input, "title"),
		Description: stringArg(input, "description"),
		Tags:        stringList(input["tags"]),
		Done:        boolArg(input, "done"),
	}
	return r.tasks.Create(ctx(p), req)
}

func (r *Resolver) updateTask(p graphql.ResolveParams) (interface{}, error) {
	if _, err := auth.RequireIdentity(ctx(p)); err != nil {
		return nil, err
	}
	input, _ := p.Args["input"].(map[string]interface{})
	req := dto.UpdateTaskRequest{
		Title:       stringPtrArg(input, "title"),
		Description: stringPtrArg(input, "description"),
		Done:        boolArg(input, "done"),
	}
	if raw, ok := input["tags"]; ok && raw != nil {
		tags := stringList(raw)
		req.Tags = &tags
	}
	return r.tasks.Update(ctx(p), stringArg(p.Args, "id"), req)
}

func (r *Resolver) deleteTask(p graphql.ResolveParams) (interface{}, error) {
	if _, err := auth.RequireIdentity(ctx(p)); err != nil {
		return nil, err
	}
	return r.tasks.Delete(ctx(p), stringArg(p.Args, "id"))
}

// Nested fields

func (r *Resolver) taskAuthor(p graphql.ResolveParams) (interface{}, error) {
	task, ok := p.Source.(models.Task)
	if !ok {
		return nil, fmt.Errorf("task author: unexpected source %T", p.Source)
	}
	user, err := r.users.FindUserByID(ctx(p), task.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *Resolver) userTasks(p graphql.ResolveParams) (interface{}, error) {
	user, ok := p.Source.(models.User)
	if !ok {
		return nil, fmt.Errorf("user tasks: unexpected source %T", p.Source)
	}
	return r.tasks.ListByOwner(ctx(p), user.ID)
}

// Argument helpers. graphql-go has already coerced values to the declared
// types, so only absence needs handling.

func stringArg(args map[string]interface{}, key string) string {
	s, _ := args[key].(string)
	return s
}

func stringPtrArg(args map[string]interface{}, key string) *string {
	s, ok := args[key].(string)
	if !ok {
		return nil
	}
	return &s
}

func boolArg(args map[string]interface{}, key string) *bool {
	b, ok := args[key].(bool)
	if !ok {
		return nil
	}
	return &b
}

func stringList(v interface{}) []string {
	items, _ := v.([]interface{})
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
