// Package storagetest holds behavioural contracts every storage.Store driver must satisfy.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hongminglow/taskql/internal/models"
	"github.com/hongminglow/taskql/internal/storage"
)

type CleanupFunc = func()

type StoreFactory func(t *testing.T) (storage.Store, CleanupFunc)

// unique keeps runs against shared databases from colliding.
func unique(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

func RunUserStore(t *testing.T, newStore StoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	email := unique("user") + "@example.com"
	created, err := store.CreateUser(ctx, models.User{
		Firstname:    "Ada",
		Lastname:     "Lovelace",
		Email:        email,
		PasswordHash: "hash",
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if created.ID == "" {
		t.Fatal("CreateUser returned empty id")
	}
	if created.CreatedAt.IsZero() {
		t.Fatal("CreateUser returned zero CreatedAt")
	}

	_, err = store.CreateUser(ctx, models.User{Firstname: "B", Lastname: "C", Email: email, PasswordHash: "x"})
	if !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("duplicate email: want ErrAlreadyExists, got %v", err)
	}

	byEmail, err := store.FindUserByEmail(ctx, email)
	if err != nil {
		t.Fatalf("FindUserByEmail: %v", err)
	}
	if byEmail.ID != created.ID || byEmail.PasswordHash != "hash" {
		t.Fatalf("FindUserByEmail mismatch: %+v", byEmail)
	}

	byID, err := store.FindUserByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("FindUserByID: %v", err)
	}
	if byID.Email != email || byID.Firstname != "Ada" {
		t.Fatalf("FindUserByID mismatch: %+v", byID)
	}

	if _, err := store.FindUserByEmail(ctx, unique("missing")+"@example.com"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("missing email: want ErrNotFound, got %v", err)
	}
	if _, err := store.FindUserByID(ctx, "not-an-id"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("bad id: want ErrNotFound, got %v", err)
	}
}

func RunTaskStore(t *testing.T, newStore StoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	owner, err := store.CreateUser(ctx, models.User{Firstname: "O", Lastname: "W", Email: unique("owner") + "@example.com", PasswordHash: "h"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	work, err := store.CreateTask(ctx, models.Task{
		Title:       unique("write report"),
		Description: "quarterly",
		Tags:        []string{"work", "urgent"},
		UserID:      owner.ID,
	})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if work.ID == "" || work.Done {
		t.Fatalf("unexpected created task: %+v", work)
	}
	home, err := store.CreateTask(ctx, models.Task{
		Title:  unique("water plants"),
		Tags:   []string{"home"},
		Done:   true,
		UserID: owner.ID,
	})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	if _, err := store.CreateTask(ctx, models.Task{Title: work.Title, UserID: owner.ID}); !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("duplicate title: want ErrAlreadyExists, got %v", err)
	}

	got, err := store.FindTaskByID(ctx, work.ID)
	if err != nil {
		t.Fatalf("FindTaskByID: %v", err)
	}
	if got.Title != work.Title || got.UserID != owner.ID || len(got.Tags) != 2 {
		t.Fatalf("FindTaskByID mismatch: %+v", got)
	}

	notDone := false
	todo, err := store.ListTasks(ctx, storage.TaskFilter{UserID: owner.ID, Done: &notDone})
	if err != nil {
		t.Fatalf("ListTasks todo: %v", err)
	}
	if len(todo) != 1 || todo[0].ID != work.ID {
		t.Fatalf("todo list = %+v", todo)
	}

	tagged, err := store.ListTasks(ctx, storage.TaskFilter{UserID: owner.ID, Tags: []string{"home", "nope"}})
	if err != nil {
		t.Fatalf("ListTasks tags: %v", err)
	}
	if len(tagged) != 1 || tagged[0].ID != home.ID {
		t.Fatalf("tag list = %+v", tagged)
	}

	newDesc := "annual"
	updated, err := store.UpdateTask(ctx, work.ID, storage.TaskPatch{Description: &newDesc, Done: &notDone})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if updated.Description != "annual" || updated.Title != work.Title {
		t.Fatalf("UpdateTask result = %+v", updated)
	}

	undone := false
	reopened, err := store.UpdateTask(ctx, home.ID, storage.TaskPatch{Done: &undone})
	if err != nil {
		t.Fatalf("UpdateTask done=false: %v", err)
	}
	if reopened.Done {
		t.Fatal("UpdateTask did not clear done")
	}

	if _, err := store.UpdateTask(ctx, "missing", storage.TaskPatch{Description: &newDesc}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("update missing: want ErrNotFound, got %v", err)
	}

	deleted, err := store.DeleteTask(ctx, work.ID)
	if err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if deleted.ID != work.ID {
		t.Fatalf("DeleteTask returned %+v", deleted)
	}
	if _, err := store.FindTaskByID(ctx, work.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("after delete: want ErrNotFound, got %v", err)
	}
	if _, err := store.DeleteTask(ctx, work.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("double delete: want ErrNotFound, got %v", err)
	}
}
