package memory

import (
	"context"
	"testing"

	"github.com/hongminglow/taskql/internal/models"
	"github.com/hongminglow/taskql/internal/storage"
	"github.com/hongminglow/taskql/internal/storage/storagetest"
)

func newTestStore(t *testing.T) (storage.Store, storagetest.CleanupFunc) {
	t.Helper()
	return NewStore(), nil
}

func TestStore_UserContract(t *testing.T) {
	storagetest.RunUserStore(t, newTestStore)
}

func TestStore_TaskContract(t *testing.T) {
	storagetest.RunTaskStore(t, newTestStore)
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := NewStore()
	created, err := s.CreateTask(context.Background(), storageTask("copy-check", []string{"a"}))
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	created.Tags[0] = "mutated"

	got, err := s.FindTaskByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("FindTaskByID: %v", err)
	}
	if got.Tags[0] != "a" {
		t.Fatalf("store leaked internal slice: %v", got.Tags)
	}
}

func TestStore_DeleteUser(t *testing.T) {
	s := NewStore()
	u, err := s.CreateUser(context.Background(), storageUser("gone@example.com"))
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	s.DeleteUser(u.ID)
	if _, err := s.FindUserByID(context.Background(), u.ID); err != storage.ErrNotFound {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if _, err := s.CreateUser(context.Background(), storageUser("gone@example.com")); err != nil {
		t.Fatalf("email should be free again: %v", err)
	}
}

func storageTask(title string, tags []string) models.Task {
	return models.Task{Title: title, Description: "d", Tags: tags, UserID: "owner"}
}

func storageUser(email string) models.User {
	return models.User{Firstname: "F", Lastname: "L", Email: email, PasswordHash: "h"}
}
