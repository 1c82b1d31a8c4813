package models

import "time"

// Task is a to-do item owned by a single user.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	Done        bool      `json:"done"`
	UserID      string    `json:"userId"`
	CreatedAt   time.Time `json:"createdAt"`
}
