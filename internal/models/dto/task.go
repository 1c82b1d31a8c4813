package dto

type CreateTaskRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Done        *bool    `json:"done,omitempty"`
}

// UpdateTaskRequest carries optional fields; nil means "leave unchanged".
type UpdateTaskRequest struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
	Done        *bool     `json:"done,omitempty"`
}
