package domain

// NoLimit disables the upper bound of a Page.
const NoLimit = -1

type Task struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Completed   bool    `json:"completed"`
}

// TaskInput is the client-controlled part of a Task, shared by create and update.
type TaskInput struct {
	Title       string  `json:"title" validate:"required,min=3,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

// Page selects a contiguous window of tasks in creation order.
type Page struct {
	Skip  int
	Limit int
}

func (p Page) Unbounded() bool {
	return p.Limit < 0
}

type UploadSummary struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	SizeInBytes int64  `json:"size_in_bytes"`
}
