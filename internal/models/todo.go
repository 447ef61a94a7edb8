package models

import (
	"time"

	"github.com/google/uuid"
)

// Todo represents a todo item
type Todo struct {
	ID        uuid.UUID `json:"id"`
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
}

// IndexOf returns the position of the todo with the given ID, or -1
func IndexOf(todos []Todo, id uuid.UUID) int {
	for i := range todos {
		if todos[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a copy of the slice that shares no backing array with todos
func Clone(todos []Todo) []Todo {
	out := make([]Todo, len(todos))
	copy(out, todos)
	return out
}

// CountCompleted returns how many todos are marked completed
func CountCompleted(todos []Todo) int {
	n := 0
	for _, t := range todos {
		if t.Completed {
			n++
		}
	}
	return n
}
