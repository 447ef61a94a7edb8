package actions

import (
	"time"

	"github.com/benvon/simple-todo/internal/models"
)

// Level classifies a notification
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Notification is a user-visible message produced by an action
type Notification struct {
	Level   Level
	Message string
	Time    time.Time
}

// Messages shown to the user
const (
	MsgAdded         = "Todo added!"
	MsgAddFailed     = "Failed to add todo."
	MsgToggled       = "Todo toggled successfully!"
	MsgToggleFailed  = "Failed to toggle todo completion."
	MsgEdited        = "Todo updated."
	MsgEditFailed    = "Failed to update todo."
	MsgDeleted       = "Todo deleted."
	MsgDeleteFailed  = "Failed to delete todo."
	MsgNoLongerThere = "Todo no longer exists."
)

// Observer receives collection snapshots and notifications.
// Calls are made outside the service's locks, in the order the changes happened.
type Observer interface {
	TodosChanged(todos []models.Todo)
	Notify(n Notification)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are ignored.
type ObserverFuncs struct {
	OnChange func(todos []models.Todo)
	OnNotify func(n Notification)
}

var _ Observer = ObserverFuncs{}

// TodosChanged implements Observer
func (o ObserverFuncs) TodosChanged(todos []models.Todo) {
	if o.OnChange != nil {
		o.OnChange(todos)
	}
}

// Notify implements Observer
func (o ObserverFuncs) Notify(n Notification) {
	if o.OnNotify != nil {
		o.OnNotify(n)
	}
}
