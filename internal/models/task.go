package models

import (
	"time"

	"github.com/gofrs/uuid"
)

type Task struct {
	ID            uuid.UUID  `json:"id"`
	Text          string     `json:"text"`
	IsDone        bool       `json:"isDone"`
	OwnerUsername string     `json:"ownerUsername"`
	Category      string     `json:"category,omitempty"`
	Color         string     `json:"color,omitempty"`
	DeadLine      *time.Time `json:"deadLine,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// TaskPatch carries the editable fields of a task. Nil fields are left untouched.
type TaskPatch struct {
	Text     *string
	IsDone   *bool
	Category *string
	Color    *string
	DeadLine *time.Time
	// ClearDeadLine removes the deadline when set; DeadLine is ignored then.
	ClearDeadLine bool
}

// HasDeadline reports whether the task carries a deadline.
func (t Task) HasDeadline() bool {
	return t.DeadLine != nil && !t.DeadLine.IsZero()
}
