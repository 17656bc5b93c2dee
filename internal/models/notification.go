package models

import (
	"time"

	"github.com/gofrs/uuid"
)

// NotificationLogEntry records the outcome of one delivery attempt.
type NotificationLogEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	URL        string    `json:"url"`
	TaskID     uuid.UUID `json:"taskId"`
	Success    bool      `json:"success"`
	StatusCode int       `json:"statusCode,omitempty"`
	Error      string    `json:"error,omitempty"`
	Payload    string    `json:"payload"`
}
