package notify

import (
	"sync"

	"github.com/AlirezaEivazi/Manage-Works/internal/models"
)

// Log is the append-only record of delivery attempts. Safe for concurrent use.
type Log struct {
	mu      sync.RWMutex
	entries []models.NotificationLogEntry
}

func NewLog() *Log {
	return &Log{}
}

func (l *Log) Append(entry models.NotificationLogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
}

// Entries returns a snapshot in append order.
func (l *Log) Entries() []models.NotificationLogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]models.NotificationLogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
