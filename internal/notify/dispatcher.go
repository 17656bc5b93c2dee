package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofrs/uuid"

	"github.com/AlirezaEivazi/Manage-Works/internal/models"
	"github.com/AlirezaEivazi/Manage-Works/internal/monitoring"
)

const DefaultTimeout = 10 * time.Second

// ErrInvalidURL is reported for empty, unparsable or non-http(s) callback URLs.
var ErrInvalidURL = errors.New("invalid notification url")

// Payload is the JSON body posted to an owner's callback URL.
type Payload struct {
	TaskID   uuid.UUID  `json:"taskId"`
	TaskText string     `json:"taskText"`
	Deadline *time.Time `json:"deadline"`
	IsDone   bool       `json:"isDone"`
	Category string     `json:"category"`
}

func NewPayload(task models.Task) Payload {
	return Payload{
		TaskID:   task.ID,
		TaskText: task.Text,
		Deadline: task.DeadLine,
		IsDone:   task.IsDone,
		Category: task.Category,
	}
}

// Outcome is the result of a single delivery attempt.
type Outcome struct {
	Success    bool
	StatusCode int
	Err        error
}

// Notifier delivers a reminder for one task. Implementations never return
// an error to the caller; failures are carried in the Outcome.
type Notifier interface {
	Deliver(ctx context.Context, url string, task models.Task) Outcome
}

type Option func(*Dispatcher)

func WithHTTPClient(client *http.Client) Option {
	return func(d *Dispatcher) { d.client = client }
}

func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// Dispatcher posts task reminders over HTTP and records every attempt in a Log.
type Dispatcher struct {
	client  *http.Client
	timeout time.Duration
	log     *Log
	now     func() time.Time
}

func NewDispatcher(entries *Log, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		client:  &http.Client{},
		timeout: DefaultTimeout,
		log:     entries,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ValidateURL accepts absolute http and https URLs with a host.
func ValidateURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https", ErrInvalidURL)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return nil
}

// Deliver performs exactly one POST and appends exactly one log entry.
func (d *Dispatcher) Deliver(ctx context.Context, target string, task models.Task) (out Outcome) {
	body, _ := json.Marshal(NewPayload(task))
	entry := models.NotificationLogEntry{
		URL:     target,
		TaskID:  task.ID,
		Payload: string(body),
	}

	defer func() {
		if r := recover(); r != nil {
			out = Outcome{Err: fmt.Errorf("delivery panicked: %v", r)}
		}
		entry.Timestamp = d.now().UTC()
		entry.Success = out.Success
		entry.StatusCode = out.StatusCode
		if out.Err != nil {
			entry.Error = out.Err.Error()
		}
		d.log.Append(entry)
		monitoring.RecordNotification(out.Success)

		if out.Success {
			log.Printf("📨 Notification for task %s delivered to %s (%d)", task.ID, target, out.StatusCode)
		} else {
			log.Printf("⚠️ Notification for task %s to %s failed: %s", task.ID, target, entry.Error)
		}
	}()

	if err := ValidateURL(target); err != nil {
		return Outcome{Err: err}
	}

	return d.post(ctx, target, body)
}

func (d *Dispatcher) post(ctx context.Context, target string, body []byte) Outcome {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return Outcome{Err: fmt.Errorf("failed to build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return Outcome{Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Outcome{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}
	return Outcome{Success: true, StatusCode: resp.StatusCode}
}
