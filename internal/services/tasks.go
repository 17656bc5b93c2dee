package services

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/uuid"

	"github.com/AlirezaEivazi/Manage-Works/internal/models"
	"github.com/AlirezaEivazi/Manage-Works/internal/store"
)

type CreateTaskRequest struct {
	Text     string     `json:"text" binding:"required"`
	IsDone   bool       `json:"isDone"`
	Category string     `json:"category"`
	Color    string     `json:"color"`
	DeadLine *time.Time `json:"deadLine"`
}

type UpdateTaskRequest struct {
	Text          *string    `json:"text"`
	IsDone        *bool      `json:"isDone"`
	Category      *string    `json:"category"`
	Color         *string    `json:"color"`
	DeadLine      *time.Time `json:"deadLine"`
	ClearDeadLine bool       `json:"clearDeadLine"`
}

func (r UpdateTaskRequest) Patch() models.TaskPatch {
	return models.TaskPatch{
		Text:          r.Text,
		IsDone:        r.IsDone,
		Category:      r.Category,
		Color:         r.Color,
		DeadLine:      r.DeadLine,
		ClearDeadLine: r.ClearDeadLine,
	}
}

// TaskQuery filters and orders a task listing. Page 0 returns everything.
type TaskQuery struct {
	Category string
	SortBy   string
	Order    string
	Page     int
	PageSize int
}

// ParseTaskQuery reads the query string values, falling back to defaults for
// anything unknown.
func ParseTaskQuery(category, sortBy, order, page, pageSize string) TaskQuery {
	q := TaskQuery{Category: category, SortBy: "createdAt", Order: "asc", PageSize: 20}

	switch sortBy {
	case "createdAt", "deadLine", "text":
		q.SortBy = sortBy
	}
	if order == "desc" {
		q.Order = order
	}
	if v, err := strconv.Atoi(page); err == nil && v > 0 {
		q.Page = v
	}
	if v, err := strconv.Atoi(pageSize); err == nil && v > 0 && v <= 100 {
		q.PageSize = v
	}
	return q
}

type TaskService interface {
	CreateTask(owner string, req CreateTaskRequest) (models.Task, error)
	GetTask(owner string, id uuid.UUID) (models.Task, error)
	ListTasks(owner string, q TaskQuery) ([]models.Task, int)
	UpdateTask(owner string, id uuid.UUID, req UpdateTaskRequest) (models.Task, error)
	ToggleTask(owner string, id uuid.UUID) (models.Task, error)
	DeleteTask(owner string, id uuid.UUID) error
}

type TaskServiceImpl struct {
	store *store.Store
}

func NewTaskService(st *store.Store) *TaskServiceImpl {
	return &TaskServiceImpl{store: st}
}

func (s *TaskServiceImpl) CreateTask(owner string, req CreateTaskRequest) (models.Task, error) {
	return s.store.CreateTask(models.Task{
		Text:          req.Text,
		IsDone:        req.IsDone,
		OwnerUsername: owner,
		Category:      req.Category,
		Color:         req.Color,
		DeadLine:      req.DeadLine,
	})
}

// GetTask hides tasks of other users behind ErrNotFound.
func (s *TaskServiceImpl) GetTask(owner string, id uuid.UUID) (models.Task, error) {
	task, err := s.store.GetTask(id)
	if err != nil {
		return models.Task{}, err
	}
	if !strings.EqualFold(task.OwnerUsername, owner) {
		return models.Task{}, store.ErrNotFound
	}
	return task, nil
}

// ListTasks returns the requested page and the total number of matches.
func (s *TaskServiceImpl) ListTasks(owner string, q TaskQuery) ([]models.Task, int) {
	tasks := s.store.TasksByOwner(owner)
	if q.Category != "" {
		filtered := tasks[:0]
		for _, t := range tasks {
			if t.Category == q.Category {
				filtered = append(filtered, t)
			}
		}
		tasks = filtered
	}

	sortTasks(tasks, q.SortBy, q.Order == "desc")

	total := len(tasks)
	if q.Page > 0 {
		start := (q.Page - 1) * q.PageSize
		if start >= total {
			return []models.Task{}, total
		}
		end := start + q.PageSize
		if end > total {
			end = total
		}
		tasks = tasks[start:end]
	}
	return tasks, total
}

func sortTasks(tasks []models.Task, sortBy string, desc bool) {
	less := func(a, b models.Task) bool {
		switch sortBy {
		case "text":
			return strings.ToLower(a.Text) < strings.ToLower(b.Text)
		case "deadLine":
			// tasks without a deadline go last
			if !a.HasDeadline() || !b.HasDeadline() {
				return a.HasDeadline() && !b.HasDeadline()
			}
			return a.DeadLine.Before(*b.DeadLine)
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		if desc {
			return less(tasks[j], tasks[i])
		}
		return less(tasks[i], tasks[j])
	})
}

func (s *TaskServiceImpl) UpdateTask(owner string, id uuid.UUID, req UpdateTaskRequest) (models.Task, error) {
	return s.store.UpdateTask(owner, id, req.Patch())
}

func (s *TaskServiceImpl) ToggleTask(owner string, id uuid.UUID) (models.Task, error) {
	return s.store.ToggleTask(owner, id)
}

func (s *TaskServiceImpl) DeleteTask(owner string, id uuid.UUID) error {
	return s.store.DeleteTask(owner, id)
}
