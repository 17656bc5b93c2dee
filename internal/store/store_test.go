package store

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/AlirezaEivazi/Manage-Works/internal/models"
	"github.com/gofrs/uuid"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New()
	if _, err := s.CreateUser(models.User{Username: "admin", PasswordHash: "x", Role: models.RoleAdmin}); err != nil {
		t.Fatalf("Failed to seed admin: %v", err)
	}
	if _, err := s.CreateUser(models.User{Username: "alice", PasswordHash: "x"}); err != nil {
		t.Fatalf("Failed to seed alice: %v", err)
	}
	return s
}

func mustTask(t *testing.T, s *Store, owner, text, category string) models.Task {
	t.Helper()
	task, err := s.CreateTask(models.Task{OwnerUsername: owner, Text: text, Category: category})
	if err != nil {
		t.Fatalf("Failed to create task %q: %v", text, err)
	}
	return task
}

func TestCreateUser_DuplicateIsCaseInsensitive(t *testing.T) {
	s := newTestStore(t)

	_, err := s.CreateUser(models.User{Username: "ALICE", PasswordHash: "x"})
	if !IsValidation(err) {
		t.Fatalf("Expected validation error for duplicate username, got %v", err)
	}

	u, err := s.GetUser("Alice")
	if err != nil {
		t.Fatalf("Expected case-insensitive lookup to succeed, got %v", err)
	}
	if u.Role != models.RoleUser {
		t.Errorf("Expected default role User, got %s", u.Role)
	}
}

func TestCreateUser_Validation(t *testing.T) {
	s := New()

	tests := []struct {
		name string
		user models.User
	}{
		{"empty username", models.User{Username: "  ", PasswordHash: "x"}},
		{"empty password", models.User{Username: "bob"}},
		{"bad role", models.User{Username: "bob", PasswordHash: "x", Role: "Root"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.CreateUser(tt.user); !IsValidation(err) {
				t.Errorf("Expected validation error, got %v", err)
			}
		})
	}
}

func TestCreateTask_RequiresTextAndOwner(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.CreateTask(models.Task{OwnerUsername: "alice", Text: "   "}); !IsValidation(err) {
		t.Errorf("Expected validation error for empty text, got %v", err)
	}
	if _, err := s.CreateTask(models.Task{OwnerUsername: "ghost", Text: "x"}); !IsValidation(err) {
		t.Errorf("Expected validation error for unknown owner, got %v", err)
	}

	task := mustTask(t, s, "ALICE", "file report", "")
	if task.OwnerUsername != "alice" {
		t.Errorf("Expected canonical owner 'alice', got %q", task.OwnerUsername)
	}
	if task.ID == uuid.Nil {
		t.Error("Expected task id to be assigned")
	}
}

func TestCreateTask_UsesClock(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s := New(WithClock(func() time.Time { return fixed }))
	s.CreateUser(models.User{Username: "alice", PasswordHash: "x"})

	task := mustTask(t, s, "alice", "x", "")
	if !task.CreatedAt.Equal(fixed) {
		t.Errorf("Expected CreatedAt %v, got %v", fixed, task.CreatedAt)
	}
}

func TestUpdateTask_OwnerScoped(t *testing.T) {
	s := newTestStore(t)
	task := mustTask(t, s, "alice", "draft", "")

	text := "final"
	if _, err := s.UpdateTask("admin", task.ID, models.TaskPatch{Text: &text}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected not found for foreign owner, got %v", err)
	}

	deadline := time.Now().Add(time.Hour)
	updated, err := s.UpdateTask("alice", task.ID, models.TaskPatch{Text: &text, DeadLine: &deadline})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if updated.Text != "final" || !updated.HasDeadline() {
		t.Errorf("Expected text and deadline to be updated, got %+v", updated)
	}

	cleared, err := s.UpdateTask("alice", task.ID, models.TaskPatch{ClearDeadLine: true})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cleared.HasDeadline() {
		t.Error("Expected deadline to be cleared")
	}
}

func TestToggleAndDeleteTask(t *testing.T) {
	s := newTestStore(t)
	task := mustTask(t, s, "alice", "x", "")

	toggled, err := s.ToggleTask("alice", task.ID)
	if err != nil || !toggled.IsDone {
		t.Fatalf("Expected task to be done after toggle, got %+v, %v", toggled, err)
	}

	if err := s.DeleteTask("alice", task.ID); err != nil {
		t.Fatalf("Unexpected delete error: %v", err)
	}
	if _, err := s.GetTask(task.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected task to be gone, got %v", err)
	}
	if err := s.DeleteTask("alice", task.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected second delete to be not found, got %v", err)
	}
}

func TestReturnedTasksAreCopies(t *testing.T) {
	s := newTestStore(t)
	deadline := time.Now().Add(time.Hour)
	task, _ := s.CreateTask(models.Task{OwnerUsername: "alice", Text: "x", DeadLine: &deadline})

	got, _ := s.GetTask(task.ID)
	*got.DeadLine = got.DeadLine.Add(48 * time.Hour)

	again, _ := s.GetTask(task.ID)
	if !again.DeadLine.Equal(deadline) {
		t.Error("Expected stored deadline to be unaffected by caller mutation")
	}
}

func TestRenameCategory_CascadesToTasks(t *testing.T) {
	s := newTestStore(t)
	work, _ := s.CreateCategory("Work")
	mustTask(t, s, "alice", "a", "Work")
	mustTask(t, s, "admin", "b", "Work")
	mustTask(t, s, "alice", "c", "Home")

	if _, err := s.RenameCategory(work.ID, "Office"); err != nil {
		t.Fatalf("Unexpected rename error: %v", err)
	}

	if n := len(s.TasksByCategory("Work")); n != 0 {
		t.Errorf("Expected no tasks left in Work, got %d", n)
	}
	if n := len(s.TasksByCategory("Office")); n != 2 {
		t.Errorf("Expected 2 tasks in Office, got %d", n)
	}
	if n := len(s.TasksByCategory("Home")); n != 1 {
		t.Errorf("Expected Home untouched, got %d", n)
	}
}

func TestRenameCategory_Validation(t *testing.T) {
	s := newTestStore(t)
	work, _ := s.CreateCategory("Work")
	s.CreateCategory("Home")

	if _, err := s.RenameCategory(work.ID, "Home"); !IsValidation(err) {
		t.Errorf("Expected duplicate name to be rejected, got %v", err)
	}
	if _, err := s.RenameCategory(work.ID, ""); !IsValidation(err) {
		t.Errorf("Expected empty name to be rejected, got %v", err)
	}
	if _, err := s.RenameCategory(uuid.Must(uuid.NewV4()), "X"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected not found, got %v", err)
	}
}

func TestRenameCategory_ReadersNeverSeeMixedState(t *testing.T) {
	s := newTestStore(t)
	work, _ := s.CreateCategory("Work")
	for i := 0; i < 200; i++ {
		mustTask(t, s, "alice", "t", "Work")
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	mixed := make(chan string, 1)

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				oldCount, newCount := 0, 0
				for _, task := range s.ListTasks() {
					switch task.Category {
					case "Work":
						oldCount++
					case "Office":
						newCount++
					}
				}
				if oldCount > 0 && newCount > 0 {
					select {
					case mixed <- "observed both Work and Office":
					default:
					}
					return
				}
			}
		}()
	}

	if _, err := s.RenameCategory(work.ID, "Office"); err != nil {
		t.Fatalf("Unexpected rename error: %v", err)
	}
	close(stop)
	wg.Wait()

	select {
	case msg := <-mixed:
		t.Errorf("Reader saw a partial rename: %s", msg)
	default:
	}
}

func TestDeleteCategory_CascadesTaskDeletion(t *testing.T) {
	s := newTestStore(t)
	work, _ := s.CreateCategory("Work")
	mustTask(t, s, "alice", "a", "Work")
	mustTask(t, s, "alice", "b", "")

	removed, err := s.DeleteCategory(work.ID)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if removed != 1 {
		t.Errorf("Expected 1 task removed, got %d", removed)
	}
	if n := len(s.ListTasks()); n != 1 {
		t.Errorf("Expected 1 task remaining, got %d", n)
	}
	if s.CategoryExists("Work") {
		t.Error("Expected category to be gone")
	}
}

func TestPruneStaleCategories(t *testing.T) {
	s := newTestStore(t)
	s.CreateCategory("Work")
	mustTask(t, s, "alice", "a", "Work")
	stale := mustTask(t, s, "alice", "b", "Archived")

	if n := s.PruneStaleCategories(); n != 1 {
		t.Errorf("Expected 1 pruned task, got %d", n)
	}

	got, _ := s.GetTask(stale.ID)
	if got.Category != "" {
		t.Errorf("Expected stale category to be cleared, got %q", got.Category)
	}
	if n := len(s.TasksByCategory("Work")); n != 1 {
		t.Errorf("Expected valid reference untouched, got %d", n)
	}
}

func TestDeleteUser_CascadesTasks(t *testing.T) {
	s := newTestStore(t)
	mustTask(t, s, "alice", "a", "")
	mustTask(t, s, "alice", "b", "")
	mustTask(t, s, "admin", "c", "")

	removed, err := s.DeleteUser("Alice")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if removed != 2 {
		t.Errorf("Expected 2 tasks removed, got %d", removed)
	}
	if n := len(s.TasksByOwner("alice")); n != 0 {
		t.Errorf("Expected no tasks for alice, got %d", n)
	}
	if n := len(s.ListTasks()); n != 1 {
		t.Errorf("Expected admin task to remain, got %d", n)
	}
}

func TestDeleteUser_LastAdminRejected(t *testing.T) {
	s := newTestStore(t)
	mustTask(t, s, "admin", "c", "")

	_, err := s.DeleteUser("admin")
	if !IsValidation(err) {
		t.Fatalf("Expected validation error, got %v", err)
	}
	if _, err := s.GetUser("admin"); err != nil {
		t.Error("Expected admin to still exist")
	}
	if n := len(s.TasksByOwner("admin")); n != 1 {
		t.Errorf("Expected admin task untouched, got %d", n)
	}
}

func TestUpdateUser_LastAdminDemotionRejected(t *testing.T) {
	s := newTestStore(t)
	role := models.RoleUser

	if _, err := s.UpdateUser("admin", models.UserPatch{Role: &role}); !IsValidation(err) {
		t.Fatalf("Expected validation error, got %v", err)
	}
	if s.AdminCount() != 1 {
		t.Errorf("Expected admin count 1, got %d", s.AdminCount())
	}

	admin := models.RoleAdmin
	if _, err := s.UpdateUser("alice", models.UserPatch{Role: &admin}); err != nil {
		t.Fatalf("Unexpected promotion error: %v", err)
	}
	if _, err := s.UpdateUser("admin", models.UserPatch{Role: &role}); err != nil {
		t.Errorf("Expected demotion to succeed with a second admin, got %v", err)
	}
}

func TestUpdateUser_RenameCascadesOwner(t *testing.T) {
	s := newTestStore(t)
	mustTask(t, s, "alice", "a", "")
	s.SetNotificationURL("alice", "http://hook")

	name := "alicia"
	u, err := s.UpdateUser("alice", models.UserPatch{Username: &name})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if u.NotificationURL != "http://hook" {
		t.Error("Expected notification URL to survive rename")
	}
	if n := len(s.TasksByOwner("alicia")); n != 1 {
		t.Errorf("Expected task to follow rename, got %d", n)
	}
	if _, err := s.GetUser("alice"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected old username to be gone, got %v", err)
	}

	taken := "ADMIN"
	if _, err := s.UpdateUser("alicia", models.UserPatch{Username: &taken}); !IsValidation(err) {
		t.Errorf("Expected rename onto existing user to fail, got %v", err)
	}
}

func TestCreateUser_NormalizesRole(t *testing.T) {
	s := New()
	u, err := s.CreateUser(models.User{Username: "root", PasswordHash: "x", Role: "admin"})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if u.Role != models.RoleAdmin || s.AdminCount() != 1 {
		t.Errorf("Expected role Admin counted as admin, got %q (count %d)", u.Role, s.AdminCount())
	}

	role := models.Role("user")
	if _, err := s.UpdateUser("root", models.UserPatch{Role: &role}); !IsValidation(err) {
		t.Errorf("Expected lowercase demotion of last admin to be rejected, got %v", err)
	}

	s.CreateUser(models.User{Username: "other", PasswordHash: "x", Role: models.RoleAdmin})
	updated, err := s.UpdateUser("root", models.UserPatch{Role: &role})
	if err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}
	if updated.Role != models.RoleUser {
		t.Errorf("Expected stored role User, got %q", updated.Role)
	}
}

func TestUpdateUser_RotatesTokenVersion(t *testing.T) {
	s := newTestStore(t)
	before, _ := s.GetUser("alice")
	if before.TokenVersion == "" {
		t.Fatal("Expected a token version on create")
	}

	role := models.RoleUser
	after, _ := s.UpdateUser("alice", models.UserPatch{Role: &role})
	if after.TokenVersion != before.TokenVersion {
		t.Error("Expected role change to keep the token version")
	}

	hash := "y"
	after, _ = s.UpdateUser("alice", models.UserPatch{PasswordHash: &hash})
	if after.TokenVersion == before.TokenVersion {
		t.Error("Expected password change to rotate the token version")
	}

	name := "alicia"
	renamed, _ := s.UpdateUser("alice", models.UserPatch{Username: &name})
	if renamed.TokenVersion == after.TokenVersion {
		t.Error("Expected rename to rotate the token version")
	}

	s.DeleteUser("alicia")
	again, _ := s.CreateUser(models.User{Username: "alicia", PasswordHash: "x"})
	if again.TokenVersion == renamed.TokenVersion {
		t.Error("Expected a recreated user to get a fresh token version")
	}
}
