package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AlirezaEivazi/Manage-Works/internal/config"
	"github.com/AlirezaEivazi/Manage-Works/internal/models"
	"github.com/AlirezaEivazi/Manage-Works/internal/notify"
	"github.com/AlirezaEivazi/Manage-Works/internal/utils"
)

func setupTestApp(t *testing.T) *Application {
	t.Helper()
	return setupTestAppWithConfig(t, config.Default())
}

func setupTestAppWithConfig(t *testing.T, cfg *config.Config) *Application {
	t.Helper()
	gin.SetMode(gin.TestMode)

	app, err := initializeApplication(cfg)
	if err != nil {
		t.Fatalf("Failed to initialize application: %v", err)
	}
	app.setupRoutes()
	return app
}

func call(t *testing.T, app *Application, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "10.1.2.3:4567"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	app.Router.ServeHTTP(w, req)
	return w
}

func loginToken(t *testing.T, app *Application, username, password string) string {
	t.Helper()
	w := call(t, app, "POST", "/api/auth/login", "", gin.H{"username": username, "password": password})
	if w.Code != http.StatusOK {
		t.Fatalf("Login failed: %d %s", w.Code, w.Body.String())
	}
	var resp map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return resp["token"]
}

func TestInitializeApplication_SeedsAdmin(t *testing.T) {
	app := setupTestApp(t)

	user, err := app.Store.GetUser("admin")
	if err != nil {
		t.Fatalf("Expected seeded admin, got %v", err)
	}
	if !user.IsAdmin() || !utils.CheckPassword(user.PasswordHash, "admin") {
		t.Errorf("Unexpected seeded admin %+v", user)
	}
}

func TestSeedAdmin_UsesProvidedHash(t *testing.T) {
	hash, _ := utils.HashPassword("s3cret")
	app := setupTestApp(t)

	if err := seedAdmin(app.Store, config.SeedConfig{AdminUsername: "root", AdminPasswordHash: hash}); err != nil {
		t.Fatalf("seedAdmin failed: %v", err)
	}
	root, _ := app.Store.GetUser("root")
	if root.PasswordHash != hash {
		t.Error("Expected provided hash to be stored as is")
	}

	if err := seedAdmin(app.Store, config.SeedConfig{AdminUsername: "root", AdminPassword: "other"}); err != nil {
		t.Errorf("Expected reseeding an existing admin to be a no-op, got %v", err)
	}
}

func TestMonitoringRoutes(t *testing.T) {
	app := setupTestApp(t)

	for _, path := range []string{"/health", "/ready", "/live", "/metrics"} {
		if w := call(t, app, "GET", path, "", nil); w.Code != http.StatusOK {
			t.Errorf("GET %s: expected 200, got %d %s", path, w.Code, w.Body.String())
		}
	}

	w := call(t, app, "GET", "/metrics", "", nil)
	var body map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	for _, key := range []string{"store", "scanner", "notification_log"} {
		if _, ok := body[key]; !ok {
			t.Errorf("Expected %s section in metrics", key)
		}
	}
}

func TestLoginIsRateLimited(t *testing.T) {
	app := setupTestApp(t)

	limited := false
	for i := 0; i < app.Config.RateLimit.LoginPerMin+1; i++ {
		w := call(t, app, "POST", "/api/auth/login", "", gin.H{"username": "admin", "password": "wrong"})
		if w.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	if !limited {
		t.Error("Expected repeated logins to be rate limited")
	}
}

func TestStaleTokenRejectedAfterUsernameReuse(t *testing.T) {
	app := setupTestApp(t)
	admin := loginToken(t, app, "admin", "admin")

	if w := call(t, app, "POST", "/api/auth/register", "", gin.H{"username": "alice", "password": "first"}); w.Code != http.StatusCreated {
		t.Fatalf("Register failed: %d %s", w.Code, w.Body.String())
	}
	oldToken := loginToken(t, app, "alice", "first")

	if w := call(t, app, "DELETE", "/api/admin/users/alice", admin, nil); w.Code != http.StatusNoContent && w.Code != http.StatusOK {
		t.Fatalf("Delete failed: %d %s", w.Code, w.Body.String())
	}
	if w := call(t, app, "POST", "/api/auth/register", "", gin.H{"username": "alice", "password": "second"}); w.Code != http.StatusCreated {
		t.Fatalf("Re-register failed: %d %s", w.Code, w.Body.String())
	}
	newToken := loginToken(t, app, "alice", "second")
	if w := call(t, app, "POST", "/api/tasks", newToken, gin.H{"text": "secret"}); w.Code != http.StatusCreated {
		t.Fatalf("Create task failed: %d %s", w.Code, w.Body.String())
	}

	if w := call(t, app, "GET", "/api/tasks", oldToken, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected token of deleted user to be rejected, got %d %s", w.Code, w.Body.String())
	}
	if w := call(t, app, "GET", "/api/tasks", newToken, nil); w.Code != http.StatusOK {
		t.Errorf("Expected new token to work, got %d", w.Code)
	}
}

func TestStaleTokenRejectedAfterRenameAndReuse(t *testing.T) {
	app := setupTestApp(t)
	admin := loginToken(t, app, "admin", "admin")

	call(t, app, "POST", "/api/auth/register", "", gin.H{"username": "bob", "password": "pw"})
	oldToken := loginToken(t, app, "bob", "pw")

	if w := call(t, app, "PUT", "/api/admin/users/bob", admin, gin.H{"username": "robert"}); w.Code != http.StatusOK {
		t.Fatalf("Rename failed: %d %s", w.Code, w.Body.String())
	}
	call(t, app, "POST", "/api/auth/register", "", gin.H{"username": "bob", "password": "other"})

	if w := call(t, app, "GET", "/api/tasks", oldToken, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected token issued before rename to be rejected, got %d", w.Code)
	}
}

func TestAuthenticatedRoutesRateLimitedPerUser(t *testing.T) {
	cfg := config.Default()
	cfg.RateLimit.UserPerMin = 2
	app := setupTestAppWithConfig(t, cfg)

	call(t, app, "POST", "/api/auth/register", "", gin.H{"username": "dave", "password": "pw"})
	admin := loginToken(t, app, "admin", "admin")
	dave := loginToken(t, app, "dave", "pw")

	for i := 0; i < 2; i++ {
		if w := call(t, app, "GET", "/api/tasks", dave, nil); w.Code != http.StatusOK {
			t.Fatalf("Request %d: expected 200, got %d", i+1, w.Code)
		}
	}
	if w := call(t, app, "GET", "/api/tasks", dave, nil); w.Code != http.StatusTooManyRequests {
		t.Errorf("Expected third request to be limited, got %d", w.Code)
	}
	if w := call(t, app, "GET", "/api/tasks", admin, nil); w.Code != http.StatusOK {
		t.Errorf("Expected other user to have its own budget, got %d", w.Code)
	}
}

// A task due in two hours, owned by a user with a callback URL, is delivered
// once per cycle and shows up in the admin log.
func TestDeadlineNotificationEndToEnd(t *testing.T) {
	var (
		mu       sync.Mutex
		payloads []notify.Payload
	)
	receiver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var p notify.Payload
		_ = json.Unmarshal(raw, &p)
		mu.Lock()
		payloads = append(payloads, p)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer receiver.Close()

	app := setupTestApp(t)
	admin := loginToken(t, app, "admin", "admin")

	if w := call(t, app, "POST", "/api/categories", admin, gin.H{"name": "Work"}); w.Code != http.StatusCreated {
		t.Fatalf("Failed to create category: %d", w.Code)
	}
	if w := call(t, app, "POST", "/api/auth/register", "", gin.H{"username": "alice", "password": "pw"}); w.Code != http.StatusCreated {
		t.Fatalf("Failed to register alice: %d", w.Code)
	}
	alice := loginToken(t, app, "alice", "pw")

	deadline := time.Now().Add(2 * time.Hour)
	w := call(t, app, "POST", "/api/tasks", alice, gin.H{"text": "file report", "category": "Work", "deadLine": deadline})
	if w.Code != http.StatusCreated {
		t.Fatalf("Failed to create task: %d %s", w.Code, w.Body.String())
	}
	var task models.Task
	_ = json.Unmarshal(w.Body.Bytes(), &task)

	if w := call(t, app, "PUT", "/api/tasks/set-notification-url", alice, gin.H{"url": receiver.URL}); w.Code != http.StatusOK {
		t.Fatalf("Failed to set url: %d %s", w.Code, w.Body.String())
	}

	result := app.Scanner.RunCycle(context.Background())
	if result.Dispatched != 1 {
		t.Fatalf("Expected 1 dispatch, got %+v", result)
	}

	mu.Lock()
	if len(payloads) != 1 || payloads[0].TaskID != task.ID || payloads[0].Category != "Work" {
		t.Errorf("Unexpected payloads %+v", payloads)
	}
	mu.Unlock()

	w = call(t, app, "GET", "/api/admin/notification-logs", admin, nil)
	var entries []models.NotificationLogEntry
	_ = json.Unmarshal(w.Body.Bytes(), &entries)
	if len(entries) != 1 || !entries[0].Success || entries[0].TaskID != task.ID {
		t.Errorf("Expected one successful log entry, got %+v", entries)
	}
}

func TestHashPasswordCommand(t *testing.T) {
	var out bytes.Buffer
	hashPasswordCmd.SetOut(&out)

	if err := hashPasswordCmd.RunE(hashPasswordCmd, []string{"s3cret"}); err != nil {
		t.Fatalf("hash-password failed: %v", err)
	}
	hash := bytes.TrimSpace(out.Bytes())
	if !utils.CheckPassword(string(hash), "s3cret") {
		t.Errorf("Expected printed bcrypt hash, got %q", hash)
	}
}
