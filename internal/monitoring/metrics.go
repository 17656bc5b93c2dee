package monitoring

import (
	"context"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type Metrics struct {
	RequestCount    int64
	RequestDuration time.Duration
	ActiveRequests  int64
	ErrorCount      int64
	StatusCodes     map[string]int64
	Endpoints       map[string]int64
	StartTime       time.Time
	LastRequest     time.Time

	NotificationsSent   int64
	NotificationsFailed int64
	ScanCycles          int64

	totalDuration time.Duration
	mu            sync.RWMutex
}

// MetricsSnapshot is a lock-free copy of Metrics.
type MetricsSnapshot struct {
	RequestCount        int64            `json:"request_count"`
	AverageDuration     time.Duration    `json:"average_duration_ns"`
	ActiveRequests      int64            `json:"active_requests"`
	ErrorCount          int64            `json:"error_count"`
	StatusCodes         map[string]int64 `json:"status_codes"`
	Endpoints           map[string]int64 `json:"endpoints"`
	StartTime           time.Time        `json:"start_time"`
	LastRequest         time.Time        `json:"last_request"`
	NotificationsSent   int64            `json:"notifications_sent"`
	NotificationsFailed int64            `json:"notifications_failed"`
	ScanCycles          int64            `json:"scan_cycles"`
}

type MemoryStats struct {
	Alloc      uint64 `json:"alloc_mb"`
	TotalAlloc uint64 `json:"total_alloc_mb"`
	Sys        uint64 `json:"sys_mb"`
	NumGC      uint32 `json:"num_gc"`
}

type SystemMetrics struct {
	Uptime         time.Duration `json:"uptime_ns"`
	GoroutineCount int           `json:"goroutines"`
	CPUCount       int           `json:"cpus"`
	GoVersion      string        `json:"go_version"`
	MemoryUsage    MemoryStats   `json:"memory"`
}

var globalMetrics = newMetrics()

func newMetrics() *Metrics {
	return &Metrics{
		StatusCodes: make(map[string]int64),
		Endpoints:   make(map[string]int64),
		StartTime:   time.Now(),
	}
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		globalMetrics.mu.Lock()
		globalMetrics.ActiveRequests++
		globalMetrics.mu.Unlock()

		c.Next()

		elapsed := time.Since(start)
		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		globalMetrics.mu.Lock()
		defer globalMetrics.mu.Unlock()

		globalMetrics.ActiveRequests--
		globalMetrics.RequestCount++
		globalMetrics.totalDuration += elapsed
		globalMetrics.RequestDuration = elapsed
		globalMetrics.LastRequest = time.Now()
		globalMetrics.StatusCodes[http.StatusText(status)]++
		globalMetrics.Endpoints[c.Request.Method+" "+path]++
		if status >= http.StatusInternalServerError {
			globalMetrics.ErrorCount++
		}
	}
}

// RecordNotification counts one delivery attempt.
func RecordNotification(success bool) {
	globalMetrics.mu.Lock()
	defer globalMetrics.mu.Unlock()

	if success {
		globalMetrics.NotificationsSent++
	} else {
		globalMetrics.NotificationsFailed++
	}
}

func RecordScanCycle() {
	globalMetrics.mu.Lock()
	defer globalMetrics.mu.Unlock()
	globalMetrics.ScanCycles++
}

func GetMetrics() MetricsSnapshot {
	globalMetrics.mu.RLock()
	defer globalMetrics.mu.RUnlock()

	snap := MetricsSnapshot{
		RequestCount:        globalMetrics.RequestCount,
		ActiveRequests:      globalMetrics.ActiveRequests,
		ErrorCount:          globalMetrics.ErrorCount,
		StatusCodes:         make(map[string]int64, len(globalMetrics.StatusCodes)),
		Endpoints:           make(map[string]int64, len(globalMetrics.Endpoints)),
		StartTime:           globalMetrics.StartTime,
		LastRequest:         globalMetrics.LastRequest,
		NotificationsSent:   globalMetrics.NotificationsSent,
		NotificationsFailed: globalMetrics.NotificationsFailed,
		ScanCycles:          globalMetrics.ScanCycles,
	}
	if globalMetrics.RequestCount > 0 {
		snap.AverageDuration = globalMetrics.totalDuration / time.Duration(globalMetrics.RequestCount)
	}
	for k, v := range globalMetrics.StatusCodes {
		snap.StatusCodes[k] = v
	}
	for k, v := range globalMetrics.Endpoints {
		snap.Endpoints[k] = v
	}
	return snap
}

func GetSystemMetrics() SystemMetrics {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	globalMetrics.mu.RLock()
	start := globalMetrics.StartTime
	globalMetrics.mu.RUnlock()

	return SystemMetrics{
		Uptime:         time.Since(start),
		GoroutineCount: runtime.NumGoroutine(),
		CPUCount:       runtime.NumCPU(),
		GoVersion:      runtime.Version(),
		MemoryUsage: MemoryStats{
			Alloc:      bToMb(m.Alloc),
			TotalAlloc: bToMb(m.TotalAlloc),
			Sys:        bToMb(m.Sys),
			NumGC:      m.NumGC,
		},
	}
}

func bToMb(b uint64) uint64 {
	return b / 1024 / 1024
}

var (
	sourcesMu sync.RWMutex
	sources   = make(map[string]func() interface{})
)

// RegisterMetricsSource adds a named section to the /metrics response.
func RegisterMetricsSource(name string, fn func() interface{}) {
	sourcesMu.Lock()
	defer sourcesMu.Unlock()
	sources[name] = fn
}

func MetricsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{
			"application": GetMetrics(),
			"system":      GetSystemMetrics(),
			"timestamp":   time.Now().Format(time.RFC3339),
		}

		sourcesMu.RLock()
		for name, fn := range sources {
			if _, reserved := body[name]; !reserved {
				body[name] = fn()
			}
		}
		sourcesMu.RUnlock()

		c.JSON(http.StatusOK, body)
	}
}

type HealthCheck struct {
	Name        string        `json:"name"`
	Status      string        `json:"status"`
	Message     string        `json:"message,omitempty"`
	LastChecked time.Time     `json:"last_checked"`
	Duration    time.Duration `json:"duration_ns"`
	check       func(ctx context.Context) error
}

type healthChecker struct {
	checks map[string]HealthCheck
	mu     sync.RWMutex
}

var globalHealthChecker = &healthChecker{checks: make(map[string]HealthCheck)}

func RegisterHealthCheck(name string, check func(ctx context.Context) error) {
	globalHealthChecker.mu.Lock()
	defer globalHealthChecker.mu.Unlock()

	globalHealthChecker.checks[name] = HealthCheck{Name: name, check: check}
}

// RunHealthChecks runs every registered check with a 5s budget each.
func RunHealthChecks() map[string]HealthCheck {
	globalHealthChecker.mu.RLock()
	checks := make([]HealthCheck, 0, len(globalHealthChecker.checks))
	for _, hc := range globalHealthChecker.checks {
		checks = append(checks, hc)
	}
	globalHealthChecker.mu.RUnlock()

	results := make(map[string]HealthCheck, len(checks))
	for _, hc := range checks {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		start := time.Now()
		err := hc.check(ctx)
		cancel()

		hc.LastChecked = time.Now()
		hc.Duration = time.Since(start)
		if err != nil {
			hc.Status = "unhealthy"
			hc.Message = err.Error()
		} else {
			hc.Status = "healthy"
		}
		results[hc.Name] = hc
	}
	return results
}

func allHealthy(checks map[string]HealthCheck) bool {
	for _, hc := range checks {
		if hc.Status != "healthy" {
			return false
		}
	}
	return true
}

func HealthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := RunHealthChecks()
		body := gin.H{
			"status":    "healthy",
			"checks":    checks,
			"timestamp": time.Now().Format(time.RFC3339),
			"service":   "manageworks-backend",
		}
		if !allHealthy(checks) {
			body["status"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		c.JSON(http.StatusOK, body)
	}
}

func ReadinessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !allHealthy(RunHealthChecks()) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}

func LivenessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "alive",
			"uptime": GetSystemMetrics().Uptime.String(),
		})
	}
}
