package api

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ignite/outreach-tracker/internal/pkg/httputil"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const (
	statusUp       = "up"
	statusDown     = "down"
	statusDegraded = "degraded"
	notConfigured  = "not configured"

	// Overdue reminders above this mean the sweep is not keeping up.
	overdueBacklogThreshold = 1000
)

// HealthStatus is the aggregate health document.
type HealthStatus struct {
	Status string                    `json:"status"` // healthy, degraded, unhealthy
	Uptime string                    `json:"uptime"`
	Checks map[string]ComponentCheck `json:"checks"`
}

type ComponentCheck struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

// HealthChecker checks the database, Redis and the follow-up backlog.
// Nil dependencies report "not configured".
type HealthChecker struct {
	db          *sql.DB
	redisClient *redis.Client
	startTime   time.Time
	now         func() time.Time
}

func NewHealthChecker(db *sql.DB, redisClient *redis.Client) *HealthChecker {
	return &HealthChecker{
		db:          db,
		redisClient: redisClient,
		startTime:   time.Now(),
		now:         time.Now,
	}
}

// GET /health
func (hc *HealthChecker) HandleHealth(w http.ResponseWriter, r *http.Request) {
	checks := hc.runAllChecks(r.Context())
	httputil.OK(w, HealthStatus{
		Status: determineOverallStatus(checks),
		Uptime: formatUptime(time.Since(hc.startTime)),
		Checks: checks,
	})
}

// GET /health/live
func (hc *HealthChecker) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]interface{}{
		"status": "alive",
		"uptime": formatUptime(time.Since(hc.startTime)),
	})
}

// HandleReadiness answers 503 while the database is unreachable.
//
//	GET /health/ready
func (hc *HealthChecker) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	checks := hc.runAllChecks(r.Context())
	overall := determineOverallStatus(checks)
	ready := overall != "unhealthy"
	code := http.StatusOK
	if !ready {
		code = http.StatusServiceUnavailable
	}
	httputil.JSON(w, code, map[string]interface{}{
		"ready":  ready,
		"status": overall,
		"checks": checks,
	})
}

func (hc *HealthChecker) runAllChecks(ctx context.Context) map[string]ComponentCheck {
	runners := map[string]func(context.Context) ComponentCheck{
		"database":  hc.checkDatabase,
		"redis":     hc.checkRedis,
		"followups": hc.checkFollowups,
	}

	var mu sync.Mutex
	checks := make(map[string]ComponentCheck, len(runners))
	g, gctx := errgroup.WithContext(ctx)
	for name, run := range runners {
		name, run := name, run
		g.Go(func() error {
			c := run(gctx)
			mu.Lock()
			checks[name] = c
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return checks
}

func timed(start time.Time, err error, slow time.Duration, what string) ComponentCheck {
	latency := time.Since(start)
	if err != nil {
		return ComponentCheck{Status: statusDown, Latency: latency.String(), Message: fmt.Sprintf("%s failed: %v", what, err)}
	}
	if latency > slow {
		return ComponentCheck{Status: statusDegraded, Latency: latency.String(), Message: fmt.Sprintf("slow response (%s)", latency)}
	}
	return ComponentCheck{Status: statusUp, Latency: latency.String(), Message: "connected"}
}

func (hc *HealthChecker) checkDatabase(ctx context.Context) ComponentCheck {
	if hc.db == nil {
		return ComponentCheck{Status: statusDown, Message: notConfigured}
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	start := time.Now()
	return timed(start, hc.db.PingContext(ctx), time.Second, "ping")
}

func (hc *HealthChecker) checkRedis(ctx context.Context) ComponentCheck {
	if hc.redisClient == nil {
		return ComponentCheck{Status: statusDown, Message: notConfigured}
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	start := time.Now()
	return timed(start, hc.redisClient.Ping(ctx).Err(), 500*time.Millisecond, "ping")
}

// checkFollowups counts sent records whose follow-up is overdue and not yet
// reminded, as a proxy for sweep health.
func (hc *HealthChecker) checkFollowups(ctx context.Context) ComponentCheck {
	if hc.db == nil {
		return ComponentCheck{Status: statusDown, Message: notConfigured}
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	start := time.Now()
	var overdue int
	err := hc.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM outreach_records
		WHERE status = 'followup_due'
		  AND followup_due_at <= $1
		  AND reminded_followup_at IS DISTINCT FROM followup_due_at`,
		hc.now().UTC(),
	).Scan(&overdue)
	latency := time.Since(start)
	if err != nil {
		return ComponentCheck{Status: statusDegraded, Latency: latency.String(), Message: fmt.Sprintf("backlog check failed: %v", err)}
	}
	if overdue > overdueBacklogThreshold {
		return ComponentCheck{Status: statusDegraded, Latency: latency.String(), Message: fmt.Sprintf("high backlog: %d overdue follow-ups", overdue)}
	}
	return ComponentCheck{Status: statusUp, Latency: latency.String(), Message: fmt.Sprintf("%d overdue follow-ups", overdue)}
}

// determineOverallStatus is unhealthy when a configured database is down,
// degraded when any other configured check is not up, healthy otherwise.
func determineOverallStatus(checks map[string]ComponentCheck) string {
	if db, ok := checks["database"]; ok && db.Status == statusDown && db.Message != notConfigured {
		return "unhealthy"
	}
	for _, c := range checks {
		if c.Status == statusDegraded || (c.Status == statusDown && c.Message != notConfigured) {
			return "degraded"
		}
	}
	return "healthy"
}

func formatUptime(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
