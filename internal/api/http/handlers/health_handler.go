package handlers

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
)

const readinessTimeout = 2 * time.Second

// Pinger is any backend the readiness probe can check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler responds to liveness and readiness probes.
type HealthHandler struct {
	serviceName  string
	version      string
	startedAt    time.Time
	dependencies map[string]Pinger
}

// NewHealthHandler returns a handler probing the named dependencies, for
// example {"memory": store, "attachments": storage}.
func NewHealthHandler(serviceName, version string, dependencies map[string]Pinger) *HealthHandler {
	return &HealthHandler{
		serviceName:  serviceName,
		version:      version,
		startedAt:    time.Now(),
		dependencies: dependencies,
	}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
		"uptime":  time.Since(h.startedAt).Round(time.Second).String(),
	})
}

// Ready pings every dependency concurrently and answers 503 if any fails.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
	defer cancel()

	results := h.probe(ctx)
	failed := make([]string, 0)
	details := fiber.Map{}
	for name, err := range results {
		if err != nil {
			failed = append(failed, name)
			details[name] = err.Error()
			continue
		}
		details[name] = "ok"
	}

	if len(failed) > 0 {
		sort.Strings(failed)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    "DEPENDENCY_UNAVAILABLE",
				"message": "one or more dependencies unavailable",
				"details": fiber.Map{"failed": failed, "dependencies": details},
			},
		})
	}

	return c.JSON(fiber.Map{
		"status":       "ready",
		"dependencies": details,
	})
}

func (h *HealthHandler) probe(ctx context.Context) map[string]error {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]error, len(h.dependencies))
	)
	for name, dep := range h.dependencies {
		wg.Add(1)
		go func(name string, dep Pinger) {
			defer wg.Done()
			err := dep.Ping(ctx)
			mu.Lock()
			results[name] = err
			mu.Unlock()
		}(name, dep)
	}
	wg.Wait()
	return results
}
