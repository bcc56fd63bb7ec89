package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Checker is a function that checks the health of a dependency.
type Checker func(ctx context.Context) error

// Status represents the health status of a component.
type Status string

const (
	StatusUp       Status = "up"
	StatusDown     Status = "down"
	StatusDegraded Status = "degraded"
)

const readinessTimeout = 5 * time.Second

// Response is the JSON response returned by the health endpoints.
type Response struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult is the result of a single health check.
type CheckResult struct {
	Status   Status `json:"status"`
	Critical bool   `json:"critical"`
	Error    string `json:"error,omitempty"`
}

type registration struct {
	check    Checker
	critical bool
}

// Handler provides HTTP health check endpoints. A failing critical check
// makes the service unready (503); a failing non-critical check only
// degrades it (200).
type Handler struct {
	mu       sync.RWMutex
	checkers map[string]registration
}

// NewHandler creates a new health check handler.
func NewHandler() *Handler {
	return &Handler{checkers: make(map[string]registration)}
}

// Register adds a critical checker. Registering the same name again replaces it.
func (h *Handler) Register(name string, checker Checker) {
	h.RegisterCritical(name, checker)
}

// RegisterCritical adds a checker whose failure makes the service unready.
func (h *Handler) RegisterCritical(name string, checker Checker) {
	h.register(name, checker, true)
}

// RegisterNonCritical adds a checker whose failure only degrades the service.
func (h *Handler) RegisterNonCritical(name string, checker Checker) {
	h.register(name, checker, false)
}

func (h *Handler) register(name string, checker Checker, critical bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = registration{check: checker, critical: critical}
}

// LivenessHandler returns 200 while the process is running.
func (h *Handler) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, Response{Status: StatusUp, Timestamp: time.Now().UTC()})
	}
}

// ReadinessHandler runs every registered checker concurrently.
func (h *Handler) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		resp := h.check(ctx)
		status := http.StatusOK
		if resp.Status == StatusDown {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, resp)
	}
}

func (h *Handler) check(ctx context.Context) Response {
	h.mu.RLock()
	regs := make(map[string]registration, len(h.checkers))
	for k, v := range h.checkers {
		regs[k] = v
	}
	h.mu.RUnlock()

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		checks = make(map[string]CheckResult, len(regs))
	)
	for name, reg := range regs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := CheckResult{Status: StatusUp, Critical: reg.critical}
			if err := reg.check(ctx); err != nil {
				res.Status = StatusDown
				res.Error = err.Error()
			}
			mu.Lock()
			checks[name] = res
			mu.Unlock()
		}()
	}
	wg.Wait()

	overall := StatusUp
	for _, res := range checks {
		if res.Status != StatusDown {
			continue
		}
		if res.Critical {
			overall = StatusDown
			break
		}
		overall = StatusDegraded
	}

	return Response{Status: overall, Timestamp: time.Now().UTC(), Checks: checks}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
