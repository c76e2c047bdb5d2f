package chatbot

import (
	"context"
	"time"

	"github.com/akolanti/landbot/internal/config"
	"github.com/akolanti/landbot/internal/rag"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"

	healthTimeout = 15 * time.Second
)

type HealthReport struct {
	Status    string      `json:"status"`
	Service   string      `json:"service"`
	Checks    []rag.Check `json:"checks"`
	Timestamp time.Time   `json:"timestamp"`
}

// Health checks the database and the retrieval stack. deep also runs a test generation.
func (s *Service) Health(ctx context.Context, deep bool) HealthReport {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	checks := make([]rag.Check, 0, 4)
	if err := s.store.Ping(ctx); err != nil {
		checks = append(checks, rag.Check{Name: "database", Status: rag.CheckDown, Detail: err.Error()})
	} else {
		checks = append(checks, rag.Check{Name: "database", Status: rag.CheckOK})
	}
	checks = append(checks, s.rag.CheckHealth(ctx, deep)...)

	status := StatusHealthy
	for _, c := range checks {
		switch c.Status {
		case rag.CheckDown:
			status = StatusUnhealthy
		case rag.CheckDegraded:
			if status == StatusHealthy {
				status = StatusDegraded
			}
		}
	}
	return HealthReport{
		Status:    status,
		Service:   config.BotInfo.Name,
		Checks:    checks,
		Timestamp: time.Now().UTC(),
	}
}
