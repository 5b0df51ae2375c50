package search

import (
	"context"

	"exasignal/internal/models"
)

// Provider is one research source. Implementations are catch-and-report:
// transport and decode failures come back as errors and the orchestrator
// decides how to degrade.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]models.ResearchResult, error)

	// Metered reports whether calls count against a daily quota.
	Metered() bool

	// Available reports whether the provider is configured. A provider
	// without credentials disables itself instead of failing every call.
	Available() bool
}
