package health

import (
	"context"

	"ecosense-relay/internal/record"
	"ecosense-relay/internal/store"
)

// Service encapsulates health-related checks.
type Service struct {
	Store store.Store
}

// NewService constructs a new health service.
func NewService(st store.Store) *Service {
	return &Service{Store: st}
}

// Status reports liveness plus result-store reachability.
func (s *Service) Status(ctx context.Context) map[string]bool {
	status := map[string]bool{"ok": true, "store": false}
	if s.Store == nil {
		return status
	}
	if _, err := s.Store.Get(ctx, record.KeyAnalysisStatus); err == nil {
		status["store"] = true
	}
	return status
}
