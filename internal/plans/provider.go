// Package plans resolves per-user subscription limits. The billing system
// itself is an external collaborator; this package only answers "what limits
// does this user have right now".
package plans

import (
	"context"
	"sync"

	"github.com/carworth/carworth/internal/domain"
)

// Static serves plan limits from an in-memory user→plan assignment with a
// default plan for unknown users. Good enough until the billing service
// integration lands.
type Static struct {
	mu          sync.RWMutex
	defaultPlan domain.PlanLimits
	byUser      map[string]domain.PlanLimits
}

// NewStatic builds a provider that serves defaultPlan for unassigned users.
func NewStatic(defaultPlan domain.PlanLimits) *Static {
	return &Static{
		defaultPlan: defaultPlan,
		byUser:      make(map[string]domain.PlanLimits),
	}
}

// GetLimits returns the user's plan limits.
func (s *Static) GetLimits(_ context.Context, userID string) (domain.PlanLimits, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limits, ok := s.byUser[userID]; ok {
		return limits, nil
	}
	return s.defaultPlan, nil
}

// Assign pins a user to a plan.
func (s *Static) Assign(userID string, limits domain.PlanLimits) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUser[userID] = limits
}
