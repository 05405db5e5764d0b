// Package feedback records device tokens the gateway has reported as
// invalid so callers can prune their device registries. Rejections carrying
// an invalidation reason (Unregistered, BadDeviceToken) are fed here by the
// client as completions arrive.
package feedback

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InvalidToken is one pruning candidate: a device token and the moment the
// gateway reported it invalid. A token re-registered after InvalidatedAt
// is valid again and must not be pruned.
type InvalidToken struct {
	Token         string    `json:"token"`
	Reason        string    `json:"reason"`
	InvalidatedAt time.Time `json:"invalidated_at"`
}

// Store persists invalid-token reports.
type Store interface {
	// RecordInvalidToken stores one report. Re-reporting a token keeps the
	// most recent invalidation time.
	RecordInvalidToken(ctx context.Context, report InvalidToken) error

	// InvalidTokens returns reports with InvalidatedAt at or after since,
	// oldest first.
	InvalidTokens(ctx context.Context, since time.Time) ([]InvalidToken, error)

	// Forget removes a token's report, e.g. after the caller pruned it.
	Forget(ctx context.Context, token string) error
}

// MemoryStore is an in-process Store, suitable for single-instance
// deployments and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	reports map[string]InvalidToken
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reports: make(map[string]InvalidToken),
	}
}

// RecordInvalidToken stores one report, keeping the most recent
// invalidation time for a re-reported token.
func (s *MemoryStore) RecordInvalidToken(_ context.Context, report InvalidToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.reports[report.Token]; ok && existing.InvalidatedAt.After(report.InvalidatedAt) {
		return nil
	}
	s.reports[report.Token] = report
	return nil
}

// InvalidTokens returns reports at or after since, oldest first.
func (s *MemoryStore) InvalidTokens(_ context.Context, since time.Time) ([]InvalidToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reports := make([]InvalidToken, 0, len(s.reports))
	for _, report := range s.reports {
		if !report.InvalidatedAt.Before(since) {
			reports = append(reports, report)
		}
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].InvalidatedAt.Before(reports[j].InvalidatedAt)
	})
	return reports, nil
}

// Forget removes a token's report.
func (s *MemoryStore) Forget(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.reports, token)
	return nil
}
