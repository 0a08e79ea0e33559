// Package activity provides merchant event activity calculation.
package activity

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/opensource-finance/shrike/internal/domain"
)

// Service counts twin events applied to a merchant within a time window.
// Used by alerting to rate-limit noisy merchants and by the API to report
// recent activity alongside scan results.
type Service struct {
	repo domain.Repository
	db   *sql.DB // Direct DB access for custom queries
}

// NewService creates a new activity service.
func NewService(repo domain.Repository) *Service {
	return &Service{repo: repo}
}

// NewServiceWithDB creates an activity service that queries the database
// directly instead of going through the repository.
func NewServiceWithDB(repo domain.Repository, db *sql.DB) *Service {
	return &Service{repo: repo, db: db}
}

// GetEventCount returns the number of twin events applied to a merchant
// within a time window.
func (s *Service) GetEventCount(ctx context.Context, tenantID, merchantID string, windowSecs int) (int64, error) {
	if tenantID == "" || merchantID == "" {
		return 0, fmt.Errorf("tenantID and merchantID are required")
	}

	since := time.Now().Add(-time.Duration(windowSecs) * time.Second)

	if s.db != nil {
		return s.countFromDB(ctx, tenantID, merchantID, since)
	}

	if s.repo != nil {
		return s.countFromRepo(ctx, tenantID, merchantID, since)
	}

	return 0, fmt.Errorf("no data source available")
}

// countFromDB queries the database directly for event count.
func (s *Service) countFromDB(ctx context.Context, tenantID, merchantID string, since time.Time) (int64, error) {
	query := `
		SELECT COUNT(*) FROM twin_events
		WHERE tenant_id = ?
		AND merchant_id = ?
		AND applied_at >= ?
	`

	var count int64
	err := s.db.QueryRowContext(ctx, query, tenantID, merchantID, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}

	return count, nil
}

// countFromRepo uses the repository to get events and count them.
func (s *Service) countFromRepo(ctx context.Context, tenantID, merchantID string, since time.Time) (int64, error) {
	events, err := s.repo.GetEventsByMerchant(ctx, tenantID, merchantID, since)
	if err != nil {
		return 0, fmt.Errorf("failed to get events: %w", err)
	}
	return int64(len(events)), nil
}
