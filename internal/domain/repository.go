package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
// All methods require tenantID for strict multi-tenancy isolation.
// The evaluation core never touches this; it exists for the surrounding
// service (API, worker) to store merchants, applied events, and reports.
type Repository interface {
	// Merchant operations
	SaveMerchant(ctx context.Context, tenantID string, m *Merchant) error
	GetMerchant(ctx context.Context, tenantID string, merchantID string) (*Merchant, error)
	ListMerchants(ctx context.Context, tenantID string) ([]*Merchant, error)
	DeleteMerchant(ctx context.Context, tenantID string, merchantID string) error

	// Twin event audit trail
	SaveEvent(ctx context.Context, tenantID string, ev *TwinEvent) error
	GetEventsByMerchant(ctx context.Context, tenantID string, merchantID string, since time.Time) ([]*TwinEvent, error)

	// Scan reports
	SaveReport(ctx context.Context, tenantID string, report *MerchantReport) error
	GetLatestReport(ctx context.Context, tenantID string, merchantID string) (*MerchantReport, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
