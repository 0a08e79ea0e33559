// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-finance/shrike/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveMerchant upserts a merchant snapshot with tenant isolation.
func (r *SQLRepository) SaveMerchant(ctx context.Context, tenantID string, m *domain.Merchant) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if err := m.Validate(); err != nil {
		return err
	}

	var simSwap sql.NullInt64
	if m.SIMSwapDaysAgo != nil {
		simSwap = sql.NullInt64{Int64: int64(*m.SIMSwapDaysAgo), Valid: true}
	}

	query := `
		INSERT INTO merchants (
			id, tenant_id, name, phone, region, business_type, bank_account,
			account_status, kyc_status, kyc_age_days,
			sim_status, sim_swap_days_ago,
			pin_attempts, pin_locked, start_key_status, balance,
			dormant_days, operator_dormant_days,
			notifications_enabled, settlement_on_hold,
			last_mutation, mutated_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, tenant_id) DO UPDATE SET
			account_status = excluded.account_status,
			kyc_status = excluded.kyc_status,
			kyc_age_days = excluded.kyc_age_days,
			sim_status = excluded.sim_status,
			sim_swap_days_ago = excluded.sim_swap_days_ago,
			pin_attempts = excluded.pin_attempts,
			pin_locked = excluded.pin_locked,
			start_key_status = excluded.start_key_status,
			balance = excluded.balance,
			dormant_days = excluded.dormant_days,
			operator_dormant_days = excluded.operator_dormant_days,
			notifications_enabled = excluded.notifications_enabled,
			settlement_on_hold = excluded.settlement_on_hold,
			last_mutation = excluded.last_mutation,
			mutated_at = excluded.mutated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		m.ID, tenantID, m.Name, m.Phone, m.Region, m.BusinessType, m.BankAccount,
		string(m.AccountStatus), string(m.KYCStatus), m.KYCAgeDays,
		string(m.SIMStatus), simSwap,
		m.PinAttempts, boolToInt(m.PinLocked), string(m.StartKeyStatus), m.Balance,
		m.DormantDays, m.OperatorDormantDays,
		boolToInt(m.NotificationsEnabled), boolToInt(m.SettlementOnHold),
		m.LastMutation, m.MutatedAt, m.CreatedAt,
	)
	return err
}

const merchantColumns = `
	id, tenant_id, name, phone, region, business_type, bank_account,
	account_status, kyc_status, kyc_age_days,
	sim_status, sim_swap_days_ago,
	pin_attempts, pin_locked, start_key_status, balance,
	dormant_days, operator_dormant_days,
	notifications_enabled, settlement_on_hold,
	last_mutation, mutated_at, created_at
`

func scanMerchant(row interface{ Scan(...any) error }) (*domain.Merchant, error) {
	var m domain.Merchant
	var accountStatus, kycStatus, simStatus, startKey string
	var simSwap sql.NullInt64
	var pinLocked, notifications, hold int
	var lastMutation sql.NullString
	var mutatedAt sql.NullTime

	if err := row.Scan(
		&m.ID, &m.TenantID, &m.Name, &m.Phone, &m.Region, &m.BusinessType, &m.BankAccount,
		&accountStatus, &kycStatus, &m.KYCAgeDays,
		&simStatus, &simSwap,
		&m.PinAttempts, &pinLocked, &startKey, &m.Balance,
		&m.DormantDays, &m.OperatorDormantDays,
		&notifications, &hold,
		&lastMutation, &mutatedAt, &m.CreatedAt,
	); err != nil {
		return nil, err
	}

	m.AccountStatus = domain.AccountStatus(accountStatus)
	m.KYCStatus = domain.KYCStatus(kycStatus)
	m.SIMStatus = domain.SIMStatus(simStatus)
	m.StartKeyStatus = domain.StartKeyStatus(startKey)
	if simSwap.Valid {
		v := int(simSwap.Int64)
		m.SIMSwapDaysAgo = &v
	}
	m.PinLocked = pinLocked == 1
	m.NotificationsEnabled = notifications == 1
	m.SettlementOnHold = hold == 1
	m.LastMutation = lastMutation.String
	if mutatedAt.Valid {
		m.MutatedAt = mutatedAt.Time
	}

	return &m, nil
}

// GetMerchant retrieves a merchant by ID with tenant isolation.
func (r *SQLRepository) GetMerchant(ctx context.Context, tenantID string, merchantID string) (*domain.Merchant, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `SELECT ` + merchantColumns + ` FROM merchants WHERE tenant_id = ? AND id = ?`

	m, err := scanMerchant(r.db.QueryRowContext(ctx, r.rebind(query), tenantID, merchantID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ListMerchants retrieves every merchant for a tenant, ordered by ID.
func (r *SQLRepository) ListMerchants(ctx context.Context, tenantID string) ([]*domain.Merchant, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `SELECT ` + merchantColumns + ` FROM merchants WHERE tenant_id = ? ORDER BY id`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var merchants []*domain.Merchant
	for rows.Next() {
		m, err := scanMerchant(rows)
		if err != nil {
			return nil, err
		}
		merchants = append(merchants, m)
	}

	return merchants, rows.Err()
}

// DeleteMerchant removes a merchant with tenant isolation.
func (r *SQLRepository) DeleteMerchant(ctx context.Context, tenantID string, merchantID string) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	result, err := r.db.ExecContext(ctx, r.rebind(`DELETE FROM merchants WHERE tenant_id = ? AND id = ?`), tenantID, merchantID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveEvent stores an applied twin event with tenant isolation.
func (r *SQLRepository) SaveEvent(ctx context.Context, tenantID string, ev *domain.TwinEvent) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}

	query := `
		INSERT INTO twin_events (id, tenant_id, merchant_id, type, days, amount, applied_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		ev.ID, tenantID, ev.MerchantID, string(ev.Type), ev.Days, ev.Amount, ev.AppliedAt,
	)
	return err
}

// GetEventsByMerchant retrieves a merchant's applied events since a time.
func (r *SQLRepository) GetEventsByMerchant(ctx context.Context, tenantID string, merchantID string, since time.Time) ([]*domain.TwinEvent, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, merchant_id, type, days, amount, applied_at
		FROM twin_events
		WHERE tenant_id = ? AND merchant_id = ? AND applied_at >= ?
		ORDER BY applied_at DESC
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID, merchantID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.TwinEvent
	for rows.Next() {
		var ev domain.TwinEvent
		var typ string
		if err := rows.Scan(&ev.ID, &ev.TenantID, &ev.MerchantID, &typ, &ev.Days, &ev.Amount, &ev.AppliedAt); err != nil {
			return nil, err
		}
		ev.Type = domain.EventType(typ)
		events = append(events, &ev)
	}

	return events, rows.Err()
}

// SaveReport stores a scan report with tenant isolation.
func (r *SQLRepository) SaveReport(ctx context.Context, tenantID string, report *domain.MerchantReport) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	summary, _ := json.Marshal(report.Summary)
	failures, _ := json.Marshal(report.Failures)
	merchant, _ := json.Marshal(report.Merchant)

	query := `
		INSERT INTO scan_reports (id, tenant_id, merchant_id, scanned_at, summary, failures, merchant)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		uuid.NewString(), tenantID, report.Merchant.ID, report.ScannedAt,
		string(summary), string(failures), string(merchant),
	)
	return err
}

// GetLatestReport retrieves the most recent scan report for a merchant.
func (r *SQLRepository) GetLatestReport(ctx context.Context, tenantID string, merchantID string) (*domain.MerchantReport, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT scanned_at, summary, failures, merchant
		FROM scan_reports
		WHERE tenant_id = ? AND merchant_id = ?
		ORDER BY scanned_at DESC
		LIMIT 1
	`

	var report domain.MerchantReport
	var summary, failures, merchant string

	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, merchantID).Scan(
		&report.ScannedAt, &summary, &failures, &merchant,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(summary), &report.Summary); err != nil {
		return nil, fmt.Errorf("failed to parse report summary: %w", err)
	}
	if err := json.Unmarshal([]byte(failures), &report.Failures); err != nil {
		return nil, fmt.Errorf("failed to parse report failures: %w", err)
	}
	if err := json.Unmarshal([]byte(merchant), &report.Merchant); err != nil {
		return nil, fmt.Errorf("failed to parse report merchant: %w", err)
	}

	return &report, nil
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// DB exposes the underlying handle for services that need custom queries
// (e.g. windowed event counts).
func (r *SQLRepository) DB() *sql.DB {
	return r.db
}

func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
