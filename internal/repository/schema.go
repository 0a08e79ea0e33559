package repository

// Schema definitions for the Shrike database.
// Compatible with both SQLite and PostgreSQL.

const schemaMerchants = `
CREATE TABLE IF NOT EXISTS merchants (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    name TEXT NOT NULL,
    phone TEXT NOT NULL,
    region TEXT,
    business_type TEXT,
    bank_account TEXT,
    account_status TEXT NOT NULL,
    kyc_status TEXT NOT NULL,
    kyc_age_days INTEGER NOT NULL DEFAULT 0,
    sim_status TEXT NOT NULL,
    sim_swap_days_ago INTEGER,
    pin_attempts INTEGER NOT NULL DEFAULT 0,
    pin_locked INTEGER NOT NULL DEFAULT 0,
    start_key_status TEXT NOT NULL,
    balance REAL NOT NULL DEFAULT 0,
    dormant_days INTEGER NOT NULL DEFAULT 0,
    operator_dormant_days INTEGER NOT NULL DEFAULT 0,
    notifications_enabled INTEGER NOT NULL DEFAULT 1,
    settlement_on_hold INTEGER NOT NULL DEFAULT 0,
    last_mutation TEXT,
    mutated_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id, tenant_id)
);

CREATE INDEX IF NOT EXISTS idx_merchants_tenant ON merchants(tenant_id);
CREATE INDEX IF NOT EXISTS idx_merchants_status ON merchants(tenant_id, account_status);
`

const schemaEvents = `
CREATE TABLE IF NOT EXISTS twin_events (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    merchant_id TEXT NOT NULL,
    type TEXT NOT NULL,
    days INTEGER NOT NULL DEFAULT 0,
    amount REAL NOT NULL DEFAULT 0,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_tenant ON twin_events(tenant_id);
CREATE INDEX IF NOT EXISTS idx_events_merchant ON twin_events(tenant_id, merchant_id);
CREATE INDEX IF NOT EXISTS idx_events_applied ON twin_events(tenant_id, applied_at);
`

const schemaReports = `
CREATE TABLE IF NOT EXISTS scan_reports (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    merchant_id TEXT NOT NULL,
    scanned_at TIMESTAMP NOT NULL,
    summary TEXT NOT NULL,
    failures TEXT NOT NULL,
    merchant TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reports_tenant ON scan_reports(tenant_id);
CREATE INDEX IF NOT EXISTS idx_reports_merchant ON scan_reports(tenant_id, merchant_id, scanned_at);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaMerchants,
		schemaEvents,
		schemaReports,
	}
}
