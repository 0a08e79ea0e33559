package repository

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/opensource-finance/shrike/internal/domain"
)

// openPostgres opens the Pro tier store. Multi-replica deployments need a
// shared database; SQLite stops being an option once the worker and API
// run on different nodes.
func openPostgres(cfg domain.RepositoryConfig) (*sql.DB, error) {
	host := cfg.PostgresHost
	if host == "" {
		host = "localhost"
	}

	port := cfg.PostgresPort
	if port == 0 {
		port = 5432
	}

	dbname := cfg.PostgresDB
	if dbname == "" {
		dbname = "shrike"
	}

	sslMode := cfg.PostgresSSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host, port, cfg.PostgresUser, cfg.PostgresPassword, dbname, sslMode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres database: %w", err)
	}

	return db, nil
}
