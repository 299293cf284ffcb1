package health

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/onnwee/feedrank/internal/db"
	"github.com/onnwee/feedrank/internal/tracing"
)

// DBChecker reports whether the read model database is reachable and carries
// the tables the recommendation queries read from.
type DBChecker struct {
	conn *sql.DB
}

// NewDBChecker creates a new database health checker.
func NewDBChecker(conn *sql.DB) *DBChecker {
	return &DBChecker{conn: conn}
}

// HealthCheck pings the database and verifies the schema.
func (c *DBChecker) HealthCheck(ctx context.Context) (err error) {
	ctx, end := tracing.StartDBSpan(ctx, "", tracing.DBOperationPing)
	defer func() { end(err) }()

	if err := c.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	if err := db.CheckSchema(ctx, c.conn); err != nil {
		return fmt.Errorf("database schema check failed: %w", err)
	}
	return nil
}
