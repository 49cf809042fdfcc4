package datastore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RecordUsage appends one tool invocation to the tenant's usage log.
func (db *DB) RecordUsage(ctx context.Context, tenantID uuid.UUID, tool string) error {
	scope, err := db.WithTenant(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("failed to acquire tenant connection: %w", err)
	}
	defer scope.Close()

	_, err = scope.Conn.Exec(ctx,
		"INSERT INTO usage_log (organization_id, tool) VALUES ($1, $2)",
		tenantID, tool)
	if err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}
	return nil
}

// CountUsageSince returns the number of tool invocations the tenant has made
// since the given time. The usage gate compares this against the daily quota.
func (db *DB) CountUsageSince(ctx context.Context, tenantID uuid.UUID, since time.Time) (int64, error) {
	scope, err := db.WithTenant(ctx, tenantID)
	if err != nil {
		return 0, fmt.Errorf("failed to acquire tenant connection: %w", err)
	}
	defer scope.Close()

	var count int64
	err = scope.Conn.QueryRow(ctx,
		"SELECT COUNT(*) FROM usage_log WHERE organization_id = $1 AND created_at >= $2",
		tenantID, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count usage: %w", err)
	}
	return count, nil
}
