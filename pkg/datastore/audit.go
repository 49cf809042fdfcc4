package datastore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditRecord is one executed-query audit entry. The audit trail is written
// with the tenant GUC set, so the RLS policy on audit_logs scopes reads the
// same way it scopes every other resource.
type AuditRecord struct {
	Action   string
	Resource string
	RowCount int
	Duration time.Duration
}

// InsertAuditLog records an executed intent in the audit trail.
func (db *DB) InsertAuditLog(ctx context.Context, tenantID uuid.UUID, rec AuditRecord) error {
	scope, err := db.WithTenant(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("failed to acquire tenant connection: %w", err)
	}
	defer scope.Close()

	_, err = scope.Conn.Exec(ctx,
		`INSERT INTO audit_logs (organization_id, action, resource, row_count, duration_ms)
		 VALUES ($1, $2, $3, $4, $5)`,
		tenantID, rec.Action, rec.Resource, rec.RowCount, rec.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}
