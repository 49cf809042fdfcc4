// Package services contains the engine's business logic: the query executor,
// the chart configurator, the summarizer, metric alert evaluation, and the
// usage gate. Services receive intents that already cleared the validation
// pipeline; their job is tenant-scoped execution and presentation, not
// re-validation of the model's input.
package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/glimpsehq/glimpse-engine/pkg/datastore"
	"github.com/glimpsehq/glimpse-engine/pkg/models"
)

// Store is the slice of the datastore the services depend on. The
// abstraction exists so service tests can run against an in-memory fake
// instead of a live Postgres.
type Store interface {
	Select(ctx context.Context, tenantID uuid.UUID, req datastore.SelectRequest) ([]models.Row, error)
	Count(ctx context.Context, tenantID uuid.UUID, req datastore.SelectRequest) (int64, error)
	InsertAuditLog(ctx context.Context, tenantID uuid.UUID, rec datastore.AuditRecord) error
	RecordUsage(ctx context.Context, tenantID uuid.UUID, tool string) error
	CountUsageSince(ctx context.Context, tenantID uuid.UUID, since time.Time) (int64, error)
}

var _ Store = (*datastore.DB)(nil)
