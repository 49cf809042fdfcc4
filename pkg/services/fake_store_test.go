package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/glimpsehq/glimpse-engine/pkg/datastore"
	"github.com/glimpsehq/glimpse-engine/pkg/models"
)

// fakeStore records every call so tests can assert on the requests the
// services build.
type fakeStore struct {
	mu sync.Mutex

	selectReqs []datastore.SelectRequest
	rows       []models.Row
	selectErr  error

	countReqs  []datastore.SelectRequest
	countTotal int64
	countErr   error

	audits []datastore.AuditRecord

	usages     []string
	usageCount int64
	usageErr   error
}

var _ Store = (*fakeStore)(nil)

func (f *fakeStore) Select(_ context.Context, _ uuid.UUID, req datastore.SelectRequest) ([]models.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selectReqs = append(f.selectReqs, req)
	if f.selectErr != nil {
		return nil, f.selectErr
	}
	return f.rows, nil
}

func (f *fakeStore) Count(_ context.Context, _ uuid.UUID, req datastore.SelectRequest) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.countReqs = append(f.countReqs, req)
	return f.countTotal, f.countErr
}

func (f *fakeStore) InsertAuditLog(_ context.Context, _ uuid.UUID, rec datastore.AuditRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audits = append(f.audits, rec)
	return nil
}

func (f *fakeStore) RecordUsage(_ context.Context, _ uuid.UUID, tool string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.usages = append(f.usages, tool)
	return f.usageErr
}

func (f *fakeStore) CountUsageSince(_ context.Context, _ uuid.UUID, _ time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.usageCount, f.usageErr
}

func (f *fakeStore) auditCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.audits)
}

func (f *fakeStore) lastSelect() datastore.SelectRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.selectReqs[len(f.selectReqs)-1]
}
