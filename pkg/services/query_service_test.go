package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/glimpsehq/glimpse-engine/pkg/config"
	"github.com/glimpsehq/glimpse-engine/pkg/models"
	"github.com/glimpsehq/glimpse-engine/pkg/resources"
)

var testTenant = uuid.MustParse("6f1c8f4e-2d3a-4b5c-8d9e-1f2a3b4c5d6e")

func testEngineConfig() config.EngineConfig {
	return config.EngineConfig{MaxPageSize: 100, MaxLimit: 1000}
}

func newQueryService(store *fakeStore) QueryService {
	return NewQueryService(store, resources.NewRegistry(), testEngineConfig(), zap.NewNop())
}

func TestExecute_TenantPredicateAlwaysFirst(t *testing.T) {
	store := &fakeStore{rows: []models.Row{{"name": "Acme", "status": "active"}}}
	svc := newQueryService(store)

	result := svc.Execute(context.Background(), testTenant, models.QueryIntent{
		Resource: "customers",
		Filters: []models.Filter{
			{Column: "status", Operator: models.OperatorEq, Value: "active"},
		},
	})

	require.Len(t, store.selectReqs, 1)
	req := store.selectReqs[0]
	require.NotEmpty(t, req.Predicates)
	assert.Equal(t, "organization_id", req.Predicates[0].Column)
	assert.Equal(t, models.OperatorEq, req.Predicates[0].Operator)
	assert.Equal(t, testTenant, req.Predicates[0].Value)
	assert.Len(t, req.Predicates, 2)

	assert.Equal(t, 1, result.Metadata.RowCount)
}

func TestExecute_TenantPredicateWithoutFilters(t *testing.T) {
	store := &fakeStore{rows: []models.Row{}}
	svc := newQueryService(store)

	svc.Execute(context.Background(), testTenant, models.QueryIntent{Resource: "revenue"})

	req := store.lastSelect()
	require.Len(t, req.Predicates, 1)
	assert.Equal(t, "organization_id", req.Predicates[0].Column)
}

func TestExecute_OrganizationsTenantColumnIsID(t *testing.T) {
	store := &fakeStore{rows: []models.Row{}}
	svc := newQueryService(store)

	svc.Execute(context.Background(), testTenant, models.QueryIntent{Resource: "organizations"})

	req := store.lastSelect()
	assert.Equal(t, "id", req.Predicates[0].Column)
}

func TestExecute_PageSizeClamped(t *testing.T) {
	store := &fakeStore{rows: []models.Row{}, countTotal: 500}
	svc := newQueryService(store)

	result := svc.Execute(context.Background(), testTenant, models.QueryIntent{
		Resource: "customers",
		Page:     2,
		PageSize: 5000,
	})

	req := store.lastSelect()
	assert.Equal(t, 100, req.Limit)
	assert.Equal(t, 100, req.Offset)

	require.NotNil(t, result.Pagination)
	assert.Equal(t, 100, result.Pagination.PageSize)
	assert.Equal(t, int64(500), result.Pagination.TotalRows)
	assert.Equal(t, 5, result.Pagination.TotalPages)
	assert.True(t, result.Pagination.HasNextPage)
	assert.True(t, result.Pagination.HasPreviousPage)
}

func TestExecute_PaginationBounds(t *testing.T) {
	tests := []struct {
		name     string
		page     int
		total    int64
		wantNext bool
		wantPrev bool
	}{
		{"first page", 1, 30, true, false},
		{"middle page", 2, 30, true, true},
		{"last page", 3, 30, false, true},
		{"single page", 1, 5, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{rows: []models.Row{}, countTotal: tt.total}
			svc := newQueryService(store)

			result := svc.Execute(context.Background(), testTenant, models.QueryIntent{
				Resource: "customers",
				Page:     tt.page,
				PageSize: 10,
			})

			require.NotNil(t, result.Pagination)
			assert.Equal(t, tt.wantNext, result.Pagination.HasNextPage)
			assert.Equal(t, tt.wantPrev, result.Pagination.HasPreviousPage)
		})
	}
}

func TestExecute_LimitClamped(t *testing.T) {
	store := &fakeStore{rows: []models.Row{}}
	svc := newQueryService(store)

	svc.Execute(context.Background(), testTenant, models.QueryIntent{
		Resource: "customers",
		Limit:    99999,
	})
	assert.Equal(t, 1000, store.lastSelect().Limit)

	svc.Execute(context.Background(), testTenant, models.QueryIntent{Resource: "customers"})
	assert.Equal(t, 1000, store.lastSelect().Limit)

	svc.Execute(context.Background(), testTenant, models.QueryIntent{
		Resource: "customers",
		Limit:    50,
	})
	assert.Equal(t, 50, store.lastSelect().Limit)
}

func TestExecute_StoreErrorYieldsEmptyResult(t *testing.T) {
	store := &fakeStore{selectErr: errors.New("connection refused")}
	svc := newQueryService(store)

	result := svc.Execute(context.Background(), testTenant, models.QueryIntent{Resource: "customers"})

	assert.Empty(t, result.Data)
	assert.Equal(t, 0, result.Metadata.RowCount)
	assert.Nil(t, result.Aggregations)
	assert.Nil(t, result.Pagination)
}

func TestExecute_AggregationResult(t *testing.T) {
	store := &fakeStore{rows: []models.Row{{"sum_amount": float64(1234.5)}}}
	svc := newQueryService(store)

	result := svc.Execute(context.Background(), testTenant, models.QueryIntent{
		Resource:     "revenue",
		Aggregations: []models.Aggregation{{Field: "amount", Function: models.AggregateSum}},
	})

	require.Len(t, result.Aggregations, 1)
	assert.Equal(t, "amount", result.Aggregations[0].Field)
	assert.Equal(t, models.AggregateSum, result.Aggregations[0].Function)
	assert.Equal(t, float64(1234.5), result.Aggregations[0].Value)
	assert.Empty(t, result.Data)

	// The aggregate query is still tenant scoped.
	req := store.lastSelect()
	assert.Equal(t, "organization_id", req.Predicates[0].Column)
}

func TestExecute_DisallowedAggregateFailsClosed(t *testing.T) {
	store := &fakeStore{rows: []models.Row{{"sum_id": float64(10)}}}
	svc := newQueryService(store)

	result := svc.Execute(context.Background(), testTenant, models.QueryIntent{
		Resource:     "profiles",
		Aggregations: []models.Aggregation{{Field: "id", Function: models.AggregateSum}},
	})

	assert.Empty(t, result.Data)
	assert.Empty(t, result.Aggregations)
	assert.Empty(t, store.selectReqs, "no query should reach the store")
}

func TestExecute_GroupByPartitionsRows(t *testing.T) {
	store := &fakeStore{rows: []models.Row{
		{"region": "eu", "name": "Acme"},
		{"region": "us", "name": "Globex"},
		{"region": "eu", "name": "Initech"},
	}}
	svc := newQueryService(store)

	result := svc.Execute(context.Background(), testTenant, models.QueryIntent{
		Resource: "customers",
		GroupBy:  []string{"region"},
	})

	require.NotNil(t, result.GroupedBy)
	assert.Len(t, result.GroupedBy["eu"], 2)
	assert.Len(t, result.GroupedBy["us"], 1)
	assert.Len(t, result.Data, 3)
}

func TestExecute_CompositeGroupKeys(t *testing.T) {
	store := &fakeStore{rows: []models.Row{
		{"region": "eu", "segment": "smb"},
		{"region": "eu", "segment": "ent"},
	}}
	svc := newQueryService(store)

	result := svc.Execute(context.Background(), testTenant, models.QueryIntent{
		Resource: "customers",
		GroupBy:  []string{"region", "segment"},
	})

	require.NotNil(t, result.GroupedBy)
	assert.Contains(t, result.GroupedBy, "eu|smb")
	assert.Contains(t, result.GroupedBy, "eu|ent")
}

func TestExecute_AuditRecordedAsync(t *testing.T) {
	store := &fakeStore{rows: []models.Row{{"name": "Acme"}}}
	svc := newQueryService(store)

	svc.Execute(context.Background(), testTenant, models.QueryIntent{Resource: "customers"})

	require.Eventually(t, func() bool {
		return store.auditCount() == 1
	}, time.Second, 10*time.Millisecond)

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, "query_executed", store.audits[0].Action)
	assert.Equal(t, "customers", store.audits[0].Resource)
	assert.Equal(t, 1, store.audits[0].RowCount)
}

func TestExecute_Idempotent(t *testing.T) {
	store := &fakeStore{rows: []models.Row{{"name": "Acme"}, {"name": "Globex"}}}
	svc := newQueryService(store)

	intent := models.QueryIntent{Resource: "customers", Limit: 10}
	first := svc.Execute(context.Background(), testTenant, intent)
	second := svc.Execute(context.Background(), testTenant, intent)

	assert.Equal(t, first.Data, second.Data)
	assert.Equal(t, first.Metadata.RowCount, second.Metadata.RowCount)
}
