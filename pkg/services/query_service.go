package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/glimpsehq/glimpse-engine/pkg/config"
	"github.com/glimpsehq/glimpse-engine/pkg/datastore"
	"github.com/glimpsehq/glimpse-engine/pkg/logging"
	"github.com/glimpsehq/glimpse-engine/pkg/models"
	"github.com/glimpsehq/glimpse-engine/pkg/resources"
)

// QueryService executes validated query intents against the tenant's data.
type QueryService interface {
	// Execute runs the intent and returns its result. Execution failures are
	// never surfaced to the caller: the model gets an empty result and the
	// details stay in the server log.
	Execute(ctx context.Context, tenantID uuid.UUID, intent models.QueryIntent) *models.QueryResult
}

type queryService struct {
	store    Store
	registry *resources.Registry
	cfg      config.EngineConfig
	logger   *zap.Logger
}

func NewQueryService(store Store, registry *resources.Registry, cfg config.EngineConfig, logger *zap.Logger) QueryService {
	return &queryService{
		store:    store,
		registry: registry,
		cfg:      cfg,
		logger:   logger.Named("query-service"),
	}
}

var _ QueryService = (*queryService)(nil)

type countOutcome struct {
	total int64
	err   error
}

func (s *queryService) Execute(ctx context.Context, tenantID uuid.UUID, intent models.QueryIntent) *models.QueryResult {
	start := time.Now()

	req, ok := s.buildRequest(tenantID, &intent)
	if !ok {
		return models.EmptyQueryResult()
	}

	// Pagination totals are counted concurrently with the page fetch.
	var countCh chan countOutcome
	paginated := intent.PageSize > 0 && len(intent.Aggregations) == 0
	if paginated {
		countReq := req
		countCh = make(chan countOutcome, 1)
		go func() {
			total, err := s.store.Count(ctx, tenantID, countReq)
			countCh <- countOutcome{total: total, err: err}
		}()
	}

	rows, err := s.store.Select(ctx, tenantID, req)
	if err != nil {
		s.logStoreError("query execution failed", intent.Resource, err)
		return models.EmptyQueryResult()
	}

	result := s.assembleResult(&intent, rows)

	if paginated {
		count := <-countCh
		if count.err != nil {
			s.logStoreError("pagination count failed", intent.Resource, count.err)
			return models.EmptyQueryResult()
		}
		result.Pagination = buildPagination(intent.Page, clampPageSize(intent.PageSize, s.cfg.MaxPageSize), count.total)
	}

	elapsed := time.Since(start)
	result.Metadata = models.QueryMetadata{
		RowCount:        len(result.Data),
		ExecutionTimeMs: elapsed.Milliseconds(),
	}

	s.auditAsync(tenantID, "query_executed", intent.Resource, len(result.Data), elapsed)
	return result
}

// buildRequest translates a validated intent into a select request. The
// tenant predicate is added unconditionally; nothing in the intent can
// remove or widen it.
func (s *queryService) buildRequest(tenantID uuid.UUID, intent *models.QueryIntent) (datastore.SelectRequest, bool) {
	tenantCol, err := s.registry.TenantColumn(intent.Resource)
	if err != nil {
		s.logger.Error("unknown resource reached the executor",
			zap.String("resource", intent.Resource),
			zap.Error(err))
		return datastore.SelectRequest{}, false
	}

	predicates := make([]datastore.Predicate, 0, len(intent.Filters)+1)
	predicates = append(predicates, datastore.Predicate{
		Column:   tenantCol,
		Operator: models.OperatorEq,
		Value:    tenantID,
	})
	for _, f := range intent.Filters {
		predicates = append(predicates, datastore.Predicate{
			Column:   f.Column,
			Operator: f.Operator,
			Value:    f.Value,
		})
	}

	// The pipeline already checked aggregate allowances, but the executor is
	// the last gate before SQL and re-checks on its own registry.
	for _, agg := range intent.Aggregations {
		if !s.registry.IsAggregateAllowed(intent.Resource, agg.Function) {
			s.logger.Error("disallowed aggregate reached the executor",
				zap.String("resource", intent.Resource),
				zap.String("function", string(agg.Function)))
			return datastore.SelectRequest{}, false
		}
	}

	req := datastore.SelectRequest{
		Table:        intent.Resource,
		Predicates:   predicates,
		Aggregations: intent.Aggregations,
		OrderBy:      intent.OrderBy,
	}

	if len(intent.Aggregations) > 0 {
		// Aggregate queries group in SQL; the grouped columns are the
		// projection.
		req.Columns = intent.GroupBy
		req.GroupBy = intent.GroupBy
		return req, true
	}

	if intent.PageSize > 0 {
		pageSize := clampPageSize(intent.PageSize, s.cfg.MaxPageSize)
		page := intent.Page
		if page < 1 {
			page = 1
		}
		req.Limit = pageSize
		req.Offset = (page - 1) * pageSize
		return req, true
	}

	limit := intent.Limit
	if limit <= 0 || limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}
	req.Limit = limit
	return req, true
}

// assembleResult shapes raw rows into the QueryResult contract.
func (s *queryService) assembleResult(intent *models.QueryIntent, rows []models.Row) *models.QueryResult {
	result := &models.QueryResult{Data: rows}

	if len(intent.Aggregations) > 0 {
		if len(intent.GroupBy) == 0 {
			// A single aggregate row; expose it as named aggregation results
			// instead of raw data.
			result.Data = []models.Row{}
			if len(rows) == 1 {
				result.Aggregations = aggregationResults(intent.Aggregations, rows[0])
			}
			return result
		}
		result.GroupedBy = partitionRows(rows, intent.GroupBy)
		return result
	}

	if len(intent.GroupBy) > 0 {
		result.GroupedBy = partitionRows(rows, intent.GroupBy)
	}
	return result
}

func aggregationResults(aggs []models.Aggregation, row models.Row) []models.AggregationResult {
	results := make([]models.AggregationResult, 0, len(aggs))
	for _, agg := range aggs {
		alias := fmt.Sprintf("%s_%s", agg.Function, agg.Field)
		results = append(results, models.AggregationResult{
			Field:    agg.Field,
			Function: agg.Function,
			Value:    row[alias],
		})
	}
	return results
}

// partitionRows buckets rows by the values of the grouping columns. Multiple
// grouping columns form a composite key joined with "|".
func partitionRows(rows []models.Row, groupBy []string) map[string][]models.Row {
	grouped := make(map[string][]models.Row)
	for _, row := range rows {
		parts := make([]string, len(groupBy))
		for i, col := range groupBy {
			parts[i] = fmt.Sprint(row[col])
		}
		key := strings.Join(parts, "|")
		grouped[key] = append(grouped[key], row)
	}
	return grouped
}

func clampPageSize(pageSize, max int) int {
	if pageSize > max {
		return max
	}
	return pageSize
}

func buildPagination(page, pageSize int, totalRows int64) *models.Pagination {
	if page < 1 {
		page = 1
	}
	totalPages := int((totalRows + int64(pageSize) - 1) / int64(pageSize))
	return &models.Pagination{
		Page:            page,
		PageSize:        pageSize,
		TotalRows:       totalRows,
		TotalPages:      totalPages,
		HasNextPage:     page < totalPages,
		HasPreviousPage: page > 1,
	}
}

func (s *queryService) logStoreError(msg, resource string, err error) {
	// Store errors can carry connection details; sanitize before logging.
	sanitized := logging.SanitizeError(err)
	if datastore.IsUserError(err) {
		s.logger.Warn(msg, zap.String("resource", resource), zap.String("error", sanitized))
		return
	}
	s.logger.Error(msg, zap.String("resource", resource), zap.String("error", sanitized))
}

// auditAsync records the executed intent without blocking the caller. Audit
// failures are logged and otherwise ignored.
func (s *queryService) auditAsync(tenantID uuid.UUID, action, resource string, rowCount int, duration time.Duration) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := s.store.InsertAuditLog(ctx, tenantID, datastore.AuditRecord{
			Action:   action,
			Resource: resource,
			RowCount: rowCount,
			Duration: duration,
		})
		if err != nil {
			s.logger.Warn("failed to write audit log",
				zap.String("resource", resource),
				zap.Error(err))
		}
	}()
}
