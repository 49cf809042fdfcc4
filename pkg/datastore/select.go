package datastore

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/glimpsehq/glimpse-engine/pkg/models"
)

// Predicate is one WHERE clause condition. Values are always bound as query
// parameters; only the column name is interpolated, and only after identifier
// quoting.
type Predicate struct {
	Column   string
	Operator models.FilterOperator
	Value    any
}

// SelectRequest describes one tenant-scoped read. The query service builds
// these from validated intents; nothing model-controlled reaches this struct
// without having cleared the validation pipeline first.
type SelectRequest struct {
	Table        string
	Columns      []string
	Predicates   []Predicate
	Aggregations []models.Aggregation
	GroupBy      []string
	OrderBy      []models.OrderBy
	Limit        int
	Offset       int
}

// quoteIdent applies PostgreSQL identifier quoting.
func quoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// BuildSelect composes the parameterized SQL for a select request.
func BuildSelect(req SelectRequest) (string, []any, error) {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(selectList(req))
	sb.WriteString(" FROM ")
	sb.WriteString(quoteIdent(req.Table))

	args, err := writeWhere(&sb, req.Predicates)
	if err != nil {
		return "", nil, err
	}

	if len(req.GroupBy) > 0 {
		quoted := make([]string, len(req.GroupBy))
		for i, col := range req.GroupBy {
			quoted[i] = quoteIdent(col)
		}
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(quoted, ", "))
	}

	if len(req.OrderBy) > 0 {
		clauses := make([]string, len(req.OrderBy))
		for i, o := range req.OrderBy {
			dir := "ASC"
			if o.Direction == models.SortDesc {
				dir = "DESC"
			}
			clauses[i] = quoteIdent(o.Field) + " " + dir
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(clauses, ", "))
	}

	if req.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", req.Limit)
	}
	if req.Offset > 0 {
		fmt.Fprintf(&sb, " OFFSET %d", req.Offset)
	}

	return sb.String(), args, nil
}

// BuildCount composes a COUNT(*) query over the same predicates, used for
// pagination totals.
func BuildCount(req SelectRequest) (string, []any, error) {
	var sb strings.Builder
	sb.WriteString("SELECT COUNT(*) FROM ")
	sb.WriteString(quoteIdent(req.Table))

	args, err := writeWhere(&sb, req.Predicates)
	if err != nil {
		return "", nil, err
	}
	return sb.String(), args, nil
}

func selectList(req SelectRequest) string {
	var parts []string
	for _, col := range req.Columns {
		parts = append(parts, quoteIdent(col))
	}
	for _, agg := range req.Aggregations {
		fn := strings.ToUpper(string(agg.Function))
		alias := fmt.Sprintf("%s_%s", agg.Function, agg.Field)
		parts = append(parts, fmt.Sprintf("%s(%s) AS %s", fn, quoteIdent(agg.Field), quoteIdent(alias)))
	}
	if len(parts) == 0 {
		return "*"
	}
	return strings.Join(parts, ", ")
}

// writeWhere appends the WHERE clause and returns the bound arguments.
// An unknown operator fails the whole build rather than being skipped:
// silently dropping a condition would widen the result set.
func writeWhere(sb *strings.Builder, predicates []Predicate) ([]any, error) {
	if len(predicates) == 0 {
		return nil, nil
	}

	args := make([]any, 0, len(predicates))
	clauses := make([]string, 0, len(predicates))
	for _, pred := range predicates {
		col := quoteIdent(pred.Column)
		n := len(args) + 1
		switch pred.Operator {
		case models.OperatorEq:
			clauses = append(clauses, fmt.Sprintf("%s = $%d", col, n))
			args = append(args, pred.Value)
		case models.OperatorNe:
			clauses = append(clauses, fmt.Sprintf("%s <> $%d", col, n))
			args = append(args, pred.Value)
		case models.OperatorGt:
			clauses = append(clauses, fmt.Sprintf("%s > $%d", col, n))
			args = append(args, pred.Value)
		case models.OperatorLt:
			clauses = append(clauses, fmt.Sprintf("%s < $%d", col, n))
			args = append(args, pred.Value)
		case models.OperatorGte:
			clauses = append(clauses, fmt.Sprintf("%s >= $%d", col, n))
			args = append(args, pred.Value)
		case models.OperatorLte:
			clauses = append(clauses, fmt.Sprintf("%s <= $%d", col, n))
			args = append(args, pred.Value)
		case models.OperatorContains:
			clauses = append(clauses, fmt.Sprintf("%s ILIKE '%%' || $%d || '%%'", col, n))
			args = append(args, pred.Value)
		case models.OperatorIn:
			clauses = append(clauses, fmt.Sprintf("%s = ANY($%d)", col, n))
			args = append(args, pred.Value)
		default:
			return nil, fmt.Errorf("unsupported filter operator %q", pred.Operator)
		}
	}

	sb.WriteString(" WHERE ")
	sb.WriteString(strings.Join(clauses, " AND "))
	return args, nil
}

// Select runs a tenant-scoped select and returns the rows as column maps.
func (db *DB) Select(ctx context.Context, tenantID uuid.UUID, req SelectRequest) ([]models.Row, error) {
	query, args, err := BuildSelect(req)
	if err != nil {
		return nil, err
	}

	scope, err := db.WithTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire tenant connection: %w", err)
	}
	defer scope.Close()

	rows, err := scope.Conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	return collectRows(rows)
}

// Count runs a tenant-scoped COUNT(*) over the request's predicates.
func (db *DB) Count(ctx context.Context, tenantID uuid.UUID, req SelectRequest) (int64, error) {
	query, args, err := BuildCount(req)
	if err != nil {
		return 0, err
	}

	scope, err := db.WithTenant(ctx, tenantID)
	if err != nil {
		return 0, fmt.Errorf("failed to acquire tenant connection: %w", err)
	}
	defer scope.Close()

	var count int64
	if err := scope.Conn.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count query failed: %w", err)
	}
	return count, nil
}

func collectRows(rows pgx.Rows) ([]models.Row, error) {
	fields := rows.FieldDescriptions()
	result := make([]models.Row, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		row := make(models.Row, len(fields))
		for i, f := range fields {
			row[string(f.Name)] = normalizeValue(values[i])
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}
	return result, nil
}

// normalizeValue converts driver-specific value types into plain Go values.
// pgx decodes NUMERIC/DECIMAL columns as pgtype.Numeric, which nothing
// downstream of the store knows how to read; rows must carry only stdlib
// types.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case pgtype.Numeric:
		if !val.Valid {
			return nil
		}
		f, err := val.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	}
	return v
}
