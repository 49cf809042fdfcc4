// Package validation implements the staged validation pipeline that stands
// between model-produced intents and the query engine. An intent must clear
// every stage before it may execute: structural schema checks, the resource
// whitelist, column accessibility, tenant context, and an injection scan.
// Stage failures are reported in a ValidationResult, never thrown across the
// pipeline boundary.
package validation

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/glimpsehq/glimpse-engine/pkg/models"
	"github.com/glimpsehq/glimpse-engine/pkg/resources"
)

// Options controls pipeline behaviour.
type Options struct {
	// AbortEarly stops at the first failing stage. When false, every stage
	// runs and all findings are accumulated.
	AbortEarly bool
	// InjectionAsError promotes injection-scan findings from warnings to
	// errors.
	InjectionAsError bool
}

// DefaultOptions returns the production defaults: abort early, treat
// injection findings as errors.
func DefaultOptions() Options {
	return Options{AbortEarly: true, InjectionAsError: true}
}

// Pipeline validates intents against a resource registry. It is stateless
// and safe for concurrent use.
type Pipeline struct {
	registry *resources.Registry
	opts     Options
	logger   *zap.Logger
}

// New creates a pipeline with default options.
func New(registry *resources.Registry, logger *zap.Logger) *Pipeline {
	return NewWithOptions(registry, DefaultOptions(), logger)
}

// NewWithOptions creates a pipeline with explicit options.
func NewWithOptions(registry *resources.Registry, opts Options, logger *zap.Logger) *Pipeline {
	return &Pipeline{registry: registry, opts: opts, logger: logger}
}

// run tracks the accumulated state of one validation pass.
type run struct {
	errors    []models.ValidationError
	warnings  []string
	failStage models.ValidationStage
}

// fail records findings for a stage. The first failing stage wins.
func (r *run) fail(stage models.ValidationStage, errs ...models.ValidationError) {
	if len(errs) == 0 {
		return
	}
	r.errors = append(r.errors, errs...)
	if r.failStage == "" {
		r.failStage = stage
	}
}

func (r *run) warn(messages ...string) {
	r.warnings = append(r.warnings, messages...)
}

func (r *run) failed() bool { return len(r.errors) > 0 }

func finish[T any](r *run, data *T) *models.ValidationResult[T] {
	if r.failed() {
		return &models.ValidationResult[T]{
			Success:  false,
			Stage:    r.failStage,
			Errors:   r.errors,
			Warnings: r.warnings,
		}
	}
	return &models.ValidationResult[T]{
		Success:  true,
		Data:     data,
		Stage:    models.StagePassed,
		Errors:   []models.ValidationError{},
		Warnings: r.warnings,
	}
}

// ValidateQueryIntent runs the full pipeline over a raw query intent.
// Unknown fields in the raw JSON are stripped by the typed decode, so
// nothing the model smuggled in beside the schema survives into execution.
func (p *Pipeline) ValidateQueryIntent(raw json.RawMessage, vctx models.ValidationContext) *models.ValidationResult[models.QueryIntent] {
	r := &run{}

	intent := p.decodeQueryIntent(raw, r)
	if p.shouldAbort(r) {
		return finish[models.QueryIntent](r, nil)
	}

	if intent != nil {
		p.checkResource(intent, r)
	}
	if p.shouldAbort(r) {
		return finish[models.QueryIntent](r, nil)
	}

	if intent != nil && !p.resourceFailed(r) {
		p.checkQueryColumns(intent, r)
	}
	if p.shouldAbort(r) {
		return finish[models.QueryIntent](r, nil)
	}

	// Tenant context always runs: it is the single most important check.
	p.checkTenantContext(vctx, r)
	if p.shouldAbort(r) {
		return finish[models.QueryIntent](r, nil)
	}

	if intent != nil {
		p.scanQueryIntent(intent, r)
	}

	return finish(r, intent)
}

// ValidateChartIntent validates a chart intent: its embedded data source
// runs through the same stages as a query intent, plus the chart's own axis
// fields and title.
func (p *Pipeline) ValidateChartIntent(raw json.RawMessage, vctx models.ValidationContext) *models.ValidationResult[models.ChartIntent] {
	r := &run{}

	intent := p.decodeChartIntent(raw, r)
	if p.shouldAbort(r) {
		return finish[models.ChartIntent](r, nil)
	}

	if intent != nil {
		p.checkResource(&intent.DataSource, r)
	}
	if p.shouldAbort(r) {
		return finish[models.ChartIntent](r, nil)
	}

	if intent != nil && !p.resourceFailed(r) {
		p.checkQueryColumns(&intent.DataSource, r)
		p.checkChartFields(intent, r)
	}
	if p.shouldAbort(r) {
		return finish[models.ChartIntent](r, nil)
	}

	p.checkTenantContext(vctx, r)
	if p.shouldAbort(r) {
		return finish[models.ChartIntent](r, nil)
	}

	if intent != nil {
		p.scanQueryIntent(&intent.DataSource, r)
		p.scanStrings(r, "title", intent.Title)
	}

	return finish(r, intent)
}

// ValidateSummaryIntent validates a summary intent the same way.
func (p *Pipeline) ValidateSummaryIntent(raw json.RawMessage, vctx models.ValidationContext) *models.ValidationResult[models.SummaryIntent] {
	r := &run{}

	intent := p.decodeSummaryIntent(raw, r)
	if p.shouldAbort(r) {
		return finish[models.SummaryIntent](r, nil)
	}

	if intent != nil {
		p.checkResource(&intent.DataSource, r)
	}
	if p.shouldAbort(r) {
		return finish[models.SummaryIntent](r, nil)
	}

	if intent != nil && !p.resourceFailed(r) {
		p.checkQueryColumns(&intent.DataSource, r)
		p.checkSummaryFields(intent, r)
	}
	if p.shouldAbort(r) {
		return finish[models.SummaryIntent](r, nil)
	}

	p.checkTenantContext(vctx, r)
	if p.shouldAbort(r) {
		return finish[models.SummaryIntent](r, nil)
	}

	if intent != nil {
		p.scanQueryIntent(&intent.DataSource, r)
		p.scanStrings(r, "focus_areas", intent.FocusAreas...)
	}

	return finish(r, intent)
}

// shouldAbort reports whether the pipeline should stop now.
func (p *Pipeline) shouldAbort(r *run) bool {
	return p.opts.AbortEarly && r.failed()
}

// resourceFailed reports whether the resource stage already failed, in which
// case column checks against the unknown resource are meaningless.
func (p *Pipeline) resourceFailed(r *run) bool {
	return r.failStage == models.StageResourceWhitelist
}

// checkResource enforces the resource whitelist and the read-only operation
// constraint.
func (p *Pipeline) checkResource(intent *models.QueryIntent, r *run) {
	if p.registry.IsResourceAllowed(intent.Resource) && p.registry.IsOperationAllowed(intent.Resource, "select") {
		return
	}
	r.fail(models.StageResourceWhitelist, models.ValidationError{
		Code:    models.CodeResourceForbidden,
		Field:   "resource",
		Message: fmt.Sprintf("resource %q is not accessible; allowed resources: %v", intent.Resource, p.registry.AllowedResources()),
	})
}

// checkTenantContext enforces the tenant-isolation precondition: a tenant id
// must be present and must be a syntactically valid UUID.
func (p *Pipeline) checkTenantContext(vctx models.ValidationContext, r *run) {
	if vctx.TenantID == "" {
		r.fail(models.StageTenantContext, models.ValidationError{
			Code:    models.CodeTenantMissing,
			Field:   "tenant_id",
			Message: "tenant context is required: no tenant id provided",
		})
		return
	}
	if _, err := uuid.Parse(vctx.TenantID); err != nil {
		r.fail(models.StageTenantContext, models.ValidationError{
			Code:    models.CodeTenantMalformed,
			Field:   "tenant_id",
			Message: fmt.Sprintf("tenant id %q is not a valid UUID", vctx.TenantID),
		})
	}
}
