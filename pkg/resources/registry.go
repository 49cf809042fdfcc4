// Package resources is the single source of truth for which tables the AI
// layer may query. The registry is a static, compiled-in table rather than a
// live schema introspection: the model can never expand its own permissions
// by describing a new resource, and the attack surface stays auditable.
package resources

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/glimpsehq/glimpse-engine/pkg/apperrors"
	"github.com/glimpsehq/glimpse-engine/pkg/models"
)

// fieldNamePattern keeps only characters legal in an identifier.
var fieldNamePattern = regexp.MustCompile(`[^A-Za-z0-9_]`)

// sensitiveTerms are substrings that make a field name inaccessible even
// after it sanitizes cleanly.
var sensitiveTerms = []string{"password", "secret", "token", "key", "credential"}

// Descriptor describes one whitelisted resource.
//
// Two access schemes coexist deliberately: ordinary resources use a
// deny-list (anything that sanitizes cleanly and avoids the sensitive terms
// is readable, minus RestrictedFields), while high-sensitivity resources
// (audit and usage logs) carry an explicit AllowedFields list of two or
// three columns. Collapsing the two schemes into one would either
// over-expose the logs or force every table to enumerate its columns here.
type Descriptor struct {
	Name              string
	TenantColumn      string
	AllowedAggregates map[models.AggregateFunc]bool
	RestrictedFields  map[string]bool
	// AllowedFields, when non-nil, is an exhaustive allow-list; every other
	// field on the resource is inaccessible.
	AllowedFields map[string]bool
}

// Registry holds the whitelisted resources. Immutable after construction and
// safe for concurrent use without synchronization.
type Registry struct {
	resources map[string]*Descriptor
}

func allAggregates() map[models.AggregateFunc]bool {
	return map[models.AggregateFunc]bool{
		models.AggregateCount: true,
		models.AggregateSum:   true,
		models.AggregateAvg:   true,
		models.AggregateMin:   true,
		models.AggregateMax:   true,
	}
}

func countOnly() map[models.AggregateFunc]bool {
	return map[models.AggregateFunc]bool{models.AggregateCount: true}
}

// NewRegistry builds the default resource whitelist.
func NewRegistry() *Registry {
	descriptors := []*Descriptor{
		{
			Name:              "organizations",
			TenantColumn:      "id",
			AllowedAggregates: countOnly(),
			RestrictedFields:  map[string]bool{"billing_email": true, "stripe_customer_id": true},
		},
		{
			Name:              "profiles",
			TenantColumn:      "organization_id",
			AllowedAggregates: countOnly(),
			RestrictedFields:  map[string]bool{"email": true, "phone": true},
		},
		{
			Name:              "customers",
			TenantColumn:      "organization_id",
			AllowedAggregates: allAggregates(),
			RestrictedFields:  map[string]bool{},
		},
		{
			Name:              "revenue",
			TenantColumn:      "organization_id",
			AllowedAggregates: allAggregates(),
			RestrictedFields:  map[string]bool{},
		},
		{
			Name:              "activities",
			TenantColumn:      "organization_id",
			AllowedAggregates: allAggregates(),
			RestrictedFields:  map[string]bool{},
		},
		{
			Name:              "audit_logs",
			TenantColumn:      "organization_id",
			AllowedAggregates: countOnly(),
			AllowedFields:     map[string]bool{"id": true, "created_at": true, "action": true},
		},
		{
			Name:              "usage_log",
			TenantColumn:      "organization_id",
			AllowedAggregates: countOnly(),
			AllowedFields:     map[string]bool{"id": true, "created_at": true},
		},
		{
			Name:              "user_preferences",
			TenantColumn:      "organization_id",
			AllowedAggregates: countOnly(),
			RestrictedFields:  map[string]bool{},
		},
	}

	resources := make(map[string]*Descriptor, len(descriptors))
	for _, d := range descriptors {
		resources[d.Name] = d
	}
	return &Registry{resources: resources}
}

// IsResourceAllowed reports whether the named resource is queryable at all.
func (r *Registry) IsResourceAllowed(name string) bool {
	_, ok := r.resources[name]
	return ok
}

// IsOperationAllowed reports whether op may run against the resource.
// Only "select" is ever permitted: the mediation layer is read-only by
// design and there is no path to insert, update, or delete.
func (r *Registry) IsOperationAllowed(name, op string) bool {
	if !r.IsResourceAllowed(name) {
		return false
	}
	return op == "select"
}

// AllowedResources returns the whitelisted resource names, sorted, for use
// in rejection messages.
func (r *Registry) AllowedResources() []string {
	names := make([]string, 0, len(r.resources))
	for name := range r.resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AllowedAggregates returns the aggregate functions the resource permits.
func (r *Registry) AllowedAggregates(name string) map[models.AggregateFunc]bool {
	d, ok := r.resources[name]
	if !ok {
		return nil
	}
	return d.AllowedAggregates
}

// IsAggregateAllowed reports whether fn may run against the resource.
func (r *Registry) IsAggregateAllowed(name string, fn models.AggregateFunc) bool {
	d, ok := r.resources[name]
	if !ok {
		return false
	}
	return d.AllowedAggregates[fn]
}

// RestrictedFields returns fields always excluded from projection for the
// resource. Nil for unknown resources.
func (r *Registry) RestrictedFields(name string) map[string]bool {
	d, ok := r.resources[name]
	if !ok {
		return nil
	}
	return d.RestrictedFields
}

// AllowedFields returns the explicit allow-list for a sensitive resource,
// or nil when the resource uses the open deny-list scheme.
func (r *Registry) AllowedFields(name string) map[string]bool {
	d, ok := r.resources[name]
	if !ok {
		return nil
	}
	return d.AllowedFields
}

// TenantColumn returns the column that scopes the resource to a tenant.
func (r *Registry) TenantColumn(name string) (string, error) {
	d, ok := r.resources[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", apperrors.ErrResourceNotAccessible, name)
	}
	return d.TenantColumn, nil
}

// IsFieldAccessible checks a sanitized field name against the resource's
// access scheme.
func (r *Registry) IsFieldAccessible(resource, field string) bool {
	d, ok := r.resources[resource]
	if !ok {
		return false
	}
	if d.AllowedFields != nil {
		return d.AllowedFields[field]
	}
	return !d.RestrictedFields[field]
}

// SanitizeFieldName strips every character outside [A-Za-z0-9_], then
// rejects the result if it is empty or still contains a sensitive term.
// The sanitized name is always a strict subset of the input's characters.
func SanitizeFieldName(name string) (string, error) {
	sanitized := fieldNamePattern.ReplaceAllString(name, "")
	if sanitized == "" {
		return "", fmt.Errorf("%w: %q contains no valid identifier characters", apperrors.ErrFieldNotAccessible, name)
	}
	lower := strings.ToLower(sanitized)
	for _, term := range sensitiveTerms {
		if strings.Contains(lower, term) {
			return "", fmt.Errorf("%w: %q matches sensitive pattern %q", apperrors.ErrFieldNotAccessible, name, term)
		}
	}
	return sanitized, nil
}
