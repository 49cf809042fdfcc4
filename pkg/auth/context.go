package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/glimpsehq/glimpse-engine/pkg/models"
)

// GetOrgIDFromContext extracts the organization ID from JWT claims in the
// context. Returns uuid.Nil if not authenticated or claims are missing.
func GetOrgIDFromContext(ctx context.Context) uuid.UUID {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil || claims.OrgID == "" {
		return uuid.Nil
	}

	orgID, err := uuid.Parse(claims.OrgID)
	if err != nil {
		return uuid.Nil
	}
	return orgID
}

// RequireOrgIDFromContext extracts the organization ID from context and
// returns an error if not found. Use this when tenant identity is required.
func RequireOrgIDFromContext(ctx context.Context) (uuid.UUID, error) {
	orgID := GetOrgIDFromContext(ctx)
	if orgID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("organization ID not found in context")
	}
	return orgID, nil
}

// ValidationContextFromContext builds the validation pipeline's tenant
// context from the claims in ctx. Missing claims produce an empty tenant id,
// which the pipeline's tenant stage rejects; the decision is made there, not
// here.
func ValidationContextFromContext(ctx context.Context) models.ValidationContext {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil {
		return models.ValidationContext{}
	}
	return models.ValidationContext{
		TenantID: claims.OrgID,
		UserID:   claims.Subject,
		Role:     claims.Role,
	}
}
