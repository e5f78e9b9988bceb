package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// Ref identifies what a calculation is for; resolution tries ProductID, then
// CategoryID, then CategoryType, then the system default profile.
type Ref struct {
	ProductID    snowflake.ID
	CategoryID   snowflake.ID
	CategoryType string
}

// Resolved carries the matched profile and the usage fields it requires.
// The caller validates that a request supplies the required fields; the
// resolver never guesses defaults.
type Resolved struct {
	Profile        TaxProfile
	RequiredFields []string
}

type Resolver interface {
	Resolve(ctx context.Context, orgID snowflake.ID, ref Ref) (*Resolved, error)
	// ValidateUsage reports the first required field missing from usage,
	// wrapped in ErrMissingRequiredField.
	ValidateUsage(resolved *Resolved, usage map[string]float64) error
}

var (
	ErrInvalidOrganization  = errors.New("invalid_organization")
	ErrNoApplicableProfile  = errors.New("no_applicable_profile")
	ErrMissingRequiredField = errors.New("missing_required_field")
)
