package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// Address is the customer address a taxable event is sourced to.
type Address struct {
	State   string `json:"state"`
	City    string `json:"city"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

// Registry resolves the ordered set of jurisdictions that apply to an address.
// Unmatched address levels are skipped; that is never an error.
type Registry interface {
	ResolveForAddress(ctx context.Context, orgID snowflake.ID, addr Address) ([]Jurisdiction, error)
	Get(ctx context.Context, orgID, id snowflake.ID) (*Jurisdiction, error)
	Deactivate(ctx context.Context, orgID, id snowflake.ID) error
}

// GeoLookup maps an address to county/city/municipality jurisdiction ids.
// Geocoding is an external collaborator; the default implementation resolves
// nothing, which simply skips those levels.
type GeoLookup interface {
	Resolve(ctx context.Context, orgID snowflake.ID, addr Address) ([]snowflake.ID, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrNotFound            = errors.New("not_found")
)
