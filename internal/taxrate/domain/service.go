package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// UpsertRequest describes an administrative rate write. When PriorRateID is
// set the prior row is expired and a new version inserted; numeric fields of
// a used rate are never mutated in place.
type UpsertRequest struct {
	OrgID       snowflake.ID
	PriorRateID snowflake.ID // zero for a brand-new rate

	JurisdictionID snowflake.ID
	CategoryID     *snowflake.ID

	TaxName string
	TaxType string
	Type    RateType

	PercentageRate     decimal.Decimal
	FixedAmount        decimal.Decimal
	FixedQuantityField string

	MinimumThreshold *decimal.Decimal
	MaximumAmount    *decimal.Decimal

	CalculationMethod string
	ServiceTypes      []string

	EffectiveDate time.Time  // zero = now
	ExpiryDate    *time.Time // nil = open-ended

	Priority int

	Tiers []TierRequest
}

type TierRequest struct {
	StartAmount decimal.Decimal
	EndAmount   *decimal.Decimal
	TierAmount  decimal.Decimal
}

// Management governs versioned rate writes with audit trail.
type Management interface {
	CreateOrUpdateRate(ctx context.Context, req UpsertRequest, actor, changeReason string) (*TaxRate, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidJurisdiction = errors.New("invalid_jurisdiction")
	ErrInvalidTaxName      = errors.New("invalid_tax_name")
	ErrInvalidTaxType      = errors.New("invalid_tax_type")
	ErrInvalidRateType     = errors.New("invalid_rate_type")
	ErrInvalidRateValue    = errors.New("invalid_rate_value")
	ErrInvalidActor        = errors.New("invalid_actor")
	ErrInvalidReason       = errors.New("invalid_change_reason")
	ErrRateNotFound        = errors.New("rate_not_found")
	ErrRateConflict        = errors.New("rate_conflict")
)
