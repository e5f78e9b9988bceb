package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// LineScope identifies the tax line an exemption is applied against.
type LineScope struct {
	JurisdictionID snowflake.ID
	CategoryID     snowflake.ID // zero when the request carried no category id
	TaxType        string
}

// Applied records one exemption's contribution to a line for the breakdown.
type Applied struct {
	ExemptionID snowflake.ID    `json:"exemption_id"`
	Amount      decimal.Decimal `json:"amount"`
	Blanket     bool            `json:"blanket"`
}

// Evaluator applies exemption certificates to computed tax amounts.
type Evaluator interface {
	// ListEligible loads the client's certificates eligible at asOf,
	// ordered by priority then id. includeOptional admits auto_apply=false
	// certificates.
	ListEligible(ctx context.Context, orgID, clientID snowflake.ID, asOf time.Time, includeOptional bool) ([]Exemption, error)
	// Apply reduces rawTax using the eligible certificates matching the
	// scope, cascading in priority order until the tax reaches zero or the
	// certificates are exhausted. Returns the net tax and what was applied.
	Apply(eligible []Exemption, scope LineScope, rawTax decimal.Decimal) (decimal.Decimal, []Applied)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidClient       = errors.New("invalid_client")
)
