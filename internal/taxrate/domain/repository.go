package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// FindApplicableRates returns the rates live at asOf for the given
	// jurisdictions and category, filtered to the service type and ordered
	// by rate priority, jurisdiction priority, then rate id. The id order
	// is the documented equal-priority tie-break (snowflake ids are
	// creation-ordered); tieBreak may flip it to newest_first.
	FindApplicableRates(ctx context.Context, orgID snowflake.ID, jurisdictionIDs []snowflake.ID, categoryID snowflake.ID, serviceType string, asOf time.Time, tieBreak string) ([]TaxRate, error)

	FindByID(ctx context.Context, orgID, id snowflake.ID) (*TaxRate, error)

	// ListOverlapping returns active rates for the same scope whose
	// [effective, expiry) window overlaps the given window.
	ListOverlapping(ctx context.Context, tx *gorm.DB, orgID, jurisdictionID snowflake.ID, categoryID *snowflake.ID, priority int, from time.Time, until *time.Time) ([]TaxRate, error)

	Insert(ctx context.Context, tx *gorm.DB, rate *TaxRate) error
	Expire(ctx context.Context, tx *gorm.DB, orgID, id snowflake.ID, at time.Time) error

	RateSetVersion(ctx context.Context, orgID snowflake.ID) (int64, error)
	BumpRateSetVersion(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, at time.Time) (int64, error)
}
