package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Tax types a rate can be filed under.
const (
	TaxTypeFederal         = "federal"
	TaxTypeState           = "state"
	TaxTypeLocal           = "local"
	TaxTypeMunicipal       = "municipal"
	TaxTypeCounty          = "county"
	TaxTypeSpecialDistrict = "special_district"
)

// RateType determines how a rate is applied to the taxable base.
type RateType string

const (
	RatePercentage RateType = "percentage"
	RateFixed      RateType = "fixed"
	RateTiered     RateType = "tiered"
)

// TaxRate is a versioned, date-bounded rate row. Rows are never edited in
// place once active: a change expires the prior row and inserts a new one so
// historical calculations replay exactly.
type TaxRate struct {
	ID    snowflake.ID `gorm:"primaryKey"`
	OrgID snowflake.ID `gorm:"column:org_id;not null;index"`

	JurisdictionID snowflake.ID  `gorm:"column:jurisdiction_id;not null;index"`
	CategoryID     *snowflake.ID `gorm:"column:category_id;index"` // nil = all categories

	TaxName string   `gorm:"column:tax_name;type:text;not null"`
	TaxType string   `gorm:"column:tax_type;type:text;not null"`
	Type    RateType `gorm:"column:rate_type;type:text;not null"`

	PercentageRate decimal.Decimal `gorm:"column:percentage_rate;type:numeric(9,4);not null;default:0"`
	FixedAmount    decimal.Decimal `gorm:"column:fixed_amount;type:numeric(14,4);not null;default:0"`
	// FixedQuantityField names the usage attribute a fixed amount is
	// multiplied by (e.g. line_count); empty means a flat per-line amount.
	FixedQuantityField string `gorm:"column:fixed_quantity_field;type:text;not null;default:''"`

	MinimumThreshold *decimal.Decimal `gorm:"column:minimum_threshold;type:numeric(14,2)"`
	MaximumAmount    *decimal.Decimal `gorm:"column:maximum_amount;type:numeric(14,2)"`

	CalculationMethod string                      `gorm:"column:calculation_method;type:text"`
	ServiceTypes      datatypes.JSONSlice[string] `gorm:"column:service_types"` // empty = all

	EffectiveDate time.Time  `gorm:"column:effective_date;not null;index"`
	ExpiryDate    *time.Time `gorm:"column:expiry_date;index"` // nil = open-ended

	IsActive bool `gorm:"column:is_active;not null;default:true"`
	Priority int  `gorm:"not null;default:100"`

	Tiers []TaxRateTier `gorm:"foreignKey:RateID"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (TaxRate) TableName() string { return "tax_rates" }

// TaxRateTier is one band of a tiered rate: a fixed amount owed once the
// taxable base reaches StartAmount; EndAmount nil means open-ended.
type TaxRateTier struct {
	ID     snowflake.ID `gorm:"primaryKey"`
	RateID snowflake.ID `gorm:"column:rate_id;not null;index"`

	StartAmount decimal.Decimal  `gorm:"column:start_amount;type:numeric(14,2);not null"`
	EndAmount   *decimal.Decimal `gorm:"column:end_amount;type:numeric(14,2)"`
	TierAmount  decimal.Decimal  `gorm:"column:tier_amount;type:numeric(14,4);not null"`
}

func (TaxRateTier) TableName() string { return "tax_rate_tiers" }

// RateSetVersion stamps an org's active rate set. Every administrative rate
// write bumps it, which shifts calculation fingerprints and thereby retires
// every affected cache entry without enumerating keys.
type RateSetVersion struct {
	OrgID     snowflake.ID `gorm:"column:org_id;primaryKey"`
	Version   int64        `gorm:"not null;default:0"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (RateSetVersion) TableName() string { return "rate_set_versions" }

// MatchesServiceType reports whether the rate covers the requested service
// type; an empty set covers all.
func (r TaxRate) MatchesServiceType(serviceType string) bool {
	if len(r.ServiceTypes) == 0 {
		return true
	}
	for _, st := range r.ServiceTypes {
		if st == serviceType {
			return true
		}
	}
	return false
}

// InWindow reports whether asOf falls inside [EffectiveDate, ExpiryDate).
func (r TaxRate) InWindow(asOf time.Time) bool {
	if asOf.Before(r.EffectiveDate) {
		return false
	}
	return r.ExpiryDate == nil || asOf.Before(*r.ExpiryDate)
}
