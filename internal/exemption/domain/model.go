package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Exemption certificate status.
const (
	StatusActive    = "active"
	StatusExpired   = "expired"
	StatusSuspended = "suspended"
	StatusRevoked   = "revoked"
	StatusPending   = "pending"
)

// Exemption is a customer-specific or blanket exemption certificate. Nil
// jurisdiction/category bindings are wildcards; an empty ApplicableTaxTypes
// set matches every tax type.
type Exemption struct {
	ID    snowflake.ID `gorm:"primaryKey"`
	OrgID snowflake.ID `gorm:"column:org_id;not null;index"`

	ClientID       snowflake.ID  `gorm:"column:client_id;not null;index"`
	JurisdictionID *snowflake.ID `gorm:"column:jurisdiction_id;index"`
	CategoryID     *snowflake.ID `gorm:"column:category_id;index"`

	ExemptionType      string                      `gorm:"column:exemption_type;type:text;not null"`
	IsBlanket          bool                        `gorm:"column:is_blanket;not null;default:false"`
	ApplicableTaxTypes datatypes.JSONSlice[string] `gorm:"column:applicable_tax_types"`

	ExemptionPercentage    decimal.Decimal  `gorm:"column:exemption_percentage;type:numeric(5,2);not null;default:0"`
	MaximumExemptionAmount *decimal.Decimal `gorm:"column:maximum_exemption_amount;type:numeric(14,2)"`

	Status     string     `gorm:"type:text;not null;default:'pending';index"`
	IssueDate  time.Time  `gorm:"column:issue_date;not null"`
	ExpiryDate *time.Time `gorm:"column:expiry_date"`

	// AutoApply=false certificates participate only when a calculation
	// explicitly opts in.
	AutoApply bool `gorm:"column:auto_apply;not null;default:true"`
	Priority  int  `gorm:"not null;default:100"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Exemption) TableName() string { return "exemptions" }
