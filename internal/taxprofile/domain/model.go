package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// TaxProfile declares which usage fields a category or product requires and
// which rate set governs it. Binding specificity: product, then category,
// then category type; a system default backs everything else.
type TaxProfile struct {
	ID    snowflake.ID `gorm:"primaryKey"`
	OrgID snowflake.ID `gorm:"column:org_id;not null;index"`

	Name string `gorm:"type:text;not null"`

	ProductID    *snowflake.ID `gorm:"column:product_id;index"`
	CategoryID   *snowflake.ID `gorm:"column:category_id;index"`
	CategoryType string        `gorm:"column:category_type;type:text;index"`

	ServiceType string `gorm:"column:service_type;type:text;not null;default:''"`
	EngineType  string `gorm:"column:engine_type;type:text;not null;default:'general'"`

	RequiredFields datatypes.JSONSlice[string] `gorm:"column:required_fields"`

	Active bool `gorm:"not null;default:true"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (TaxProfile) TableName() string { return "tax_profiles" }
