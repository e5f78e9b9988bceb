package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Category types understood by the engine. Unknown values fall back to the
// general engine rather than failing.
const (
	CategoryTelecommunications = "telecommunications"
	CategoryTelecomVoice       = "telecom_voice"
	CategoryTelecomData        = "telecom_data"
	CategoryInternet           = "internet"
	CategoryDataServices       = "data_services"
	CategoryEquipment          = "equipment"
	CategoryInstallation       = "installation"
	CategoryHosting            = "hosting"
	CategorySoftware           = "software"
	CategoryGeneral            = "general"
)

// Engine types a category can be routed to.
const (
	EngineGeneral = "general"
	EngineTelecom = "telecom"
)

// Category is an org-scoped product/service classification.
type Category struct {
	ID    snowflake.ID `gorm:"primaryKey"`
	OrgID snowflake.ID `gorm:"column:org_id;not null;index"`

	Code         string `gorm:"type:text;not null"`
	CategoryType string `gorm:"column:category_type;type:text;not null;index"`

	IsTaxable       bool `gorm:"column:is_taxable;not null;default:true"`
	IsInterstate    bool `gorm:"column:is_interstate;not null;default:false"`
	IsInternational bool `gorm:"column:is_international;not null;default:false"`

	DefaultTreatment string `gorm:"column:default_treatment;type:text"`
	Priority         int    `gorm:"not null;default:100"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Category) TableName() string { return "categories" }
