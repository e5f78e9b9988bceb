package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// JurisdictionType identifies the level of a taxing authority.
type JurisdictionType string

const (
	TypeFederal         JurisdictionType = "federal"
	TypeState           JurisdictionType = "state"
	TypeCounty          JurisdictionType = "county"
	TypeCity            JurisdictionType = "city"
	TypeMunicipality    JurisdictionType = "municipality"
	TypeSpecialDistrict JurisdictionType = "special_district"
	TypeZipCode         JurisdictionType = "zip_code"
)

// Jurisdiction is an org-scoped taxing authority.
// Rows are soft-deactivated via Active, never deleted while rates reference them.
type Jurisdiction struct {
	ID    snowflake.ID `gorm:"primaryKey"`
	OrgID snowflake.ID `gorm:"column:org_id;not null;index"`

	Name          string           `gorm:"type:text;not null"`
	Type          JurisdictionType `gorm:"type:text;not null;index"`
	StateCode     string           `gorm:"type:text;index"`
	ZipCode       string           `gorm:"type:text;index"`
	AuthorityName string           `gorm:"type:text"`

	// Priority orders evaluation; lower values are evaluated first.
	Priority int  `gorm:"not null;default:100"`
	Active   bool `gorm:"not null;default:true"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Jurisdiction) TableName() string { return "jurisdictions" }
