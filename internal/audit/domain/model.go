package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Actions recorded by the tax engine.
const (
	ActionRateCreate      = "tax_rate.create"
	ActionRateVersion     = "tax_rate.version"
	ActionCacheClear      = "tax_cache.clear"
	ActionCacheWarm       = "tax_cache.warm"
	ActionCalculation     = "tax_calculation"
	ActionBulkCalculation = "tax_calculation.bulk"
)

// AuditLog is an append-only record. Calculation entries carry the inputs
// hash, engine used and elapsed time; rate entries carry actor and
// change reason.
type AuditLog struct {
	ID    snowflake.ID `gorm:"primaryKey"`
	OrgID snowflake.ID `gorm:"column:org_id;not null;index"`

	ActorType string  `gorm:"column:actor_type;type:text;not null"`
	ActorID   *string `gorm:"column:actor_id;type:text"`

	Action     string            `gorm:"type:text;not null;index"`
	TargetType string            `gorm:"column:target_type;type:text;not null"`
	TargetID   *string           `gorm:"column:target_id;type:text"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index"`
}

func (AuditLog) TableName() string { return "audit_logs" }
