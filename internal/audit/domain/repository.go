package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, tx *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, orgID snowflake.ID, req ListRequest) ([]AuditLog, error)
}
