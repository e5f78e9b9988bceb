package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/taxrail/internal/audit/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, tx *gorm.DB, entry *domain.AuditLog) error {
	conn := r.db
	if tx != nil {
		conn = tx
	}
	return conn.WithContext(ctx).Create(entry).Error
}

func (r *repository) List(ctx context.Context, orgID snowflake.ID, req domain.ListRequest) ([]domain.AuditLog, error) {
	stmt := r.db.WithContext(ctx).Where("org_id = ?", orgID)

	if req.Action != "" {
		stmt = stmt.Where("action = ?", req.Action)
	}
	if req.TargetType != "" {
		stmt = stmt.Where("target_type = ?", req.TargetType)
	}
	if req.TargetID != "" {
		stmt = stmt.Where("target_id = ?", req.TargetID)
	}
	if req.StartAt != nil {
		stmt = stmt.Where("created_at >= ?", *req.StartAt)
	}
	if req.EndAt != nil {
		stmt = stmt.Where("created_at < ?", *req.EndAt)
	}

	limit := req.Limit
	if limit <= 0 || limit > 250 {
		limit = 100
	}

	var rows []domain.AuditLog
	err := stmt.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}
