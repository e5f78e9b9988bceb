package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/taxrail/internal/config"
	"github.com/smallbiznis/taxrail/internal/taxrate/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) FindApplicableRates(ctx context.Context, orgID snowflake.ID, jurisdictionIDs []snowflake.ID, categoryID snowflake.ID, serviceType string, asOf time.Time, tieBreak string) ([]domain.TaxRate, error) {
	if len(jurisdictionIDs) == 0 {
		return nil, nil
	}

	idOrder := "tax_rates.id ASC"
	if tieBreak == config.TieBreakNewestFirst {
		idOrder = "tax_rates.id DESC"
	}

	stmt := r.db.WithContext(ctx).
		Model(&domain.TaxRate{}).
		Select("tax_rates.*").
		Joins("JOIN jurisdictions ON jurisdictions.id = tax_rates.jurisdiction_id").
		Where("tax_rates.org_id = ?", orgID).
		Where("tax_rates.jurisdiction_id IN ?", jurisdictionIDs).
		Where("tax_rates.is_active = ?", true).
		Where("tax_rates.effective_date <= ?", asOf).
		Where("tax_rates.expiry_date IS NULL OR tax_rates.expiry_date > ?", asOf)

	if categoryID != 0 {
		stmt = stmt.Where("tax_rates.category_id = ? OR tax_rates.category_id IS NULL", categoryID)
	} else {
		stmt = stmt.Where("tax_rates.category_id IS NULL")
	}

	var rows []domain.TaxRate
	err := stmt.
		Order("tax_rates.priority ASC, jurisdictions.priority ASC, " + idOrder).
		Preload("Tiers", func(db *gorm.DB) *gorm.DB {
			return db.Order("start_amount ASC")
		}).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	// Service type sets are stored as JSON; filter here rather than with
	// dialect-specific containment operators.
	matched := rows[:0]
	for _, rate := range rows {
		if rate.MatchesServiceType(serviceType) {
			matched = append(matched, rate)
		}
	}
	return matched, nil
}

func (r *repository) FindByID(ctx context.Context, orgID, id snowflake.ID) (*domain.TaxRate, error) {
	var row domain.TaxRate
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		Preload("Tiers", func(db *gorm.DB) *gorm.DB {
			return db.Order("start_amount ASC")
		}).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *repository) ListOverlapping(ctx context.Context, tx *gorm.DB, orgID, jurisdictionID snowflake.ID, categoryID *snowflake.ID, priority int, from time.Time, until *time.Time) ([]domain.TaxRate, error) {
	conn := r.conn(tx)

	stmt := conn.WithContext(ctx).
		Where("org_id = ? AND jurisdiction_id = ? AND priority = ? AND is_active = ?", orgID, jurisdictionID, priority, true).
		Where("expiry_date IS NULL OR expiry_date > ?", from)

	if categoryID != nil {
		stmt = stmt.Where("category_id = ?", *categoryID)
	} else {
		stmt = stmt.Where("category_id IS NULL")
	}
	if until != nil {
		stmt = stmt.Where("effective_date < ?", *until)
	}

	var rows []domain.TaxRate
	err := stmt.Find(&rows).Error
	return rows, err
}

func (r *repository) Insert(ctx context.Context, tx *gorm.DB, rate *domain.TaxRate) error {
	return r.conn(tx).WithContext(ctx).Create(rate).Error
}

func (r *repository) Expire(ctx context.Context, tx *gorm.DB, orgID, id snowflake.ID, at time.Time) error {
	return r.conn(tx).WithContext(ctx).
		Model(&domain.TaxRate{}).
		Where("org_id = ? AND id = ?", orgID, id).
		Updates(map[string]any{
			"expiry_date": at,
			"updated_at":  at,
		}).Error
}

func (r *repository) RateSetVersion(ctx context.Context, orgID snowflake.ID) (int64, error) {
	var row domain.RateSetVersion
	err := r.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return row.Version, nil
}

func (r *repository) BumpRateSetVersion(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, at time.Time) (int64, error) {
	conn := r.conn(tx).WithContext(ctx)

	var row domain.RateSetVersion
	err := conn.Where("org_id = ?", orgID).First(&row).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, err
		}
		row = domain.RateSetVersion{OrgID: orgID, Version: 1, UpdatedAt: at}
		if err := conn.Create(&row).Error; err != nil {
			return 0, err
		}
		return row.Version, nil
	}

	row.Version++
	row.UpdatedAt = at
	if err := conn.Save(&row).Error; err != nil {
		return 0, err
	}
	return row.Version, nil
}

func (r *repository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}
