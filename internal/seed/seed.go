package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	categorydomain "github.com/smallbiznis/taxrail/internal/category/domain"
	jurisdictiondomain "github.com/smallbiznis/taxrail/internal/jurisdiction/domain"
	taxprofiledomain "github.com/smallbiznis/taxrail/internal/taxprofile/domain"
	"gorm.io/gorm"
)

const (
	defaultCategoryCode = "general"
	defaultProfileName  = "Default General Profile"
)

// EnsureDefaults seeds the baseline the engine needs to be usable out of the
// box: a federal jurisdiction, example state jurisdictions, the general
// category and the default general profile. Idempotent.
func EnsureDefaults(db *gorm.DB, orgID int64) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	org := snowflake.ID(orgID)
	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureJurisdictions(ctx, tx, node, org); err != nil {
			return err
		}
		category, err := ensureGeneralCategory(ctx, tx, node, org)
		if err != nil {
			return err
		}
		return ensureDefaultProfile(ctx, tx, node, org, category)
	})
}

func ensureJurisdictions(ctx context.Context, tx *gorm.DB, node *snowflake.Node, orgID snowflake.ID) error {
	seeds := []jurisdictiondomain.Jurisdiction{
		{
			Name:          "United States",
			Type:          jurisdictiondomain.TypeFederal,
			AuthorityName: "Internal Revenue Service",
			Priority:      10,
		},
		{
			Name:          "California",
			Type:          jurisdictiondomain.TypeState,
			StateCode:     "CA",
			AuthorityName: "California Department of Tax and Fee Administration",
			Priority:      20,
		},
		{
			Name:          "New York",
			Type:          jurisdictiondomain.TypeState,
			StateCode:     "NY",
			AuthorityName: "New York State Department of Taxation and Finance",
			Priority:      20,
		},
	}

	now := time.Now().UTC()
	for _, seedRow := range seeds {
		var existing jurisdictiondomain.Jurisdiction
		err := tx.WithContext(ctx).
			Where("org_id = ? AND type = ? AND name = ?", orgID, seedRow.Type, seedRow.Name).
			First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		seedRow.ID = node.Generate()
		seedRow.OrgID = orgID
		seedRow.Active = true
		seedRow.CreatedAt = now
		seedRow.UpdatedAt = now
		if err := tx.WithContext(ctx).Create(&seedRow).Error; err != nil {
			return err
		}
	}
	return nil
}

func ensureGeneralCategory(ctx context.Context, tx *gorm.DB, node *snowflake.Node, orgID snowflake.ID) (categorydomain.Category, error) {
	var category categorydomain.Category
	err := tx.WithContext(ctx).
		Where("org_id = ? AND code = ?", orgID, defaultCategoryCode).
		First(&category).Error
	if err == nil {
		return category, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return category, err
	}

	now := time.Now().UTC()
	category = categorydomain.Category{
		ID:           node.Generate(),
		OrgID:        orgID,
		Code:         defaultCategoryCode,
		CategoryType: categorydomain.CategoryGeneral,
		IsTaxable:    true,
		Priority:     100,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := tx.WithContext(ctx).Create(&category).Error; err != nil {
		return category, err
	}
	return category, nil
}

func ensureDefaultProfile(ctx context.Context, tx *gorm.DB, node *snowflake.Node, orgID snowflake.ID, category categorydomain.Category) error {
	var profile taxprofiledomain.TaxProfile
	err := tx.WithContext(ctx).
		Where("org_id = ? AND name = ?", orgID, defaultProfileName).
		First(&profile).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	now := time.Now().UTC()
	profile = taxprofiledomain.TaxProfile{
		ID:           node.Generate(),
		OrgID:        orgID,
		Name:         defaultProfileName,
		CategoryID:   &category.ID,
		CategoryType: categorydomain.CategoryGeneral,
		EngineType:   categorydomain.EngineGeneral,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return tx.WithContext(ctx).Create(&profile).Error
}
