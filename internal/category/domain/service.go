package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// Ref identifies the category of a taxable event; exactly one of the fields
// should be set, checked in the order ProductID, CategoryID, CategoryType.
type Ref struct {
	ProductID    snowflake.ID
	CategoryID   snowflake.ID
	CategoryType string
}

// Classification is the outcome of routing a category to an engine.
type Classification struct {
	Category     *Category // nil when classified by type only
	CategoryType string
	EngineType   string
}

type Classifier interface {
	Classify(ctx context.Context, orgID snowflake.ID, ref Ref) (Classification, error)
	// GetApplicableTaxTypes lists the tax types a category type can attract.
	GetApplicableTaxTypes(categoryType string) []string
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrUnknownCategory     = errors.New("unknown_category")
)
