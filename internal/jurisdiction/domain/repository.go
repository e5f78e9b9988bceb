package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	ListActive(ctx context.Context, orgID snowflake.ID) ([]Jurisdiction, error)
	FindByID(ctx context.Context, orgID, id snowflake.ID) (*Jurisdiction, error)
	Create(ctx context.Context, j *Jurisdiction) error
	SetActive(ctx context.Context, orgID, id snowflake.ID, active bool) error
}
