package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	FindByID(ctx context.Context, orgID, id snowflake.ID) (*Category, error)
	Create(ctx context.Context, c *Category) error
}
