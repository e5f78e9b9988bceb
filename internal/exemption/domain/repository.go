package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	ListActive(ctx context.Context, orgID, clientID snowflake.ID, asOf time.Time) ([]Exemption, error)
	Create(ctx context.Context, e *Exemption) error
}
