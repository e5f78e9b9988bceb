package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	cachedomain "github.com/smallbiznis/taxrail/internal/resultcache/domain"
)

// Calculator computes the full tax breakdown for one taxable event.
type Calculator interface {
	Calculate(ctx context.Context, req Request) (*Result, error)
}

// BulkOrchestrator fans a bounded batch out over a worker pool. One item's
// failure is isolated; the batch never aborts.
type BulkOrchestrator interface {
	CalculateBulk(ctx context.Context, reqs []Request, mode string) (*BulkResult, error)
}

// CacheAdmin is the administrative surface over the result cache.
type CacheAdmin interface {
	// ClearCaches drops entries tagged with the category, or everything
	// when categoryID is nil.
	ClearCaches(ctx context.Context, categoryID *snowflake.ID) (int64, error)
	// WarmCaches computes a default-shape request per category so the
	// first real request hits warm.
	WarmCaches(ctx context.Context, orgID snowflake.ID, categoryIDs []snowflake.ID) (int, error)
	CacheStatistics(ctx context.Context) (cachedomain.Stats, error)
}

var (
	ErrValidation    = errors.New("validation_error")
	ErrBatchTooLarge = errors.New("batch_too_large")
	ErrInvalidMode   = errors.New("invalid_mode")
)
