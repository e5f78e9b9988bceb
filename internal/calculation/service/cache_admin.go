package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/taxrail/internal/audit/domain"
	"github.com/smallbiznis/taxrail/internal/calculation/domain"
	cachedomain "github.com/smallbiznis/taxrail/internal/resultcache/domain"
	"go.uber.org/zap"
)

// ClearCaches drops cached results tagged with the category, or all entries
// when categoryID is nil.
func (s *Calculator) ClearCaches(ctx context.Context, categoryID *snowflake.ID) (int64, error) {
	var removed int64
	var err error
	if categoryID != nil {
		removed, err = s.cache.Invalidate(ctx, "category:"+categoryID.String())
	} else {
		removed, err = s.cache.Clear(ctx)
	}
	if err != nil {
		return 0, err
	}

	metadata := map[string]any{"removed": removed}
	if categoryID != nil {
		metadata["category_id"] = categoryID.String()
	}
	s.recordCacheAction(ctx, auditdomain.ActionCacheClear, metadata)
	return removed, nil
}

// WarmCaches computes a default-shape request per category (empty address,
// zero usage) so the first real request finds a warm entry. Individual
// failures are logged and skipped.
func (s *Calculator) WarmCaches(ctx context.Context, orgID snowflake.ID, categoryIDs []snowflake.ID) (int, error) {
	warmed := 0
	for _, categoryID := range categoryIDs {
		req := domain.Request{
			OrgID:      orgID,
			Quantity:   1,
			CategoryID: categoryID,
		}
		if _, err := s.Calculate(ctx, req); err != nil {
			s.log.Warn("cache warm skipped category",
				zap.String("category_id", categoryID.String()),
				zap.Error(err))
			continue
		}
		warmed++
	}

	s.recordCacheAction(ctx, auditdomain.ActionCacheWarm, map[string]any{
		"requested": len(categoryIDs),
		"warmed":    warmed,
	})
	return warmed, nil
}

func (s *Calculator) CacheStatistics(ctx context.Context) (cachedomain.Stats, error) {
	return s.cache.Stats(ctx)
}

func (s *Calculator) recordCacheAction(ctx context.Context, action string, metadata map[string]any) {
	orgID := snowflake.ID(s.cfg.DefaultOrgID)
	if err := s.audit.Record(ctx, orgID, "system", nil, action, "tax_cache", nil, metadata); err != nil {
		s.log.Warn("cache audit record failed", zap.String("action", action), zap.Error(err))
	}
}
