package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/taxrail/internal/audit/domain"
	"github.com/smallbiznis/taxrail/internal/calculation/domain"
	"github.com/smallbiznis/taxrail/internal/clock"
	"github.com/smallbiznis/taxrail/internal/config"
	"github.com/smallbiznis/taxrail/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Bulk fans a batch out over a bounded worker pool. Items are independent;
// the aggregates are plain sums of the per-item results.
type Bulk struct {
	cfg   config.Config
	log   *zap.Logger
	clock clock.Clock
	calc  domain.Calculator
	audit auditdomain.Service
}

type BulkParam struct {
	fx.In

	Config     config.Config
	Log        *zap.Logger
	Clock      clock.Clock
	Calculator domain.Calculator
	Audit      auditdomain.Service
}

func NewBulk(p BulkParam) domain.BulkOrchestrator {
	return &Bulk{
		cfg:   p.Config,
		log:   p.Log.Named("calculation.bulk"),
		clock: p.Clock,
		calc:  p.Calculator,
		audit: p.Audit,
	}
}

func (s *Bulk) CalculateBulk(ctx context.Context, reqs []domain.Request, mode string) (*domain.BulkResult, error) {
	mode, err := normalizeMode(mode)
	if err != nil {
		return nil, err
	}
	if max := s.cfg.Bulk.MaxBatchSize; max > 0 && len(reqs) > max {
		return nil, fmt.Errorf("%w: %d items, limit %d", domain.ErrBatchTooLarge, len(reqs), max)
	}

	start := s.clock.Now()
	items := make([]domain.BulkItem, len(reqs))

	var g errgroup.Group
	if s.cfg.Bulk.Concurrency > 0 {
		g.SetLimit(s.cfg.Bulk.Concurrency)
	}
	for i := range reqs {
		i := i
		g.Go(func() error {
			result, err := s.calc.Calculate(ctx, reqs[i])
			if err != nil {
				items[i] = domain.BulkItem{Index: i, Err: err.Error()}
				return nil
			}
			items[i] = domain.BulkItem{Index: i, Result: result}
			return nil
		})
	}
	_ = g.Wait()

	out := &domain.BulkResult{
		Mode:  mode,
		Items: items,
		Totals: domain.BulkTotals{
			TotalBase:  decimal.Zero,
			TotalTax:   decimal.Zero,
			TotalFinal: decimal.Zero,
		},
		Performance: domain.BulkPerformance{
			EngineCounts: make(map[string]int),
		},
	}
	for _, item := range items {
		if item.Result == nil {
			out.Failed++
			continue
		}
		out.Succeeded++
		out.Totals.TotalBase = out.Totals.TotalBase.Add(item.Result.BaseAmount)
		out.Totals.TotalTax = out.Totals.TotalTax.Add(item.Result.TotalTax)
		out.Totals.TotalFinal = out.Totals.TotalFinal.Add(item.Result.FinalAmount)
		out.Performance.EngineCounts[item.Result.EngineUsed]++
	}

	elapsed := s.clock.Now().Sub(start)
	out.Performance.ElapsedMS = elapsed.Milliseconds()
	if elapsed > 0 {
		out.Performance.ItemsPerSecond = float64(len(reqs)) / elapsed.Seconds()
	}

	metrics.Calculation().ObserveBulk(len(reqs), elapsed)
	s.recordBulk(ctx, reqs, out)

	return out, nil
}

func normalizeMode(mode string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", domain.ModeFinal:
		return domain.ModeFinal, nil
	case domain.ModePreview:
		return domain.ModePreview, nil
	case domain.ModeEstimate:
		return domain.ModeEstimate, nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidMode, mode)
	}
}

func (s *Bulk) recordBulk(ctx context.Context, reqs []domain.Request, out *domain.BulkResult) {
	if len(reqs) == 0 {
		return
	}
	correlationID := uuid.NewString()
	err := s.audit.Record(ctx, reqs[0].OrgID, "system", nil, auditdomain.ActionBulkCalculation, "tax_calculation", &correlationID, map[string]any{
		"mode":       out.Mode,
		"items":      len(reqs),
		"succeeded":  out.Succeeded,
		"failed":     out.Failed,
		"elapsed_ms": out.Performance.ElapsedMS,
		"total_tax":  out.Totals.TotalTax.String(),
	})
	if err != nil {
		s.log.Warn("bulk audit record failed", zap.Error(err))
	}
}
