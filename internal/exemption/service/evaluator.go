package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/taxrail/internal/exemption/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Evaluator struct {
	log  *zap.Logger
	repo domain.Repository
}

type EvaluatorParam struct {
	fx.In

	Log  *zap.Logger
	Repo domain.Repository
}

func NewEvaluator(p EvaluatorParam) domain.Evaluator {
	return &Evaluator{
		log:  p.Log.Named("exemption.service"),
		repo: p.Repo,
	}
}

func (s *Evaluator) ListEligible(ctx context.Context, orgID, clientID snowflake.ID, asOf time.Time, includeOptional bool) ([]domain.Exemption, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}
	if clientID == 0 {
		return nil, domain.ErrInvalidClient
	}

	rows, err := s.repo.ListActive(ctx, orgID, clientID, asOf)
	if err != nil {
		return nil, err
	}
	if includeOptional {
		return rows, nil
	}

	eligible := rows[:0]
	for _, e := range rows {
		if e.AutoApply {
			eligible = append(eligible, e)
		}
	}
	return eligible, nil
}

// Apply cascades matching certificates in priority order. The cascade order
// is part of the audit contract: the highest-priority certificate is consumed
// first, and replays must reproduce the same application sequence.
func (s *Evaluator) Apply(eligible []domain.Exemption, scope domain.LineScope, rawTax decimal.Decimal) (decimal.Decimal, []domain.Applied) {
	remaining := rawTax
	var applied []domain.Applied

	if rawTax.Sign() <= 0 {
		return rawTax, nil
	}

	for _, e := range eligible {
		if remaining.Sign() <= 0 {
			break
		}
		if !matches(e, scope) {
			continue
		}

		if e.IsBlanket {
			applied = append(applied, domain.Applied{
				ExemptionID: e.ID,
				Amount:      remaining,
				Blanket:     true,
			})
			remaining = decimal.Zero
			break
		}

		reduction := remaining.Mul(e.ExemptionPercentage).Div(decimal.NewFromInt(100)).Round(2)
		if e.MaximumExemptionAmount != nil && reduction.GreaterThan(*e.MaximumExemptionAmount) {
			reduction = *e.MaximumExemptionAmount
		}
		if reduction.GreaterThan(remaining) {
			reduction = remaining
		}
		if reduction.Sign() <= 0 {
			continue
		}

		applied = append(applied, domain.Applied{
			ExemptionID: e.ID,
			Amount:      reduction,
		})
		remaining = remaining.Sub(reduction)
	}

	return remaining, applied
}

func matches(e domain.Exemption, scope domain.LineScope) bool {
	if e.JurisdictionID != nil && *e.JurisdictionID != scope.JurisdictionID {
		return false
	}
	if e.CategoryID != nil && (scope.CategoryID == 0 || *e.CategoryID != scope.CategoryID) {
		return false
	}
	if len(e.ApplicableTaxTypes) == 0 {
		return true
	}
	for _, taxType := range e.ApplicableTaxTypes {
		if strings.EqualFold(taxType, scope.TaxType) {
			return true
		}
	}
	return false
}
