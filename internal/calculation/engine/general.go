package engine

import (
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/taxrail/internal/calculation/domain"
	categorydomain "github.com/smallbiznis/taxrail/internal/category/domain"
)

// General computes the taxable base as base price times quantity.
type General struct{}

func NewGeneral() General { return General{} }

func (General) Name() string { return categorydomain.EngineGeneral }

func (General) TaxableBase(req domain.Request) decimal.Decimal {
	return req.BasePrice.Mul(decimal.NewFromInt(int64(req.Quantity))).Round(2)
}
