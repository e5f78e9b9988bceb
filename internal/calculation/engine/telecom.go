package engine

import (
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/taxrail/internal/calculation/domain"
	categorydomain "github.com/smallbiznis/taxrail/internal/category/domain"
)

// usageQuantityFields are checked in order for the usage quantity that
// replaces the line quantity in the taxable base.
var usageQuantityFields = []string{"minutes", "line_count", "data_usage"}

// Telecom computes a usage-based taxable base: the base price is a per-unit
// charge (per minute, per line) multiplied by the usage quantity, not by the
// line quantity. Falls back to price times quantity when the request carries
// no usage quantity.
type Telecom struct{}

func NewTelecom() Telecom { return Telecom{} }

func (Telecom) Name() string { return categorydomain.EngineTelecom }

func (Telecom) TaxableBase(req domain.Request) decimal.Decimal {
	for _, field := range usageQuantityFields {
		if units, ok := req.UsageAttributes[field]; ok && units > 0 {
			return req.BasePrice.Mul(decimal.NewFromFloat(units)).Round(2)
		}
	}
	return req.BasePrice.Mul(decimal.NewFromInt(int64(req.Quantity))).Round(2)
}
