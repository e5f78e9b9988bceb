package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	jurisdictiondomain "github.com/smallbiznis/taxrail/internal/jurisdiction/domain"
	"github.com/stretchr/testify/assert"
)

func baseRequest() Request {
	return Request{
		OrgID:     1,
		BasePrice: decimal.NewFromInt(100),
		Quantity:  1,
		CustomerAddress: jurisdictiondomain.Address{
			State: "CA", City: "Los Angeles", Zip: "90001", Country: "US",
		},
		CategoryType:    "general",
		UsageAttributes: map[string]float64{"minutes": 500, "line_count": 2},
	}
}

func TestFingerprint_EquivalentRequestsMatch(t *testing.T) {
	a := baseRequest()
	b := baseRequest()
	b.CategoryType = "  General "
	b.CustomerAddress.State = "ca"
	b.CustomerAddress.Country = " us"
	a.Normalize()
	b.Normalize()

	assert.Equal(t, a.Fingerprint(3), b.Fingerprint(3))
}

func TestFingerprint_SensitiveToInputsAndVersion(t *testing.T) {
	a := baseRequest()
	a.Normalize()
	key := a.Fingerprint(3)

	b := baseRequest()
	b.BasePrice = decimal.NewFromInt(101)
	b.Normalize()
	assert.NotEqual(t, key, b.Fingerprint(3))

	assert.NotEqual(t, key, a.Fingerprint(4))

	c := baseRequest()
	asOf := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	c.AsOf = &asOf
	c.Normalize()
	assert.NotEqual(t, key, c.Fingerprint(3))
}

func TestNormalize_DefaultsQuantity(t *testing.T) {
	r := Request{OrgID: 1, BasePrice: decimal.NewFromInt(10)}
	r.Normalize()
	assert.Equal(t, 1, r.Quantity)
}
