package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	exemptiondomain "github.com/smallbiznis/taxrail/internal/exemption/domain"
	jurisdictiondomain "github.com/smallbiznis/taxrail/internal/jurisdiction/domain"
)

// Bulk calculation modes. The mode is recorded for audit; it does not change
// the arithmetic.
const (
	ModePreview  = "preview"
	ModeFinal    = "final"
	ModeEstimate = "estimate"
)

// Request is one taxable event. Exactly one of CategoryID, CategoryType or
// ProductID identifies what is being sold.
type Request struct {
	OrgID snowflake.ID `json:"org_id"`

	BasePrice decimal.Decimal `json:"base_price"`
	Quantity  int             `json:"quantity"` // defaults to 1

	CategoryID   snowflake.ID `json:"category_id,omitempty"`
	CategoryType string       `json:"category_type,omitempty"`
	ProductID    snowflake.ID `json:"product_id,omitempty"`

	CustomerAddress jurisdictiondomain.Address `json:"customer_address"`

	// UsageAttributes carries the category-specific quantities the tax
	// profile requires (minutes, line_count, data_usage, ...).
	UsageAttributes map[string]float64 `json:"usage_attributes,omitempty"`

	ClientID snowflake.ID `json:"client_id,omitempty"`

	// AsOf selects the rate set effective at that instant; nil means now.
	AsOf *time.Time `json:"as_of,omitempty"`

	IncludeOptionalExemptions bool `json:"include_optional_exemptions,omitempty"`
}

// Normalize fills defaults and canonicalizes free-text fields so equivalent
// requests fingerprint identically.
func (r *Request) Normalize() {
	if r.Quantity <= 0 {
		r.Quantity = 1
	}
	r.CategoryType = strings.ToLower(strings.TrimSpace(r.CategoryType))
	r.CustomerAddress.State = strings.ToUpper(strings.TrimSpace(r.CustomerAddress.State))
	r.CustomerAddress.City = strings.TrimSpace(r.CustomerAddress.City)
	r.CustomerAddress.Zip = strings.TrimSpace(r.CustomerAddress.Zip)
	r.CustomerAddress.Country = strings.ToUpper(strings.TrimSpace(r.CustomerAddress.Country))
}

// Fingerprint hashes the normalized request together with the org's rate set
// version. Any rate write bumps the version, so stale cache entries stop
// being addressable without key enumeration.
func (r Request) Fingerprint(rateSetVersion int64) string {
	h := sha256.New()
	write := func(part string) {
		h.Write([]byte(part))
		h.Write([]byte{'|'})
	}

	write(r.OrgID.String())
	write(r.BasePrice.String())
	write(strconv.Itoa(r.Quantity))
	write(r.CategoryID.String())
	write(r.CategoryType)
	write(r.ProductID.String())
	write(r.CustomerAddress.State)
	write(strings.ToLower(r.CustomerAddress.City))
	write(r.CustomerAddress.Zip)
	write(r.CustomerAddress.Country)
	write(r.ClientID.String())
	if r.AsOf != nil {
		write(r.AsOf.UTC().Format(time.RFC3339Nano))
	} else {
		write("current")
	}
	write(strconv.FormatBool(r.IncludeOptionalExemptions))

	keys := make([]string, 0, len(r.UsageAttributes))
	for key := range r.UsageAttributes {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		write(key + "=" + strconv.FormatFloat(r.UsageAttributes[key], 'f', -1, 64))
	}

	write(strconv.FormatInt(rateSetVersion, 10))
	return hex.EncodeToString(h.Sum(nil))
}

// Line is one applied rate in the breakdown. Lines are recorded even when an
// exemption drives the amount to zero.
type Line struct {
	JurisdictionID   snowflake.ID `json:"jurisdiction_id"`
	JurisdictionName string       `json:"jurisdiction_name"`

	TaxName string `json:"tax_name"`
	TaxType string `json:"tax_type"`

	RateID      snowflake.ID    `json:"rate_id"`
	RateType    string          `json:"rate_type"`
	RateApplied decimal.Decimal `json:"rate_applied"`

	TaxableBase     decimal.Decimal           `json:"taxable_base"`
	RawTax          decimal.Decimal           `json:"raw_tax"`
	ExemptionAmount decimal.Decimal           `json:"exemption_amount"`
	Exemptions      []exemptiondomain.Applied `json:"exemptions,omitempty"`
	TaxAmount       decimal.Decimal           `json:"tax_amount"`
}

// Result is the immutable outcome of one calculation.
type Result struct {
	BaseAmount decimal.Decimal `json:"base_amount"`

	Lines []Line `json:"lines"`

	TotalTax      decimal.Decimal `json:"total_tax"`
	FinalAmount   decimal.Decimal `json:"final_amount"`
	EffectiveRate decimal.Decimal `json:"effective_rate"` // percent, 4dp

	EngineUsed      string         `json:"engine_used"`
	JurisdictionIDs []snowflake.ID `json:"jurisdiction_ids"`
	RateSetVersion  int64          `json:"rate_set_version"`
}

// BulkItem pairs one request's outcome with its batch position. Err carries
// the per-item failure; it never aborts the batch.
type BulkItem struct {
	Index  int     `json:"index"`
	Result *Result `json:"result,omitempty"`
	Err    string  `json:"error,omitempty"`
}

// BulkTotals are the additive aggregates over the successful items. They
// equal the per-item sums exactly; no batch-level rounding is applied.
type BulkTotals struct {
	TotalBase  decimal.Decimal `json:"total_base"`
	TotalTax   decimal.Decimal `json:"total_tax"`
	TotalFinal decimal.Decimal `json:"total_final"`
}

// BulkPerformance reports batch throughput counters.
type BulkPerformance struct {
	ElapsedMS      int64          `json:"elapsed_ms"`
	ItemsPerSecond float64        `json:"items_per_second"`
	EngineCounts   map[string]int `json:"engine_counts"`
}

type BulkResult struct {
	Mode        string          `json:"mode"`
	Items       []BulkItem      `json:"items"`
	Succeeded   int             `json:"succeeded"`
	Failed      int             `json:"failed"`
	Totals      BulkTotals      `json:"totals"`
	Performance BulkPerformance `json:"performance"`
}
