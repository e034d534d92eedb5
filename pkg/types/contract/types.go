// Package contract defines the canonical record types shared by the field
// extractor, the fairness scoring engine, the valuation helpers, and the
// offer comparator.  Every numeric or boolean field that may legitimately be
// missing from a source document is a pointer; nil means "not extracted",
// which is distinct from an extracted zero.  All records are created once per
// pipeline invocation and treated as immutable afterwards.
package contract

import "fmt"

// FieldName identifies a single extractable contract field.  The extractor
// keys its pattern tables and confidence map by these names, and scoring
// reasons reference them, so the three stages share one vocabulary.
type FieldName string

const (
	FieldVIN                     FieldName = "vin"
	FieldMake                    FieldName = "make"
	FieldModel                   FieldName = "model"
	FieldYear                    FieldName = "year"
	FieldMonthlyPayment          FieldName = "monthly_payment"
	FieldDownPayment             FieldName = "down_payment"
	FieldVehiclePrice            FieldName = "vehicle_price"
	FieldResidualValue           FieldName = "residual_value"
	FieldBuyoutPrice             FieldName = "buyout_price"
	FieldAPR                     FieldName = "apr"
	FieldTermMonths              FieldName = "term_months"
	FieldMileageAllowancePerYear FieldName = "mileage_allowance_per_year"
	FieldExcessMileageFeePerMile FieldName = "excess_mileage_fee_per_mile"
	FieldDocumentationFee        FieldName = "documentation_fee"
	FieldAcquisitionFee          FieldName = "acquisition_fee"
	FieldOtherFees               FieldName = "other_fees"
	FieldEarlyTermination        FieldName = "has_early_termination_clause"
	FieldPenaltyClause           FieldName = "has_penalty_clause"
)

// OtherFee is one labelled line item from the contract's fee schedule.
// Order is preserved from the source document.
type OtherFee struct {
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
}

// ContractFields is the normalized record produced by the field extractor for
// one contract or offer.  Absence is a first-class state: a nil pointer (or
// empty string / empty slice) means the field was not found in the text, not
// that extraction failed.
type ContractFields struct {
	// Identity.
	VIN   string `json:"vin"`
	Make  string `json:"make"`
	Model string `json:"model"`
	Year  *int   `json:"year"`

	// Money, stored as decimal currency amounts, never as formatted strings.
	MonthlyPayment *float64 `json:"monthly_payment"`
	DownPayment    *float64 `json:"down_payment"`
	VehiclePrice   *float64 `json:"vehicle_price"`
	ResidualValue  *float64 `json:"residual_value"`
	BuyoutPrice    *float64 `json:"buyout_price"`

	// APR is a decimal percentage in [0,100], e.g. 7.25 for "7.25%".
	APR *float64 `json:"apr"`

	// TermMonths is always months; a "years" source unit is converted on
	// extraction.
	TermMonths *int `json:"term_months"`

	// Mileage.
	MileageAllowancePerYear *int     `json:"mileage_allowance_per_year"`
	ExcessMileageFeePerMile *float64 `json:"excess_mileage_fee_per_mile"`

	// Fees.
	DocumentationFee *float64   `json:"documentation_fee"`
	AcquisitionFee   *float64   `json:"acquisition_fee"`
	OtherFees        []OtherFee `json:"other_fees"`

	// Clause flags.
	HasEarlyTerminationClause bool `json:"has_early_termination_clause"`
	HasPenaltyClause          bool `json:"has_penalty_clause"`

	// Confidence holds, for every populated field, the extraction certainty
	// in [0,1].  Advisory metadata only; consumers may ignore it.
	Confidence map[FieldName]float64 `json:"confidence"`
}

// OtherFeesTotal returns the sum of all labelled line-item fees.
func (f *ContractFields) OtherFeesTotal() float64 {
	var total float64
	for _, fee := range f.OtherFees {
		total += fee.Amount
	}
	return total
}

// MarketContext carries externally supplied, already-resolved market data.
// Both fields are optional; the scoring engine skips market-relative rules
// when the corresponding input is nil.
type MarketContext struct {
	MarketAveragePrice *float64 `json:"market_average_price"`
	ComparableAPR      *float64 `json:"comparable_apr"`
}

// Rating is the qualitative band derived from a fairness score.
type Rating string

const (
	RatingExcellent Rating = "Excellent"
	RatingGood      Rating = "Good"
	RatingFair      Rating = "Fair"
	RatingPoor      Rating = "Poor"
)

// Reason is one entry of the scoring audit trail: which factor fired, the
// human-readable description, and the signed point delta it contributed.
// The headline reason carries a zero delta and the factor "overall".
type Reason struct {
	Factor FieldName `json:"factor"`
	Text   string    `json:"text"`
	Delta  int       `json:"delta"`
}

// String renders the reason in the canonical audit format.
func (r Reason) String() string {
	if r.Delta == 0 {
		return r.Text
	}
	return fmt.Sprintf("%s (deduct %d points)", r.Text, -r.Delta)
}

// FairnessAssessment is the output of the scoring engine for one offer.
type FairnessAssessment struct {
	// Score is clamped to [0,100].
	Score int `json:"score"`

	// RawScore is the unclamped cumulative score, kept so that aggregate
	// over-application of deductions stays visible.
	RawScore int `json:"raw_score"`

	// Rating is the band derived from Score.
	Rating Rating `json:"rating"`

	// Reasons preserves rule insertion order; the first entry is the
	// qualitative headline when at least one rule fired.
	Reasons []Reason `json:"reasons"`
}

// ValuationResult holds the pure-function outputs of the valuation helpers.
type ValuationResult struct {
	ResidualValue    float64 `json:"residual_value"`
	FairMonthlyLease float64 `json:"fair_monthly_lease"`
	MoneyFactor      float64 `json:"money_factor"`
	DepreciationFee  float64 `json:"depreciation_fee"`
	FinanceFee       float64 `json:"finance_fee"`
}

// RankedOffer is one entry of a ComparisonResult.
type RankedOffer struct {
	// OfferID is the caller-supplied identity of the offer (UUID, label, or
	// input index rendered as a string when the caller gave none).
	OfferID string `json:"offer_id"`

	// CompositeScore is the weighted blend of normalized metrics, scaled to
	// [0,100] and rounded to two decimals.
	CompositeScore float64 `json:"composite_score"`

	// Metrics holds the per-metric normalized scores in [0,1].
	Metrics map[string]float64 `json:"metrics"`
}

// ComparisonResult is the ranked output of the offer comparator, sorted
// descending by composite score with ties broken by input order.
type ComparisonResult struct {
	Rankings  []RankedOffer `json:"rankings"`
	BestOffer RankedOffer   `json:"best_offer"`
}

// Float returns a pointer to v.  Convenience constructor for building
// records with optional numeric fields.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }
