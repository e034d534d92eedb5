package fairness

import (
	"fmt"

	"github.com/leaselens/leaselens/pkg/types/contract"
)

// Thresholds carries every cut point and deduction used by the rule table.
// They are configuration, not invariants: deployments may tighten or relax
// them without touching the engine.  DefaultThresholds returns the standard
// policy.
type Thresholds struct {
	// APR tiers, evaluated highest first.
	APRTiers []Tier `mapstructure:"apr_tiers"`

	// APRSpreadTiers penalise an APR above the market comparable rate.
	APRSpreadTiers []Tier `mapstructure:"apr_spread_tiers"`

	DocFeeTiers         []Tier `mapstructure:"doc_fee_tiers"`
	AcquisitionFeeTiers []Tier `mapstructure:"acquisition_fee_tiers"`
	MileageFeeTiers     []Tier `mapstructure:"mileage_fee_tiers"`

	// PaymentRatioTiers act on (monthly_payment*12)/price.
	PaymentRatioTiers []Tier `mapstructure:"payment_ratio_tiers"`

	TermMonthTiers []Tier `mapstructure:"term_month_tiers"`

	// DownPaymentTiers act on down_payment/price and fire when the ratio is
	// BELOW the bound (a small down payment is the unfavourable case).
	DownPaymentTiers []Tier `mapstructure:"down_payment_tiers"`

	OtherFeeCountTiers []Tier `mapstructure:"other_fee_count_tiers"`
	OtherFeeSumTiers   []Tier `mapstructure:"other_fee_sum_tiers"`

	// TotalFeeRatioTiers act on (doc+acquisition+other)/price.
	TotalFeeRatioTiers []Tier `mapstructure:"total_fee_ratio_tiers"`

	EarlyTerminationDeduct int `mapstructure:"early_termination_deduct"`
	PenaltyClauseDeduct    int `mapstructure:"penalty_clause_deduct"`
}

// Tier couples a bound with the points deducted once the measured value
// passes it.  Tier lists are ordered most severe first; the first tier that
// fires wins.
type Tier struct {
	Bound  float64 `mapstructure:"bound"`
	Deduct int     `mapstructure:"deduct"`
}

// DefaultThresholds returns the standard deduction policy.
func DefaultThresholds() Thresholds {
	return Thresholds{
		APRTiers: []Tier{
			{Bound: 20, Deduct: 40},
			{Bound: 15, Deduct: 30},
			{Bound: 10, Deduct: 20},
			{Bound: 7, Deduct: 10},
			{Bound: 5, Deduct: 5},
		},
		APRSpreadTiers: []Tier{
			{Bound: 3, Deduct: 10},
			{Bound: 1.5, Deduct: 5},
		},
		DocFeeTiers: []Tier{
			{Bound: 1000, Deduct: 20},
			{Bound: 500, Deduct: 10},
			{Bound: 200, Deduct: 5},
		},
		AcquisitionFeeTiers: []Tier{
			{Bound: 1200, Deduct: 20},
			{Bound: 800, Deduct: 10},
			{Bound: 400, Deduct: 5},
		},
		MileageFeeTiers: []Tier{
			{Bound: 0.35, Deduct: 20},
			{Bound: 0.25, Deduct: 10},
		},
		PaymentRatioTiers: []Tier{
			{Bound: 0.40, Deduct: 20},
			{Bound: 0.35, Deduct: 15},
		},
		TermMonthTiers: []Tier{
			{Bound: 84, Deduct: 25},
			{Bound: 72, Deduct: 15},
			{Bound: 60, Deduct: 10},
		},
		DownPaymentTiers: []Tier{
			{Bound: 0.05, Deduct: 15},
			{Bound: 0.10, Deduct: 10},
		},
		OtherFeeCountTiers: []Tier{
			{Bound: 5, Deduct: 15},
			{Bound: 3, Deduct: 10},
			{Bound: 1, Deduct: 5},
		},
		OtherFeeSumTiers: []Tier{
			{Bound: 1000, Deduct: 15},
			{Bound: 500, Deduct: 10},
			{Bound: 200, Deduct: 5},
		},
		TotalFeeRatioTiers: []Tier{
			{Bound: 0.05, Deduct: 20},
			{Bound: 0.03, Deduct: 15},
			{Bound: 0.02, Deduct: 10},
		},
		EarlyTerminationDeduct: 10,
		PenaltyClauseDeduct:    5,
	}
}

// exceeds returns the first tier whose bound the value passes, or false.
func exceeds(tiers []Tier, value float64) (Tier, bool) {
	for _, t := range tiers {
		if value >= t.Bound {
			return t, true
		}
	}
	return Tier{}, false
}

// below returns the first tier the value sits under, checked least severe
// bound last so the harshest applicable tier wins.
func below(tiers []Tier, value float64) (Tier, bool) {
	for _, t := range tiers {
		if value < t.Bound {
			return t, true
		}
	}
	return Tier{}, false
}

// rule is one entry of the ordered deduction table.  eval returns the fired
// reason or ok=false when the rule's inputs are missing or the condition does
// not hold.  Rules are independent; missing inputs skip the rule silently.
type rule struct {
	factor contract.FieldName
	eval   func(f *contract.ContractFields, m *contract.MarketContext, t Thresholds) ([]contract.Reason, bool)
}

// priceFor resolves the price basis for ratio rules: the contract's own
// vehicle price, falling back to the externally supplied market average.
// Ratio rules are skipped entirely when neither is available.
func priceFor(f *contract.ContractFields, m *contract.MarketContext) (float64, bool) {
	if f.VehiclePrice != nil && *f.VehiclePrice > 0 {
		return *f.VehiclePrice, true
	}
	if m != nil && m.MarketAveragePrice != nil && *m.MarketAveragePrice > 0 {
		return *m.MarketAveragePrice, true
	}
	return 0, false
}

func one(factor contract.FieldName, delta int, format string, args ...interface{}) []contract.Reason {
	return []contract.Reason{{
		Factor: factor,
		Text:   fmt.Sprintf(format, args...),
		Delta:  -delta,
	}}
}

// ruleTable is the fixed evaluation order.  Reason insertion order follows
// this table, so the reasons list doubles as an audit trail.
var ruleTable = []rule{
	{
		factor: contract.FieldAPR,
		eval: func(f *contract.ContractFields, _ *contract.MarketContext, t Thresholds) ([]contract.Reason, bool) {
			if f.APR == nil {
				return nil, false
			}
			tier, ok := exceeds(t.APRTiers, *f.APR)
			if !ok {
				return nil, false
			}
			return one(contract.FieldAPR, tier.Deduct, "high annual percentage rate: %.2f%%", *f.APR), true
		},
	},
	{
		factor: contract.FieldAPR,
		eval: func(f *contract.ContractFields, m *contract.MarketContext, t Thresholds) ([]contract.Reason, bool) {
			if f.APR == nil || m == nil || m.ComparableAPR == nil {
				return nil, false
			}
			spread := *f.APR - *m.ComparableAPR
			tier, ok := exceeds(t.APRSpreadTiers, spread)
			if !ok {
				return nil, false
			}
			return one(contract.FieldAPR, tier.Deduct,
				"APR is %.2f points above the comparable market rate of %.2f%%", spread, *m.ComparableAPR), true
		},
	},
	{
		factor: contract.FieldDocumentationFee,
		eval: func(f *contract.ContractFields, _ *contract.MarketContext, t Thresholds) ([]contract.Reason, bool) {
			if f.DocumentationFee == nil {
				return nil, false
			}
			tier, ok := exceedsStrict(t.DocFeeTiers, *f.DocumentationFee)
			if !ok {
				return nil, false
			}
			return one(contract.FieldDocumentationFee, tier.Deduct, "high documentation fee: $%.2f", *f.DocumentationFee), true
		},
	},
	{
		factor: contract.FieldAcquisitionFee,
		eval: func(f *contract.ContractFields, _ *contract.MarketContext, t Thresholds) ([]contract.Reason, bool) {
			if f.AcquisitionFee == nil {
				return nil, false
			}
			tier, ok := exceedsStrict(t.AcquisitionFeeTiers, *f.AcquisitionFee)
			if !ok {
				return nil, false
			}
			return one(contract.FieldAcquisitionFee, tier.Deduct, "high acquisition fee: $%.2f", *f.AcquisitionFee), true
		},
	},
	{
		factor: contract.FieldExcessMileageFeePerMile,
		eval: func(f *contract.ContractFields, _ *contract.MarketContext, t Thresholds) ([]contract.Reason, bool) {
			if f.ExcessMileageFeePerMile == nil {
				return nil, false
			}
			tier, ok := exceedsStrict(t.MileageFeeTiers, *f.ExcessMileageFeePerMile)
			if !ok {
				return nil, false
			}
			return one(contract.FieldExcessMileageFeePerMile, tier.Deduct,
				"high excess mileage fee: $%.2f per mile", *f.ExcessMileageFeePerMile), true
		},
	},
	{
		factor: contract.FieldMonthlyPayment,
		eval: func(f *contract.ContractFields, m *contract.MarketContext, t Thresholds) ([]contract.Reason, bool) {
			if f.MonthlyPayment == nil {
				return nil, false
			}
			price, ok := priceFor(f, m)
			if !ok {
				return nil, false
			}
			ratio := (*f.MonthlyPayment * 12) / price
			tier, fired := exceedsStrict(t.PaymentRatioTiers, ratio)
			if !fired {
				return nil, false
			}
			return one(contract.FieldMonthlyPayment, tier.Deduct,
				"annualized payments are %.0f%% of the vehicle price", ratio*100), true
		},
	},
	{
		factor: contract.FieldTermMonths,
		eval: func(f *contract.ContractFields, _ *contract.MarketContext, t Thresholds) ([]contract.Reason, bool) {
			if f.TermMonths == nil {
				return nil, false
			}
			tier, ok := exceedsStrict(t.TermMonthTiers, float64(*f.TermMonths))
			if !ok {
				return nil, false
			}
			return one(contract.FieldTermMonths, tier.Deduct, "unusually long term: %d months", *f.TermMonths), true
		},
	},
	{
		factor: contract.FieldDownPayment,
		eval: func(f *contract.ContractFields, m *contract.MarketContext, t Thresholds) ([]contract.Reason, bool) {
			if f.DownPayment == nil {
				return nil, false
			}
			price, ok := priceFor(f, m)
			if !ok {
				return nil, false
			}
			ratio := *f.DownPayment / price
			tier, fired := below(t.DownPaymentTiers, ratio)
			if !fired {
				return nil, false
			}
			return one(contract.FieldDownPayment, tier.Deduct,
				"low down payment: %.1f%% of the vehicle price", ratio*100), true
		},
	},
	{
		factor: contract.FieldOtherFees,
		eval: func(f *contract.ContractFields, _ *contract.MarketContext, t Thresholds) ([]contract.Reason, bool) {
			if len(f.OtherFees) == 0 {
				return nil, false
			}
			var reasons []contract.Reason
			if tier, ok := exceedsStrict(t.OtherFeeCountTiers, float64(len(f.OtherFees))); ok {
				reasons = append(reasons, one(contract.FieldOtherFees, tier.Deduct,
					"many additional fee line items: %d", len(f.OtherFees))...)
			}
			total := f.OtherFeesTotal()
			if tier, ok := exceedsStrict(t.OtherFeeSumTiers, total); ok {
				reasons = append(reasons, one(contract.FieldOtherFees, tier.Deduct,
					"additional fees total $%.2f", total)...)
			}
			return reasons, len(reasons) > 0
		},
	},
	{
		factor: contract.FieldOtherFees,
		eval: func(f *contract.ContractFields, m *contract.MarketContext, t Thresholds) ([]contract.Reason, bool) {
			total := f.OtherFeesTotal()
			if f.DocumentationFee != nil {
				total += *f.DocumentationFee
			}
			if f.AcquisitionFee != nil {
				total += *f.AcquisitionFee
			}
			if total == 0 {
				return nil, false
			}
			price, ok := priceFor(f, m)
			if !ok {
				return nil, false
			}
			ratio := total / price
			tier, fired := exceedsStrict(t.TotalFeeRatioTiers, ratio)
			if !fired {
				return nil, false
			}
			return one(contract.FieldOtherFees, tier.Deduct,
				"total fees are %.1f%% of the vehicle price", ratio*100), true
		},
	},
	{
		factor: contract.FieldEarlyTermination,
		eval: func(f *contract.ContractFields, _ *contract.MarketContext, t Thresholds) ([]contract.Reason, bool) {
			if !f.HasEarlyTerminationClause {
				return nil, false
			}
			return one(contract.FieldEarlyTermination, t.EarlyTerminationDeduct,
				"contract contains an early termination clause"), true
		},
	},
	{
		factor: contract.FieldPenaltyClause,
		eval: func(f *contract.ContractFields, _ *contract.MarketContext, t Thresholds) ([]contract.Reason, bool) {
			if !f.HasPenaltyClause {
				return nil, false
			}
			return one(contract.FieldPenaltyClause, t.PenaltyClauseDeduct,
				"contract contains a penalty clause"), true
		},
	},
}

// exceedsStrict is like exceeds but with a strictly-greater comparison, for
// tiers specified as "more than X".
func exceedsStrict(tiers []Tier, value float64) (Tier, bool) {
	for _, t := range tiers {
		if value > t.Bound {
			return t, true
		}
	}
	return Tier{}, false
}
