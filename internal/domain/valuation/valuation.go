// Package valuation provides the pure numeric models used by the fairness
// scoring engine and the offer comparator: a residual-value depreciation
// model and a fair-lease-payment model.  Both are total functions of their
// inputs; the only rejected call is a non-positive lease term, because the
// division by the term is load-bearing.
package valuation

import (
	"fmt"
	"math"
	"time"

	"github.com/leaselens/leaselens/pkg/errors"
	"github.com/leaselens/leaselens/pkg/types/contract"
)

// Condition classifies the vehicle's physical state.
type Condition string

const (
	ConditionExcellent Condition = "excellent"
	ConditionGood      Condition = "good"
	ConditionFair      Condition = "fair"
	ConditionPoor      Condition = "poor"
)

// Model constants.  The depreciation rate and mileage penalty shape are
// calibrated to the mainstream passenger-vehicle market; they are exported
// nowhere because callers tune behaviour through the Condition input.
const (
	annualDepreciationRate = 0.15

	// expectedMilesPerYear is the allowance baseline; mileage above
	// age*expectedMilesPerYear erodes the residual.
	expectedMilesPerYear = 12000.0

	// maxMileagePenalty caps the multiplicative reduction at 15%, reached at
	// mileagePenaltyCapMiles excess miles.
	maxMileagePenalty      = 0.15
	mileagePenaltyCapMiles = 100000.0

	// moneyFactorDivisor converts a decimal APR percentage to a lease money
	// factor.
	moneyFactorDivisor = 2400.0
)

// conditionFactor maps a condition to its residual multiplier.  Unknown
// conditions are treated as fair.
func conditionFactor(c Condition) float64 {
	switch c {
	case ConditionExcellent:
		return 0.975
	case ConditionGood:
		return 0.91
	case ConditionFair:
		return 0.85
	case ConditionPoor:
		return 0.75
	default:
		return 0.85
	}
}

// ResidualInputs are the parameters of the depreciation model.
type ResidualInputs struct {
	MSRP      float64
	ModelYear int
	Mileage   int
	Condition Condition

	// AsOfYear is the evaluation year; zero means the current calendar year.
	AsOfYear int
}

// ResidualValue estimates the vehicle's worth at the evaluation year:
// an exponential age baseline, a condition multiplier, then a linear mileage
// penalty applied multiplicatively after condition.
func ResidualValue(in ResidualInputs) float64 {
	if in.MSRP <= 0 {
		return 0
	}
	asOf := in.AsOfYear
	if asOf == 0 {
		asOf = time.Now().Year()
	}
	age := asOf - in.ModelYear
	if age < 0 {
		age = 0
	}

	value := in.MSRP * math.Pow(1-annualDepreciationRate, float64(age))
	value *= conditionFactor(in.Condition)

	excess := float64(in.Mileage) - float64(age)*expectedMilesPerYear
	if excess > 0 {
		if excess > mileagePenaltyCapMiles {
			excess = mileagePenaltyCapMiles
		}
		value *= 1 - maxMileagePenalty*(excess/mileagePenaltyCapMiles)
	}
	return value
}

// FairMonthlyLease computes the standard lease payment decomposition for the
// given price, residual, term and APR.  A non-positive term is an
// input-contract violation and is the only error this package returns.
func FairMonthlyLease(msrp, residualValue float64, termMonths int, apr float64) (*contract.ValuationResult, error) {
	if termMonths <= 0 {
		return nil, errors.New(errors.ErrCodeValuationInvalidTerm,
			fmt.Sprintf("term_months must be positive, got %d", termMonths))
	}

	moneyFactor := apr / moneyFactorDivisor
	depreciationFee := (msrp - residualValue) / float64(termMonths)
	financeFee := (msrp + residualValue) * moneyFactor

	return &contract.ValuationResult{
		ResidualValue:    residualValue,
		MoneyFactor:      moneyFactor,
		DepreciationFee:  depreciationFee,
		FinanceFee:       financeFee,
		FairMonthlyLease: depreciationFee + financeFee,
	}, nil
}

// ForContract derives a full ValuationResult from an extracted record,
// estimating the residual when the contract omits it.  Returns an
// input-contract error when the record lacks a usable price or term.
func ForContract(fields *contract.ContractFields, cond Condition, asOfYear int) (*contract.ValuationResult, error) {
	if fields == nil {
		return nil, errors.New(errors.ErrCodeValuationInput, "contract fields are required")
	}
	if fields.VehiclePrice == nil {
		return nil, errors.New(errors.ErrCodeValuationInput, "vehicle_price is required for valuation")
	}
	if fields.TermMonths == nil {
		return nil, errors.New(errors.ErrCodeValuationInput, "term_months is required for valuation")
	}

	residual := 0.0
	if fields.ResidualValue != nil {
		residual = *fields.ResidualValue
	} else {
		// Leased vehicles are typically new; with no model year extracted the
		// age term drops out and depreciation comes from mileage alone.
		year := asOfYear
		if year == 0 {
			year = time.Now().Year()
		}
		if fields.Year != nil {
			year = *fields.Year
		}
		mileage := 0
		if fields.MileageAllowancePerYear != nil && fields.TermMonths != nil {
			mileage = *fields.MileageAllowancePerYear * (*fields.TermMonths) / 12
		}
		residual = ResidualValue(ResidualInputs{
			MSRP:      *fields.VehiclePrice,
			ModelYear: year,
			Mileage:   mileage,
			Condition: cond,
			AsOfYear:  asOfYear,
		})
	}

	apr := 0.0
	if fields.APR != nil {
		apr = *fields.APR
	}
	return FairMonthlyLease(*fields.VehiclePrice, residual, *fields.TermMonths, apr)
}
