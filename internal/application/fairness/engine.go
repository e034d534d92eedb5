// Package fairness converts an extracted ContractFields record, plus
// externally supplied market data, into a 0–100 fairness score with an
// ordered audit trail of reasons.  The engine is a weighted deduction rule
// table: scoring starts at 100, every applicable rule subtracts points, and
// the cumulative score is clamped to [0,100] only at the end so aggregate
// over-application stays visible in RawScore.
package fairness

import (
	"fmt"

	"github.com/leaselens/leaselens/internal/infrastructure/monitoring/logging"
	"github.com/leaselens/leaselens/pkg/types/contract"
)

const baseScore = 100

// Engine scores contracts against a fixed, ordered rule table.  It is
// stateless and safe for concurrent use.
type Engine struct {
	thresholds Thresholds
	logger     logging.Logger
}

// NewEngine constructs a scoring engine.  Zero-value threshold sections are
// not patched individually; pass DefaultThresholds() unless the deployment
// overrides the policy wholesale.
func NewEngine(t Thresholds, logger logging.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Engine{thresholds: t, logger: logger.Named("fairness")}
}

// Score evaluates the rule table in fixed order and returns the assessment.
// Rules whose inputs are absent are skipped silently; they neither penalise
// nor credit.  A record with no populated fields therefore scores 100 with
// rating Excellent and no reasons: "nothing negative detected", not
// "verified fair".  Score never fails and is deterministic: identical inputs
// produce identical scores and identical reason ordering.
func (e *Engine) Score(fields *contract.ContractFields, market *contract.MarketContext) *contract.FairnessAssessment {
	if fields == nil {
		fields = &contract.ContractFields{}
	}

	var reasons []contract.Reason
	total := 0
	for _, r := range ruleTable {
		fired, ok := r.eval(fields, market, e.thresholds)
		if !ok {
			continue
		}
		for _, reason := range fired {
			total += reason.Delta
			reasons = append(reasons, reason)
		}
	}

	raw := baseScore + total
	score := raw
	if score < 0 {
		score = 0
	} else if score > 100 {
		score = 100
	}

	// The qualitative headline is derived from the final clamped score and
	// prepended so it reads first in the audit trail.  A clean sweep (no rule
	// fired) keeps the reasons list empty.
	if len(reasons) > 0 {
		headline := contract.Reason{
			Factor: "overall",
			Text:   fmt.Sprintf("%s (score %d/100)", headlineFor(score), score),
		}
		reasons = append([]contract.Reason{headline}, reasons...)
	}

	return &contract.FairnessAssessment{
		Score:    score,
		RawScore: raw,
		Rating:   ratingFor(score),
		Reasons:  reasons,
	}
}

// headlineFor maps the clamped score to the qualitative summary line.
func headlineFor(score int) string {
	switch {
	case score >= 85:
		return "excellent terms overall"
	case score >= 70:
		return "good terms overall"
	case score >= 55:
		return "average terms with room to negotiate"
	case score >= 40:
		return "below-average terms, negotiate before signing"
	default:
		return "poor terms, significant red flags"
	}
}

// ratingFor maps the clamped score to its rating band.
func ratingFor(score int) contract.Rating {
	switch {
	case score >= 85:
		return contract.RatingExcellent
	case score >= 70:
		return contract.RatingGood
	case score >= 55:
		return contract.RatingFair
	default:
		return contract.RatingPoor
	}
}
