// Package comparison ranks scored offers against each other.  Metrics are
// min-max normalized across the batch, blended with fixed weights, and the
// offers sorted descending by composite score.  The comparator holds no
// state; each call is a pure function of its inputs.
package comparison

import (
	"fmt"
	"math"
	"sort"

	"github.com/leaselens/leaselens/internal/infrastructure/monitoring/logging"
	"github.com/leaselens/leaselens/pkg/errors"
	"github.com/leaselens/leaselens/pkg/types/contract"
)

// Metric names used in RankedOffer.Metrics.
const (
	MetricMonthlyLease  = "fair_monthly_lease"
	MetricResidualValue = "residual_value"
	MetricAPR           = "apr"
)

// Weights is the composite blend.  The two stabilizing constants keep the
// total weight at 1.0 even though only three metrics vary, so composite
// scores cluster less extremely than the raw three-metric sum would.  The
// values are carried forward as given; no further meaning is implied.
type Weights struct {
	MonthlyLease  float64 `mapstructure:"monthly_lease"`
	ResidualValue float64 `mapstructure:"residual_value"`
	APR           float64 `mapstructure:"apr"`
	TermStability float64 `mapstructure:"term_stability"`
	MSRPStability float64 `mapstructure:"msrp_stability"`
}

// DefaultWeights returns the standard blend.
func DefaultWeights() Weights {
	return Weights{
		MonthlyLease:  0.40,
		ResidualValue: 0.30,
		APR:           0.15,
		TermStability: 0.10,
		MSRPStability: 0.05,
	}
}

// Offer is one comparator input: the extracted record and its valuation.
// ID is optional; unlabelled offers are identified by their input position.
type Offer struct {
	ID        string
	Fields    *contract.ContractFields
	Valuation *contract.ValuationResult
}

// Comparator ranks batches of offers.
type Comparator struct {
	weights Weights
	logger  logging.Logger
}

// NewComparator constructs a Comparator.
func NewComparator(w Weights, logger logging.Logger) *Comparator {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Comparator{weights: w, logger: logger.Named("comparison")}
}

// Compare ranks the offers descending by composite score.  Fewer than two
// offers is an input-contract violation: a single offer has nothing to be
// compared against, so no degenerate one-element ranking is produced.
func (c *Comparator) Compare(offers []Offer) (*contract.ComparisonResult, error) {
	if len(offers) < 2 {
		return nil, errors.Newf(errors.ErrCodeComparisonTooFewOffers,
			"comparison requires at least 2 offers, got %d", len(offers))
	}
	for i, o := range offers {
		if o.Valuation == nil {
			return nil, errors.Newf(errors.ErrCodeComparisonInput, "offer %d has no valuation", i)
		}
	}

	leases := make([]float64, len(offers))
	residuals := make([]float64, len(offers))
	aprs := make([]float64, len(offers))
	for i, o := range offers {
		leases[i] = o.Valuation.FairMonthlyLease
		residuals[i] = o.Valuation.ResidualValue
		aprs[i] = aprOf(o, offers)
	}

	// Lower is better for lease payment and APR, higher for residual value.
	normLease := normalize(leases, true)
	normResidual := normalize(residuals, false)
	normAPR := normalize(aprs, true)

	ranked := make([]contract.RankedOffer, len(offers))
	for i, o := range offers {
		composite := c.weights.MonthlyLease*normLease[i] +
			c.weights.ResidualValue*normResidual[i] +
			c.weights.APR*normAPR[i] +
			c.weights.TermStability +
			c.weights.MSRPStability

		id := o.ID
		if id == "" {
			id = fmt.Sprintf("offer-%d", i+1)
		}
		ranked[i] = contract.RankedOffer{
			OfferID:        id,
			CompositeScore: round2(composite * 100),
			Metrics: map[string]float64{
				MetricMonthlyLease:  normLease[i],
				MetricResidualValue: normResidual[i],
				MetricAPR:           normAPR[i],
			},
		}
	}

	// Stable sort: ties keep input order.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].CompositeScore > ranked[j].CompositeScore
	})

	return &contract.ComparisonResult{
		Rankings:  ranked,
		BestOffer: ranked[0],
	}, nil
}

// aprOf resolves an offer's APR metric.  An offer without an extracted APR is
// assigned the batch maximum so missing data never ranks as the cheapest
// financing; when no offer carries an APR the metric degenerates and
// normalize treats the batch as tied.
func aprOf(o Offer, offers []Offer) float64 {
	if o.Fields != nil && o.Fields.APR != nil {
		return *o.Fields.APR
	}
	maxAPR := 0.0
	for _, other := range offers {
		if other.Fields != nil && other.Fields.APR != nil && *other.Fields.APR > maxAPR {
			maxAPR = *other.Fields.APR
		}
	}
	return maxAPR
}

// normalize min-max scales values to [0,1].  With reversed=true a lower raw
// value maps to a higher normalized score.  A degenerate batch (max == min)
// carries no discriminating signal and normalizes to 1.0 for every offer:
// tied-best rather than a division by zero.
func normalize(values []float64, reversed bool) []float64 {
	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	out := make([]float64, len(values))
	if max == min {
		for i := range out {
			out[i] = 1.0
		}
		return out
	}
	for i, v := range values {
		n := (v - min) / (max - min)
		if reversed {
			n = 1 - n
		}
		out[i] = n
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
