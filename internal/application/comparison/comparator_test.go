package comparison

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leaselens/leaselens/pkg/errors"
	"github.com/leaselens/leaselens/pkg/types/contract"
)

func newTestComparator(t *testing.T) *Comparator {
	t.Helper()
	return NewComparator(DefaultWeights(), nil)
}

func offer(id string, apr, lease, residual float64) Offer {
	return Offer{
		ID:     id,
		Fields: &contract.ContractFields{APR: contract.Float(apr)},
		Valuation: &contract.ValuationResult{
			FairMonthlyLease: lease,
			ResidualValue:    residual,
		},
	}
}

func TestCompareTooFewOffers(t *testing.T) {
	c := newTestComparator(t)

	for _, offers := range [][]Offer{nil, {}, {offer("only", 5, 400, 20000)}} {
		got, err := c.Compare(offers)
		assert.Nil(t, got)
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrCodeComparisonTooFewOffers))
	}
}

func TestCompareMissingValuation(t *testing.T) {
	c := newTestComparator(t)

	offers := []Offer{
		offer("a", 5, 400, 20000),
		{ID: "b", Fields: &contract.ContractFields{}},
	}
	got, err := c.Compare(offers)
	assert.Nil(t, got)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeComparisonInput))
}

func TestCompareDominantOfferWins(t *testing.T) {
	c := newTestComparator(t)

	// Offer a is better on every metric: cheaper lease, higher residual,
	// lower APR.
	offers := []Offer{
		offer("b", 8, 500, 20000),
		offer("a", 5, 400, 22000),
	}
	got, err := c.Compare(offers)
	require.NoError(t, err)

	require.Len(t, got.Rankings, 2)
	assert.Equal(t, "a", got.Rankings[0].OfferID)
	assert.Equal(t, "b", got.Rankings[1].OfferID)
	assert.Equal(t, got.Rankings[0], got.BestOffer)

	// The dominant offer normalizes to 1.0 on all three metrics; with the
	// stabilizing constants its composite is exactly 100.  The dominated
	// offer keeps only the constants.
	assert.InDelta(t, 100.0, got.Rankings[0].CompositeScore, 1e-9)
	assert.InDelta(t, 15.0, got.Rankings[1].CompositeScore, 1e-9)

	assert.InDelta(t, 1.0, got.Rankings[0].Metrics[MetricMonthlyLease], 1e-9)
	assert.InDelta(t, 1.0, got.Rankings[0].Metrics[MetricResidualValue], 1e-9)
	assert.InDelta(t, 1.0, got.Rankings[0].Metrics[MetricAPR], 1e-9)
	assert.InDelta(t, 0.0, got.Rankings[1].Metrics[MetricMonthlyLease], 1e-9)
}

func TestCompareSortedDescending(t *testing.T) {
	c := newTestComparator(t)

	offers := []Offer{
		offer("mid", 6, 450, 21000),
		offer("best", 4, 380, 23000),
		offer("worst", 9, 520, 19000),
	}
	got, err := c.Compare(offers)
	require.NoError(t, err)

	require.Len(t, got.Rankings, 3)
	for i := 1; i < len(got.Rankings); i++ {
		assert.GreaterOrEqual(t,
			got.Rankings[i-1].CompositeScore, got.Rankings[i].CompositeScore)
	}
	assert.Equal(t, "best", got.BestOffer.OfferID)
	assert.Equal(t, "worst", got.Rankings[2].OfferID)
}

func TestCompareDegenerateBatch(t *testing.T) {
	c := newTestComparator(t)

	// Identical metrics across the batch: every offer normalizes to 1.0 and
	// composites are equal, with input order preserved by the stable sort.
	offers := []Offer{
		offer("first", 6, 450, 21000),
		offer("second", 6, 450, 21000),
		offer("third", 6, 450, 21000),
	}
	got, err := c.Compare(offers)
	require.NoError(t, err)

	require.Len(t, got.Rankings, 3)
	assert.Equal(t, "first", got.Rankings[0].OfferID)
	assert.Equal(t, "second", got.Rankings[1].OfferID)
	assert.Equal(t, "third", got.Rankings[2].OfferID)
	for _, r := range got.Rankings {
		assert.InDelta(t, 100.0, r.CompositeScore, 1e-9)
		assert.InDelta(t, 1.0, r.Metrics[MetricAPR], 1e-9)
	}
}

func TestCompareLowerIsBetterReversed(t *testing.T) {
	c := newTestComparator(t)

	// Residuals tie, so ranking is driven by lease payment and APR where
	// LOWER raw values must map to HIGHER normalized scores.
	offers := []Offer{
		offer("pricey", 9, 600, 21000),
		offer("cheap", 3, 350, 21000),
	}
	got, err := c.Compare(offers)
	require.NoError(t, err)

	assert.Equal(t, "cheap", got.BestOffer.OfferID)
	assert.InDelta(t, 1.0, got.BestOffer.Metrics[MetricMonthlyLease], 1e-9)
	assert.InDelta(t, 1.0, got.BestOffer.Metrics[MetricAPR], 1e-9)
}

func TestCompareMissingAPRGetsBatchWorst(t *testing.T) {
	c := newTestComparator(t)

	noAPR := Offer{
		ID:     "unknown-apr",
		Fields: &contract.ContractFields{},
		Valuation: &contract.ValuationResult{
			FairMonthlyLease: 450,
			ResidualValue:    21000,
		},
	}
	offers := []Offer{
		offer("known", 7, 450, 21000),
		noAPR,
	}
	got, err := c.Compare(offers)
	require.NoError(t, err)

	// The offer with no extracted APR is assigned the batch maximum, so it
	// never outranks an identical offer whose rate is known.
	require.Len(t, got.Rankings, 2)
	assert.Equal(t, got.Rankings[0].CompositeScore, got.Rankings[1].CompositeScore)
	assert.Equal(t, "known", got.Rankings[0].OfferID)
}

func TestCompareGeneratedIDs(t *testing.T) {
	c := newTestComparator(t)

	offers := []Offer{
		offer("", 5, 400, 22000),
		offer("", 8, 500, 20000),
	}
	got, err := c.Compare(offers)
	require.NoError(t, err)

	assert.Equal(t, "offer-1", got.Rankings[0].OfferID)
	assert.Equal(t, "offer-2", got.Rankings[1].OfferID)
}

func TestCompareScoresRounded(t *testing.T) {
	c := newTestComparator(t)

	offers := []Offer{
		offer("a", 5.3, 411.77, 21345),
		offer("b", 6.1, 436.19, 20997),
		offer("c", 7.9, 472.03, 19850),
	}
	got, err := c.Compare(offers)
	require.NoError(t, err)

	for _, r := range got.Rankings {
		scaled := r.CompositeScore * 100
		assert.InDelta(t, scaled, float64(int64(scaled+0.5)), 1e-6,
			"offer %s score %v has more than 2 decimals", r.OfferID, r.CompositeScore)
	}
}
