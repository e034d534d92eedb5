package fieldex

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leaselens/leaselens/pkg/types/contract"
)

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	return NewExtractor(DefaultConfig(), nil)
}

func TestExtractEmptyText(t *testing.T) {
	e := newTestExtractor(t)

	for _, text := range []string{"", "   ", "\n\t\n"} {
		fields := e.Extract(text)
		require.NotNil(t, fields)
		assert.Empty(t, fields.VIN)
		assert.Nil(t, fields.APR)
		assert.Nil(t, fields.TermMonths)
		assert.Empty(t, fields.Confidence)
	}
}

func TestExtractNeverPanics(t *testing.T) {
	e := newTestExtractor(t)

	inputs := []string{
		"%%%$$$,,,...",
		strings.Repeat("9", 10000),
		"APR: %",
		"monthly payment of $NaN",
		"term of 0 months",
		"\x00\x01\x02 binary garbage \xff",
		"ñÄñÄñ unicode 価格 ¥3,000,000",
	}
	for _, in := range inputs {
		require.NotPanics(t, func() { e.Extract(in) }, "input %q", in)
	}
}

func TestExtractLabeledContract(t *testing.T) {
	e := newTestExtractor(t)

	text := `Lease agreement for a 2023 Toyota Camry SE, VIN: 4T1G11AK5PU123456.
APR: 18.5%. Monthly payment of $389.99 for 36 months.
Down payment: $2,500. Vehicle price: $28,750.50.
Documentation fee: $650. Acquisition fee of $895.
Mileage allowance of 12,000 miles per year, $0.25 per excess mile.
A disposition fee of $395 applies. Early termination will incur penalties.`

	fields := e.Extract(text)

	require.NotNil(t, fields.APR)
	assert.InDelta(t, 18.5, *fields.APR, 1e-9)
	assert.GreaterOrEqual(t, fields.Confidence[contract.FieldAPR], 0.8, "labeled APR match")

	require.NotNil(t, fields.TermMonths)
	assert.Equal(t, 36, *fields.TermMonths)

	require.NotNil(t, fields.MonthlyPayment)
	assert.InDelta(t, 389.99, *fields.MonthlyPayment, 1e-9)

	require.NotNil(t, fields.DownPayment)
	assert.InDelta(t, 2500, *fields.DownPayment, 1e-9)

	require.NotNil(t, fields.VehiclePrice)
	assert.InDelta(t, 28750.50, *fields.VehiclePrice, 1e-9)

	require.NotNil(t, fields.DocumentationFee)
	assert.InDelta(t, 650, *fields.DocumentationFee, 1e-9)

	require.NotNil(t, fields.AcquisitionFee)
	assert.InDelta(t, 895, *fields.AcquisitionFee, 1e-9)

	require.NotNil(t, fields.MileageAllowancePerYear)
	assert.Equal(t, 12000, *fields.MileageAllowancePerYear)

	require.NotNil(t, fields.ExcessMileageFeePerMile)
	assert.InDelta(t, 0.25, *fields.ExcessMileageFeePerMile, 1e-9)

	assert.Equal(t, "4T1G11AK5PU123456", fields.VIN)
	assert.Equal(t, "Toyota", fields.Make)
	assert.Equal(t, "Camry SE", fields.Model)
	require.NotNil(t, fields.Year)
	assert.Equal(t, 2023, *fields.Year)

	require.Len(t, fields.OtherFees, 1)
	assert.Equal(t, "disposition", fields.OtherFees[0].Label)
	assert.InDelta(t, 395, fields.OtherFees[0].Amount, 1e-9)

	assert.True(t, fields.HasEarlyTerminationClause)
	assert.True(t, fields.HasPenaltyClause)
}

func TestExtractVINFirstOccurrenceWins(t *testing.T) {
	e := newTestExtractor(t)

	text := "Trade-in 1HGCM82633A004352 replaced by 5YJ3E1EA7KF317000."
	fields := e.Extract(text)
	assert.Equal(t, "1HGCM82633A004352", fields.VIN)
}

func TestExtractVINRejectsExcludedLetters(t *testing.T) {
	e := newTestExtractor(t)

	// Contains I, O and Q, so not a valid VIN token.
	fields := e.Extract("identifier IOQIOQIOQIOQIOQIO on file")
	assert.Empty(t, fields.VIN)
}

func TestExtractTermYearsConvertedToMonths(t *testing.T) {
	e := newTestExtractor(t)

	tests := []struct {
		text string
		want int
	}{
		{"lease term of 3 years", 36},
		{"term: 48 months", 48},
		{"financing over 5 yrs", 60},
		{"24-month agreement", 24},
	}
	for _, tt := range tests {
		fields := e.Extract(tt.text)
		require.NotNil(t, fields.TermMonths, "text %q", tt.text)
		assert.Equal(t, tt.want, *fields.TermMonths, "text %q", tt.text)
	}
}

func TestExtractLabeledOutranksBare(t *testing.T) {
	e := newTestExtractor(t)

	// The bare percentage appears first in the document, but the labeled APR
	// pattern is earlier in the table and must win.
	fields := e.Extract("Residual is 55% of MSRP. APR: 6.9% fixed.")
	require.NotNil(t, fields.APR)
	assert.InDelta(t, 6.9, *fields.APR, 1e-9)
	assert.GreaterOrEqual(t, fields.Confidence[contract.FieldAPR], 0.8)
}

func TestExtractBarePatternLowConfidence(t *testing.T) {
	e := newTestExtractor(t)

	fields := e.Extract("rate of just 4.9% this month")
	require.NotNil(t, fields.APR)
	assert.LessOrEqual(t, fields.Confidence[contract.FieldAPR], 0.5)
}

func TestExtractMoneyRejectsInvalid(t *testing.T) {
	e := newTestExtractor(t)

	// 180% cannot be an APR; the field must stay absent rather than hold a
	// corrupt value.
	fields := e.Extract("APR: 180%")
	assert.Nil(t, fields.APR)
}

func TestExtractAPRAcceptsUpperBound(t *testing.T) {
	e := newTestExtractor(t)

	// 100 is the last valid rate; anything above it is rejected by the range
	// check after parsing, not by the pattern failing to match.
	fields := e.Extract("APR: 100%")
	require.NotNil(t, fields.APR)
	assert.InDelta(t, 100, *fields.APR, 1e-9)

	fields = e.Extract("APR: 100.5%")
	assert.Nil(t, fields.APR)
}

func TestExtractBarePerMileLowConfidence(t *testing.T) {
	e := newTestExtractor(t)

	fields := e.Extract("charged $0.30 per mile over the allowance")
	require.NotNil(t, fields.ExcessMileageFeePerMile)
	assert.InDelta(t, 0.30, *fields.ExcessMileageFeePerMile, 1e-9)
	assert.LessOrEqual(t, fields.Confidence[contract.FieldExcessMileageFeePerMile], 0.5)

	fields = e.Extract("excess mileage fee of $0.30 per mile")
	require.NotNil(t, fields.ExcessMileageFeePerMile)
	assert.GreaterOrEqual(t, fields.Confidence[contract.FieldExcessMileageFeePerMile], 0.8)
}

func TestMakeVocabularyCoversEveryEntry(t *testing.T) {
	e := newTestExtractor(t)

	for _, name := range makeVocabulary {
		fields := e.Extract(name + " Alpha")
		assert.Equal(t, name, fields.Make, "make %q", name)
	}
}

func TestExtractModelTruncatedAtDelimiters(t *testing.T) {
	e := newTestExtractor(t)

	tests := []struct {
		text      string
		wantMake  string
		wantModel string
	}{
		{"2022 Honda Civic, well equipped", "Honda", "Civic"},
		{"Ford F-150 with towing package", "Ford", "F-150"},
		{"new Chevrolet Silverado 1500 LT trim and more", "Chevrolet", "Silverado"},
	}
	for _, tt := range tests {
		fields := e.Extract(tt.text)
		assert.Equal(t, tt.wantMake, fields.Make, "text %q", tt.text)
		assert.Equal(t, tt.wantModel, fields.Model, "text %q", tt.text)
	}
}

func TestExtractMultiWordMakePreferred(t *testing.T) {
	e := newTestExtractor(t)

	fields := e.Extract("a Land Rover Defender, lease terms below")
	assert.Equal(t, "Land Rover", fields.Make)
	assert.Equal(t, "Defender", fields.Model)
}

func TestExtractWhitespaceNormalization(t *testing.T) {
	e := newTestExtractor(t)

	// Label and value split across a line break still match.
	fields := e.Extract("monthly payment\n   of $412.00")
	require.NotNil(t, fields.MonthlyPayment)
	assert.InDelta(t, 412, *fields.MonthlyPayment, 1e-9)
}

func TestExtractBatch(t *testing.T) {
	e := newTestExtractor(t)

	texts := []string{
		"APR: 5.5%",
		"",
		"term of 2 years",
	}
	results := e.ExtractBatch(context.Background(), texts)
	require.Len(t, results, 3)

	require.NotNil(t, results[0].APR)
	assert.InDelta(t, 5.5, *results[0].APR, 1e-9)
	assert.Nil(t, results[1].APR)
	require.NotNil(t, results[2].TermMonths)
	assert.Equal(t, 24, *results[2].TermMonths)
}

func TestExtractDeterministic(t *testing.T) {
	e := newTestExtractor(t)

	text := "APR: 9.9%, doc fee $300, 48 months, 2021 Kia Sorento, $310 per month"
	first := e.Extract(text)
	second := e.Extract(text)
	assert.Equal(t, first, second)
}
