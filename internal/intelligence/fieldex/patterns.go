package fieldex

import (
	"regexp"

	"github.com/leaselens/leaselens/pkg/types/contract"
)

// fieldPattern is one candidate expression for a field.  Patterns for a field
// are tried in declaration order, most specific first, and the first match
// anywhere in the text wins; later candidates are never attempted.  Ordering
// is the tie-break policy: labelled expressions outrank bare numeric ones so
// a price is never mistaken for an APR.
type fieldPattern struct {
	re *regexp.Regexp

	// group is the submatch index holding the value; 0 means the whole match.
	group int

	// confidence of a match produced by this pattern.  Labelled patterns sit
	// at 0.8 or above, bare numeric patterns at 0.5 or below.
	confidence float64

	// perYear marks term patterns whose captured number is in years and must
	// be converted to months.
	perYear bool
}

const (
	// amount matches a currency value with optional symbol and thousands
	// separators; the separators are stripped before parsing.
	amount = `\$?\s*([\d][\d,]*(?:\.\d{1,2})?)`

	// percent matches a decimal percentage up to three integer digits so the
	// domain boundary of exactly 100 is reachable; the range check after
	// parsing rejects anything above it.  The leading boundary keeps the
	// digit class from matching the tail of a longer number.
	percent = `\b(\d{1,3}(?:\.\d+)?)\s*%`
)

// vinToken is the restricted VIN alphabet: 17 alphanumerics excluding I, O
// and Q.
var vinToken = regexp.MustCompile(`(?i)\b([A-HJ-NPR-Z0-9]{17})\b`)

// moneyPatterns maps each monetary field to its ordered candidate list.
// Iteration over this map is never relied upon for ordering; extraction walks
// moneyFieldOrder instead so reason and confidence assembly stay
// deterministic.
var moneyPatterns = map[contract.FieldName][]fieldPattern{
	contract.FieldMonthlyPayment: {
		{re: regexp.MustCompile(`(?i)monthly\s+(?:lease\s+)?payments?\s*(?:of|:|=|is|are)?\s*` + amount), group: 1, confidence: 0.95},
		{re: regexp.MustCompile(`(?i)` + amount + `\s*(?:per\s+month|/\s*mo(?:nth)?\b|a\s+month|monthly)`), group: 1, confidence: 0.85},
		{re: regexp.MustCompile(`(?i)payments?\s*(?:of|:|=)?\s*` + amount + `\s*(?:/|per\s+)mo`), group: 1, confidence: 0.8},
	},
	contract.FieldDownPayment: {
		{re: regexp.MustCompile(`(?i)down\s+payment\s*(?:of|:|=|is)?\s*` + amount), group: 1, confidence: 0.95},
		{re: regexp.MustCompile(`(?i)` + amount + `\s+(?:down|due\s+at\s+signing)`), group: 1, confidence: 0.85},
		{re: regexp.MustCompile(`(?i)cash\s+down\s*(?::|=)?\s*` + amount), group: 1, confidence: 0.8},
	},
	contract.FieldVehiclePrice: {
		{re: regexp.MustCompile(`(?i)(?:vehicle|sale|selling|purchase)\s+price\s*(?:of|:|=|is)?\s*` + amount), group: 1, confidence: 0.95},
		{re: regexp.MustCompile(`(?i)(?:MSRP|agreed[-\s]upon\s+value|capitalized\s+cost|cap\s+cost)\s*(?:of|:|=|is)?\s*` + amount), group: 1, confidence: 0.9},
		{re: regexp.MustCompile(`(?i)price[d]?\s*(?:at|:|=)\s*` + amount), group: 1, confidence: 0.8},
	},
	contract.FieldResidualValue: {
		{re: regexp.MustCompile(`(?i)residual\s+value\s*(?:of|:|=|is)?\s*` + amount), group: 1, confidence: 0.95},
		{re: regexp.MustCompile(`(?i)residual\s*(?::|=)\s*` + amount), group: 1, confidence: 0.85},
	},
	contract.FieldBuyoutPrice: {
		{re: regexp.MustCompile(`(?i)(?:buyout|buy-out|purchase\s+option)\s+(?:price|amount)?\s*(?:of|:|=|is)?\s*` + amount), group: 1, confidence: 0.9},
		{re: regexp.MustCompile(`(?i)option\s+to\s+purchase\s*(?:for|at|:)?\s*` + amount), group: 1, confidence: 0.85},
	},
	contract.FieldDocumentationFee: {
		{re: regexp.MustCompile(`(?i)doc(?:umentation)?\s+fee\s*(?:of|:|=|is)?\s*` + amount), group: 1, confidence: 0.95},
	},
	contract.FieldAcquisitionFee: {
		{re: regexp.MustCompile(`(?i)acquisition\s+fee\s*(?:of|:|=|is)?\s*` + amount), group: 1, confidence: 0.95},
		{re: regexp.MustCompile(`(?i)bank\s+fee\s*(?:of|:|=|is)?\s*` + amount), group: 1, confidence: 0.8},
	},
	contract.FieldExcessMileageFeePerMile: {
		{re: regexp.MustCompile(`(?i)excess(?:ive)?\s+mileage\s*(?:fee|charge)?\s*(?:of|:|=|is)?\s*` + amount + `\s*(?:per|/)\s*mile`), group: 1, confidence: 0.95},
		{re: regexp.MustCompile(`(?i)mileage\s+overage\s*(?:of|:|=)?\s*` + amount), group: 1, confidence: 0.8},
		{re: regexp.MustCompile(`(?i)` + amount + `\s*(?:per|/)\s*(?:excess\s+)?mile\b`), group: 1, confidence: 0.5},
	},
}

// moneyFieldOrder fixes the evaluation order of monetary fields so extraction
// output is deterministic.
var moneyFieldOrder = []contract.FieldName{
	contract.FieldMonthlyPayment,
	contract.FieldDownPayment,
	contract.FieldVehiclePrice,
	contract.FieldResidualValue,
	contract.FieldBuyoutPrice,
	contract.FieldDocumentationFee,
	contract.FieldAcquisitionFee,
	contract.FieldExcessMileageFeePerMile,
}

// aprPatterns: labelled APR expressions first, then a bare trailing-percent
// fallback with low confidence.
var aprPatterns = []fieldPattern{
	{re: regexp.MustCompile(`(?i)\bAPR\s*(?:of|:|=|is)?\s*` + percent), group: 1, confidence: 0.95},
	{re: regexp.MustCompile(`(?i)annual\s+percentage\s+rate\s*(?:of|:|=|is)?\s*` + percent), group: 1, confidence: 0.95},
	{re: regexp.MustCompile(`(?i)` + percent + `\s*APR\b`), group: 1, confidence: 0.9},
	{re: regexp.MustCompile(`(?i)interest\s+rate\s*(?:of|:|=|is)?\s*` + percent), group: 1, confidence: 0.85},
	{re: regexp.MustCompile(percent), group: 1, confidence: 0.4},
}

// termPatterns: labelled first; year units are converted to months on parse.
var termPatterns = []fieldPattern{
	{re: regexp.MustCompile(`(?i)(?:lease|loan|financing)?\s*term\s*(?:of|:|=|is)?\s*(\d{1,3})\s*(?:months?|mos?\.?)\b`), group: 1, confidence: 0.95},
	{re: regexp.MustCompile(`(?i)(?:lease|loan|financing)?\s*term\s*(?:of|:|=|is)?\s*(\d{1,2})\s*(?:years?|yrs?\.?)\b`), group: 1, confidence: 0.9, perYear: true},
	{re: regexp.MustCompile(`(?i)\b(\d{1,3})[-\s]*(?:months?|mos?\.?)\b`), group: 1, confidence: 0.5},
	{re: regexp.MustCompile(`(?i)\b(\d{1,2})[-\s]*(?:years?|yrs?\.?)\b`), group: 1, confidence: 0.45, perYear: true},
}

// mileagePatterns for the annual allowance.
var mileagePatterns = []fieldPattern{
	{re: regexp.MustCompile(`(?i)(?:annual\s+)?mileage\s+(?:allowance|limit)\s*(?:of|:|=|is)?\s*([\d,]+)`), group: 1, confidence: 0.95},
	{re: regexp.MustCompile(`(?i)([\d,]+)\s*miles?\s*(?:per|/|a)\s*year`), group: 1, confidence: 0.85},
	{re: regexp.MustCompile(`(?i)([\d,]+)\s*annual\s+miles?`), group: 1, confidence: 0.8},
}

// yearPatterns for the vehicle model year; the bare adjacent-to-make case is
// handled by the vocabulary matcher in vocab.go.
var yearPatterns = []fieldPattern{
	{re: regexp.MustCompile(`(?i)(?:model\s+)?year\s*[:=]\s*((?:19|20)\d{2})\b`), group: 1, confidence: 0.9},
}

// vinPatterns: a labelled VIN outranks a bare 17-character token.
var vinPatterns = []fieldPattern{
	{re: regexp.MustCompile(`(?i)VIN\s*(?:number|no\.?|#)?\s*[:=]?\s*([A-HJ-NPR-Z0-9]{17})\b`), group: 1, confidence: 0.95},
	{re: vinToken, group: 1, confidence: 0.5},
}

// clausePatterns flag the presence of punitive contract language.
var (
	earlyTerminationRe = regexp.MustCompile(`(?i)early\s+termination`)
	penaltyClauseRe    = regexp.MustCompile(`(?i)\bpenalt(?:y|ies)\b|liquidated\s+damages`)
)

// otherFeeRe collects labelled fee line items in document order.  Fees that
// belong to dedicated fields (documentation, acquisition, mileage) are
// filtered out after matching.
var otherFeeRe = regexp.MustCompile(`(?i)\b([A-Za-z][A-Za-z/ -]{2,40}?)\s+fee\s*(?:of|:|=|is)?\s*` + amount)
