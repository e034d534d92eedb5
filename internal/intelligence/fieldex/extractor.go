// Package fieldex converts raw lease/loan contract text into the canonical
// ContractFields record.  Extraction is deterministic pattern matching over
// ordered rule tables; there is no model inference and no I/O.  Extraction
// never fails: a field whose patterns do not match, or whose matched value
// does not survive numeric validation, is simply left absent.
package fieldex

import (
	"context"
	"math"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/leaselens/leaselens/internal/infrastructure/monitoring/logging"
	"github.com/leaselens/leaselens/pkg/types/contract"
)

// Config holds tuneable extraction parameters.
type Config struct {
	// MaxTextLength truncates pathological inputs before matching.
	MaxTextLength int `mapstructure:"max_text_length"`

	// BatchConcurrency bounds the worker pool used by ExtractBatch.
	BatchConcurrency int `mapstructure:"batch_concurrency"`

	// MaxOtherFees caps the labelled fee line items collected per contract.
	MaxOtherFees int `mapstructure:"max_other_fees"`
}

// DefaultConfig returns production-ready defaults.
func DefaultConfig() Config {
	return Config{
		MaxTextLength:    500000,
		BatchConcurrency: 4,
		MaxOtherFees:     20,
	}
}

// Extractor is the pattern field extractor.  It is stateless and safe for
// concurrent use.
type Extractor struct {
	cfg    Config
	logger logging.Logger
}

// NewExtractor constructs an Extractor.  A nil logger is replaced by a nop
// implementation.
func NewExtractor(cfg Config, logger logging.Logger) *Extractor {
	if cfg.MaxTextLength <= 0 {
		cfg.MaxTextLength = DefaultConfig().MaxTextLength
	}
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = DefaultConfig().BatchConcurrency
	}
	if cfg.MaxOtherFees <= 0 {
		cfg.MaxOtherFees = DefaultConfig().MaxOtherFees
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Extractor{cfg: cfg, logger: logger.Named("fieldex")}
}

// Extract parses raw contract text into a ContractFields record.  Empty text
// yields an all-absent record.  Extract never returns an error; per-field
// parse failures leave the field absent.
func (e *Extractor) Extract(rawText string) *contract.ContractFields {
	fields := &contract.ContractFields{
		Confidence: make(map[contract.FieldName]float64),
	}
	if strings.TrimSpace(rawText) == "" {
		return fields
	}

	text := normalizeText(rawText)
	if len(text) > e.cfg.MaxTextLength {
		text = text[:e.cfg.MaxTextLength]
	}

	e.extractIdentity(text, fields)
	e.extractMoney(text, fields)
	e.extractAPR(text, fields)
	e.extractTerm(text, fields)
	e.extractMileage(text, fields)
	e.extractOtherFees(text, fields)
	e.extractFlags(text, fields)

	return fields
}

// ExtractBatch runs Extract over texts with a bounded worker pool.  Offers
// are independent, so results are deterministic per slot regardless of
// scheduling.  The context cancels remaining work; already-finished slots
// keep their records and cancelled slots hold empty records.
func (e *Extractor) ExtractBatch(ctx context.Context, texts []string) []*contract.ContractFields {
	results := make([]*contract.ContractFields, len(texts))
	if len(texts) == 0 {
		return results
	}

	sem := make(chan struct{}, e.cfg.BatchConcurrency)
	var wg sync.WaitGroup
	for i, txt := range texts {
		wg.Add(1)
		go func(idx int, t string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results[idx] = &contract.ContractFields{Confidence: map[contract.FieldName]float64{}}
				return
			}
			defer func() { <-sem }()
			results[idx] = e.Extract(t)
		}(i, txt)
	}
	wg.Wait()
	return results
}

// extractIdentity fills vin, make, model and year.
func (e *Extractor) extractIdentity(text string, fields *contract.ContractFields) {
	// VIN: first occurrence in document order; labelled pattern outranks the
	// bare 17-character token.
	for _, p := range vinPatterns {
		if m := p.re.FindStringSubmatch(text); m != nil {
			fields.VIN = strings.ToUpper(m[p.group])
			fields.Confidence[contract.FieldVIN] = p.confidence
			break
		}
	}

	mk := findMake(text)
	if mk == nil {
		return
	}
	fields.Make = mk.name
	fields.Confidence[contract.FieldMake] = 0.9

	if model := modelAfterMake(text, mk); model != "" {
		fields.Model = model
		fields.Confidence[contract.FieldModel] = 0.7
	}

	// Model year: labelled pattern first, then the "2023 Toyota" convention.
	for _, p := range yearPatterns {
		if m := p.re.FindStringSubmatch(text); m != nil {
			if year, err := strconv.Atoi(m[p.group]); err == nil {
				fields.Year = contract.Int(year)
				fields.Confidence[contract.FieldYear] = p.confidence
				return
			}
		}
	}
	if year, ok := yearBeforeMake(text, mk); ok {
		fields.Year = contract.Int(year)
		fields.Confidence[contract.FieldYear] = 0.5
	}
}

// extractMoney walks every monetary field's ordered pattern table.
func (e *Extractor) extractMoney(text string, fields *contract.ContractFields) {
	for _, name := range moneyFieldOrder {
		for _, p := range moneyPatterns[name] {
			m := p.re.FindStringSubmatch(text)
			if m == nil {
				continue
			}
			value, ok := parseAmount(m[p.group])
			if !ok {
				// Matched but unparseable: discard, never store a corrupt
				// value.  Later patterns are still skipped; the table's
				// first-match-wins contract is about match, not parse.
				break
			}
			e.setMoney(fields, name, value, p.confidence)
			break
		}
	}
}

func (e *Extractor) setMoney(fields *contract.ContractFields, name contract.FieldName, value float64, conf float64) {
	switch name {
	case contract.FieldMonthlyPayment:
		fields.MonthlyPayment = contract.Float(value)
	case contract.FieldDownPayment:
		fields.DownPayment = contract.Float(value)
	case contract.FieldVehiclePrice:
		fields.VehiclePrice = contract.Float(value)
	case contract.FieldResidualValue:
		fields.ResidualValue = contract.Float(value)
	case contract.FieldBuyoutPrice:
		fields.BuyoutPrice = contract.Float(value)
	case contract.FieldDocumentationFee:
		fields.DocumentationFee = contract.Float(value)
	case contract.FieldAcquisitionFee:
		fields.AcquisitionFee = contract.Float(value)
	case contract.FieldExcessMileageFeePerMile:
		fields.ExcessMileageFeePerMile = contract.Float(value)
	default:
		return
	}
	fields.Confidence[name] = conf
}

func (e *Extractor) extractAPR(text string, fields *contract.ContractFields) {
	for _, p := range aprPatterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		apr, err := strconv.ParseFloat(m[p.group], 64)
		if err != nil || math.IsNaN(apr) || math.IsInf(apr, 0) || apr < 0 || apr > 100 {
			break
		}
		fields.APR = contract.Float(apr)
		fields.Confidence[contract.FieldAPR] = p.confidence
		break
	}
}

func (e *Extractor) extractTerm(text string, fields *contract.ContractFields) {
	for _, p := range termPatterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[p.group])
		if err != nil || n <= 0 {
			break
		}
		if p.perYear {
			n *= 12
		}
		fields.TermMonths = contract.Int(n)
		fields.Confidence[contract.FieldTermMonths] = p.confidence
		break
	}
}

func (e *Extractor) extractMileage(text string, fields *contract.ContractFields) {
	for _, p := range mileagePatterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(strings.ReplaceAll(m[p.group], ",", ""))
		if err != nil || n <= 0 {
			break
		}
		fields.MileageAllowancePerYear = contract.Int(n)
		fields.Confidence[contract.FieldMileageAllowancePerYear] = p.confidence
		break
	}
}

// dedicatedFeeLabels are fee line items captured by their own fields and
// therefore excluded from other_fees.
var dedicatedFeeLabels = map[string]struct{}{
	"doc":           {},
	"documentation": {},
	"acquisition":   {},
	"bank":          {},
	"mileage":       {},
	"overage":       {},
}

func (e *Extractor) extractOtherFees(text string, fields *contract.ContractFields) {
	matches := otherFeeRe.FindAllStringSubmatch(text, -1)
	seen := make(map[string]struct{})
	for _, m := range matches {
		// The capture is greedy about leading prose ("a one-time disposition");
		// the trailing word is the fee's actual name.
		words := strings.Fields(strings.ToLower(m[1]))
		if len(words) == 0 {
			continue
		}
		label := words[len(words)-1]
		if _, dedicated := dedicatedFeeLabels[label]; dedicated {
			continue
		}
		if _, dup := seen[label]; dup {
			continue
		}
		value, ok := parseAmount(m[2])
		if !ok {
			continue
		}
		seen[label] = struct{}{}
		fields.OtherFees = append(fields.OtherFees, contract.OtherFee{Label: label, Amount: value})
		if len(fields.OtherFees) >= e.cfg.MaxOtherFees {
			break
		}
	}
	if len(fields.OtherFees) > 0 {
		fields.Confidence[contract.FieldOtherFees] = 0.8
	}
}

func (e *Extractor) extractFlags(text string, fields *contract.ContractFields) {
	if earlyTerminationRe.MatchString(text) {
		fields.HasEarlyTerminationClause = true
		fields.Confidence[contract.FieldEarlyTermination] = 0.9
	}
	if penaltyClauseRe.MatchString(text) {
		fields.HasPenaltyClause = true
		fields.Confidence[contract.FieldPenaltyClause] = 0.85
	}
}

// parseAmount strips currency symbols and thousands separators, then parses a
// non-negative finite decimal.  Returns false for anything else.
func parseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return v, true
}

// normalizeText applies Unicode NFC normalisation and collapses whitespace
// runs to single spaces so label patterns match across line breaks.
func normalizeText(text string) string {
	text = norm.NFC.String(text)
	var b strings.Builder
	b.Grow(len(text))
	prevSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !prevSpace {
				b.WriteRune(' ')
			}
			prevSpace = true
		} else {
			b.WriteRune(r)
			prevSpace = false
		}
	}
	return strings.TrimSpace(b.String())
}
