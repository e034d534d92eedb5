// Package analysis orchestrates the full contract pipeline: raw text in,
// extracted fields, valuation, fairness assessment and persisted offer out,
// with an event published for downstream consumers.  The core packages stay
// pure; every stateful collaborator enters through an interface so the
// service owns sequencing, not storage.
package analysis

import (
	"context"
	"sync"
	"time"

	"github.com/leaselens/leaselens/internal/application/comparison"
	"github.com/leaselens/leaselens/internal/application/fairness"
	"github.com/leaselens/leaselens/internal/domain/valuation"
	"github.com/leaselens/leaselens/internal/infrastructure/messaging/kafka"
	"github.com/leaselens/leaselens/internal/infrastructure/monitoring/logging"
	"github.com/leaselens/leaselens/internal/infrastructure/monitoring/prometheus"
	"github.com/leaselens/leaselens/internal/intelligence/fieldex"
	"github.com/leaselens/leaselens/pkg/errors"
	"github.com/leaselens/leaselens/pkg/types/contract"
)

// OfferStore persists analyzed offers.  The PostgreSQL repository is the
// production implementation.
type OfferStore interface {
	Save(ctx context.Context, offer *contract.AnalyzedOffer) error
	GetByID(ctx context.Context, id string) (*contract.AnalyzedOffer, error)
	ListByVIN(ctx context.Context, vin string, limit int) ([]*contract.AnalyzedOffer, error)
}

// MarketProvider resolves market context for a VIN.  The Redis cache wrapping
// the external pricing collaborator is the production implementation.
type MarketProvider interface {
	MarketFor(ctx context.Context, vin string) (*contract.MarketContext, error)
}

// DocumentArchiver stores raw contract text and returns its object key.
type DocumentArchiver interface {
	Archive(ctx context.Context, rawText string) (string, error)
}

// EventPublisher announces completed analyses.
type EventPublisher interface {
	PublishAnalyzed(ctx context.Context, event kafka.ContractAnalyzedEvent) error
}

// Options carries the service's optional collaborators.  A nil collaborator
// disables that pipeline stage; the core extract-valuate-score path always
// runs.
type Options struct {
	Store     OfferStore
	Market    MarketProvider
	Documents DocumentArchiver
	Events    EventPublisher
	Metrics   *prometheus.Metrics

	// Concurrency bounds the AnalyzeBatch worker pool; values below 1 mean 4.
	Concurrency int

	// DefaultCondition is assumed for residual estimation when a request
	// carries none.
	DefaultCondition valuation.Condition
}

// Service runs the analysis pipeline.  Safe for concurrent use.
type Service struct {
	extractor  *fieldex.Extractor
	engine     *fairness.Engine
	comparator *comparison.Comparator
	opts       Options
	logger     logging.Logger
}

// NewService constructs the pipeline service.
func NewService(extractor *fieldex.Extractor, engine *fairness.Engine,
	comparator *comparison.Comparator, opts Options, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 4
	}
	if opts.DefaultCondition == "" {
		opts.DefaultCondition = valuation.ConditionGood
	}
	return &Service{
		extractor:  extractor,
		engine:     engine,
		comparator: comparator,
		opts:       opts,
		logger:     logger.Named("analysis"),
	}
}

// AnalyzeRequest is one pipeline input.
type AnalyzeRequest struct {
	RawText string

	// Condition overrides the service default for residual estimation.
	Condition valuation.Condition

	// Market, when set, bypasses the MarketProvider.
	Market *contract.MarketContext
}

// Analyze runs the full pipeline for one contract.  Extraction and scoring
// never fail; a missing valuation input leaves the valuation absent rather
// than aborting.  Only persistence failures surface as errors: an offer that
// cannot be saved was not analyzed as far as the caller is concerned.
func (s *Service) Analyze(ctx context.Context, req AnalyzeRequest) (*contract.AnalyzedOffer, error) {
	started := time.Now()

	fields := s.Extract(req.RawText)
	market := s.resolveMarket(ctx, req, fields.VIN)

	condition := req.Condition
	if condition == "" {
		condition = s.opts.DefaultCondition
	}
	val, err := valuation.ForContract(fields, condition, 0)
	if err != nil {
		if !errors.IsValidation(err) {
			s.observe("error", started)
			return nil, err
		}
		// Not enough extracted data to value the offer; scoring proceeds.
		s.logger.Debug("valuation skipped", logging.String("vin", fields.VIN), logging.Err(err))
		val = nil
	}

	assessment := s.Score(fields, market)

	offer := &contract.AnalyzedOffer{
		VIN:        fields.VIN,
		Fields:     fields,
		Market:     market,
		Valuation:  val,
		Assessment: assessment,
	}

	if s.opts.Documents != nil {
		key, err := s.opts.Documents.Archive(ctx, req.RawText)
		if err != nil {
			// The assessment is still valid without the archived original.
			s.logger.Warn("document archive failed", logging.Err(err))
		} else {
			offer.DocumentKey = key
			if s.opts.Metrics != nil {
				s.opts.Metrics.DocumentsArchived.Inc()
			}
		}
	}

	if s.opts.Store != nil {
		if err := s.opts.Store.Save(ctx, offer); err != nil {
			s.observe("error", started)
			return nil, err
		}
	}

	if s.opts.Events != nil {
		event := kafka.ContractAnalyzedEvent{
			OfferID:    offer.ID,
			VIN:        offer.VIN,
			Score:      assessment.Score,
			Rating:     assessment.Rating,
			AnalyzedAt: time.Now().UTC(),
		}
		if err := s.opts.Events.PublishAnalyzed(ctx, event); err != nil {
			s.logger.Warn("analyzed event publish failed",
				logging.String("offer_id", offer.ID), logging.Err(err))
		} else if s.opts.Metrics != nil {
			s.opts.Metrics.EventsPublished.WithLabelValues(kafka.TopicContractAnalyzed).Inc()
		}
	}

	s.observe("success", started)
	s.logger.Info("contract analyzed",
		logging.String("offer_id", offer.ID),
		logging.String("vin", offer.VIN),
		logging.Int("score", assessment.Score),
		logging.String("rating", string(assessment.Rating)))
	return offer, nil
}

// BatchResult pairs one batch slot with its outcome.
type BatchResult struct {
	Offer *contract.AnalyzedOffer
	Err   error
}

// AnalyzeBatch runs Analyze over independent requests with a bounded worker
// pool.  Results keep input order; a failed slot carries its error without
// affecting the others.
func (s *Service) AnalyzeBatch(ctx context.Context, reqs []AnalyzeRequest) []BatchResult {
	results := make([]BatchResult, len(reqs))
	if len(reqs) == 0 {
		return results
	}

	sem := make(chan struct{}, s.opts.Concurrency)
	var wg sync.WaitGroup
	for i, req := range reqs {
		wg.Add(1)
		go func(idx int, r AnalyzeRequest) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results[idx] = BatchResult{Err: errors.Wrap(ctx.Err(),
					errors.ErrCodeTimeout, "batch analysis cancelled")}
				return
			}
			defer func() { <-sem }()
			offer, err := s.Analyze(ctx, r)
			results[idx] = BatchResult{Offer: offer, Err: err}
		}(i, req)
	}
	wg.Wait()
	return results
}

// Extract runs the pattern extractor only.
func (s *Service) Extract(rawText string) *contract.ContractFields {
	started := time.Now()
	fields := s.extractor.Extract(rawText)
	if s.opts.Metrics != nil {
		s.opts.Metrics.ExtractionsTotal.Inc()
		s.opts.Metrics.ExtractionDuration.Observe(time.Since(started).Seconds())
		s.opts.Metrics.FieldsExtracted.Observe(float64(len(fields.Confidence)))
	}
	return fields
}

// Score runs the fairness engine only.
func (s *Service) Score(fields *contract.ContractFields, market *contract.MarketContext) *contract.FairnessAssessment {
	started := time.Now()
	assessment := s.engine.Score(fields, market)
	if s.opts.Metrics != nil {
		s.opts.Metrics.ScoresTotal.WithLabelValues(string(assessment.Rating)).Inc()
		s.opts.Metrics.ScoreValue.Observe(float64(assessment.Score))
		s.opts.Metrics.ScoreDuration.Observe(time.Since(started).Seconds())
	}
	return assessment
}

// Compare ranks previously analyzed offers by id.
func (s *Service) Compare(ctx context.Context, offerIDs []string) (*contract.ComparisonResult, error) {
	if s.opts.Store == nil {
		return nil, errors.New(errors.ErrCodeServiceUnavailable, "no offer store configured")
	}
	offers := make([]comparison.Offer, 0, len(offerIDs))
	for _, id := range offerIDs {
		stored, err := s.opts.Store.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		offers = append(offers, comparison.Offer{
			ID:        stored.ID,
			Fields:    stored.Fields,
			Valuation: stored.Valuation,
		})
	}
	return s.CompareOffers(offers)
}

// CompareOffers ranks already-loaded offers.
func (s *Service) CompareOffers(offers []comparison.Offer) (*contract.ComparisonResult, error) {
	result, err := s.comparator.Compare(offers)
	if err != nil {
		return nil, err
	}
	if s.opts.Metrics != nil {
		s.opts.Metrics.ComparisonsTotal.Inc()
		s.opts.Metrics.ComparisonSize.Observe(float64(len(offers)))
	}
	return result, nil
}

// GetOffer loads one stored offer.
func (s *Service) GetOffer(ctx context.Context, id string) (*contract.AnalyzedOffer, error) {
	if s.opts.Store == nil {
		return nil, errors.New(errors.ErrCodeServiceUnavailable, "no offer store configured")
	}
	return s.opts.Store.GetByID(ctx, id)
}

// resolveMarket returns the request's explicit market context, or asks the
// provider when the record carries a VIN.  Provider failures degrade to
// scoring without market data.
func (s *Service) resolveMarket(ctx context.Context, req AnalyzeRequest, vin string) *contract.MarketContext {
	if req.Market != nil {
		return req.Market
	}
	if s.opts.Market == nil || vin == "" {
		return nil
	}
	market, err := s.opts.Market.MarketFor(ctx, vin)
	if err != nil {
		s.logger.Warn("market context unavailable", logging.String("vin", vin), logging.Err(err))
		return nil
	}
	return market
}

func (s *Service) observe(outcome string, started time.Time) {
	if s.opts.Metrics != nil {
		s.opts.Metrics.ObserveAnalysis(outcome, time.Since(started))
	}
}
