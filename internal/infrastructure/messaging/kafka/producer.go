package kafka

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/leaselens/leaselens/internal/config"
	"github.com/leaselens/leaselens/internal/infrastructure/monitoring/logging"
	"github.com/leaselens/leaselens/pkg/errors"
	"github.com/leaselens/leaselens/pkg/types/contract"
)

// ErrProducerClosed is returned by Publish after Close.
var ErrProducerClosed = errors.New(errors.ErrCodeInternal, "kafka producer is closed")

// ContractAnalyzedEvent is the payload of TopicContractAnalyzed.
type ContractAnalyzedEvent struct {
	OfferID    string          `json:"offer_id"`
	VIN        string          `json:"vin"`
	Score      int             `json:"score"`
	Rating     contract.Rating `json:"rating"`
	AnalyzedAt time.Time       `json:"analyzed_at"`
}

// writerInterface abstracts kafka.Writer for testing.
type writerInterface interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes analysis events.  Safe for concurrent use.
type Producer struct {
	writer writerInterface
	logger logging.Logger
	closed atomic.Bool
}

// NewProducer builds a producer from the platform Kafka config.
func NewProducer(cfg config.KafkaConfig, logger logging.Logger) *Producer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		MaxAttempts:  cfg.ProducerRetries,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
		Async:        cfg.Async,
	}
	return &Producer{writer: writer, logger: logger.Named("kafka")}
}

// newProducerWithWriter is the test seam.
func newProducerWithWriter(w writerInterface, logger logging.Logger) *Producer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Producer{writer: w, logger: logger.Named("kafka")}
}

// PublishAnalyzed publishes a contract.analyzed event, keyed by offer id so
// per-offer ordering is preserved across partitions.
func (p *Producer) PublishAnalyzed(ctx context.Context, event ContractAnalyzedEvent) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}
	if event.AnalyzedAt.IsZero() {
		event.AnalyzedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "analyzed event marshal failed")
	}

	msg := kafka.Message{
		Topic: TopicContractAnalyzed,
		Key:   []byte(event.OfferID),
		Value: payload,
		Time:  event.AnalyzedAt,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "analyzed event publish failed")
	}

	p.logger.Debug("analyzed event published",
		logging.String("offer_id", event.OfferID),
		logging.Int("score", event.Score))
	return nil
}

// Close flushes pending messages and shuts the writer down.  Subsequent
// Publish calls fail with ErrProducerClosed.
func (p *Producer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	return p.writer.Close()
}
