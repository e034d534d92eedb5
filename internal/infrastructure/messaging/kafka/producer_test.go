package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leaselens/leaselens/pkg/types/contract"
)

type fakeWriter struct {
	messages []kafkago.Message
	writeErr error
	closed   bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestPublishAnalyzed(t *testing.T) {
	w := &fakeWriter{}
	p := newProducerWithWriter(w, nil)

	event := ContractAnalyzedEvent{
		OfferID: "7b6c2b1a-0000-4000-8000-000000000001",
		VIN:     "4T1G11AK5PU123456",
		Score:   60,
		Rating:  contract.RatingFair,
	}
	require.NoError(t, p.PublishAnalyzed(context.Background(), event))

	require.Len(t, w.messages, 1)
	msg := w.messages[0]
	assert.Equal(t, TopicContractAnalyzed, msg.Topic)
	assert.Equal(t, []byte(event.OfferID), msg.Key)

	var got ContractAnalyzedEvent
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, event.OfferID, got.OfferID)
	assert.Equal(t, 60, got.Score)
	assert.False(t, got.AnalyzedAt.IsZero(), "timestamp is stamped when absent")
}

func TestPublishAnalyzedKeepsExplicitTimestamp(t *testing.T) {
	w := &fakeWriter{}
	p := newProducerWithWriter(w, nil)

	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, p.PublishAnalyzed(context.Background(), ContractAnalyzedEvent{
		OfferID:    "offer-1",
		AnalyzedAt: at,
	}))

	require.Len(t, w.messages, 1)
	assert.Equal(t, at, w.messages[0].Time)
}

func TestPublishAnalyzedWriteError(t *testing.T) {
	w := &fakeWriter{writeErr: errors.New("broker unreachable")}
	p := newProducerWithWriter(w, nil)

	err := p.PublishAnalyzed(context.Background(), ContractAnalyzedEvent{OfferID: "offer-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish failed")
}

func TestProducerClose(t *testing.T) {
	w := &fakeWriter{}
	p := newProducerWithWriter(w, nil)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)

	// Idempotent close, and publishing after close fails fast.
	require.NoError(t, p.Close())
	err := p.PublishAnalyzed(context.Background(), ContractAnalyzedEvent{OfferID: "offer-1"})
	assert.ErrorIs(t, err, ErrProducerClosed)
}
