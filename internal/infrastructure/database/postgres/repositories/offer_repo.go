// Package repositories provides the PostgreSQL-backed offer store.  Extracted
// fields, market context, valuation and assessment are stored as JSONB so the
// schema does not chase every new pattern-table field; queries that matter
// (vin, score, recency) go through expression indexes.
package repositories

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leaselens/leaselens/internal/infrastructure/monitoring/logging"
	"github.com/leaselens/leaselens/pkg/errors"
	"github.com/leaselens/leaselens/pkg/types/contract"
)

// OfferRepository persists analyzed offers.
type OfferRepository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewOfferRepository constructs an OfferRepository.
func NewOfferRepository(pool *pgxpool.Pool, logger logging.Logger) *OfferRepository {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &OfferRepository{pool: pool, logger: logger.Named("offer_repo")}
}

// Save inserts the offer, assigning an id and creation timestamp when absent.
// Offers are immutable; re-inserting an existing id is a conflict.
func (r *OfferRepository) Save(ctx context.Context, offer *contract.AnalyzedOffer) error {
	if offer == nil {
		return errors.InvalidParam("offer is required")
	}
	if offer.ID == "" {
		offer.ID = uuid.NewString()
	} else if _, err := uuid.Parse(offer.ID); err != nil {
		return errors.InvalidParam("offer id must be a UUID")
	}
	if offer.CreatedAt.IsZero() {
		offer.CreatedAt = time.Now().UTC()
	}

	fields, err := json.Marshal(offer.Fields)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "fields marshal failed")
	}
	market, err := marshalNullable(offer.Market)
	if err != nil {
		return err
	}
	valuation, err := marshalNullable(offer.Valuation)
	if err != nil {
		return err
	}
	assessment, err := json.Marshal(offer.Assessment)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "assessment marshal failed")
	}

	tag, err := r.pool.Exec(ctx, `
		INSERT INTO offers (id, vin, fields, market, valuation, assessment, document_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`,
		offer.ID, offer.VIN, fields, market, valuation, assessment, offer.DocumentKey, offer.CreatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "offer insert failed")
	}
	if tag.RowsAffected() == 0 {
		return errors.New(errors.ErrCodeOfferAlreadyExists, "offer already exists").
			WithDetail(offer.ID)
	}

	r.logger.Debug("offer saved", logging.String("id", offer.ID), logging.String("vin", offer.VIN))
	return nil
}

// GetByID loads one offer.
func (r *OfferRepository) GetByID(ctx context.Context, id string) (*contract.AnalyzedOffer, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errors.InvalidParam("offer id must be a UUID")
	}

	row := r.pool.QueryRow(ctx, `
		SELECT id, vin, fields, market, valuation, assessment, document_key, created_at
		FROM offers WHERE id = $1`, id)

	offer, err := scanOffer(row)
	if err == pgx.ErrNoRows {
		return nil, errors.New(errors.ErrCodeOfferNotFound, "offer not found").WithDetail(id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "offer query failed")
	}
	return offer, nil
}

// ListByVIN returns the offers recorded for a VIN, newest first.
func (r *OfferRepository) ListByVIN(ctx context.Context, vin string, limit int) ([]*contract.AnalyzedOffer, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, vin, fields, market, valuation, assessment, document_key, created_at
		FROM offers WHERE vin = $1
		ORDER BY created_at DESC LIMIT $2`, vin, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "offer query failed")
	}
	defer rows.Close()

	return collectOffers(rows)
}

// ListRecent returns the most recently analyzed offers.
func (r *OfferRepository) ListRecent(ctx context.Context, limit int) ([]*contract.AnalyzedOffer, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, vin, fields, market, valuation, assessment, document_key, created_at
		FROM offers ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "offer query failed")
	}
	defer rows.Close()

	return collectOffers(rows)
}

func collectOffers(rows pgx.Rows) ([]*contract.AnalyzedOffer, error) {
	var offers []*contract.AnalyzedOffer
	for rows.Next() {
		offer, err := scanOffer(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "offer scan failed")
		}
		offers = append(offers, offer)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "offer iteration failed")
	}
	return offers, nil
}

func scanOffer(row pgx.Row) (*contract.AnalyzedOffer, error) {
	var (
		offer      contract.AnalyzedOffer
		fields     []byte
		market     []byte
		valuation  []byte
		assessment []byte
	)
	if err := row.Scan(&offer.ID, &offer.VIN, &fields, &market, &valuation,
		&assessment, &offer.DocumentKey, &offer.CreatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(fields, &offer.Fields); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(assessment, &offer.Assessment); err != nil {
		return nil, err
	}
	if err := unmarshalNullable(market, &offer.Market); err != nil {
		return nil, err
	}
	if err := unmarshalNullable(valuation, &offer.Valuation); err != nil {
		return nil, err
	}
	return &offer, nil
}

// marshalNullable keeps absent sub-documents as SQL NULL instead of the JSON
// literal null.
func marshalNullable(v interface{}) ([]byte, error) {
	switch t := v.(type) {
	case *contract.MarketContext:
		if t == nil {
			return nil, nil
		}
	case *contract.ValuationResult:
		if t == nil {
			return nil, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "offer sub-document marshal failed")
	}
	return data, nil
}

func unmarshalNullable(data []byte, dest interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dest)
}
