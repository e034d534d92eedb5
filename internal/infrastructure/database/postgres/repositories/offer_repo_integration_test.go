//go:build integration

package repositories_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/leaselens/leaselens/internal/infrastructure/database/postgres/repositories"
	"github.com/leaselens/leaselens/pkg/errors"
	"github.com/leaselens/leaselens/pkg/types/contract"
)

const offersSchema = `
CREATE TABLE offers (
    id            UUID PRIMARY KEY,
    vin           TEXT NOT NULL DEFAULT '',
    fields        JSONB NOT NULL,
    market        JSONB,
    valuation     JSONB,
    assessment    JSONB NOT NULL,
    document_key  TEXT NOT NULL DEFAULT '',
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);`

func setupRepo(t *testing.T) *repositories.OfferRepository {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("leaselens_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, offersSchema)
	require.NoError(t, err)

	return repositories.NewOfferRepository(pool, nil)
}

func sampleOffer(vin string) *contract.AnalyzedOffer {
	return &contract.AnalyzedOffer{
		VIN: vin,
		Fields: &contract.ContractFields{
			VIN:        vin,
			APR:        contract.Float(18.5),
			TermMonths: contract.Int(36),
		},
		Market: &contract.MarketContext{ComparableAPR: contract.Float(6.5)},
		Valuation: &contract.ValuationResult{
			ResidualValue:    20000,
			FairMonthlyLease: 705.56,
			MoneyFactor:      0.0025,
		},
		Assessment: &contract.FairnessAssessment{
			Score:    60,
			RawScore: 60,
			Rating:   contract.RatingFair,
		},
		DocumentKey: "contracts/raw/abc",
	}
}

func TestOfferRepositoryRoundTrip(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	offer := sampleOffer("4T1G11AK5PU123456")
	require.NoError(t, repo.Save(ctx, offer))
	require.NotEmpty(t, offer.ID)
	require.False(t, offer.CreatedAt.IsZero())

	got, err := repo.GetByID(ctx, offer.ID)
	require.NoError(t, err)

	assert.Equal(t, offer.VIN, got.VIN)
	require.NotNil(t, got.Fields.APR)
	assert.InDelta(t, 18.5, *got.Fields.APR, 1e-9)
	require.NotNil(t, got.Market)
	assert.InDelta(t, 6.5, *got.Market.ComparableAPR, 1e-9)
	assert.Equal(t, 60, got.Assessment.Score)
	assert.Equal(t, contract.RatingFair, got.Assessment.Rating)
	assert.Equal(t, "contracts/raw/abc", got.DocumentKey)
}

func TestOfferRepositoryNullableSubDocuments(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	offer := sampleOffer("1HGCM82633A004352")
	offer.Market = nil
	offer.Valuation = nil
	require.NoError(t, repo.Save(ctx, offer))

	got, err := repo.GetByID(ctx, offer.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Market)
	assert.Nil(t, got.Valuation)
}

func TestOfferRepositoryDuplicateID(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	offer := sampleOffer("4T1G11AK5PU123456")
	require.NoError(t, repo.Save(ctx, offer))

	dup := sampleOffer("4T1G11AK5PU123456")
	dup.ID = offer.ID
	err := repo.Save(ctx, dup)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeOfferAlreadyExists))
}

func TestOfferRepositoryGetMissing(t *testing.T) {
	repo := setupRepo(t)

	_, err := repo.GetByID(context.Background(), "b9f6dc2e-0000-4000-8000-000000000000")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestOfferRepositoryListByVIN(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	const vin = "4T1G11AK5PU123456"
	first := sampleOffer(vin)
	first.CreatedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, repo.Save(ctx, first))

	second := sampleOffer(vin)
	require.NoError(t, repo.Save(ctx, second))

	other := sampleOffer("1HGCM82633A004352")
	require.NoError(t, repo.Save(ctx, other))

	offers, err := repo.ListByVIN(ctx, vin, 10)
	require.NoError(t, err)
	require.Len(t, offers, 2)
	assert.Equal(t, second.ID, offers[0].ID, "newest first")
	assert.Equal(t, first.ID, offers[1].ID)
}
