package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	err := New(ErrCodeOfferNotFound, "offer not found")
	assert.Equal(t, "[OFR_001] offer not found", err.Error())

	withDetail := err.WithDetail("id 8f1c")
	assert.Equal(t, "[OFR_001] offer not found: id 8f1c", withDetail.Error())
	// WithDetail clones; the original is untouched.
	assert.Empty(t, err.Detail)
}

func TestNewCapturesStack(t *testing.T) {
	err := New(ErrCodeInternal, "boom")
	assert.Contains(t, err.Stack, "TestNewCapturesStack")
}

func TestNewf(t *testing.T) {
	err := Newf(ErrCodeValidation, "term_months must be positive, got %d", -3)
	assert.Equal(t, "[COMMON_008] term_months must be positive, got -3", err.Error())
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeDatabaseError, "save offer"))
}

func TestWrapChainsAndPreservesCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(cause, ErrCodeDatabaseError, "save offer")

	assert.Equal(t, "[COMMON_010] save offer", err.Error())
	assert.True(t, stderrors.Is(err, cause))
}

func TestWrapUnknownCodeAdoptsInner(t *testing.T) {
	inner := New(ErrCodeOfferNotFound, "offer not found")
	wrapped := Wrap(fmt.Errorf("loading: %w", inner), CodeUnknown, "compare failed")

	assert.Equal(t, ErrCodeOfferNotFound, wrapped.Code)
}

func TestIsCodeTraversesChain(t *testing.T) {
	inner := New(ErrCodeComparisonTooFewOffers, "need at least two offers")
	outer := Wrap(inner, ErrCodeBadRequest, "invalid comparison request")

	assert.True(t, IsCode(outer, ErrCodeComparisonTooFewOffers))
	assert.True(t, IsCode(outer, ErrCodeBadRequest))
	assert.False(t, IsCode(outer, ErrCodeTimeout))
	assert.False(t, IsCode(nil, ErrCodeBadRequest))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(New(ErrCodeNotFound, "x")))
	assert.True(t, IsNotFound(New(ErrCodeOfferNotFound, "x")))
	assert.True(t, IsNotFound(fmt.Errorf("outer: %w", New(ErrCodeOfferNotFound, "x"))))
	assert.False(t, IsNotFound(New(ErrCodeConflict, "x")))
	assert.False(t, IsNotFound(stderrors.New("plain")))
	assert.False(t, IsNotFound(nil))
}

func TestIsValidation(t *testing.T) {
	for _, code := range []ErrorCode{
		ErrCodeValidation, ErrCodeBadRequest,
		ErrCodeValuationInvalidTerm, ErrCodeValuationInput,
		ErrCodeComparisonTooFewOffers, ErrCodeComparisonInput,
	} {
		assert.True(t, IsValidation(New(code, "x")), "code %s", code)
	}
	assert.False(t, IsValidation(New(ErrCodeDatabaseError, "x")))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, CodeOK, GetCode(nil))
	assert.Equal(t, CodeUnknown, GetCode(stderrors.New("plain")))
	assert.Equal(t, ErrCodeCacheError, GetCode(New(ErrCodeCacheError, "x")))
	assert.Equal(t, ErrCodeCacheError, GetCode(fmt.Errorf("outer: %w", New(ErrCodeCacheError, "x"))))
}

func TestAsAppError(t *testing.T) {
	inner := New(ErrCodeTimeout, "deadline exceeded")
	require.Same(t, inner, AsAppError(fmt.Errorf("outer: %w", inner)))
	assert.Nil(t, AsAppError(stderrors.New("plain")))
	assert.Nil(t, AsAppError(nil))
}

func TestFactoryHelpers(t *testing.T) {
	assert.Equal(t, ErrCodeNotFound, NotFound("x").Code)
	assert.Equal(t, ErrCodeBadRequest, InvalidParam("x").Code)
	assert.Equal(t, ErrCodeValidation, Validation("x").Code)
	assert.Equal(t, ErrCodeInternal, Internal("x").Code)
	assert.Equal(t, ErrCodeConflict, Conflict("x").Code)
}

func TestHTTPStatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, ErrCodeOfferNotFound.HTTPStatus())
	assert.Equal(t, http.StatusConflict, ErrCodeOfferAlreadyExists.HTTPStatus())
	assert.Equal(t, http.StatusBadRequest, ErrCodeComparisonTooFewOffers.HTTPStatus())
	assert.Equal(t, http.StatusGatewayTimeout, ErrCodeTimeout.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, CodeUnknown.HTTPStatus(), "unmapped falls back to 500")
}

func TestNilReceiverSafety(t *testing.T) {
	var ae *AppError
	assert.Nil(t, ae.WithDetail("x"))
	assert.Nil(t, ae.WithCause(stderrors.New("y")))
}
