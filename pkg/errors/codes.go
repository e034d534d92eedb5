package errors

import (
	"net/http"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes shared by every layer.
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_003"
	ErrCodeConflict           ErrorCode = "COMMON_004"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_005"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_006"
	ErrCodeTimeout            ErrorCode = "COMMON_007"
	ErrCodeValidation         ErrorCode = "COMMON_008"
	ErrCodeSerialization      ErrorCode = "COMMON_009"
	ErrCodeDatabaseError      ErrorCode = "COMMON_010"
	ErrCodeCacheError         ErrorCode = "COMMON_011"
	ErrCodeExternalService    ErrorCode = "COMMON_012"
)

// Extraction module error codes.  Field-level parse failures are never
// surfaced as errors (the field is simply left absent); these codes cover
// structural misuse of the extractor API only.
const (
	ErrCodeExtractionInput ErrorCode = "EXT_001"
	ErrCodeExtractionBatch ErrorCode = "EXT_002"
)

// Scoring module error codes.
const (
	ErrCodeScoringInput ErrorCode = "SCR_001"
)

// Valuation module error codes.
const (
	ErrCodeValuationInvalidTerm ErrorCode = "VAL_001"
	ErrCodeValuationInput       ErrorCode = "VAL_002"
)

// Comparison module error codes.
const (
	ErrCodeComparisonTooFewOffers ErrorCode = "CMP_001"
	ErrCodeComparisonInput        ErrorCode = "CMP_002"
)

// Offer store error codes.
const (
	ErrCodeOfferNotFound      ErrorCode = "OFR_001"
	ErrCodeOfferAlreadyExists ErrorCode = "OFR_002"
)

// CodeUnknown is returned by GetCode when no AppError is present in a chain.
const CodeUnknown ErrorCode = "UNKNOWN"

// CodeOK is the sentinel code for a nil error.
const CodeOK ErrorCode = "OK"

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.  Codes not listed
// here fall back to 500.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,

	ErrCodeExtractionInput: http.StatusBadRequest,
	ErrCodeExtractionBatch: http.StatusInternalServerError,

	ErrCodeScoringInput: http.StatusBadRequest,

	ErrCodeValuationInvalidTerm: http.StatusBadRequest,
	ErrCodeValuationInput:       http.StatusBadRequest,

	ErrCodeComparisonTooFewOffers: http.StatusBadRequest,
	ErrCodeComparisonInput:        http.StatusBadRequest,

	ErrCodeOfferNotFound:      http.StatusNotFound,
	ErrCodeOfferAlreadyExists: http.StatusConflict,
}

// HTTPStatus returns the HTTP status code mapped to c, or 500 when unmapped.
func (c ErrorCode) HTTPStatus() int {
	if s, ok := ErrorCodeHTTPStatus[c]; ok {
		return s
	}
	return http.StatusInternalServerError
}
