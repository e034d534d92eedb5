// Package http is the REST surface of the analysis pipeline.  Handlers are
// thin: bind, call the application service, map errors; no domain logic lives
// here.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/leaselens/leaselens/internal/application/analysis"
	"github.com/leaselens/leaselens/internal/domain/valuation"
	"github.com/leaselens/leaselens/pkg/errors"
	"github.com/leaselens/leaselens/pkg/types/contract"
)

// errorResponse is the standard error body.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// writeError maps an error to its HTTP status via the platform code table.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	code := errors.GetCode(err)
	resp := errorResponse{Code: code.String(), Message: err.Error()}
	if ae := errors.AsAppError(err); ae != nil {
		resp.Message = ae.Message
		resp.Detail = ae.Detail
	}
	c.JSON(code.HTTPStatus(), resp)
}

func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		writeError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid request body"))
		return false
	}
	return true
}

// analysisHandler serves the contract and offer routes.
type analysisHandler struct {
	service *analysis.Service
}

type analyzeRequest struct {
	RawText   string                  `json:"raw_text" binding:"required"`
	Condition string                  `json:"condition"`
	Market    *contract.MarketContext `json:"market"`
}

func (h *analysisHandler) analyze(c *gin.Context) {
	var req analyzeRequest
	if !bindJSON(c, &req) {
		return
	}

	offer, err := h.service.Analyze(c.Request.Context(), analysis.AnalyzeRequest{
		RawText:   req.RawText,
		Condition: valuation.Condition(req.Condition),
		Market:    req.Market,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, offer)
}

type analyzeBatchRequest struct {
	Contracts []analyzeRequest `json:"contracts" binding:"required,min=1"`
}

type batchSlot struct {
	Offer *contract.AnalyzedOffer `json:"offer"`
	Error *errorResponse          `json:"error"`
}

func (h *analysisHandler) analyzeBatch(c *gin.Context) {
	var req analyzeBatchRequest
	if !bindJSON(c, &req) {
		return
	}

	reqs := make([]analysis.AnalyzeRequest, len(req.Contracts))
	for i, item := range req.Contracts {
		reqs[i] = analysis.AnalyzeRequest{
			RawText:   item.RawText,
			Condition: valuation.Condition(item.Condition),
			Market:    item.Market,
		}
	}

	results := h.service.AnalyzeBatch(c.Request.Context(), reqs)
	slots := make([]batchSlot, len(results))
	for i, res := range results {
		slots[i].Offer = res.Offer
		if res.Err != nil {
			code := errors.GetCode(res.Err)
			slots[i].Error = &errorResponse{Code: code.String(), Message: res.Err.Error()}
		}
	}
	c.JSON(http.StatusOK, gin.H{"results": slots})
}

type extractRequest struct {
	RawText string `json:"raw_text" binding:"required"`
}

func (h *analysisHandler) extract(c *gin.Context) {
	var req extractRequest
	if !bindJSON(c, &req) {
		return
	}
	c.JSON(http.StatusOK, h.service.Extract(req.RawText))
}

type scoreRequest struct {
	Fields *contract.ContractFields `json:"fields" binding:"required"`
	Market *contract.MarketContext  `json:"market"`
}

func (h *analysisHandler) score(c *gin.Context) {
	var req scoreRequest
	if !bindJSON(c, &req) {
		return
	}
	c.JSON(http.StatusOK, h.service.Score(req.Fields, req.Market))
}

type compareRequest struct {
	OfferIDs []string `json:"offer_ids" binding:"required,min=2"`
}

func (h *analysisHandler) compare(c *gin.Context) {
	var req compareRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.service.Compare(c.Request.Context(), req.OfferIDs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *analysisHandler) getOffer(c *gin.Context) {
	offer, err := h.service.GetOffer(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, offer)
}

// Checker reports the health of one infrastructure dependency.
type Checker interface {
	Ping(ctx context.Context) error
}

// healthHandler serves liveness and readiness.
type healthHandler struct {
	checkers map[string]Checker
}

func (h *healthHandler) live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *healthHandler) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(gin.H, len(h.checkers))
	for name, checker := range h.checkers {
		if err := checker.Ping(ctx); err != nil {
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			deps[name] = "ok"
		}
	}
	c.JSON(status, gin.H{"status": http.StatusText(status), "dependencies": deps})
}
