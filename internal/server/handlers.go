package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/spigell/candidate-matcher/internal/ai"
	"github.com/spigell/candidate-matcher/internal/matching"
	"github.com/spigell/candidate-matcher/internal/ranking"
	"github.com/spigell/candidate-matcher/internal/records"
)

type errorResponse struct {
	Error string `json:"error"`
}

type processResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type processResponse struct {
	Results []processResult `json:"results"`
	matching.BatchSummary
}

type recommendRequest struct {
	Job   *records.RawJob `json:"job"`
	JobID records.ID      `json:"job_id"`
	TopK  *int            `json:"top_k"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) processCandidates(c *gin.Context) {
	var candidates []records.RawCandidate
	if err := c.ShouldBindJSON(&candidates); err != nil {
		s.fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	results := s.matcher.ProcessCandidates(c.Request.Context(), candidates)

	resp := processResponse{
		Results:      make([]processResult, 0, len(results)),
		BatchSummary: matching.Summarize(results),
	}
	for _, r := range results {
		resp.Results = append(resp.Results, processResult{ID: r.ID, Status: r.String()})
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) recommend(c *gin.Context) {
	topK := 0
	if raw := c.Query("top_k"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			s.fail(c, fmt.Errorf("%w: top_k must be an integer", errBadRequest))
			return
		}
		topK = v
	}

	var req recommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if req.TopK != nil {
		topK = *req.TopK
	}
	if topK < 0 {
		s.fail(c, fmt.Errorf("%w: top_k must not be negative", errBadRequest))
		return
	}

	var (
		rec matching.Recommendation
		err error
	)
	switch {
	case req.Job != nil:
		rec, err = s.matcher.RecommendJob(c.Request.Context(), *req.Job, topK)
	case req.JobID != "":
		rec, err = s.matcher.Recommend(c.Request.Context(), req.JobID.String(), topK)
	default:
		err = fmt.Errorf("%w: either job or job_id is required", errBadRequest)
	}
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, rec)
}

var errBadRequest = errors.New("bad request")

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, records.ErrInvalidRecord):
		return http.StatusBadRequest
	case errors.Is(err, records.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, ranking.ErrDimensionMismatch):
		return http.StatusInternalServerError
	case errors.Is(err, ai.ErrExtraction), errors.Is(err, ai.ErrEmbedding):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
