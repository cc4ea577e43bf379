package http

import (
	"net/http"
	"strconv"

	"github.com/custodia-labs/policypal/internal/core/domain"
)

// queryRequest is a policy question
// @Description Policy question
type queryRequest struct {
	Question string `json:"question" example:"What is our policy on remote work and vacation?"`
}

// QueryResponse carries the coordinated answer together with the debate flow
// @Description Coordinated answer with both expert perspectives
type QueryResponse struct {
	QueryID          string           `json:"query_id" example:"0f8fad5b-d9cb-469f-a165-70867728950e"`
	Answer           string           `json:"answer"`
	PolicyArea       domain.TopicArea `json:"policy_area" example:"General"`
	ITContext        []string         `json:"it_context"`
	HRContext        []string         `json:"hr_context"`
	Sources          []string         `json:"sources"`
	ITExpertResponse string           `json:"it_expert_response"`
	HRExpertResponse string           `json:"hr_expert_response"`
	HistoryError     string           `json:"history_error,omitempty"`
}

func newQueryResponse(result *domain.PipelineResult, historyErr error) QueryResponse {
	resp := QueryResponse{
		QueryID:          result.QueryID,
		Answer:           result.Answer,
		PolicyArea:       result.PolicyArea,
		ITContext:        nonNil(result.ITContext),
		HRContext:        nonNil(result.HRContext),
		Sources:          nonNil(result.Sources),
		ITExpertResponse: result.ITExpertResponse,
		HRExpertResponse: result.HRExpertResponse,
	}
	if historyErr != nil {
		resp.HistoryError = historyErr.Error()
	}
	return resp
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

// handleQuery godoc
// @Summary      Ask a policy question
// @Description  Retrieves IT and HR context, runs both experts and returns the coordinator's answer. The question is recorded in the caller's history.
// @Tags         Query
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      queryRequest  true  "Question"
// @Success      200  {object}  QueryResponse
// @Failure      400  {object}  ErrorResponse  "Empty question"
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      502  {object}  ErrorResponse  "Pipeline stage failed"
// @Failure      503  {object}  ErrorResponse  "Embedding service unavailable, retriable"
// @Failure      504  {object}  ErrorResponse  "Query timed out"
// @Router       /query [post]
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := requireAuth(w, r)
	if !ok {
		return
	}

	var req queryRequest
	if !readJSON(w, r, &req) {
		return
	}

	answer, err := s.queryService.Ask(r.Context(), authCtx.UserID, req.Question)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newQueryResponse(answer.Result, answer.HistoryErr))
}

// handleListHistory godoc
// @Summary      Query history
// @Description  The caller's past questions, most recent first. Legacy records carry "debate": null.
// @Tags         Query
// @Produce      json
// @Security     BearerAuth
// @Param        limit  query     int  false  "Maximum records (default 50, max 200)"
// @Success      200  {array}   domain.QueryRecord
// @Failure      400  {object}  ErrorResponse  "Invalid limit"
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Router       /history [get]
func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := requireAuth(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	records, err := s.queryService.History(r.Context(), authCtx.UserID, limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if records == nil {
		records = []*domain.QueryRecord{}
	}

	writeJSON(w, http.StatusOK, records)
}

// handleGetHistory godoc
// @Summary      Get a past query
// @Description  One of the caller's history records
// @Tags         Query
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Query ID"
// @Success      200  {object}  domain.QueryRecord
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      404  {object}  ErrorResponse  "Record not found"
// @Router       /history/{id} [get]
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := requireAuth(w, r)
	if !ok {
		return
	}

	record, err := s.queryService.GetRecord(r.Context(), authCtx.UserID, r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, record)
}
