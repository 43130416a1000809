package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ingres/internal/domain"
	"github.com/kailas-cloud/ingres/internal/domain/intent"
	"github.com/kailas-cloud/ingres/internal/domain/response"
	"github.com/kailas-cloud/ingres/internal/logger"
	"github.com/kailas-cloud/ingres/internal/usecase/generator"
	healthuc "github.com/kailas-cloud/ingres/internal/usecase/health"
)

const (
	maxBodyBytes = 1 << 20

	welcomeMessage = "Welcome to INGRES"

	headerConversationID   = "X-Conversation-ID"
	headerCompletionTokens = "X-Completion-Tokens"
	headerEmbeddingTokens  = "X-Embedding-Tokens"
)

// Classifier maps a query to an intent. It never fails.
type Classifier interface {
	Classify(ctx context.Context, query string) intent.Result
}

// Generator produces a natural-language answer. It never fails.
type Generator interface {
	Generate(ctx context.Context, req generator.Request) response.Result
	EndConversation(ctx context.Context, conversationID string)
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Server handles the chatbot HTTP API.
type Server struct {
	classifier Classifier
	generator  Generator
	health     HealthChecker
	logger     *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(classifier Classifier, gen Generator, health HealthChecker, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{classifier: classifier, generator: gen, health: health, logger: log}
}

// Welcome handles GET /chatbot/.
func (s *Server) Welcome(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, WelcomeResponse{Message: welcomeMessage})
}

// DetectIntent handles POST /chatbot/intent.
func (s *Server) DetectIntent(w http.ResponseWriter, r *http.Request) {
	var req ChatQueryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Query == nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "query is required")
		return
	}

	conversationID := req.UUID
	if conversationID == "" {
		conversationID = uuid.NewString()
	}
	w.Header().Set(headerConversationID, conversationID)

	ctx := logger.With(r.Context(), zap.String("uuid", conversationID))
	ctx, usage := domain.NewContextWithUsage(ctx)

	res := s.classifier.Classify(ctx, *req.Query)

	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, IntentResponse{Query: *req.Query, Result: intentToDTO(res)})
}

// GenerateResponse handles POST /chatbot/generate-response.
func (s *Server) GenerateResponse(w http.ResponseWriter, r *http.Request) {
	var req NLResponseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	switch {
	case req.Intent == nil:
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "intent is required")
		return
	case req.Query == nil:
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "query is required")
		return
	case req.UUID == nil || *req.UUID == "":
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "uuid is required")
		return
	}
	w.Header().Set(headerConversationID, *req.UUID)

	ctx := logger.With(r.Context(), zap.String("uuid", *req.UUID))
	ctx, usage := domain.NewContextWithUsage(ctx)

	res := s.generator.Generate(ctx, generator.Request{
		Intent:         *req.Intent,
		Query:          *req.Query,
		RawData:        req.RawData,
		ConversationID: *req.UUID,
	})

	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, responseToDTO(res))
}

// EndConversation handles DELETE /chatbot/conversations/{uuid}.
func (s *Server) EndConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "uuid")
	ctx := logger.With(r.Context(), zap.String("uuid", id))
	s.generator.EndConversation(ctx, id)
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// decodeBody reads a JSON object into v, answering 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrorCodeBadRequest, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func setUsageHeaders(w http.ResponseWriter, usage *domain.Usage) {
	w.Header().Set(headerCompletionTokens, strconv.Itoa(usage.CompletionTokens()))
	if n := usage.EmbeddingTokens(); n > 0 {
		w.Header().Set(headerEmbeddingTokens, strconv.Itoa(n))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}
