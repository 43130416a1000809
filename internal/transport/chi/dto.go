package chi

import (
	"encoding/json"

	"github.com/kailas-cloud/ingres/internal/domain/intent"
	"github.com/kailas-cloud/ingres/internal/domain/response"
)

// ErrorCode is a machine-readable error class.
type ErrorCode string

// Error codes returned by the API.
const (
	ErrorCodeBadRequest       ErrorCode = "bad_request"
	ErrorCodeValidationFailed ErrorCode = "validation_failed"
	ErrorCodeUnauthorized     ErrorCode = "unauthorized"
	ErrorCodeNotFound         ErrorCode = "not_found"
	ErrorCodeInternalError    ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// ChatQueryRequest is the body of POST /chatbot/intent.
type ChatQueryRequest struct {
	Query *string `json:"query"`
	UUID  string  `json:"uuid,omitempty"`
}

// IntentResult is the classifier output on the wire.
type IntentResult struct {
	Intent     string         `json:"intent"`
	Entities   map[string]any `json:"entities"`
	Confidence float64        `json:"confidence"`
}

// IntentResponse is the body returned by POST /chatbot/intent.
type IntentResponse struct {
	Query  string       `json:"query"`
	Result IntentResult `json:"result"`
}

// NLResponseRequest is the body of POST /chatbot/generate-response.
type NLResponseRequest struct {
	Intent  *string         `json:"intent"`
	Query   *string         `json:"query"`
	RawData json.RawMessage `json:"rawData,omitempty"`
	UUID    *string         `json:"uuid"`
}

// Visualization is chart metadata on the wire.
type Visualization struct {
	Type   string    `json:"type"`
	Labels []string  `json:"labels"`
	Data   []float64 `json:"data"`
	XAxis  string    `json:"x_axis"`
	YAxis  string    `json:"y_axis"`
}

// NLResponseResult is the body returned by POST /chatbot/generate-response.
// VisualizationData is either *Visualization or an empty object.
type NLResponseResult struct {
	NLResponse        string `json:"nl_response"`
	VisualizationData any    `json:"visualization_data"`
}

// WelcomeResponse is the body returned by GET /chatbot/.
type WelcomeResponse struct {
	Message string `json:"message"`
}

// HealthResponse is the body returned by GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func intentToDTO(r intent.Result) IntentResult {
	return IntentResult{
		Intent:     r.Intent().String(),
		Entities:   r.Entities(),
		Confidence: r.Confidence(),
	}
}

func responseToDTO(r response.Result) NLResponseResult {
	out := NLResponseResult{NLResponse: r.NLResponse(), VisualizationData: struct{}{}}
	if v := r.Visualization(); !v.IsEmpty() {
		out.VisualizationData = &Visualization{
			Type:   string(v.Type()),
			Labels: v.Labels(),
			Data:   v.Data(),
			XAxis:  v.XAxis(),
			YAxis:  v.YAxis(),
		}
	}
	return out
}
