package ingres

import (
	"encoding/json"
	"strings"

	"github.com/kailas-cloud/ingres/internal/domain/intent"
	"github.com/kailas-cloud/ingres/internal/domain/response"
	healthuc "github.com/kailas-cloud/ingres/internal/usecase/health"
)

// Intent sentinels returned instead of a classified intent.
const (
	IntentUnknown = string(intent.Unknown)
	IntentError   = string(intent.Error)
)

// IntentResult is the classification of one query.
type IntentResult struct {
	Intent     string
	Entities   map[string]any
	Confidence float64
}

// Fallback reports whether the result is one of the fixed fallbacks.
func (r IntentResult) Fallback() bool {
	return r.Intent == IntentUnknown || r.Intent == IntentError
}

// ResponseRequest is one generation call.
type ResponseRequest struct {
	Intent string
	Query  string
	// RawData is the retrieved data the answer is grounded in. Any JSON value.
	RawData json.RawMessage
	// ConversationID keys the history; ignored unless WithHistory is set.
	ConversationID string
}

// Visualization is an optional chart payload.
type Visualization struct {
	Type   string
	Labels []string
	Data   []float64
	XAxis  string
	YAxis  string
}

// Response is the generated answer.
type Response struct {
	NLResponse    string
	Visualization *Visualization
}

// Fallback reports whether the response is one of the fixed fallbacks.
func (r Response) Fallback() bool {
	return r.NLResponse == response.ParseFailureMessage ||
		strings.HasPrefix(r.NLResponse, response.FailurePrefix)
}

// HealthReport aggregates component checks.
// Status is "ok", "degraded" or "error"; Checks maps component to "ok" or "error".
type HealthReport struct {
	Status string
	Checks map[string]string
}

func intentFromDomain(r intent.Result) IntentResult {
	entities := r.Entities()
	if entities == nil {
		entities = map[string]any{}
	}
	return IntentResult{
		Intent:     string(r.Intent()),
		Entities:   entities,
		Confidence: r.Confidence(),
	}
}

func responseFromDomain(r response.Result) Response {
	out := Response{NLResponse: r.NLResponse()}
	if v := r.Visualization(); !v.IsEmpty() {
		out.Visualization = &Visualization{
			Type:   string(v.Type()),
			Labels: v.Labels(),
			Data:   v.Data(),
			XAxis:  v.XAxis(),
			YAxis:  v.YAxis(),
		}
	}
	return out
}

func healthFromDomain(r healthuc.Report) HealthReport {
	checks := make(map[string]string, len(r.Checks))
	for k, v := range r.Checks {
		checks[k] = string(v)
	}
	return HealthReport{Status: string(r.Status), Checks: checks}
}
