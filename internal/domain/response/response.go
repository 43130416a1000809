package response

// Messages used when the model output cannot provide nl_response.
const (
	// DefaultNLResponse replaces a missing nl_response key.
	DefaultNLResponse = "No response generated."
	// ParseFailureMessage is returned when the model output is not a JSON object.
	ParseFailureMessage = "Faced error in processing your request"
	// FailurePrefix starts the message returned for any other pipeline failure.
	FailurePrefix = "Error generating response: "
)

// Result is the generator output for one request.
type Result struct {
	nlResponse    string
	visualization Visualization
}

// NewResult creates a generator result.
func NewResult(nlResponse string, visualization Visualization) Result {
	return Result{nlResponse: nlResponse, visualization: visualization}
}

// ParseFailure is the fallback for unparseable model output.
func ParseFailure() Result {
	return Result{nlResponse: ParseFailureMessage}
}

// Failure is the fallback for transport, timeout and other pipeline failures.
func Failure(cause error) Result {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	return Result{nlResponse: FailurePrefix + msg}
}

// NLResponse returns the human-readable answer.
func (r Result) NLResponse() string { return r.nlResponse }

// Visualization returns the chart metadata; IsEmpty reports no chart.
func (r Result) Visualization() Visualization { return r.visualization }
