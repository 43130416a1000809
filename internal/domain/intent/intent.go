package intent

import "strings"

// Intent is the closed set of query classes the classifier may emit.
type Intent string

// Groundwater query intents.
const (
	ListUnitsByCategory      Intent = "list_units_by_category"
	ListUnitsByCondition     Intent = "list_units_by_condition"
	CompareStatesExtraction  Intent = "compare_states_extraction"
	CompareCategoriesInState Intent = "compare_categories_in_state"
	GetHistoricalData        Intent = "get_historical_data"
	GetStateMetric           Intent = "get_state_metric"
	FindUnitsByMetricValue   Intent = "find_units_by_metric_value"
	GetDataForUnit           Intent = "get_data_for_unit"
	CompareData              Intent = "compare_data"
	Definition               Intent = "definition"
	GeneralGreeting          Intent = "general_greeting"
	GeneralHelp              Intent = "general_help"
	ThankYou                 Intent = "thank_you"
	Unsupported              Intent = "unsupported"
)

// Sentinels produced by the pipeline itself, never by the model.
const (
	// Unknown marks unparseable or unrecognized model output.
	Unknown Intent = "unknown"
	// Error marks a failure before the model output could be read.
	Error Intent = "error"
)

var known = []Intent{
	ListUnitsByCategory,
	ListUnitsByCondition,
	CompareStatesExtraction,
	CompareCategoriesInState,
	GetHistoricalData,
	GetStateMetric,
	FindUnitsByMetricValue,
	GetDataForUnit,
	CompareData,
	Definition,
	GeneralGreeting,
	GeneralHelp,
	ThankYou,
	Unsupported,
}

var descriptions = map[Intent]string{
	ListUnitsByCategory:      "Find units (districts, blocks) by category.",
	ListUnitsByCondition:     "Find units by a specific condition.",
	CompareStatesExtraction:  "Compare extraction data between states.",
	CompareCategoriesInState: "Compare categories within a state.",
	GetHistoricalData:        "Get historical data for a unit.",
	GetStateMetric:           "Get a specific metric for a state.",
	FindUnitsByMetricValue:   "Find units based on a metric value.",
	GetDataForUnit:           "Get a single data point for a unit.",
	CompareData:              "Compare data points.",
	Definition:               "Provide a definition.",
	GeneralGreeting:          "User is saying hello.",
	GeneralHelp:              "User needs general help.",
	ThankYou:                 "User is expressing gratitude.",
	Unsupported:              "The query is out of scope.",
}

var knownSet = func() map[Intent]struct{} {
	m := make(map[Intent]struct{}, len(known))
	for _, i := range known {
		m[i] = struct{}{}
	}
	return m
}()

// Known returns the enumerated intents in declaration order.
func Known() []Intent {
	out := make([]Intent, len(known))
	copy(out, known)
	return out
}

// Parse maps model output to an Intent. Anything outside the enumerated set,
// including the "error" sentinel, becomes Unknown.
func Parse(s string) Intent {
	i := Intent(strings.TrimSpace(s))
	if _, ok := knownSet[i]; ok {
		return i
	}
	return Unknown
}

// IsKnown reports whether i is one of the enumerated intents.
func (i Intent) IsKnown() bool {
	_, ok := knownSet[i]
	return ok
}

// IsValid reports whether i may appear in a result: enumerated or a sentinel.
func (i Intent) IsValid() bool {
	return i.IsKnown() || i == Unknown || i == Error
}

// Description is the one-line meaning shown to the model.
func (i Intent) Description() string { return descriptions[i] }

func (i Intent) String() string { return string(i) }
