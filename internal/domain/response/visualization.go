package response

// ChartType is the rendering hint for visualization data.
type ChartType string

// Supported chart types.
const (
	Bar      ChartType = "bar"
	Line     ChartType = "line"
	Pie      ChartType = "pie"
	Doughnut ChartType = "doughnut"
)

// ChartTypes lists the supported chart types.
func ChartTypes() []ChartType {
	return []ChartType{Bar, Line, Pie, Doughnut}
}

// IsValid checks if the chart type is one of the supported values.
func (c ChartType) IsValid() bool {
	return c == Bar || c == Line || c == Pie || c == Doughnut
}

// Visualization is chart metadata. The zero value is the empty object.
type Visualization struct {
	chartType ChartType
	labels    []string
	data      []float64
	xAxis     string
	yAxis     string
}

// NewVisualization creates chart metadata with all five fields.
func NewVisualization(chartType ChartType, labels []string, data []float64, xAxis, yAxis string) Visualization {
	if labels == nil {
		labels = []string{}
	}
	if data == nil {
		data = []float64{}
	}
	return Visualization{
		chartType: chartType, labels: labels, data: data,
		xAxis: xAxis, yAxis: yAxis,
	}
}

// IsEmpty reports whether no chart was requested.
func (v Visualization) IsEmpty() bool { return v.chartType == "" }

// Type returns the chart type.
func (v Visualization) Type() ChartType { return v.chartType }

// Labels returns the category labels.
func (v Visualization) Labels() []string { return v.labels }

// Data returns the numeric series.
func (v Visualization) Data() []float64 { return v.data }

// XAxis returns the x axis title.
func (v Visualization) XAxis() string { return v.xAxis }

// YAxis returns the y axis title.
func (v Visualization) YAxis() string { return v.yAxis }
