package provider

// DateRange is a pair of date expressions, relative ("today", "yesterday",
// "7daysAgo") or absolute ("2026-08-01").
type DateRange struct {
	Start string `json:"startDate"`
	End   string `json:"endDate"`
}

// MetricSpec enumerates the requested metric and dimension names.
type MetricSpec struct {
	Metrics    []string `json:"metrics"`
	Dimensions []string `json:"dimensions"`
}

// ReportRequest is a reporting query against one provider resource.
// DateRange must hold absolute dates by the time it reaches the client.
type ReportRequest struct {
	ResourceID string
	Spec       MetricSpec
	DateRange  DateRange
}

// Name wraps a metric or dimension name in the provider's wire shape.
type Name struct {
	Name string `json:"name"`
}

// Value is one cell of a report row.
type Value struct {
	Value string `json:"value"`
}

// Row is one row of a report: dimension values followed by metric values, in
// request order.
type Row struct {
	DimensionValues []Value `json:"dimensionValues"`
	MetricValues    []Value `json:"metricValues"`
}

// Header describes one returned dimension or metric column.
type Header struct {
	Name string `json:"name"`
}

// ReportResponse is the provider's row-oriented result.
type ReportResponse struct {
	DimensionHeaders []Header `json:"dimensionHeaders,omitempty"`
	MetricHeaders    []Header `json:"metricHeaders,omitempty"`
	Rows             []Row    `json:"rows,omitempty"`
	RowCount         int      `json:"rowCount,omitempty"`
}

// reportBody is the wire shape of the reporting POST body.
type reportBody struct {
	Dimensions []Name      `json:"dimensions,omitempty"`
	Metrics    []Name      `json:"metrics"`
	DateRanges []DateRange `json:"dateRanges"`
}

func newReportBody(req *ReportRequest) reportBody {
	body := reportBody{
		DateRanges: []DateRange{req.DateRange},
	}
	for _, d := range req.Spec.Dimensions {
		body.Dimensions = append(body.Dimensions, Name{Name: d})
	}
	for _, m := range req.Spec.Metrics {
		body.Metrics = append(body.Metrics, Name{Name: m})
	}
	return body
}
