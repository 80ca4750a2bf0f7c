package searchconsole

// QueryRequest describes one Search Analytics report query.
type QueryRequest struct {
	SiteURL    string
	StartDate  string // YYYY-MM-DD
	EndDate    string // YYYY-MM-DD
	Dimensions []string
	RowLimit   int
}

// Row is one result row of a Search Analytics report.
type Row struct {
	Keys        []string `json:"keys"`
	Clicks      float64  `json:"clicks"`
	Impressions float64  `json:"impressions"`
	CTR         float64  `json:"ctr"`
	Position    float64  `json:"position"`
}

type queryBody struct {
	StartDate  string   `json:"startDate"`
	EndDate    string   `json:"endDate"`
	Dimensions []string `json:"dimensions,omitempty"`
	RowLimit   int      `json:"rowLimit,omitempty"`
}

type queryResponse struct {
	Rows                    []Row  `json:"rows"`
	ResponseAggregationType string `json:"responseAggregationType"`
}
