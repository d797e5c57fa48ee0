package analytics

import "time"

// Condition is one WHERE clause with its arguments.
type Condition struct {
	Query string
	Args  []interface{}
}

// Where builds a Condition.
func Where(query string, args ...interface{}) Condition {
	return Condition{Query: query, Args: args}
}

// AggregateQuery represents a grouped aggregation over one table
type AggregateQuery struct {
	Table      string            // Table name
	GroupBy    []string          // GROUP BY expressions, also selected
	Aggregates map[string]string // Aggregate functions: {"total": "SUM(amount)", "count": "COUNT(*)"}
	Conditions []Condition       // WHERE conditions
	DateRange  *DateRange        // Date range filter
	OrderBy    []string          // ORDER BY clauses
	Limit      int               // LIMIT (0 = no limit)
}

// DateRange represents a time period for filtering
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Field string    `json:"-"` // Date column to filter on
}

// ChartData represents generic chart data format
type ChartData struct {
	Type   string        `json:"type"`   // "line", "bar"
	Labels []string      `json:"labels"` // X-axis labels
	Data   []ChartSeries `json:"data"`   // Y-axis data series
}

// ChartSeries represents a data series in a chart
type ChartSeries struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// Dashboard summarizes sign-ups, sales and generation activity for a period.
type Dashboard struct {
	Period            string           `json:"period"`
	Range             DateRange        `json:"range"`
	TotalUsers        int64            `json:"totalUsers"`
	NewUsers          int64            `json:"newUsers"`
	Revenue           float64          `json:"revenue"`
	CompletedPayments int64            `json:"completedPayments"`
	CreditsSold       float64          `json:"creditsSold"`
	CreditsSpent      float64          `json:"creditsSpent"`
	TransformJobs     map[string]int64 `json:"transformJobs"`
	RevenueChart      ChartData        `json:"revenueChart"`
}
