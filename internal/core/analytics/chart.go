package analytics

import (
	"fmt"
	"strconv"
	"time"
)

// ToLineChartData converts query results to line chart format
// xKey: field name for X-axis (labels)
// yKey: field name for Y-axis (values)
func ToLineChartData(data []map[string]interface{}, xKey, yKey string) ChartData {
	labels := make([]string, len(data))
	values := make([]float64, len(data))

	for i, row := range data {
		labels[i] = formatLabel(row[xKey])
		values[i] = toFloat64(row[yKey])
	}

	return ChartData{
		Type:   "line",
		Labels: labels,
		Data: []ChartSeries{
			{
				Name:   yKey,
				Values: values,
			},
		},
	}
}

func formatLabel(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		return v.Format("2006-01-02")
	default:
		return fmt.Sprintf("%v", v)
	}
}

// toFloat64 handles the types pgx hands back for numeric columns, where
// DECIMAL arrives as a string.
func toFloat64(value interface{}) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	case []byte:
		f, _ := strconv.ParseFloat(string(v), 64)
		return f
	default:
		return 0
	}
}
