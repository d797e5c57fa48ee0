package analytics

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"
)

// Aggregator provides database aggregation helpers
type Aggregator struct {
	db *gorm.DB
}

// NewAggregator creates a new aggregator
func NewAggregator(db *gorm.DB) *Aggregator {
	return &Aggregator{db: db}
}

func (a *Aggregator) scoped(ctx context.Context, table string, dr *DateRange, conds []Condition) *gorm.DB {
	db := a.db.WithContext(ctx).Table(table)
	for _, c := range conds {
		db = db.Where(c.Query, c.Args...)
	}
	if dr != nil {
		db = db.Where(fmt.Sprintf("%s BETWEEN ? AND ?", dr.Field), dr.Start, dr.End)
	}
	return db
}

// Aggregate performs a grouped aggregation query
func (a *Aggregator) Aggregate(ctx context.Context, query AggregateQuery) ([]map[string]interface{}, error) {
	selectParts := append([]string{}, query.GroupBy...)

	// Sorted so the generated SQL is stable.
	aliases := make([]string, 0, len(query.Aggregates))
	for alias := range query.Aggregates {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	for _, alias := range aliases {
		selectParts = append(selectParts, fmt.Sprintf("%s AS %s", query.Aggregates[alias], alias))
	}

	db := a.scoped(ctx, query.Table, query.DateRange, query.Conditions).Select(strings.Join(selectParts, ", "))
	if len(query.GroupBy) > 0 {
		db = db.Group(strings.Join(query.GroupBy, ", "))
	}
	for _, order := range query.OrderBy {
		db = db.Order(order)
	}
	if query.Limit > 0 {
		db = db.Limit(query.Limit)
	}

	var results []map[string]interface{}
	if err := db.Find(&results).Error; err != nil {
		return nil, fmt.Errorf("aggregate query failed: %w", err)
	}
	return results, nil
}

// Count performs a COUNT query
func (a *Aggregator) Count(ctx context.Context, table string, dr *DateRange, conds ...Condition) (int64, error) {
	var count int64
	if err := a.scoped(ctx, table, dr, conds).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count query failed: %w", err)
	}
	return count, nil
}

// Sum performs a SUM query; an empty set sums to zero.
func (a *Aggregator) Sum(ctx context.Context, table, column string, dr *DateRange, conds ...Condition) (float64, error) {
	var total float64
	err := a.scoped(ctx, table, dr, conds).
		Select(fmt.Sprintf("COALESCE(SUM(%s), 0)", column)).
		Row().
		Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum query failed: %w", err)
	}
	return total, nil
}

// CountBy counts rows per distinct value of column.
func (a *Aggregator) CountBy(ctx context.Context, table, column string, dr *DateRange, conds ...Condition) (map[string]int64, error) {
	var rows []struct {
		Key   string
		Count int64
	}
	err := a.scoped(ctx, table, dr, conds).
		Select(fmt.Sprintf("%s AS key, COUNT(*) AS count", column)).
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("group count failed: %w", err)
	}

	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Count
	}
	return out, nil
}
