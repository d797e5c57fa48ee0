package analytics

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/MuhamadAgungGumelar/neurodecor-be/internal/core/export"
)

// Service builds the admin dashboard and reports.
type Service struct {
	db  *gorm.DB
	agg *Aggregator
	now func() time.Time
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, agg: NewAggregator(db), now: time.Now}
}

// Dashboard aggregates users, completed payments, spent credits and
// transform jobs over the named period.
func (s *Service) Dashboard(ctx context.Context, period string) (*Dashboard, error) {
	if !ValidPeriod(period) {
		period = "last_30_days"
	}
	dr := GetDateRange(period, s.now())
	completed := Where("status = ?", "completed")

	d := &Dashboard{Period: period, Range: dr}
	var err error

	if d.TotalUsers, err = s.agg.Count(ctx, "users", nil); err != nil {
		return nil, err
	}
	if d.NewUsers, err = s.agg.Count(ctx, "users", &dr); err != nil {
		return nil, err
	}
	if d.Revenue, err = s.agg.Sum(ctx, "payment_transactions", "amount", &dr, completed); err != nil {
		return nil, err
	}
	if d.CompletedPayments, err = s.agg.Count(ctx, "payment_transactions", &dr, completed); err != nil {
		return nil, err
	}
	if d.CreditsSold, err = s.agg.Sum(ctx, "payment_transactions", "credits_added", &dr, completed); err != nil {
		return nil, err
	}
	if d.CreditsSpent, err = s.agg.Sum(ctx, "credit_usage", "credits_used", &dr, Where("operation_type = ?", "image_generation")); err != nil {
		return nil, err
	}
	if d.TransformJobs, err = s.agg.CountBy(ctx, "transform_jobs", "status", &dr); err != nil {
		return nil, err
	}

	daily, err := s.agg.Aggregate(ctx, AggregateQuery{
		Table:      "payment_transactions",
		GroupBy:    []string{"DATE(created_at)"},
		Aggregates: map[string]string{"revenue": "SUM(amount)"},
		Conditions: []Condition{completed},
		DateRange:  &dr,
		OrderBy:    []string{"DATE(created_at)"},
	})
	if err != nil {
		return nil, err
	}
	d.RevenueChart = ToLineChartData(daily, "date", "revenue")

	return d, nil
}

type paymentRow struct {
	OrderReference string
	Email          string
	ProductID      string
	Amount         float64
	Currency       string
	CreditsAdded   int
	CreatedAt      time.Time
}

// PaymentsReport lists completed payments in the period as an export table.
func (s *Service) PaymentsReport(ctx context.Context, period string) (*export.ExportData, error) {
	if !ValidPeriod(period) {
		period = "last_30_days"
	}
	dr := GetDateRange(period, s.now())

	var rows []paymentRow
	err := s.db.WithContext(ctx).
		Table("payment_transactions AS p").
		Select("p.order_reference, u.email, p.product_id, p.amount, p.currency, p.credits_added, p.created_at").
		Joins("JOIN users u ON u.id = p.user_id").
		Where("p.status = ?", "completed").
		Where("p.created_at BETWEEN ? AND ?", dr.Start, dr.End).
		Order("p.created_at").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load payments: %w", err)
	}

	table := make([][]interface{}, 0, len(rows))
	var total float64
	for _, r := range rows {
		total += r.Amount
		table = append(table, []interface{}{
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.OrderReference,
			r.Email,
			r.ProductID,
			r.Amount,
			r.Currency,
			r.CreditsAdded,
		})
	}

	data := export.NewTable("NeuroDecor payments",
		[]string{"Date", "Order", "Email", "Product", "Amount", "Currency", "Credits"}, table)
	data.Description = fmt.Sprintf("%s to %s, %d payments, total %.2f",
		dr.Start.Format("2006-01-02"), dr.End.Format("2006-01-02"), len(rows), total)
	data.Style.SheetName = "Payments"
	data.Style.Orientation = "landscape"
	data.CreatedAt = s.now()
	return data, nil
}
