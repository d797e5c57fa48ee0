package analytics

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MuhamadAgungGumelar/neurodecor-be/internal/shared/database/dbtest"
)

func TestGetDateRange(t *testing.T) {
	now := time.Date(2025, 3, 15, 14, 30, 0, 0, time.UTC)

	dr := GetDateRange("today", now)
	assert.Equal(t, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), dr.Start)
	assert.Equal(t, now, dr.End)

	dr = GetDateRange("yesterday", now)
	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), dr.Start)
	assert.Equal(t, 14, dr.End.Day())

	dr = GetDateRange("last_month", now)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), dr.Start)
	assert.Equal(t, time.February, dr.End.Month())
	assert.Equal(t, 28, dr.End.Day())

	dr = GetDateRange("bogus", now)
	assert.Equal(t, time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC), dr.Start)
	assert.Equal(t, "created_at", dr.Field)
}

func TestToLineChartData(t *testing.T) {
	day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	chart := ToLineChartData([]map[string]interface{}{
		{"date": day, "revenue": "1400.00"},
		{"date": day.AddDate(0, 0, 1), "revenue": float64(3200)},
		{"date": day.AddDate(0, 0, 2), "revenue": nil},
	}, "date", "revenue")

	assert.Equal(t, []string{"2025-03-01", "2025-03-02", "2025-03-03"}, chart.Labels)
	require.Len(t, chart.Data, 1)
	assert.Equal(t, []float64{1400, 3200, 0}, chart.Data[0].Values)
}

func TestDashboard(t *testing.T) {
	db, mock := dbtest.New(t)
	svc := NewService(db)
	svc.now = func() time.Time { return time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC) }

	mock.ExpectQuery(`SELECT count\(\*\) FROM "users"$`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "users" WHERE created_at BETWEEN`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(amount\), 0\) FROM "payment_transactions" WHERE status = \$1 AND \(created_at BETWEEN \$2 AND \$3\)`).
		WithArgs("completed", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(4600.0))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "payment_transactions" WHERE status = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(credits_added\), 0\)`).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(80.0))
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(credits_used\), 0\) FROM "credit_usage" WHERE operation_type = \$1`).
		WithArgs("image_generation", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(31.0))
	mock.ExpectQuery(`SELECT status AS key, COUNT\(\*\) AS count FROM "transform_jobs" WHERE created_at BETWEEN .* GROUP BY "status"`).
		WillReturnRows(sqlmock.NewRows([]string{"key", "count"}).AddRow("completed", 30).AddRow("failed", 1))
	mock.ExpectQuery(`SELECT DATE\(created_at\), SUM\(amount\) AS revenue FROM "payment_transactions" WHERE status = \$1 AND \(created_at BETWEEN .*\) GROUP BY DATE\(created_at\) ORDER BY DATE\(created_at\)`).
		WillReturnRows(sqlmock.NewRows([]string{"date", "revenue"}).
			AddRow(time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC), 1400.0).
			AddRow(time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC), 3200.0))

	d, err := svc.Dashboard(context.Background(), "this_month")
	require.NoError(t, err)
	assert.Equal(t, int64(42), d.TotalUsers)
	assert.Equal(t, int64(5), d.NewUsers)
	assert.Equal(t, 4600.0, d.Revenue)
	assert.Equal(t, int64(2), d.CompletedPayments)
	assert.Equal(t, 80.0, d.CreditsSold)
	assert.Equal(t, 31.0, d.CreditsSpent)
	assert.Equal(t, map[string]int64{"completed": 30, "failed": 1}, d.TransformJobs)
	assert.Equal(t, []string{"2025-03-02", "2025-03-09"}, d.RevenueChart.Labels)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), d.Range.Start)
}

func TestPaymentsReport(t *testing.T) {
	db, mock := dbtest.New(t)
	svc := NewService(db)
	svc.now = func() time.Time { return time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC) }

	paid := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT p.order_reference, u.email, .* FROM payment_transactions AS p JOIN users u ON u.id = p.user_id WHERE p.status = \$1 AND \(?p.created_at BETWEEN \$2 AND \$3\)? ORDER BY p.created_at`).
		WithArgs("completed", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"order_reference", "email", "product_id", "amount", "currency", "credits_added", "created_at"}).
			AddRow("WFP-1", "a@b.c", "prod_standard_20_credits", 1400.0, "UAH", 20, paid).
			AddRow("WFP-2", "d@e.f", "prod_prof_60_credits", 3200.0, "UAH", 60, paid))

	data, err := svc.PaymentsReport(context.Background(), "this_month")
	require.NoError(t, err)
	require.Len(t, data.Rows, 2)
	assert.Equal(t, "2025-03-10 09:30", data.Rows[0][0])
	assert.Equal(t, "a@b.c", data.Rows[0][2])
	assert.Contains(t, data.Description, "2 payments, total 4600.00")
	assert.Equal(t, "Payments", data.Style.SheetName)
}

func TestExportPaymentsHandler(t *testing.T) {
	db, mock := dbtest.New(t)
	svc := NewService(db)
	app := fiber.New()
	app.Get("/api/admin/export/payments", NewHandler(svc).ExportPayments)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/admin/export/payments?format=docx", nil))
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)

	mock.ExpectQuery(`FROM payment_transactions AS p JOIN users u`).
		WillReturnRows(sqlmock.NewRows([]string{"order_reference", "email", "product_id", "amount", "currency", "credits_added", "created_at"}).
			AddRow("WFP-1", "a@b.c", "prod_basic_10_credits", 1.0, "UAH", 10, time.Now()))

	resp, err = app.Test(httptest.NewRequest("GET", "/api/admin/export/payments?format=csv&period=today", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), `filename="payments-today.csv"`)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "WFP-1")
}
