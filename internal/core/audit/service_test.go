package audit

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MuhamadAgungGumelar/neurodecor-be/internal/shared/database/dbtest"
)

func TestLogActionStoresUserAndRequestInfo(t *testing.T) {
	db, mock := dbtest.New(t)
	svc := NewService(db)
	userID := uuid.New()

	mock.ExpectQuery(`INSERT INTO "audit_logs" \("user_id","action","entity","entity_id","ip_address","user_agent","metadata","created_at"\)`).
		WithArgs(&userID, "credits.deduct", "credits", userID.String(), "10.0.0.1", "curl/8", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.NewString()))

	ctx := WithRequestInfo(context.Background(), "10.0.0.1", "curl/8")
	err := svc.LogAction(ctx, userID.String(), "credits.deduct", "credits", userID.String(), map[string]interface{}{"amount": 1})
	require.NoError(t, err)
}

func TestLogActionSystemEvent(t *testing.T) {
	db, mock := dbtest.New(t)
	svc := NewService(db)

	mock.ExpectQuery(`INSERT INTO "audit_logs"`).
		WithArgs(nil, "payment.approved", "payment", "WFP-1", "", "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.NewString()))

	require.NoError(t, svc.LogAction(context.Background(), "", "payment.approved", "payment", "WFP-1", nil))
}

func TestGetLogsPaginates(t *testing.T) {
	db, mock := dbtest.New(t)
	svc := NewService(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "audit_logs" WHERE action = \$1`).
		WithArgs("auth.login").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(45))
	mock.ExpectQuery(`SELECT \* FROM "audit_logs" WHERE action = \$1 ORDER BY created_at DESC LIMIT \$2 OFFSET \$3`).
		WithArgs("auth.login", 20, 40).
		WillReturnRows(sqlmock.NewRows([]string{"id", "action", "entity"}).
			AddRow(uuid.NewString(), "auth.login", "user"))

	resp, err := svc.GetLogs(context.Background(), AuditFilter{Action: "auth.login", Page: 3, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(45), resp.TotalCount)
	assert.Equal(t, 3, resp.TotalPages)
	assert.Len(t, resp.Logs, 1)
}

func TestGetActionStats(t *testing.T) {
	db, mock := dbtest.New(t)
	svc := NewService(db)
	since := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT action, COUNT\(\*\) as count FROM "audit_logs" WHERE created_at >= \$1 GROUP BY "action"`).
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"action", "count"}).
			AddRow("auth.login", 12).
			AddRow("payment.approved", 3))

	stats, err := svc.GetActionStats(context.Background(), &since)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"auth.login": 12, "payment.approved": 3}, stats)
}

func TestDeleteOldLogs(t *testing.T) {
	db, mock := dbtest.New(t)
	svc := NewService(db)

	_, err := svc.DeleteOldLogs(context.Background(), time.Hour)
	assert.Error(t, err)

	mock.ExpectExec(`DELETE FROM "audit_logs" WHERE created_at < \$1`).
		WillReturnResult(sqlmock.NewResult(0, 7))
	n, err := svc.DeleteOldLogs(context.Background(), 90*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}

func TestHandlerRejectsBadFilters(t *testing.T) {
	db, _ := dbtest.New(t)
	app := fiber.New()
	app.Get("/api/admin/audit", NewHandler(NewService(db)).GetLogs)

	for _, q := range []string{"user_id=nope", "from=yesterday"} {
		resp, err := app.Test(httptest.NewRequest("GET", "/api/admin/audit?"+q, nil))
		require.NoError(t, err)
		assert.Equal(t, 400, resp.StatusCode, q)
	}
}
