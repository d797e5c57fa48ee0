package payment

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MuhamadAgungGumelar/neurodecor-be/internal/shared/database/dbtest"
)

const lockOrderSQL = `SELECT \* FROM "payment_transactions" WHERE order_reference = \$1 .* FOR UPDATE`

func orderRows(id, userID uuid.UUID, ref, status string, credits int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "order_reference", "product_id", "credits_added", "status"}).
		AddRow(id.String(), userID.String(), ref, "prod_basic_10_credits", credits, status)
}

func TestRepositoryCompleteAndCredit(t *testing.T) {
	db, mock := dbtest.New(t)
	repo := NewRepository(db)
	id, userID := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(lockOrderSQL).
		WillReturnRows(orderRows(id, userID, "WFP-1", StatusPending, 10))
	mock.ExpectExec(`UPDATE "payment_transactions" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE users SET credits = credits \+ \$1`).
		WithArgs(10, userID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	txn, credited, err := repo.CompleteAndCredit(context.Background(), "WFP-1", []byte(`{"transactionStatus":"Approved"}`))
	require.NoError(t, err)
	assert.True(t, credited)
	assert.Equal(t, StatusCompleted, txn.Status)
	assert.Equal(t, userID, txn.UserID)
}

func TestRepositoryCompleteAndCreditAlreadyCompleted(t *testing.T) {
	db, mock := dbtest.New(t)
	repo := NewRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(lockOrderSQL).
		WillReturnRows(orderRows(uuid.New(), uuid.New(), "WFP-1", StatusCompleted, 10))
	mock.ExpectCommit()

	_, credited, err := repo.CompleteAndCredit(context.Background(), "WFP-1", nil)
	require.NoError(t, err)
	assert.False(t, credited)
}

func TestRepositoryCompleteAndCreditRollsBack(t *testing.T) {
	db, mock := dbtest.New(t)
	repo := NewRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(lockOrderSQL).
		WillReturnRows(orderRows(uuid.New(), uuid.New(), "WFP-1", StatusPending, 10))
	mock.ExpectExec(`UPDATE "payment_transactions" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE users SET credits`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, credited, err := repo.CompleteAndCredit(context.Background(), "WFP-1", nil)
	require.Error(t, err)
	assert.False(t, credited)
}

func TestRepositoryCompleteAndCreditUnknownOrder(t *testing.T) {
	db, mock := dbtest.New(t)
	repo := NewRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(lockOrderSQL).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, _, err := repo.CompleteAndCredit(context.Background(), "WFP-missing", nil)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestRepositoryUpdateStatusSkipsCompleted(t *testing.T) {
	db, mock := dbtest.New(t)
	repo := NewRepository(db)

	mock.ExpectExec(`UPDATE "payment_transactions" SET .* WHERE order_reference = \$\d+ AND status <> \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.UpdateStatus(context.Background(), "WFP-1", "declined", nil))
}

func TestRepositoryGetByReferenceNotFound(t *testing.T) {
	db, mock := dbtest.New(t)
	repo := NewRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "payment_transactions" WHERE order_reference = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByReference(context.Background(), "WFP-missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestRepositoryCreate(t *testing.T) {
	db, mock := dbtest.New(t)
	repo := NewRepository(db)

	mock.ExpectQuery(`INSERT INTO "payment_transactions"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.NewString()))

	err := repo.Create(context.Background(), &Transaction{
		UserID:         uuid.New(),
		OrderReference: "WFP-1",
		Amount:         1,
		Currency:       "UAH",
		CreditsAdded:   10,
		Status:         StatusPending,
	})
	require.NoError(t, err)
}

func TestRepositoryListStalePending(t *testing.T) {
	db, mock := dbtest.New(t)
	repo := NewRepository(db)
	cutoff := time.Now().Add(-24 * time.Hour)

	mock.ExpectQuery(`SELECT \* FROM "payment_transactions" WHERE status = \$1 AND created_at < \$2 ORDER BY created_at ASC LIMIT \$3`).
		WithArgs(StatusPending, cutoff, 100).
		WillReturnRows(orderRows(uuid.New(), uuid.New(), "WFP-old", StatusPending, 10))

	txns, err := repo.ListStalePending(context.Background(), cutoff, 100)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "WFP-old", txns[0].OrderReference)
}
