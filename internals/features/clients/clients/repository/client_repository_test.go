package repository

import (
	"context"
	"testing"
	"time"

	"onboarding_backend/internals/databases/dbtest"
	"onboarding_backend/internals/features/clients/clients/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient() *model.ClientModel {
	return &model.ClientModel{CompanyName: "Padaria Pão Quente", CNPJ: "12345678000190", Status: model.ClientOnboarding}
}

func TestCreateClientOpensInitialStage(t *testing.T) {
	db, mock := dbtest.New(t)
	repo := NewClientRepository(db)
	clientID, stageID := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "clients" WHERE cnpj = \$1`).
		WithArgs("12345678000190").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`INSERT INTO "clients"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(clientID.String()))
	mock.ExpectQuery(`INSERT INTO "onboarding_stages"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(stageID.String()))
	mock.ExpectCommit()

	c := newClient()
	stage, err := repo.Create(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, clientID, c.ID)
	assert.Equal(t, stageID, stage.ID)
	assert.Equal(t, clientID, stage.ClientID)
}

func TestCreateClientDuplicateCNPJ(t *testing.T) {
	t.Run("seen by the count", func(t *testing.T) {
		db, mock := dbtest.New(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT count\(\*\) FROM "clients"`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectRollback()

		_, err := NewClientRepository(db).Create(context.Background(), newClient())
		assert.ErrorIs(t, err, ErrDuplicateCNPJ)
	})

	t.Run("lost to a concurrent insert", func(t *testing.T) {
		db, mock := dbtest.New(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT count\(\*\) FROM "clients"`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery(`INSERT INTO "clients"`).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "uq_clients_cnpj"})
		mock.ExpectRollback()

		_, err := NewClientRepository(db).Create(context.Background(), newClient())
		assert.ErrorIs(t, err, ErrDuplicateCNPJ)
	})
}

func TestUpdateStageClearsCompletedDate(t *testing.T) {
	db, mock := dbtest.New(t)
	repo := NewClientRepository(db)
	id := uuid.New()
	st := model.StageInProgress

	mock.ExpectExec(`UPDATE "onboarding_stages" SET "completed_date"=NULL,"status"=\$1,"updated_at"=\$2 WHERE id = \$3`).
		WithArgs(st, sqlmock.AnyArg(), id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStage(context.Background(), id, StagePatch{Status: &st, ClearCompleted: true}))
}

func TestUpdateStageMissing(t *testing.T) {
	db, mock := dbtest.New(t)
	repo := NewClientRepository(db)
	now := time.Now()

	mock.ExpectExec(`UPDATE "onboarding_stages" SET "scheduled_date"=\$1`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStage(context.Background(), uuid.New(), StagePatch{ScheduledDate: &now})
	assert.ErrorIs(t, err, ErrStageNotFound)
}

func TestDeleteClientMissing(t *testing.T) {
	db, mock := dbtest.New(t)
	mock.ExpectExec(`DELETE FROM "clients" WHERE id = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, NewClientRepository(db).Delete(context.Background(), uuid.New()), ErrNotFound)
}

func TestCurrentStagesSkipsEmptyInput(t *testing.T) {
	db, _ := dbtest.New(t)
	out, err := NewClientRepository(db).CurrentStages(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}
