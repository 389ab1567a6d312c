package service

import (
	"context"
	"errors"
	"testing"

	"onboarding_backend/internals/databases/dbtest"
	helper "onboarding_backend/internals/helpers"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestEntryForCopiesRequestMetadata(t *testing.T) {
	a := helper.Actor{ID: uuid.New(), IP: "10.0.0.1", UserAgent: "curl/8", RequestID: "01HZ"}
	e := EntryFor(a, "assignment_sign", "assignment", "a-1")
	assert.Equal(t, a.ID, e.UserID)
	assert.Equal(t, "10.0.0.1", e.IP)
	assert.Equal(t, "curl/8", e.UserAgent)
	assert.Equal(t, "01HZ", e.RequestID)
	assert.Equal(t, "a-1", e.EntityID)
}

func TestSnapshot(t *testing.T) {
	assert.Nil(t, snapshot(nil))
	assert.JSONEq(t, `{"status":"signed"}`, string(snapshot(map[string]string{"status": "signed"})))
}

func TestRecordInsertsAndSwallowsErrors(t *testing.T) {
	db, mock := dbtest.New(t)
	rec := NewRecorder(db)

	mock.ExpectQuery(`INSERT INTO "audit_logs"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.NewString()))
	rec.Record(context.Background(), Entry{UserID: uuid.New(), Action: "login", Entity: "user", New: map[string]int{"n": 1}})

	mock.ExpectQuery(`INSERT INTO "audit_logs"`).WillReturnError(errors.New("disk full"))
	assert.NotPanics(t, func() {
		rec.Record(context.Background(), Entry{Action: "login_failed", Entity: "user"})
	})
}
