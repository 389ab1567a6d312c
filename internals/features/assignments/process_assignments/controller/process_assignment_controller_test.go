package controller

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"onboarding_backend/internals/constants"
	"onboarding_backend/internals/features/assignments/process_assignments/model"
	"onboarding_backend/internals/features/assignments/process_assignments/repository"
	"onboarding_backend/internals/features/assignments/process_assignments/service"
	userModel "onboarding_backend/internals/features/users/user/model"
	userRepo "onboarding_backend/internals/features/users/user/repository"
	helper "onboarding_backend/internals/helpers"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	rows map[uuid.UUID]model.ProcessAssignmentModel
}

func (s *stubStore) FindByID(_ context.Context, id uuid.UUID) (*model.ProcessAssignmentModel, error) {
	r, ok := s.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (s *stubStore) FindActive(context.Context, string, string) (*model.ProcessAssignmentModel, error) {
	return nil, repository.ErrNotFound
}

func (s *stubStore) List(context.Context, repository.ListFilter, int, int) ([]model.ProcessAssignmentModel, int64, error) {
	return nil, 0, nil
}

func (s *stubStore) Create(_ context.Context, m *model.ProcessAssignmentModel) (*model.ProcessAssignmentModel, error) {
	m.ID = uuid.New()
	s.rows[m.ID] = *m
	return m, nil
}

func (s *stubStore) Transition(_ context.Context, id uuid.UUID, from []model.AssignmentStatus, p repository.Patch) error {
	r := s.rows[id]
	for _, st := range from {
		if r.Status == st {
			r.Status = p.Status
			s.rows[id] = r
			return nil
		}
	}
	return repository.ErrStale
}

func (s *stubStore) Delete(_ context.Context, id uuid.UUID, _ []model.AssignmentStatus) error {
	delete(s.rows, id)
	return nil
}

type stubUsers map[uuid.UUID]userModel.UserModel

func (u stubUsers) FindByID(_ context.Context, id uuid.UUID) (*userModel.UserModel, error) {
	r, ok := u[id]
	if !ok {
		return nil, userRepo.ErrNotFound
	}
	return &r, nil
}

func (u stubUsers) FindByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]userModel.UserModel, error) {
	out := map[uuid.UUID]userModel.UserModel{}
	for _, id := range ids {
		if r, ok := u[id]; ok {
			out[id] = r
		}
	}
	return out, nil
}

type fixture struct {
	app      *fiber.App
	store    *stubStore
	assignee uuid.UUID
	assigner uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    &stubStore{rows: map[uuid.UUID]model.ProcessAssignmentModel{}},
		assignee: uuid.New(),
		assigner: uuid.New(),
	}
	users := stubUsers{
		f.assignee: {ID: f.assignee, Name: "Ana", Role: "contador", PermissionLevel: constants.PermissionAnalyst, IsActive: true},
		f.assigner: {ID: f.assigner, Name: "Otto", PermissionLevel: constants.PermissionOperator, IsActive: true},
	}
	ctrl := &ProcessAssignmentController{Svc: &service.Service{Store: f.store, Users: users}}

	app := fiber.New()
	// X-Test-User / X-Test-Level stand in for the auth middleware
	app.Use(func(c *fiber.Ctx) error {
		if id := c.Get("X-Test-User"); id != "" {
			c.Locals(helper.LocUserID, id)
			c.Locals(helper.LocPermissionLevel, c.Get("X-Test-Level"))
		}
		return c.Next()
	})
	g := app.Group("/api/assignments")
	g.Post("/", ctrl.Create)
	g.Get("/:id", ctrl.Get)
	g.Post("/:id/sign", ctrl.Sign)
	g.Post("/:id/reject", ctrl.Reject)
	g.Delete("/:id", ctrl.Delete)
	f.app = app
	return f
}

func (f *fixture) seed(status model.AssignmentStatus) uuid.UUID {
	id := uuid.New()
	f.store.rows[id] = model.ProcessAssignmentModel{
		ID: id, ProcessType: "onboarding", ProcessID: "p-1",
		AssignedTo: f.assignee, AssignedBy: f.assigner,
		Status: status, CreatedAt: time.Now(),
	}
	return id
}

func (f *fixture) do(t *testing.T, method, path string, user uuid.UUID, level, body string) (int, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != uuid.Nil {
		req.Header.Set("X-Test-User", user.String())
		req.Header.Set("X-Test-Level", level)
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func TestUnauthenticatedIsRejected(t *testing.T) {
	f := newFixture(t)
	code, body := f.do(t, http.MethodGet, "/api/assignments/"+uuid.NewString(), uuid.Nil, "", "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, false, body["success"])
}

func TestInvalidIDIsBadRequest(t *testing.T) {
	f := newFixture(t)
	code, body := f.do(t, http.MethodPost, "/api/assignments/not-a-uuid/sign", f.assignee, constants.PermissionAnalyst, "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "ID de atribuição inválido", body["message"])
}

func TestGetUnknownIsNotFound(t *testing.T) {
	f := newFixture(t)
	code, body := f.do(t, http.MethodGet, "/api/assignments/"+uuid.NewString(), f.assignee, constants.PermissionAdmin, "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "NOT_FOUND", body["error_code"])
}

func TestCreateHandler(t *testing.T) {
	f := newFixture(t)

	t.Run("analyst is forbidden", func(t *testing.T) {
		body := `{"process_type":"onboarding","process_id":"p-9","assigned_to":"` + f.assignee.String() + `"}`
		code, _ := f.do(t, http.MethodPost, "/api/assignments/", f.assignee, constants.PermissionAnalyst, body)
		assert.Equal(t, http.StatusForbidden, code)
	})

	t.Run("missing fields fail validation", func(t *testing.T) {
		code, body := f.do(t, http.MethodPost, "/api/assignments/", f.assigner, constants.PermissionOperator, `{"process_type":"  "}`)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "VALIDATION_ERROR", body["error_code"])
	})

	t.Run("role mismatch carries both roles", func(t *testing.T) {
		body := `{"process_type":"onboarding","process_id":"p-9","assigned_to":"` + f.assignee.String() + `","required_role":"auditor"}`
		code, out := f.do(t, http.MethodPost, "/api/assignments/", f.assigner, constants.PermissionOperator, body)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "ROLE_MISMATCH", out["error_code"])
		assert.Equal(t, "auditor", out["required_role"])
		assert.Equal(t, "contador", out["user_role"])
	})

	t.Run("created", func(t *testing.T) {
		body := `{"process_type":"onboarding","process_id":"p-9","assigned_to":"` + f.assignee.String() + `","required_role":"contador"}`
		code, out := f.do(t, http.MethodPost, "/api/assignments/", f.assigner, constants.PermissionOperator, body)
		require.Equal(t, http.StatusCreated, code)
		data := out["data"].(map[string]any)
		assert.Equal(t, "pending", data["status"])
		assert.Equal(t, f.assigner.String(), data["assigned_by"])
	})
}

func TestSignHandler(t *testing.T) {
	f := newFixture(t)
	id := f.seed(model.StatusPending)

	code, _ := f.do(t, http.MethodPost, "/api/assignments/"+id.String()+"/sign", f.assigner, constants.PermissionOperator, "")
	assert.Equal(t, http.StatusForbidden, code)

	code, out := f.do(t, http.MethodPost, "/api/assignments/"+id.String()+"/sign", f.assignee, constants.PermissionAnalyst, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "signed", out["data"].(map[string]any)["status"])

	code, out = f.do(t, http.MethodPost, "/api/assignments/"+id.String()+"/sign", f.assignee, constants.PermissionAnalyst, "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "INVALID_STATE", out["error_code"])
	assert.Equal(t, "signed", out["current_status"])
}

func TestRejectHandlerRequiresReason(t *testing.T) {
	f := newFixture(t)
	id := f.seed(model.StatusPending)

	for _, body := range []string{"", `{}`, `{"rejection_reason":"   "}`} {
		code, out := f.do(t, http.MethodPost, "/api/assignments/"+id.String()+"/reject", f.assignee, constants.PermissionAnalyst, body)
		assert.Equal(t, http.StatusBadRequest, code, body)
		assert.Equal(t, "VALIDATION_ERROR", out["error_code"], body)
	}
	assert.Equal(t, model.StatusPending, f.store.rows[id].Status)

	code, out := f.do(t, http.MethodPost, "/api/assignments/"+id.String()+"/reject", f.assignee, constants.PermissionAnalyst, `{"rejection_reason":"documentos faltando"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "rejected", out["data"].(map[string]any)["status"])
}

func TestRejectHandlerAcceptsCamelCaseReason(t *testing.T) {
	f := newFixture(t)
	id := f.seed(model.StatusPending)

	code, out := f.do(t, http.MethodPost, "/api/assignments/"+id.String()+"/reject", f.assignee, constants.PermissionAnalyst, `{"rejectionReason":"  cliente desistiu "}`)
	require.Equal(t, http.StatusOK, code, out)
	data := out["data"].(map[string]any)
	assert.Equal(t, "rejected", data["status"])
	assert.Equal(t, "cliente desistiu", data["rejection_reason"])
}

func TestCreateHandlerAcceptsCamelCaseBody(t *testing.T) {
	f := newFixture(t)
	body := `{"processType":"onboarding_stage","processId":"c1","stageId":"s1","assignedTo":"` + f.assignee.String() + `","requiredRole":"contador"}`

	code, out := f.do(t, http.MethodPost, "/api/assignments/", f.assigner, constants.PermissionOperator, body)
	require.Equal(t, http.StatusCreated, code, out)
	data := out["data"].(map[string]any)
	assert.Equal(t, "onboarding_stage", data["process_type"])
	assert.Equal(t, "c1", data["process_id"])
	assert.Equal(t, "s1", data["stage_id"])
	assert.Equal(t, f.assignee.String(), data["assigned_to"])
}

func TestDeleteCompletedIsRefused(t *testing.T) {
	f := newFixture(t)
	id := f.seed(model.StatusCompleted)

	code, out := f.do(t, http.MethodDelete, "/api/assignments/"+id.String(), uuid.New(), constants.PermissionAdmin, "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Não é possível deletar atribuição concluída", out["message"])
	assert.Contains(t, f.store.rows, id)
}
