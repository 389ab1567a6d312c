package controller

import (
	"strings"

	"onboarding_backend/internals/features/assignments/process_assignments/dto"
	"onboarding_backend/internals/features/assignments/process_assignments/repository"
	"onboarding_backend/internals/features/assignments/process_assignments/service"
	auditService "onboarding_backend/internals/features/audit/audit_logs/service"
	notifService "onboarding_backend/internals/features/home/notifications/service"
	userRepo "onboarding_backend/internals/features/users/user/repository"
	helper "onboarding_backend/internals/helpers"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProcessAssignmentController struct {
	DB  *gorm.DB
	Svc *service.Service
}

func NewProcessAssignmentController(db *gorm.DB) *ProcessAssignmentController {
	return &ProcessAssignmentController{
		DB: db,
		Svc: &service.Service{
			Store:    repository.NewProcessAssignmentRepository(db),
			Users:    userRepo.NewUserRepository(db),
			Notifier: notifService.NewNotifier(db),
			Audit:    auditService.NewRecorder(db),
		},
	}
}

func parseID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "ID de atribuição inválido")
	}
	return id, nil
}

// POST /api/assignments
func (ctrl *ProcessAssignmentController) Create(c *fiber.Ctx) error {
	actor, err := helper.ActorFromLocals(c)
	if err != nil {
		return helper.FromError(c, err)
	}
	var req dto.CreateAssignmentRequest
	if ok, err := helper.ParseAndValidate(c, &req); !ok {
		return err
	}

	out, err := ctrl.Svc.Create(c.UserContext(), actor, service.CreateInput{
		ProcessType:  req.ProcessType,
		ProcessID:    req.ProcessID,
		StageID:      req.StageID,
		AssignedTo:   req.AssignedTo,
		RequiredRole: req.RequiredRole,
		Notes:        req.Notes,
	})
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonCreated(c, "Atribuição criada com sucesso", out)
}

// GET /api/assignments?status=&assigned_to=&process_type=&process_id=&page=&per_page=
func (ctrl *ProcessAssignmentController) List(c *fiber.Ctx) error {
	actor, err := helper.ActorFromLocals(c)
	if err != nil {
		return helper.FromError(c, err)
	}
	f := service.ListFilter{
		Status:      c.Query("status"),
		ProcessType: c.Query("process_type"),
		ProcessID:   c.Query("process_id"),
	}
	if s := strings.TrimSpace(c.Query("assigned_to")); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return helper.JsonError(c, fiber.StatusBadRequest, "assigned_to inválido")
		}
		f.AssignedTo = &id
	}

	p := helper.ResolvePaging(c, 20, 100)
	rows, total, err := ctrl.Svc.List(c.UserContext(), actor, f, p)
	if err != nil {
		return helper.FromError(c, err)
	}
	pg := helper.BuildPaginationFromPage(total, p.Page, p.PerPage)
	return helper.JsonList(c, "Atribuições", rows, &pg)
}

// GET /api/assignments/my?status=
func (ctrl *ProcessAssignmentController) ListMine(c *fiber.Ctx) error {
	actor, err := helper.ActorFromLocals(c)
	if err != nil {
		return helper.FromError(c, err)
	}
	p := helper.ResolvePaging(c, 20, 100)
	rows, total, err := ctrl.Svc.ListMine(c.UserContext(), actor, c.Query("status"), p)
	if err != nil {
		return helper.FromError(c, err)
	}
	pg := helper.BuildPaginationFromPage(total, p.Page, p.PerPage)
	return helper.JsonList(c, "Minhas atribuições", rows, &pg)
}

// GET /api/assignments/check/:processType/:processId
func (ctrl *ProcessAssignmentController) CheckActive(c *fiber.Ctx) error {
	actor, err := helper.ActorFromLocals(c)
	if err != nil {
		return helper.FromError(c, err)
	}
	out, err := ctrl.Svc.CheckActive(c.UserContext(), actor, c.Params("processType"), c.Params("processId"))
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonOK(c, "ok", out)
}

// GET /api/assignments/:id
func (ctrl *ProcessAssignmentController) Get(c *fiber.Ctx) error {
	actor, err := helper.ActorFromLocals(c)
	if err != nil {
		return helper.FromError(c, err)
	}
	id, err := parseID(c)
	if err != nil {
		return helper.FromError(c, err)
	}
	out, err := ctrl.Svc.Get(c.UserContext(), actor, id)
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonOK(c, "ok", out)
}

// POST /api/assignments/:id/sign
func (ctrl *ProcessAssignmentController) Sign(c *fiber.Ctx) error {
	actor, err := helper.ActorFromLocals(c)
	if err != nil {
		return helper.FromError(c, err)
	}
	id, err := parseID(c)
	if err != nil {
		return helper.FromError(c, err)
	}
	out, err := ctrl.Svc.Sign(c.UserContext(), actor, id)
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonUpdated(c, "Atribuição assinada com sucesso", out)
}

// POST /api/assignments/:id/reject
func (ctrl *ProcessAssignmentController) Reject(c *fiber.Ctx) error {
	actor, err := helper.ActorFromLocals(c)
	if err != nil {
		return helper.FromError(c, err)
	}
	id, err := parseID(c)
	if err != nil {
		return helper.FromError(c, err)
	}
	var req dto.RejectAssignmentRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return helper.JsonError(c, fiber.StatusBadRequest, "Corpo da requisição inválido")
		}
		req.Normalize()
	}
	out, err := ctrl.Svc.Reject(c.UserContext(), actor, id, req.RejectionReason)
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonUpdated(c, "Atribuição rejeitada", out)
}

// POST /api/assignments/:id/complete
func (ctrl *ProcessAssignmentController) Complete(c *fiber.Ctx) error {
	actor, err := helper.ActorFromLocals(c)
	if err != nil {
		return helper.FromError(c, err)
	}
	id, err := parseID(c)
	if err != nil {
		return helper.FromError(c, err)
	}
	out, err := ctrl.Svc.Complete(c.UserContext(), actor, id)
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonUpdated(c, "Atribuição concluída com sucesso", out)
}

// DELETE /api/assignments/:id
func (ctrl *ProcessAssignmentController) Delete(c *fiber.Ctx) error {
	actor, err := helper.ActorFromLocals(c)
	if err != nil {
		return helper.FromError(c, err)
	}
	id, err := parseID(c)
	if err != nil {
		return helper.FromError(c, err)
	}
	if err := ctrl.Svc.Delete(c.UserContext(), actor, id); err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonDeleted(c, "Atribuição deletada com sucesso", fiber.Map{"id": id})
}
