package controller

import (
	"strings"

	assignmentRepo "onboarding_backend/internals/features/assignments/process_assignments/repository"
	assignmentService "onboarding_backend/internals/features/assignments/process_assignments/service"
	auditService "onboarding_backend/internals/features/audit/audit_logs/service"
	"onboarding_backend/internals/features/clients/clients/dto"
	"onboarding_backend/internals/features/clients/clients/repository"
	"onboarding_backend/internals/features/clients/clients/service"
	notifService "onboarding_backend/internals/features/home/notifications/service"
	userRepo "onboarding_backend/internals/features/users/user/repository"
	helper "onboarding_backend/internals/helpers"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ClientController struct {
	DB  *gorm.DB
	Svc *service.Service
}

// NewClientController gates stage edits on the assignment service.
func NewClientController(db *gorm.DB) *ClientController {
	users := userRepo.NewUserRepository(db)
	audit := auditService.NewRecorder(db)
	return &ClientController{
		DB: db,
		Svc: &service.Service{
			Store: repository.NewClientRepository(db),
			Users: users,
			Gate: &assignmentService.Service{
				Store:    assignmentRepo.NewProcessAssignmentRepository(db),
				Users:    users,
				Notifier: notifService.NewNotifier(db),
				Audit:    audit,
			},
			Audit: audit,
		},
	}
}

func parseID(c *fiber.Ctx, msg string) (uuid.UUID, error) {
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, msg)
	}
	return id, nil
}

// GET /api/clients?search=&status=&assignee_id=&page=&per_page=
func (ctrl *ClientController) List(c *fiber.Ctx) error {
	f := service.ListFilter{
		Search: c.Query("search"),
		Status: strings.TrimSpace(c.Query("status")),
	}
	if s := strings.TrimSpace(c.Query("assignee_id")); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return helper.JsonError(c, fiber.StatusBadRequest, "assignee_id inválido")
		}
		f.AssigneeID = &id
	}

	p := helper.ResolvePaging(c, 20, 100)
	rows, total, err := ctrl.Svc.List(c.UserContext(), f, p)
	if err != nil {
		return helper.FromError(c, err)
	}
	pg := helper.BuildPaginationFromPage(total, p.Page, p.PerPage)
	return helper.JsonList(c, "Clientes", rows, &pg)
}

// GET /api/clients/:id
func (ctrl *ClientController) Get(c *fiber.Ctx) error {
	id, err := parseID(c, "ID de cliente inválido")
	if err != nil {
		return helper.FromError(c, err)
	}
	out, err := ctrl.Svc.Get(c.UserContext(), id)
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonOK(c, "ok", out)
}

// POST /api/clients
func (ctrl *ClientController) Create(c *fiber.Ctx) error {
	actor, err := helper.ActorFromLocals(c)
	if err != nil {
		return helper.FromError(c, err)
	}
	var req dto.CreateClientRequest
	if ok, err := helper.ParseAndValidate(c, &req); !ok {
		return err
	}
	out, err := ctrl.Svc.Create(c.UserContext(), actor, req)
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonCreated(c, "Cliente criado com sucesso", out)
}

// PUT /api/clients/:id
func (ctrl *ClientController) Update(c *fiber.Ctx) error {
	actor, err := helper.ActorFromLocals(c)
	if err != nil {
		return helper.FromError(c, err)
	}
	id, err := parseID(c, "ID de cliente inválido")
	if err != nil {
		return helper.FromError(c, err)
	}
	var req dto.UpdateClientRequest
	if ok, err := helper.ParseAndValidate(c, &req); !ok {
		return err
	}
	out, err := ctrl.Svc.Update(c.UserContext(), actor, id, req)
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonUpdated(c, "Cliente atualizado com sucesso", out)
}

// DELETE /api/clients/:id
func (ctrl *ClientController) Delete(c *fiber.Ctx) error {
	actor, err := helper.ActorFromLocals(c)
	if err != nil {
		return helper.FromError(c, err)
	}
	id, err := parseID(c, "ID de cliente inválido")
	if err != nil {
		return helper.FromError(c, err)
	}
	if err := ctrl.Svc.Delete(c.UserContext(), actor, id); err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonDeleted(c, "Cliente excluído com sucesso", fiber.Map{"id": id})
}

// GET /api/clients/:id/onboarding
func (ctrl *ClientController) Stages(c *fiber.Ctx) error {
	id, err := parseID(c, "ID de cliente inválido")
	if err != nil {
		return helper.FromError(c, err)
	}
	out, err := ctrl.Svc.Stages(c.UserContext(), id)
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonOK(c, "Etapas de onboarding", out)
}

// PUT /api/onboarding/:id
func (ctrl *ClientController) UpdateStage(c *fiber.Ctx) error {
	actor, err := helper.ActorFromLocals(c)
	if err != nil {
		return helper.FromError(c, err)
	}
	id, err := parseID(c, "ID de etapa inválido")
	if err != nil {
		return helper.FromError(c, err)
	}
	var req dto.UpdateStageRequest
	if ok, err := helper.ParseAndValidate(c, &req); !ok {
		return err
	}
	out, err := ctrl.Svc.UpdateStage(c.UserContext(), actor, id, req)
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonUpdated(c, "Etapa de onboarding atualizada", out)
}
