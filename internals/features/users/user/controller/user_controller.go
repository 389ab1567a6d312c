package controller

import (
	"errors"
	"log"
	"strings"

	"onboarding_backend/internals/constants"
	auditService "onboarding_backend/internals/features/audit/audit_logs/service"
	authHelper "onboarding_backend/internals/features/users/auth/helper"
	"onboarding_backend/internals/features/users/user/dto"
	"onboarding_backend/internals/features/users/user/model"
	"onboarding_backend/internals/features/users/user/repository"
	helper "onboarding_backend/internals/helpers"
	"onboarding_backend/internals/helpers/authz"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserController struct {
	DB    *gorm.DB
	Repo  *repository.UserRepository
	Audit *auditService.Recorder
}

func NewUserController(db *gorm.DB) *UserController {
	return &UserController{
		DB:    db,
		Repo:  repository.NewUserRepository(db),
		Audit: auditService.NewRecorder(db),
	}
}

// POST /api/users
func (uc *UserController) CreateUser(c *fiber.Ctx) error {
	actor, err := helper.ActorFromLocals(c)
	if err != nil {
		return helper.FromError(c, err)
	}

	var req dto.CreateUserRequest
	if ok, err := helper.ParseAndValidate(c, &req); !ok {
		return err
	}

	hash, err := authHelper.HashPassword(req.Password)
	if err != nil {
		log.Printf("[ERROR] hash password: %v", err)
		return helper.JsonError(c, fiber.StatusInternalServerError, "Erro ao processar senha")
	}

	user := model.UserModel{
		Name:            req.Name,
		Email:           req.Email,
		Password:        hash,
		Role:            req.Role,
		PermissionLevel: req.PermissionLevel,
		IsActive:        true,
	}
	if err := uc.Repo.Create(c.UserContext(), &user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return helper.JsonError(c, fiber.StatusConflict, "Email já cadastrado")
		}
		log.Printf("[ERROR] create user: %v", err)
		return helper.JsonError(c, fiber.StatusInternalServerError, "Erro ao criar usuário")
	}

	resp := dto.FromModel(user)
	e := auditService.EntryFor(actor, constants.AuditUserCreate, constants.EntityUser, user.ID.String())
	e.New = resp
	uc.Audit.Record(c.UserContext(), e)

	return helper.JsonCreated(c, "Usuário criado com sucesso", resp)
}

// GET /api/users?q=&permission_level=&is_active=&page=&per_page=
func (uc *UserController) ListUsers(c *fiber.Ctx) error {
	p := helper.ResolvePaging(c, 20, 100)
	f := repository.ListFilter{
		Search:          c.Query("q"),
		PermissionLevel: strings.TrimSpace(c.Query("permission_level")),
	}
	if v := strings.TrimSpace(c.Query("is_active")); v != "" {
		b := v == "true" || v == "1"
		f.IsActive = &b
	}

	users, total, err := uc.Repo.List(c.UserContext(), f, p.Offset, p.Limit)
	if err != nil {
		log.Printf("[ERROR] list users: %v", err)
		return helper.JsonError(c, fiber.StatusInternalServerError, "Erro ao buscar usuários")
	}
	pg := helper.BuildPaginationFromPage(total, p.Page, p.PerPage)
	return helper.JsonList(c, "Usuários", dto.FromModels(users), &pg)
}

// PATCH /api/users/:id/status
func (uc *UserController) UpdateStatus(c *fiber.Ctx) error {
	actor, err := helper.ActorFromLocals(c)
	if err != nil {
		return helper.FromError(c, err)
	}
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "ID inválido")
	}

	var req dto.UpdateUserStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Corpo da requisição inválido")
	}
	if req.IsActive == nil && req.IsBlocked == nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Informe is_active e/ou is_blocked")
	}
	if id == actor.ID && ((req.IsActive != nil && !*req.IsActive) || (req.IsBlocked != nil && *req.IsBlocked)) {
		return helper.JsonError(c, fiber.StatusBadRequest, "Você não pode desativar a própria conta")
	}

	before, err := uc.Repo.FindByID(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return helper.JsonError(c, fiber.StatusNotFound, "Usuário não encontrado")
		}
		log.Printf("[ERROR] find user: %v", err)
		return helper.JsonError(c, fiber.StatusInternalServerError, "Erro ao buscar usuário")
	}

	if err := uc.Repo.UpdateStatus(c.UserContext(), id, req.IsActive, req.IsBlocked); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return helper.JsonError(c, fiber.StatusNotFound, "Usuário não encontrado")
		}
		log.Printf("[ERROR] update user status: %v", err)
		return helper.JsonError(c, fiber.StatusInternalServerError, "Erro ao atualizar usuário")
	}

	after, err := uc.Repo.FindByID(c.UserContext(), id)
	if err != nil {
		log.Printf("[ERROR] reload user: %v", err)
		return helper.JsonError(c, fiber.StatusInternalServerError, "Erro ao buscar usuário")
	}

	e := auditService.EntryFor(actor, constants.AuditUserStatus, constants.EntityUser, id.String())
	e.Old = fiber.Map{"is_active": before.IsActive, "is_blocked": before.IsBlocked}
	e.New = fiber.Map{"is_active": after.IsActive, "is_blocked": after.IsBlocked}
	uc.Audit.Record(c.UserContext(), e)

	return helper.JsonUpdated(c, "Status atualizado", dto.FromModel(*after))
}

func relationsTo(actor helper.Actor, id uuid.UUID) []authz.Relation {
	if actor.ID == id {
		return []authz.Relation{authz.RelSelf}
	}
	return nil
}

func (uc *UserController) findUser(c *fiber.Ctx, id uuid.UUID) (*model.UserModel, error) {
	u, err := uc.Repo.FindByID(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, helper.JsonError(c, fiber.StatusNotFound, "Usuário não encontrado")
		}
		log.Printf("[ERROR] find user: %v", err)
		return nil, helper.JsonError(c, fiber.StatusInternalServerError, "Erro ao buscar usuário")
	}
	return u, nil
}

// GET /api/users/:id (admin or self)
func (uc *UserController) GetUser(c *fiber.Ctx) error {
	actor, err := helper.ActorFromLocals(c)
	if err != nil {
		return helper.FromError(c, err)
	}
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "ID inválido")
	}
	if !authz.Allow(authz.UserView, actor.PermissionLevel, relationsTo(actor, id)...) {
		return helper.JsonError(c, fiber.StatusForbidden, "Acesso negado")
	}
	user, err := uc.findUser(c, id)
	if user == nil {
		return err
	}
	return helper.JsonOK(c, "ok", dto.FromModel(*user))
}

// PUT /api/users/:id (admin or self; role, level and flags are admin-only)
func (uc *UserController) UpdateUser(c *fiber.Ctx) error {
	actor, err := helper.ActorFromLocals(c)
	if err != nil {
		return helper.FromError(c, err)
	}
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "ID inválido")
	}
	rels := relationsTo(actor, id)
	if !authz.Allow(authz.UserUpdate, actor.PermissionLevel, rels...) {
		return helper.JsonError(c, fiber.StatusForbidden, "Acesso negado")
	}

	var req dto.UpdateUserRequest
	if ok, err := helper.ParseAndValidate(c, &req); !ok {
		return err
	}
	if req.AdminOnly() && !authz.Allow(authz.UserManage, actor.PermissionLevel, rels...) {
		return helper.JsonError(c, fiber.StatusForbidden, "Apenas administradores podem alterar função, permissão ou status")
	}
	if id == actor.ID && ((req.IsActive != nil && !*req.IsActive) || (req.IsBlocked != nil && *req.IsBlocked)) {
		return helper.JsonError(c, fiber.StatusBadRequest, "Você não pode desativar a própria conta")
	}

	before, err := uc.findUser(c, id)
	if before == nil {
		return err
	}
	err = uc.Repo.UpdateProfile(c.UserContext(), id, repository.ProfileUpdate{
		Name:            req.Name,
		Email:           req.Email,
		Role:            req.Role,
		PermissionLevel: req.PermissionLevel,
		IsActive:        req.IsActive,
		IsBlocked:       req.IsBlocked,
	})
	switch {
	case errors.Is(err, repository.ErrEmailTaken):
		return helper.JsonError(c, fiber.StatusConflict, "Email já cadastrado")
	case errors.Is(err, repository.ErrNotFound):
		return helper.JsonError(c, fiber.StatusNotFound, "Usuário não encontrado")
	case err != nil:
		log.Printf("[ERROR] update user: %v", err)
		return helper.JsonError(c, fiber.StatusInternalServerError, "Erro ao atualizar usuário")
	}

	after, err := uc.findUser(c, id)
	if after == nil {
		return err
	}

	e := auditService.EntryFor(actor, constants.AuditUserUpdate, constants.EntityUser, id.String())
	e.Old = dto.FromModel(*before)
	e.New = dto.FromModel(*after)
	uc.Audit.Record(c.UserContext(), e)

	return helper.JsonUpdated(c, "Usuário atualizado com sucesso", dto.FromModel(*after))
}

// DELETE /api/users/:id (admin, never self)
func (uc *UserController) DeleteUser(c *fiber.Ctx) error {
	actor, err := helper.ActorFromLocals(c)
	if err != nil {
		return helper.FromError(c, err)
	}
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "ID inválido")
	}
	if !authz.Allow(authz.UserDelete, actor.PermissionLevel) {
		return helper.JsonError(c, fiber.StatusForbidden, "Acesso negado")
	}
	if id == actor.ID {
		return helper.JsonError(c, fiber.StatusBadRequest, "Você não pode excluir a própria conta")
	}

	before, err := uc.findUser(c, id)
	if before == nil {
		return err
	}
	if err := uc.Repo.Delete(c.UserContext(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return helper.JsonError(c, fiber.StatusNotFound, "Usuário não encontrado")
		}
		log.Printf("[ERROR] delete user: %v", err)
		return helper.JsonError(c, fiber.StatusInternalServerError, "Erro ao excluir usuário")
	}

	e := auditService.EntryFor(actor, constants.AuditUserDelete, constants.EntityUser, id.String())
	e.Old = dto.FromModel(*before)
	uc.Audit.Record(c.UserContext(), e)

	return helper.JsonDeleted(c, "Usuário excluído com sucesso", fiber.Map{"id": id})
}
