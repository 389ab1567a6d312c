package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"onboarding_backend/internals/constants"
	assignmentDTO "onboarding_backend/internals/features/assignments/process_assignments/dto"
	auditService "onboarding_backend/internals/features/audit/audit_logs/service"
	"onboarding_backend/internals/features/clients/clients/dto"
	"onboarding_backend/internals/features/clients/clients/model"
	"onboarding_backend/internals/features/clients/clients/repository"
	userModel "onboarding_backend/internals/features/users/user/model"
	userRepo "onboarding_backend/internals/features/users/user/repository"
	helper "onboarding_backend/internals/helpers"
	"onboarding_backend/internals/helpers/apperr"
	"onboarding_backend/internals/helpers/authz"

	"github.com/google/uuid"
)

type ClientStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.ClientModel, error)
	List(ctx context.Context, f repository.ListFilter, offset, limit int) ([]model.ClientModel, int64, error)
	Create(ctx context.Context, c *model.ClientModel) (*model.OnboardingStageModel, error)
	Update(ctx context.Context, id uuid.UUID, p repository.Patch) error
	Delete(ctx context.Context, id uuid.UUID) error
	Stages(ctx context.Context, clientID uuid.UUID) ([]model.OnboardingStageModel, error)
	CurrentStages(ctx context.Context, clientIDs []uuid.UUID) (map[uuid.UUID]model.OnboardingStageModel, error)
	FindStage(ctx context.Context, id uuid.UUID) (*model.OnboardingStageModel, error)
	UpdateStage(ctx context.Context, id uuid.UUID, p repository.StagePatch) error
}

type UserDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*userModel.UserModel, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]userModel.UserModel, error)
}

// EditGate answers whether the caller may edit a process right now; the
// assignment service implements it.
type EditGate interface {
	CheckActive(ctx context.Context, actor helper.Actor, processType, processID string) (*assignmentDTO.CheckActiveResponse, error)
}

type Auditor interface {
	Record(ctx context.Context, e auditService.Entry)
}

type Service struct {
	Store ClientStore
	Users UserDirectory
	// nil leaves stage edits ungated
	Gate   EditGate
	Audit  Auditor
	Policy *authz.Policy
	Now    func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *Service) allow(action authz.Action, actor helper.Actor) bool {
	if s.Policy != nil {
		return s.Policy.Allow(action, actor.PermissionLevel)
	}
	return authz.Allow(action, actor.PermissionLevel)
}

func (s *Service) audit(ctx context.Context, e auditService.Entry) {
	if s.Audit != nil {
		s.Audit.Record(ctx, e)
	}
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*model.ClientModel, error) {
	c, err := s.Store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("Cliente não encontrado")
		}
		return nil, apperr.Internal("Erro ao buscar cliente", err)
	}
	return c, nil
}

func duplicateCNPJ(cnpj string) error {
	return apperr.Conflict(fmt.Sprintf("Cliente com CNPJ %s já está cadastrado", cnpj)).With("cnpj", cnpj)
}

// checkAssignee refuses unknown, inactive or blocked users.
func (s *Service) checkAssignee(ctx context.Context, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	u, err := s.Users.FindByID(ctx, *id)
	if err != nil {
		if errors.Is(err, userRepo.ErrNotFound) {
			return apperr.NotFound("Responsável não encontrado")
		}
		return apperr.Internal("Erro ao buscar responsável", err)
	}
	if !u.IsActive || u.IsBlocked {
		return apperr.Validation("Responsável está inativo")
	}
	return nil
}

// views attaches assignee summaries and current stages. Lookup failures
// only drop the extras.
func (s *Service) views(ctx context.Context, rows []model.ClientModel) []dto.ClientResponse {
	ids := make([]uuid.UUID, 0, len(rows))
	var assignees []uuid.UUID
	for _, c := range rows {
		ids = append(ids, c.ID)
		if c.AssigneeID != nil {
			assignees = append(assignees, *c.AssigneeID)
		}
	}
	stages, err := s.Store.CurrentStages(ctx, ids)
	if err != nil {
		log.Printf("[WARN] current stages: %v", err)
	}
	users := map[uuid.UUID]userModel.UserModel{}
	if len(assignees) > 0 && s.Users != nil {
		if users, err = s.Users.FindByIDs(ctx, assignees); err != nil {
			log.Printf("[WARN] client assignees: %v", err)
		}
	}

	out := make([]dto.ClientResponse, 0, len(rows))
	for _, c := range rows {
		v := dto.FromModel(c)
		if st, ok := stages[c.ID]; ok {
			sv := dto.FromStage(st)
			v.CurrentStage = &sv
		}
		if c.AssigneeID != nil {
			if u, ok := users[*c.AssigneeID]; ok {
				v.Assignee = u.Summary()
			}
		}
		out = append(out, v)
	}
	return out
}

func (s *Service) view(ctx context.Context, c *model.ClientModel) *dto.ClientResponse {
	v := s.views(ctx, []model.ClientModel{*c})[0]
	return &v
}

/* ==========================
   CLIENTS
========================== */

type ListFilter struct {
	Search     string
	Status     string
	AssigneeID *uuid.UUID
}

func (s *Service) List(ctx context.Context, f ListFilter, p helper.Paging) ([]dto.ClientResponse, int64, error) {
	rf := repository.ListFilter{Search: f.Search, AssigneeID: f.AssigneeID}
	if f.Status != "" {
		st := model.ClientStatus(f.Status)
		if !st.IsValid() {
			return nil, 0, apperr.Validation("Status inválido. Use: onboarding, active, inactive, pending")
		}
		rf.Status = st
	}
	rows, total, err := s.Store.List(ctx, rf, p.Offset, p.Limit)
	if err != nil {
		return nil, 0, apperr.Internal("Erro ao buscar clientes", err)
	}
	return s.views(ctx, rows), total, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*dto.ClientResponse, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, c), nil
}

// Create stores the client and opens its initial_meeting stage.
func (s *Service) Create(ctx context.Context, actor helper.Actor, req dto.CreateClientRequest) (*dto.ClientResponse, error) {
	if !s.allow(authz.ClientCreate, actor) {
		return nil, apperr.Forbidden(constants.RoleErrorMinimum(constants.PermissionOperator))
	}
	cnpj := model.NormalizeCNPJ(req.CNPJ)
	if len(cnpj) != 14 {
		return nil, apperr.Validation("CNPJ deve ter 14 dígitos")
	}
	status := model.ClientOnboarding
	if req.Status != "" {
		status = model.ClientStatus(req.Status)
		if !status.IsValid() {
			return nil, apperr.Validation("Status inválido. Use: onboarding, active, inactive, pending")
		}
	}
	if err := s.checkAssignee(ctx, req.AssigneeID); err != nil {
		return nil, err
	}

	c := &model.ClientModel{
		CompanyName:  req.CompanyName,
		CNPJ:         cnpj,
		Sector:       req.Sector,
		ContactName:  req.ContactName,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		Status:       status,
		AssigneeID:   req.AssigneeID,
		Notes:        req.Notes,
	}
	if _, err := s.Store.Create(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicateCNPJ) {
			return nil, duplicateCNPJ(cnpj)
		}
		return nil, apperr.Internal("Erro ao criar cliente", err)
	}

	e := auditService.EntryFor(actor, constants.AuditClientCreate, constants.EntityClient, c.ID.String())
	e.New = c
	s.audit(ctx, e)
	return s.view(ctx, c), nil
}

func (s *Service) Update(ctx context.Context, actor helper.Actor, id uuid.UUID, req dto.UpdateClientRequest) (*dto.ClientResponse, error) {
	if !s.allow(authz.ClientUpdate, actor) {
		return nil, apperr.Forbidden(constants.RoleErrorMinimum(constants.PermissionOperator))
	}
	before, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.AssigneeID != nil && (before.AssigneeID == nil || *before.AssigneeID != *req.AssigneeID) {
		if err := s.checkAssignee(ctx, req.AssigneeID); err != nil {
			return nil, err
		}
	}

	p := repository.Patch{
		CompanyName:  req.CompanyName,
		CNPJ:         req.CNPJ,
		Sector:       req.Sector,
		ContactName:  req.ContactName,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		AssigneeID:   req.AssigneeID,
		Notes:        req.Notes,
	}
	if req.CNPJ != nil && len(*req.CNPJ) != 14 {
		return nil, apperr.Validation("CNPJ deve ter 14 dígitos")
	}
	if req.Status != nil {
		st := model.ClientStatus(*req.Status)
		if !st.IsValid() {
			return nil, apperr.Validation("Status inválido. Use: onboarding, active, inactive, pending")
		}
		p.Status = &st
	}

	if err := s.Store.Update(ctx, id, p); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateCNPJ):
			return nil, duplicateCNPJ(*req.CNPJ)
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperr.NotFound("Cliente não encontrado")
		}
		return nil, apperr.Internal("Erro ao atualizar cliente", err)
	}
	after, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	e := auditService.EntryFor(actor, constants.AuditClientUpdate, constants.EntityClient, id.String())
	e.Old, e.New = before, after
	s.audit(ctx, e)
	return s.view(ctx, after), nil
}

// Delete removes the client and, by cascade, its onboarding stages.
func (s *Service) Delete(ctx context.Context, actor helper.Actor, id uuid.UUID) error {
	if !s.allow(authz.ClientDelete, actor) {
		return apperr.Forbidden("Apenas administradores podem excluir clientes")
	}
	before, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Store.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("Cliente não encontrado")
		}
		return apperr.Internal("Erro ao excluir cliente", err)
	}
	e := auditService.EntryFor(actor, constants.AuditClientDelete, constants.EntityClient, id.String())
	e.Old = before
	s.audit(ctx, e)
	return nil
}

/* ==========================
   ONBOARDING STAGES
========================== */

func (s *Service) Stages(ctx context.Context, clientID uuid.UUID) ([]dto.StageResponse, error) {
	if _, err := s.load(ctx, clientID); err != nil {
		return nil, err
	}
	rows, err := s.Store.Stages(ctx, clientID)
	if err != nil {
		return nil, apperr.Internal("Erro ao buscar etapas de onboarding", err)
	}
	return dto.FromStages(rows), nil
}

// UpdateStage edits a stage of a client's onboarding. Only the holder of
// the client's active onboarding_stage assignment may edit it; without an
// active assignment only administrators may. Completing the stage stamps
// completed_date.
func (s *Service) UpdateStage(ctx context.Context, actor helper.Actor, id uuid.UUID, req dto.UpdateStageRequest) (*dto.StageResponse, error) {
	stage, err := s.Store.FindStage(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrStageNotFound) {
			return nil, apperr.NotFound("Etapa de onboarding não encontrada")
		}
		return nil, apperr.Internal("Erro ao buscar etapa de onboarding", err)
	}
	if s.Gate != nil {
		chk, err := s.Gate.CheckActive(ctx, actor, constants.ProcessOnboardingStage, stage.ClientID.String())
		if err != nil {
			return nil, err
		}
		if !chk.CanEdit {
			return nil, apperr.Forbidden("Você não possui atribuição ativa para editar este onboarding")
		}
	}

	p := repository.StagePatch{ScheduledDate: req.ScheduledDate, Notes: req.Notes}
	if req.Stage != nil {
		name := model.StageName(*req.Stage)
		if !name.IsValid() {
			return nil, apperr.Validation("Etapa inválida")
		}
		p.Stage = &name
	}
	if req.Status != nil {
		st := model.StageStatus(*req.Status)
		if !st.IsValid() {
			return nil, apperr.Validation("Status da etapa inválido")
		}
		p.Status = &st
		switch {
		case st == model.StageDone && stage.Status != model.StageDone:
			now := s.now()
			p.CompletedDate = &now
		case st != model.StageDone && stage.Status == model.StageDone:
			p.ClearCompleted = true
		}
	}

	if err := s.Store.UpdateStage(ctx, id, p); err != nil {
		if errors.Is(err, repository.ErrStageNotFound) {
			return nil, apperr.NotFound("Etapa de onboarding não encontrada")
		}
		return nil, apperr.Internal("Erro ao atualizar etapa de onboarding", err)
	}
	after, err := s.Store.FindStage(ctx, id)
	if err != nil {
		return nil, apperr.Internal("Erro ao buscar etapa de onboarding", err)
	}

	e := auditService.EntryFor(actor, constants.AuditStageUpdate, constants.EntityStage, id.String())
	e.Old, e.New = stage, after
	s.audit(ctx, e)
	v := dto.FromStage(*after)
	return &v, nil
}
