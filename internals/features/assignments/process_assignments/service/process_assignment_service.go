package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"onboarding_backend/internals/constants"
	"onboarding_backend/internals/features/assignments/process_assignments/dto"
	"onboarding_backend/internals/features/assignments/process_assignments/model"
	"onboarding_backend/internals/features/assignments/process_assignments/repository"
	auditService "onboarding_backend/internals/features/audit/audit_logs/service"
	notifModel "onboarding_backend/internals/features/home/notifications/model"
	notifService "onboarding_backend/internals/features/home/notifications/service"
	userModel "onboarding_backend/internals/features/users/user/model"
	userRepo "onboarding_backend/internals/features/users/user/repository"
	helper "onboarding_backend/internals/helpers"
	"onboarding_backend/internals/helpers/apperr"
	"onboarding_backend/internals/helpers/authz"
	"onboarding_backend/internals/helpers/metrics"

	"github.com/google/uuid"
)

const msgDeleteCompleted = "Não é possível deletar atribuição concluída"

type AssignmentStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.ProcessAssignmentModel, error)
	FindActive(ctx context.Context, processType, processID string) (*model.ProcessAssignmentModel, error)
	List(ctx context.Context, f repository.ListFilter, offset, limit int) ([]model.ProcessAssignmentModel, int64, error)
	Create(ctx context.Context, m *model.ProcessAssignmentModel) (*model.ProcessAssignmentModel, error)
	Transition(ctx context.Context, id uuid.UUID, from []model.AssignmentStatus, p repository.Patch) error
	Delete(ctx context.Context, id uuid.UUID, from []model.AssignmentStatus) error
}

type UserDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*userModel.UserModel, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]userModel.UserModel, error)
}

type Notifier interface {
	Notify(ctx context.Context, n notifService.Notification)
}

type Auditor interface {
	Record(ctx context.Context, e auditService.Entry)
}

type Service struct {
	Store    AssignmentStore
	Users    UserDirectory
	Notifier Notifier
	Audit    Auditor
	// nil uses the embedded default policy
	Policy *authz.Policy
	Now    func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) allow(action authz.Action, actor helper.Actor, rels ...authz.Relation) bool {
	if s.Policy != nil {
		return s.Policy.Allow(action, actor.PermissionLevel, rels...)
	}
	return authz.Allow(action, actor.PermissionLevel, rels...)
}

func relationsOf(a *model.ProcessAssignmentModel, actor helper.Actor) []authz.Relation {
	var rels []authz.Relation
	if a.AssignedTo == actor.ID {
		rels = append(rels, authz.RelAssignee)
	}
	if a.AssignedBy == actor.ID {
		rels = append(rels, authz.RelAssigner)
	}
	return rels
}

func observe(action string, err error) {
	metrics.AssignmentTransitions.WithLabelValues(action, metrics.Outcome(err)).Inc()
}

func (s *Service) notify(ctx context.Context, n notifService.Notification) {
	if s.Notifier != nil {
		s.Notifier.Notify(ctx, n)
	}
}

func (s *Service) audit(ctx context.Context, e auditService.Entry) {
	if s.Audit != nil {
		s.Audit.Record(ctx, e)
	}
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*model.ProcessAssignmentModel, error) {
	a, err := s.Store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("Atribuição não encontrada")
		}
		return nil, apperr.Internal("Erro ao buscar atribuição", err)
	}
	return a, nil
}

func invalidState(msg string, status model.AssignmentStatus) *apperr.Error {
	return apperr.InvalidState(msg).With("current_status", status)
}

// staleError re-reads the row after a compare-and-set lost, so the caller
// sees what it lost to.
func (s *Service) staleError(ctx context.Context, id uuid.UUID, msg string) error {
	cur, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	return invalidState(fmt.Sprintf("%s (status atual: %s)", msg, cur.Status), cur.Status)
}

/* ==========================
   VIEWS
========================== */

func (s *Service) view(ctx context.Context, a *model.ProcessAssignmentModel) dto.AssignmentResponse {
	views := s.views(ctx, []model.ProcessAssignmentModel{*a})
	return views[0]
}

// views enriches rows with user summaries; a failed lookup leaves them bare.
func (s *Service) views(ctx context.Context, rows []model.ProcessAssignmentModel) []dto.AssignmentResponse {
	seen := make(map[uuid.UUID]struct{}, len(rows)*2)
	ids := make([]uuid.UUID, 0, len(rows)*2)
	for _, r := range rows {
		for _, id := range []uuid.UUID{r.AssignedTo, r.AssignedBy} {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	var users map[uuid.UUID]userModel.UserModel
	if s.Users != nil && len(ids) > 0 {
		var err error
		if users, err = s.Users.FindByIDs(ctx, ids); err != nil {
			log.Printf("[WARN] assignment user summaries: %v", err)
		}
	}
	out := make([]dto.AssignmentResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, dto.WithUsers(r, users))
	}
	return out
}

/* ==========================
   CREATE
========================== */

type CreateInput struct {
	ProcessType  string
	ProcessID    string
	StageID      *string
	AssignedTo   uuid.UUID
	RequiredRole *string
	Notes        *string
}

func (s *Service) Create(ctx context.Context, actor helper.Actor, in CreateInput) (out *dto.AssignmentResponse, err error) {
	defer func() { observe("create", err) }()

	if !s.allow(authz.AssignmentCreate, actor) {
		return nil, apperr.Forbidden(constants.RoleErrorMinimum(constants.PermissionOperator))
	}
	in.ProcessType = strings.TrimSpace(in.ProcessType)
	in.ProcessID = strings.TrimSpace(in.ProcessID)
	if in.ProcessType == "" || in.ProcessID == "" || in.AssignedTo == uuid.Nil {
		return nil, apperr.Validation("process_type, process_id e assigned_to são obrigatórios")
	}

	target, err := s.Users.FindByID(ctx, in.AssignedTo)
	if err != nil {
		if errors.Is(err, userRepo.ErrNotFound) {
			return nil, apperr.NotFound("Usuário designado não encontrado")
		}
		return nil, apperr.Internal("Erro ao buscar usuário designado", err)
	}
	if !target.IsActive || target.IsBlocked {
		return nil, apperr.Validation("Usuário designado está inativo")
	}
	if in.RequiredRole != nil && *in.RequiredRole != "" && *in.RequiredRole != target.Role {
		return nil, apperr.RoleMismatch(fmt.Sprintf("Usuário designado não possui a função requerida: %s", *in.RequiredRole)).
			With("required_role", *in.RequiredRole).
			With("user_role", target.Role)
	}

	row := &model.ProcessAssignmentModel{
		ProcessType:  in.ProcessType,
		ProcessID:    in.ProcessID,
		StageID:      in.StageID,
		AssignedTo:   in.AssignedTo,
		AssignedBy:   actor.ID,
		RequiredRole: in.RequiredRole,
		Status:       model.StatusPending,
		Notes:        in.Notes,
	}
	created, err := s.Store.Create(ctx, row)
	if err != nil {
		if errors.Is(err, repository.ErrActiveExists) {
			conflict := apperr.Conflict("Já existe uma atribuição ativa para este processo")
			if created != nil {
				conflict = conflict.With("existing_assignment", s.view(ctx, created))
			}
			return nil, conflict
		}
		return nil, apperr.Internal("Erro ao criar atribuição", err)
	}

	s.notify(ctx, notifService.Notification{
		UserID:   created.AssignedTo,
		SenderID: actor.ID,
		Type:     notifModel.TypeAssignment,
		Title:    "Nova atribuição",
		Message:  fmt.Sprintf("Você foi designado para %s %s", created.ProcessType, created.ProcessID),
		Entity:   constants.EntityAssignment,
		EntityID: created.ID,
	})
	e := auditService.EntryFor(actor, constants.AuditAssignmentCreate, constants.EntityAssignment, created.ID.String())
	e.New = created
	s.audit(ctx, e)

	v := s.view(ctx, created)
	return &v, nil
}

/* ==========================
   TRANSITIONS
========================== */

func (s *Service) Sign(ctx context.Context, actor helper.Actor, id uuid.UUID) (out *dto.AssignmentResponse, err error) {
	defer func() { observe("sign", err) }()

	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.allow(authz.AssignmentSign, actor, relationsOf(a, actor)...) {
		return nil, apperr.Forbidden("Apenas o usuário designado pode assinar esta atribuição")
	}
	if a.Status != model.StatusPending {
		return nil, invalidState(fmt.Sprintf("Atribuição não está pendente (status atual: %s)", a.Status), a.Status)
	}

	now := s.now()
	patch := repository.Patch{Status: model.StatusSigned, SignedAt: &now}
	if err := s.Store.Transition(ctx, a.ID, []model.AssignmentStatus{model.StatusPending}, patch); err != nil {
		if errors.Is(err, repository.ErrStale) {
			return nil, s.staleError(ctx, a.ID, "Atribuição não está pendente")
		}
		return nil, apperr.Internal("Erro ao assinar atribuição", err)
	}
	old := *a
	a.Status, a.SignedAt = model.StatusSigned, &now

	s.afterTransition(ctx, actor, &old, a, constants.AuditAssignmentSign, notifModel.TypeAssignmentSigned,
		"Atribuição assinada", fmt.Sprintf("A atribuição de %s %s foi assinada", a.ProcessType, a.ProcessID))
	v := s.view(ctx, a)
	return &v, nil
}

func (s *Service) Reject(ctx context.Context, actor helper.Actor, id uuid.UUID, reason string) (out *dto.AssignmentResponse, err error) {
	defer func() { observe("reject", err) }()

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperr.Validation("Motivo da rejeição é obrigatório")
	}
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.allow(authz.AssignmentReject, actor, relationsOf(a, actor)...) {
		return nil, apperr.Forbidden("Apenas o usuário designado pode rejeitar esta atribuição")
	}
	switch a.Status {
	case model.StatusCompleted:
		return nil, invalidState("Não é possível rejeitar atribuição concluída", a.Status)
	case model.StatusRejected:
		return nil, invalidState("Atribuição já foi rejeitada", a.Status)
	}

	now := s.now()
	patch := repository.Patch{Status: model.StatusRejected, RejectedAt: &now, RejectionReason: &reason}
	if err := s.Store.Transition(ctx, a.ID, model.ActiveStatuses, patch); err != nil {
		if errors.Is(err, repository.ErrStale) {
			return nil, s.staleError(ctx, a.ID, "Atribuição não pode mais ser rejeitada")
		}
		return nil, apperr.Internal("Erro ao rejeitar atribuição", err)
	}
	old := *a
	a.Status, a.RejectedAt, a.RejectionReason = model.StatusRejected, &now, &reason

	s.afterTransition(ctx, actor, &old, a, constants.AuditAssignmentReject, notifModel.TypeAssignmentRejected,
		"Atribuição rejeitada", fmt.Sprintf("A atribuição de %s %s foi rejeitada: %s", a.ProcessType, a.ProcessID, reason))
	v := s.view(ctx, a)
	return &v, nil
}

func (s *Service) Complete(ctx context.Context, actor helper.Actor, id uuid.UUID) (out *dto.AssignmentResponse, err error) {
	defer func() { observe("complete", err) }()

	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.allow(authz.AssignmentComplete, actor, relationsOf(a, actor)...) {
		return nil, apperr.Forbidden("Apenas o usuário designado ou um administrador pode concluir esta atribuição")
	}
	if a.Status != model.StatusSigned {
		return nil, invalidState(fmt.Sprintf("Atribuição precisa estar assinada para ser concluída (status atual: %s)", a.Status), a.Status)
	}

	now := s.now()
	patch := repository.Patch{Status: model.StatusCompleted, CompletedAt: &now}
	if err := s.Store.Transition(ctx, a.ID, []model.AssignmentStatus{model.StatusSigned}, patch); err != nil {
		if errors.Is(err, repository.ErrStale) {
			return nil, s.staleError(ctx, a.ID, "Atribuição precisa estar assinada para ser concluída")
		}
		return nil, apperr.Internal("Erro ao concluir atribuição", err)
	}
	old := *a
	a.Status, a.CompletedAt = model.StatusCompleted, &now

	s.afterTransition(ctx, actor, &old, a, constants.AuditAssignmentComplete, notifModel.TypeAssignmentCompleted,
		"Atribuição concluída", fmt.Sprintf("A atribuição de %s %s foi concluída", a.ProcessType, a.ProcessID))
	v := s.view(ctx, a)
	return &v, nil
}

// afterTransition tells the assigner and writes the audit row. Both are
// best effort; the transition is already committed. The assigner is told
// even when they made the transition themselves.
func (s *Service) afterTransition(ctx context.Context, actor helper.Actor, old, cur *model.ProcessAssignmentModel, action string, typ notifModel.NotificationType, title, msg string) {
	s.notify(ctx, notifService.Notification{
		UserID:   cur.AssignedBy,
		SenderID: actor.ID,
		Type:     typ,
		Title:    title,
		Message:  msg,
		Entity:   constants.EntityAssignment,
		EntityID: cur.ID,
	})
	e := auditService.EntryFor(actor, action, constants.EntityAssignment, cur.ID.String())
	e.Old, e.New = old, cur
	s.audit(ctx, e)
}

func (s *Service) Delete(ctx context.Context, actor helper.Actor, id uuid.UUID) (err error) {
	defer func() { observe("delete", err) }()

	a, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !s.allow(authz.AssignmentDelete, actor, relationsOf(a, actor)...) {
		return apperr.Forbidden("Apenas administradores ou quem criou a atribuição podem deletá-la")
	}
	if a.Status == model.StatusCompleted {
		return invalidState(msgDeleteCompleted, a.Status)
	}

	deletable := []model.AssignmentStatus{model.StatusPending, model.StatusSigned, model.StatusRejected}
	if err := s.Store.Delete(ctx, a.ID, deletable); err != nil {
		if errors.Is(err, repository.ErrStale) {
			// completed or removed underneath
			if _, lerr := s.load(ctx, a.ID); lerr != nil {
				return lerr
			}
			return invalidState(msgDeleteCompleted, model.StatusCompleted)
		}
		return apperr.Internal("Erro ao deletar atribuição", err)
	}

	e := auditService.EntryFor(actor, constants.AuditAssignmentDelete, constants.EntityAssignment, a.ID.String())
	e.Old = a
	s.audit(ctx, e)
	return nil
}

/* ==========================
   QUERIES
========================== */

type ListFilter struct {
	Status      string
	AssignedTo  *uuid.UUID
	ProcessType string
	ProcessID   string
}

func parseStatus(raw string) (model.AssignmentStatus, error) {
	st := model.AssignmentStatus(strings.ToLower(strings.TrimSpace(raw)))
	if st != "" && !st.IsValid() {
		return "", apperr.Validation("Status inválido. Use: pending, signed, rejected, completed")
	}
	return st, nil
}

// List applies the caller's filters; callers below operador only ever see
// assignments given to them.
func (s *Service) List(ctx context.Context, actor helper.Actor, f ListFilter, p helper.Paging) ([]dto.AssignmentResponse, int64, error) {
	st, err := parseStatus(f.Status)
	if err != nil {
		return nil, 0, err
	}
	rf := repository.ListFilter{
		Status:      st,
		AssignedTo:  f.AssignedTo,
		ProcessType: f.ProcessType,
		ProcessID:   f.ProcessID,
	}
	if !s.allow(authz.AssignmentListAll, actor) {
		me := actor.ID
		rf.AssignedTo = &me
	}
	return s.list(ctx, rf, p)
}

func (s *Service) ListMine(ctx context.Context, actor helper.Actor, status string, p helper.Paging) ([]dto.AssignmentResponse, int64, error) {
	st, err := parseStatus(status)
	if err != nil {
		return nil, 0, err
	}
	me := actor.ID
	return s.list(ctx, repository.ListFilter{Status: st, AssignedTo: &me}, p)
}

func (s *Service) list(ctx context.Context, f repository.ListFilter, p helper.Paging) ([]dto.AssignmentResponse, int64, error) {
	rows, total, err := s.Store.List(ctx, f, p.Offset, p.Limit)
	if err != nil {
		return nil, 0, apperr.Internal("Erro ao listar atribuições", err)
	}
	return s.views(ctx, rows), total, nil
}

func (s *Service) Get(ctx context.Context, actor helper.Actor, id uuid.UUID) (*dto.AssignmentResponse, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.allow(authz.AssignmentView, actor, relationsOf(a, actor)...) {
		return nil, apperr.Forbidden("Sem permissão para visualizar esta atribuição")
	}
	v := s.view(ctx, a)
	return &v, nil
}

// CheckActive reports the active assignment of a process and whether the
// caller may edit the process right now.
func (s *Service) CheckActive(ctx context.Context, actor helper.Actor, processType, processID string) (*dto.CheckActiveResponse, error) {
	processType, processID = strings.TrimSpace(processType), strings.TrimSpace(processID)
	if processType == "" || processID == "" {
		return nil, apperr.Validation("process_type e process_id são obrigatórios")
	}
	a, err := s.Store.FindActive(ctx, processType, processID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &dto.CheckActiveResponse{CanEdit: s.allow(authz.ProcessEditUnassigned, actor)}, nil
		}
		return nil, apperr.Internal("Erro ao verificar atribuição", err)
	}
	mine := a.AssignedTo == actor.ID
	v := s.view(ctx, a)
	return &dto.CheckActiveResponse{
		HasAssignment:  true,
		Assignment:     &v,
		CanEdit:        mine || actor.IsAdmin(),
		IsAssignedToMe: mine,
	}, nil
}
