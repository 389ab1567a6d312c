package service

import (
	"context"
	"sync"
	"time"

	assignmentDTO "onboarding_backend/internals/features/assignments/process_assignments/dto"
	auditService "onboarding_backend/internals/features/audit/audit_logs/service"
	"onboarding_backend/internals/features/clients/clients/model"
	"onboarding_backend/internals/features/clients/clients/repository"
	userModel "onboarding_backend/internals/features/users/user/model"
	userRepo "onboarding_backend/internals/features/users/user/repository"
	helper "onboarding_backend/internals/helpers"

	"github.com/google/uuid"
)

type memClients struct {
	mu      sync.Mutex
	clients map[uuid.UUID]model.ClientModel
	stages  map[uuid.UUID]model.OnboardingStageModel
}

func newMemClients() *memClients {
	return &memClients{
		clients: map[uuid.UUID]model.ClientModel{},
		stages:  map[uuid.UUID]model.OnboardingStageModel{},
	}
}

func (s *memClients) FindByID(_ context.Context, id uuid.UUID) (*model.ClientModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (s *memClients) List(_ context.Context, f repository.ListFilter, _, _ int) ([]model.ClientModel, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ClientModel
	for _, c := range s.clients {
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		out = append(out, c)
	}
	return out, int64(len(out)), nil
}

func (s *memClients) Create(_ context.Context, c *model.ClientModel) (*model.OnboardingStageModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.clients {
		if o.CNPJ == c.CNPJ {
			return nil, repository.ErrDuplicateCNPJ
		}
	}
	c.ID = uuid.New()
	s.clients[c.ID] = *c
	st := model.OnboardingStageModel{ID: uuid.New(), ClientID: c.ID, Stage: model.StageInitialMeeting, Status: model.StagePending, CreatedAt: time.Now()}
	s.stages[st.ID] = st
	return &st, nil
}

func (s *memClients) Update(_ context.Context, id uuid.UUID, p repository.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[id]
	if !ok {
		return repository.ErrNotFound
	}
	if p.CNPJ != nil {
		for _, o := range s.clients {
			if o.ID != id && o.CNPJ == *p.CNPJ {
				return repository.ErrDuplicateCNPJ
			}
		}
		c.CNPJ = *p.CNPJ
	}
	if p.CompanyName != nil {
		c.CompanyName = *p.CompanyName
	}
	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.AssigneeID != nil {
		c.AssigneeID = p.AssigneeID
	}
	s.clients[id] = c
	return nil
}

func (s *memClients) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.clients, id)
	for sid, st := range s.stages {
		if st.ClientID == id {
			delete(s.stages, sid)
		}
	}
	return nil
}

func (s *memClients) Stages(_ context.Context, clientID uuid.UUID) ([]model.OnboardingStageModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.OnboardingStageModel
	for _, st := range s.stages {
		if st.ClientID == clientID {
			out = append(out, st)
		}
	}
	return out, nil
}

func (s *memClients) CurrentStages(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]model.OnboardingStageModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[uuid.UUID]model.OnboardingStageModel{}
	for _, id := range ids {
		for _, st := range s.stages {
			if st.ClientID != id || st.Status == model.StageDone {
				continue
			}
			if cur, ok := out[id]; !ok || st.CreatedAt.Before(cur.CreatedAt) {
				out[id] = st
			}
		}
	}
	return out, nil
}

func (s *memClients) FindStage(_ context.Context, id uuid.UUID) (*model.OnboardingStageModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stages[id]
	if !ok {
		return nil, repository.ErrStageNotFound
	}
	return &st, nil
}

func (s *memClients) UpdateStage(_ context.Context, id uuid.UUID, p repository.StagePatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stages[id]
	if !ok {
		return repository.ErrStageNotFound
	}
	if p.Stage != nil {
		st.Stage = *p.Stage
	}
	if p.Status != nil {
		st.Status = *p.Status
	}
	if p.ScheduledDate != nil {
		st.ScheduledDate = p.ScheduledDate
	}
	if p.CompletedDate != nil {
		st.CompletedDate = p.CompletedDate
	} else if p.ClearCompleted {
		st.CompletedDate = nil
	}
	if p.Notes != nil {
		st.Notes = p.Notes
	}
	s.stages[id] = st
	return nil
}

type fakeDirectory struct {
	users map[uuid.UUID]userModel.UserModel
}

func (d *fakeDirectory) FindByID(_ context.Context, id uuid.UUID) (*userModel.UserModel, error) {
	u, ok := d.users[id]
	if !ok {
		return nil, userRepo.ErrNotFound
	}
	return &u, nil
}

func (d *fakeDirectory) FindByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]userModel.UserModel, error) {
	out := map[uuid.UUID]userModel.UserModel{}
	for _, id := range ids {
		if u, ok := d.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

// fakeGate lets only holder edit, mimicking an active assignment.
type fakeGate struct {
	holder uuid.UUID
	calls  []string
}

func (g *fakeGate) CheckActive(_ context.Context, actor helper.Actor, processType, processID string) (*assignmentDTO.CheckActiveResponse, error) {
	g.calls = append(g.calls, processType+":"+processID)
	mine := actor.ID == g.holder
	return &assignmentDTO.CheckActiveResponse{HasAssignment: true, CanEdit: mine, IsAssignedToMe: mine}, nil
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []auditService.Entry
}

func (a *fakeAudit) Record(_ context.Context, e auditService.Entry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
}
