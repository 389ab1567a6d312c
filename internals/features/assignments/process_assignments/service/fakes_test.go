package service

import (
	"context"
	"slices"
	"sync"
	"time"

	"onboarding_backend/internals/features/assignments/process_assignments/model"
	"onboarding_backend/internals/features/assignments/process_assignments/repository"
	auditService "onboarding_backend/internals/features/audit/audit_logs/service"
	notifService "onboarding_backend/internals/features/home/notifications/service"
	userModel "onboarding_backend/internals/features/users/user/model"
	userRepo "onboarding_backend/internals/features/users/user/repository"

	"github.com/google/uuid"
)

// memStore mirrors the repository's compare-and-set rules in memory.
type memStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID]model.ProcessAssignmentModel
	// hook runs inside Transition before the status check, to simulate a
	// concurrent writer
	beforeTransition func(id uuid.UUID)
}

func newMemStore() *memStore {
	return &memStore{rows: map[uuid.UUID]model.ProcessAssignmentModel{}}
}

func (s *memStore) get(id uuid.UUID) (model.ProcessAssignmentModel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	return r, ok
}

func (s *memStore) set(r model.ProcessAssignmentModel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[r.ID] = r
}

func (s *memStore) FindByID(_ context.Context, id uuid.UUID) (*model.ProcessAssignmentModel, error) {
	r, ok := s.get(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (s *memStore) findActiveLocked(pt, pid string) *model.ProcessAssignmentModel {
	for _, r := range s.rows {
		if r.ProcessType == pt && r.ProcessID == pid && r.Status.IsActive() {
			r := r
			return &r
		}
	}
	return nil
}

func (s *memStore) FindActive(_ context.Context, pt, pid string) (*model.ProcessAssignmentModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r := s.findActiveLocked(pt, pid); r != nil {
		return r, nil
	}
	return nil, repository.ErrNotFound
}

func (s *memStore) List(_ context.Context, f repository.ListFilter, offset, limit int) ([]model.ProcessAssignmentModel, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ProcessAssignmentModel
	for _, r := range s.rows {
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.AssignedTo != nil && r.AssignedTo != *f.AssignedTo {
			continue
		}
		if f.ProcessType != "" && r.ProcessType != f.ProcessType {
			continue
		}
		out = append(out, r)
	}
	total := int64(len(out))
	if offset >= len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, total, nil
}

func (s *memStore) Create(_ context.Context, m *model.ProcessAssignmentModel) (*model.ProcessAssignmentModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r := s.findActiveLocked(m.ProcessType, m.ProcessID); r != nil {
		return r, repository.ErrActiveExists
	}
	m.ID = uuid.New()
	m.CreatedAt = time.Now()
	m.UpdatedAt = m.CreatedAt
	s.rows[m.ID] = *m
	return m, nil
}

func (s *memStore) Transition(_ context.Context, id uuid.UUID, from []model.AssignmentStatus, p repository.Patch) error {
	if s.beforeTransition != nil {
		s.beforeTransition(id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok || !slices.Contains(from, r.Status) {
		return repository.ErrStale
	}
	r.Status = p.Status
	if p.SignedAt != nil {
		r.SignedAt = p.SignedAt
	}
	if p.RejectedAt != nil {
		r.RejectedAt = p.RejectedAt
	}
	if p.CompletedAt != nil {
		r.CompletedAt = p.CompletedAt
	}
	if p.RejectionReason != nil {
		r.RejectionReason = p.RejectionReason
	}
	s.rows[id] = r
	return nil
}

func (s *memStore) Delete(_ context.Context, id uuid.UUID, from []model.AssignmentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok || !slices.Contains(from, r.Status) {
		return repository.ErrStale
	}
	delete(s.rows, id)
	return nil
}

// lostRaceStore reports a unique-index loss whose winner could not be read back.
type lostRaceStore struct{ *memStore }

func (lostRaceStore) Create(context.Context, *model.ProcessAssignmentModel) (*model.ProcessAssignmentModel, error) {
	return nil, repository.ErrActiveExists
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

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notifService.Notification
}

func (n *fakeNotifier) Notify(_ context.Context, in notifService.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, in)
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
