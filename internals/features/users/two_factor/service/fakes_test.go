package service

import (
	"context"
	"sync"

	auditService "onboarding_backend/internals/features/audit/audit_logs/service"
	userModel "onboarding_backend/internals/features/users/user/model"
	userRepo "onboarding_backend/internals/features/users/user/repository"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type fakeUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]*userModel.UserModel
}

func newFakeUsers(us ...*userModel.UserModel) *fakeUsers {
	f := &fakeUsers{users: map[uuid.UUID]*userModel.UserModel{}}
	for _, u := range us {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUsers) get(id uuid.UUID) *userModel.UserModel {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := *f.users[id]
	u.TwoFactorBackupCodes = append(pq.StringArray(nil), u.TwoFactorBackupCodes...)
	return &u
}

func (f *fakeUsers) FindByID(_ context.Context, id uuid.UUID) (*userModel.UserModel, error) {
	f.mu.Lock()
	_, ok := f.users[id]
	f.mu.Unlock()
	if !ok {
		return nil, userRepo.ErrNotFound
	}
	return f.get(id), nil
}

func (f *fakeUsers) SetPendingSecret(_ context.Context, id uuid.UUID, secret string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.users[id]
	if u == nil || u.TwoFactorEnabled {
		return userRepo.ErrStale
	}
	u.TwoFactorSecret = &secret
	return nil
}

func (f *fakeUsers) EnableTwoFactor(_ context.Context, id uuid.UUID, secret string, hashes []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.users[id]
	if u == nil || u.TwoFactorEnabled || u.TwoFactorSecret == nil || *u.TwoFactorSecret != secret {
		return userRepo.ErrStale
	}
	u.TwoFactorEnabled = true
	u.TwoFactorBackupCodes = hashes
	return nil
}

func (f *fakeUsers) DisableTwoFactor(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.users[id]
	if u == nil || !u.TwoFactorEnabled {
		return userRepo.ErrStale
	}
	u.TwoFactorEnabled = false
	u.TwoFactorSecret = nil
	u.TwoFactorBackupCodes = nil
	return nil
}

func (f *fakeUsers) ReplaceBackupCodes(_ context.Context, id uuid.UUID, hashes []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.users[id]
	if u == nil || !u.TwoFactorEnabled {
		return userRepo.ErrStale
	}
	u.TwoFactorBackupCodes = hashes
	return nil
}

func (f *fakeUsers) ConsumeBackupCode(_ context.Context, id uuid.UUID, hash string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.users[id]
	if u == nil || !u.TwoFactorEnabled {
		return false, nil
	}
	for i, h := range u.TwoFactorBackupCodes {
		if h == hash {
			u.TwoFactorBackupCodes = append(u.TwoFactorBackupCodes[:i:i], u.TwoFactorBackupCodes[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type fakeAudit struct {
	mu      sync.Mutex
	actions []string
}

func (a *fakeAudit) Record(_ context.Context, e auditService.Entry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions = append(a.actions, e.Action)
}

// countingLimiter reserves attempts per user, like the redis one.
type countingLimiter struct {
	max      int
	failures map[string]int
}

func newCountingLimiter(max int) *countingLimiter {
	return &countingLimiter{max: max, failures: map[string]int{}}
}

func (l *countingLimiter) Reserve(_ context.Context, id string) error {
	if l.failures[id] >= l.max {
		return ErrVerifyRateLimited
	}
	l.failures[id]++
	return nil
}

func (l *countingLimiter) Reset(_ context.Context, id string) error {
	delete(l.failures, id)
	return nil
}
