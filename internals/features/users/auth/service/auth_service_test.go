package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"onboarding_backend/internals/constants"
	auditService "onboarding_backend/internals/features/audit/audit_logs/service"
	authHelper "onboarding_backend/internals/features/users/auth/helper"
	userModel "onboarding_backend/internals/features/users/user/model"
	userRepo "onboarding_backend/internals/features/users/user/repository"
	helper "onboarding_backend/internals/helpers"
	"onboarding_backend/internals/helpers/apperr"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassword = "s3nha-forte"

type memUsers struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*userModel.UserModel
}

func (m *memUsers) FindByID(_ context.Context, id uuid.UUID) (*userModel.UserModel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[id]
	if !ok {
		return nil, userRepo.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*userModel.UserModel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.rows {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, userRepo.ErrNotFound
}

func (m *memUsers) RegisterFailedLogin(_ context.Context, id uuid.UUID, maxAttempts int) (userRepo.FailedLogin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.rows[id]
	u.LoginAttempts++
	if u.LoginAttempts >= maxAttempts {
		u.IsBlocked = true
	}
	return userRepo.FailedLogin{LoginAttempts: u.LoginAttempts, IsBlocked: u.IsBlocked}, nil
}

func (m *memUsers) MarkLoginSuccess(_ context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.rows[id]
	u.LoginAttempts = 0
	u.LastLoginAt = &at
	return nil
}

func (m *memUsers) SetRefreshTokenID(_ context.Context, id uuid.UUID, jti string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[id].RefreshTokenID = &jti
	return nil
}

func (m *memUsers) RotateRefreshTokenID(_ context.Context, id uuid.UUID, oldJTI, newJTI string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.rows[id]
	if u.RefreshTokenID == nil || *u.RefreshTokenID != oldJTI {
		return userRepo.ErrStale
	}
	u.RefreshTokenID = &newJTI
	return nil
}

func (m *memUsers) ClearRefreshTokenID(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[id].RefreshTokenID = nil
	return nil
}

func (m *memUsers) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.rows[id]
	u.Password = hash
	u.RefreshTokenID = nil
	return nil
}

type memBlacklist struct{ tokens map[string]time.Time }

func (b *memBlacklist) Add(_ context.Context, token string, exp time.Time) error {
	b.tokens[token] = exp
	return nil
}

type recordedActions struct{ actions []string }

func (r *recordedActions) Record(_ context.Context, e auditService.Entry) {
	r.actions = append(r.actions, e.Action)
}

type authFixture struct {
	svc   *AuthService
	users *memUsers
	bl    *memBlacklist
	audit *recordedActions
	user  *userModel.UserModel
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	hash, err := authHelper.HashPassword(testPassword)
	require.NoError(t, err)
	u := &userModel.UserModel{
		ID:              uuid.New(),
		Name:            "Ana",
		Email:           "ana@example.com",
		Password:        hash,
		PermissionLevel: constants.PermissionAnalyst,
		IsActive:        true,
	}
	f := &authFixture{
		users: &memUsers{rows: map[uuid.UUID]*userModel.UserModel{u.ID: u}},
		bl:    &memBlacklist{tokens: map[string]time.Time{}},
		audit: &recordedActions{},
		user:  u,
	}
	f.svc = &AuthService{Users: f.users, Blacklist: f.bl, Audit: f.audit, MaxAttempts: 3}
	return f
}

func TestLoginIssuesSession(t *testing.T) {
	f := newAuthFixture(t)
	res, err := f.svc.Login(context.Background(), "  ANA@example.com", testPassword, helper.Actor{})
	require.NoError(t, err)
	assert.False(t, res.RequiresTwoFactor)
	require.NotNil(t, res.Tokens)
	assert.NotEmpty(t, res.Tokens.AccessToken)
	assert.NotNil(t, f.users.rows[f.user.ID].LastLoginAt)
	assert.Equal(t, []string{constants.AuditLogin}, f.audit.actions)
}

func TestLoginValidation(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.svc.Login(context.Background(), "", "x", helper.Actor{})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.Login(context.Background(), "ghost@example.com", "x", helper.Actor{})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	assert.Equal(t, []string{constants.AuditLoginFailed}, f.audit.actions)
}

func TestLoginLocksAfterMaxAttempts(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.Login(ctx, f.user.Email, "wrong", helper.Actor{})
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperr.KindUnauthorized, ae.Kind)
	assert.Equal(t, 2, ae.Extra["remaining_attempts"])

	_, _ = f.svc.Login(ctx, f.user.Email, "wrong", helper.Actor{})
	_, err = f.svc.Login(ctx, f.user.Email, "wrong", helper.Actor{})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.Contains(t, f.audit.actions, constants.AuditUserBlocked)

	// the right password no longer helps
	_, err = f.svc.Login(ctx, f.user.Email, testPassword, helper.Actor{})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestLoginInactive(t *testing.T) {
	f := newAuthFixture(t)
	f.users.rows[f.user.ID].IsActive = false
	_, err := f.svc.Login(context.Background(), f.user.Email, testPassword, helper.Actor{})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestLoginWithTwoFactorReturnsChallenge(t *testing.T) {
	f := newAuthFixture(t)
	f.users.rows[f.user.ID].TwoFactorEnabled = true

	res, err := f.svc.Login(context.Background(), f.user.Email, testPassword, helper.Actor{})
	require.NoError(t, err)
	assert.True(t, res.RequiresTwoFactor)
	assert.Nil(t, res.Tokens)
	assert.Equal(t, f.user.ID, res.UserID)

	// a challenge is not an access token
	_, err = ParseToken(res.ChallengeToken, PurposeAccess)
	assert.Error(t, err)

	done, err := f.svc.CompleteTwoFactorLogin(context.Background(), f.user.ID, res.ChallengeToken, helper.Actor{})
	require.NoError(t, err)
	require.NotNil(t, done.Tokens)

	// a challenge issued for someone else is refused
	_, err = f.svc.CompleteTwoFactorLogin(context.Background(), uuid.New(), res.ChallengeToken, helper.Actor{})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func (f *authFixture) login(t *testing.T) *TokenPair {
	t.Helper()
	res, err := f.svc.Login(context.Background(), f.user.Email, testPassword, helper.Actor{})
	require.NoError(t, err)
	require.NotNil(t, res.Tokens)
	return res.Tokens
}

func TestRefresh(t *testing.T) {
	f := newAuthFixture(t)
	pair := f.login(t)

	next, err := f.svc.Refresh(context.Background(), pair.RefreshToken, helper.Actor{})
	require.NoError(t, err)
	assert.NotEmpty(t, next.AccessToken)
	assert.Equal(t, next.RefreshID, *f.users.rows[f.user.ID].RefreshTokenID)

	_, err = f.svc.Refresh(context.Background(), pair.AccessToken, helper.Actor{})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	f.users.rows[f.user.ID].IsBlocked = true
	_, err = f.svc.Refresh(context.Background(), next.RefreshToken, helper.Actor{})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestRefreshTokenWorksOnce(t *testing.T) {
	f := newAuthFixture(t)
	pair := f.login(t)

	next, err := f.svc.Refresh(context.Background(), pair.RefreshToken, helper.Actor{})
	require.NoError(t, err)

	_, err = f.svc.Refresh(context.Background(), pair.RefreshToken, helper.Actor{})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	// the rotated token is still good
	_, err = f.svc.Refresh(context.Background(), next.RefreshToken, helper.Actor{})
	assert.NoError(t, err)
}

func TestRefreshAfterLogoutFails(t *testing.T) {
	f := newAuthFixture(t)
	pair := f.login(t)

	require.NoError(t, f.svc.Logout(context.Background(), pair.AccessToken, helper.Actor{ID: f.user.ID}))
	assert.Nil(t, f.users.rows[f.user.ID].RefreshTokenID)

	_, err := f.svc.Refresh(context.Background(), pair.RefreshToken, helper.Actor{})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestNewLoginRevokesPreviousRefreshToken(t *testing.T) {
	f := newAuthFixture(t)
	first := f.login(t)
	f.login(t)

	_, err := f.svc.Refresh(context.Background(), first.RefreshToken, helper.Actor{})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestChangePassword(t *testing.T) {
	f := newAuthFixture(t)
	pair := f.login(t)
	actor := helper.Actor{ID: f.user.ID}
	ctx := context.Background()

	err := f.svc.ChangePassword(ctx, actor, "errada", "nova-senha-1")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	err = f.svc.ChangePassword(ctx, actor, testPassword, "curta")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	require.NoError(t, f.svc.ChangePassword(ctx, actor, testPassword, "nova-senha-1"))
	assert.Contains(t, f.audit.actions, constants.AuditPasswordChange)

	// old session can't be refreshed, new password logs in
	_, err = f.svc.Refresh(ctx, pair.RefreshToken, helper.Actor{})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	_, err = f.svc.Login(ctx, f.user.Email, testPassword, helper.Actor{})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	_, err = f.svc.Login(ctx, f.user.Email, "nova-senha-1", helper.Actor{})
	assert.NoError(t, err)
}

func TestLogoutBlacklistsUntilExpiry(t *testing.T) {
	f := newAuthFixture(t)
	now := time.Now()
	pair, err := IssueTokenPair(f.user, now)
	require.NoError(t, err)
	f.users.rows[f.user.ID].RefreshTokenID = &pair.RefreshID

	require.NoError(t, f.svc.Logout(context.Background(), pair.AccessToken, helper.Actor{ID: f.user.ID}))
	exp, ok := f.bl.tokens[pair.AccessToken]
	require.True(t, ok)
	assert.WithinDuration(t, now.Add(15*time.Minute), exp, 2*time.Second)

	// no token is a no-op
	require.NoError(t, f.svc.Logout(context.Background(), "", helper.Actor{}))
	assert.Len(t, f.bl.tokens, 1)
}
