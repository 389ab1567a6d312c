package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"onboarding_backend/internals/constants"
	auditService "onboarding_backend/internals/features/audit/audit_logs/service"
	authHelper "onboarding_backend/internals/features/users/auth/helper"
	userModel "onboarding_backend/internals/features/users/user/model"
	userRepo "onboarding_backend/internals/features/users/user/repository"
	helper "onboarding_backend/internals/helpers"
	"onboarding_backend/internals/helpers/apperr"

	"github.com/google/uuid"
)

const (
	defaultMaxLoginAttempts = 5
	minPasswordLength       = 8
)

type UserStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*userModel.UserModel, error)
	FindByEmail(ctx context.Context, email string) (*userModel.UserModel, error)
	RegisterFailedLogin(ctx context.Context, id uuid.UUID, maxAttempts int) (userRepo.FailedLogin, error)
	MarkLoginSuccess(ctx context.Context, id uuid.UUID, at time.Time) error
	SetRefreshTokenID(ctx context.Context, id uuid.UUID, jti string) error
	RotateRefreshTokenID(ctx context.Context, id uuid.UUID, oldJTI, newJTI string) error
	ClearRefreshTokenID(ctx context.Context, id uuid.UUID) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
}

type TokenBlacklist interface {
	Add(ctx context.Context, token string, expiresAt time.Time) error
}

type Auditor interface {
	Record(ctx context.Context, e auditService.Entry)
}

type AuthService struct {
	Users       UserStore
	Blacklist   TokenBlacklist
	Audit       Auditor
	MaxAttempts int
	Now         func() time.Time
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return nowUTC()
}

func (s *AuthService) maxAttempts() int {
	if s.MaxAttempts > 0 {
		return s.MaxAttempts
	}
	return defaultMaxLoginAttempts
}

func (s *AuthService) audit(ctx context.Context, e auditService.Entry) {
	if s.Audit != nil {
		s.Audit.Record(ctx, e)
	}
}

// LoginResult carries either a session or a second-factor challenge.
type LoginResult struct {
	RequiresTwoFactor bool
	UserID            uuid.UUID
	ChallengeToken    string
	User              *userModel.UserModel
	Tokens            *TokenPair
}

/* ==========================
   LOGIN
========================== */

func (s *AuthService) Login(ctx context.Context, email, password string, actor helper.Actor) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperr.Validation("Email e senha são obrigatórios")
	}

	user, err := s.Users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, userRepo.ErrNotFound) {
			e := auditService.EntryFor(actor, constants.AuditLoginFailed, constants.EntityUser, "")
			e.Description = "email desconhecido: " + email
			s.audit(ctx, e)
			return nil, apperr.Unauthorized("Credenciais inválidas")
		}
		return nil, apperr.Internal("Erro ao autenticar", err)
	}

	if user.IsBlocked {
		return nil, apperr.Forbidden("Usuário bloqueado. Contate o administrador")
	}
	if !user.IsActive {
		return nil, apperr.Forbidden("Usuário inativo")
	}

	actor.ID = user.ID
	if err := authHelper.CheckPasswordHash(user.Password, password); err != nil {
		failed, ferr := s.Users.RegisterFailedLogin(ctx, user.ID, s.maxAttempts())
		if ferr != nil {
			return nil, apperr.Internal("Erro ao autenticar", ferr)
		}
		s.audit(ctx, auditService.EntryFor(actor, constants.AuditLoginFailed, constants.EntityUser, user.ID.String()))
		if failed.IsBlocked {
			s.audit(ctx, auditService.EntryFor(actor, constants.AuditUserBlocked, constants.EntityUser, user.ID.String()))
			return nil, apperr.Forbidden("Usuário bloqueado após múltiplas tentativas de login")
		}
		return nil, apperr.Unauthorized("Credenciais inválidas").
			With("remaining_attempts", s.maxAttempts()-failed.LoginAttempts)
	}

	now := s.now()
	if err := s.Users.MarkLoginSuccess(ctx, user.ID, now); err != nil {
		log.Printf("[WARN] mark login success %s: %v", user.ID, err)
	}

	if user.TwoFactorEnabled {
		challenge, err := IssueChallengeToken(user.ID, now)
		if err != nil {
			return nil, apperr.Internal("Erro ao gerar desafio 2FA", err)
		}
		return &LoginResult{RequiresTwoFactor: true, UserID: user.ID, ChallengeToken: challenge}, nil
	}

	pair, err := s.startSession(ctx, user, now)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, auditService.EntryFor(actor, constants.AuditLogin, constants.EntityUser, user.ID.String()))
	return &LoginResult{UserID: user.ID, User: user, Tokens: pair}, nil
}

// startSession issues a pair and makes its refresh token the only valid
// one for the user.
func (s *AuthService) startSession(ctx context.Context, user *userModel.UserModel, now time.Time) (*TokenPair, error) {
	pair, err := IssueTokenPair(user, now)
	if err != nil {
		return nil, apperr.Internal("Erro ao gerar token", err)
	}
	if err := s.Users.SetRefreshTokenID(ctx, user.ID, pair.RefreshID); err != nil {
		return nil, apperr.Internal("Erro ao registrar sessão", err)
	}
	return &pair, nil
}

// CompleteTwoFactorLogin issues the session once the second factor passed.
// challenge must be the token handed out by Login for the same user.
func (s *AuthService) CompleteTwoFactorLogin(ctx context.Context, userID uuid.UUID, challenge string, actor helper.Actor) (*LoginResult, error) {
	claims, err := ParseToken(challenge, PurposeTwoFactor)
	if err != nil {
		return nil, apperr.Unauthorized("Desafio 2FA inválido ou expirado")
	}
	if id, _ := claims.UserID(); id != userID {
		return nil, apperr.Unauthorized("Desafio 2FA inválido ou expirado")
	}
	user, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, userRepo.ErrNotFound) {
			return nil, apperr.Unauthorized("Usuário não encontrado")
		}
		return nil, apperr.Internal("Erro ao autenticar", err)
	}
	if user.IsBlocked || !user.IsActive {
		return nil, apperr.Forbidden("Usuário inativo ou bloqueado")
	}
	pair, err := s.startSession(ctx, user, s.now())
	if err != nil {
		return nil, err
	}
	actor.ID = user.ID
	s.audit(ctx, auditService.EntryFor(actor, constants.AuditLogin, constants.EntityUser, user.ID.String()))
	return &LoginResult{UserID: user.ID, User: user, Tokens: pair}, nil
}

/* ==========================
   REFRESH / LOGOUT / ME
========================== */

// Refresh trades a refresh token for a new pair. Each refresh token works
// once: the stored jti is swapped for the new one, so a replayed or
// logged-out token no longer matches.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, actor helper.Actor) (*TokenPair, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, apperr.Validation("refresh_token é obrigatório")
	}
	claims, err := ParseToken(refreshToken, PurposeRefresh)
	if err != nil || claims.RegisteredClaims.ID == "" {
		return nil, apperr.Unauthorized("Refresh token inválido")
	}
	id, _ := claims.UserID()
	user, err := s.Users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, userRepo.ErrNotFound) {
			return nil, apperr.Unauthorized("Refresh token inválido")
		}
		return nil, apperr.Internal("Erro ao renovar token", err)
	}
	if user.IsBlocked || !user.IsActive {
		return nil, apperr.Forbidden("Usuário inativo ou bloqueado")
	}
	pair, err := IssueTokenPair(user, s.now())
	if err != nil {
		return nil, apperr.Internal("Erro ao gerar token", err)
	}
	if err := s.Users.RotateRefreshTokenID(ctx, user.ID, claims.RegisteredClaims.ID, pair.RefreshID); err != nil {
		if errors.Is(err, userRepo.ErrStale) {
			return nil, apperr.Unauthorized("Refresh token inválido ou revogado")
		}
		return nil, apperr.Internal("Erro ao renovar token", err)
	}
	actor.ID = user.ID
	s.audit(ctx, auditService.EntryFor(actor, constants.AuditTokenRefresh, constants.EntityUser, user.ID.String()))
	return &pair, nil
}

// Logout blacklists the access token until its own expiry and revokes the
// refresh token. Idempotent.
func (s *AuthService) Logout(ctx context.Context, accessToken string, actor helper.Actor) error {
	if accessToken == "" {
		log.Println("[INFO] Logout sem access token")
		return nil
	}
	if err := s.Blacklist.Add(ctx, accessToken, ExpiryOf(accessToken)); err != nil {
		return apperr.Internal("Erro ao encerrar sessão", err)
	}
	if actor.ID != uuid.Nil {
		if err := s.Users.ClearRefreshTokenID(ctx, actor.ID); err != nil {
			return apperr.Internal("Erro ao encerrar sessão", err)
		}
	}
	s.audit(ctx, auditService.EntryFor(actor, constants.AuditLogout, constants.EntityUser, actor.ID.String()))
	return nil
}

// ChangePassword checks the current password, stores the new hash and
// revokes the refresh token. The access token in use stays valid until it
// expires.
func (s *AuthService) ChangePassword(ctx context.Context, actor helper.Actor, current, next string) error {
	if current == "" || next == "" {
		return apperr.Validation("Senha atual e nova senha são obrigatórias")
	}
	if len(next) < minPasswordLength {
		return apperr.Validation("A nova senha deve ter pelo menos 8 caracteres")
	}
	user, err := s.Users.FindByID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, userRepo.ErrNotFound) {
			return apperr.NotFound("Usuário não encontrado")
		}
		return apperr.Internal("Erro ao buscar usuário", err)
	}
	if err := authHelper.CheckPasswordHash(user.Password, current); err != nil {
		return apperr.Unauthorized("Senha atual incorreta")
	}
	hash, err := authHelper.HashPassword(next)
	if err != nil {
		return apperr.Internal("Erro ao processar senha", err)
	}
	if err := s.Users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return apperr.Internal("Erro ao alterar senha", err)
	}
	s.audit(ctx, auditService.EntryFor(actor, constants.AuditPasswordChange, constants.EntityUser, user.ID.String()))
	return nil
}

func (s *AuthService) Me(ctx context.Context, id uuid.UUID) (*userModel.UserModel, error) {
	user, err := s.Users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, userRepo.ErrNotFound) {
			return nil, apperr.NotFound("Usuário não encontrado")
		}
		return nil, apperr.Internal("Erro ao buscar usuário", err)
	}
	return user, nil
}
