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
	"onboarding_backend/internals/helpers/metrics"

	"github.com/google/uuid"
)

const (
	MethodTOTP       = "totp"
	MethodBackupCode = "backup_code"
)

type UserStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*userModel.UserModel, error)
	SetPendingSecret(ctx context.Context, id uuid.UUID, secret string) error
	EnableTwoFactor(ctx context.Context, id uuid.UUID, secret string, codeHashes []string) error
	DisableTwoFactor(ctx context.Context, id uuid.UUID) error
	ReplaceBackupCodes(ctx context.Context, id uuid.UUID, codeHashes []string) error
	ConsumeBackupCode(ctx context.Context, id uuid.UUID, codeHash string) (bool, error)
}

// AttemptLimiter reserves one verification attempt before the code is
// checked; Reset clears the window after a success.
type AttemptLimiter interface {
	Reserve(ctx context.Context, userID string) error
	Reset(ctx context.Context, userID string) error
}

type Auditor interface {
	Record(ctx context.Context, e auditService.Entry)
}

type Service struct {
	Users   UserStore
	Limiter AttemptLimiter
	Audit   Auditor

	Issuer   string
	QRFormat string
	// when set, disable needs a valid token besides the password
	DisableRequiresToken bool

	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) audit(ctx context.Context, e auditService.Entry) {
	if s.Audit != nil {
		s.Audit.Record(ctx, e)
	}
}

func (s *Service) loadUser(ctx context.Context, id uuid.UUID) (*userModel.UserModel, error) {
	u, err := s.Users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, userRepo.ErrNotFound) {
			return nil, apperr.NotFound("Usuário não encontrado")
		}
		return nil, apperr.Internal("Erro ao buscar usuário", err)
	}
	return u, nil
}

/* ==========================
   STATUS
========================== */

type Status struct {
	Enabled          bool `json:"enabled"`
	HasBackupCodes   bool `json:"has_backup_codes"`
	BackupCodesCount int  `json:"backup_codes_count"`
}

func (s *Service) Status(ctx context.Context, userID uuid.UUID) (*Status, error) {
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	n := len(u.TwoFactorBackupCodes)
	return &Status{Enabled: u.TwoFactorEnabled, HasBackupCodes: n > 0, BackupCodesCount: n}, nil
}

/* ==========================
   ENROLLMENT
========================== */

type SetupResult struct {
	Secret     string `json:"secret"`
	QRCode     string `json:"qr_code"`
	OTPAuthURL string `json:"otpauth_url"`
}

// Setup stores a new pending secret, replacing any earlier one, so a QR
// from a previous call stops working.
func (s *Service) Setup(ctx context.Context, userID uuid.UUID) (*SetupResult, error) {
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.TwoFactorEnabled {
		return nil, apperr.InvalidState("2FA já está ativado. Desative antes de configurar novamente")
	}

	key, err := GenerateKey(s.Issuer, u.Email)
	if err != nil {
		return nil, apperr.Internal("Erro ao gerar segredo 2FA", err)
	}
	qr, err := RenderQRDataURL(key.URL(), s.QRFormat)
	if err != nil {
		return nil, apperr.Internal("Erro ao gerar QR code", err)
	}
	if err := s.Users.SetPendingSecret(ctx, u.ID, key.Secret()); err != nil {
		if errors.Is(err, userRepo.ErrStale) {
			return nil, apperr.InvalidState("2FA já está ativado. Desative antes de configurar novamente")
		}
		return nil, apperr.Internal("Erro ao salvar segredo 2FA", err)
	}
	return &SetupResult{Secret: key.Secret(), QRCode: qr, OTPAuthURL: key.URL()}, nil
}

// VerifySetup confirms enrollment and returns the plaintext backup codes.
// They are not retrievable afterwards.
func (s *Service) VerifySetup(ctx context.Context, actor helper.Actor, token string) ([]string, error) {
	token = strings.TrimSpace(token)
	if !IsTOTPFormat(token) {
		return nil, apperr.Validation("Token deve conter 6 dígitos")
	}
	u, err := s.loadUser(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if u.TwoFactorEnabled {
		return nil, apperr.InvalidState("2FA já está ativado")
	}
	if u.TwoFactorSecret == nil || *u.TwoFactorSecret == "" {
		return nil, apperr.InvalidState("Configuração 2FA não iniciada")
	}
	secret := *u.TwoFactorSecret

	if !ValidateTOTP(token, secret, s.now()) {
		metrics.TwoFactorVerifications.WithLabelValues(MethodTOTP, "failure").Inc()
		return nil, apperr.InvalidToken("Token inválido")
	}

	codes, err := NewBackupCodes(BackupCodeCount)
	if err != nil {
		return nil, apperr.Internal("Erro ao gerar códigos de backup", err)
	}
	if err := s.Users.EnableTwoFactor(ctx, u.ID, secret, hashAll(u.ID, codes)); err != nil {
		if errors.Is(err, userRepo.ErrStale) {
			// enabled or re-setup by a concurrent request
			return nil, apperr.InvalidState("Configuração 2FA alterada. Inicie novamente")
		}
		return nil, apperr.Internal("Erro ao ativar 2FA", err)
	}
	metrics.TwoFactorVerifications.WithLabelValues(MethodTOTP, "success").Inc()

	s.audit(ctx, auditService.EntryFor(actor, constants.AuditTwoFactorEnabled, constants.EntityUser, u.ID.String()))
	return codes, nil
}

/* ==========================
   LOGIN VERIFICATION
========================== */

type VerifyResult struct {
	Method               string `json:"method"`
	RemainingBackupCodes *int   `json:"remaining_backup_codes,omitempty"`
}

func (s *Service) VerifyLogin(ctx context.Context, userID uuid.UUID, token string, isBackupCode bool, actor helper.Actor) (*VerifyResult, error) {
	token = strings.TrimSpace(token)
	notConfigured := apperr.InvalidState("2FA não configurado para este usuário")

	u, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, userRepo.ErrNotFound) {
			return nil, notConfigured
		}
		return nil, apperr.Internal("Erro ao verificar 2FA", err)
	}
	if !u.TwoFactorEnabled {
		return nil, notConfigured
	}

	method := MethodTOTP
	if isBackupCode {
		method = MethodBackupCode
	}
	if isBackupCode && !IsBackupCodeFormat(token) {
		return nil, apperr.Validation("Código de backup deve ter o formato XXXX-XXXX")
	}
	if !isBackupCode && !IsTOTPFormat(token) {
		return nil, apperr.Validation("Token deve conter 6 dígitos")
	}

	key := u.ID.String()
	if err := s.limiterReserve(ctx, key); err != nil {
		return nil, err
	}

	actor.ID = u.ID
	var ok bool
	if isBackupCode {
		ok, err = s.Users.ConsumeBackupCode(ctx, u.ID, HashBackupCode(u.ID, CanonicalizeBackupCode(token)))
		if err != nil {
			return nil, apperr.Internal("Erro ao verificar código de backup", err)
		}
	} else {
		ok = ValidateTOTP(token, derefSecret(u.TwoFactorSecret), s.now())
	}

	if !ok {
		metrics.TwoFactorVerifications.WithLabelValues(method, "failure").Inc()
		e := auditService.EntryFor(actor, constants.AuditTwoFactorVerifyFailed, constants.EntityUser, key)
		e.Description = method
		s.audit(ctx, e)
		if isBackupCode {
			return nil, apperr.Unauthorized("Código de backup inválido")
		}
		return nil, apperr.Unauthorized("Token inválido")
	}

	if s.Limiter != nil {
		if err := s.Limiter.Reset(ctx, key); err != nil {
			log.Printf("[WARN] 2fa limiter reset %s: %v", key, err)
		}
	}
	metrics.TwoFactorVerifications.WithLabelValues(method, "success").Inc()

	res := &VerifyResult{Method: method}
	if isBackupCode {
		remaining := len(u.TwoFactorBackupCodes) - 1
		if remaining < 0 {
			remaining = 0
		}
		res.RemainingBackupCodes = &remaining
		s.audit(ctx, auditService.EntryFor(actor, constants.AuditBackupCodeUsed, constants.EntityUser, key))
	}
	return res, nil
}

func (s *Service) limiterReserve(ctx context.Context, key string) error {
	if s.Limiter == nil {
		return nil
	}
	if err := s.Limiter.Reserve(ctx, key); err != nil {
		if errors.Is(err, ErrVerifyRateLimited) {
			return apperr.TooManyRequests("Muitas tentativas. Tente novamente mais tarde")
		}
		// fail open: redis down must not lock everyone out
		log.Printf("[WARN] 2fa limiter reserve: %v", err)
	}
	return nil
}

func derefSecret(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

/* ==========================
   DISABLE / REGENERATE
========================== */

// Disable requires the password; a token, when given (or when configured
// as mandatory), must validate too.
func (s *Service) Disable(ctx context.Context, actor helper.Actor, password, token string) error {
	token = strings.TrimSpace(token)
	if password == "" {
		return apperr.Validation("Senha é obrigatória")
	}
	if s.DisableRequiresToken && token == "" {
		return apperr.Validation("Token é obrigatório")
	}
	u, err := s.loadUser(ctx, actor.ID)
	if err != nil {
		return err
	}
	if !u.TwoFactorEnabled {
		return apperr.InvalidState("2FA não está ativado")
	}
	if err := authHelper.CheckPasswordHash(u.Password, password); err != nil {
		return apperr.Unauthorized("Senha incorreta")
	}
	if token != "" && !ValidateTOTP(token, derefSecret(u.TwoFactorSecret), s.now()) {
		return apperr.Unauthorized("Token inválido")
	}

	if err := s.Users.DisableTwoFactor(ctx, u.ID); err != nil {
		if errors.Is(err, userRepo.ErrStale) {
			return apperr.InvalidState("2FA não está ativado")
		}
		return apperr.Internal("Erro ao desativar 2FA", err)
	}
	s.audit(ctx, auditService.EntryFor(actor, constants.AuditTwoFactorDisabled, constants.EntityUser, u.ID.String()))
	return nil
}

func (s *Service) RegenerateBackupCodes(ctx context.Context, actor helper.Actor, password, token string) ([]string, error) {
	token = strings.TrimSpace(token)
	if password == "" || token == "" {
		return nil, apperr.Validation("Senha e token são obrigatórios")
	}
	u, err := s.loadUser(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if !u.TwoFactorEnabled {
		return nil, apperr.InvalidState("2FA não está ativado")
	}
	if err := authHelper.CheckPasswordHash(u.Password, password); err != nil {
		return nil, apperr.Unauthorized("Senha incorreta")
	}
	if !ValidateTOTP(token, derefSecret(u.TwoFactorSecret), s.now()) {
		return nil, apperr.Unauthorized("Token inválido")
	}

	codes, err := NewBackupCodes(BackupCodeCount)
	if err != nil {
		return nil, apperr.Internal("Erro ao gerar códigos de backup", err)
	}
	if err := s.Users.ReplaceBackupCodes(ctx, u.ID, hashAll(u.ID, codes)); err != nil {
		if errors.Is(err, userRepo.ErrStale) {
			return nil, apperr.InvalidState("2FA não está ativado")
		}
		return nil, apperr.Internal("Erro ao salvar códigos de backup", err)
	}
	s.audit(ctx, auditService.EntryFor(actor, constants.AuditBackupCodesRegenerated, constants.EntityUser, u.ID.String()))
	return codes, nil
}
