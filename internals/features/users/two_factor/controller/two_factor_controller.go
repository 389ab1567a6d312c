package controller

import (
	"context"
	"log"
	"strings"
	"time"

	"onboarding_backend/internals/configs"
	auditService "onboarding_backend/internals/features/audit/audit_logs/service"
	authDTO "onboarding_backend/internals/features/users/auth/dto"
	authRepo "onboarding_backend/internals/features/users/auth/repository"
	authService "onboarding_backend/internals/features/users/auth/service"
	"onboarding_backend/internals/features/users/two_factor/dto"
	"onboarding_backend/internals/features/users/two_factor/service"
	userRepo "onboarding_backend/internals/features/users/user/repository"
	helper "onboarding_backend/internals/helpers"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type TwoFactorController struct {
	DB   *gorm.DB
	Svc  *service.Service
	Auth *authService.AuthService
}

func NewTwoFactorController(db *gorm.DB, rdb redis.UniversalClient) *TwoFactorController {
	users := userRepo.NewUserRepository(db)
	recorder := auditService.NewRecorder(db)

	return &TwoFactorController{
		DB: db,
		Svc: &service.Service{
			Users: users,
			Limiter: service.NewRedisVerifyLimiter(rdb, service.LimiterConfig{
				MaxAttempts: configs.GetEnvInt("TWO_FACTOR_MAX_ATTEMPTS", 5),
				Cooldown:    time.Duration(configs.GetEnvInt("TWO_FACTOR_LOCK_MINUTES", 15)) * time.Minute,
			}),
			Audit:                recorder,
			Issuer:               configs.AppName,
			QRFormat:             configs.GetEnv("TOTP_QR_FORMAT", service.QRFormatPNG),
			DisableRequiresToken: configs.GetEnvBool("TWO_FACTOR_DISABLE_REQUIRES_TOKEN", false),
		},
		Auth: &authService.AuthService{
			Users:       users,
			Blacklist:   authRepo.NewBlacklistRepository(db),
			Audit:       recorder,
			MaxAttempts: configs.GetEnvInt("LOGIN_MAX_ATTEMPTS", 5),
		},
	}
}

// NewRedisClient returns nil when REDIS_URL is empty or unusable; the
// verify limiter then lets every attempt through.
func NewRedisClient(url string) redis.UniversalClient {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("[WARN] REDIS_URL inválido: %v", err)
		return nil
	}
	rdb := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("[WARN] redis indisponível (%v), seguindo sem limitador 2FA", err)
	} else {
		log.Println("✅ Redis conectado.")
	}
	return rdb
}

// GET /api/auth/2fa/status
func (tc *TwoFactorController) Status(c *fiber.Ctx) error {
	userID, err := helper.GetUserIDFromToken(c)
	if err != nil {
		return helper.FromError(c, err)
	}
	st, err := tc.Svc.Status(c.UserContext(), userID)
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonOK(c, "ok", st)
}

// POST /api/auth/2fa/setup
func (tc *TwoFactorController) Setup(c *fiber.Ctx) error {
	userID, err := helper.GetUserIDFromToken(c)
	if err != nil {
		return helper.FromError(c, err)
	}
	res, err := tc.Svc.Setup(c.UserContext(), userID)
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonOK(c, "Escaneie o QR code com seu aplicativo autenticador", res)
}

// POST /api/auth/2fa/verify-setup
func (tc *TwoFactorController) VerifySetup(c *fiber.Ctx) error {
	actor, err := helper.ActorFromLocals(c)
	if err != nil {
		return helper.FromError(c, err)
	}
	var req dto.VerifySetupRequest
	if ok, err := helper.ParseAndValidate(c, &req); !ok {
		return err
	}
	codes, err := tc.Svc.VerifySetup(c.UserContext(), actor, req.Token)
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonOK(c, "2FA ativado com sucesso", dto.NewBackupCodesResponse(codes))
}

// POST /api/auth/2fa/verify (public)
func (tc *TwoFactorController) VerifyLogin(c *fiber.Ctx) error {
	var req dto.VerifyLoginRequest
	if ok, err := helper.ParseAndValidate(c, &req); !ok {
		return err
	}
	actor := helper.AnonymousActor(c)
	ctx := c.UserContext()

	// reject a bad challenge before a backup code gets burned
	challenge := strings.TrimSpace(req.ChallengeToken)
	if challenge != "" {
		claims, err := authService.ParseToken(challenge, authService.PurposeTwoFactor)
		if err != nil {
			return helper.JsonError(c, fiber.StatusUnauthorized, "Desafio 2FA inválido ou expirado")
		}
		if id, _ := claims.UserID(); id != req.UserID {
			return helper.JsonError(c, fiber.StatusUnauthorized, "Desafio 2FA inválido ou expirado")
		}
	}

	res, err := tc.Svc.VerifyLogin(ctx, req.UserID, req.Token, req.IsBackupCode, actor)
	if err != nil {
		return helper.FromError(c, err)
	}
	out := dto.VerifyLoginResponse{
		Verified:             true,
		Method:               res.Method,
		RemainingBackupCodes: res.RemainingBackupCodes,
	}
	if challenge != "" {
		session, err := tc.Auth.CompleteTwoFactorLogin(ctx, req.UserID, challenge, actor)
		if err != nil {
			return helper.FromError(c, err)
		}
		out.Session = authDTO.ToSessionResponse(session)
	}
	return helper.JsonOK(c, "Verificação 2FA concluída", out)
}

// POST /api/auth/2fa/disable
func (tc *TwoFactorController) Disable(c *fiber.Ctx) error {
	actor, err := helper.ActorFromLocals(c)
	if err != nil {
		return helper.FromError(c, err)
	}
	var req dto.DisableRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Corpo da requisição inválido")
	}
	if err := tc.Svc.Disable(c.UserContext(), actor, req.Password, req.Token); err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonOK(c, "2FA desativado com sucesso", nil)
}

// POST /api/auth/2fa/regenerate-backup-codes
func (tc *TwoFactorController) RegenerateBackupCodes(c *fiber.Ctx) error {
	actor, err := helper.ActorFromLocals(c)
	if err != nil {
		return helper.FromError(c, err)
	}
	var req dto.RegenerateBackupCodesRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Corpo da requisição inválido")
	}
	codes, err := tc.Svc.RegenerateBackupCodes(c.UserContext(), actor, req.Password, req.Token)
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonOK(c, "Códigos de backup regenerados", dto.NewBackupCodesResponse(codes))
}
