package controller

import (
	"strings"

	"onboarding_backend/internals/configs"
	auditService "onboarding_backend/internals/features/audit/audit_logs/service"
	"onboarding_backend/internals/features/users/auth/dto"
	authRepo "onboarding_backend/internals/features/users/auth/repository"
	"onboarding_backend/internals/features/users/auth/service"
	userDTO "onboarding_backend/internals/features/users/user/dto"
	userRepo "onboarding_backend/internals/features/users/user/repository"
	helper "onboarding_backend/internals/helpers"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type AuthController struct {
	DB  *gorm.DB
	Svc *service.AuthService
}

func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{
		DB: db,
		Svc: &service.AuthService{
			Users:       userRepo.NewUserRepository(db),
			Blacklist:   authRepo.NewBlacklistRepository(db),
			Audit:       auditService.NewRecorder(db),
			MaxAttempts: configs.GetEnvInt("LOGIN_MAX_ATTEMPTS", 5),
		},
	}
}

// POST /api/auth/login
func (ac *AuthController) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Corpo da requisição inválido")
	}
	req.Email = strings.TrimSpace(req.Email)

	res, err := ac.Svc.Login(c.UserContext(), req.Email, req.Password, helper.AnonymousActor(c))
	if err != nil {
		return helper.FromError(c, err)
	}
	if res.RequiresTwoFactor {
		return helper.JsonOK(c, "Verificação em duas etapas necessária", dto.ToLoginResponse(res))
	}
	return helper.JsonOK(c, "Login realizado com sucesso", dto.ToLoginResponse(res))
}

// POST /api/auth/refresh
func (ac *AuthController) RefreshToken(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Corpo da requisição inválido")
	}
	if req.RefreshToken == "" {
		req.RefreshToken = strings.TrimSpace(c.Cookies("refresh_token"))
	}
	pair, err := ac.Svc.Refresh(c.UserContext(), req.RefreshToken, helper.AnonymousActor(c))
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonOK(c, "Token renovado", pair)
}

// POST /api/auth/logout
func (ac *AuthController) Logout(c *fiber.Ctx) error {
	actor, err := helper.ActorFromLocals(c)
	if err != nil {
		return helper.FromError(c, err)
	}
	if err := ac.Svc.Logout(c.UserContext(), helper.GetRawAccessToken(c), actor); err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonOK(c, "Logout realizado com sucesso", nil)
}

// POST /api/auth/change-password
func (ac *AuthController) ChangePassword(c *fiber.Ctx) error {
	actor, err := helper.ActorFromLocals(c)
	if err != nil {
		return helper.FromError(c, err)
	}
	var req dto.ChangePasswordRequest
	if ok, err := helper.ParseAndValidate(c, &req); !ok {
		return err
	}
	if err := ac.Svc.ChangePassword(c.UserContext(), actor, req.CurrentPassword, req.NewPassword); err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonOK(c, "Senha alterada com sucesso", nil)
}

// GET /api/auth/me
func (ac *AuthController) Me(c *fiber.Ctx) error {
	userID, err := helper.GetUserIDFromToken(c)
	if err != nil {
		return helper.FromError(c, err)
	}
	user, err := ac.Svc.Me(c.UserContext(), userID)
	if err != nil {
		return helper.FromError(c, err)
	}
	return helper.JsonOK(c, "ok", userDTO.FromModel(*user))
}
