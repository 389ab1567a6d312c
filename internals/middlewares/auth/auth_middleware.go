package auth

import (
	"errors"
	"log"

	authRepo "onboarding_backend/internals/features/users/auth/repository"
	authService "onboarding_backend/internals/features/users/auth/service"
	userRepo "onboarding_backend/internals/features/users/user/repository"
	helper "onboarding_backend/internals/helpers"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func AuthMiddleware(db *gorm.DB) fiber.Handler {
	blacklist := authRepo.NewBlacklistRepository(db)
	users := userRepo.NewUserRepository(db)

	return func(c *fiber.Ctx) error {
		// 1) Authorization header (or cookie)
		tokenString, err := extractBearerToken(c)
		if err != nil {
			return helper.JsonError(c, fiber.StatusUnauthorized, err.Error())
		}

		// 2) Blacklist (logout)
		revoked, err := blacklist.IsBlacklisted(c.UserContext(), tokenString)
		if err != nil {
			log.Println("[ERROR] DB error ao checar blacklist:", err)
			return helper.JsonError(c, fiber.StatusInternalServerError, "Erro interno")
		}
		if revoked {
			return helper.JsonError(c, fiber.StatusUnauthorized, "Token revogado")
		}

		// 3) Signature, exp, iss, aud, purpose
		claims, err := authService.ParseToken(tokenString, authService.PurposeAccess)
		if err != nil {
			return helper.JsonError(c, fiber.StatusUnauthorized, "Token inválido ou expirado")
		}
		userID, _ := claims.UserID()

		// 4) The account may have changed since the token was issued
		user, err := users.FindByID(c.UserContext(), userID)
		if err != nil {
			if errors.Is(err, userRepo.ErrNotFound) {
				return helper.JsonError(c, fiber.StatusUnauthorized, "Usuário não encontrado")
			}
			log.Println("[ERROR] auth user lookup:", err)
			return helper.JsonError(c, fiber.StatusInternalServerError, "Erro interno")
		}
		if err := ensureUserActive(user.IsActive, user.IsBlocked); err != nil {
			return helper.JsonError(c, fiber.StatusForbidden, err.Error())
		}

		// 5) Locals for controllers; level comes from the DB, not the token
		c.Locals(helper.LocUserID, user.ID.String())
		c.Locals(helper.LocUserEmail, user.Email)
		c.Locals(helper.LocUserRole, user.Role)
		c.Locals(helper.LocPermissionLevel, user.PermissionLevel)
		helper.SetRawAccessToken(c, tokenString)

		return c.Next()
	}
}
