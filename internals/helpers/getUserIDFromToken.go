package helper

import (
	"strings"

	"onboarding_backend/internals/constants"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Locals keys written by the auth middleware
const (
	LocUserID          = "user_id"
	LocUserEmail       = "user_email"
	LocUserRole        = "user_role"
	LocPermissionLevel = "user_permission_level"
)

// Actor is the authenticated caller as seen by the services.
type Actor struct {
	ID              uuid.UUID
	Email           string
	Role            string
	PermissionLevel string
	IP              string
	UserAgent       string
	RequestID       string
}

func (a Actor) IsAdmin() bool { return a.PermissionLevel == constants.PermissionAdmin }

// Ambil user_id dari c.Locals("user_id")
// Return 401 kalau belum login, 400 kalau formatnya tidak valid.
func GetUserIDFromToken(c *fiber.Ctx) (uuid.UUID, error) {
	v := c.Locals(LocUserID)
	if v == nil {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "Usuário não autenticado")
	}

	switch t := v.(type) {
	case uuid.UUID:
		if t == uuid.Nil {
			return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "Usuário não autenticado")
		}
		return t, nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "Usuário não autenticado")
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "User ID do token inválido")
		}
		return id, nil
	default:
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "User ID do token inválido")
	}
}

// ActorFromLocals builds the Actor from what the auth middleware stored.
func ActorFromLocals(c *fiber.Ctx) (Actor, error) {
	id, err := GetUserIDFromToken(c)
	if err != nil {
		return Actor{}, err
	}
	a := Actor{
		ID:        id,
		IP:        c.IP(),
		UserAgent: string(c.Request().Header.UserAgent()),
		RequestID: RequestIDFromLocals(c),
	}
	if s, ok := c.Locals(LocUserEmail).(string); ok {
		a.Email = s
	}
	if s, ok := c.Locals(LocUserRole).(string); ok {
		a.Role = s
	}
	if s, ok := c.Locals(LocPermissionLevel).(string); ok && s != "" {
		a.PermissionLevel = s
	} else {
		a.PermissionLevel = constants.PermissionAnalyst
	}
	return a, nil
}

// AnonymousActor carries request metadata for public endpoints (login, 2FA verify).
func AnonymousActor(c *fiber.Ctx) Actor {
	return Actor{
		IP:        c.IP(),
		UserAgent: string(c.Request().Header.UserAgent()),
		RequestID: RequestIDFromLocals(c),
	}
}

func ParseUUIDParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(c.Params(name)))
}
