package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
)

/* ======== Extractors ======== */

func extractBearerToken(c *fiber.Ctx) (string, error) {
	auth := strings.TrimSpace(c.Get("Authorization"))
	if auth == "" {
		if cookieTok := c.Cookies("access_token"); cookieTok != "" {
			auth = "Bearer " + cookieTok
		}
	}
	if auth == "" {
		return "", errors.New("Token não informado")
	}

	// tolerate double spaces and lowercase scheme
	fields := strings.Fields(auth)
	if len(fields) < 2 || !strings.EqualFold(fields[0], "Bearer") {
		return "", errors.New("Formato de token inválido")
	}
	tok := strings.Trim(strings.TrimSpace(fields[1]), "\"'")
	if tok == "" {
		return "", errors.New("Token vazio")
	}
	return tok, nil
}

func ensureUserActive(isActive, isBlocked bool) error {
	if isBlocked {
		return errors.New("Usuário bloqueado")
	}
	if !isActive {
		return errors.New("Usuário inativo")
	}
	return nil
}
