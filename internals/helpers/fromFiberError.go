package helper

import (
	"errors"
	"log"

	"onboarding_backend/internals/helpers/apperr"

	"github.com/gofiber/fiber/v2"
)

// FromError turns a service error into the standard JSON error body.
// *apperr.Error keeps its kind as error_code; *fiber.Error keeps its code;
// anything else is logged and answered with a generic 500.
func FromError(c *fiber.Ctx, err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		if ae.Kind == apperr.KindInternal {
			log.Printf("[ERROR] %s %s: %v", c.Method(), c.OriginalURL(), err)
		}
		return jsonErrorWithCode(c, ae.Status(), ae.Message, string(ae.Kind), ae.Extra)
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return JsonError(c, fe.Code, fe.Message)
	}
	log.Printf("[ERROR] %s %s: %v", c.Method(), c.OriginalURL(), err)
	return JsonError(c, fiber.StatusInternalServerError, "Erro interno")
}
