package helper

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// ValidateStruct runs validator tags; the returned map is keyed by json-ish
// lowercase field names.
func ValidateStruct(v any) map[string][]string {
	if err := validate.Struct(v); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			return map[string][]string{"_": {err.Error()}}
		}
		out := make(map[string][]string, len(ve))
		for _, fieldErr := range ve {
			name := strings.ToLower(fieldErr.Field())
			out[name] = append(out[name], messageForTag(fieldErr))
		}
		return out
	}
	return nil
}

func messageForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " é obrigatório"
	case "email":
		return "formato de email inválido"
	case "min":
		return fe.Field() + " deve ter no mínimo " + fe.Param() + " caracteres"
	case "max":
		return fe.Field() + " deve ter no máximo " + fe.Param() + " caracteres"
	case "oneof":
		return fe.Field() + " deve ser um de: " + fe.Param()
	case "len":
		return fe.Field() + " deve ter " + fe.Param() + " caracteres"
	case "numeric":
		return fe.Field() + " deve conter apenas dígitos"
	default:
		return "formato inválido"
	}
}

// Normalizer is implemented by request bodies that trim, default or merge
// alias fields before validation.
type Normalizer interface {
	Normalize()
}

// ParseAndValidate decodes the body into dst, normalizes and validates it.
// When ok is false the error response is already written; return err from
// the handler.
func ParseAndValidate(c *fiber.Ctx, dst any) (bool, error) {
	if err := c.BodyParser(dst); err != nil {
		return false, JsonError(c, fiber.StatusBadRequest, "Corpo da requisição inválido")
	}
	if n, ok := dst.(Normalizer); ok {
		n.Normalize()
	}
	if fieldErrs := ValidateStruct(dst); len(fieldErrs) > 0 {
		return false, JsonValidationError(c, fieldErrs)
	}
	return true, nil
}
