package dto

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ListQuery struct {
	Action string
	Entity string
	UserID *uuid.UUID
}

func ParseListQuery(c *fiber.Ctx) (ListQuery, error) {
	q := ListQuery{
		Action: strings.TrimSpace(c.Query("action")),
		Entity: strings.TrimSpace(c.Query("entity")),
	}
	if s := strings.TrimSpace(c.Query("user_id")); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return q, err
		}
		q.UserID = &id
	}
	return q, nil
}
