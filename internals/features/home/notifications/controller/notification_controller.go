package controller

import (
	"errors"
	"log"
	"time"

	"onboarding_backend/internals/features/home/notifications/dto"
	"onboarding_backend/internals/features/home/notifications/model"
	userModel "onboarding_backend/internals/features/users/user/model"
	helper "onboarding_backend/internals/helpers"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationController struct {
	DB *gorm.DB
}

func NewNotificationController(db *gorm.DB) *NotificationController {
	return &NotificationController{DB: db}
}

// GET /api/notifications?unread=true&page=&per_page=
func (ctrl *NotificationController) ListMine(c *fiber.Ctx) error {
	userID, err := helper.GetUserIDFromToken(c)
	if err != nil {
		return helper.FromError(c, err)
	}
	p := helper.ResolvePaging(c, 20, 100)

	q := ctrl.DB.WithContext(c.UserContext()).
		Model(&model.NotificationModel{}).
		Where("user_id = ?", userID)
	if c.QueryBool("unread", false) {
		q = q.Where("is_read = ?", false)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		log.Printf("[ERROR] count notifications: %v", err)
		return helper.JsonError(c, fiber.StatusInternalServerError, "Erro ao contar notificações")
	}

	var rows []model.NotificationModel
	if err := q.Order("created_at DESC").Limit(p.Limit).Offset(p.Offset).Find(&rows).Error; err != nil {
		log.Printf("[ERROR] list notifications: %v", err)
		return helper.JsonError(c, fiber.StatusInternalServerError, "Erro ao buscar notificações")
	}

	pg := helper.BuildPaginationFromPage(total, p.Page, p.PerPage)
	return helper.JsonList(c, "Notificações", dto.ToNotificationResponseList(rows), &pg)
}

// GET /api/notifications/unread-count
func (ctrl *NotificationController) UnreadCount(c *fiber.Ctx) error {
	userID, err := helper.GetUserIDFromToken(c)
	if err != nil {
		return helper.FromError(c, err)
	}
	var n int64
	if err := ctrl.DB.WithContext(c.UserContext()).
		Model(&model.NotificationModel{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&n).Error; err != nil {
		log.Printf("[ERROR] unread count: %v", err)
		return helper.JsonError(c, fiber.StatusInternalServerError, "Erro ao contar notificações")
	}
	return helper.JsonOK(c, "ok", fiber.Map{"count": n})
}

// PUT /api/notifications/:id/read
func (ctrl *NotificationController) MarkAsRead(c *fiber.Ctx) error {
	userID, err := helper.GetUserIDFromToken(c)
	if err != nil {
		return helper.FromError(c, err)
	}
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "ID inválido")
	}

	res := ctrl.DB.WithContext(c.UserContext()).
		Model(&model.NotificationModel{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]any{
			"is_read": true,
			"read_at": gorm.Expr("COALESCE(read_at, ?)", time.Now()),
		})
	if res.Error != nil {
		log.Printf("[ERROR] mark notification read: %v", res.Error)
		return helper.JsonError(c, fiber.StatusInternalServerError, "Erro ao atualizar notificação")
	}
	if res.RowsAffected == 0 {
		return helper.JsonError(c, fiber.StatusNotFound, "Notificação não encontrada")
	}
	return helper.JsonUpdated(c, "Notificação marcada como lida", nil)
}

// PUT /api/notifications/read-all
func (ctrl *NotificationController) MarkAllAsRead(c *fiber.Ctx) error {
	userID, err := helper.GetUserIDFromToken(c)
	if err != nil {
		return helper.FromError(c, err)
	}
	res := ctrl.DB.WithContext(c.UserContext()).
		Model(&model.NotificationModel{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]any{"is_read": true, "read_at": time.Now()})
	if res.Error != nil {
		log.Printf("[ERROR] mark all read: %v", res.Error)
		return helper.JsonError(c, fiber.StatusInternalServerError, "Erro ao atualizar notificações")
	}
	return helper.JsonUpdated(c, "Notificações marcadas como lidas", fiber.Map{"updated": res.RowsAffected})
}

// loadOwned fetches a notification of the caller; another user's one
// yields 403.
func (ctrl *NotificationController) loadOwned(c *fiber.Ctx) (*model.NotificationModel, error) {
	userID, err := helper.GetUserIDFromToken(c)
	if err != nil {
		return nil, helper.FromError(c, err)
	}
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return nil, helper.JsonError(c, fiber.StatusBadRequest, "ID inválido")
	}
	var n model.NotificationModel
	if err := ctrl.DB.WithContext(c.UserContext()).Where("id = ?", id).Take(&n).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, helper.JsonError(c, fiber.StatusNotFound, "Notificação não encontrada")
		}
		log.Printf("[ERROR] find notification: %v", err)
		return nil, helper.JsonError(c, fiber.StatusInternalServerError, "Erro ao buscar notificação")
	}
	if n.UserID != userID {
		return nil, helper.JsonError(c, fiber.StatusForbidden, "Acesso negado")
	}
	return &n, nil
}

// GET /api/notifications/:id
func (ctrl *NotificationController) GetOne(c *fiber.Ctx) error {
	n, err := ctrl.loadOwned(c)
	if n == nil {
		return err
	}
	out := dto.ToNotificationResponse(n)
	if n.SenderID != nil {
		out.Sender = ctrl.sender(c, *n.SenderID)
	}
	return helper.JsonOK(c, "ok", out)
}

func (ctrl *NotificationController) sender(c *fiber.Ctx, id uuid.UUID) *userModel.UserSummary {
	var u userModel.UserModel
	err := ctrl.DB.WithContext(c.UserContext()).
		Select("id", "name", "email", "role").
		Where("id = ?", id).
		Take(&u).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[WARN] notification sender %s: %v", id, err)
		}
		return nil
	}
	return u.Summary()
}

// DELETE /api/notifications/:id
func (ctrl *NotificationController) DeleteOne(c *fiber.Ctx) error {
	n, err := ctrl.loadOwned(c)
	if n == nil {
		return err
	}
	if err := ctrl.DB.WithContext(c.UserContext()).Delete(&model.NotificationModel{}, "id = ?", n.ID).Error; err != nil {
		log.Printf("[ERROR] delete notification: %v", err)
		return helper.JsonError(c, fiber.StatusInternalServerError, "Erro ao excluir notificação")
	}
	return helper.JsonDeleted(c, "Notificação excluída", fiber.Map{"id": n.ID})
}

// DELETE /api/notifications removes the caller's read notifications.
func (ctrl *NotificationController) DeleteRead(c *fiber.Ctx) error {
	userID, err := helper.GetUserIDFromToken(c)
	if err != nil {
		return helper.FromError(c, err)
	}
	res := ctrl.DB.WithContext(c.UserContext()).
		Where("user_id = ? AND is_read = ?", userID, true).
		Delete(&model.NotificationModel{})
	if res.Error != nil {
		log.Printf("[ERROR] delete read notifications: %v", res.Error)
		return helper.JsonError(c, fiber.StatusInternalServerError, "Erro ao excluir notificações")
	}
	return helper.JsonDeleted(c, "Notificações lidas excluídas", fiber.Map{"deleted": res.RowsAffected})
}
