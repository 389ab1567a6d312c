package route

import (
	"onboarding_backend/internals/features/home/notifications/controller"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// NotificationUserRoutes mounts the inbox on an authenticated router.
func NotificationUserRoutes(user fiber.Router, db *gorm.DB) {
	ctrl := controller.NewNotificationController(db)

	notification := user.Group("/notifications")
	notification.Get("/", ctrl.ListMine)
	notification.Delete("/", ctrl.DeleteRead)
	notification.Get("/unread-count", ctrl.UnreadCount)
	notification.Put("/read-all", ctrl.MarkAllAsRead)
	notification.Get("/:id", ctrl.GetOne)
	notification.Put("/:id/read", ctrl.MarkAsRead)
	notification.Delete("/:id", ctrl.DeleteOne)
}
