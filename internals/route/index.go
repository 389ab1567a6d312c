package routes

import (
	"log"
	"time"

	rateLimiter "onboarding_backend/internals/middlewares"
	authMiddleware "onboarding_backend/internals/middlewares/auth"
	routeDetails "onboarding_backend/internals/route/details"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

var startTime time.Time

func SetupRoutes(app *fiber.App, db *gorm.DB, rdb redis.UniversalClient) {
	startTime = time.Now()

	BaseRoutes(app, db)

	api := app.Group("/api", rateLimiter.GlobalRateLimiter())

	// ===================== PUBLIC =====================
	// registered before the protected group so its middleware never runs for them
	log.Println("[INFO] Mounting public auth routes...")
	routeDetails.AuthPublicRoutes(api, db, rdb)

	// ===================== PROTECTED =====================
	log.Println("[INFO] Setting up PROTECTED group...")
	protected := api.Group("", authMiddleware.AuthMiddleware(db))

	routeDetails.AuthProtectedRoutes(protected, db, rdb)

	log.Println("[INFO] Mounting assignment routes...")
	routeDetails.AssignmentRoutes(protected, db)

	log.Println("[INFO] Mounting client routes...")
	routeDetails.ClientRoutes(protected, db)

	log.Println("[INFO] Mounting notification routes...")
	routeDetails.HomePrivateRoutes(protected, db)

	log.Println("[INFO] Mounting admin routes...")
	routeDetails.UserRoutes(protected, db)
	routeDetails.AuditRoutes(protected, db)
}
