package controller

import (
	"errors"
	"log"

	"onboarding_backend/internals/features/audit/audit_logs/dto"
	"onboarding_backend/internals/features/audit/audit_logs/model"
	helper "onboarding_backend/internals/helpers"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type AuditLogController struct {
	DB *gorm.DB
}

func NewAuditLogController(db *gorm.DB) *AuditLogController {
	return &AuditLogController{DB: db}
}

// GET /api/audit-logs?action=&entity=&user_id=&page=&per_page=
func (ctrl *AuditLogController) List(c *fiber.Ctx) error {
	f, err := dto.ParseListQuery(c)
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "user_id inválido")
	}
	p := helper.ResolvePaging(c, 50, 200)

	q := ctrl.DB.WithContext(c.UserContext()).Model(&model.AuditLogModel{})
	if f.Action != "" {
		q = q.Where("action = ?", f.Action)
	}
	if f.Entity != "" {
		q = q.Where("entity = ?", f.Entity)
	}
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		log.Printf("[ERROR] count audit logs: %v", err)
		return helper.JsonError(c, fiber.StatusInternalServerError, "Erro ao contar registros de auditoria")
	}
	var rows []model.AuditLogModel
	if err := q.Order("created_at DESC").Limit(p.Limit).Offset(p.Offset).Find(&rows).Error; err != nil {
		log.Printf("[ERROR] list audit logs: %v", err)
		return helper.JsonError(c, fiber.StatusInternalServerError, "Erro ao buscar registros de auditoria")
	}

	pg := helper.BuildPaginationFromPage(total, p.Page, p.PerPage)
	return helper.JsonList(c, "Registros de auditoria", rows, &pg)
}

// GET /api/audit-logs/:id
func (ctrl *AuditLogController) Get(c *fiber.Ctx) error {
	id, err := helper.ParseUUIDParam(c, "id")
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "ID inválido")
	}
	var row model.AuditLogModel
	if err := ctrl.DB.WithContext(c.UserContext()).Where("id = ?", id).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return helper.JsonError(c, fiber.StatusNotFound, "Registro não encontrado")
		}
		log.Printf("[ERROR] get audit log: %v", err)
		return helper.JsonError(c, fiber.StatusInternalServerError, "Erro ao buscar registro")
	}
	return helper.JsonOK(c, "ok", row)
}
