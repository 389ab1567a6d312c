package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"onboarding_backend/internals/features/clients/clients/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNotFound      = errors.New("client not found")
	ErrStageNotFound = errors.New("onboarding stage not found")
	// another client already uses the normalized CNPJ
	ErrDuplicateCNPJ = errors.New("cnpj already registered")
)

type ClientRepository struct {
	DB *gorm.DB
}

func NewClientRepository(db *gorm.DB) *ClientRepository {
	return &ClientRepository{DB: db}
}

func (r *ClientRepository) db(ctx context.Context) *gorm.DB {
	return r.DB.WithContext(ctx)
}

/* ===================== CLIENTS ===================== */

func (r *ClientRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.ClientModel, error) {
	var m model.ClientModel
	if err := r.db(ctx).Where("id = ?", id).Take(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find client: %w", err)
	}
	return &m, nil
}

type ListFilter struct {
	// matches company name, cnpj, contact name or contact email
	Search     string
	Status     model.ClientStatus
	AssigneeID *uuid.UUID
}

func (r *ClientRepository) List(ctx context.Context, f ListFilter, offset, limit int) ([]model.ClientModel, int64, error) {
	q := r.db(ctx).Model(&model.ClientModel{})
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(company_name) LIKE ? OR cnpj LIKE ? OR LOWER(contact_name) LIKE ? OR LOWER(contact_email) LIKE ?",
			like, like, like, like)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.AssigneeID != nil {
		q = q.Where("assignee_id = ?", *f.AssigneeID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count clients: %w", err)
	}
	var rows []model.ClientModel
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("list clients: %w", err)
	}
	return rows, total, nil
}

// Create inserts the client together with its first onboarding stage
// (initial_meeting, pending). A CNPJ already in use yields ErrDuplicateCNPJ.
func (r *ClientRepository) Create(ctx context.Context, c *model.ClientModel) (*model.OnboardingStageModel, error) {
	stage := &model.OnboardingStageModel{Stage: model.StageInitialMeeting, Status: model.StagePending}
	err := r.db(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.ClientModel{}).Where("cnpj = ?", c.CNPJ).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrDuplicateCNPJ
		}
		if err := tx.Create(c).Error; err != nil {
			return err
		}
		stage.ClientID = c.ID
		return tx.Create(stage).Error
	})
	switch {
	case err == nil:
		return stage, nil
	case errors.Is(err, ErrDuplicateCNPJ), errors.Is(err, gorm.ErrDuplicatedKey):
		return nil, ErrDuplicateCNPJ
	default:
		return nil, fmt.Errorf("create client: %w", err)
	}
}

// Patch holds the client columns to change; nil means unchanged.
type Patch struct {
	CompanyName  *string
	CNPJ         *string
	Sector       *string
	ContactName  *string
	ContactEmail *string
	ContactPhone *string
	Status       *model.ClientStatus
	AssigneeID   *uuid.UUID
	Notes        *string
}

func (p Patch) columns() map[string]any {
	cols := map[string]any{}
	set := func(name string, v *string) {
		if v != nil {
			cols[name] = *v
		}
	}
	set("company_name", p.CompanyName)
	set("cnpj", p.CNPJ)
	set("sector", p.Sector)
	set("contact_name", p.ContactName)
	set("contact_email", p.ContactEmail)
	set("contact_phone", p.ContactPhone)
	set("notes", p.Notes)
	if p.Status != nil {
		cols["status"] = *p.Status
	}
	if p.AssigneeID != nil {
		cols["assignee_id"] = *p.AssigneeID
	}
	return cols
}

func (r *ClientRepository) Update(ctx context.Context, id uuid.UUID, p Patch) error {
	cols := p.columns()
	if len(cols) == 0 {
		return nil
	}
	res := r.db(ctx).Model(&model.ClientModel{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return ErrDuplicateCNPJ
		}
		return fmt.Errorf("update client: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the client; its stages go with it (ON DELETE CASCADE).
func (r *ClientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db(ctx).Where("id = ?", id).Delete(&model.ClientModel{})
	if res.Error != nil {
		return fmt.Errorf("delete client: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

/* ===================== STAGES ===================== */

func (r *ClientRepository) Stages(ctx context.Context, clientID uuid.UUID) ([]model.OnboardingStageModel, error) {
	var rows []model.OnboardingStageModel
	if err := r.db(ctx).Where("client_id = ?", clientID).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list onboarding stages: %w", err)
	}
	return rows, nil
}

// CurrentStages returns, per client, the oldest stage not completed yet.
// Clients with every stage completed are absent.
func (r *ClientRepository) CurrentStages(ctx context.Context, clientIDs []uuid.UUID) (map[uuid.UUID]model.OnboardingStageModel, error) {
	out := make(map[uuid.UUID]model.OnboardingStageModel, len(clientIDs))
	if len(clientIDs) == 0 {
		return out, nil
	}
	var rows []model.OnboardingStageModel
	err := r.db(ctx).Raw(`
		SELECT DISTINCT ON (client_id) *
		  FROM onboarding_stages
		 WHERE client_id IN ? AND status <> ?
		 ORDER BY client_id, created_at ASC`, clientIDs, model.StageDone).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("current onboarding stages: %w", err)
	}
	for _, s := range rows {
		out[s.ClientID] = s
	}
	return out, nil
}

func (r *ClientRepository) FindStage(ctx context.Context, id uuid.UUID) (*model.OnboardingStageModel, error) {
	var m model.OnboardingStageModel
	if err := r.db(ctx).Where("id = ?", id).Take(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStageNotFound
		}
		return nil, fmt.Errorf("find onboarding stage: %w", err)
	}
	return &m, nil
}

type StagePatch struct {
	Stage         *model.StageName
	Status        *model.StageStatus
	ScheduledDate *time.Time
	// set when Status moves to completed, cleared when it moves away
	CompletedDate  *time.Time
	ClearCompleted bool
	Notes          *string
}

func (p StagePatch) columns() map[string]any {
	cols := map[string]any{}
	if p.Stage != nil {
		cols["stage"] = *p.Stage
	}
	if p.Status != nil {
		cols["status"] = *p.Status
	}
	if p.ScheduledDate != nil {
		cols["scheduled_date"] = *p.ScheduledDate
	}
	if p.CompletedDate != nil {
		cols["completed_date"] = *p.CompletedDate
	} else if p.ClearCompleted {
		cols["completed_date"] = gorm.Expr("NULL")
	}
	if p.Notes != nil {
		cols["notes"] = *p.Notes
	}
	return cols
}

func (r *ClientRepository) UpdateStage(ctx context.Context, id uuid.UUID, p StagePatch) error {
	cols := p.columns()
	if len(cols) == 0 {
		return nil
	}
	res := r.db(ctx).Model(&model.OnboardingStageModel{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return fmt.Errorf("update onboarding stage: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStageNotFound
	}
	return nil
}
