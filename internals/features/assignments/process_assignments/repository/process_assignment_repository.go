package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"onboarding_backend/internals/features/assignments/process_assignments/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound = errors.New("assignment not found")
	// an active (pending|signed) assignment already exists for the process
	ErrActiveExists = errors.New("active assignment exists")
	// the row left the expected status before the write landed
	ErrStale = errors.New("assignment status changed")
)

type ProcessAssignmentRepository struct {
	DB *gorm.DB
}

func NewProcessAssignmentRepository(db *gorm.DB) *ProcessAssignmentRepository {
	return &ProcessAssignmentRepository{DB: db}
}

func (r *ProcessAssignmentRepository) db(ctx context.Context) *gorm.DB {
	return r.DB.WithContext(ctx)
}

func forUpdate() clause.Expression { return clause.Locking{Strength: "UPDATE"} }

/* ===================== READ ===================== */

func (r *ProcessAssignmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.ProcessAssignmentModel, error) {
	var m model.ProcessAssignmentModel
	if err := r.db(ctx).Where("id = ?", id).Take(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find assignment: %w", err)
	}
	return &m, nil
}

// FindActive returns the pending or signed assignment of a process.
func (r *ProcessAssignmentRepository) FindActive(ctx context.Context, processType, processID string) (*model.ProcessAssignmentModel, error) {
	return findActive(r.db(ctx), processType, processID)
}

func findActive(tx *gorm.DB, processType, processID string) (*model.ProcessAssignmentModel, error) {
	var m model.ProcessAssignmentModel
	err := tx.
		Where("process_type = ? AND process_id = ? AND status IN ?", processType, processID, model.ActiveStatuses).
		Order("created_at DESC").
		Take(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find active assignment: %w", err)
	}
	return &m, nil
}

type ListFilter struct {
	Status      model.AssignmentStatus
	AssignedTo  *uuid.UUID
	AssignedBy  *uuid.UUID
	ProcessType string
	ProcessID   string
}

func (r *ProcessAssignmentRepository) List(ctx context.Context, f ListFilter, offset, limit int) ([]model.ProcessAssignmentModel, int64, error) {
	q := r.db(ctx).Model(&model.ProcessAssignmentModel{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.AssignedTo != nil {
		q = q.Where("assigned_to = ?", *f.AssignedTo)
	}
	if f.AssignedBy != nil {
		q = q.Where("assigned_by = ?", *f.AssignedBy)
	}
	if s := strings.TrimSpace(f.ProcessType); s != "" {
		q = q.Where("process_type = ?", s)
	}
	if s := strings.TrimSpace(f.ProcessID); s != "" {
		q = q.Where("process_id = ?", s)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count assignments: %w", err)
	}
	var rows []model.ProcessAssignmentModel
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("list assignments: %w", err)
	}
	return rows, total, nil
}

/* ===================== WRITE ===================== */

// Create inserts m unless the process already has an active assignment, in
// which case that assignment is returned with ErrActiveExists. The partial
// unique index uq_process_assignments_active catches inserts racing past
// the check. ErrActiveExists may come with a nil assignment when the racing
// winner left the active states before it could be read back twice in a row.
func (r *ProcessAssignmentRepository) Create(ctx context.Context, m *model.ProcessAssignmentModel) (*model.ProcessAssignmentModel, error) {
	for attempt := 0; ; attempt++ {
		existing, err := r.insertUnlessActive(ctx, m)
		switch {
		case err == nil:
			return m, nil
		case errors.Is(err, ErrActiveExists):
			return existing, ErrActiveExists
		case !errors.Is(err, gorm.ErrDuplicatedKey):
			return nil, fmt.Errorf("create assignment: %w", err)
		}

		// lost the race; the winner is committed by now
		winner, ferr := r.FindActive(ctx, m.ProcessType, m.ProcessID)
		if ferr == nil {
			return winner, ErrActiveExists
		}
		if !errors.Is(ferr, ErrNotFound) {
			return nil, fmt.Errorf("load conflicting assignment: %w", ferr)
		}
		// winner was already rejected or completed: the slot is free, retry once
		if attempt > 0 {
			return nil, ErrActiveExists
		}
	}
}

func (r *ProcessAssignmentRepository) insertUnlessActive(ctx context.Context, m *model.ProcessAssignmentModel) (*model.ProcessAssignmentModel, error) {
	var existing *model.ProcessAssignmentModel
	err := r.db(ctx).Transaction(func(tx *gorm.DB) error {
		cur, err := findActive(tx.Clauses(forUpdate()), m.ProcessType, m.ProcessID)
		switch {
		case err == nil:
			existing = cur
			return ErrActiveExists
		case !errors.Is(err, ErrNotFound):
			return err
		}
		return tx.Create(m).Error
	})
	return existing, err
}

// Patch is the set of columns a transition writes.
type Patch struct {
	Status          model.AssignmentStatus
	SignedAt        *time.Time
	RejectedAt      *time.Time
	CompletedAt     *time.Time
	RejectionReason *string
}

func (p Patch) columns() map[string]any {
	cols := map[string]any{"status": p.Status}
	if p.SignedAt != nil {
		cols["signed_at"] = *p.SignedAt
	}
	if p.RejectedAt != nil {
		cols["rejected_at"] = *p.RejectedAt
	}
	if p.CompletedAt != nil {
		cols["completed_at"] = *p.CompletedAt
	}
	if p.RejectionReason != nil {
		cols["rejection_reason"] = *p.RejectionReason
	}
	return cols
}

// Transition applies p only while the row is still in one of from.
func (r *ProcessAssignmentRepository) Transition(ctx context.Context, id uuid.UUID, from []model.AssignmentStatus, p Patch) error {
	res := r.db(ctx).Model(&model.ProcessAssignmentModel{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(p.columns())
	if res.Error != nil {
		return fmt.Errorf("transition assignment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStale
	}
	return nil
}

// Delete removes the row only while it is still in one of from.
func (r *ProcessAssignmentRepository) Delete(ctx context.Context, id uuid.UUID, from []model.AssignmentStatus) error {
	res := r.db(ctx).
		Where("id = ? AND status IN ?", id, from).
		Delete(&model.ProcessAssignmentModel{})
	if res.Error != nil {
		return fmt.Errorf("delete assignment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStale
	}
	return nil
}
