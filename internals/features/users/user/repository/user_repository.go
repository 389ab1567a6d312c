package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"onboarding_backend/internals/features/users/user/model"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already registered")
	// conditional write matched no row (state changed underneath)
	ErrStale = errors.New("user state changed")
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) db(ctx context.Context) *gorm.DB {
	return r.DB.WithContext(ctx)
}

/* ===================== READ ===================== */

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.UserModel, error) {
	var u model.UserModel
	if err := r.db(ctx).Where("id = ?", id).Take(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.UserModel, error) {
	var u model.UserModel
	err := r.db(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).Take(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &u, nil
}

// FindByIDs loads users keyed by id; unknown ids are simply absent.
func (r *UserRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.UserModel, error) {
	out := make(map[uuid.UUID]model.UserModel, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []model.UserModel
	if err := r.db(ctx).
		Select("id", "name", "email", "role", "permission_level", "is_active").
		Where("id IN ?", ids).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	for _, u := range rows {
		out[u.ID] = u
	}
	return out, nil
}

type ListFilter struct {
	Search          string
	PermissionLevel string
	IsActive        *bool
}

func (r *UserRepository) List(ctx context.Context, f ListFilter, offset, limit int) ([]model.UserModel, int64, error) {
	q := r.db(ctx).Model(&model.UserModel{})
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}
	if f.PermissionLevel != "" {
		q = q.Where("permission_level = ?", f.PermissionLevel)
	}
	if f.IsActive != nil {
		q = q.Where("is_active = ?", *f.IsActive)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	var rows []model.UserModel
	if err := q.Order("name ASC").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return rows, total, nil
}

func (r *UserRepository) CountAll(ctx context.Context) (int64, error) {
	var n int64
	err := r.db(ctx).Model(&model.UserModel{}).Count(&n).Error
	return n, err
}

/* ===================== WRITE ===================== */

func (r *UserRepository) Create(ctx context.Context, u *model.UserModel) error {
	if err := r.db(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrEmailTaken
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// UpdateStatus applies the non-nil flags. Unblocking also clears the
// failed login counter.
func (r *UserRepository) UpdateStatus(ctx context.Context, id uuid.UUID, isActive, isBlocked *bool) error {
	return r.UpdateProfile(ctx, id, ProfileUpdate{IsActive: isActive, IsBlocked: isBlocked})
}

// ProfileUpdate carries the editable fields; nil means unchanged.
type ProfileUpdate struct {
	Name            *string
	Email           *string
	Role            *string
	PermissionLevel *string
	IsActive        *bool
	IsBlocked       *bool
}

func (p ProfileUpdate) columns() map[string]any {
	updates := map[string]any{}
	if p.Name != nil {
		updates["name"] = *p.Name
	}
	if p.Email != nil {
		updates["email"] = strings.ToLower(strings.TrimSpace(*p.Email))
	}
	if p.Role != nil {
		updates["role"] = *p.Role
	}
	if p.PermissionLevel != nil {
		updates["permission_level"] = *p.PermissionLevel
	}
	if p.IsActive != nil {
		updates["is_active"] = *p.IsActive
	}
	if p.IsBlocked != nil {
		updates["is_blocked"] = *p.IsBlocked
		if !*p.IsBlocked {
			updates["login_attempts"] = 0
		}
	}
	return updates
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id uuid.UUID, p ProfileUpdate) error {
	updates := p.columns()
	if len(updates) == 0 {
		return nil
	}
	res := r.db(ctx).Model(&model.UserModel{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return ErrEmailTaken
		}
		return fmt.Errorf("update user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePassword stores the new hash and revokes the refresh token.
func (r *UserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	res := r.db(ctx).Model(&model.UserModel{}).Where("id = ?", id).Updates(map[string]any{
		"password":         hash,
		"refresh_token_id": gorm.Expr("NULL"),
	})
	if res.Error != nil {
		return fmt.Errorf("update password: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db(ctx).Where("id = ?", id).Delete(&model.UserModel{})
	if res.Error != nil {
		return fmt.Errorf("delete user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

type FailedLogin struct {
	LoginAttempts int  `gorm:"column:login_attempts"`
	IsBlocked     bool `gorm:"column:is_blocked"`
}

// RegisterFailedLogin bumps the counter in one statement and blocks the
// account once it reaches maxAttempts.
func (r *UserRepository) RegisterFailedLogin(ctx context.Context, id uuid.UUID, maxAttempts int) (FailedLogin, error) {
	var out FailedLogin
	err := r.db(ctx).Raw(`
		UPDATE users
		   SET login_attempts = login_attempts + 1,
		       is_blocked = is_blocked OR (login_attempts + 1 >= ?),
		       updated_at = NOW()
		 WHERE id = ?
		RETURNING login_attempts, is_blocked`, maxAttempts, id).Scan(&out).Error
	if err != nil {
		return out, fmt.Errorf("register failed login: %w", err)
	}
	return out, nil
}

func (r *UserRepository) MarkLoginSuccess(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db(ctx).Model(&model.UserModel{}).Where("id = ?", id).Updates(map[string]any{
		"login_attempts": 0,
		"last_login_at":  at,
	}).Error
}

/* ===================== REFRESH TOKEN ===================== */

func (r *UserRepository) SetRefreshTokenID(ctx context.Context, id uuid.UUID, jti string) error {
	res := r.db(ctx).Model(&model.UserModel{}).Where("id = ?", id).Update("refresh_token_id", jti)
	if res.Error != nil {
		return fmt.Errorf("store refresh token id: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RotateRefreshTokenID swaps oldJTI for newJTI. A token that was already
// rotated or revoked matches no row and yields ErrStale.
func (r *UserRepository) RotateRefreshTokenID(ctx context.Context, id uuid.UUID, oldJTI, newJTI string) error {
	res := r.db(ctx).Model(&model.UserModel{}).
		Where("id = ? AND refresh_token_id = ?", id, oldJTI).
		Update("refresh_token_id", newJTI)
	if res.Error != nil {
		return fmt.Errorf("rotate refresh token id: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStale
	}
	return nil
}

func (r *UserRepository) ClearRefreshTokenID(ctx context.Context, id uuid.UUID) error {
	err := r.db(ctx).Model(&model.UserModel{}).Where("id = ?", id).
		Update("refresh_token_id", gorm.Expr("NULL")).Error
	if err != nil {
		return fmt.Errorf("clear refresh token id: %w", err)
	}
	return nil
}

/* ===================== TWO-FACTOR ===================== */

// SetPendingSecret stores a secret that is not active yet. Refused once
// 2FA is enabled.
func (r *UserRepository) SetPendingSecret(ctx context.Context, id uuid.UUID, secret string) error {
	res := r.db(ctx).Model(&model.UserModel{}).
		Where("id = ? AND two_factor_enabled = ?", id, false).
		Update("two_factor_secret", secret)
	if res.Error != nil {
		return fmt.Errorf("store pending secret: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStale
	}
	return nil
}

// EnableTwoFactor flips the pending secret to active together with the
// first batch of backup code hashes.
func (r *UserRepository) EnableTwoFactor(ctx context.Context, id uuid.UUID, secret string, codeHashes []string) error {
	res := r.db(ctx).Model(&model.UserModel{}).
		Where("id = ? AND two_factor_enabled = ? AND two_factor_secret = ?", id, false, secret).
		Updates(map[string]any{
			"two_factor_enabled":      true,
			"two_factor_backup_codes": pq.StringArray(codeHashes),
		})
	if res.Error != nil {
		return fmt.Errorf("enable 2fa: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStale
	}
	return nil
}

func (r *UserRepository) DisableTwoFactor(ctx context.Context, id uuid.UUID) error {
	res := r.db(ctx).Model(&model.UserModel{}).
		Where("id = ? AND two_factor_enabled = ?", id, true).
		Updates(map[string]any{
			"two_factor_enabled":      false,
			"two_factor_secret":       gorm.Expr("NULL"),
			"two_factor_backup_codes": gorm.Expr("NULL"),
		})
	if res.Error != nil {
		return fmt.Errorf("disable 2fa: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStale
	}
	return nil
}

func (r *UserRepository) ReplaceBackupCodes(ctx context.Context, id uuid.UUID, codeHashes []string) error {
	res := r.db(ctx).Model(&model.UserModel{}).
		Where("id = ? AND two_factor_enabled = ?", id, true).
		Update("two_factor_backup_codes", pq.StringArray(codeHashes))
	if res.Error != nil {
		return fmt.Errorf("replace backup codes: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStale
	}
	return nil
}

// ConsumeBackupCode removes codeHash from the stored list if present.
// Two concurrent calls with the same code cannot both succeed.
func (r *UserRepository) ConsumeBackupCode(ctx context.Context, id uuid.UUID, codeHash string) (bool, error) {
	res := r.db(ctx).Exec(`
		UPDATE users
		   SET two_factor_backup_codes = array_remove(two_factor_backup_codes, ?),
		       updated_at = NOW()
		 WHERE id = ?
		   AND two_factor_enabled = true
		   AND ? = ANY(two_factor_backup_codes)`, codeHash, id, codeHash)
	if res.Error != nil {
		return false, fmt.Errorf("consume backup code: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}
