package repository

import (
	"context"
	"errors"
	"time"

	authModel "onboarding_backend/internals/features/users/auth/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

/* ====================== BLACKLIST TOKEN ====================== */

type BlacklistRepository struct {
	DB *gorm.DB
}

func NewBlacklistRepository(db *gorm.DB) *BlacklistRepository {
	return &BlacklistRepository{DB: db}
}

// Add is idempotent: blacklisting the same token twice is not an error.
func (r *BlacklistRepository) Add(ctx context.Context, token string, expiresAt time.Time) error {
	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "token"}}, DoNothing: true}).
		Create(&authModel.TokenBlacklist{Token: token, ExpiredAt: expiresAt.UTC()}).Error
}

func (r *BlacklistRepository) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	var existing authModel.TokenBlacklist
	err := r.DB.WithContext(ctx).
		Select("id").
		Where("token = ?", token).
		Take(&existing).Error
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return false, err
}

// CleanupExpired soft-deletes up to limit rows whose token expired before cutoff.
func (r *BlacklistRepository) CleanupExpired(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	var expired []authModel.TokenBlacklist
	if err := r.DB.WithContext(ctx).
		Where("expired_at < ?", cutoff).
		Limit(limit).
		Find(&expired).Error; err != nil {
		return 0, err
	}
	if len(expired) == 0 {
		return 0, nil
	}
	res := r.DB.WithContext(ctx).Delete(&expired)
	return res.RowsAffected, res.Error
}
