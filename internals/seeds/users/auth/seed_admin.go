package user

import (
	"context"
	"log"
	"strings"

	"onboarding_backend/internals/constants"
	authHelper "onboarding_backend/internals/features/users/auth/helper"
	"onboarding_backend/internals/features/users/user/model"
)

type adminStore interface {
	CountAll(ctx context.Context) (int64, error)
	Create(ctx context.Context, u *model.UserModel) error
}

type AdminSeed struct {
	Name     string
	Email    string
	Password string
}

// SeedAdmin creates the bootstrap administrator, only while the users table
// is empty. Returns true when a user was inserted.
func SeedAdmin(ctx context.Context, repo adminStore, data AdminSeed) bool {
	email := strings.ToLower(strings.TrimSpace(data.Email))
	if email == "" || data.Password == "" {
		log.Println("ℹ️ SEED_ADMIN_EMAIL/SEED_ADMIN_PASSWORD vazios, seed do administrador ignorado.")
		return false
	}

	n, err := repo.CountAll(ctx)
	if err != nil {
		log.Printf("❌ Falha ao contar usuários: %v", err)
		return false
	}
	if n > 0 {
		log.Printf("ℹ️ Já existem %d usuários, seed do administrador ignorado.", n)
		return false
	}

	// 🔐 Hash password sebelum disimpan
	hashed, err := authHelper.HashPassword(data.Password)
	if err != nil {
		log.Printf("❌ Falha ao gerar hash para '%s': %v", email, err)
		return false
	}

	name := strings.TrimSpace(data.Name)
	if name == "" {
		name = "Administrador"
	}
	admin := model.UserModel{
		Name:            name,
		Email:           email,
		Password:        hashed,
		Role:            "administrador",
		PermissionLevel: constants.PermissionAdmin,
		IsActive:        true,
	}
	if err := repo.Create(ctx, &admin); err != nil {
		log.Printf("❌ Falha ao inserir administrador '%s': %v", email, err)
		return false
	}
	log.Printf("✅ Administrador '%s' criado", email)
	return true
}
