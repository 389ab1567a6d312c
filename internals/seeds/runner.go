package seeds

import (
	"context"

	"onboarding_backend/internals/configs"
	userRepo "onboarding_backend/internals/features/users/user/repository"
	users "onboarding_backend/internals/seeds/users/auth"

	"gorm.io/gorm"
)

func RunAllSeeds(db *gorm.DB) {
	//* Users
	users.SeedAdmin(context.Background(), userRepo.NewUserRepository(db), users.AdminSeed{
		Name:     configs.GetEnv("SEED_ADMIN_NAME", "Administrador"),
		Email:    configs.GetEnv("SEED_ADMIN_EMAIL"),
		Password: configs.GetEnv("SEED_ADMIN_PASSWORD"),
	})
}
