package scheduler

import (
	"context"
	"log"
	"time"

	"onboarding_backend/internals/configs"
	"onboarding_backend/internals/features/users/auth/repository"

	"gorm.io/gorm"
)

func StartBlacklistCleanupScheduler(db *gorm.DB) {
	repo := repository.NewBlacklistRepository(db)
	go func() {
		// extra grace after expiry before rows are dropped (default 7 days)
		ttlDays := configs.GetEnvInt("TOKEN_BLACKLIST_TTL_DAYS", 7)

		for {
			RunBlacklistCleanup(context.Background(), repo, time.Now().Add(-time.Duration(ttlDays)*24*time.Hour))
			time.Sleep(24 * time.Hour)
		}
	}()
}

type blacklistCleaner interface {
	CleanupExpired(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

// RunBlacklistCleanup purges in batches of 100 until nothing is left.
func RunBlacklistCleanup(ctx context.Context, repo blacklistCleaner, cutoff time.Time) int64 {
	log.Println("[CLEANUP] Limpando token_blacklist...")
	var total int64
	for {
		n, err := repo.CleanupExpired(ctx, cutoff, 100)
		if err != nil {
			log.Printf("[CLEANUP ERROR] Falha ao remover tokens: %v", err)
			return total
		}
		total += n
		if n < 100 {
			break
		}
	}
	if total > 0 {
		log.Printf("[CLEANUP] %d tokens expirados removidos", total)
	} else {
		log.Println("[CLEANUP] Nenhum token elegível para remoção")
	}
	return total
}
