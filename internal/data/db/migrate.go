package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/coursehub-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(types.Models()...)
}

// EnsureJobIndexes adds the partial indexes on job_run. The syntax is shared by
// postgres and sqlite. At most one queued job may exist per (job_type, entity).
func EnsureJobIndexes(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_job_run_runnable
		ON job_run (status, run_after, created_at)
		WHERE status IN ('queued', 'failed', 'running');
	`).Error; err != nil {
		return fmt.Errorf("create idx_job_run_runnable: %w", err)
	}
	if err := db.Exec(`DROP INDEX IF EXISTS idx_job_run_entity_queued;`).Error; err != nil {
		return fmt.Errorf("drop idx_job_run_entity_queued: %w", err)
	}
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_job_run_entity_queued_uniq
		ON job_run (job_type, entity_type, entity_id)
		WHERE status = 'queued';
	`).Error; err != nil {
		return fmt.Errorf("create idx_job_run_entity_queued_uniq: %w", err)
	}
	return nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := EnsureJobIndexes(s.db); err != nil {
		s.log.Error("Job index migration failed", "error", err)
		return err
	}
	return nil
}
