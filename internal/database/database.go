package database

import (
	"fmt"

	"github.com/splittab/backend/internal/config"
	"github.com/splittab/backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(cfg config.DBConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.Membership{},
		&models.Bill{},
		&models.BillItem{},
		&models.ItemAssignee{},
		&models.BillParticipant{},
		&models.Split{},
		&models.Notification{},
	); err != nil {
		return err
	}

	// One split per user per bill and non-negative share amounts are
	// enforced at the database as well as in the engine.
	constraint := `
DO $$
BEGIN
  IF NOT EXISTS (
    SELECT 1
    FROM pg_constraint
    WHERE conname = 'split_amount_non_negative'
  ) THEN
    ALTER TABLE splits
    ADD CONSTRAINT split_amount_non_negative
    CHECK (amount >= 0);
  END IF;
END $$;`

	return db.Exec(constraint).Error
}
