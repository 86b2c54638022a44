package database

import (
	"vendorsales-backend/internal/config"
	"vendorsales-backend/internal/logger"
	"vendorsales-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

func Init(cfg *config.Config) *gorm.DB {
	log := logger.Get()

	var err error
	DB, err = gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		log.Fatalf("could not connect to database: %v", err)
	}

	if err := Migrate(DB); err != nil {
		log.Fatalf("AutoMigrate failed: %v", err)
	}

	log.Info("database connected, migrations applied")
	return DB
}

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Vendor{},
		&models.User{},
		&models.BankAccount{},
		&models.Product{},
		&models.Sale{},
		&models.PaymentBatch{},
		&models.Commission{},
		&models.DailySequence{},
		&models.AuditLog{},
	)
}
