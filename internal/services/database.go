package services

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"farah_app_echo/internal/models"
	"farah_app_echo/internal/telemetry"
)

// InitDB initializes the database connection with connection pooling
func InitDB(dsn string, production bool) (*gorm.DB, error) {
	logLevel := logger.Info
	if production {
		logLevel = logger.Warn
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, err
	}

	// Get underlying sql.DB to configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	telemetry.Logger.Info("Database connection established")
	return db, nil
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	telemetry.Logger.Info("Running database migrations...")

	err := db.AutoMigrate(
		&models.HallBooking{},
		&models.ServiceBooking{},
		&models.Owner{},
		&models.Refund{},
		&models.GatewayEvent{},
		&models.CheckoutAttempt{},
		&models.ScheduledTask{},
		&models.ScheduledTaskHistory{},
	)
	if err != nil {
		return err
	}

	telemetry.Logger.Info("Database migrations completed", zap.Int("models", 8))
	return nil
}
