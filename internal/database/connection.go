// internal/database/connection.go
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/javajoker/commission-engine/internal/config"
	"github.com/javajoker/commission-engine/internal/models"
)

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := Open(postgres.Open(cfg.DSN()), cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	// Get underlying sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), cfg.QueryTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.Info("Database connection established successfully")
	return db, nil
}

// Open connects through any gorm dialector; tests pass an in-memory sqlite one.
func Open(dialector gorm.Dialector, logLevel string) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}
	if logLevel == "info" {
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		logrus.WithError(err).Error("Error getting underlying sql.DB")
		return
	}

	if err := sqlDB.Close(); err != nil {
		logrus.WithError(err).Error("Error closing database connection")
	} else {
		logrus.Info("Database connection closed successfully")
	}
}

func RunMigrations(db *gorm.DB) error {
	logrus.Info("Running database migrations...")

	err := db.AutoMigrate(
		&models.RevenueModel{},
		&models.CommissionRecord{},
		&models.CommissionAdjustment{},
		&models.CommissionAnalytics{},
		&models.RevenueDispute{},
		&models.PaymentTermsConfig{},
		&models.IncentiveProgram{},
		&models.AuditLog{},
		&models.AdminNotification{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	createIndexes(db)

	logrus.Info("Database migrations completed successfully")
	return nil
}

func createIndexes(db *gorm.DB) {
	indexes := []string{
		// Commission ledger indexes
		"CREATE INDEX IF NOT EXISTS idx_vendor_commissions_vendor_status ON vendor_commissions(vendor_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_vendor_commissions_vendor_txdate ON vendor_commissions(vendor_id, transaction_date)",
		"CREATE INDEX IF NOT EXISTS idx_vendor_commissions_created_at ON vendor_commissions(created_at DESC, id DESC)",
		"CREATE INDEX IF NOT EXISTS idx_vendor_commissions_payment ON vendor_commissions(vendor_id, status, payment_status)",

		// Adjustment indexes
		"CREATE INDEX IF NOT EXISTS idx_commission_adjustments_commission_status ON commission_adjustments(commission_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_commission_adjustments_approved_at ON commission_adjustments(approved_at)",

		// Rating and analytics indexes
		"CREATE INDEX IF NOT EXISTS idx_revenue_models_lookup ON revenue_models(category, is_active, effective_from DESC)",
		"CREATE INDEX IF NOT EXISTS idx_commission_analytics_date ON commission_analytics(analytics_date DESC)",

		// Dispute indexes
		"CREATE INDEX IF NOT EXISTS idx_revenue_disputes_vendor_status ON revenue_disputes(vendor_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_revenue_disputes_priority ON revenue_disputes(status, priority_level)",

		// Admin indexes
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_resource ON audit_logs(resource_type, resource_id)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_created ON audit_logs(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_admin_notifications_status ON admin_notifications(status, priority)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			// Continue with other indexes instead of failing completely
			logrus.WithError(err).WithField("index", index).Warn("Failed to create index")
		}
	}
}

// SeedInitialData installs the platform default payment terms when none exist.
func SeedInitialData(db *gorm.DB, cfg config.CommissionConfig) error {
	logrus.Info("Seeding initial data...")

	var count int64
	if err := db.Model(&models.PaymentTermsConfig{}).Where("vendor_id = ?", "").Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count payment terms: %w", err)
	}

	if count == 0 {
		terms := &models.PaymentTermsConfig{
			VendorID:        "",
			PayoutFrequency: models.PayoutFrequencyMonthly,
			MinimumPayout:   decimal.NewFromFloat(cfg.DefaultMinimumPayout),
			PayoutDelayDays: 7,
			Currency:        cfg.DefaultCurrency,
			IsActive:        true,
		}
		if err := db.Create(terms).Error; err != nil {
			return fmt.Errorf("failed to create default payment terms: %w", err)
		}
		logrus.Info("Default payment terms created")
	}

	logrus.Info("Initial data seeding completed")
	return nil
}

// WithTransaction runs fn inside a single database transaction bound to ctx.
func WithTransaction(ctx context.Context, db *gorm.DB, fn func(*gorm.DB) error) error {
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
