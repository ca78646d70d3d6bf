package db

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/glebarez/sqlite"
	"github.com/monocle-dev/tracker/internal/models"
	"github.com/rs/zerolog"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const connectMaxElapsed = 30 * time.Second

// Dialector returns the gorm dialector for a DATABASE_DRIVER value.
func Dialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "postgres":
		return postgres.Open(dsn), nil
	case "mysql":
		return mysql.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(dsn), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", driver)
}

// Open connects to the database, retrying with exponential backoff while the
// server is unreachable.
func Open(ctx context.Context, driver, dsn string, log zerolog.Logger) (*gorm.DB, error) {
	dialector, err := Dialector(driver, dsn)
	if err != nil {
		return nil, err
	}

	cfg := &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	}
	if log.GetLevel() <= zerolog.DebugLevel {
		cfg.Logger = gormlogger.Default.LogMode(gormlogger.Info)
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = connectMaxElapsed

	var conn *gorm.DB
	err = backoff.RetryNotify(func() error {
		opened, openErr := gorm.Open(dialector, cfg)
		if openErr != nil {
			return openErr
		}
		sqlDB, dbErr := opened.DB()
		if dbErr != nil {
			return backoff.Permanent(dbErr)
		}
		conn = opened
		return sqlDB.PingContext(ctx)
	}, backoff.WithContext(bo, ctx), func(err error, next time.Duration) {
		log.Warn().Err(err).Dur("retry_in", next).Msg("database not ready")
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	return conn, nil
}

// Models lists every table the service owns, in dependency order.
func Models() []any {
	return []any{
		&models.User{},
		&models.Project{},
		&models.Group{},
		&models.Membership{},
		&models.Template{},
		&models.TemplateRolePermission{},
		&models.TemplateGroupPermission{},
		&models.State{},
		&models.StateRoleTransition{},
		&models.StateGroupTransition{},
		&models.StateResponsibleGroup{},
		&models.Field{},
		&models.FieldRolePermission{},
		&models.FieldGroupPermission{},
		&models.ListItem{},
		&models.Issue{},
		&models.FieldValue{},
		&models.Dependency{},
		&models.Watcher{},
		&models.LastRead{},
		&models.Event{},
		&models.Change{},
		&models.Comment{},
		&models.File{},
	}
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	if err := db.SetupJoinTable(&models.User{}, "Groups", &models.Membership{}); err != nil {
		return fmt.Errorf("setup memberships: %w", err)
	}
	if err := db.SetupJoinTable(&models.Group{}, "Members", &models.Membership{}); err != nil {
		return fmt.Errorf("setup memberships: %w", err)
	}

	for _, model := range Models() {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("migrate %T: %w", model, err)
		}
	}

	return nil
}
