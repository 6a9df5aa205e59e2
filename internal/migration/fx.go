package migration

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(Run),
)

// Run applies migrations on startup. Non-postgres dialects (sqlite in tests,
// mysql) manage their schema outside the embedded migration set.
func Run(gdb *gorm.DB, log *zap.Logger) error {
	if gdb.Dialector.Name() != "postgres" {
		log.Info("skipping embedded migrations", zap.String("dialect", gdb.Dialector.Name()))
		return nil
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	if err := RunMigrations(sqlDB); err != nil {
		return err
	}
	log.Info("migrations applied")
	return nil
}
