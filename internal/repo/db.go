package repo

import (
	"context"
	"strings"

	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"Flomo/internal/model"

	_ "modernc.org/sqlite"
)

// DefaultSQLiteDSN используется, если DATABASE_URI не задан.
const DefaultSQLiteDSN = "file:flomo-server.db?_pragma=busy_timeout(5000)"

// versionCounter - имя глобального счётчика версий.
const versionCounter = "version"

// dialector выбирает драйвер по DSN: postgres для URL/keyword DSN, иначе SQLite (modernc).
func dialector(dsn string) gorm.Dialector {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return postgres.Open(dsn)
	}
	if dsn == "" {
		dsn = DefaultSQLiteDSN
	}
	return gormsqlite.Dialector{DriverName: "sqlite", DSN: dsn}
}

// InitDB открывает БД и выполняет миграции.
func InitDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(dialector(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate создаёт таблицы и начальное значение счётчика версий.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.Card{}, &model.Folder{}, &model.RichDocument{}, &model.Counter{}, &model.PushKey{}); err != nil {
		return err
	}
	return db.WithContext(context.Background()).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&model.Counter{Name: versionCounter}).Error
}
