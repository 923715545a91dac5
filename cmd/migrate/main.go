package main

import (
	"database/sql"
	"errors"
	"flag"
	"os"

	"foodcart/internal/config"
	"foodcart/internal/logger"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "путь к YAML-конфигурации")
	down := flag.Bool("down", false, "откатить все миграции")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	db, err := sql.Open("postgres", cfg.Postgres.DSN)
	if err != nil {
		log.Fatal("Не удалось открыть базу данных", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn("Ошибка закрытия DB", zap.Error(err))
		}
	}()

	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping DB", zap.Error(err))
	}
	log.Info("подключение успешно")

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		log.Fatal("Не удалось создать драйвер миграции", zap.Error(err))
	}

	m, err := migrate.NewWithDatabaseInstance(cfg.Postgres.MigrationsPath, "postgres", driver)
	if err != nil {
		log.Fatal("Не удалось инициализировать миграцию", zap.Error(err))
	}

	step := m.Up
	if *down {
		step = m.Down
	}
	if err := step(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatal("миграция пошла не по плану", zap.Error(err))
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		log.Warn("не удалось прочитать версию схемы", zap.Error(err))
	}
	log.Info("миграция прошла успешно", zap.Uint("version", version), zap.Bool("dirty", dirty))
}
