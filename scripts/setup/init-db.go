package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/alvesdmateus/auto-deployer/internal/state"
	"github.com/alvesdmateus/auto-deployer/pkg/config"
	"github.com/alvesdmateus/auto-deployer/pkg/database"
)

func main() {
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	log.Info().Msg("Starting database initialization...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	dbConfig := database.Config{
		Driver:          cfg.Database.Driver,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		SQLitePath:      cfg.Database.SQLitePath,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}

	db, err := database.New(dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	if err := state.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	if cfg.Seed.TargetsFile != "" {
		n, err := state.Seed(context.Background(), state.NewRepository(db), cfg.Seed.TargetsFile, cfg.Seed.Timeout)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to seed targets")
		}
		log.Info().Int("targets", n).Msg("Seeded deployment targets")
	}

	if err := database.Close(db); err != nil {
		log.Error().Err(err).Msg("Failed to close database connection")
	}

	fmt.Println("\n✅ Database initialized successfully!")
	fmt.Println("\nCreated tables:")
	for _, name := range []string{"targets", "task_logs"} {
		fmt.Println("  - " + name)
	}
}
