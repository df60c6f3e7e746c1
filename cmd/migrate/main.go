package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/kdimtricp/emostim/internal/config"
	"github.com/kdimtricp/emostim/internal/database"
	"github.com/kdimtricp/emostim/internal/logging"
)

func main() {
	var (
		configDir = flag.String("config", ".", "Directory holding an optional .env file")
		status    = flag.Bool("status", false, "Show migration status only")
	)
	flag.Parse()

	cfg, err := config.Load(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load config:", err)
		os.Exit(1)
	}
	log := logging.New(logging.Options{Service: "emostim-migrate", Level: cfg.LogLevel, File: cfg.LogFile})

	db, err := database.NewDB(cfg.Database(log))
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	migrator := database.NewMigrator(db.GORM(), log)

	if !*status {
		if err := migrator.Run(); err != nil {
			log.WithError(err).Fatal("Failed to run migrations")
		}
		fmt.Println("Migrations completed successfully!")
		return
	}

	if err := migrator.Initialize(); err != nil {
		log.WithError(err).Fatal("Failed to initialize migrator")
	}
	applied, err := migrator.GetAppliedMigrations()
	if err != nil {
		log.WithError(err).Fatal("Failed to get applied migrations")
	}

	fmt.Println("Migration Status:")
	fmt.Println("=================")
	for _, m := range migrator.Migrations() {
		state := "pending"
		if applied[m.Version] {
			state = "applied"
		}
		fmt.Printf("%s - %s [%s]\n", m.Version, m.Name, state)
	}
}
