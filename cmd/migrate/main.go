package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/marketplace-checkout/internal/promo"
	"github.com/angelmondragon/marketplace-checkout/pkg/config"
	"github.com/angelmondragon/marketplace-checkout/pkg/db"
	"github.com/angelmondragon/marketplace-checkout/pkg/instance"
	"github.com/angelmondragon/marketplace-checkout/pkg/logger"
	"github.com/angelmondragon/marketplace-checkout/pkg/migrate"
)

const usage = "up|down|status|to|create|validate|seed-promos"

func main() {
	cmd := flag.String("cmd", "up", "command: "+usage)
	dir := flag.String("dir", migrate.SourceDir, "migrations source directory (create, validate)")
	name := flag.String("name", "", "migration name for -cmd=create")
	version := flag.String("version", "", "target version YYYYMMDDHHMMSS for -cmd=to")
	flag.Parse()

	_ = godotenv.Load()

	// Offline commands work on the source tree and need no config.
	switch *cmd {
	case "create":
		path, err := migrate.Scaffold(*dir, *name, time.Now())
		exitOn(err, "create migration")
		fmt.Println("created migration:", path)
		return
	case "validate":
		versions, err := migrate.Validate(os.DirFS(*dir))
		exitOn(err, "validate migrations")
		fmt.Printf("%d migrations valid\n", len(versions))
		return
	}

	cfg, err := config.Load()
	exitOn(err, "load config")
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Instance:    instance.ID("migrate"),
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{"env": cfg.App.Env, "cmd": *cmd})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	exitOn(err, "connect database")
	defer dbClient.Close()

	if *cmd == "seed-promos" {
		written, err := promo.NewRepository(dbClient.DB()).Seed(ctx, promo.DefaultCatalog())
		exitOn(err, "seed promos")
		logg.Info(logg.WithField(ctx, "promo_codes", written), "promo catalog seeded")
		return
	}

	sqlDB, err := dbClient.DB().DB()
	exitOn(err, "extract sql.DB")
	runner, err := migrate.NewRunner(sqlDB, nil, logg)
	exitOn(err, "build migration runner")

	switch *cmd {
	case "up":
		err = runner.Up(ctx)
	case "down":
		err = runner.Down(ctx)
	case "status":
		var pending int
		pending, err = runner.Status(ctx)
		if err == nil {
			fmt.Printf("%d pending migrations\n", pending)
		}
	case "to":
		var target int64
		if target, err = migrate.ParseVersion(*version); err == nil {
			err = runner.To(ctx, target)
		}
	default:
		err = fmt.Errorf("unknown -cmd %q (want %s)", *cmd, usage)
	}
	exitOn(err, *cmd)
}

func exitOn(err error, step string) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "migrate: %s: %v\n", step, err)
	os.Exit(1)
}
