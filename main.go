package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/Aayush8356/Vendora/internal/catalog"
	"github.com/Aayush8356/Vendora/internal/config"
	"github.com/Aayush8356/Vendora/internal/repository/postgres"
	"github.com/Aayush8356/Vendora/internal/service"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var cfg *config.Config
	app := &cli.App{
		Name:  "vendora",
		Usage: "storefront catalog, cart and checkout API",
		Before: func(c *cli.Context) error {
			var err error
			if cfg, err = config.Load(); err != nil {
				return err
			}
			slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API, the gRPC health server and the broker consumers",
				Action: func(c *cli.Context) error { return serve(c.Context, cfg) },
			},
			{
				Name:  "migrate",
				Usage: "apply database migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "down", Usage: "roll back the latest migration instead"},
				},
				Action: func(c *cli.Context) error { return migrate(cfg, c.Bool("down")) },
			},
			{
				Name:   "seed",
				Usage:  "load the bundled catalog into an empty database",
				Action: func(c *cli.Context) error { return seed(c.Context, cfg) },
			},
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		slog.Error("Command failed", "err", err)
		os.Exit(1)
	}
}

func migrate(cfg *config.Config, down bool) error {
	db, err := postgres.InitDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if down {
		return postgres.Rollback(db)
	}
	return postgres.Migrate(db)
}

func seed(ctx context.Context, cfg *config.Config) error {
	db, err := postgres.InitDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := postgres.Migrate(db); err != nil {
		return err
	}
	data, err := catalog.Load()
	if err != nil {
		return err
	}
	catalogSvc := service.NewCatalogService(postgres.NewProductRepository(db), postgres.NewCategoryRepository(db))
	return catalogSvc.Seed(ctx, data)
}
