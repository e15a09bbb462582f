package main

import (
	"context"
	"fmt"

	"smartplate/internal/db"
	"smartplate/internal/seed"
	"smartplate/internal/store"

	"github.com/k0kubun/pp/v3"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var seedCommand = &cli.Command{
	Name:  "seed",
	Usage: "Seed the database with demo accounts and food requests",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "requests",
			Usage: "Number of demo food requests to create",
			Value: 12,
		},
		&cli.BoolFlag{
			Name:  "reset",
			Usage: "Delete previously seeded food requests first",
		},
		&cli.BoolFlag{
			Name:  "dump",
			Usage: "Pretty print the seeded records",
		},
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		ctx := context.Background()

		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		logrus.Info("Connected to database")

		if err := seed.SeedUsers(ctx, store.NewUserRepository(pool)); err != nil {
			return fmt.Errorf("failed to seed users: %w", err)
		}

		ngo, err := seed.SeedNGO(ctx, store.NewNGODetailsRepository(pool))
		if err != nil {
			return err
		}

		volunteer, err := seed.SeedVolunteer(ctx, store.NewVolunteerDetailsRepository(pool))
		if err != nil {
			return err
		}

		requests, err := seed.SeedRequests(ctx, pool, store.NewFoodRequestRepository(pool), ngo, c.Int("requests"), c.Bool("reset"))
		if err != nil {
			return fmt.Errorf("failed to seed requests: %w", err)
		}

		if c.Bool("dump") {
			pp.Println(ngo, volunteer, requests)
		}

		logrus.Info("Seed complete")
		return nil
	},
}
