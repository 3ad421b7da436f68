// Command shopctl runs operator tasks against the shop database: schema
// migration, default catalogue seeding and user management.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/rr4180885/myshop2/internal/service"
	pgstore "github.com/rr4180885/myshop2/internal/store/postgres"
)

const commandTimeout = 30 * time.Second

func main() {
	_ = godotenv.Load()

	if err := newApp().Run(os.Args); err != nil {
		log.Fatalf("shopctl: %v", err)
	}
}

func newApp() *cli.App {
	databaseFlag := &cli.StringFlag{
		Name:    "database-url",
		Usage:   "postgres connection string",
		EnvVars: []string{"DATABASE_URL"},
	}
	passwordFlag := &cli.StringFlag{
		Name:     "password",
		Aliases:  []string{"p"},
		Usage:    "password for the account (at least 8 characters)",
		EnvVars:  []string{"SHOPCTL_PASSWORD"},
		Required: true,
	}

	return &cli.App{
		Name:  "shopctl",
		Usage: "manage the shop database",
		Flags: []cli.Flag{databaseFlag},
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "create or update the schema",
				Action: withStore(func(ctx context.Context, pg *pgstore.Store, _ *cli.Context) error {
					if err := pg.Migrate(ctx); err != nil {
						return err
					}
					log.Println("schema up to date")
					return nil
				}),
			},
			{
				Name:  "seed",
				Usage: "load the default catalogue into an empty database and create the admin account",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "admin-password",
						Usage:   "password for a newly created admin",
						EnvVars: []string{"SEED_ADMIN_PASSWORD"},
					},
				},
				Action: withStore(func(ctx context.Context, pg *pgstore.Store, c *cli.Context) error {
					if err := pg.Migrate(ctx); err != nil {
						return err
					}
					seeded, err := pg.SeedProducts(ctx)
					if err != nil {
						return err
					}
					log.Printf("seeded %d products", seeded)

					if password := c.String("admin-password"); password != "" {
						created, err := service.New(pg, service.Options{}).EnsureAdmin(ctx, password)
						if err != nil {
							return err
						}
						if created {
							log.Println("admin account created")
						}
					}
					return nil
				}),
			},
			{
				Name:      "create-user",
				Usage:     "add a login",
				ArgsUsage: "<username>",
				Flags:     []cli.Flag{passwordFlag},
				Action: withStore(func(ctx context.Context, pg *pgstore.Store, c *cli.Context) error {
					username, err := usernameArg(c)
					if err != nil {
						return err
					}
					user, err := service.New(pg, service.Options{}).CreateUser(ctx, username, c.String("password"))
					if err != nil {
						return err
					}
					log.Printf("created user %s (%s)", user.Username, user.ID)
					return nil
				}),
			},
			{
				Name:      "passwd",
				Usage:     "reset a user's password",
				ArgsUsage: "<username>",
				Flags:     []cli.Flag{passwordFlag},
				Action: withStore(func(ctx context.Context, pg *pgstore.Store, c *cli.Context) error {
					username, err := usernameArg(c)
					if err != nil {
						return err
					}
					if err := service.New(pg, service.Options{}).SetPassword(ctx, username, c.String("password")); err != nil {
						return fmt.Errorf("set password for %s: %w", username, err)
					}
					log.Printf("password updated for %s", username)
					return nil
				}),
			},
		},
	}
}

// withStore opens the database named by --database-url for the duration of a
// single command.
func withStore(fn func(ctx context.Context, pg *pgstore.Store, c *cli.Context) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		url := c.String("database-url")
		if url == "" {
			return errors.New("DATABASE_URL or --database-url is required")
		}

		ctx, cancel := context.WithTimeout(c.Context, commandTimeout)
		defer cancel()

		pg, err := pgstore.New(ctx, url)
		if err != nil {
			return err
		}
		defer pg.Close()

		return fn(ctx, pg, c)
	}
}

func usernameArg(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", fmt.Errorf("expected exactly one <username>, got %d arguments", c.NArg())
	}
	return c.Args().First(), nil
}
