package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v2"

	groupsmigrations "github.com/Black-And-White-Club/delegate-dashboard/app/modules/groups/infrastructure/repositories/migrations"
	"github.com/Black-And-White-Club/delegate-dashboard/config"
)

func main() {
	cliApp := &cli.App{
		Name:  "bun",
		Usage: "delegate-dashboard database migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Value: "config.yaml",
				Usage: "Path to the configuration file",
			},
		},
		Commands: []*cli.Command{
			newDBCommand(),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// migrators opens the database named by the config and returns one migrator
// per module. The returned close function releases the connection.
func migrators(c *cli.Context) (map[string]*migrate.Migrator, string, func(), error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to load config: %w", err)
	}

	pgdb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.DSN)))
	db := bun.NewDB(pgdb, pgdialect.New())

	return map[string]*migrate.Migrator{
		"groups": migrate.NewMigrator(db, groupsmigrations.Migrations),
	}, cfg.Postgres.DSN, func() { _ = db.Close() }, nil
}

// riverMigrator builds the River queue migrator on its own pgx pool.
func riverMigrator(ctx context.Context, dsn string) (*rivermigrate.Migrator[pgx.Tx], func(), error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse DSN for River migrations: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create pgx pool for River migrations: %w", err)
	}
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to create River migrator: %w", err)
	}
	return migrator, pool.Close, nil
}

func newDBCommand() *cli.Command {
	return &cli.Command{
		Name:  "db",
		Usage: "database migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "create migration tables",
				Action: withMigrators(func(c *cli.Context, ms map[string]*migrate.Migrator, _ string) error {
					for moduleName, migrator := range ms {
						fmt.Printf("Initializing migrations for module: %s\n", moduleName)
						if err := migrator.Init(c.Context); err != nil {
							return fmt.Errorf("module %s: %w", moduleName, err)
						}
					}
					return nil
				}),
			},
			{
				Name:  "migrate",
				Usage: "migrate database, including the River queue tables",
				Action: withMigrators(func(c *cli.Context, ms map[string]*migrate.Migrator, dsn string) error {
					for moduleName, migrator := range ms {
						fmt.Printf("Running migrations for module: %s\n", moduleName)
						if err := migrator.Lock(c.Context); err != nil {
							return err
						}
						group, err := migrator.Migrate(c.Context)
						_ = migrator.Unlock(c.Context)
						if err != nil {
							return fmt.Errorf("module %s: %w", moduleName, err)
						}
						if group.IsZero() {
							fmt.Printf("No new migrations to run for module: %s\n", moduleName)
						} else {
							fmt.Printf("Migrated module: %s to %s\n", moduleName, group)
						}
					}

					river, closePool, err := riverMigrator(c.Context, dsn)
					if err != nil {
						return err
					}
					defer closePool()
					res, err := river.Migrate(c.Context, rivermigrate.DirectionUp, &rivermigrate.MigrateOpts{})
					if err != nil {
						return fmt.Errorf("failed to run River migrations: %w", err)
					}
					fmt.Printf("River migrations applied: %d\n", len(res.Versions))
					return nil
				}),
			},
			{
				Name:  "rollback",
				Usage: "rollback the last migration group",
				Action: withMigrators(func(c *cli.Context, ms map[string]*migrate.Migrator, _ string) error {
					for moduleName, migrator := range ms {
						fmt.Printf("Rolling back migrations for module: %s\n", moduleName)
						group, err := migrator.Rollback(c.Context)
						if err != nil {
							return fmt.Errorf("module %s: %w", moduleName, err)
						}
						if group.IsZero() {
							fmt.Printf("No groups to roll back for module: %s\n", moduleName)
						} else {
							fmt.Printf("Rolled back module: %s to %s\n", moduleName, group)
						}
					}
					return nil
				}),
			},
			{
				Name:  "create_sql",
				Usage: "create up and down SQL migrations",
				Action: withMigrators(func(c *cli.Context, ms map[string]*migrate.Migrator, _ string) error {
					moduleName := c.Args().First()
					migrator, ok := ms[moduleName]
					if !ok {
						return fmt.Errorf("invalid module name: %s", moduleName)
					}

					name := strings.Join(c.Args().Tail(), "_")
					files, err := migrator.CreateSQLMigrations(c.Context, name)
					if err != nil {
						return err
					}
					for _, mf := range files {
						fmt.Printf("Created migration for module %s: %s (%s)\n", moduleName, mf.Name, mf.Path)
					}
					return nil
				}),
			},
			{
				Name:  "status",
				Usage: "print migrations status",
				Action: withMigrators(func(c *cli.Context, ms map[string]*migrate.Migrator, dsn string) error {
					for moduleName, migrator := range ms {
						status, err := migrator.MigrationsWithStatus(c.Context)
						if err != nil {
							return err
						}
						fmt.Printf("Migrations for module: %s\n", moduleName)
						fmt.Printf("  %s\n", status)
						fmt.Printf("  Applied: %s\n", status.Applied())
						fmt.Printf("  Unapplied: %s\n", status.Unapplied())
					}

					river, closePool, err := riverMigrator(c.Context, dsn)
					if err != nil {
						return err
					}
					defer closePool()
					res, err := river.Validate(c.Context)
					if err != nil {
						return err
					}
					fmt.Printf("River queue up to date: %t\n", res.OK)
					for _, msg := range res.Messages {
						fmt.Printf("  %s\n", msg)
					}
					return nil
				}),
			},
		},
	}
}

func withMigrators(fn func(c *cli.Context, ms map[string]*migrate.Migrator, dsn string) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		ms, dsn, closeDB, err := migrators(c)
		if err != nil {
			return err
		}
		defer closeDB()
		return fn(c, ms, dsn)
	}
}
