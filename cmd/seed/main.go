package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/eldtechnologies/contextstack/internal/nlp"
	"github.com/eldtechnologies/contextstack/internal/store"
)

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "seed",
		Usage: "Load sample messages, docs and tasks into the ContextStack store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "Read messages.json, docs.json and tasks.json from `DIR`",
				Value:   "data/sample",
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "PostgreSQL connection URL (SQLite is used when empty)",
				EnvVars: []string{"DATABASE_URL"},
			},
			&cli.StringFlag{
				Name:    "sqlite-path",
				Usage:   "SQLite database `FILE`",
				EnvVars: []string{"SQLITE_PATH"},
				Value:   "contextstack.db",
			},
			&cli.StringFlag{
				Name:    "nlp-url",
				Usage:   "NLP service base URL used to index docs",
				EnvVars: []string{"NLP_URL"},
				Value:   "http://localhost:8000",
			},
			&cli.BoolFlag{
				Name:  "no-index",
				Usage: "Store docs without indexing them in the NLP service",
			},
			&cli.StringSliceFlag{
				Name:  "only",
				Usage: "Restrict to some of: messages, docs, tasks",
			},
		},
		Action: runSeed,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func runSeed(c *cli.Context) error {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().
		Timestamp().
		Logger()

	ctx := c.Context

	var ds store.DataStore
	if url := c.String("database-url"); url != "" {
		if err := store.RunMigrations(ctx, url); err != nil {
			return fmt.Errorf("migrations failed: %w", err)
		}
		pg, err := store.NewPostgresStore(ctx, url)
		if err != nil {
			return fmt.Errorf("postgres connection failed: %w", err)
		}
		ds = pg
	} else {
		sqlite, err := store.NewSQLiteStore(ctx, c.String("sqlite-path"))
		if err != nil {
			return fmt.Errorf("sqlite open failed: %w", err)
		}
		ds = sqlite
	}
	defer ds.Close()

	s := &seeder{store: ds, logger: logger}
	if !c.Bool("no-index") {
		s.indexer = nlp.NewClient(c.String("nlp-url"), 10*time.Second)
	}

	summary, err := s.run(ctx, c.String("data"), c.StringSlice("only"))
	if err != nil {
		return err
	}

	fmt.Printf("Loaded %d messages, %d docs (%d indexed), %d tasks\n",
		summary.Messages, summary.Docs, summary.Indexed, summary.Tasks)
	return nil
}
