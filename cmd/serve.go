package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/crateguide/crateguide/internal/api"
	"github.com/crateguide/crateguide/internal/catalog"
	"github.com/crateguide/crateguide/internal/config"
	"github.com/crateguide/crateguide/internal/conversation"
	"github.com/crateguide/crateguide/internal/database"
	"github.com/crateguide/crateguide/internal/jobqueue"
	"github.com/crateguide/crateguide/internal/portrait"
	"github.com/crateguide/crateguide/internal/recommend"
	"github.com/crateguide/crateguide/internal/textgen"
)

// ServeCommand returns the CLI command for starting the API server.
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the Crateguide API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port for the API server (overrides config)",
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	port := cfg.Server.Port
	if c.IsSet("port") {
		port = c.Int("port")
	}

	ctx := context.Background()

	client, err := textgen.New(ctx, textgen.Options{
		Provider:    textgen.Provider(cfg.TextGen.Provider),
		APIKey:      cfg.TextGen.APIKey,
		BaseURL:     cfg.TextGen.BaseURL,
		Model:       cfg.TextGen.Model,
		Temperature: cfg.TextGen.Temperature,
		MaxTokens:   cfg.TextGen.MaxTokens,
	})
	if err != nil {
		return fmt.Errorf("failed to create text generation client: %w", err)
	}
	runner := textgen.NewResilientRunner(client, 90*time.Second)

	searcher := catalog.NewClient(cfg.Catalog.BaseURL, cfg.Catalog.Token)

	var (
		convStore     conversation.Store
		portraitStore portrait.Store
		recorder      recommend.Recorder
	)

	if cfg.Database.URL != "" {
		db, err := database.NewDB(cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		if err := database.EnsureSchema(db); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}

		convStore = conversation.NewPostgresStore(db)
		portraitStore = portrait.NewPostgresStore(db)

		queue, err := jobqueue.NewJobQueue(cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("failed to create job queue: %w", err)
		}
		if err := queue.Start(ctx); err != nil {
			return fmt.Errorf("failed to start job queue: %w", err)
		}
		defer queue.Stop(ctx)
		recorder = queue

		log.Info().Msg("Using Postgres-backed stores")
	} else {
		convStore = conversation.NewMemoryStore()
		portraitStore = portrait.NewMemoryStore()
		log.Warn().Msg("No database configured, state is in-memory only")
	}

	engine := conversation.NewEngine(runner, convStore, portraitStore)
	orchestrator := recommend.NewOrchestrator(runner, searcher, convStore, portraitStore, recorder)
	builder := portrait.NewBuilder(runner, portraitStore)

	log.Info().
		Int("port", port).
		Str("provider", cfg.TextGen.Provider).
		Str("catalog", cfg.Catalog.BaseURL).
		Msg("Starting Crateguide API server")

	server := api.NewServer(port, cfg.Server.RateLimit, cfg.Server.RateBurst, engine, orchestrator, builder)
	return server.Start()
}
