// Command pimkit runs the product catalogue schema service: attribute
// definitions with validation rules, association rules with cardinality
// enforcement, and the live selection workflow over WebSocket.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pimkit/pimkit/internal/catalog"
	"github.com/pimkit/pimkit/internal/config"
	"github.com/pimkit/pimkit/internal/event"
	"github.com/pimkit/pimkit/internal/eventbus"
	"github.com/pimkit/pimkit/internal/selection"
	"github.com/pimkit/pimkit/internal/server"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "pimkit",
		Short:         "Catalogue schema and association service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), schemaCmd())
	return root
}

func serveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and selection socket",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}

			bus := eventbus.New(256)
			bus.Subscribe("log", eventbus.NewLogConsumer())
			history := event.NewHistory(512)
			bus.Subscribe("history", history)
			bus.Start(ctx)
			defer bus.Stop()

			svc := catalog.NewService(store, bus)

			if cfg.Seed.Path != "" {
				if err := applySeed(ctx, store, cfg.Seed.Path); err != nil {
					return err
				}
				if cfg.Seed.Watch {
					watcher := catalog.NewSeedWatcher(cfg.Seed.Path, store)
					go func() {
						if err := watcher.Run(ctx); err != nil {
							log.Printf("seed watcher: %v", err)
						}
					}()
				}
			}

			srv := server.New(server.Config{
				Addr:            cfg.Server.Addr,
				DefaultLanguage: cfg.Server.DefaultLanguage,
				Service:         svc,
				Sessions:        selection.NewManager(cfg.Session.MaxAge, cfg.Session.IdleTimeout),
				History:         history,
			})
			return srv.Run(ctx, cfg.Server.Addr)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "pimkit.yaml", "path to the config file")
	return cmd
}

func schemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Work with CUE schema bundles",
	}
	cmd.AddCommand(schemaLintCmd(), schemaSeedCmd())
	return cmd
}

func schemaLintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lint <bundle.cue>",
		Short: "Check a schema bundle without applying it",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			seed, err := catalog.LoadSeed(args[0])
			if err != nil {
				return err
			}

			issues := catalog.CheckSeed(seed)
			structural := 0
			for _, issue := range issues {
				level := "warn"
				if !issue.Advisory {
					level = "error"
					structural++
				}
				fmt.Printf("%s  %s: %s\n", level, issue.Target, issue.Message)
			}
			fmt.Printf("%d definitions, %d rules, %d relationship types, %d entities\n",
				len(seed.Definitions), len(seed.Rules), len(seed.RelationshipTypes), len(seed.Entities))
			if structural > 0 {
				return fmt.Errorf("%d structural errors", structural)
			}
			return nil
		},
	}
}

func schemaSeedCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "seed <bundle.cue>",
		Short: "Apply a schema bundle to the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return applySeed(cmd.Context(), store, args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "pimkit.yaml", "path to the config file")
	return cmd
}

func openStore(ctx context.Context, cfg *config.Config) (catalog.Store, error) {
	if cfg.Store.InMemory {
		return catalog.NewMemoryStore(), nil
	}
	db, err := catalog.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("opening store %s: %w", cfg.Store.Path, err)
	}
	if err := catalog.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migrating store: %w", err)
	}
	return catalog.NewSQLStore(db), nil
}

func applySeed(ctx context.Context, store catalog.Store, path string) error {
	seed, err := catalog.LoadSeed(path)
	if err != nil {
		return err
	}
	issues, err := catalog.ApplySeed(ctx, store, seed)
	for _, issue := range issues {
		if issue.Advisory {
			log.Printf("seed: %s: %s", issue.Target, issue.Message)
		}
	}
	if err != nil {
		return err
	}
	log.Printf("seeded %d definitions, %d rules, %d relationship types, %d entities from %s",
		len(seed.Definitions), len(seed.Rules), len(seed.RelationshipTypes), len(seed.Entities), path)
	return nil
}
