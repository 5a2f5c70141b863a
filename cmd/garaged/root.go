package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/ukydev/garage-service/internal/config"
	"github.com/ukydev/garage-service/internal/db"
)

var (
	Version   = "dev"
	CommitSHA = "none"
)

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "garaged",
		Short:         "Garage workshop API: parts, services, quotes and appointments",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment")

	load := func() (*config.Config, error) {
		cfg, err := config.Load(envFile)
		if err != nil {
			return nil, err
		}
		if err := setupLogging(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	root.AddCommand(newServeCmd(load))
	root.AddCommand(newIndexesCmd(load))
	root.AddCommand(newSeedCmd(load))
	root.AddCommand(newTokenCmd(load))
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "garaged %s (commit=%s)\n", Version, CommitSHA)
		},
	})
	return root
}

type loader func() (*config.Config, error)

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogging(cfg *config.Config) error {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	log.SetLevel(level)
	switch strings.ToLower(cfg.LogFormat) {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "text", "":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q: want text or json", cfg.LogFormat)
	}
	return nil
}

// openStore returns the configured store and a function releasing it.
// With the mongo backend, indexes are created first when ensureIndexes is set.
func openStore(ctx context.Context, cfg *config.Config, ensureIndexes bool) (*db.Store, func(), error) {
	if cfg.StorageBackend == config.BackendMemory {
		log.Warn("Using the in-memory store, data is lost on exit")
		return db.NewMemoryStore(), func() {}, nil
	}

	client, err := db.ConnectMongo(ctx, cfg.MongoURI)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.WithError(err).Warn("Failed to disconnect from MongoDB")
		}
	}
	database := client.Database(cfg.MongoDB)
	if ensureIndexes {
		if err := db.EnsureIndexes(ctx, database); err != nil {
			closeFn()
			return nil, nil, err
		}
	}
	log.WithField("database", cfg.MongoDB).Info("Connected to MongoDB")
	return db.NewMongoStore(database), closeFn, nil
}
