package main

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/ukydev/garage-service/internal/config"
)

func newIndexesCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-indexes",
		Short: "Create the MongoDB indexes and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if cfg.StorageBackend != config.BackendMongo {
				return fmt.Errorf("ensure-indexes needs STORAGE_BACKEND=%s, got %s", config.BackendMongo, cfg.StorageBackend)
			}
			_, closeStore, err := openStore(cmd.Context(), cfg, true)
			if err != nil {
				return err
			}
			defer closeStore()
			log.Info("Indexes are up to date")
			return nil
		},
	}
}
