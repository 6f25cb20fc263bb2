package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vedran77/matrimony/internal/config"
	"github.com/vedran77/matrimony/internal/database"
	"github.com/vedran77/matrimony/pkg/logger"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(rootOpts.EnvFile)
			if err != nil {
				return err
			}
			logger.Init(cfg.Env)

			if cfg.StorageDriver != config.StorageDriverPostgres {
				return fmt.Errorf("migrate needs STORAGE_DRIVER=%s, got %q", config.StorageDriverPostgres, cfg.StorageDriver)
			}

			pool, err := database.Connect(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			applied, err := database.Migrate(cmd.Context(), pool)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				logger.Info().Msg("database is up to date")
				return nil
			}
			for _, v := range applied {
				logger.Info().Str("version", v).Msg("migration applied")
			}
			return nil
		},
	}
}
