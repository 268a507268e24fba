package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Run: func(cmd *cobra.Command, _ []string) {
		logger, config := setup()

		st, err := openStore(cmd.Context(), config, logger)
		if err != nil {
			logger.Fatal("migrating the database", zap.Error(err))
		}
		defer st.Close()

		logger.Info("database is up to date", zap.String("driver", config.Database.Driver))
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
