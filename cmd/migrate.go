package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ellavondegurechaff/materialpool/materialpool/logger"
	"github.com/ellavondegurechaff/materialpool/materialpool/migration"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Database schema and legacy data migrations",
}

var migrateSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		// openStores initializes the schema
		st, err := openStores(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		logger.LogCommand("migrate schema", time.Since(start), nil)
		return nil
	},
}

var (
	legacyBSONPath string
	legacyMongoURI string
)

var migrateLegacyCmd = &cobra.Command{
	Use:   "legacy",
	Short: "Import materials from the previous system's MongoDB data",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		start := time.Now()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		mongoURI := legacyMongoURI
		if mongoURI == "" {
			mongoURI = cfg.Legacy.MongoURI
		}
		if legacyBSONPath == "" && mongoURI == "" {
			return errors.New("either --bson or --mongo-uri (or legacy.mongo_uri) is required")
		}

		st, err := openStores(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		migrator := migration.NewMigrator(st.services().materials)

		var summaryErr error
		if legacyBSONPath != "" {
			summary, err := migrator.MigrateFromBSON(ctx, legacyBSONPath)
			if summary != nil {
				fmt.Fprintln(cmd.OutOrStdout(), summary.Message())
			}
			summaryErr = err
		} else {
			client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
			if err != nil {
				return fmt.Errorf("failed to connect to mongo: %w", err)
			}
			defer func() {
				disconnectCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
				defer cancel()
				_ = client.Disconnect(disconnectCtx)
			}()

			migrator.UseMongo(client, cfg.Legacy.Database, cfg.Legacy.Collection)
			summary, err := migrator.MigrateFromMongo(ctx)
			if summary != nil {
				fmt.Fprintln(cmd.OutOrStdout(), summary.Message())
			}
			summaryErr = err
		}

		logger.LogCommand("migrate legacy", time.Since(start), summaryErr)
		return summaryErr
	},
}

func init() {
	migrateLegacyCmd.Flags().StringVar(&legacyBSONPath, "bson", "", "path to a mongodump .bson file of the legacy materials collection")
	migrateLegacyCmd.Flags().StringVar(&legacyMongoURI, "mongo-uri", "", "legacy MongoDB URI (overrides legacy.mongo_uri)")

	migrateCmd.AddCommand(migrateSchemaCmd, migrateLegacyCmd)
	rootCmd.AddCommand(migrateCmd)
}
