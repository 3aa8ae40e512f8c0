// Package cli implements the csv2pg command line interface.
//
// The CLI drives the same import pipeline the HTTP service uses, for
// one-off loads and scripted pipelines: `csv2pg import` loads a local CSV
// with a YAML schema file, `csv2pg tables` lists the import catalog.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/arnevik/csv2pg/internal/catalog"
	"github.com/arnevik/csv2pg/internal/config"
	"github.com/arnevik/csv2pg/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:          "csv2pg",
	Short:        "Import CSV files into PostgreSQL tables",
	Long:         "csv2pg validates a CSV against a declared schema, provisions the destination\ntable, and bulk-loads the rows in one transaction. Re-imports replace the\ntable wholesale.",
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("database-url", "", "PostgreSQL connection string (defaults to DATABASE_URL)")
}

// setup loads configuration, configures logging, and opens the pool with
// the catalog ensured. The caller must close the returned pool.
func setup(cmd *cobra.Command) (*pgxpool.Pool, *catalog.Store, *config.Config, error) {
	_ = godotenv.Overload()

	if url, _ := cmd.Flags().GetString("database-url"); url != "" {
		os.Setenv("DATABASE_URL", url)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect: %w", err)
	}

	cat := catalog.New(pool, cfg.Import.CatalogSchema)
	if err := cat.Ensure(ctx); err != nil {
		pool.Close()
		return nil, nil, nil, err
	}

	return pool, cat, cfg, nil
}
