package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/holocron-dev/holocron/internal/config"
	"github.com/holocron-dev/holocron/internal/db"
	"github.com/holocron-dev/holocron/internal/importer"
	"github.com/holocron-dev/holocron/internal/logger"
	"github.com/holocron-dev/holocron/internal/store"
)

var importCmd = &cobra.Command{
	Use:   "import [all|films|characters|starships]",
	Short: "Import Star Wars data from the upstream API",
	Long: `Import data from the upstream API into the database.

With no argument (or "all"), films are imported first so that character film
links resolve, then characters, then starships.`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"all", "films", "characters", "starships"},
	RunE:      runImport,
}

func init() {
	importCmd.Flags().String("config", "", "Path to configuration file (YAML format, required)")
	if err := importCmd.MarkFlagRequired("config"); err != nil {
		logger.Fatalf("Failed to mark config flag as required: %v", err)
	}
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}

	cfg, err := config.LoadConfig(config.WithConfigPath(configPath))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	imp := importer.New(newUpstreamClient(cfg), store.New(pool))

	target := "all"
	if len(args) == 1 {
		target = args[0]
	}

	switch target {
	case "all":
		return imp.ImportAll(ctx)
	case "films":
		_, err := imp.ImportFilms(ctx)
		return err
	case "characters":
		_, err := imp.ImportCharacters(ctx)
		return err
	case "starships":
		_, err := imp.ImportStarships(ctx)
		return err
	default:
		return fmt.Errorf("unknown import target %q", target)
	}
}
