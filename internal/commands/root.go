package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"evalgo.org/gridmapper/internal/config"
	"evalgo.org/gridmapper/internal/generator"
	"evalgo.org/gridmapper/internal/logging"
	"evalgo.org/gridmapper/internal/refdata"
	"evalgo.org/gridmapper/internal/render"
	"evalgo.org/gridmapper/internal/storage"
	"evalgo.org/gridmapper/internal/version"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string
	cfg       *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "gridmapper",
	Short: "Maidenhead grid maps from contest logs",
	Long: `gridmapper reads amateur radio contest logs (Cabrillo or CSV) and
draws one map per band and continent showing the grid squares worked.

Run it as an HTTP service with "gridmapper server", or render maps from a
local log with "gridmapper generate".`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (json, text)")

	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(locateCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "%s" .Version}}
`)
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Flags win over file and environment
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
}

// app is the shared wiring of the server and generate commands.
type app struct {
	log       *logrus.Logger
	tables    *refdata.Tables
	store     storage.Store
	generator *generator.Generator
}

// newApp builds logger, reference tables and generator around store.
// A nil store is created from the storage configuration.
func newApp(ctx context.Context, store storage.Store) (*app, error) {
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	tables, err := loadTables()
	if err != nil {
		_ = logging.Close(logger)
		return nil, err
	}

	if store == nil {
		store, err = storage.New(ctx, cfg)
		if err != nil {
			_ = logging.Close(logger)
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
	}

	renderer := render.New(tables, render.Options{
		Width:        cfg.Render.Width,
		MarkerRadius: cfg.Render.MarkerRadius,
	})

	return &app{
		log:       logger,
		tables:    tables,
		store:     store,
		generator: generator.New(tables, renderer, store, logger, generator.OptionsFromConfig(cfg)),
	}, nil
}

// Close releases the log file, if logging goes to one.
func (a *app) Close() error {
	return logging.Close(a.log)
}

func loadTables() (*refdata.Tables, error) {
	if cfg.RefData.BandsFile == "" && cfg.RefData.ContinentsFile == "" {
		return refdata.Default(), nil
	}
	tables, err := refdata.Load(cfg.RefData.BandsFile, cfg.RefData.ContinentsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load reference data: %w", err)
	}
	return tables, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		info := version.Get()
		fmt.Println(info.String())

		if cmd.Flag("verbose").Changed {
			fmt.Printf("\nDetails:\n")
			fmt.Printf("  Version:    %s\n", info.Version)
			fmt.Printf("  Git Commit: %s\n", info.GitCommit)
			fmt.Printf("  Built:      %s\n", info.BuildTime)
			fmt.Printf("  Go Version: %s\n", info.GoVersion)
			fmt.Printf("  Platform:   %s\n", info.Platform)
		}
	},
}

func init() {
	versionCmd.Flags().BoolP("verbose", "v", false, "verbose version output")
}
