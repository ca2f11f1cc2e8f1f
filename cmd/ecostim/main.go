package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"ecostim/adapters/excel"
	"ecostim/adapters/jsonl"
	"ecostim/adapters/offapi"
	"ecostim/internal"
	"ecostim/internal/config"
	"ecostim/internal/container"
	"ecostim/ports"
)

// app carries what every command needs once flags are parsed
type app struct {
	*container.Container
}

var (
	envFile    string
	paramsFile string
	logLevel   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ecostim",
		Short: "Eco-label stimulus construction toolkit",
		Long: `Builds balanced, reproducible stimulus and trial sets from a product catalogue
and delivers them to participants.

Pipeline: clean -> flags -> stimuli | trials -> qc -> blocks -> run | serve -> summary`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "Env file loaded before reading ECOSTIM_* variables")
	rootCmd.PersistentFlags().StringVar(&paramsFile, "params", "", "YAML params file overriding the environment")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "ERROR|WARN|INFO|DEBUG|TRACE (default from LOG_LEVEL)")

	rootCmd.AddCommand(
		newCleanCmd(),
		newFlagsCmd(),
		newStimuliCmd(),
		newTrialsCmd(),
		newQCCmd(),
		newBlocksCmd(),
		newRunCmd(),
		newServeCmd(),
		newSummaryCmd(),
		newSeedCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadApp reads configuration and builds the logger.
func loadApp() (*app, error) {
	cfg, err := config.Load(envFile, paramsFile)
	if err != nil {
		return nil, err
	}
	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	c, err := container.New(cfg, internal.NewLogger(internal.ParseLogLevel(level)))
	if err != nil {
		return nil, err
	}
	return &app{c}, nil
}

func (a *app) close() {
	if err := a.Shutdown(context.Background()); err != nil {
		a.Logger.Warn("shutdown: %v", err)
	}
}

// dataPath resolves name under the configured data directory unless it is already a path.
func (a *app) dataPath(name string) string {
	if filepath.IsAbs(name) || strings.ContainsRune(name, filepath.Separator) {
		return name
	}
	return filepath.Join(a.Config.Paths.DataDir, name)
}

// openSource picks a row source by path: "off:" pages the public products
// API, .jsonl dumps go through gjson, everything else is tabular.
func (a *app) openSource(path string, maxPages int) ports.RowSource {
	if country, ok := strings.CutPrefix(path, "off:"); ok {
		cfg := offapi.DefaultConfig()
		if country != "" {
			cfg.Country = country
		}
		if maxPages > 0 {
			cfg.MaxPages = maxPages
		}
		return offapi.NewAPIReader(cfg, a.Logger)
	}
	if jsonl.IsJSONL(path) {
		return jsonl.NewReader(path, a.Logger)
	}
	return excel.NewDataReader(path, a.Logger)
}
