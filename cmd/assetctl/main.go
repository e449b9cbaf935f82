package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tendant/simple-assets/pkg/simpleassets"
	"github.com/tendant/simple-assets/pkg/simpleassets/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Settings are the CLI's own knobs. Database settings are read by
// config.WithEnv with the ASSETS_ prefix.
type Settings struct {
	LogLevel  string `env:"ASSETCTL_LOG_LEVEL" env-default:"info"`
	LogFormat string `env:"ASSETCTL_LOG_FORMAT" env-default:"text"`
	EnvPrefix string `env:"ASSETCTL_ENV_PREFIX" env-default:"ASSETS_"`
}

func main() {
	_ = godotenv.Load()

	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func NewRootCommand() *cobra.Command {
	var verbose bool
	var root string
	var localDir string
	var codecName string

	rootCmd := &cobra.Command{
		Use:   "assetctl",
		Short: "Asset database tool",
		Long: `assetctl imports assets into an asset database and inspects its manifest.

Settings come from ASSETS_* environment variables (or a .env file) and can
be overridden with flags.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&root, "root", "", "database root, e.g. local://assets")
	rootCmd.PersistentFlags().StringVar(&localDir, "local-dir", "", "base directory of the local:// scheme")
	rootCmd.PersistentFlags().StringVar(&codecName, "codec", "", "manifest codec: json, yaml, cbor, msgpack (+zstd)")

	// Add subcommands
	rootCmd.AddCommand(NewHashCommand())
	rootCmd.AddCommand(NewImportCommand())
	rootCmd.AddCommand(NewChangedCommand())
	rootCmd.AddCommand(NewConvertCommand())
	rootCmd.AddCommand(NewManifestCommand())
	rootCmd.AddCommand(NewScanCommand())
	rootCmd.AddCommand(NewSweepCommand())

	return rootCmd
}

// loadSettings reads CLI settings from the environment
func loadSettings() (Settings, error) {
	var s Settings
	if err := cleanenv.ReadEnv(&s); err != nil {
		return s, fmt.Errorf("failed to read settings: %w", err)
	}
	return s, nil
}

func newLogger(s Settings, verbose bool, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(s.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(s.LogFormat) == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// openDatabase builds the database described by the environment and the
// global flags.
func openDatabase(cmd *cobra.Command) (*simpleassets.Database, *config.DatabaseConfig, error) {
	settings, err := loadSettings()
	if err != nil {
		return nil, nil, err
	}
	verbose, _ := cmd.Flags().GetBool("verbose")
	logger := newLogger(settings, verbose, cmd.ErrOrStderr())

	opts := []config.Option{config.WithEnv(settings.EnvPrefix)}
	if v, _ := cmd.Flags().GetString("root"); v != "" {
		opts = append(opts, config.WithRoot(v))
	}
	if v, _ := cmd.Flags().GetString("local-dir"); v != "" {
		opts = append(opts, config.WithLocalFileSystem("local", v))
	}
	if v, _ := cmd.Flags().GetString("codec"); v != "" {
		opts = append(opts, config.WithCodec(v))
	}

	cfg, err := config.Load(opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Debug("Opening asset database", "root", cfg.Root, "codec", cfg.Codec, "manifest", cfg.ManifestType)
	db, err := cfg.BuildDatabase(cmd.Context(), simpleassets.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	return db, cfg, nil
}

// resolvePath turns a root-relative argument into an asset path. Arguments
// that already carry a scheme are used as given.
func resolvePath(db *simpleassets.Database, arg string) (simpleassets.AssetPath, error) {
	if strings.Contains(arg, "://") {
		return simpleassets.ParseAssetPath(arg)
	}
	return db.Root().Join(arg), nil
}

func resolvePaths(db *simpleassets.Database, args []string) ([]simpleassets.AssetPath, error) {
	paths := make([]simpleassets.AssetPath, 0, len(args))
	for _, arg := range args {
		p, err := resolvePath(db, arg)
		if err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}
