package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/openmined/snipsync/internal/config"
	"github.com/openmined/snipsync/internal/daemon"
	"github.com/openmined/snipsync/internal/logging"
	"github.com/openmined/snipsync/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	home, _        = os.UserHomeDir()
	configFileName = "config"
	envPrefix      = "SNIPSYNC"
)

var (
	red   = color.New(color.FgHiRed, color.Bold).SprintFunc()
	green = color.New(color.FgHiGreen).SprintFunc()
	cyan  = color.New(color.FgHiCyan).SprintFunc()
)

// flag name -> config key
var flagKeys = map[string]string{
	"listen-dir":        "primary_dir",
	"output-dir":        "mirror_dir",
	"extension":         "filter",
	"create-target":     "create_mirror",
	"initialize-target": "seed_mirror",
	"copy-from-source":  "seed_primary",
	"force":             "force",
	"backend":           "backend",
	"latency":           "latency",
	"state-dir":         "state_dir",
	"verbose":           "verbose",
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "snipsync",
		Short:   "Mirror a snippet directory to a backup directory in both directions",
		Version: version.Detailed(),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			// all good now, show header
			cmd.SilenceUsage = true
			closer := setupLogging(cfg)
			defer closer.Close()

			d, err := daemon.New(cfg)
			if err != nil {
				return err
			}

			showBanner(cmd.OutOrStdout(), cfg)
			defer slog.Info("Bye!")
			return d.Start(cmd.Context())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.SortFlags = false
	flags.StringP("listen-dir", "l", config.DefaultPrimaryDir, "The source snippet directory")
	flags.StringP("output-dir", "o", config.DefaultMirrorDir, "The directory to sync the snippets to")
	flags.StringP("extension", "e", config.DefaultFilter, "Substring to match file names to sync; a value containing any of * ? [ { is matched as a glob")
	flags.BoolP("create-target", "c", false, "Create the output directory if it does not exist")
	flags.BoolP("initialize-target", "i", false, "Initialize the output directory with existing snippets")
	flags.BoolP("copy-from-source", "s", false, "Initialize the source directory with existing files from the output directory")
	flags.BoolP("force", "f", false, "When initializing, overwrite files that already exist")
	flags.String("backend", config.DefaultBackend, "File watch backend (notify, fsnotify)")
	flags.Duration("latency", config.DefaultLatency, "How long to coalesce file events before handling them")
	flags.String("state-dir", config.DefaultStateDir, "Directory for logs, locks and the activity journal")
	flags.String("config", config.DefaultConfigPath, "SnipSync config file")
	flags.Bool("verbose", false, "Log debug output to the console")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newHistoryCmd())

	return rootCmd
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "%s failed to load .env: %v\n", red("WARN"), err)
	}

	logger, _ := logging.New(logging.Options{})
	slog.SetDefault(logger)

	// Setup root context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	code := execute(ctx, newRootCmd())
	stop()
	os.Exit(code)
}

// execute runs cmd and maps the outcome to the process exit code.
func execute(ctx context.Context, cmd *cobra.Command) int {
	if err := cmd.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}

// loadConfig merges flags, SNIPSYNC_* environment variables and the config
// file, in that order of precedence, and validates the result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := viper.New()

	if cmd.Flag("config").Changed {
		configFilePath, _ := cmd.Flags().GetString("config")
		v.SetConfigFile(configFilePath)
	} else {
		// ~/.snipsync first, then ~/.config/snipsync
		v.AddConfigPath(config.DefaultStateDir)
		v.AddConfigPath(filepath.Join(home, ".config", "snipsync"))
		v.SetConfigName(configFileName)
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		enoent := errors.Is(err, os.ErrNotExist)
		_, ok := err.(viper.ConfigFileNotFoundError)
		if !enoent && !ok {
			return nil, fmt.Errorf("config read '%s': %w", v.ConfigFileUsed(), err)
		}
	}

	for flag, key := range flagKeys {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	v.SetDefault("journal", config.DefaultJournal)

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	cfg := &config.Config{
		PrimaryDir:   v.GetString("primary_dir"),
		MirrorDir:    v.GetString("mirror_dir"),
		Filter:       v.GetString("filter"),
		Ignore:       v.GetStringSlice("ignore"),
		Latency:      v.GetDuration("latency"),
		Backend:      v.GetString("backend"),
		CreateMirror: v.GetBool("create_mirror"),
		SeedMirror:   v.GetBool("seed_mirror"),
		SeedPrimary:  v.GetBool("seed_primary"),
		Force:        v.GetBool("force"),
		StateDir:     v.GetString("state_dir"),
		Journal:      v.GetBool("journal"),
		Verbose:      v.GetBool("verbose"),
		Path:         v.ConfigFileUsed(),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setupLogging(cfg *config.Config) io.Closer {
	logger, closer := logging.New(logging.Options{
		Verbose:  cfg.Verbose,
		FilePath: cfg.LogFilePath(),
	})
	slog.SetDefault(logger)
	return closer
}

func showBanner(w io.Writer, cfg *config.Config) {
	fmt.Fprintf(w, "%s %s\n", cyan(version.AppName), version.Short())
	fmt.Fprintf(w, "Listening at '%s' for files containing '%s'\n", green(cfg.PrimaryDir), green(cfg.Filter))
	fmt.Fprintf(w, "Syncing snippets to '%s'\n", green(cfg.MirrorDir))
}
