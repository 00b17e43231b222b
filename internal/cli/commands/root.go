package commands

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/alvesdmateus/auto-deployer/pkg/config"
)

var (
	configFile string
	logLevel   string
	jsonLogs   bool
)

var rootCmd = &cobra.Command{
	Use:   "auto-deployer",
	Short: "auto-deployer - keeps web deployment targets on the newest package version",
	Long: `auto-deployer polls the deployment targets it knows about, compares the
version each one reports with the versions published on the package feed,
and hands upgrades to the external deployer, one job per target at a time.

Core Flow:
  Targets → Metadata → Feed → Upgrade decision → Per-target queue → Deployer`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogger()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// ExecuteCommand runs a single subcommand as the root, used by the
// dedicated server and worker binaries
func ExecuteCommand(name string) {
	cmd, _, err := rootCmd.Find([]string{name})
	if err != nil || cmd == rootCmd {
		log.Fatal().Str("command", name).Msg("Unknown command")
	}
	rootCmd.SetArgs(append([]string{name}, os.Args[1:]...))
	Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json", false, "write JSON logs instead of console output")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(targetsCmd)
	rootCmd.AddCommand(versionsCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(secretsCmd)
}

func setupLogger() {
	if jsonLogs {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	if logLevel != "" {
		setLogLevel(logLevel)
	}
}

// setLogLevel sets the global log level based on configuration
func setLogLevel(level string) {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
}

// loadConfig loads configuration and applies its log level unless the flag
// overrides it
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return nil, err
	}
	if logLevel == "" {
		setLogLevel(cfg.Server.LogLevel)
	}
	return cfg, nil
}
