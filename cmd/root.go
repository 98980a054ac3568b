// Package cmd implements the command-line interface for the catalog ingestor.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jonesrussell/north-cloud/catalog-ingestor/cmd/crawl"
	"github.com/jonesrussell/north-cloud/catalog-ingestor/cmd/httpd"
	"github.com/jonesrussell/north-cloud/catalog-ingestor/cmd/inspect"
	"github.com/jonesrussell/north-cloud/catalog-ingestor/cmd/migrate"
	"github.com/jonesrussell/north-cloud/catalog-ingestor/internal/config"
)

// Version is set at build time with -ldflags "-X .../cmd.Version=...".
var Version = "dev"

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// Debug enables debug mode for all commands
	Debug bool

	rootCmd = &cobra.Command{
		Use:   "catalog-ingestor",
		Short: "Crawl a product catalog into PostgreSQL",
		Long: `catalog-ingestor walks the listing pages of a catalog site, extracts each record,
and keeps a PostgreSQL copy up to date with a change log and resumable crawl sessions.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"config file (default is ./config.yml or ./config/config.yml)",
	)
	rootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "enable debug mode")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return initConfig(cmd)
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "catalog-ingestor version %s\n", Version)
		},
	})

	rootCmd.AddCommand(crawl.Command())
	rootCmd.AddCommand(crawl.ResumeCommand())
	rootCmd.AddCommand(inspect.SessionsCommand())
	rootCmd.AddCommand(inspect.ChangesCommand())
	rootCmd.AddCommand(httpd.Command())
	rootCmd.AddCommand(migrate.Command())
}

// initConfig reads in config file and ENV variables if set. cmd is the
// command being executed; flags are looked up on its root.
func initConfig(cmd *cobra.Command) error {
	// .env is optional
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	config.SetDefaults(viper.GetViper())
	viper.SetDefault("app.version", Version)

	// The config file is optional unless named explicitly.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := viper.BindPFlag("app.debug", cmd.Root().PersistentFlags().Lookup("debug")); err != nil {
		return fmt.Errorf("failed to bind debug flag: %w", err)
	}

	if err := bindAppEnvVars(); err != nil {
		return err
	}

	setupDevelopmentLogging()
	return nil
}

// envBindings maps config keys to their environment variables.
var envBindings = []struct {
	key  string
	envs []string
}{
	{"app.environment", []string{"APP_ENV"}},
	{"app.debug", []string{"APP_DEBUG"}},
	{"logger.level", []string{"LOG_LEVEL"}},
	{"logger.encoding", []string{"LOG_FORMAT"}},
	{"database.host", []string{"DB_HOST"}},
	{"database.port", []string{"DB_PORT"}},
	{"database.user", []string{"DB_USER"}},
	{"database.password", []string{"DB_PASSWORD"}},
	{"database.name", []string{"DB_NAME"}},
	{"database.sslmode", []string{"DB_SSLMODE"}},
	{"auth.jwt_secret", []string{"AUTH_JWT_SECRET"}},
	{"source.base_url", []string{"SOURCE_BASE_URL"}},
	{"scheduler.interval", []string{"CRAWL_INTERVAL"}},
	{"scheduler.enabled", []string{"SCHEDULER_ENABLED"}},
	{"server.port", []string{"SERVER_PORT", "PORT"}},
}

// bindAppEnvVars binds the short environment variable names to config keys.
func bindAppEnvVars() error {
	for _, b := range envBindings {
		args := append([]string{b.key}, b.envs...)
		if err := viper.BindEnv(args...); err != nil {
			return fmt.Errorf("failed to bind %s: %w", b.envs[0], err)
		}
	}
	return nil
}

// setupDevelopmentLogging switches to console logging in development and
// forces debug level when --debug or APP_DEBUG is set.
func setupDevelopmentLogging() {
	debugFlag := Debug || viper.GetBool("app.debug")
	if debugFlag {
		viper.Set("app.debug", true)
		viper.Set("logger.level", "debug")
	}

	if viper.GetString("app.environment") == config.EnvDevelopment {
		viper.Set("logger.development", true)
		viper.Set("logger.encoding", "console")
	}

	Debug = debugFlag
}
