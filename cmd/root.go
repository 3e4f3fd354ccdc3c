// Package cmd provides the origo command-line interface.
//
// Configuration is read, lowest priority first, from .origo.yml in the
// working directory, the file named by ORIGO_CONFIG_FILE or --config, and
// ORIGO_<SECTION>_<OPTION> environment variables (ORIGO_SERVER_PORT,
// ORIGO_STORAGE_S3_BUCKET, ...). A .env file in the working directory is
// loaded into the environment first.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/origolabs/origo/internal/config"
	"github.com/origolabs/origo/internal/logging"
	"github.com/origolabs/origo/internal/services"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// app carries the state shared by every command of one invocation.
type app struct {
	v        *viper.Viper
	cfgFile  string
	logLevel string

	cfg    *config.Config
	logger logging.Logger
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "origo",
		Short: "Validate, check, audit and preview generated full-stack projects",
		Long: `Origo validates generated project payloads, runs quality checks on them,
audits project archives and renders self-contained HTML previews.

Quick Start:
  origo serve                         Start the HTTP API
  origo validate payload.json         Validate a payload
  origo quality --payload p.json      Run every quality check
  origo preview demo site.zip         Render a preview of an archive
  origo watch ./drops                 Audit and preview archives as they appear`,
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.load()
		},
	}

	root.SetGlobalNormalizationFunc(normalizeFlag)
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "",
		"config file (default is .origo.yml, can also use ORIGO_CONFIG_FILE env var)")
	root.PersistentFlags().StringVarP(&a.logLevel, "log-level", "l", "",
		"log level (debug, info, warn, error); overrides log.level")

	root.AddCommand(
		newServeCmd(a),
		newValidateCmd(a),
		newQualityCmd(a),
		newAuditCmd(a),
		newPreviewCmd(a),
		newPackCmd(a),
		newWatchCmd(a),
		newVersionCmd(),
		newConfigCmd(a),
	)

	return root
}

// normalizeFlag accepts underscores in flag names: --log_level is --log-level.
func normalizeFlag(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

// load reads configuration and builds the logger.
//
// Config file priority: --config, then ORIGO_CONFIG_FILE, then .origo.yml in
// the working directory. A missing default file is not an error.
func (a *app) load() error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	explicit := true
	switch {
	case a.cfgFile != "":
		a.v.SetConfigFile(a.cfgFile)
	case os.Getenv("ORIGO_CONFIG_FILE") != "":
		a.v.SetConfigFile(os.Getenv("ORIGO_CONFIG_FILE"))
	default:
		explicit = false
		a.v.AddConfigPath(".")
		a.v.SetConfigType("yaml")
		a.v.SetConfigName(".origo")
	}
	config.BindEnv(a.v)

	if err := a.v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); explicit || !notFound {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	if a.logLevel != "" {
		a.v.Set("log.level", a.logLevel)
	}

	cfg, err := config.LoadFrom(a.v)
	if err != nil {
		return err
	}
	logger, err := services.NewLogger(cfg.Log)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	if used := a.v.ConfigFileUsed(); used != "" {
		logger.Debug(context.Background(), "using config file", "path", used)
	}

	return nil
}

// services wires the service layer from the loaded configuration.
func (a *app) services(opts ...services.Option) (*services.Services, error) {
	svc, err := services.New(a.cfg, a.logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return svc, nil
}
