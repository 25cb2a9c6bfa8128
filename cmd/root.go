// Package cmd provides the command-line interface for scriptlet.
//
// Configuration System:
//
//	The CLI supports flexible configuration through multiple sources with
//	clear precedence:
//	1. Command-line flags (--config, --log-level, etc.) - highest priority
//	2. SCRIPTLET_CONFIG_FILE environment variable - custom config file path
//	3. Individual environment variables (SCRIPTLET_SERVER_PORT, etc.)
//	4. Configuration files (.scriptlet.yml) - lowest priority
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/conneroisu/scriptlet/internal/cache"
	"github.com/conneroisu/scriptlet/internal/compiler"
	"github.com/conneroisu/scriptlet/internal/config"
	"github.com/conneroisu/scriptlet/internal/logging"
	"github.com/conneroisu/scriptlet/internal/parser"
	"github.com/conneroisu/scriptlet/internal/runtime"
	"github.com/conneroisu/scriptlet/internal/security"
	"github.com/conneroisu/scriptlet/internal/store"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "scriptlet",
	Short: "A safe template-scripting compiler with caching",
	Long: `Scriptlet compiles lightweight scripting constructs embedded in templates
into host-renderer expressions, with a security policy and a two-tier
compilation cache.

Quick Start:
  scriptlet init                  Write a starter .scriptlet.yml
  scriptlet compile page          Compile one template from the store
  scriptlet serve                 Start the preview server with live reload
  scriptlet validate '{= expr }'  Check an expression against the policy
  scriptlet cache stats           Show cache hit/miss counters`,
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .scriptlet.yml, can also use SCRIPTLET_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().SetNormalizeFunc(normalizeFlag)
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// normalizeFlag lets users spell multi-word flags with underscores too.
func normalizeFlag(f *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

// initConfig wires config sources in precedence order: --config flag, then
// SCRIPTLET_CONFIG_FILE, then .scriptlet.yml in the current directory.
// Missing config files are not an error; defaults apply.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("SCRIPTLET_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".scriptlet")
	}

	viper.SetEnvPrefix("SCRIPTLET")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(config.EnvKeyReplacer())

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig materializes and validates the effective configuration.
func loadConfig() (*config.Config, error) {
	return config.Load(viper.GetViper())
}

// newLogger builds the CLI logger from config.
func newLogger(cfg *config.Config) logging.Logger {
	return logging.NewLogger(&logging.Config{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
}

// buildRuntime assembles the full compilation pipeline from config: store,
// parser, policy, compiler, cache tiers, runtime.
func buildRuntime(cfg *config.Config, logger logging.Logger) (*runtime.Runtime, *store.DirStore, error) {
	st := store.NewDirStore(cfg.Store.Path)
	policy := security.NewPolicy(
		security.WithAdditionalFunctions(cfg.Security.AdditionalAllowedFunctions),
	)

	var disk *cache.Disk
	if cfg.Cache.Enabled {
		d, err := cache.NewDisk(cfg.Cache.Dir)
		if err != nil {
			return nil, nil, fmt.Errorf("opening cache dir %q: %w", cfg.Cache.Dir, err)
		}
		disk = d
	}

	rt := runtime.New(
		st,
		parser.New(),
		compiler.New(policy, st),
		cache.New(cache.NewMemory(), disk),
		logger,
		runtime.Options{Enabled: cfg.Enabled, Debug: cfg.Debug},
	)
	return rt, st, nil
}
