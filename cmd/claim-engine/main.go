// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the claim-engine CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/claim-engine/internal/logging"
	"github.com/pdiddy/claim-engine/internal/secrets"
	"github.com/pdiddy/claim-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// loadedSecrets holds API keys loaded from .secrets/ at startup.
	loadedSecrets map[string]string

	// engineCfg is the resolved configuration for this invocation.
	engineCfg types.EngineConfig

	logger = zap.NewNop()
)

// rootCmd is the base command for the claim-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "claim-engine",
	Short: "Layered credibility scoring for news articles and posts",
	Long: `claim-engine splits submitted text into claims and scores each claim
through five analytical layers: media context, linguistics, source
credibility, cross-source verification and temporal consistency. The
per-claim results are folded into an article verdict with an uncertainty
estimate and an explanation trail.

Identical submissions always produce identical scores; a seed derived from
the content scopes every simulated signal.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(viper.GetString("secrets_dir"))
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}

		cfg, err := loadEngineConfig(viper.GetViper(), loadedSecrets)
		if err != nil {
			return err
		}
		engineCfg = cfg

		l, err := logging.New(cfg.Logging)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./claim-engine.yaml or ~/.config/claim-engine/claim-engine.yaml)")
	pf.String("secrets-dir", ".secrets/", "directory of secret files (factcheck-api-key, nlp-api-key, redis-url)")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.Bool("dev", false, "human-readable development logging")
	pf.String("store-path", "", "verdict store SQLite file (default data/verdicts.db)")

	viper.BindPFlag("secrets_dir", pf.Lookup("secrets-dir"))
	viper.BindPFlag("logging.level", pf.Lookup("log-level"))
	viper.BindPFlag("logging.development", pf.Lookup("dev"))
	viper.BindPFlag("store.path", pf.Lookup("store-path"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("claim-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "claim-engine"))
		}
	}

	viper.SetEnvPrefix("CLAIM_ENGINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
