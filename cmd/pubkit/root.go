/*
 * Copyright (c) 2022, Gideon Williams <gideon@gideonw.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package pubkit

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	pubkit "github.com/dburkart/pubkit/api"
	"github.com/dburkart/pubkit/cmd/pubkit/cleanup"
	"github.com/dburkart/pubkit/cmd/pubkit/count"
	"github.com/dburkart/pubkit/cmd/pubkit/probe"
	"github.com/dburkart/pubkit/cmd/pubkit/publish"
	"github.com/dburkart/pubkit/cmd/pubkit/seed"
	"github.com/dburkart/pubkit/cmd/pubkit/shell"
	"github.com/dburkart/pubkit/cmd/pubkit/upload"
	"github.com/dburkart/pubkit/pkg/report"
)

var (
	Version        = "develop"
	CommitHash     = "n/a"
	BuildTimestamp = "n/a"

	rootCmd = &cobra.Command{
		Use:   "pubkit",
		Short: "pubkit counts, generates and inspects messages in a PubNub keyset",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			initLogging()
			initLogLevel()
			initConfig(cmd.Root().PersistentFlags().Lookup("config").Value.String())
			initLogLevel()
			traceConfig()
		},
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	// Configure the root binary options
	rootCmd.PersistentFlags().CountP("verbose", "v", "-v for debug logs (-vv for trace)")
	rootCmd.PersistentFlags().Bool("local", true, "Configures the logger to print readable logs")
	rootCmd.PersistentFlags().StringP("host", "H", "pubnub://"+pubkit.DefaultOrigin, "Service origin (pubnub://host) or path to a local message store")
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to the pubkit config file (default ./pubkit.toml)")
	rootCmd.PersistentFlags().StringP("output", "o", "text", fmt.Sprintf("Output format of results %v", report.Formats))
	rootCmd.PersistentFlags().Int("prom-port", 0, "Serve /metrics on this port while the command runs (0 disables)")
	rootCmd.PersistentFlags().String("ledger", "pubkit-ledger.db", "Path to the SQLite ledger of created fixtures")
	rootCmd.PersistentFlags().Int64("seed", 0, "Seed for generated data (0 picks one from the clock)")

	// Credentials
	rootCmd.PersistentFlags().String("publish-key", "", "Publish key")
	rootCmd.PersistentFlags().String("subscribe-key", "", "Subscribe key")
	rootCmd.PersistentFlags().String("secret-key", "", "Secret key")
	rootCmd.PersistentFlags().String("user-id", pubkit.DefaultUserID, "User ID to identify as")
	rootCmd.PersistentFlags().Bool("secure", true, "Use TLS when talking to the service")

	// Bind viper config to the root flags
	viper.BindPFlag("pubkit.local", rootCmd.PersistentFlags().Lookup("local"))
	viper.BindPFlag("pubkit.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("pubkit.host", rootCmd.PersistentFlags().Lookup("host"))
	viper.BindPFlag("pubkit.output", rootCmd.PersistentFlags().Lookup("output"))
	viper.BindPFlag("pubkit.prom-port", rootCmd.PersistentFlags().Lookup("prom-port"))
	viper.BindPFlag("pubkit.ledger", rootCmd.PersistentFlags().Lookup("ledger"))
	viper.BindPFlag("pubkit.seed", rootCmd.PersistentFlags().Lookup("seed"))
	viper.BindPFlag("pubnub.publish-key", rootCmd.PersistentFlags().Lookup("publish-key"))
	viper.BindPFlag("pubnub.subscribe-key", rootCmd.PersistentFlags().Lookup("subscribe-key"))
	viper.BindPFlag("pubnub.secret-key", rootCmd.PersistentFlags().Lookup("secret-key"))
	viper.BindPFlag("pubnub.user-id", rootCmd.PersistentFlags().Lookup("user-id"))
	viper.BindPFlag("pubnub.secure", rootCmd.PersistentFlags().Lookup("secure"))
	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))

	rootCmd.SetVersionTemplate(fmt.Sprintf("pubkit version: %s git_commit: %s build_time: %s\n", Version, CommitHash, BuildTimestamp))

	// Bind viper keys to ENV variables, e.g. PUBNUB_SUBSCRIBE_KEY
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	// Register commands on the root binary command
	for _, c := range []*cobra.Command{
		count.Command,
		publish.Command,
		seed.Command,
		probe.Command,
		upload.Command,
		cleanup.Command,
		shell.Command,
	} {
		c.Version = rootCmd.Version
		rootCmd.AddCommand(c)
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
