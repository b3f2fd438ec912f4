/*
 * Copyright (c) 2024, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package publish

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dburkart/pubkit/cmd/pubkit/session"
	"github.com/dburkart/pubkit/pkg/generator"
	"github.com/dburkart/pubkit/pkg/publisher"
)

var Command = &cobra.Command{
	Use:   "publish CHANNEL COUNT",
	Short: "Publish generated messages of varying size and shape",
	Long: "Publish COUNT generated messages to CHANNEL. Message types: " +
		strings.Join(generator.Types, ", ") + ".",
	Args: cobra.ExactArgs(2),

	RunE: func(cmd *cobra.Command, args []string) error {
		count, err := strconv.Atoi(args[1])
		if err != nil {
			return errors.Wrapf(err, "COUNT must be a number, got %q", args[1])
		}

		opts := publisher.Options{
			Channel:   args[0],
			Count:     count,
			MinSize:   viper.GetInt("publish.min-size"),
			MaxSize:   viper.GetInt("publish.max-size"),
			Delay:     viper.GetDuration("publish.delay"),
			Meta:      viper.GetBool("publish.meta"),
			Type:      viper.GetString("publish.type"),
			Publisher: viper.GetString("pubnub.user-id"),
		}
		// Validate before connecting
		if err := opts.Validate(); err != nil {
			return err
		}

		s, err := session.Open(session.Options())
		if err != nil {
			return err
		}
		defer s.Close()

		ctx, stop := session.Context(cmd.Context())
		defer stop()

		summary, err := publisher.New(s.Client, session.Generator(), s.Log).Run(ctx, opts)
		if werr := s.Out.Write(summary); werr != nil {
			return werr
		}
		return err
	},
}

func init() {
	// Flags for this command
	Command.Flags().Int("min-size", 100, "Minimum message size in bytes")
	Command.Flags().Int("max-size", 25000, "Maximum message size in bytes")
	Command.Flags().Duration("delay", 100*time.Millisecond, "Delay between messages")
	Command.Flags().Bool("meta", false, "Attach type-specific metadata to each message")
	Command.Flags().String("type", "", "Publish only this message type (default random)")

	// Bind flags to viper
	viper.BindPFlag("publish.min-size", Command.Flags().Lookup("min-size"))
	viper.BindPFlag("publish.max-size", Command.Flags().Lookup("max-size"))
	viper.BindPFlag("publish.delay", Command.Flags().Lookup("delay"))
	viper.BindPFlag("publish.meta", Command.Flags().Lookup("meta"))
	viper.BindPFlag("publish.type", Command.Flags().Lookup("type"))
}
