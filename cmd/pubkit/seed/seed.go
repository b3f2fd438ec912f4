/*
 * Copyright (c) 2024, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package seed

import (
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dburkart/pubkit/cmd/pubkit/session"
	"github.com/dburkart/pubkit/pkg/ledger"
	"github.com/dburkart/pubkit/pkg/seed"
)

var Command = &cobra.Command{
	Use:   "seed",
	Short: "Populate the user and channel directory with realistic test data",
	Long: `Seed creates users, channels and memberships. Everything created is
recorded in the ledger so "pubkit cleanup" can remove it later.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		opts := seed.Options{
			Users:           viper.GetInt("seed.users"),
			Channels:        viper.GetInt("seed.channels"),
			MembershipRatio: viper.GetFloat64("seed.membership-ratio"),
			BatchSize:       viper.GetInt("seed.batch-size"),
			DryRun:          viper.GetBool("seed.dry-run"),
		}
		if err := validator.New().Struct(opts); err != nil {
			return errors.Wrap(err, "invalid seed options")
		}

		if opts.DryRun {
			out, err := session.Writer()
			if err != nil {
				return err
			}
			report, err := seed.New(nil, nil, session.Generator(), session.Logger()).Run(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return out.Write(report)
		}

		s, err := session.Open(session.Options())
		if err != nil {
			return err
		}
		defer s.Close()

		l, err := ledger.Open(viper.GetString("pubkit.ledger"), s.Log)
		if err != nil {
			return err
		}
		defer l.Close()

		ctx, stop := session.Context(cmd.Context())
		defer stop()

		report, err := seed.New(s.Client, l, session.Generator(), s.Log).Run(ctx, opts)
		if werr := s.Out.Write(report); werr != nil {
			return werr
		}
		return err
	},
}

func init() {
	defaults := seed.DefaultOptions()

	// Flags for this command
	Command.Flags().Int("users", defaults.Users, "Number of users to create")
	Command.Flags().Int("channels", defaults.Channels, "Number of channels to create")
	Command.Flags().Float64("membership-ratio", defaults.MembershipRatio, "Fraction of channels each user joins")
	Command.Flags().Int("batch-size", defaults.BatchSize, "Objects created between pauses")
	Command.Flags().Bool("dry-run", false, "Print samples of the generated data without creating anything")

	// Bind flags to viper
	viper.BindPFlag("seed.users", Command.Flags().Lookup("users"))
	viper.BindPFlag("seed.channels", Command.Flags().Lookup("channels"))
	viper.BindPFlag("seed.membership-ratio", Command.Flags().Lookup("membership-ratio"))
	viper.BindPFlag("seed.batch-size", Command.Flags().Lookup("batch-size"))
	viper.BindPFlag("seed.dry-run", Command.Flags().Lookup("dry-run"))
}
