/*
 * Copyright (c) 2024, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package probe

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	pubkit "github.com/dburkart/pubkit/api"
	"github.com/dburkart/pubkit/cmd/pubkit/session"
	"github.com/dburkart/pubkit/pkg/probe"
)

var Command = &cobra.Command{
	Use:   "probe",
	Short: "Find out whether channel group management requires the secret key",

	RunE: func(cmd *cobra.Command, args []string) error {
		opts := session.Options()
		if opts.SecretKey == "" {
			return errors.New("probe needs a secret key to compare against (--secret-key or PUBNUB_SECRET_KEY)")
		}

		s, err := session.Open(opts)
		if err != nil {
			return err
		}
		defer s.Close()

		withoutOpts := opts
		withoutOpts.SecretKey = ""
		without, err := pubkit.NewClient(viper.GetString("pubkit.host"), withoutOpts)
		if err != nil {
			return err
		}
		defer without.Close()

		ctx, stop := session.Context(cmd.Context())
		defer stop()

		p := probe.New(s.Client, without, s.Log)
		p.Settle = viper.GetDuration("probe.settle")

		report, err := p.Run(ctx)
		if werr := s.Out.Write(report); werr != nil {
			return werr
		}
		if err != nil {
			return err
		}
		if report.Conclusion == probe.Inconclusive {
			return errors.New(report.Conclusion.Describe())
		}
		return nil
	},
}

func init() {
	// Flags for this command
	Command.Flags().Duration("settle", probe.DefaultSettle, "Wait between creating and querying groups")

	// Bind flags to viper
	viper.BindPFlag("probe.settle", Command.Flags().Lookup("settle"))
}
