/*
 * Copyright (c) 2024, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package cleanup

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dburkart/pubkit/cmd/pubkit/session"
	"github.com/dburkart/pubkit/pkg/ledger"
)

var Command = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove users, channels and groups recorded in the ledger",

	RunE: func(cmd *cobra.Command, args []string) error {
		log := session.Logger()

		l, err := ledger.Open(viper.GetString("pubkit.ledger"), log)
		if err != nil {
			return err
		}
		defer l.Close()

		if viper.GetBool("cleanup.list") {
			out, err := session.Writer()
			if err != nil {
				return err
			}
			runs, err := l.Runs()
			if err != nil {
				return err
			}
			return out.Write(runs)
		}

		s, err := session.Open(session.Options())
		if err != nil {
			return err
		}
		defer s.Close()

		ctx, stop := session.Context(cmd.Context())
		defer stop()

		report, err := l.Cleanup(ctx, s.Client, viper.GetString("cleanup.run"))
		if werr := s.Out.Write(report); werr != nil {
			return werr
		}
		if err != nil {
			return err
		}
		if report.Failed > 0 {
			return errors.Errorf("%d fixtures could not be removed", report.Failed)
		}
		return nil
	},
}

func init() {
	// Flags for this command
	Command.Flags().String("run", "", "Only remove fixtures created by this run (default all runs)")
	Command.Flags().Bool("list", false, "List recorded runs instead of removing anything")

	// Bind flags to viper
	viper.BindPFlag("cleanup.run", Command.Flags().Lookup("run"))
	viper.BindPFlag("cleanup.list", Command.Flags().Lookup("list"))
}
