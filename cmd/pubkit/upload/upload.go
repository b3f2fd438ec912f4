/*
 * Copyright (c) 2024, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package upload

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dburkart/pubkit/cmd/pubkit/session"
	"github.com/dburkart/pubkit/pkg/upload"
)

var Command = &cobra.Command{
	Use:   "upload",
	Short: "Upload files to a channel",
}

var fileCommand = &cobra.Command{
	Use:   "file",
	Short: "Upload the same file repeatedly under random names",

	RunE: func(cmd *cobra.Command, args []string) error {
		path := viper.GetString("upload.image")
		if path == "" {
			return errors.New("--image is required")
		}
		return run(cmd.Context(), func(ctx context.Context, u *upload.Uploader, opts upload.Options) (upload.Summary, error) {
			return u.File(ctx, path, opts)
		})
	},
}

var galleryCommand = &cobra.Command{
	Use:   "gallery",
	Short: "Upload random images downloaded from placeholder image services",

	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), func(ctx context.Context, u *upload.Uploader, opts upload.Options) (upload.Summary, error) {
			return u.Gallery(ctx, opts)
		})
	},
}

func run(parent context.Context, fn func(context.Context, *upload.Uploader, upload.Options) (upload.Summary, error)) error {
	opts := upload.Options{
		Channel: viper.GetString("upload.channel"),
		Count:   viper.GetInt("upload.count"),
		Delay:   viper.GetDuration("upload.delay"),
	}

	s, err := session.Open(session.Options())
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := session.Context(parent)
	defer stop()

	summary, err := fn(ctx, upload.New(s.Client, session.Generator(), s.Log), opts)
	if err != nil && summary.Total == 0 {
		return err
	}
	if werr := s.Out.Write(summary); werr != nil {
		return werr
	}
	if err != nil {
		return err
	}
	if summary.HasFailures() {
		return errors.Errorf("%d of %d uploads failed", summary.Failed, summary.Total)
	}
	return nil
}

func init() {
	// Flags shared by both upload modes
	Command.PersistentFlags().StringP("channel", "C", "file-uploads", "Channel to upload to")
	Command.PersistentFlags().IntP("count", "n", 1, "Number of uploads")
	Command.PersistentFlags().Duration("delay", time.Second, "Delay between uploads")
	fileCommand.Flags().String("image", "", "Path of the file to upload (max 5 MB)")

	// Bind flags to viper
	viper.BindPFlag("upload.channel", Command.PersistentFlags().Lookup("channel"))
	viper.BindPFlag("upload.count", Command.PersistentFlags().Lookup("count"))
	viper.BindPFlag("upload.delay", Command.PersistentFlags().Lookup("delay"))
	viper.BindPFlag("upload.image", fileCommand.Flags().Lookup("image"))

	Command.AddCommand(fileCommand, galleryCommand)
}
