/*
 * Copyright (c) 2024, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

// Package upload sends files to a channel repeatedly, either a local file
// or random images fetched from placeholder image services.
package upload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	pubkit "github.com/dburkart/pubkit/api"
	"github.com/dburkart/pubkit/pkg/generator"
)

// MaxFileSize is the largest file the service accepts.
const MaxFileSize = 5 * 1024 * 1024

var ErrTooLarge = errors.New("file exceeds the 5 MB limit")

type Options struct {
	Channel string `validate:"required"`
	Count   int    `validate:"gt=0"`
	Delay   time.Duration
}

// Sender is the part of the client used for uploads.
type Sender interface {
	SendFile(context.Context, pubkit.FileUpload) (pubkit.FileResult, error)
}

type Uploader struct {
	client Sender
	gen    *generator.Generator
	log    zerolog.Logger
	sleep  func(context.Context, time.Duration) error

	Images GallerySource
}

func New(client Sender, gen *generator.Generator, log zerolog.Logger) *Uploader {
	return &Uploader{
		client:  client,
		gen:     gen,
		log:     log,
		sleep:   sleep,
		Images:  NewGallerySource(gen),
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type Summary struct {
	Channel   string
	Total     int
	Succeeded int
	Failed    int
	Bytes     int64
	Duration  time.Duration
	Names     []string
	Errors    []string
}

func (s Summary) Headers() []string {
	return []string{"Field", "Value"}
}

func (s Summary) Values() [][]string {
	rate := 0.0
	if s.Duration > 0 {
		rate = float64(s.Total) / s.Duration.Seconds()
	}

	rows := [][]string{
		{"Channel", s.Channel},
		{"Total files", strconv.Itoa(s.Total)},
		{"Successful", strconv.Itoa(s.Succeeded)},
		{"Failed", strconv.Itoa(s.Failed)},
		{"Data sent", humanize.Bytes(uint64(s.Bytes))},
		{"Duration", s.Duration.Round(time.Millisecond).String()},
		{"Rate", fmt.Sprintf("%.1f files/sec", rate)},
	}
	for i, name := range s.Names {
		if i == 5 {
			break
		}
		rows = append(rows, []string{"Example name", name})
	}
	for _, e := range s.Errors {
		rows = append(rows, []string{"Error", e})
	}
	return rows
}

// HasFailures reports whether any upload failed.
func (s Summary) HasFailures() bool {
	return s.Failed > 0
}

func (u *Uploader) send(ctx context.Context, channel, path, name, message string) error {
	res, err := u.client.SendFile(ctx, pubkit.FileUpload{
		Channel: channel,
		Path:    path,
		Name:    name,
		Message: message,
	})
	if err != nil {
		return err
	}
	u.log.Debug().Str("name", name).Str("id", res.ID).Stringer("timetoken", res.Token).Msg("uploaded")
	return nil
}

// File uploads path opts.Count times under random names that keep its
// extension.
func (u *Uploader) File(ctx context.Context, path string, opts Options) (Summary, error) {
	if err := validator.New().Struct(opts); err != nil {
		return Summary{}, errors.Wrap(err, "invalid upload options")
	}

	info, err := os.Stat(path)
	if err != nil {
		return Summary{}, errors.Wrap(err, "reading upload source")
	}
	if info.Size() > MaxFileSize {
		return Summary{}, errors.Wrapf(ErrTooLarge, "%s is %s", path, humanize.Bytes(uint64(info.Size())))
	}

	log := u.log.With().Str("channel", opts.Channel).Str("source", path).Logger()
	log.Info().Int("count", opts.Count).Str("size", humanize.Bytes(uint64(info.Size()))).Msg("uploading file")

	summary := Summary{Channel: opts.Channel}
	started := time.Now()
	ext := filepath.Ext(path)

	for i := 0; i < opts.Count; i++ {
		name := u.gen.FileName(ext)
		summary.Total++

		if err := u.send(ctx, opts.Channel, path, name, "Test upload of "+name); err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", name, err))
			log.Error().Err(err).Int("n", i+1).Str("name", name).Msg("upload failed")
		} else {
			summary.Succeeded++
			summary.Bytes += info.Size()
			summary.Names = append(summary.Names, name)
		}

		if (i+1)%10 == 0 {
			log.Info().Int("done", i+1).Int("ok", summary.Succeeded).Int("failed", summary.Failed).Msg("progress")
		}

		if i < opts.Count-1 {
			if err := u.sleep(ctx, opts.Delay); err != nil {
				summary.Duration = time.Since(started)
				return summary, err
			}
		}
	}

	summary.Duration = time.Since(started)
	return summary, nil
}

// Gallery downloads opts.Count random images and uploads each one. Every
// downloaded file is removed before returning.
func (u *Uploader) Gallery(ctx context.Context, opts Options) (Summary, error) {
	if err := validator.New().Struct(opts); err != nil {
		return Summary{}, errors.Wrap(err, "invalid upload options")
	}

	log := u.log.With().Str("channel", opts.Channel).Logger()
	log.Info().Int("count", opts.Count).Msg("uploading gallery images")

	summary := Summary{Channel: opts.Channel}
	started := time.Now()

	for i := 0; i < opts.Count; i++ {
		summary.Total++

		err := u.galleryOne(ctx, opts.Channel, &summary)
		if err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, err.Error())
			log.Error().Err(err).Int("n", i+1).Msg("gallery upload failed")
			if ctx.Err() != nil {
				summary.Duration = time.Since(started)
				return summary, ctx.Err()
			}
		}

		if i < opts.Count-1 {
			if err := u.sleep(ctx, opts.Delay); err != nil {
				summary.Duration = time.Since(started)
				return summary, err
			}
		}
	}

	summary.Duration = time.Since(started)
	return summary, nil
}

func (u *Uploader) galleryOne(ctx context.Context, channel string, summary *Summary) error {
	image, err := u.Images.Download(ctx)
	if err != nil {
		return err
	}
	defer os.Remove(image.Path)

	u.log.Debug().Str("source", image.Source).Str("size", humanize.Bytes(uint64(image.Size))).Msg("downloaded image")

	name := u.gen.FileName(".jpg")
	if err := u.send(ctx, channel, image.Path, name, "Gallery upload: "+name); err != nil {
		return errors.Wrap(err, name)
	}

	summary.Succeeded++
	summary.Bytes += image.Size
	summary.Names = append(summary.Names, name)
	return nil
}
