/*
 * Copyright (c) 2024, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package upload

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/dburkart/pubkit/pkg/generator"
)

const (
	DefaultAttempts = 3
	DefaultBackoff  = time.Second
)

var imageSizes = [][2]int{
	{400, 300}, {600, 400}, {800, 600}, {1024, 768}, {300, 300}, {500, 500}, {800, 800},
	{1200, 800}, {1920, 1080}, {640, 480}, {320, 240}, {1600, 900}, {1280, 720},
}

var imageCategories = []string{
	"nature", "city", "technology", "food", "people", "animals", "architecture",
	"business", "fashion", "sports", "travel", "abstract", "art", "music",
}

// An Image is a downloaded file waiting to be uploaded.
type Image struct {
	Path   string
	Source string
	Size   int64
}

// GallerySource downloads random placeholder images.
type GallerySource struct {
	HTTP     *http.Client
	Attempts int
	Backoff  time.Duration
	TempDir  string

	// URL picks the next image to download.
	URL func() string

	sleep func(context.Context, time.Duration) error
}

func NewGallerySource(gen *generator.Generator) GallerySource {
	return GallerySource{
		HTTP:     &http.Client{Timeout: 30 * time.Second},
		Attempts: DefaultAttempts,
		Backoff:  DefaultBackoff,
		URL:      func() string { return RandomImageURL(gen) },
		sleep:    sleep,
	}
}

// RandomImageURL favours picsum, which serves real photographs, and falls
// back to the two text placeholder services for variety.
func RandomImageURL(gen *generator.Generator) string {
	size := imageSizes[gen.Intn(len(imageSizes))]
	w, h := size[0], size[1]

	switch roll := gen.Intn(10); {
	case roll < 8:
		return fmt.Sprintf("https://picsum.photos/%d/%d?random=%d", w, h, gen.Intn(10000)+1)
	case roll == 8:
		category := imageCategories[gen.Intn(len(imageCategories))]
		return fmt.Sprintf("https://dummyimage.com/%dx%d/%06x/ffffff&text=%s", w, h, gen.Intn(0xffffff), category)
	default:
		category := imageCategories[gen.Intn(len(imageCategories))]
		return fmt.Sprintf("https://placehold.co/%dx%d/png?text=%s", w, h, category)
	}
}

// Download fetches one image, retrying with exponential backoff. Oversized
// images are not retried.
func (g GallerySource) Download(ctx context.Context) (Image, error) {
	var lastErr error
	backoff := g.Backoff
	attempts := max(g.Attempts, 1)
	pause := g.sleep
	if pause == nil {
		pause = sleep
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		url := g.URL()
		image, err := g.fetch(ctx, url)
		if err == nil {
			return image, nil
		}
		if errors.Is(err, ErrTooLarge) {
			return Image{}, err
		}
		lastErr = err

		if attempt < attempts {
			if err := pause(ctx, backoff); err != nil {
				return Image{}, err
			}
			backoff *= 2
		}
	}

	return Image{}, errors.Wrapf(lastErr, "download failed after %d attempts", attempts)
}

func (g GallerySource) fetch(ctx context.Context, url string) (Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Image{}, errors.Wrap(err, "building image request")
	}
	req.Header.Set("User-Agent", "pubkit/1.0")

	resp, err := g.HTTP.Do(req)
	if err != nil {
		return Image{}, errors.Wrapf(err, "downloading %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Image{}, errors.Errorf("downloading %s: unexpected status %s", url, resp.Status)
	}

	file, err := os.CreateTemp(g.TempDir, "pubkit-gallery-*.jpg")
	if err != nil {
		return Image{}, errors.Wrap(err, "creating temporary image")
	}

	n, err := io.Copy(file, io.LimitReader(resp.Body, MaxFileSize+1))
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(file.Name())
		return Image{}, errors.Wrapf(err, "saving %s", url)
	}
	if n > MaxFileSize {
		os.Remove(file.Name())
		return Image{}, errors.Wrapf(ErrTooLarge, "image from %s", url)
	}

	return Image{Path: file.Name(), Source: url, Size: n}, nil
}
