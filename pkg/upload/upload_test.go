/*
 * Copyright (c) 2024, Dana Burkart <dana.burkart@gmail.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package upload

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pubkit "github.com/dburkart/pubkit/api"
	"github.com/dburkart/pubkit/pkg/generator"
	"github.com/dburkart/pubkit/pkg/timetoken"
)

type fakeSender struct {
	uploads []pubkit.FileUpload
	// existed records whether each upload's path was on disk when sent
	existed []bool
	failOn  map[int]bool
}

func (f *fakeSender) SendFile(ctx context.Context, upload pubkit.FileUpload) (pubkit.FileResult, error) {
	f.uploads = append(f.uploads, upload)
	_, err := os.Stat(upload.Path)
	f.existed = append(f.existed, err == nil)

	n := len(f.uploads)
	if f.failOn[n] {
		return pubkit.FileResult{}, &pubkit.Error{Kind: pubkit.KindStore, Op: "send file", Status: 403, Err: errors.New("forbidden")}
	}
	return pubkit.FileResult{ID: "file", Token: timetoken.Token(n)}, nil
}

func newTestUploader(client Sender) (*Uploader, *[]time.Duration) {
	u := New(client, generator.New(7), zerolog.Nop())
	slept := []time.Duration{}
	record := func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	u.sleep = record
	u.Images.sleep = record
	return u, &slept
}

func writeFile(t *testing.T, name string, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{'x'}, size), 0o644))
	return path
}

func TestFileUploadsUnderRandomNames(t *testing.T) {
	client := &fakeSender{failOn: map[int]bool{2: true}}
	u, slept := newTestUploader(client)
	path := writeFile(t, "report.pdf", 2048)

	summary, err := u.File(context.Background(), path, Options{Channel: "files", Count: 3, Delay: time.Second})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, int64(4096), summary.Bytes)
	assert.True(t, summary.HasFailures())
	assert.Equal(t, []time.Duration{time.Second, time.Second}, *slept)

	seen := map[string]bool{}
	for _, up := range client.uploads {
		assert.Equal(t, "files", up.Channel)
		assert.Equal(t, path, up.Path)
		assert.True(t, strings.HasSuffix(up.Name, ".pdf"), up.Name)
		assert.False(t, seen[up.Name], "duplicate name %s", up.Name)
		seen[up.Name] = true
	}
}

func TestFileRejectsOversizedSource(t *testing.T) {
	client := &fakeSender{}
	u, _ := newTestUploader(client)
	path := writeFile(t, "huge.bin", MaxFileSize+1)

	_, err := u.File(context.Background(), path, Options{Channel: "files", Count: 1})
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.Empty(t, client.uploads)
}

func TestFileValidatesOptions(t *testing.T) {
	u, _ := newTestUploader(&fakeSender{})
	path := writeFile(t, "a.txt", 1)

	_, err := u.File(context.Background(), path, Options{Count: 1})
	assert.Error(t, err)

	_, err = u.File(context.Background(), path, Options{Channel: "c"})
	assert.Error(t, err)

	_, err = u.File(context.Background(), filepath.Join(t.TempDir(), "missing"), Options{Channel: "c", Count: 1})
	assert.Error(t, err)
}

func TestGalleryDownloadsUploadsAndCleansUp(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(bytes.Repeat([]byte{0xff}, 1024))
	}))
	defer server.Close()

	client := &fakeSender{}
	u, _ := newTestUploader(client)
	u.Images.HTTP = server.Client()
	u.Images.TempDir = t.TempDir()
	u.Images.URL = func() string { return server.URL + "/image" }

	summary, err := u.Gallery(context.Background(), Options{Channel: "gallery", Count: 2})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, int64(2048), summary.Bytes)
	require.Len(t, client.uploads, 2)
	for i, up := range client.uploads {
		assert.True(t, client.existed[i], "image should exist while uploading")
		assert.True(t, strings.HasSuffix(up.Name, ".jpg"))
		_, err := os.Stat(up.Path)
		assert.True(t, os.IsNotExist(err), "image should be removed after upload")
	}
}

func TestDownloadRetriesWithBackoff(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("jpeg"))
	}))
	defer server.Close()

	u, slept := newTestUploader(&fakeSender{})
	u.Images.HTTP = server.Client()
	u.Images.TempDir = t.TempDir()
	u.Images.URL = func() string { return server.URL }

	image, err := u.Images.Download(context.Background())
	require.NoError(t, err)
	defer os.Remove(image.Path)

	assert.Equal(t, int64(4), image.Size)
	assert.Equal(t, []time.Duration{DefaultBackoff, 2 * DefaultBackoff}, *slept)
}

func TestDownloadGivesUp(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	u, _ := newTestUploader(&fakeSender{})
	u.Images.HTTP = server.Client()
	u.Images.TempDir = t.TempDir()
	u.Images.URL = func() string { return server.URL }

	_, err := u.Images.Download(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestDownloadRejectsOversizedImage(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write(bytes.Repeat([]byte{0}, MaxFileSize+10))
	}))
	defer server.Close()

	dir := t.TempDir()
	u, _ := newTestUploader(&fakeSender{})
	u.Images.HTTP = server.Client()
	u.Images.TempDir = dir
	u.Images.URL = func() string { return server.URL }

	_, err := u.Images.Download(context.Background())
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	leftovers, _ := os.ReadDir(dir)
	assert.Empty(t, leftovers)
}

func TestRandomImageURL(t *testing.T) {
	gen := generator.New(3)
	for i := 0; i < 50; i++ {
		url := RandomImageURL(gen)
		assert.True(t,
			strings.HasPrefix(url, "https://picsum.photos/") ||
				strings.HasPrefix(url, "https://dummyimage.com/") ||
				strings.HasPrefix(url, "https://placehold.co/"),
			url)
	}
}
