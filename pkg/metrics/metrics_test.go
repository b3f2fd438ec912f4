/*
 * Copyright (c) 2024, Gideon Williams gideon@gideonw.com
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package metrics

import (
	"testing"
	"time"

	"github.com/dburkart/pubkit/pkg/database"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func TestRequestCounters(t *testing.T) {
	store := NewStore()
	store.IncRequests("fetch", "ok")
	store.IncRequests("fetch", "ok")
	store.IncRequests("fetch", "store")
	store.ObserveLatency("fetch", 25*time.Millisecond)

	ms := store.(*metricsStore)
	if got := testutil.ToFloat64(ms.Requests.WithLabelValues("fetch", "ok")); got != 2 {
		t.Errorf("expected 2 ok fetches, got %v", got)
	}
	if got := testutil.ToFloat64(ms.Requests.WithLabelValues("fetch", "store")); got != 1 {
		t.Errorf("expected 1 failed fetch, got %v", got)
	}
}

func TestDBStatsCollector(t *testing.T) {
	db, err := database.NewDatabase("metrics", t.TempDir(), database.Options{Log: zerolog.Nop()})
	if err != nil {
		t.Fatal(err)
	}
	db.Append("a", []byte(`1`), nil, "")
	db.Append("b", []byte(`2`), nil, "")

	c := NewDBStatsCollector(db)
	if n := testutil.CollectAndCount(c); n != 3 {
		t.Errorf("expected 3 metrics, got %d", n)
	}
}
