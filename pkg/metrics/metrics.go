/*
 * Copyright (c) 2022, Gideon Williams <gideon@gideonw.com>
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type Store interface {
	Registry() *prometheus.Registry
	RegisterCollector(c prometheus.Collector)
	Handler() http.Handler

	// Collection
	IncRequests(op, outcome string)
	ObserveLatency(op string, d time.Duration)
}

type metricsStore struct {
	registry *prometheus.Registry
	Requests *prometheus.CounterVec
	Latency  *prometheus.HistogramVec
}

var (
	OperationLabel = "op"
	OutcomeLabel   = "outcome"
)

func NewStore() Store {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(
			collectors.WithGoCollectorRuntimeMetrics(collectors.MetricsAll),
		),
	)

	// Requests to the hosted service mostly land between 20ms and 2s
	buckets := prometheus.ExponentialBuckets(0.01, 2, 12)

	factory := promauto.With(reg)
	return &metricsStore{
		registry: reg,
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pubkit_requests_total",
			Help: "Requests made against the message store, by operation and outcome",
		}, []string{OperationLabel, OutcomeLabel}),
		Latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pubkit_request_seconds",
			Help:    "Latency of requests made against the message store",
			Buckets: buckets,
		}, []string{OperationLabel}),
	}
}

func (ms *metricsStore) Registry() *prometheus.Registry {
	return ms.registry
}

func (ms *metricsStore) RegisterCollector(c prometheus.Collector) {
	ms.registry.MustRegister(c)
}

func (ms *metricsStore) Handler() http.Handler {
	return promhttp.HandlerFor(ms.Registry(), promhttp.HandlerOpts{Registry: ms.Registry()})
}

func (ms *metricsStore) IncRequests(op, outcome string) {
	ms.Requests.With(prometheus.Labels{OperationLabel: op, OutcomeLabel: outcome}).Inc()
}

func (ms *metricsStore) ObserveLatency(op string, d time.Duration) {
	ms.Latency.
		With(prometheus.Labels{OperationLabel: op}).
		Observe(d.Seconds())
}

// Serve exposes /metrics on port until the returned server is shut down.
func Serve(log zerolog.Logger, store Store, port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", store.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Int("port", port).Msg("/metrics endpoint started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Int("port", port).Msg("unable to serve metrics")
		}
	}()

	return srv
}
