/*
 * Copyright (c) 2022, Gideon Williams gideon@gideonw.com
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package metrics

import (
	"github.com/dburkart/pubkit/pkg/database"
	"github.com/prometheus/client_golang/prometheus"
)

type dbStatsCollector struct {
	db *database.Database

	segments     *prometheus.Desc
	channelCount *prometheus.Desc
	recordCount  *prometheus.Desc
}

func NewDBStatsCollector(db *database.Database) prometheus.Collector {
	return &dbStatsCollector{
		db: db,
		segments: prometheus.NewDesc(
			"pubkit_local_segments",
			"Number of segments in the local message store.",
			nil, prometheus.Labels{"db_name": db.Name},
		),
		channelCount: prometheus.NewDesc(
			"pubkit_local_channels",
			"Number of channels in the local message store.",
			nil, prometheus.Labels{"db_name": db.Name},
		),
		recordCount: prometheus.NewDesc(
			"pubkit_local_records",
			"Number of records in the local message store.",
			nil, prometheus.Labels{"db_name": db.Name},
		),
	}
}

// Describe implements Collector.
func (c *dbStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.segments
	ch <- c.channelCount
	ch <- c.recordCount
}

// Collect implements Collector.
func (c *dbStatsCollector) Collect(ch chan<- prometheus.Metric) {
	stats := c.db.Stats()
	ch <- prometheus.MustNewConstMetric(c.segments, prometheus.GaugeValue, float64(stats.Segments))
	ch <- prometheus.MustNewConstMetric(c.channelCount, prometheus.GaugeValue, float64(stats.ChannelCount))
	ch <- prometheus.MustNewConstMetric(c.recordCount, prometheus.GaugeValue, float64(stats.RecordCount))
}
