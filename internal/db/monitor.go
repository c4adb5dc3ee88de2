// Copyright 2025 SAP SE
// SPDX-License-Identifier: Apache-2.0

package db

import (
	"github.com/cobaltcore-dev/consolidator/internal/conf"
	"github.com/prometheus/client_golang/prometheus"
)

type monitor struct {
	connectionAttempts *prometheus.CounterVec
	selectTimer        *prometheus.HistogramVec
}

func newMonitor(c conf.DBConfig) monitor {
	m := monitor{
		connectionAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "consolidator_db_connection_attempts_total",
			Help: "Total number of database connection attempts.",
		}, []string{"host", "database"}),
		selectTimer: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "consolidator_db_select_duration_seconds",
			Help:    "Duration of SELECT queries in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"group"}),
	}
	m.connectionAttempts.WithLabelValues(c.Host, c.Database).Inc()
	return m
}

func (m *monitor) Describe(ch chan<- *prometheus.Desc) {
	m.connectionAttempts.Describe(ch)
	m.selectTimer.Describe(ch)
}

func (m *monitor) Collect(ch chan<- prometheus.Metric) {
	m.connectionAttempts.Collect(ch)
	m.selectTimer.Collect(ch)
}
