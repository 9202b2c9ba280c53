// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingestion

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// metricsIngestion holds Prometheus metrics for the ingestion subsystem.
type metricsIngestion struct {
	once sync.Once

	// Metadata
	agenciesSynced  prometheus.Counter
	titlesSynced    prometheus.Counter
	linksCreated    prometheus.Counter
	dateRefreshFail prometheus.Counter

	// Snapshots
	snapshotsCreated prometheus.Counter
	snapshotsSkipped prometheus.Counter
	snapshotsFailed  *prometheus.CounterVec
	titlesCompleted  prometheus.Counter

	// Durations
	fetchDuration   prometheus.Histogram
	analyzeDuration prometheus.Histogram
	syncDuration    prometheus.Histogram
	ingestDuration  prometheus.Histogram
}

var ingMetrics metricsIngestion

func (m *metricsIngestion) init() {
	m.once.Do(func() {
		m.agenciesSynced = prometheus.NewCounter(prometheus.CounterOpts{Name: "cfrscope_sync_agencies_total", Help: "Agencies upserted by metadata sync"})
		m.titlesSynced = prometheus.NewCounter(prometheus.CounterOpts{Name: "cfrscope_sync_titles_total", Help: "Titles upserted by metadata sync"})
		m.linksCreated = prometheus.NewCounter(prometheus.CounterOpts{Name: "cfrscope_sync_links_created_total", Help: "Agency-title links created"})
		m.dateRefreshFail = prometheus.NewCounter(prometheus.CounterOpts{Name: "cfrscope_sync_date_refresh_failures_total", Help: "Titles whose version dates could not be refreshed"})

		m.snapshotsCreated = prometheus.NewCounter(prometheus.CounterOpts{Name: "cfrscope_ing_snapshots_created_total", Help: "Snapshots analyzed and stored"})
		m.snapshotsSkipped = prometheus.NewCounter(prometheus.CounterOpts{Name: "cfrscope_ing_snapshots_skipped_total", Help: "Snapshots skipped because they already exist"})
		m.snapshotsFailed = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "cfrscope_ing_snapshots_failed_total", Help: "Snapshot failures by stage"}, []string{"stage"})
		m.titlesCompleted = prometheus.NewCounter(prometheus.CounterOpts{Name: "cfrscope_ing_titles_completed_total", Help: "Titles marked completed"})

		buckets := []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120}
		m.fetchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "cfrscope_ing_fetch_seconds", Help: "Document fetch duration", Buckets: buckets})
		m.analyzeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "cfrscope_ing_analyze_seconds", Help: "Normalization and scoring duration", Buckets: buckets})
		runBuckets := []float64{1, 5, 15, 30, 60, 300, 900, 1800, 3600}
		m.syncDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "cfrscope_sync_total_seconds", Help: "Metadata sync duration", Buckets: runBuckets})
		m.ingestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "cfrscope_ing_total_seconds", Help: "Snapshot ingestion run duration", Buckets: runBuckets})

		prometheus.MustRegister(
			m.agenciesSynced, m.titlesSynced, m.linksCreated, m.dateRefreshFail,
			m.snapshotsCreated, m.snapshotsSkipped, m.snapshotsFailed, m.titlesCompleted,
			m.fetchDuration, m.analyzeDuration, m.syncDuration, m.ingestDuration,
		)
	})
}

// record helpers - used by the synchronizer and engine
func recordAgenciesSynced(n int) { ingMetrics.init(); ingMetrics.agenciesSynced.Add(float64(n)) }
func recordTitlesSynced(n int)   { ingMetrics.init(); ingMetrics.titlesSynced.Add(float64(n)) }
func recordLinksCreated(n int)   { ingMetrics.init(); ingMetrics.linksCreated.Add(float64(n)) }
func recordDateRefreshFailure()  { ingMetrics.init(); ingMetrics.dateRefreshFail.Inc() }
func recordSnapshotCreated()     { ingMetrics.init(); ingMetrics.snapshotsCreated.Inc() }
func recordSnapshotSkipped()     { ingMetrics.init(); ingMetrics.snapshotsSkipped.Inc() }
func recordTitleCompleted()      { ingMetrics.init(); ingMetrics.titlesCompleted.Inc() }

func recordSnapshotFailed(stage string) {
	ingMetrics.init()
	ingMetrics.snapshotsFailed.WithLabelValues(stage).Inc()
}

func observeFetch(d time.Duration)   { ingMetrics.init(); ingMetrics.fetchDuration.Observe(d.Seconds()) }
func observeAnalyze(d time.Duration) { ingMetrics.init(); ingMetrics.analyzeDuration.Observe(d.Seconds()) }
func observeSync(d time.Duration)    { ingMetrics.init(); ingMetrics.syncDuration.Observe(d.Seconds()) }
func observeIngest(d time.Duration)  { ingMetrics.init(); ingMetrics.ingestDuration.Observe(d.Seconds()) }
