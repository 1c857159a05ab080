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

// Package metrics exposes Prometheus counters and histograms for one scan
// run: files discovered, skipped, and indexed; findings by risk; and
// parse/trace durations. Registration happens once per process; callers
// that never pass --metrics-addr simply never serve them.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// metricsScan holds every Prometheus collector this package registers.
type metricsScan struct {
	once sync.Once

	filesDiscovered prometheus.Counter
	filesIndexed    prometheus.Counter
	filesSkipped    prometheus.Counter

	findingsHigh   prometheus.Counter
	findingsMedium prometheus.Counter
	findingsLow    prometheus.Counter

	legacyDialectUpgrades prometheus.Counter
	legacyDialectFailures prometheus.Counter

	parseDuration prometheus.Histogram
	traceDuration prometheus.Histogram
	scanDuration  prometheus.Histogram
}

var scanMetrics metricsScan

func (m *metricsScan) init() {
	m.once.Do(func() {
		m.filesDiscovered = prometheus.NewCounter(prometheus.CounterOpts{Name: "taintlens_files_discovered_total", Help: "Source files discovered under the scan target"})
		m.filesIndexed = prometheus.NewCounter(prometheus.CounterOpts{Name: "taintlens_files_indexed_total", Help: "Source files successfully indexed"})
		m.filesSkipped = prometheus.NewCounter(prometheus.CounterOpts{Name: "taintlens_files_skipped_total", Help: "Source files skipped (read error, legacy dialect, or parse failure)"})

		m.findingsHigh = prometheus.NewCounter(prometheus.CounterOpts{Name: "taintlens_findings_high_total", Help: "Findings at HIGH risk"})
		m.findingsMedium = prometheus.NewCounter(prometheus.CounterOpts{Name: "taintlens_findings_medium_total", Help: "Findings at MEDIUM risk"})
		m.findingsLow = prometheus.NewCounter(prometheus.CounterOpts{Name: "taintlens_findings_low_total", Help: "Findings at LOW risk"})

		m.legacyDialectUpgrades = prometheus.NewCounter(prometheus.CounterOpts{Name: "taintlens_legacy_dialect_upgrades_total", Help: "Files upgraded from the legacy print-statement dialect"})
		m.legacyDialectFailures = prometheus.NewCounter(prometheus.CounterOpts{Name: "taintlens_legacy_dialect_upgrade_failures_total", Help: "Legacy-dialect upgrade attempts that failed"})

		buckets := []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
		m.parseDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "taintlens_parse_seconds", Help: "Per-file parse duration", Buckets: buckets})
		m.traceDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "taintlens_trace_seconds", Help: "Per-file taint trace duration", Buckets: buckets})
		m.scanDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "taintlens_scan_seconds", Help: "Total scan duration", Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300}})

		prometheus.MustRegister(
			m.filesDiscovered, m.filesIndexed, m.filesSkipped,
			m.findingsHigh, m.findingsMedium, m.findingsLow,
			m.legacyDialectUpgrades, m.legacyDialectFailures,
			m.parseDuration, m.traceDuration, m.scanDuration,
		)
	})
}

// RecordDiscovered increments the discovered-files counter by n.
func RecordDiscovered(n int) {
	scanMetrics.init()
	scanMetrics.filesDiscovered.Add(float64(n))
}

// RecordIndexed increments the indexed-files counter.
func RecordIndexed() {
	scanMetrics.init()
	scanMetrics.filesIndexed.Inc()
}

// RecordSkipped increments the skipped-files counter.
func RecordSkipped() {
	scanMetrics.init()
	scanMetrics.filesSkipped.Inc()
}

// RecordFinding increments the counter for risk, ignoring unrecognized risk
// strings (defensive; the tracer never emits anything else).
func RecordFinding(risk string) {
	scanMetrics.init()
	switch risk {
	case "HIGH":
		scanMetrics.findingsHigh.Inc()
	case "MEDIUM":
		scanMetrics.findingsMedium.Inc()
	case "LOW":
		scanMetrics.findingsLow.Inc()
	}
}

// RecordLegacyDialectUpgrade records a successful or failed py2-dialect
// upgrade attempt.
func RecordLegacyDialectUpgrade(ok bool) {
	scanMetrics.init()
	if ok {
		scanMetrics.legacyDialectUpgrades.Inc()
		return
	}
	scanMetrics.legacyDialectFailures.Inc()
}

// ObserveParseDuration records one file's parse wall-clock time.
func ObserveParseDuration(d time.Duration) {
	scanMetrics.init()
	scanMetrics.parseDuration.Observe(d.Seconds())
}

// ObserveTraceDuration records one file's taint-trace wall-clock time.
func ObserveTraceDuration(d time.Duration) {
	scanMetrics.init()
	scanMetrics.traceDuration.Observe(d.Seconds())
}

// ObserveScanDuration records the whole scan's wall-clock time.
func ObserveScanDuration(d time.Duration) {
	scanMetrics.init()
	scanMetrics.scanDuration.Observe(d.Seconds())
}
