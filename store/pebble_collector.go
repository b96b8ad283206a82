package store

import (
	"github.com/cockroachdb/pebble"
	"github.com/prometheus/client_golang/prometheus"
)

// PebbleCollector exports engine metrics of a PebbleStore.
type PebbleCollector struct {
	db *pebble.DB

	compactions     *prometheus.Desc
	compactionDebt  *prometheus.Desc
	memtableSize    *prometheus.Desc
	memtableCount   *prometheus.Desc
	walFiles        *prometheus.Desc
	walSize         *prometheus.Desc
	walBytesWritten *prometheus.Desc
}

func (s *PebbleStore) Collector() *PebbleCollector {
	return &PebbleCollector{
		db: s.db,
		compactions: prometheus.NewDesc(
			"vocasync_pebble_compactions_total",
			"Total number of compactions performed",
			nil, nil,
		),
		compactionDebt: prometheus.NewDesc(
			"vocasync_pebble_compaction_debt_bytes",
			"Estimated bytes to compact before the LSM is stable",
			nil, nil,
		),
		memtableSize: prometheus.NewDesc(
			"vocasync_pebble_memtable_size_bytes",
			"Current size of the memtables in bytes",
			nil, nil,
		),
		memtableCount: prometheus.NewDesc(
			"vocasync_pebble_memtables",
			"Current count of memtables",
			nil, nil,
		),
		walFiles: prometheus.NewDesc(
			"vocasync_pebble_wal_files",
			"Number of live WAL files",
			nil, nil,
		),
		walSize: prometheus.NewDesc(
			"vocasync_pebble_wal_size_bytes",
			"Size of live WAL data in bytes",
			nil, nil,
		),
		walBytesWritten: prometheus.NewDesc(
			"vocasync_pebble_wal_bytes_written_total",
			"Total physical bytes written to the WAL",
			nil, nil,
		),
	}
}

func (pc *PebbleCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- pc.compactions
	ch <- pc.compactionDebt
	ch <- pc.memtableSize
	ch <- pc.memtableCount
	ch <- pc.walFiles
	ch <- pc.walSize
	ch <- pc.walBytesWritten
}

func (pc *PebbleCollector) Collect(ch chan<- prometheus.Metric) {
	m := pc.db.Metrics()

	ch <- prometheus.MustNewConstMetric(pc.compactions, prometheus.CounterValue, float64(m.Compact.Count))
	ch <- prometheus.MustNewConstMetric(pc.compactionDebt, prometheus.GaugeValue, float64(m.Compact.EstimatedDebt))
	ch <- prometheus.MustNewConstMetric(pc.memtableSize, prometheus.GaugeValue, float64(m.MemTable.Size))
	ch <- prometheus.MustNewConstMetric(pc.memtableCount, prometheus.GaugeValue, float64(m.MemTable.Count))
	ch <- prometheus.MustNewConstMetric(pc.walFiles, prometheus.GaugeValue, float64(m.WAL.Files))
	ch <- prometheus.MustNewConstMetric(pc.walSize, prometheus.GaugeValue, float64(m.WAL.Size))
	ch <- prometheus.MustNewConstMetric(pc.walBytesWritten, prometheus.CounterValue, float64(m.WAL.BytesWritten))
}
