package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds the collectors for one pipeline run. Each Registry owns a
// private prometheus.Registry so tests and concurrent runs do not share state.
type Registry struct {
	reg *prometheus.Registry

	RecordsIngested  prometheus.Counter
	RecordsCleaned   prometheus.Counter
	DuplicateRecords prometheus.Counter
	DroppedRecords   prometheus.Counter
	NullValues       *prometheus.CounterVec
	CastFailures     *prometheus.CounterVec
	SinkWrites       *prometheus.CounterVec
	StageDuration    *prometheus.HistogramVec
	LastRunSuccess   prometheus.Gauge
}

// NewRegistry creates and registers every pipeline collector.
func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	ingested := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "healthcare_records_ingested_total",
		Help: "Raw rows read from the input batch.",
	})
	cleaned := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "healthcare_records_cleaned_total",
		Help: "Records left after deduplication and null handling.",
	})
	dups := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "healthcare_duplicate_records_total",
		Help: "Exact duplicate records removed.",
	})
	dropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "healthcare_dropped_records_total",
		Help: "Records removed by the null policy.",
	})
	nulls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "healthcare_null_values_total",
		Help: "Null values per mandatory field after deduplication.",
	}, []string{"field"})
	casts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "healthcare_cast_failures_total",
		Help: "Values that could not be cast to their declared type.",
	}, []string{"field"})
	sinkWrites := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "healthcare_sink_writes_total",
		Help: "Dataset store attempts by outcome.",
	}, []string{"dataset", "status"})
	stageDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "healthcare_stage_duration_seconds",
		Help:    "Wall time spent in each pipeline stage.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})
	lastRun := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "healthcare_last_run_success",
		Help: "1 if the last run stored every dataset, 0 otherwise.",
	})

	r.MustRegister(ingested, cleaned, dups, dropped, nulls, casts, sinkWrites, stageDuration, lastRun)
	return &Registry{
		reg:              r,
		RecordsIngested:  ingested,
		RecordsCleaned:   cleaned,
		DuplicateRecords: dups,
		DroppedRecords:   dropped,
		NullValues:       nulls,
		CastFailures:     casts,
		SinkWrites:       sinkWrites,
		StageDuration:    stageDuration,
		LastRunSuccess:   lastRun,
	}
}

// WriteTextfile dumps the registry for the node-exporter textfile collector.
func (r *Registry) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}
