package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cutdetect_jobs_processed_total",
		Help: "Total number of detection jobs finished, by outcome",
	}, []string{"status"})

	JobProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cutdetect_job_processing_duration_seconds",
		Help:    "Duration of cut detection pipeline stages",
		Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300, 600, 1800},
	}, []string{"stage"})

	FramesScannedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cutdetect_frames_scanned_total",
		Help: "Total number of frames run through a detector",
	}, []string{"method"})

	CutsDetectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cutdetect_cuts_detected_total",
		Help: "Total number of cuts exported",
	}, []string{"method"})

	ScanFramesPerSecond = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cutdetect_scan_frames_per_second",
		Help:    "Scan throughput per job",
		Buckets: prometheus.ExponentialBuckets(25, 2, 8),
	}, []string{"method"})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cutdetect_active_workers",
		Help: "Number of workers currently scanning a video",
	})

	RetryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cutdetect_retry_total",
		Help: "Total number of retries",
	}, []string{"attempt"})

	CancelRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cutdetect_cancel_requests_total",
		Help: "Cancel requests received, by whether the job was running",
	}, []string{"state"})

	NotesUpdatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cutdetect_notes_updated_total",
		Help: "Cut notes written to both the result document and the database",
	})
)
