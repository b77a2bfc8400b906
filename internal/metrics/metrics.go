// Package metrics defines the Prometheus collectors exported by homeids.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion metrics
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homeids_messages_total",
			Help: "Total number of device messages processed, by classification",
		},
		[]string{"classification"},
	)

	MessageBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "homeids_message_bytes_total",
			Help: "Total bytes of device payloads received",
		},
	)

	ProcessingFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "homeids_processing_failures_total",
			Help: "Total number of messages whose processing failed",
		},
	)

	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "homeids_ingest_queue_depth",
			Help: "Current depth of the ingestion queue",
		},
	)

	// Detection metrics
	AttacksDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homeids_attacks_detected_total",
			Help: "Total number of attacks detected, by rule",
		},
		[]string{"rule", "severity"},
	)

	// Control plane metrics
	AuthorizationDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homeids_authorization_denials_total",
			Help: "Total number of denied device control attempts",
		},
		[]string{"device"},
	)

	CommandsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homeids_commands_published_total",
			Help: "Total number of device control commands published",
		},
		[]string{"device", "status"},
	)

	// Event log metrics
	LogWriteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "homeids_log_write_failures_total",
			Help: "Total number of log records that could not be persisted",
		},
	)

	LogRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homeids_log_records_total",
			Help: "Total number of log records written, by type",
		},
		[]string{"log_type"},
	)
)
