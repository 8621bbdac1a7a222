package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Intenções processadas por tipo e resultado
	IntentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_intents_total",
			Help: "Total number of intents dispatched",
		},
		[]string{"type", "status"}, // status: ok, not_found, error, pending
	)

	// Latência das chamadas aos colaboradores remotos
	RemoteCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bot_remote_call_duration_seconds",
			Help:    "Remote collaborator call duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms a ~40s
		},
		[]string{"collaborator", "op", "status"},
	)

	RetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_retry_attempts_total",
			Help: "Total number of retried remote calls",
		},
		[]string{"collaborator", "op"},
	)

	UndoTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_undo_total",
			Help: "Total number of undo executions",
		},
		[]string{"type", "status"},
	)

	ConfirmationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_confirmations_total",
			Help: "Confirmation prompts by action and outcome",
		},
		[]string{"action", "outcome"}, // outcome: created, accepted, rejected, stale
	)
)

// RecordIntent registra uma intenção despachada
func RecordIntent(intentType, status string) {
	IntentsTotal.WithLabelValues(intentType, status).Inc()
}

// RecordRemoteCall registra a latência de uma chamada remota
func RecordRemoteCall(collaborator, op string, err error, duration time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	RemoteCallDuration.WithLabelValues(collaborator, op, status).Observe(duration.Seconds())
}

// RecordRetry registra uma nova tentativa
func RecordRetry(collaborator, op string) {
	RetryAttempts.WithLabelValues(collaborator, op).Inc()
}

// RecordUndo registra uma execução de desfazer
func RecordUndo(undoType, status string) {
	UndoTotal.WithLabelValues(undoType, status).Inc()
}

// RecordConfirmation registra o desfecho de uma confirmação
func RecordConfirmation(action, outcome string) {
	ConfirmationsTotal.WithLabelValues(action, outcome).Inc()
}
