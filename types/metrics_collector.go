package types

// MetricsCollector receives operational metrics from the library.
//
// Implementations must be safe for concurrent use. A no-op implementation
// is used when no collector is configured; a Prometheus-backed collector
// is provided in internal/metrics.
type MetricsCollector interface {
	// RecordStatusTransition records one completed instance transition.
	RecordStatusTransition(instanceID string, from, to Status)

	// RecordSweep records one completed sweeper cycle.
	//
	// Parameters:
	//   - demoted: Ready entries moved to the Disconnect queue
	//   - resurrected: Disconnect entries for which a session was created
	//   - durationSeconds: Wall time of the cycle
	RecordSweep(demoted, resurrected int, durationSeconds float64)

	// RecordPublish records one realtime publish attempt.
	RecordPublish(success bool)

	// RecordNotification records one notifier alert attempt.
	RecordNotification(success bool)

	// RecordSend records one provider message send attempt.
	RecordSend(instanceID string, success bool)

	// RecordQueueDepth records the observed depth of a recovery queue.
	RecordQueueDepth(queue QueueName, depth int)
}
