// Package metrics provides types.MetricsCollector implementations.
package metrics

import "github.com/korospace/BE-WA-blaster/types"

// NopMetrics implements a no-op metrics collector.
//
// All metrics are discarded. Useful for testing or when external metrics
// collection is used.
type NopMetrics struct{}

// Compile-time assertion that NopMetrics implements MetricsCollector.
var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNop creates a new no-op metrics collector.
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

// RecordStatusTransition discards the transition metric.
func (*NopMetrics) RecordStatusTransition(_ string, _, _ types.Status) {}

// RecordSweep discards the sweep metric.
func (*NopMetrics) RecordSweep(_, _ int, _ float64) {}

// RecordPublish discards the publish metric.
func (*NopMetrics) RecordPublish(_ bool) {}

// RecordNotification discards the notification metric.
func (*NopMetrics) RecordNotification(_ bool) {}

// RecordSend discards the send metric.
func (*NopMetrics) RecordSend(_ string, _ bool) {}

// RecordQueueDepth discards the queue depth metric.
func (*NopMetrics) RecordQueueDepth(_ types.QueueName, _ int) {}
