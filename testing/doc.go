// Package testing provides test utilities for the wablaster library.
//
// It offers helpers for setting up test environments: an embedded NATS
// server with JetStream for integration testing, a test logger, and a
// fake session provider with scriptable events. It follows Go's
// convention of providing testing utilities in a dedicated package
// (similar to net/http/httptest).
//
// Key utilities:
//   - StartEmbeddedNATS: Single NATS server with JetStream
//   - CreateJetStreamKV: Convenience wrapper for KV bucket creation
//   - NewTestLogger: Logger that writes to testing.T
//   - NewFakeProvider: Scriptable in-memory session provider
//
// Example usage:
//
//	import (
//	    "testing"
//	    watest "github.com/korospace/BE-WA-blaster/testing"
//	)
//
//	func TestMyComponent(t *testing.T) {
//	    _, nc := watest.StartEmbeddedNATS(t)
//	    // Use nc for your tests
//	}
package testing
