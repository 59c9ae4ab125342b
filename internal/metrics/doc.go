// Package metrics holds the Prometheus collectors of the bridge pipeline.
//
// All recording methods are safe on a nil *Metrics so components can run
// without instrumentation in tests.
package metrics
