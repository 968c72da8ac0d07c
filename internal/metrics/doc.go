// Package metrics collects figures about ranking runs and writes them in the
// Prometheus text exposition format.
//
// The CLI is short lived, so nothing is served over HTTP. Instead the
// recorder writes a textfile that node_exporter's textfile collector can
// pick up.
package metrics
