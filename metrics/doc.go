// Package metrics exposes the gateway's Prometheus instrumentation on
// a sidecar HTTP server, kept off the public listener so operational
// surface never mixes with the attested API.
package metrics
