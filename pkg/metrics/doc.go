// Package metrics exposes Prometheus collectors for the gateway's HTTP
// surface and operation lifecycle, plus the promhttp handler served on
// /metrics. Operation counters are fed by a broker subscription rather
// than call sites, so the transaction path carries no metrics code.
package metrics
