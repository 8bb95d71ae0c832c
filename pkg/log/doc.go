// Package log wraps zerolog with a process-global logger, level and
// output-format configuration, and child-logger helpers that stamp the
// fields used across the gateway (component, request_id, token_id,
// operation_id).
package log
