// Package api is the HTTP surface of the gateway.
//
// Handlers are deliberately thin: each one validates its inputs
// synchronously, invokes exactly one ChainService operation, and wraps
// the result in one of three fixed envelopes (resource, paginated list,
// async operation). All domain decisions live behind the ChainService
// interface; the handlers never touch the chain directly.
//
// Every route under /v1 except the health probe runs through the full
// ingress pipeline: request correlation, security headers, body cap,
// rate limiting, authentication, panic recovery, and request logging.
// The health probe and the Prometheus endpoint are mounted outside the
// pipeline so orchestrators and scrapers never consume a client's
// request budget.
package api
