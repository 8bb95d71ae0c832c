// Package client is a typed HTTP client for the gateway API.
//
// It mirrors the REST surface one-to-one and decodes the three response
// envelopes into Go values. Non-2xx responses become *APIError values
// carrying the wire-visible error name, the correlation ID, and, for
// post-broadcast failures, the transaction hash.
package client
