// Package events provides an in-process publish/subscribe broker for
// operation lifecycle events (submitted, confirmed, failed) and token
// registry changes. Publishing is non-blocking: a stalled subscriber can
// never hold up a transaction path. The metrics recorder is the built-in
// subscriber; others may attach for future push surfaces.
package events
