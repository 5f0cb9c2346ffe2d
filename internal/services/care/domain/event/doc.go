// Package event defines the event envelope and event-type registry used by the
// care paths write path.
//
// Events are immutable facts emitted by accepted decisions. The registry checks
// envelopes before persistence assigns sequence numbers, so the event log only
// ever holds events that replay can decode.
package event
