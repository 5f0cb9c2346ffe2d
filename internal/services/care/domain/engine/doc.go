// Package engine runs patient commands against persisted state.
//
// Execute validates a command envelope, loads the patient from its snapshot
// and event log, asks patient.Decide for a decision, then appends the
// accepted events and refreshes the snapshot. Commands for one patient run
// one at a time; an append that still loses a race to another process is
// retried against freshly loaded state.
package engine
