// Package sqlite implements the care event log on SQLite.
//
// Each patient's events are rows keyed by (patient_id, seq). Appends run in a
// transaction that checks the caller's expected sequence, so concurrent
// writers cannot interleave a patient's history. The schema is applied from
// embedded migrations when the store opens.
package sqlite
