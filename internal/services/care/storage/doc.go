// Package storage defines the persistence contracts of the care service.
//
// A patient can be persisted as a snapshot of its folded state, as its
// ordered event log, or both. Implementations live in the memory, sqlite and
// bbolt subpackages.
package storage
