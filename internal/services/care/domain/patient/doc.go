// Package patient models the patient care paths aggregate.
//
// A patient holds at most one path per path type. Each path has the
// professionals assigned to it and the sessions scheduled on it, ranked by
// start time.
//
// The package holds:
//   - Decide, which turns a command into events or a rejection,
//   - Evolve, which folds one event into state,
//   - the per path type rules table both of them consult,
//   - and the codec that maps typed commands and events to their envelopes.
//
// Decide and Evolve never perform I/O. Identifiers are minted by Decide through
// an injected generator so replaying persisted events never invents new ones.
package patient
