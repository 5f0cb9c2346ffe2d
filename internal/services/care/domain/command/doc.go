// Package command defines the command envelope, registry, and decision types
// used on the care paths write path.
//
// Commands express intent against a single patient aggregate. The registry
// normalizes envelopes and validates payloads before a decider sees them, so
// deciders only handle business rules.
package command
