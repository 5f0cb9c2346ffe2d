package command

import (
	"errors"

	apperrors "github.com/louisbranch/carepaths/internal/platform/errors"
)

// Decision represents the pure outcome of handling a command: either the
// events that must occur or the rejections explaining why none may.
type Decision[E any] struct {
	Events     []E
	Rejections []Rejection
}

// Rejection captures a domain-level reason a command was declined.
type Rejection struct {
	Code    string
	Message string
}

// Err converts the rejection into a domain error addressable by code.
func (r Rejection) Err() error {
	return apperrors.New(apperrors.Code(r.Code), r.Message)
}

// Accept returns a decision that emits the provided events.
func Accept[E any](events ...E) Decision[E] {
	return Decision[E]{Events: append([]E(nil), events...)}
}

// Reject returns a decision that carries the provided rejections.
func Reject[E any](rejections ...Rejection) Decision[E] {
	return Decision[E]{Rejections: append([]Rejection(nil), rejections...)}
}

// Accepted reports whether the decision carries no rejections.
func (d Decision[E]) Accepted() bool {
	return len(d.Rejections) == 0
}

// Err returns the first rejection as an error, or nil when accepted.
func (d Decision[E]) Err() error {
	if d.Accepted() {
		return nil
	}
	return d.Rejections[0].Err()
}

// Validate reports whether the decision is well formed: it must carry either
// events or rejections, never both and never neither.
func (d Decision[E]) Validate() error {
	switch {
	case len(d.Events) == 0 && len(d.Rejections) == 0:
		return errors.New("decision must carry events or rejections")
	case len(d.Events) > 0 && len(d.Rejections) > 0:
		return errors.New("decision cannot carry both events and rejections")
	}
	return nil
}
