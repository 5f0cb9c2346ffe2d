// Package replay rebuilds patient state from the event log.
package replay

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/carepaths/internal/services/care/domain/event"
	"github.com/louisbranch/carepaths/internal/services/care/domain/patient"
)

const defaultPageSize = 200

var (
	// ErrEventStoreRequired indicates a missing event store.
	ErrEventStoreRequired = errors.New("event store is required")
	// ErrPatientIDRequired indicates a missing patient id.
	ErrPatientIDRequired = errors.New("patient id is required")
	// ErrSequenceGap indicates the log skipped or repeated a sequence number.
	ErrSequenceGap = errors.New("event sequence gap")
)

// EventStore lists a patient's events in sequence order.
type EventStore interface {
	ListEvents(ctx context.Context, patientID string, afterSeq uint64, limit int) ([]event.Event, error)
}

// Options bounds a replay. AfterSeq is the sequence already folded into the
// starting state; a zero UntilSeq replays to the end of the log.
type Options struct {
	AfterSeq uint64
	UntilSeq uint64
	PageSize int
}

// Result is the state reached by a replay.
type Result struct {
	State   patient.State
	LastSeq uint64
	Applied int
}

// Replay folds the events recorded after opts.AfterSeq into state.
func Replay(ctx context.Context, store EventStore, patientID string, state patient.State, opts Options) (Result, error) {
	if store == nil {
		return Result{}, ErrEventStoreRequired
	}
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return Result{}, ErrPatientIDRequired
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	result := Result{State: state, LastSeq: opts.AfterSeq}
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		events, err := store.ListEvents(ctx, patientID, result.LastSeq, pageSize)
		if err != nil {
			return result, fmt.Errorf("list events after %d: %w", result.LastSeq, err)
		}
		if len(events) == 0 {
			return result, nil
		}
		for _, evt := range events {
			if opts.UntilSeq > 0 && evt.Seq > opts.UntilSeq {
				return result, nil
			}
			if want := result.LastSeq + 1; evt.Seq != want {
				return result, fmt.Errorf("%w: expected %d got %d", ErrSequenceGap, want, evt.Seq)
			}
			decoded, err := patient.DecodeEvent(evt)
			if err != nil {
				return result, fmt.Errorf("decode event %d: %w", evt.Seq, err)
			}
			result.State = patient.Evolve(result.State, decoded)
			result.LastSeq = evt.Seq
			result.Applied++
		}
		if len(events) < pageSize {
			return result, nil
		}
	}
}
