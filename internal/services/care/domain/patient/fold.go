package patient

import "fmt"

// Evolve applies evt to state and returns the next state. The input state is
// left untouched. Events for a path type the state does not hold are ignored;
// Decide never emits them.
func Evolve(state State, evt Event) State {
	next := state.Clone()
	switch e := evt.(type) {
	case PathStarted:
		next.Paths = append(next.Paths, Path{
			ID:   e.PathID,
			Type: e.Type,
			Professionals: []Professional{{
				ID:   e.ProfessionalID,
				Role: e.ProfessionalRole,
			}},
			Sessions: []Session{},
		})
	case ProfessionalAdded:
		next.updatePath(e.PathType, func(path *Path) {
			path.Professionals = append(path.Professionals, Professional{
				ID:   e.ProfessionalID,
				Role: e.ProfessionalRole,
			})
		})
	case SessionScheduled:
		next.updatePath(e.PathType, func(path *Path) {
			path.Sessions = append(path.Sessions, Session{
				ID:       e.SessionID,
				StartAt:  e.StartAt,
				State:    e.State,
				Duration: e.Duration,
				Sequence: e.Sequence,
			})
		})
	case SessionsSequenceChanged:
		sequences := make(map[string]int, len(e.Sessions))
		for _, change := range e.Sessions {
			sequences[change.SessionID] = change.Sequence
		}
		next.updatePath(e.PathType, func(path *Path) {
			for i := range path.Sessions {
				if sequence, ok := sequences[path.Sessions[i].ID]; ok {
					path.Sessions[i].Sequence = sequence
				}
			}
		})
	default:
		panic(fmt.Sprintf("patient: unhandled event %T", evt))
	}
	return next
}

// Fold applies events to state in order.
func Fold(state State, events ...Event) State {
	for _, evt := range events {
		state = Evolve(state, evt)
	}
	return state
}

func (s *State) updatePath(pathType PathType, update func(*Path)) {
	for i := range s.Paths {
		if s.Paths[i].Type == pathType {
			update(&s.Paths[i])
			return
		}
	}
}
