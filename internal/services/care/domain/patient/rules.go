package patient

import (
	"sort"

	"github.com/louisbranch/carepaths/internal/services/care/domain/command"
)

// PathRules is the capability record of a path type.
type PathRules struct {
	// SessionDuration is the fixed length of every session, in minutes.
	SessionDuration int
	// CanHaveAnotherProfessional returns nil to accept role on path, or the
	// rejection explaining why the path cannot take it.
	CanHaveAnotherProfessional func(path Path, role ProfessionalRole) *command.Rejection
}

// wlmMaxProfessionals caps a weight-loss-management path at its founding
// professional plus one dietitian.
const wlmMaxProfessionals = 2

// pathRules is read-only after package initialization. A new path type is a
// new entry here; Decide does not change.
var pathRules = map[PathType]PathRules{
	PathTypeWLM: {
		SessionDuration: 60,
		CanHaveAnotherProfessional: func(path Path, role ProfessionalRole) *command.Rejection {
			if len(path.Professionals) >= wlmMaxProfessionals {
				return &command.Rejection{
					Code:    RejectionCodeMaxProfessionalsReached,
					Message: "wlm path already has the maximum number of professionals",
				}
			}
			if role != RoleDietitian {
				return &command.Rejection{
					Code:    RejectionCodeProfessionalRoleAlreadyExists,
					Message: "wlm path only accepts a dietitian as another professional",
				}
			}
			return nil
		},
	},
	PathTypePsychotherapy: {
		SessionDuration: 45,
		CanHaveAnotherProfessional: func(Path, ProfessionalRole) *command.Rejection {
			return &command.Rejection{
				Code:    RejectionCodePathDoesNotSupportMultipleProfessionals,
				Message: "psychotherapy path does not support multiple professionals",
			}
		},
	},
}

// RulesFor returns the rules of pathType.
func RulesFor(pathType PathType) (PathRules, bool) {
	rules, ok := pathRules[pathType]
	return rules, ok
}

// SupportedPathTypes lists the path types with rules, sorted.
func SupportedPathTypes() []PathType {
	types := make([]PathType, 0, len(pathRules))
	for pathType := range pathRules {
		types = append(types, pathType)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
