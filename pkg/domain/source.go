package domain

// SourceID identifies a registered gene data backend.
type SourceID string

// Registered backend identifiers. The set is closed.
const (
	// SourceFile is the static delimited-text resource.
	SourceFile SourceID = "file"
	// SourceService is the paginated remote listing service.
	SourceService SourceID = "service"
)

// SourceDescriptor carries display metadata for a backend.
type SourceDescriptor struct {
	ID          SourceID `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Enabled     bool     `json:"enabled"`
}

// AccessState is a point-in-time view of the coordinator: the current source
// plus the last known availability of every registered source.
type AccessState struct {
	Current   SourceID          `json:"current"`
	Available map[SourceID]bool `json:"available"`
}

// Clone returns a deep copy of the state.
func (s AccessState) Clone() AccessState {
	out := AccessState{Current: s.Current, Available: make(map[SourceID]bool, len(s.Available))}
	for id, ok := range s.Available {
		out.Available[id] = ok
	}
	return out
}
