package shared

import "github.com/google/uuid"

// Actor identifies the staff member performing an operation.
// It is carried explicitly on every mutating call so audit rows
// never depend on ambient session state.
type Actor struct {
	ID   uuid.UUID
	Name string
}

// SystemActor is used for operations triggered by the system itself
// (e.g. automated funding entries written during loan approval).
var SystemActor = Actor{ID: uuid.Nil, Name: "system"}

// IsZero returns true if the actor carries no identity
func (a Actor) IsZero() bool {
	return a.ID == uuid.Nil && a.Name == ""
}
